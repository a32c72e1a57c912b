package couch

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/futonlabs/couchstream/pkg/compression"
)

// AttachmentRef addresses a single attachment of a document.
type AttachmentRef struct {
	resource *Resource
	name     string
}

// NewAttachmentRef wraps an existing resource pointing at an
// attachment.
func NewAttachmentRef(resource *Resource, name string) *AttachmentRef {
	return &AttachmentRef{resource: resource, name: name}
}

// Name returns the attachment name.
func (a *AttachmentRef) Name() string { return a.name }

// Exists reports whether the attachment exists (HEAD).
func (a *AttachmentRef) Exists(ctx context.Context, opts ...RequestOption) (bool, error) {
	resp, err := a.resource.Head(ctx, opts...)
	if err != nil {
		return false, err
	}
	if err := ResponseError(resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, resp.Release()
}

// Modified reports whether the attachment content differs from the
// given MD5 digest, via a conditional HEAD. The digest is the raw
// 16-byte MD5 of the content; the server's ETag carries it base64.
func (a *AttachmentRef) Modified(ctx context.Context, digest []byte) (bool, error) {
	if len(digest) != md5.Size {
		return false, fmt.Errorf("md5 digest must be %d bytes, got %d", md5.Size, len(digest))
	}
	etag := `"` + base64.StdEncoding.EncodeToString(digest) + `"`
	resp, err := a.resource.Head(ctx, WithHeader("If-None-Match", etag))
	if err != nil {
		return false, err
	}
	if resp.StatusCode() == 304 {
		return false, resp.Release()
	}
	if err := ResponseError(resp); err != nil {
		return false, err
	}
	return true, resp.Release()
}

// AcceptsRange reports whether the server will serve byte ranges for
// this attachment.
func (a *AttachmentRef) AcceptsRange(ctx context.Context, opts ...RequestOption) (bool, error) {
	resp, err := a.resource.Head(ctx, opts...)
	if err != nil {
		return false, err
	}
	if err := ResponseError(resp); err != nil {
		return false, err
	}
	ranges := resp.Header().Get("Accept-Ranges")
	return strings.EqualFold(ranges, "bytes"), resp.Release()
}

// GetOption customizes an attachment fetch.
type GetOption func(*getOptions)

type getOptions struct {
	rev        string
	rangeStart int64
	rangeEnd   int64
	hasRange   bool
	decode     bool
}

// AtRev fetches the attachment as of a specific document revision.
func AtRev(rev string) GetOption {
	return func(o *getOptions) { o.rev = rev }
}

// WithRange requests bytes start through end inclusive. Pass end < 0
// for an open-ended range.
func WithRange(start, end int64) GetOption {
	return func(o *getOptions) {
		o.rangeStart, o.rangeEnd, o.hasRange = start, end, true
	}
}

// Decoded asks the server for a gzip-encoded body and inflates it on
// the fly. Without it the content passes through exactly as stored.
func Decoded() GetOption {
	return func(o *getOptions) { o.decode = true }
}

// Get streams the attachment content. The caller must Close the
// returned reader unless it reads it to EOF.
func (a *AttachmentRef) Get(ctx context.Context, opts ...GetOption) (*AttachmentReader, error) {
	var o getOptions
	for _, opt := range opts {
		opt(&o)
	}
	reqOpts := make([]RequestOption, 0, 2)
	if o.rev != "" {
		reqOpts = append(reqOpts, WithParam("rev", o.rev))
	}
	if o.hasRange {
		r := fmt.Sprintf("bytes=%d-", o.rangeStart)
		if o.rangeEnd >= 0 {
			r = fmt.Sprintf("bytes=%d-%d", o.rangeStart, o.rangeEnd)
		}
		reqOpts = append(reqOpts, WithHeader("Range", r))
	}
	if o.decode {
		// Setting the header ourselves keeps net/http from
		// transparently inflating the body behind our back.
		reqOpts = append(reqOpts, WithHeader("Accept-Encoding", compression.EncodingGzip))
	}
	resp, err := a.resource.Get(ctx, reqOpts...)
	if err != nil {
		return nil, err
	}
	if err := ResponseError(resp); err != nil {
		return nil, err
	}
	if o.decode {
		return NewDecodedAttachmentReader(resp)
	}
	return NewAttachmentReader(resp), nil
}

// Update uploads new attachment content (PUT). rev names the document
// revision being extended; contentEncoding is optional and forwarded
// as-is for pre-compressed payloads.
func (a *AttachmentRef) Update(ctx context.Context, body io.Reader, contentType, rev, contentEncoding string) (UpdateResult, error) {
	opts := []RequestOption{
		WithBody(body),
		WithHeader("Content-Type", contentType),
	}
	if rev != "" {
		opts = append(opts, WithParam("rev", rev))
	}
	if contentEncoding != "" {
		opts = append(opts, WithHeader("Content-Encoding", contentEncoding))
	}
	resp, err := a.resource.Put(ctx, opts...)
	if err != nil {
		return UpdateResult{}, err
	}
	if err := ResponseError(resp); err != nil {
		return UpdateResult{}, err
	}
	var result UpdateResult
	if err := resp.JSON(&result); err != nil {
		resp.Close()
		return UpdateResult{}, err
	}
	return result, resp.Release()
}

// UpdateCompressed uploads attachment content gzipped with
// Content-Encoding: gzip, unless the content type names an
// already-compressed format, in which case the bytes go up as-is.
func (a *AttachmentRef) UpdateCompressed(ctx context.Context, data []byte, contentType, rev string) (UpdateResult, error) {
	if !compression.ShouldCompress(contentType) {
		return a.Update(ctx, bytes.NewReader(data), contentType, rev, "")
	}
	compressed, err := compression.NewCompressor().Compress(data)
	if err != nil {
		return UpdateResult{}, err
	}
	return a.Update(ctx, bytes.NewReader(compressed), contentType, rev, compression.EncodingGzip)
}

// Delete removes the attachment (DELETE).
func (a *AttachmentRef) Delete(ctx context.Context, rev string) (UpdateResult, error) {
	resp, err := a.resource.Delete(ctx, WithParam("rev", rev))
	if err != nil {
		return UpdateResult{}, err
	}
	if err := ResponseError(resp); err != nil {
		return UpdateResult{}, err
	}
	var result UpdateResult
	if err := resp.JSON(&result); err != nil {
		resp.Close()
		return UpdateResult{}, err
	}
	return result, resp.Release()
}
