package couch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/futonlabs/couchstream/pkg/multipart"
	"github.com/futonlabs/couchstream/pkg/transport"
)

// Document is a decoded JSON document body.
type Document = multipart.Document

// DocumentRef addresses a single document.
type DocumentRef struct {
	resource *Resource
	id       string
}

// NewDocumentRef wraps an existing resource pointing at a document.
func NewDocumentRef(resource *Resource, id string) *DocumentRef {
	return &DocumentRef{resource: resource, id: id}
}

// ID returns the document ID.
func (d *DocumentRef) ID() string { return d.id }

// Attachment addresses a named attachment of this document.
func (d *DocumentRef) Attachment(name string) *AttachmentRef {
	return &AttachmentRef{resource: d.resource.Join(name), name: name}
}

// Exists reports whether the document exists (HEAD /db/docid).
func (d *DocumentRef) Exists(ctx context.Context, opts ...RequestOption) (bool, error) {
	resp, err := d.resource.Head(ctx, opts...)
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

// Modified reports whether the document differs from the given
// revision, using a conditional HEAD with If-None-Match.
func (d *DocumentRef) Modified(ctx context.Context, rev string) (bool, error) {
	resp, err := d.resource.Head(ctx,
		WithHeader("If-None-Match", quoteETag(rev)))
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

// Rev returns the document's current revision from the ETag header of
// a HEAD request, without fetching the body.
func (d *DocumentRef) Rev(ctx context.Context) (string, error) {
	resp, err := d.resource.Head(ctx)
	if err != nil {
		return "", err
	}
	if err := ResponseError(resp); err != nil {
		return "", err
	}
	rev := strings.Trim(resp.Header().Get("ETag"), `"`)
	return rev, resp.Release()
}

// Get fetches the document body (GET /db/docid). Options follow the
// query grammar, so rev, revs, conflicts and friends encode correctly.
func (d *DocumentRef) Get(ctx context.Context, opts ...RequestOption) (Document, error) {
	resp, err := d.resource.Get(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if err := ResponseError(resp); err != nil {
		return nil, err
	}
	var doc Document
	if err := resp.JSON(&doc); err != nil {
		resp.Close()
		return nil, err
	}
	return doc, resp.Release()
}

// OpenRevsResult couples an OpenRevsReader with the response it reads
// from, so releasing the reader also settles the connection.
type OpenRevsResult struct {
	*multipart.OpenRevsReader
	resp *transport.Response
}

// Release exhausts the reader and returns the connection to the pool.
func (r *OpenRevsResult) Release() error {
	if err := r.OpenRevsReader.Release(); err != nil {
		r.resp.Close()
		return err
	}
	return r.resp.Release()
}

// Close aborts without draining.
func (r *OpenRevsResult) Close() error { return r.resp.Close() }

// GetOpenRevs fetches multiple leaf revisions in one round-trip
// (GET /db/docid?open_revs=...). Pass no revs for open_revs=all.
// The caller must Release or Close the result.
func (d *DocumentRef) GetOpenRevs(ctx context.Context, revs []string, opts ...RequestOption) (*OpenRevsResult, error) {
	openRevs := any("all")
	if len(revs) > 0 {
		openRevs = revs
	}
	opts = append(opts,
		WithParam("open_revs", openRevs),
		WithAccept("multipart/mixed, application/json"))
	resp, err := d.resource.Get(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if err := ResponseError(resp); err != nil {
		return nil, err
	}
	reader, err := multipart.NewOpenRevsReader(resp.ContentType(), resp.Stream())
	if err != nil {
		resp.Close()
		return nil, err
	}
	return &OpenRevsResult{OpenRevsReader: reader, resp: resp}, nil
}

// DocAttachmentsResult couples a DocAttachmentsReader with its
// response.
type DocAttachmentsResult struct {
	*multipart.DocAttachmentsReader
	resp *transport.Response
}

// Release exhausts the reader and returns the connection to the pool.
func (r *DocAttachmentsResult) Release() error {
	if err := r.DocAttachmentsReader.Release(); err != nil {
		r.resp.Close()
		return err
	}
	return r.resp.Release()
}

// Close aborts without draining.
func (r *DocAttachmentsResult) Close() error { return r.resp.Close() }

// GetWithAtts fetches the document together with its attachment bodies
// as a multipart/related response (GET /db/docid?attachments=true).
// The caller must Release or Close the result.
func (d *DocumentRef) GetWithAtts(ctx context.Context, opts ...RequestOption) (*DocAttachmentsResult, error) {
	opts = append(opts,
		WithParam("attachments", true),
		WithAccept("multipart/related, application/json"))
	resp, err := d.resource.Get(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if err := ResponseError(resp); err != nil {
		return nil, err
	}
	reader, err := multipart.NewDocAttachmentsReader(resp.ContentType(), resp.Stream())
	if err != nil {
		resp.Close()
		return nil, err
	}
	return &DocAttachmentsResult{DocAttachmentsReader: reader, resp: resp}, nil
}

// UpdateResult is the server's acknowledgment of a write.
type UpdateResult struct {
	ID  string `json:"id"`
	Rev string `json:"rev"`
	OK  bool   `json:"ok"`
}

// Update writes the document (PUT /db/docid). Raw attachment bodies in
// doc["_attachments"] entries under "data" are base64-encoded inline;
// on success the entries are replaced with stubs in the caller's map
// and doc["_rev"] is advanced to the new revision.
func (d *DocumentRef) Update(ctx context.Context, doc Document, opts ...RequestOption) (UpdateResult, error) {
	encoded, err := encodeInlineAttachments(doc)
	if err != nil {
		return UpdateResult{}, err
	}
	opts = append(opts, WithJSONBody(map[string]any(encoded)))
	resp, err := d.resource.Put(ctx, opts...)
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
	if err := resp.Release(); err != nil {
		return UpdateResult{}, err
	}
	doc["_id"] = result.ID
	doc["_rev"] = result.Rev
	stubInlineAttachments(doc)
	return result, nil
}

// Delete removes the document (DELETE /db/docid?rev=...). When
// preserveContent is true the current body is fetched first and
// written back with _deleted set, keeping the fields in the tombstone.
func (d *DocumentRef) Delete(ctx context.Context, rev string, preserveContent bool) (UpdateResult, error) {
	if !preserveContent {
		resp, err := d.resource.Delete(ctx, WithParam("rev", rev))
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
	doc, err := d.Get(ctx, WithParam("rev", rev))
	if err != nil {
		return UpdateResult{}, err
	}
	doc["_deleted"] = true
	return d.Update(ctx, doc, WithParam("rev", rev))
}

// Copy duplicates the document server-side via the COPY verb. destRev
// targets an existing destination revision; leave it empty to create.
func (d *DocumentRef) Copy(ctx context.Context, destID, destRev string, opts ...RequestOption) (UpdateResult, error) {
	dest := destID
	if destRev != "" {
		dest = fmt.Sprintf("%s?rev=%s", destID, destRev)
	}
	opts = append(opts, WithHeader("Destination", dest))
	resp, err := d.resource.Copy(ctx, opts...)
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

func quoteETag(rev string) string {
	if strings.HasPrefix(rev, `"`) {
		return rev
	}
	return `"` + rev + `"`
}

// encodeInlineAttachments returns a shallow copy of doc with raw
// attachment bodies base64-encoded. The caller's map is untouched so a
// failed write leaves the document as it was.
func encodeInlineAttachments(doc Document) (Document, error) {
	atts, ok := doc["_attachments"].(map[string]any)
	if !ok || len(atts) == 0 {
		return doc, nil
	}
	encodedAtts := make(map[string]any, len(atts))
	for name, v := range atts {
		entry, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("attachment %q: entry is not an object", name)
		}
		data, hasData := entry["data"]
		raw, isRaw := data.([]byte)
		if !hasData || !isRaw {
			encodedAtts[name] = entry
			continue
		}
		e := make(map[string]any, len(entry))
		for k, val := range entry {
			e[k] = val
		}
		e["data"] = base64.StdEncoding.EncodeToString(raw)
		encodedAtts[name] = e
	}
	encoded := make(Document, len(doc))
	for k, v := range doc {
		encoded[k] = v
	}
	encoded["_attachments"] = encodedAtts
	return encoded, nil
}

// stubInlineAttachments rewrites inline attachment entries in the
// caller's document as stubs after a successful write.
func stubInlineAttachments(doc Document) {
	atts, ok := doc["_attachments"].(map[string]any)
	if !ok {
		return
	}
	for _, v := range atts {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if _, hasData := entry["data"]; !hasData {
			continue
		}
		delete(entry, "data")
		entry["stub"] = true
	}
}
