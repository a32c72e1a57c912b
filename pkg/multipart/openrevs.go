package multipart

import (
	"io"
	"mime"
)

// OpenRevsReader consumes a "list of open revisions" response. The top
// envelope is multipart/mixed with one part per revision, or plain
// application/json when the server collapsed the answer to a single
// revision. Each revision is either a bare JSON document or a
// multipart/related envelope pairing the document with its attachment
// parts.
type OpenRevsReader struct {
	reader *Reader
	stream *Stream // set instead of reader for the plain-JSON case
	done   bool
}

// NewOpenRevsReader constructs a reader from the response Content-Type
// and body stream.
func NewOpenRevsReader(contentType string, body io.Reader) (*OpenRevsReader, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, parseErrorf("invalid content type %q: %v", contentType, err)
	}
	switch mediaType {
	case ContentTypeJSON:
		return &OpenRevsReader{stream: NewStream(body)}, nil
	case ContentTypeMultipartMixed:
		boundary := params["boundary"]
		if boundary == "" {
			return nil, parseErrorf("content type %q carries no boundary", contentType)
		}
		return &OpenRevsReader{reader: NewReader(body, boundary)}, nil
	default:
		return nil, &UnsupportedContentTypeError{ContentType: mediaType}
	}
}

// Next returns the next revision as a document plus, when the revision
// was transmitted with attachments, a nested Reader positioned at its
// first attachment part. The nested reader must be consumed or
// abandoned before the following Next call. At the end of the response
// Next returns (nil, nil, io.EOF), idempotently.
func (o *OpenRevsReader) Next() (Document, *Reader, error) {
	if o.done {
		return nil, nil, io.EOF
	}
	if o.stream != nil {
		return o.nextFromJSON()
	}

	part, err := o.reader.Next()
	if err == io.EOF {
		o.done = true
		return nil, nil, io.EOF
	}
	if err != nil {
		o.done = true
		return nil, nil, err
	}

	if part.IsMultipart() {
		sub, err := part.SubReader()
		if err != nil {
			return nil, nil, err
		}
		first, err := sub.Next()
		if err == io.EOF {
			return nil, nil, parseErrorf("revision envelope contains no document part")
		}
		if err != nil {
			return nil, nil, err
		}
		var doc Document
		if err := first.JSON(&doc); err != nil {
			return nil, nil, err
		}
		return doc, sub, nil
	}

	switch ct := part.ContentType(); ct {
	case "", ContentTypeJSON:
	default:
		return nil, nil, &UnsupportedContentTypeError{ContentType: ct}
	}
	var doc Document
	if err := part.JSON(&doc); err != nil {
		return nil, nil, err
	}
	return doc, nil, nil
}

// nextFromJSON handles the degenerate single-revision response whose
// whole body is one JSON document.
func (o *OpenRevsReader) nextFromJSON() (Document, *Reader, error) {
	raw, err := io.ReadAll(o.stream)
	if err != nil {
		o.done = true
		return nil, nil, err
	}
	o.done = true
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, nil, err
	}
	return doc, nil, nil
}

// AtEOF reports whether the whole response has been traversed.
func (o *OpenRevsReader) AtEOF() bool {
	if o.done {
		return true
	}
	if o.reader != nil {
		return o.reader.AtEOF()
	}
	return false
}

// Release drains everything remaining on the response so the
// connection is left in a reusable state.
func (o *OpenRevsReader) Release() error {
	o.done = true
	if o.reader != nil {
		return o.reader.Release()
	}
	return o.stream.Drain()
}
