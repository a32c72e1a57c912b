package multipart

import (
	"io"
	"mime"
)

// DocAttachmentsReader consumes a "document with inlined attachments"
// response: a multipart/related body whose first part is the JSON
// document metadata and whose remaining parts carry raw attachment
// bytes, one per stub, in stub declaration order. A plain
// application/json response (no attachments transmitted) is the
// degenerate case.
//
// The wire format carries no explicit index linking parts to stubs;
// matching is positional by convention, and any count mismatch is
// treated as a ParseError rather than risking misattributed bytes.
type DocAttachmentsReader struct {
	reader *Reader
	stream *Stream // set instead of reader for the plain-JSON case

	doc    Document
	order  []string // stub names expecting a body part, in declaration order
	loaded bool
	served int
	done   bool
}

// NewDocAttachmentsReader constructs a reader from the response
// Content-Type and body stream.
func NewDocAttachmentsReader(contentType string, body io.Reader) (*DocAttachmentsReader, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, parseErrorf("invalid content type %q: %v", contentType, err)
	}
	switch mediaType {
	case ContentTypeJSON:
		return &DocAttachmentsReader{stream: NewStream(body)}, nil
	case ContentTypeMultipartRelated:
		boundary := params["boundary"]
		if boundary == "" {
			return nil, parseErrorf("content type %q carries no boundary", contentType)
		}
		return &DocAttachmentsReader{reader: NewReader(body, boundary)}, nil
	default:
		return nil, &UnsupportedContentTypeError{ContentType: mediaType}
	}
}

// Document returns the decoded metadata document, reading the first
// part if it has not been read yet. Attachment bytes are not consumed.
func (d *DocAttachmentsReader) Document() (Document, error) {
	if err := d.load(); err != nil {
		return nil, err
	}
	return d.doc, nil
}

// load reads the metadata part and derives the positional stub order
// from its raw JSON.
func (d *DocAttachmentsReader) load() error {
	if d.loaded {
		return nil
	}
	var raw []byte
	if d.stream != nil {
		data, err := io.ReadAll(d.stream)
		if err != nil {
			return err
		}
		raw = data
		d.done = true
	} else {
		part, err := d.reader.Next()
		if err == io.EOF {
			return parseErrorf("response contains no document part")
		}
		if err != nil {
			return err
		}
		switch ct := part.ContentType(); ct {
		case "", ContentTypeJSON:
		default:
			return &UnsupportedContentTypeError{ContentType: ct}
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return err
		}
		raw = data
	}

	doc, err := decodeDocument(raw)
	if err != nil {
		return err
	}
	d.doc = doc
	d.loaded = true
	if d.stream != nil {
		return nil
	}

	names, err := attachmentOrder(raw)
	if err != nil {
		return err
	}
	// Only stubs marked follows:true have a body part on the wire;
	// when the server sends no follows flags at all, every declared
	// stub is transmitted.
	atts := doc.Attachments()
	var following []string
	anyFollows := false
	for _, name := range names {
		entry, _ := atts[name].(map[string]any)
		if entry == nil {
			continue
		}
		if follows, _ := entry["follows"].(bool); follows {
			anyFollows = true
			following = append(following, name)
		}
	}
	if anyFollows {
		d.order = following
	} else {
		d.order = names
	}
	return nil
}

// Next returns the next attachment part together with the stub name it
// corresponds to positionally. io.EOF marks the end, idempotently. More
// parts than declared stubs, or a terminating boundary while stubs
// still await their bytes, is a ParseError.
func (d *DocAttachmentsReader) Next() (string, *Part, error) {
	if err := d.load(); err != nil {
		return "", nil, err
	}
	if d.done {
		return "", nil, io.EOF
	}
	part, err := d.reader.Next()
	if err == io.EOF {
		d.done = true
		if d.served < len(d.order) {
			return "", nil, parseErrorf("response ended after %d attachment parts, %d stubs declared",
				d.served, len(d.order))
		}
		return "", nil, io.EOF
	}
	if err != nil {
		d.done = true
		return "", nil, err
	}
	if d.served >= len(d.order) {
		d.done = true
		return "", nil, parseErrorf("attachment part without a matching stub (only %d declared)", len(d.order))
	}
	name := d.order[d.served]
	d.served++
	return name, part, nil
}

// Stub returns the descriptor declared for the named attachment.
func (d *DocAttachmentsReader) Stub(name string) (Stub, bool) {
	entry, _ := d.doc.Attachments()[name].(map[string]any)
	if entry == nil {
		return Stub{}, false
	}
	return stubFromEntry(name, entry), true
}

// ReadDocument drains every remaining attachment part, stores its bytes
// under the matching stub's "data" key, and returns the completed
// document. Draining happens even if the caller only wants metadata, so
// the connection is left in a consistent state.
func (d *DocAttachmentsReader) ReadDocument() (Document, error) {
	for {
		name, part, err := d.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return nil, err
		}
		if entry, ok := d.doc.Attachments()[name].(map[string]any); ok {
			entry["data"] = data
			delete(entry, "follows")
			delete(entry, "stub")
		}
	}
	return d.doc, nil
}

// AtEOF reports whether the whole response has been traversed.
func (d *DocAttachmentsReader) AtEOF() bool {
	return d.done
}

// Release drains the remainder of the response without decoding it.
func (d *DocAttachmentsReader) Release() error {
	d.done = true
	if d.reader != nil {
		return d.reader.Release()
	}
	return d.stream.Drain()
}
