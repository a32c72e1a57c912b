package multipart

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// Document is one decoded JSON document. The JSON object's key order is
// not preserved by the map; where order matters (attachment stubs) the
// raw bytes are token-scanned separately.
type Document map[string]any

// ID returns the _id field, or the empty string.
func (d Document) ID() string {
	s, _ := d["_id"].(string)
	return s
}

// Rev returns the _rev field, or the empty string.
func (d Document) Rev() string {
	s, _ := d["_rev"].(string)
	return s
}

// Deleted reports whether the document carries the _deleted tombstone.
func (d Document) Deleted() bool {
	b, _ := d["_deleted"].(bool)
	return b
}

// Attachments returns the _attachments sub-mapping, or nil.
func (d Document) Attachments() map[string]any {
	atts, _ := d["_attachments"].(map[string]any)
	return atts
}

// AttachmentData returns the raw bytes stored for a named attachment
// after a DocAttachmentsReader drain, or (nil, false).
func (d Document) AttachmentData(name string) ([]byte, bool) {
	entry, _ := d.Attachments()[name].(map[string]any)
	if entry == nil {
		return nil, false
	}
	data, ok := entry["data"].([]byte)
	return data, ok
}

// Stub describes one attachment referenced from document metadata
// without its bytes inlined.
type Stub struct {
	Name          string
	ContentType   string
	Length        int64
	EncodedLength int64
	Digest        string
	Encoding      string
	Follows       bool
}

func stubFromEntry(name string, entry map[string]any) Stub {
	s := Stub{Name: name}
	s.ContentType, _ = entry["content_type"].(string)
	s.Digest, _ = entry["digest"].(string)
	s.Encoding, _ = entry["encoding"].(string)
	s.Follows, _ = entry["follows"].(bool)
	if n, ok := entry["length"].(float64); ok {
		s.Length = int64(n)
	}
	if n, ok := entry["encoded_length"].(float64); ok {
		s.EncodedLength = int64(n)
	}
	return s
}

// attachmentOrder walks the raw JSON of a document and returns the
// _attachments keys in declaration order. The wire format matches
// transmitted parts to stubs purely by position, so the order of the
// serialized object is load-bearing.
func attachmentOrder(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	t, err := dec.Token()
	if err != nil {
		return nil, parseErrorf("invalid document JSON: %v", err)
	}
	if d, ok := t.(json.Delim); !ok || d != '{' {
		return nil, parseErrorf("document JSON is not an object")
	}
	for dec.More() {
		t, err := dec.Token()
		if err != nil {
			return nil, parseErrorf("invalid document JSON: %v", err)
		}
		key, ok := t.(string)
		if !ok {
			return nil, parseErrorf("invalid document JSON: non-string key %v", t)
		}
		if key != "_attachments" {
			if err := skipJSONValue(dec); err != nil {
				return nil, err
			}
			continue
		}
		t, err = dec.Token()
		if err != nil {
			return nil, parseErrorf("invalid _attachments value: %v", err)
		}
		if d, ok := t.(json.Delim); !ok || d != '{' {
			return nil, parseErrorf("_attachments is not an object")
		}
		var names []string
		for dec.More() {
			t, err := dec.Token()
			if err != nil {
				return nil, parseErrorf("invalid _attachments entry: %v", err)
			}
			name, ok := t.(string)
			if !ok {
				return nil, parseErrorf("invalid _attachments entry key %v", t)
			}
			names = append(names, name)
			if err := skipJSONValue(dec); err != nil {
				return nil, err
			}
		}
		return names, nil
	}
	return nil, nil
}

// skipJSONValue consumes one value, descending through nested
// containers.
func skipJSONValue(dec *json.Decoder) error {
	t, err := dec.Token()
	if err != nil {
		return parseErrorf("invalid document JSON: %v", err)
	}
	d, ok := t.(json.Delim)
	if !ok || (d != '{' && d != '[') {
		return nil
	}
	depth := 1
	for depth > 0 {
		t, err := dec.Token()
		if err != nil {
			return parseErrorf("invalid document JSON: %v", err)
		}
		if d, ok := t.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}

// decodeDocument unmarshals raw bytes into a Document.
func decodeDocument(raw []byte) (Document, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, parseErrorf("invalid document JSON: %v", err)
	}
	return doc, nil
}

func (s Stub) String() string {
	return fmt.Sprintf("%s (%s, %d bytes)", s.Name, s.ContentType, s.Length)
}
