package multipart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentAccessors(t *testing.T) {
	doc := Document{
		"_id":      "foo",
		"_rev":     "3-ccc",
		"_deleted": true,
		"_attachments": map[string]any{
			"a.txt": map[string]any{"data": []byte("bytes")},
		},
	}

	assert.Equal(t, "foo", doc.ID())
	assert.Equal(t, "3-ccc", doc.Rev())
	assert.True(t, doc.Deleted())

	data, ok := doc.AttachmentData("a.txt")
	require.True(t, ok)
	assert.Equal(t, []byte("bytes"), data)

	_, ok = doc.AttachmentData("missing")
	assert.False(t, ok)
}

func TestDocumentAccessors_Empty(t *testing.T) {
	doc := Document{}
	assert.Empty(t, doc.ID())
	assert.Empty(t, doc.Rev())
	assert.False(t, doc.Deleted())
	assert.Nil(t, doc.Attachments())
}

func TestAttachmentOrder(t *testing.T) {
	// The declaration order in the serialized object is load-bearing;
	// decoding into a map would scramble it.
	raw := []byte(`{
		"_id": "foo",
		"nested": {"_attachments": {"decoy": {}}},
		"list": [1, {"x": [2, 3]}, "s"],
		"_attachments": {
			"zebra.txt": {"follows": true},
			"alpha.txt": {"follows": true},
			"middle.bin": {"follows": true}
		}
	}`)

	names, err := attachmentOrder(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"zebra.txt", "alpha.txt", "middle.bin"}, names)
}

func TestAttachmentOrder_NoAttachments(t *testing.T) {
	names, err := attachmentOrder([]byte(`{"_id":"foo"}`))
	require.NoError(t, err)
	assert.Nil(t, names)
}

func TestAttachmentOrder_NotAnObject(t *testing.T) {
	_, err := attachmentOrder([]byte(`[1,2,3]`))
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)

	_, err = attachmentOrder([]byte(`{broken`))
	require.Error(t, err)
}

func TestStubFromEntry(t *testing.T) {
	entry := map[string]any{
		"content_type":   "application/gzip",
		"length":         float64(120),
		"encoded_length": float64(90),
		"digest":         "md5-abcdef",
		"encoding":       "gzip",
		"follows":        true,
	}

	s := stubFromEntry("logs.gz", entry)
	assert.Equal(t, "logs.gz", s.Name)
	assert.Equal(t, "application/gzip", s.ContentType)
	assert.Equal(t, int64(120), s.Length)
	assert.Equal(t, int64(90), s.EncodedLength)
	assert.Equal(t, "md5-abcdef", s.Digest)
	assert.Equal(t, "gzip", s.Encoding)
	assert.True(t, s.Follows)
}

func TestDecodeDocument(t *testing.T) {
	doc, err := decodeDocument([]byte(`{"_id":"foo"}`))
	require.NoError(t, err)
	assert.Equal(t, "foo", doc.ID())

	doc, err = decodeDocument(nil)
	require.NoError(t, err)
	assert.Nil(t, doc)

	_, err = decodeDocument([]byte(`not json`))
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}
