package multipart

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRevsReader_MixedWithNestedAttachments(t *testing.T) {
	inner := body(
		"--inner",
		"Content-Type: application/json",
		"",
		`{"_id":"foo","_rev":"2-bbb","_attachments":{"a.txt":{"content_type":"text/plain","follows":true}}}`,
		"--inner",
		"Content-Disposition: attachment; filename=\"a.txt\"",
		"",
		"some data",
		"--inner--")
	wire := body(
		"--outer",
		"Content-Type: multipart/related; boundary=inner",
		"",
		inner,
		"--outer",
		"Content-Type: application/json",
		"",
		`{"_id":"foo","_rev":"1-aaa"}`,
		"--outer--",
		"")

	r, err := NewOpenRevsReader("multipart/mixed; boundary=outer", strings.NewReader(wire))
	require.NoError(t, err)

	// First revision arrives with an attachment envelope.
	doc, sub, err := r.Next()
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "foo", doc.ID())
	assert.Equal(t, "2-bbb", doc.Rev())

	attPart, err := sub.Next()
	require.NoError(t, err)
	assert.Equal(t, "a.txt", attPart.Filename())
	data, err := io.ReadAll(attPart)
	require.NoError(t, err)
	assert.Equal(t, "some data", string(data))

	_, err = sub.Next()
	assert.Equal(t, io.EOF, err)

	// Second revision is a bare document.
	doc, sub, err = r.Next()
	require.NoError(t, err)
	assert.Nil(t, sub)
	assert.Equal(t, "1-aaa", doc.Rev())

	_, _, err = r.Next()
	assert.Equal(t, io.EOF, err)
	assert.True(t, r.AtEOF())

	// Terminal and idempotent.
	_, _, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestOpenRevsReader_AbandonedSubReaderIsDrained(t *testing.T) {
	inner := body(
		"--inner",
		"Content-Type: application/json",
		"",
		`{"_id":"foo","_rev":"2-bbb"}`,
		"--inner",
		"",
		"attachment bytes the caller skips",
		"--inner--")
	wire := body(
		"--outer",
		"Content-Type: multipart/related; boundary=inner",
		"",
		inner,
		"--outer",
		"Content-Type: application/json",
		"",
		`{"_id":"foo","_rev":"1-aaa"}`,
		"--outer--",
		"")

	r, err := NewOpenRevsReader("multipart/mixed; boundary=outer", strings.NewReader(wire))
	require.NoError(t, err)

	_, sub, err := r.Next()
	require.NoError(t, err)
	require.NotNil(t, sub)

	// Ignore the nested reader entirely; the outer Next must still
	// land on the second revision.
	doc, sub, err := r.Next()
	require.NoError(t, err)
	assert.Nil(t, sub)
	assert.Equal(t, "1-aaa", doc.Rev())
}

func TestOpenRevsReader_DegenerateJSON(t *testing.T) {
	r, err := NewOpenRevsReader("application/json", strings.NewReader(`{"_id":"foo"}`))
	require.NoError(t, err)

	doc, sub, err := r.Next()
	require.NoError(t, err)
	assert.Nil(t, sub)
	assert.Equal(t, "foo", doc.ID())

	_, _, err = r.Next()
	assert.Equal(t, io.EOF, err)
	assert.True(t, r.AtEOF())
}

func TestOpenRevsReader_UnsupportedContentType(t *testing.T) {
	_, err := NewOpenRevsReader("text/html", strings.NewReader(""))
	var unsupported *UnsupportedContentTypeError
	require.ErrorAs(t, err, &unsupported)
}

func TestOpenRevsReader_MissingBoundary(t *testing.T) {
	_, err := NewOpenRevsReader("multipart/mixed", strings.NewReader(""))
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestOpenRevsReader_UnsupportedPartType(t *testing.T) {
	wire := body(
		"--outer",
		"Content-Type: text/html",
		"",
		"<html></html>",
		"--outer--",
		"")

	r, err := NewOpenRevsReader("multipart/mixed; boundary=outer", strings.NewReader(wire))
	require.NoError(t, err)

	_, _, err = r.Next()
	var unsupported *UnsupportedContentTypeError
	require.ErrorAs(t, err, &unsupported)
}

func TestOpenRevsReader_EmptyEnvelope(t *testing.T) {
	inner := body(
		"--inner--")
	wire := body(
		"--outer",
		"Content-Type: multipart/related; boundary=inner",
		"",
		inner,
		"--outer--",
		"")

	r, err := NewOpenRevsReader("multipart/mixed; boundary=outer", strings.NewReader(wire))
	require.NoError(t, err)

	_, _, err = r.Next()
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestOpenRevsReader_Release(t *testing.T) {
	wire := body(
		"--outer",
		"Content-Type: application/json",
		"",
		`{"_id":"foo"}`,
		"--outer--",
		"")

	r, err := NewOpenRevsReader("multipart/mixed; boundary=outer", strings.NewReader(wire))
	require.NoError(t, err)
	require.NoError(t, r.Release())
	assert.True(t, r.AtEOF())

	_, _, err = r.Next()
	assert.Equal(t, io.EOF, err)
}
