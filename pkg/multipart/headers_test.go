package multipart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPartHeaders(t *testing.T) {
	s := NewStream(strings.NewReader(
		"Content-Type: application/json\r\n" +
			"Content-Length: 14\r\n" +
			"\r\n" +
			"body follows"))

	h, err := readPartHeaders(s)
	require.NoError(t, err)
	assert.Equal(t, "application/json", h.Get(HeaderContentType))
	assert.Equal(t, "14", h.Get(HeaderContentLength))

	// The blank line is consumed; the body is untouched.
	line, err := s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "body follows", string(line))
}

func TestReadPartHeaders_BareLF(t *testing.T) {
	s := NewStream(strings.NewReader("Content-Type: text/plain\n\n"))

	h, err := readPartHeaders(s)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", h.Get(HeaderContentType))
}

func TestReadPartHeaders_DuplicateKeepsLast(t *testing.T) {
	s := NewStream(strings.NewReader(
		"Content-Encoding: identity\r\n" +
			"Content-Encoding: gzip\r\n" +
			"\r\n"))

	h, err := readPartHeaders(s)
	require.NoError(t, err)
	assert.Equal(t, "gzip", h.Get(HeaderContentEncoding))
}

func TestReadPartHeaders_ValueWhitespaceTrimmed(t *testing.T) {
	s := NewStream(strings.NewReader("Content-Type:   text/plain  \r\n\r\n"))

	h, err := readPartHeaders(s)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", h.Get(HeaderContentType))
}

func TestReadPartHeaders_MissingColon(t *testing.T) {
	s := NewStream(strings.NewReader("not a header line\r\n\r\n"))

	_, err := readPartHeaders(s)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestReadPartHeaders_TruncatedBlock(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"ends mid headers", "Content-Type: text/plain\r\n"},
		{"unterminated line", "Content-Type: text"},
		{"empty stream", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStream(strings.NewReader(tt.body))
			_, err := readPartHeaders(s)
			var truncated *TruncatedError
			require.ErrorAs(t, err, &truncated)
		})
	}
}
