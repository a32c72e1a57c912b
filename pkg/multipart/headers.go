package multipart

import (
	"bytes"
	"errors"
	"io"
	"net/textproto"
	"strings"
)

// Recognized part headers. The store emits only this subset; anything
// else is kept verbatim but has no dedicated accessor.
const (
	HeaderContentType        = "Content-Type"
	HeaderContentDisposition = "Content-Disposition"
	HeaderContentLength      = "Content-Length"
	HeaderContentEncoding    = "Content-Encoding"
)

// readPartHeaders consumes "Name: value" lines up to and including the
// blank line that ends the header block. Duplicate headers keep the last
// value. The caller is expected to have consumed the boundary delimiter
// line already.
func readPartHeaders(s *Stream) (textproto.MIMEHeader, error) {
	h := make(textproto.MIMEHeader)
	for {
		line, err := s.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, &TruncatedError{Reason: "stream ended inside part headers"}
			}
			return nil, err
		}
		if !bytes.HasSuffix(line, []byte("\n")) {
			// Trailing unterminated line: the block never reached its
			// blank-line terminator.
			return nil, &TruncatedError{Reason: "stream ended inside part headers"}
		}
		trimmed := trimCRLF(line)
		if len(trimmed) == 0 {
			return h, nil
		}
		name, value, ok := bytes.Cut(trimmed, []byte(":"))
		if !ok {
			return nil, parseErrorf("malformed header line %q", trimmed)
		}
		h.Set(strings.TrimSpace(string(name)), strings.TrimSpace(string(value)))
	}
}

func trimCRLF(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}
