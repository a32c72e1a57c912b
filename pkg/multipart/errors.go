package multipart

import "fmt"

// ParseError reports malformed multipart framing: a bad boundary line,
// a header line without a colon, or a stub/part count mismatch. It is
// never retried; a half-consumed multipart stream cannot be resumed.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "multipart: " + e.Reason
}

func parseErrorf(format string, args ...any) *ParseError {
	return &ParseError{Reason: fmt.Sprintf(format, args...)}
}

// TruncatedError reports that the underlying stream ended before a
// declared length or a terminating boundary was seen.
type TruncatedError struct {
	Reason string
	Cause  error
}

func (e *TruncatedError) Error() string {
	if e.Reason != "" {
		return "multipart: truncated stream: " + e.Reason
	}
	return "multipart: truncated stream"
}

func (e *TruncatedError) Unwrap() error { return e.Cause }

// UnsupportedContentTypeError reports a top-level Content-Type that is
// neither a recognized multipart type nor application/json. No partial
// decode is attempted.
type UnsupportedContentTypeError struct {
	ContentType string
}

func (e *UnsupportedContentTypeError) Error() string {
	return "multipart: unsupported content type " + e.ContentType
}
