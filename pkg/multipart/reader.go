package multipart

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/textproto"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Media types the store is known to emit.
const (
	ContentTypeJSON             = "application/json"
	ContentTypeMultipartMixed   = "multipart/mixed"
	ContentTypeMultipartRelated = "multipart/related"
)

type readerState int

const (
	stateInitial readerState = iota
	stateInPart
	stateExhausted
)

// Reader is a single-pass, forward-only iterator over the parts of one
// multipart body. Next yields one Part at a time and drains whatever the
// caller left unread of the previous part, so the byte offset of the
// underlying stream is always at a part boundary between calls. Once
// exhausted, Next keeps returning io.EOF.
//
// A Reader owns its source exclusively for the duration of one
// traversal and must not be used from multiple goroutines.
type Reader struct {
	stream *Stream

	boundary         string
	nl               []byte // "\r\n" or "\n", adjusted from the first delimiter line
	nlDashBoundary   []byte // nl + "--boundary"
	dashBoundary     []byte // "--boundary"
	dashBoundaryDash []byte // "--boundary--"

	state     readerState
	current   *Part
	partsRead int
}

// NewReader decodes body as a multipart stream framed by boundary.
func NewReader(body io.Reader, boundary string) *Reader {
	b := []byte("\r\n--" + boundary + "--")
	return &Reader{
		stream:           NewStream(body),
		boundary:         boundary,
		nl:               b[:2],
		nlDashBoundary:   b[:len(b)-2],
		dashBoundary:     b[2 : len(b)-2],
		dashBoundaryDash: b[2:],
	}
}

// FromContentType constructs a Reader from a governing Content-Type
// header, extracting the boundary parameter.
func FromContentType(contentType string, body io.Reader) (*Reader, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, parseErrorf("invalid content type %q: %v", contentType, err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return nil, &UnsupportedContentTypeError{ContentType: mediaType}
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, parseErrorf("content type %q carries no boundary", contentType)
	}
	return NewReader(body, boundary), nil
}

// Boundary returns the delimiter token this reader frames parts with.
func (r *Reader) Boundary() string { return r.boundary }

// AtEOF reports whether the closing boundary has been seen.
func (r *Reader) AtEOF() bool { return r.state == stateExhausted }

// Next returns the next part of the body, or io.EOF once the closing
// boundary has been reached. Any unread remainder of the previously
// returned part is drained first.
func (r *Reader) Next() (*Part, error) {
	if r.state == stateExhausted {
		return nil, io.EOF
	}
	if r.current != nil {
		if err := r.current.Discard(); err != nil {
			r.state = stateExhausted
			return nil, err
		}
		r.current = nil
	}

	expectDelimiter := false
	for {
		line, err := r.stream.ReadLine()
		if err != nil {
			r.state = stateExhausted
			if errors.Is(err, io.EOF) {
				return nil, &TruncatedError{Reason: "stream ended before closing boundary"}
			}
			return nil, err
		}
		if r.isFinalDelimiter(line) {
			r.state = stateExhausted
			return nil, io.EOF
		}
		if r.isDelimiter(line) {
			headers, err := readPartHeaders(r.stream)
			if err != nil {
				r.state = stateExhausted
				return nil, err
			}
			r.partsRead++
			r.current = &Part{Header: headers, mr: r}
			r.state = stateInPart
			return r.current, nil
		}
		if expectDelimiter {
			r.state = stateExhausted
			return nil, parseErrorf("expected boundary delimiter, got %q", trimCRLF(line))
		}
		if r.partsRead == 0 {
			// Preamble before the first boundary is skipped by
			// convention.
			continue
		}
		if len(trimCRLF(line)) == 0 {
			// The newline that closed the previous part's body; the
			// delimiter line must follow immediately.
			expectDelimiter = true
			continue
		}
		r.state = stateExhausted
		return nil, parseErrorf("unexpected line between parts: %q", trimCRLF(line))
	}
}

// Release drains all remaining parts and any epilogue, leaving the
// underlying stream fully consumed. Abandoning a reader without calling
// Release leaves the connection mid-body.
func (r *Reader) Release() error {
	for r.state != stateExhausted {
		_, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		// The part itself is drained by the following Next call.
	}
	return r.stream.Drain()
}

// isDelimiter reports whether line is "--boundary" (plus optional
// transport padding). The first delimiter also fixes whether the body
// uses CRLF or bare LF framing.
func (r *Reader) isDelimiter(line []byte) bool {
	if !bytes.HasPrefix(line, r.dashBoundary) {
		return false
	}
	rest := skipPadding(line[len(r.dashBoundary):])
	if len(rest) == 1 && rest[0] == '\n' && len(r.nl) == 2 {
		r.nl = r.nl[1:]
		r.nlDashBoundary = r.nlDashBoundary[1:]
	}
	return bytes.Equal(rest, r.nl)
}

// isFinalDelimiter reports whether line is the closing "--boundary--"
// form, with or without a trailing newline.
func (r *Reader) isFinalDelimiter(line []byte) bool {
	if !bytes.HasPrefix(line, r.dashBoundaryDash) {
		return false
	}
	rest := skipPadding(line[len(r.dashBoundaryDash):])
	return len(rest) == 0 || bytes.Equal(rest, r.nl)
}

func skipPadding(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}
	return b
}

// Part is one framed section of a multipart body: its headers plus a
// bounded byte stream ending at the enclosing boundary. It is owned by
// the Reader that produced it until yielded, then by the caller until
// consumed or discarded.
type Part struct {
	Header textproto.MIMEHeader

	mr       *Reader
	n        int   // bytes known to belong to the part body in the buffer
	total    int64 // body bytes consumed so far
	err      error // sticky terminal state, io.EOF once the body ended
	readErr  error // sticky error from the underlying stream
	consumed bool
}

// Read implements io.Reader over the part body, stopping at the
// enclosing boundary. The boundary bytes themselves are never returned.
func (p *Part) Read(d []byte) (int, error) {
	br := p.mr.stream.br
	for p.n == 0 && p.err == nil {
		peek, _ := br.Peek(br.Buffered())
		p.n, p.err = scanBodyForBoundary(peek, p.mr.dashBoundary, p.mr.nlDashBoundary, p.total, p.readErr)
		if p.n == 0 && p.err == nil {
			// Nothing conclusive buffered; pull more from the stream.
			_, p.readErr = br.Peek(len(peek) + 1)
			if p.readErr == io.EOF {
				// The body may not end before the boundary.
				p.readErr = &TruncatedError{Reason: "stream ended before part boundary"}
			}
		}
	}
	if p.n == 0 {
		if p.err == io.EOF {
			p.consumed = true
		}
		return 0, p.err
	}
	n := len(d)
	if n > p.n {
		n = p.n
	}
	n, _ = br.Read(d[:n])
	p.total += int64(n)
	p.n -= n
	if p.n == 0 {
		if p.err == io.EOF {
			p.consumed = true
		}
		return n, p.err
	}
	return n, nil
}

// Discard drains the remainder of the part body so the reader can
// advance to the next boundary.
func (p *Part) Discard() error {
	if p.consumed {
		return nil
	}
	_, err := io.Copy(io.Discard, p)
	if err != nil && err != io.EOF {
		return err
	}
	return nil
}

// Consumed reports whether the body has been fully read or discarded.
func (p *Part) Consumed() bool { return p.consumed }

// ContentType returns the part's media type without parameters, or the
// empty string.
func (p *Part) ContentType() string {
	ct := p.Header.Get(HeaderContentType)
	if ct == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ct
	}
	return mediaType
}

// IsMultipart reports whether the part's own content type is a
// multipart type, meaning SubReader can decode it further.
func (p *Part) IsMultipart() bool {
	return strings.HasPrefix(p.ContentType(), "multipart/")
}

// SubReader wraps the part body in a fresh Reader framed by the part's
// own boundary. Nesting is explicit at the call site: a caller that does
// not need the nested structure can read the body as opaque bytes
// instead.
func (p *Part) SubReader() (*Reader, error) {
	ct := p.Header.Get(HeaderContentType)
	mediaType, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return nil, parseErrorf("invalid part content type %q: %v", ct, err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return nil, &UnsupportedContentTypeError{ContentType: mediaType}
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, parseErrorf("part content type %q carries no boundary", ct)
	}
	return NewReader(p, boundary), nil
}

// JSON decodes the entire part body as JSON into v.
func (p *Part) JSON(v any) error {
	data, err := io.ReadAll(p)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return parseErrorf("invalid JSON part body: %v", err)
	}
	return nil
}

// Filename returns the filename parameter of the Content-Disposition
// header, or the empty string.
func (p *Part) Filename() string {
	cd := p.Header.Get(HeaderContentDisposition)
	if cd == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(cd)
	if err != nil {
		return ""
	}
	return params["filename"]
}

// Len returns the declared Content-Length of the part body, or -1 when
// no length was declared. A negative or non-numeric declaration is a
// ParseError.
func (p *Part) Len() (int64, error) {
	cl := p.Header.Get(HeaderContentLength)
	if cl == "" {
		return -1, nil
	}
	n, err := strconv.ParseInt(cl, 10, 64)
	if err != nil {
		return 0, parseErrorf("invalid Content-Length %q", cl)
	}
	if n < 0 {
		return 0, parseErrorf("negative Content-Length %d", n)
	}
	return n, nil
}

// Encoding returns the part's Content-Encoding, surfaced as transmitted
// so the caller can decide on transparent decompression.
func (p *Part) Encoding() string {
	return p.Header.Get(HeaderContentEncoding)
}

// scanBodyForBoundary inspects buffered bytes and reports how many may
// be returned as part body. err is io.EOF when the boundary terminating
// the part begins right after those bytes, and nil when more data is
// needed to decide. total tracks how much body has been consumed so a
// boundary with no preceding newline is only honored at offset zero.
func scanBodyForBoundary(buf, dashBoundary, nlDashBoundary []byte, total int64, readErr error) (int, error) {
	if total == 0 {
		// An empty body puts the delimiter immediately after the
		// header block, with no newline of its own.
		if bytes.HasPrefix(buf, dashBoundary) {
			switch matchAfterPrefix(buf, dashBoundary, readErr) {
			case -1:
				return len(dashBoundary), nil
			case 0:
				return 0, nil
			case +1:
				return 0, io.EOF
			}
		}
		if bytes.HasPrefix(dashBoundary, buf) {
			return 0, readErr
		}
	}

	if i := bytes.Index(buf, nlDashBoundary); i >= 0 {
		switch matchAfterPrefix(buf[i:], nlDashBoundary, readErr) {
		case -1:
			return i + len(nlDashBoundary), nil
		case 0:
			return i, nil
		case +1:
			return i, io.EOF
		}
	}
	if bytes.HasPrefix(nlDashBoundary, buf) {
		return 0, readErr
	}

	// The boundary may begin in the trailing bytes; hold them back
	// until more data arrives.
	i := bytes.LastIndexByte(buf, nlDashBoundary[0])
	if i >= 0 && bytes.HasPrefix(nlDashBoundary, buf[i:]) {
		return i, nil
	}
	return len(buf), readErr
}

// matchAfterPrefix reports whether buf, which begins with prefix,
// continues in a way that confirms (+1), rules out (-1), or cannot yet
// decide (0) a boundary match.
func matchAfterPrefix(buf, prefix []byte, readErr error) int {
	if len(buf) == len(prefix) {
		if readErr != nil {
			return +1
		}
		return 0
	}
	c := buf[len(prefix)]
	if c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '-' {
		return +1
	}
	return -1
}
