package multipart

import (
	"bufio"
	"errors"
	"io"
)

// defaultChunkSize is the read size used when a caller does not bound a
// chunked read.
const defaultChunkSize = 8192

// Stream exposes boundary-friendly reads over a raw response body. The
// transport has already resolved its own framing (content-length,
// chunked encoding, or read-to-close), so Stream only has to deliver
// bytes, lines, and an end-of-stream answer. A short body under a
// declared Content-Length surfaces as a TruncatedError.
//
// A Stream is single-reader; it must not be used from multiple
// goroutines.
type Stream struct {
	br  *bufio.Reader
	eof bool
}

// NewStream wraps r for boundary-aware reading.
func NewStream(r io.Reader) *Stream {
	return &Stream{br: bufio.NewReader(r)}
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	if s.eof {
		return 0, io.EOF
	}
	n, err := s.br.Read(p)
	switch {
	case err == io.EOF:
		s.eof = true
	case err != nil:
		err = streamErr(err)
	}
	return n, err
}

// ReadChunk returns up to max bytes. It performs at most one read
// against the underlying transport beyond what is already buffered, so
// it never blocks waiting to fill a whole chunk. max <= 0 selects the
// default chunk size. At end of stream it returns (nil, io.EOF).
func (s *Stream) ReadChunk(max int) ([]byte, error) {
	if s.eof {
		return nil, io.EOF
	}
	if max <= 0 {
		max = defaultChunkSize
	}
	buf := make([]byte, max)
	n, err := s.br.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err == io.EOF {
		s.eof = true
		return nil, io.EOF
	}
	if err == nil {
		// bufio only returns (0, nil) for an empty read from the
		// underlying reader; treat it as end of stream.
		s.eof = true
		return nil, io.EOF
	}
	return nil, streamErr(err)
}

// ReadLine returns the next line including its terminator. A trailing
// line without a terminator is returned as-is; the next call reports
// io.EOF. At end of stream it returns (nil, io.EOF).
func (s *Stream) ReadLine() ([]byte, error) {
	if s.eof {
		return nil, io.EOF
	}
	line, err := s.br.ReadBytes('\n')
	if err == io.EOF {
		s.eof = true
		if len(line) == 0 {
			return nil, io.EOF
		}
		return line, nil
	}
	if err != nil {
		return nil, streamErr(err)
	}
	return line, nil
}

// AtEOF reports whether the stream has been exhausted. It may perform a
// non-consuming read against the transport to find out.
func (s *Stream) AtEOF() bool {
	if s.eof {
		return true
	}
	if _, err := s.br.Peek(1); err == io.EOF {
		s.eof = true
	}
	return s.eof
}

// Drain consumes and discards everything remaining on the stream.
func (s *Stream) Drain() error {
	if s.eof {
		return nil
	}
	_, err := io.Copy(io.Discard, s.br)
	s.eof = true
	if err != nil {
		return streamErr(err)
	}
	return nil
}

// streamErr classifies low-level read failures. A connection that closes
// short of its declared length arrives as io.ErrUnexpectedEOF from
// net/http; everything else passes through unchanged so the caller's
// retry logic keeps the original error classification.
func streamErr(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return &TruncatedError{Cause: err}
	}
	return err
}
