package couch

import (
	"io"

	"github.com/futonlabs/couchstream/pkg/compression"
	"github.com/futonlabs/couchstream/pkg/multipart"
	"github.com/futonlabs/couchstream/pkg/transport"
)

// readAllChunkSize is the internal chunk size ReadAll accumulates with.
const readAllChunkSize = 8192

// AttachmentReader is a byte-stream reader over attachment content,
// sourced either from one multipart part or from a whole response body.
// Attachments are forward-only streams over a live connection: the
// reader is readable, not writable, not seekable. Reads must come from
// a single goroutine; issuing a new read before a previous one returns
// is a caller error.
type AttachmentReader struct {
	stream  *multipart.Stream
	abort   func() error
	decoder io.Closer
}

// NewAttachmentReader wraps a whole response body, typically a direct
// attachment GET. Closing before exhaustion aborts the connection.
func NewAttachmentReader(resp *transport.Response) *AttachmentReader {
	return &AttachmentReader{
		stream: resp.Stream(),
		abort:  resp.Close,
	}
}

// NewPartAttachmentReader wraps one multipart part. Closing before
// exhaustion drains the part so the enclosing reader can advance.
func NewPartAttachmentReader(part *multipart.Part) *AttachmentReader {
	return &AttachmentReader{
		stream: multipart.NewStream(part),
		abort:  part.Discard,
	}
}

// NewDecodedAttachmentReader wraps a whole response body and, when the
// response carries Content-Encoding: gzip, inflates it on the fly.
// Any other encoding passes through unchanged.
func NewDecodedAttachmentReader(resp *transport.Response) (*AttachmentReader, error) {
	encoding := resp.Header().Get("Content-Encoding")
	decoded, closer, err := compression.NewStreamReader(encoding, resp.Stream())
	if err != nil {
		resp.Close()
		return nil, err
	}
	return &AttachmentReader{
		stream:  multipart.NewStream(decoded),
		abort:   resp.Close,
		decoder: closer,
	}, nil
}

// NewDecodedPartAttachmentReader wraps one multipart part, inflating
// its body when the part headers declare Content-Encoding: gzip.
func NewDecodedPartAttachmentReader(part *multipart.Part) (*AttachmentReader, error) {
	decoded, closer, err := compression.NewStreamReader(part.Encoding(), part)
	if err != nil {
		return nil, err
	}
	return &AttachmentReader{
		stream:  multipart.NewStream(decoded),
		abort:   part.Discard,
		decoder: closer,
	}, nil
}

// Read implements io.Reader.
func (a *AttachmentReader) Read(p []byte) (int, error) {
	return a.stream.Read(p)
}

// ReadChunk returns up to n bytes, possibly fewer if the underlying
// stream yields a short chunk; it never blocks for more than one
// underlying read. A negative n reads everything remaining; zero reads
// nothing.
func (a *AttachmentReader) ReadChunk(n int) ([]byte, error) {
	if n < 0 {
		return a.ReadAll()
	}
	if n == 0 {
		return []byte{}, nil
	}
	return a.stream.ReadChunk(n)
}

// ReadLine returns the next line including its terminator, or
// (nil, io.EOF) at end of stream.
func (a *AttachmentReader) ReadLine() ([]byte, error) {
	return a.stream.ReadLine()
}

// ReadLines collects lines. A non-positive hint reads to end of stream;
// otherwise collection stops once hint lines have accumulated, even if
// more data remains.
func (a *AttachmentReader) ReadLines(hint int) ([][]byte, error) {
	var lines [][]byte
	for hint <= 0 || len(lines) < hint {
		line, err := a.ReadLine()
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// ReadAll reads to end of stream in fixed-size chunks, concatenating
// into one buffer.
func (a *AttachmentReader) ReadAll() ([]byte, error) {
	var buf []byte
	for {
		chunk, err := a.stream.ReadChunk(readAllChunkSize)
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return buf, err
		}
		buf = append(buf, chunk...)
	}
}

// Close is a no-op once the stream is exhausted; otherwise it aborts or
// drains the underlying connection so it is not left in an
// indeterminate state.
func (a *AttachmentReader) Close() error {
	if a.decoder != nil {
		a.decoder.Close()
		a.decoder = nil
	}
	if a.stream.AtEOF() {
		return nil
	}
	return a.abort()
}

// Closed reports whether the underlying stream has reached end of
// stream.
func (a *AttachmentReader) Closed() bool { return a.stream.AtEOF() }

// Readable reports true: attachment content can be read.
func (a *AttachmentReader) Readable() bool { return true }

// Writable reports false: attachments are read-only on this path.
func (a *AttachmentReader) Writable() bool { return false }

// Seekable reports false: the stream rides a live connection.
func (a *AttachmentReader) Seekable() bool { return false }
