package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// EncodingGzip is the Content-Encoding token for gzip payloads.
const EncodingGzip = "gzip"

// Compressor handles payload compression.
type Compressor struct {
	level int
}

// NewCompressor creates a compressor with the default compression
// level.
func NewCompressor() *Compressor {
	return &Compressor{level: gzip.DefaultCompression}
}

// NewCompressorWithLevel creates a compressor with the given level.
func NewCompressorWithLevel(level int) *Compressor {
	return &Compressor{level: level}
}

// Compress gzips data into a fresh buffer.
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer, err := gzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, fmt.Errorf("compressing payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("flushing gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress inflates a gzip buffer.
func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, fmt.Errorf("inflating payload: %w", err)
	}
	return buf.Bytes(), nil
}

// NewStreamReader wraps r with gzip decoding when encoding names
// gzip, and returns r unchanged otherwise. The returned closer is nil
// when no decoding layer was added.
func NewStreamReader(encoding string, r io.Reader) (io.Reader, io.Closer, error) {
	if encoding != EncodingGzip {
		return r, nil, nil
	}
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	return gz, gz, nil
}

// ShouldCompress reports whether a payload of the given content type
// is worth compressing before upload.
func ShouldCompress(contentType string) bool {
	// Already-compressed formats only grow under gzip.
	compressedTypes := map[string]bool{
		"application/gzip":   true,
		"application/zip":    true,
		"application/x-gzip": true,
		"image/jpeg":         true,
		"image/png":          true,
		"video/mp4":          true,
		"audio/mp3":          true,
	}
	return !compressedTypes[contentType]
}
