package transport

import (
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/futonlabs/couchstream/pkg/multipart"
)

// Response wraps one streaming HTTP response. The body is consumed
// through Stream (boundary-aware reads), JSON, or ReadAll; whichever
// path is taken, Release or Close must run on every exit so the
// connection is either fully drained or explicitly closed, never
// silently leaked.
type Response struct {
	resp   *http.Response
	stream *multipart.Stream
	logger *zap.Logger
	closed bool
}

// StatusCode returns the HTTP status code.
func (r *Response) StatusCode() int { return r.resp.StatusCode }

// Header returns the response headers.
func (r *Response) Header() http.Header { return r.resp.Header }

// ContentType returns the raw Content-Type header.
func (r *Response) ContentType() string { return r.resp.Header.Get("Content-Type") }

// HTTP exposes the underlying response for header-level collaborators
// such as authentication providers capturing cookies.
func (r *Response) HTTP() *http.Response { return r.resp }

// Stream returns the boundary-aware view of the body. The same Stream
// is returned on every call.
func (r *Response) Stream() *multipart.Stream {
	if r.stream == nil {
		r.stream = multipart.NewStream(r.resp.Body)
	}
	return r.stream
}

// ReadAll consumes the remaining body.
func (r *Response) ReadAll() ([]byte, error) {
	return io.ReadAll(r.Stream())
}

// JSON decodes the remaining body into v. An empty body decodes to
// nothing and returns nil.
func (r *Response) JSON(v any) error {
	data, err := r.ReadAll()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// Release drains whatever is left of the body and closes it, keeping
// the underlying connection reusable.
func (r *Response) Release() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.Stream().Drain(); err != nil {
		r.logger.Warn("draining response body failed", zap.Error(err))
		r.resp.Body.Close()
		return err
	}
	return r.resp.Body.Close()
}

// Close aborts the body without draining. The connection will not be
// reused.
func (r *Response) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.resp.Body.Close()
}
