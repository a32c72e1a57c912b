package couch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/futonlabs/couchstream/pkg/authn"
	"github.com/futonlabs/couchstream/pkg/transport"
)

// MethodCopy is the store's non-standard COPY verb.
const MethodCopy = "COPY"

// Resource addresses one URL on the store and issues requests against
// it. Resources are immutable; Join derives a child resource with
// path-escaped segments appended.
type Resource struct {
	url    string
	client *transport.Client
	auth   authn.Provider
}

// NewResource creates a resource rooted at rawurl.
func NewResource(client *transport.Client, rawurl string, auth authn.Provider) *Resource {
	if auth == nil {
		auth = authn.NoAuth{}
	}
	return &Resource{
		url:    strings.TrimRight(rawurl, "/"),
		client: client,
		auth:   auth,
	}
}

// URL returns the resource's URL.
func (r *Resource) URL() string { return r.url }

// WithAuth derives a resource using a different authentication
// provider.
func (r *Resource) WithAuth(auth authn.Provider) *Resource {
	if auth == nil {
		auth = authn.NoAuth{}
	}
	return &Resource{url: r.url, client: r.client, auth: auth}
}

// Join derives a resource with the given path segments appended, each
// escaped so document IDs containing slashes address one path element.
func (r *Resource) Join(segments ...string) *Resource {
	u := r.url
	for _, s := range segments {
		u += "/" + url.PathEscape(s)
	}
	return &Resource{url: u, client: r.client, auth: r.auth}
}

// requestOptions accumulates per-request settings.
type requestOptions struct {
	params  map[string]any
	headers http.Header
	body    io.Reader
	auth    authn.Provider
}

// RequestOption customizes one request.
type RequestOption func(*requestOptions)

// WithParam sets one query parameter. Booleans encode as true/false and
// slice values are JSON-encoded, matching the store's query grammar.
func WithParam(key string, value any) RequestOption {
	return func(o *requestOptions) {
		if o.params == nil {
			o.params = make(map[string]any)
		}
		o.params[key] = value
	}
}

// WithParams merges a set of query parameters.
func WithParams(params map[string]any) RequestOption {
	return func(o *requestOptions) {
		if o.params == nil {
			o.params = make(map[string]any, len(params))
		}
		for k, v := range params {
			o.params[k] = v
		}
	}
}

// WithHeader sets one request header.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = make(http.Header)
		}
		o.headers.Set(key, value)
	}
}

// WithAccept sets the Accept header.
func WithAccept(value string) RequestOption {
	return WithHeader("Accept", value)
}

// WithBody supplies a raw request body.
func WithBody(body io.Reader) RequestOption {
	return func(o *requestOptions) { o.body = body }
}

// WithJSONBody marshals v as the request body and sets the JSON
// content type.
func WithJSONBody(v any) RequestOption {
	return func(o *requestOptions) {
		data, err := json.Marshal(v)
		if err != nil {
			// Surfaced when the request is built.
			o.body = &errReader{err: fmt.Errorf("couch: encoding request body: %w", err)}
			return
		}
		o.body = bytes.NewReader(data)
		if o.headers == nil {
			o.headers = make(http.Header)
		}
		o.headers.Set("Content-Type", "application/json")
	}
}

// WithRequestAuth overrides the resource's authentication provider for
// one request (the original client allowed per-call credentials).
func WithRequestAuth(auth authn.Provider) RequestOption {
	return func(o *requestOptions) { o.auth = auth }
}

type errReader struct{ err error }

func (e *errReader) Read([]byte) (int, error) { return 0, e.err }

// Head issues a HEAD request.
func (r *Resource) Head(ctx context.Context, opts ...RequestOption) (*transport.Response, error) {
	return r.Request(ctx, http.MethodHead, opts...)
}

// Get issues a GET request.
func (r *Resource) Get(ctx context.Context, opts ...RequestOption) (*transport.Response, error) {
	return r.Request(ctx, http.MethodGet, opts...)
}

// Post issues a POST request.
func (r *Resource) Post(ctx context.Context, opts ...RequestOption) (*transport.Response, error) {
	return r.Request(ctx, http.MethodPost, opts...)
}

// Put issues a PUT request.
func (r *Resource) Put(ctx context.Context, opts ...RequestOption) (*transport.Response, error) {
	return r.Request(ctx, http.MethodPut, opts...)
}

// Delete issues a DELETE request.
func (r *Resource) Delete(ctx context.Context, opts ...RequestOption) (*transport.Response, error) {
	return r.Request(ctx, http.MethodDelete, opts...)
}

// Copy issues the store's COPY request.
func (r *Resource) Copy(ctx context.Context, opts ...RequestOption) (*transport.Response, error) {
	return r.Request(ctx, MethodCopy, opts...)
}

// Request issues an arbitrary-method request against the resource.
func (r *Resource) Request(ctx context.Context, method string, opts ...RequestOption) (*transport.Response, error) {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}

	target := r.url
	if len(o.params) > 0 {
		query, err := encodeQuery(o.params)
		if err != nil {
			return nil, err
		}
		target += "?" + query
	}

	req, err := r.client.Request(ctx, method, target, o.body)
	if err != nil {
		return nil, err
	}
	for key, values := range o.headers {
		for _, value := range values {
			req.Header.Set(key, value)
		}
	}
	auth := r.auth
	if o.auth != nil {
		auth = o.auth
	}
	auth.Apply(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	auth.Update(resp.HTTP())
	return resp, nil
}

// encodeQuery renders query parameters in the store's grammar: bools as
// true/false, numbers bare, strings as-is, and anything composite
// (open_revs, atts_since, keys) JSON-encoded.
func encodeQuery(params map[string]any) (string, error) {
	values := make(url.Values, len(params))
	for key, value := range params {
		switch v := value.(type) {
		case bool:
			values.Set(key, strconv.FormatBool(v))
		case string:
			values.Set(key, v)
		case int:
			values.Set(key, strconv.Itoa(v))
		case int64:
			values.Set(key, strconv.FormatInt(v, 10))
		case float64:
			values.Set(key, strconv.FormatFloat(v, 'f', -1, 64))
		default:
			data, err := json.Marshal(v)
			if err != nil {
				return "", fmt.Errorf("couch: encoding query parameter %q: %w", key, err)
			}
			values.Set(key, string(data))
		}
	}
	return values.Encode(), nil
}
