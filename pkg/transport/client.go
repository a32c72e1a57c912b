package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// TLS version constants
const (
	TLS12 = tls.VersionTLS12
	TLS13 = tls.VersionTLS13
)

// Recommended TLS 1.2 cipher suites
var RecommendedTLS12CipherSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
}

// Config contains HTTP client configuration. Response bodies are
// streamed, so there is deliberately no overall request deadline knob:
// ResponseHeaderTimeout bounds the wait for headers and callers bound
// the rest with their context.
type Config struct {
	MinTLSVersion         uint16
	MaxTLSVersion         uint16
	CipherSuites          []uint16
	Certificates          []tls.Certificate
	RootCAs               *x509.CertPool
	InsecureSkipVerify    bool
	ResponseHeaderTimeout time.Duration
	IdleConnTimeout       time.Duration
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
}

// DefaultConfig returns a default client configuration.
func DefaultConfig() *Config {
	return &Config{
		MinTLSVersion:         TLS12,
		MaxTLSVersion:         TLS13,
		CipherSuites:          RecommendedTLS12CipherSuites,
		ResponseHeaderTimeout: 30 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
	}
}

// Client issues HTTP requests against the store and hands back
// streaming responses.
type Client struct {
	client *http.Client
	config *Config
	logger *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger attaches a structured logger; request and response lines
// are emitted at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient substitutes the underlying http.Client, primarily for
// tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// NewClient creates a new streaming HTTP client.
func NewClient(config *Config, opts ...Option) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	tlsConfig := &tls.Config{
		MinVersion:         config.MinTLSVersion,
		MaxVersion:         config.MaxTLSVersion,
		CipherSuites:       config.CipherSuites,
		Certificates:       config.Certificates,
		RootCAs:            config.RootCAs,
		InsecureSkipVerify: config.InsecureSkipVerify,
	}

	transport := &http.Transport{
		TLSClientConfig:       tlsConfig,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		IdleConnTimeout:       config.IdleConnTimeout,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
	}

	c := &Client{
		client: &http.Client{Transport: transport},
		config: config,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends the request and returns a streaming Response. The body is
// not read; the caller must release or close the response on every
// path, including errors, or the connection leaks.
func (c *Client) Do(req *http.Request) (*Response, error) {
	c.logger.Debug("request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()))

	resp, err := c.client.Do(req)
	if err != nil {
		// Transport errors pass through unchanged; their
		// classification drives the caller's retry policy.
		return nil, err
	}

	c.logger.Debug("response",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.String("content_type", resp.Header.Get("Content-Type")))

	return &Response{resp: resp, logger: c.logger}, nil
}

// Request builds a request with context. A nil body is allowed.
func (c *Client) Request(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "couchstream/1.0")
	return req, nil
}
