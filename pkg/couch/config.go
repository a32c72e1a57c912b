package couch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/futonlabs/couchstream/internal/config"
	"github.com/futonlabs/couchstream/pkg/discovery"
	"github.com/futonlabs/couchstream/pkg/transport"
)

// NewServerFromConfig assembles a Server from loaded configuration.
// The endpoint comes from server.url or, absent that, from DNS SRV
// discovery of the configured domain. The TLS and timeout sections map
// onto the transport, and the auth section installs the matching
// provider; cookie mode opens a _session with the configured
// credentials and applies the issued cookie.
func NewServerFromConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	rawurl := cfg.Server.URL
	if rawurl == "" {
		dc := discovery.NewClientWithConfig(discovery.ClientConfig{
			Service:   cfg.Server.Discovery.Service,
			DNSServer: cfg.Server.Discovery.DNSServer,
		})
		resolved, err := dc.ResolveURL(ctx, cfg.Server.Discovery.Domain, cfg.Server.Discovery.Scheme)
		if err != nil {
			return nil, fmt.Errorf("resolving server endpoint: %w", err)
		}
		rawurl = resolved
	}

	tc, err := newTransportConfig(&cfg.Server)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	auth, err := cfg.Auth.Provider()
	if err != nil {
		return nil, err
	}

	opts := []ServerOption{WithTransportConfig(tc), WithLogger(logger)}
	if auth != nil {
		opts = append(opts, WithAuth(auth))
	}
	server, err := NewServer(rawurl, opts...)
	if err != nil {
		return nil, err
	}

	if cfg.Auth.Mode == "cookie" {
		cookie, err := server.Session().Open(ctx, cfg.Auth.Name, cfg.Auth.Password)
		if err != nil {
			return nil, fmt.Errorf("opening session: %w", err)
		}
		server = NewServerWithResource(server.Resource().WithAuth(cookie))
	}
	return server, nil
}

// newTransportConfig maps the server section onto the transport's
// TLS and pooling knobs, starting from the defaults.
func newTransportConfig(sc *config.ServerConfig) (*transport.Config, error) {
	tc := transport.DefaultConfig()
	if sc.ResponseHeaderTimeout > 0 {
		tc.ResponseHeaderTimeout = sc.ResponseHeaderTimeout
	}
	if sc.IdleConnTimeout > 0 {
		tc.IdleConnTimeout = sc.IdleConnTimeout
	}
	if sc.TLS.MinVersion == "1.3" {
		tc.MinTLSVersion = transport.TLS13
	}
	tc.InsecureSkipVerify = sc.TLS.InsecureSkipVerify

	if sc.TLS.CACertFile != "" {
		pem, err := os.ReadFile(sc.TLS.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", sc.TLS.CACertFile)
		}
		tc.RootCAs = pool
	}
	if sc.TLS.ClientCertFile != "" {
		cert, err := tls.LoadX509KeyPair(sc.TLS.ClientCertFile, sc.TLS.ClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading client certificate: %w", err)
		}
		tc.Certificates = []tls.Certificate{cert}
	}
	return tc, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
