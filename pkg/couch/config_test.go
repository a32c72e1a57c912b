package couch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futonlabs/couchstream/internal/config"
	"github.com/futonlabs/couchstream/pkg/transport"
)

func TestNewServerFromConfig_BasicAuth(t *testing.T) {
	handler := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		name, password, ok := req.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "admin", name)
		assert.Equal(t, "secret", password)
		w.Write([]byte(`{"couchdb":"Welcome"}`))
	}))
	t.Cleanup(handler.Close)

	cfg := &config.Config{}
	cfg.Server.URL = handler.URL
	cfg.Auth.Mode = "basic"
	cfg.Auth.Name = "admin"
	cfg.Auth.Password = "secret"
	cfg.Log.Level = "info"

	server, err := NewServerFromConfig(context.Background(), cfg)
	require.NoError(t, err)

	info, err := server.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Welcome", info["couchdb"])
}

func TestNewServerFromConfig_CookieAuth(t *testing.T) {
	handler := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/_session":
			assert.Equal(t, http.MethodPost, req.Method)
			http.SetCookie(w, &http.Cookie{Name: "AuthSession", Value: "c2Vzc2lvbg", Path: "/"})
			w.Write([]byte(`{"ok":true}`))
		case "/":
			cookie, err := req.Cookie("AuthSession")
			require.NoError(t, err)
			assert.Equal(t, "c2Vzc2lvbg", cookie.Value)
			w.Write([]byte(`{"couchdb":"Welcome"}`))
		default:
			t.Errorf("unexpected path %s", req.URL.Path)
		}
	}))
	t.Cleanup(handler.Close)

	cfg := &config.Config{}
	cfg.Server.URL = handler.URL
	cfg.Auth.Mode = "cookie"
	cfg.Auth.Name = "admin"
	cfg.Auth.Password = "secret"
	cfg.Log.Level = "warn"

	server, err := NewServerFromConfig(context.Background(), cfg)
	require.NoError(t, err)

	_, err = server.Info(context.Background())
	require.NoError(t, err)
}

func TestNewServerFromConfig_BadLogLevel(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.URL = "http://localhost:5984"
	cfg.Auth.Mode = "none"
	cfg.Log.Level = "chatty"

	_, err := NewServerFromConfig(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log level")
}

func TestNewTransportConfig(t *testing.T) {
	sc := &config.ServerConfig{
		ResponseHeaderTimeout: 10 * time.Second,
		IdleConnTimeout:       20 * time.Second,
	}
	sc.TLS.MinVersion = "1.3"
	sc.TLS.InsecureSkipVerify = true

	tc, err := newTransportConfig(sc)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, tc.ResponseHeaderTimeout)
	assert.Equal(t, 20*time.Second, tc.IdleConnTimeout)
	assert.Equal(t, uint16(transport.TLS13), tc.MinTLSVersion)
	assert.True(t, tc.InsecureSkipVerify)
}

func TestNewTransportConfig_Defaults(t *testing.T) {
	tc, err := newTransportConfig(&config.ServerConfig{})
	require.NoError(t, err)
	assert.Equal(t, uint16(transport.TLS12), tc.MinTLSVersion)
	assert.Equal(t, 30*time.Second, tc.ResponseHeaderTimeout)
	assert.False(t, tc.InsecureSkipVerify)
}

func TestNewTransportConfig_BadCACert(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ca.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a certificate"), 0o600))

	sc := &config.ServerConfig{}
	sc.TLS.CACertFile = path
	_, err := newTransportConfig(sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no certificates")

	sc.TLS.CACertFile = filepath.Join(dir, "missing.pem")
	_, err = newTransportConfig(sc)
	require.Error(t, err)
}
