package couch

import (
	"context"
	"io"
	"net/http"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futonlabs/couchstream/pkg/authn"
)

func TestSession_Open(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "/_session", req.URL.Path)

		var creds map[string]string
		body, _ := io.ReadAll(req.Body)
		require.NoError(t, json.Unmarshal(body, &creds))
		assert.Equal(t, "admin", creds["name"])
		assert.Equal(t, "secret", creds["password"])

		http.SetCookie(w, &http.Cookie{Name: authn.SessionCookieName, Value: "tokenvalue"})
		w.Write([]byte(`{"ok":true,"name":"admin","roles":["_admin"]}`))
	})

	auth, err := server.Session().Open(context.Background(), "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tokenvalue", auth.Token())
}

func TestSession_Open_NoCookieIssued(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	})

	_, err := server.Session().Open(context.Background(), "admin", "secret")
	assert.ErrorIs(t, err, authn.ErrNoCredentials)
}

func TestSession_Open_BadCredentials(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"unauthorized","reason":"Name or password is incorrect."}`))
	})

	_, err := server.Session().Open(context.Background(), "admin", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSession_Info(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		cookie, err := req.Cookie(authn.SessionCookieName)
		require.NoError(t, err)
		assert.Equal(t, "tokenvalue", cookie.Value)
		w.Write([]byte(`{"ok":true,"userCtx":{"name":"admin"}}`))
	})

	auth := authn.NewCookieAuth("tokenvalue")
	info, err := server.Session().Info(context.Background(), auth)
	require.NoError(t, err)
	assert.Equal(t, true, info["ok"])
}

func TestSession_Close(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodDelete, req.Method)
		w.Write([]byte(`{"ok":true}`))
	})

	auth := authn.NewCookieAuth("tokenvalue")
	assert.NoError(t, server.Session().Close(context.Background(), auth))
}
