package couch

import (
	"context"
	"encoding/hex"
	"io"
	"net/http"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserDocID(t *testing.T) {
	assert.Equal(t, "org.couchdb.user:alice", UserDocID("alice"))
	assert.Equal(t, "org.couchdb.user:alice", UserDocID("org.couchdb.user:alice"))
}

func TestAuthDatabase_Register(t *testing.T) {
	var put map[string]any
	server := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodPut, req.Method)
		assert.Equal(t, "/_users/org.couchdb.user:alice", req.URL.Path)
		data, _ := io.ReadAll(req.Body)
		require.NoError(t, json.Unmarshal(data, &put))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true,"id":"org.couchdb.user:alice","rev":"1-x"}`))
	})

	result, err := server.AuthDatabase("").Register(context.Background(), "alice", "whiterabbit",
		map[string]any{"email": "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "1-x", result.Rev)

	assert.Equal(t, "org.couchdb.user:alice", put["_id"])
	assert.Equal(t, "alice", put["name"])
	assert.Equal(t, "user", put["type"])
	assert.Equal(t, "alice@example.com", put["email"])

	// The password only ever leaves as a PBKDF2 hash.
	assert.NotContains(t, put, "password")
	assert.Equal(t, "pbkdf2", put["password_scheme"])
	assert.EqualValues(t, DefaultPasswordIterations, put["iterations"])

	salt, err := hex.DecodeString(put["salt"].(string))
	require.NoError(t, err)
	assert.Len(t, salt, 16)
	key, err := hex.DecodeString(put["derived_key"].(string))
	require.NoError(t, err)
	assert.Len(t, key, 20)
}

func TestAuthDatabase_UpdatePassword(t *testing.T) {
	var put map[string]any
	server := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			w.Write([]byte(`{"_id":"org.couchdb.user:bob","_rev":"2-y","name":"bob",` +
				`"type":"user","roles":[],"password_scheme":"pbkdf2","iterations":10,` +
				`"salt":"00112233445566778899aabbccddeeff","derived_key":"deadbeef"}`))
		case http.MethodPut:
			data, _ := io.ReadAll(req.Body)
			require.NoError(t, json.Unmarshal(data, &put))
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"ok":true,"id":"org.couchdb.user:bob","rev":"3-z"}`))
		default:
			t.Fatalf("unexpected method %s", req.Method)
		}
	})

	result, err := server.AuthDatabase("").UpdatePassword(context.Background(), "bob", "newsecret")
	require.NoError(t, err)
	assert.Equal(t, "3-z", result.Rev)

	assert.Equal(t, "2-y", put["_rev"])
	assert.NotContains(t, put, "password")
	// Rehashing picks a fresh salt.
	assert.NotEqual(t, "00112233445566778899aabbccddeeff", put["salt"])
	assert.NotEqual(t, "deadbeef", put["derived_key"])
}

func TestAuthDatabase_RemoveUser(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/_users/org.couchdb.user:carol", req.URL.Path)
		switch req.Method {
		case http.MethodHead:
			w.Header().Set("ETag", `"4-q"`)
		case http.MethodDelete:
			assert.Equal(t, "4-q", req.URL.Query().Get("rev"))
			w.Write([]byte(`{"ok":true,"id":"org.couchdb.user:carol","rev":"5-r"}`))
		default:
			t.Fatalf("unexpected method %s", req.Method)
		}
	})

	result, err := server.AuthDatabase("").RemoveUser(context.Background(), "carol")
	require.NoError(t, err)
	assert.Equal(t, "5-r", result.Rev)
}
