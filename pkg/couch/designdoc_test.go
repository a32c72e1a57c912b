package couch

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDesignDoc_Name(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {})
	db := server.Database("db")

	assert.Equal(t, "views", db.DesignDoc("views").Name())
	assert.Equal(t, "views", db.DesignDoc("_design/views").Name())
}

func TestDesignDoc_Doc(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/db/_design/views", req.URL.Path)
		w.Write([]byte(`{"_id":"_design/views","_rev":"1-a","views":{}}`))
	})

	doc, err := server.Database("db").DesignDoc("views").Doc().Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "_design/views", doc.ID())
}

func TestDesignDoc_Info(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/db/_design/views/_info", req.URL.Path)
		w.Write([]byte(`{"name":"views","view_index":{"compact_running":false}}`))
	})

	info, err := server.Database("db").DesignDoc("views").Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "views", info["name"])
}

func TestDesignDoc_View(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/db/_design/views/_view/by_name", req.URL.Path)
		query := req.URL.Query()
		// Key bounds travel JSON-encoded, so strings keep their quotes.
		assert.Equal(t, `"alpha"`, query.Get("startkey"))
		assert.Equal(t, `"omega"`, query.Get("endkey"))
		assert.Equal(t, "10", query.Get("limit"))
		w.Write([]byte(`{"total_rows":2,"offset":0,"rows":[` +
			`{"id":"a","key":"alpha","value":1},` +
			`{"id":"o","key":"omega","value":2}]}`))
	})

	result, err := server.Database("db").DesignDoc("views").View(context.Background(), "by_name",
		WithStartKey("alpha"), WithEndKey("omega"), WithParam("limit", 10))
	require.NoError(t, err)
	rows := result["rows"].([]any)
	assert.Len(t, rows, 2)
}

func TestDesignDoc_View_Key(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, `["composite",42]`, req.URL.Query().Get("key"))
		w.Write([]byte(`{"total_rows":0,"offset":0,"rows":[]}`))
	})

	_, err := server.Database("db").DesignDoc("views").View(context.Background(), "by_pair",
		WithKey([]any{"composite", 42}))
	require.NoError(t, err)
}

func TestDesignDoc_ViewKeys(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "/db/_design/views/_view/by_name", req.URL.Path)
		var body map[string]any
		data, _ := io.ReadAll(req.Body)
		require.NoError(t, json.Unmarshal(data, &body))
		assert.Equal(t, []any{"alpha", "omega"}, body["keys"])
		w.Write([]byte(`{"total_rows":2,"offset":0,"rows":[]}`))
	})

	_, err := server.Database("db").DesignDoc("views").ViewKeys(context.Background(), "by_name",
		[]any{"alpha", "omega"})
	require.NoError(t, err)
}

func TestDesignDoc_Show(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/db/_design/views/_show/render/doc-1", req.URL.Path)
		w.Write([]byte("<h1>doc-1</h1>"))
	})

	out, err := server.Database("db").DesignDoc("views").Show(context.Background(), "render", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "<h1>doc-1</h1>", string(out))
}

func TestDesignDoc_Show_NoDoc(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/db/_design/views/_show/render", req.URL.Path)
		w.Write([]byte("empty"))
	})

	out, err := server.Database("db").DesignDoc("views").Show(context.Background(), "render", "")
	require.NoError(t, err)
	assert.Equal(t, "empty", string(out))
}

func TestDesignDoc_List(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/db/_design/views/_list/as_csv/by_name", req.URL.Path)
		w.Write([]byte("id,key\na,alpha\n"))
	})

	out, err := server.Database("db").DesignDoc("views").List(context.Background(), "as_csv", "by_name")
	require.NoError(t, err)
	assert.Contains(t, string(out), "a,alpha")
}

func TestDesignDoc_UpdateHandler(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodPut, req.Method)
		assert.Equal(t, "/db/_design/views/_update/touch/doc-1", req.URL.Path)
		data, _ := io.ReadAll(req.Body)
		assert.Equal(t, "payload", string(data))
		w.Write([]byte("updated doc-1"))
	})

	out, err := server.Database("db").DesignDoc("views").UpdateHandler(context.Background(),
		"touch", "doc-1", strings.NewReader("payload"))
	require.NoError(t, err)
	assert.Equal(t, "updated doc-1", string(out))
}

func TestDesignDoc_UpdateHandler_NoDoc(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "/db/_design/views/_update/touch", req.URL.Path)
		w.Write([]byte("created"))
	})

	out, err := server.Database("db").DesignDoc("views").UpdateHandler(context.Background(),
		"touch", "", strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "created", string(out))
}
