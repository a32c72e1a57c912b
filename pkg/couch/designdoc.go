package couch

import (
	"context"
	"io"
	"strings"

	json "github.com/goccy/go-json"
)

// DesignDocPrefix is the ID prefix of design documents.
const DesignDocPrefix = "_design/"

// DesignDocRef addresses a design document: the document itself, its
// views, and its show, list and update handlers.
type DesignDocRef struct {
	resource *Resource
	name     string
}

// DesignDoc addresses a design document by bare name or full
// _design/<name> ID.
func (d *Database) DesignDoc(name string) *DesignDocRef {
	name = strings.TrimPrefix(name, DesignDocPrefix)
	return &DesignDocRef{
		resource: d.resource.Join("_design", name),
		name:     name,
	}
}

// Name returns the design document name, without the _design/ prefix.
func (d *DesignDocRef) Name() string { return d.name }

// Doc exposes the design document as an ordinary document for
// Get/Update/Delete.
func (d *DesignDocRef) Doc() *DocumentRef {
	return NewDocumentRef(d.resource, DesignDocPrefix+d.name)
}

// Info fetches view index information (GET _info).
func (d *DesignDocRef) Info(ctx context.Context) (map[string]any, error) {
	resp, err := d.resource.Join("_info").Get(ctx)
	if err != nil {
		return nil, err
	}
	if err := ResponseError(resp); err != nil {
		return nil, err
	}
	var info map[string]any
	if err := resp.JSON(&info); err != nil {
		resp.Close()
		return nil, err
	}
	return info, resp.Release()
}

// Key-valued view parameters are JSON on the wire, so a plain string
// key travels quoted.

// WithKey restricts a view to one key.
func WithKey(v any) RequestOption { return jsonParam("key", v) }

// WithStartKey sets the lower bound of a view range.
func WithStartKey(v any) RequestOption { return jsonParam("startkey", v) }

// WithEndKey sets the upper bound of a view range.
func WithEndKey(v any) RequestOption { return jsonParam("endkey", v) }

func jsonParam(key string, v any) RequestOption {
	return func(o *requestOptions) {
		data, err := json.Marshal(v)
		if err != nil {
			// Pass the raw value through so encodeQuery reports it.
			WithParam(key, v)(o)
			return
		}
		WithParam(key, string(data))(o)
	}
}

// View queries a view (GET _view/<name>). Key bounds go through
// WithKey/WithStartKey/WithEndKey; everything else through WithParam.
func (d *DesignDocRef) View(ctx context.Context, name string, opts ...RequestOption) (map[string]any, error) {
	resp, err := d.resource.Join("_view", name).Get(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if err := ResponseError(resp); err != nil {
		return nil, err
	}
	var result map[string]any
	if err := resp.JSON(&result); err != nil {
		resp.Close()
		return nil, err
	}
	return result, resp.Release()
}

// ViewKeys queries a view for an explicit key set
// (POST _view/<name> with a keys body).
func (d *DesignDocRef) ViewKeys(ctx context.Context, name string, keys []any, opts ...RequestOption) (map[string]any, error) {
	opts = append(opts, WithJSONBody(map[string]any{"keys": keys}))
	resp, err := d.resource.Join("_view", name).Post(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if err := ResponseError(resp); err != nil {
		return nil, err
	}
	var result map[string]any
	if err := resp.JSON(&result); err != nil {
		resp.Close()
		return nil, err
	}
	return result, resp.Release()
}

// Show runs a show function against a document, or against no document
// when docid is empty (GET _show/<name>[/<docid>]). The handler's
// output is arbitrary bytes.
func (d *DesignDocRef) Show(ctx context.Context, name, docid string, opts ...RequestOption) ([]byte, error) {
	segments := []string{"_show", name}
	if docid != "" {
		segments = append(segments, docid)
	}
	return d.handler(ctx, segments, opts...)
}

// List runs a list function over a view (GET _list/<name>/<view>).
func (d *DesignDocRef) List(ctx context.Context, name, view string, opts ...RequestOption) ([]byte, error) {
	return d.handler(ctx, []string{"_list", name, view}, opts...)
}

func (d *DesignDocRef) handler(ctx context.Context, segments []string, opts ...RequestOption) ([]byte, error) {
	resp, err := d.resource.Join(segments...).Get(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if err := ResponseError(resp); err != nil {
		return nil, err
	}
	out, err := resp.ReadAll()
	if err != nil {
		resp.Close()
		return nil, err
	}
	return out, resp.Release()
}

// UpdateHandler runs an update function (POST _update/<name>, or
// PUT _update/<name>/<docid> when docid names an existing document).
func (d *DesignDocRef) UpdateHandler(ctx context.Context, name, docid string, body io.Reader, opts ...RequestOption) ([]byte, error) {
	r, method := d.resource.Join("_update", name), "POST"
	if docid != "" {
		r, method = r.Join(docid), "PUT"
	}
	opts = append(opts, WithBody(body))
	response, err := r.Request(ctx, method, opts...)
	if err != nil {
		return nil, err
	}
	if err := ResponseError(response); err != nil {
		return nil, err
	}
	out, err := response.ReadAll()
	if err != nil {
		response.Close()
		return nil, err
	}
	return out, response.Release()
}
