package couch

import (
	"bytes"
	"context"
	"errors"

	json "github.com/goccy/go-json"

	"github.com/futonlabs/couchstream/pkg/transport"
)

// Database addresses a single database on a server.
type Database struct {
	resource *Resource
	name     string
}

// NewDatabase wraps an existing resource pointing at a database.
func NewDatabase(resource *Resource, name string) *Database {
	return &Database{resource: resource, name: name}
}

// Name returns the database name.
func (d *Database) Name() string { return d.name }

// Resource returns the database's resource.
func (d *Database) Resource() *Resource { return d.resource }

// Doc addresses a document by ID.
func (d *Database) Doc(id string) *DocumentRef {
	return &DocumentRef{resource: d.resource.Join(id), id: id}
}

// Exists reports whether the database exists (HEAD /db).
func (d *Database) Exists(ctx context.Context) (bool, error) {
	resp, err := d.resource.Head(ctx)
	if err != nil {
		return false, err
	}
	if err := ResponseError(resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, resp.Release()
}

// Info returns database metadata (GET /db).
func (d *Database) Info(ctx context.Context) (map[string]any, error) {
	resp, err := d.resource.Get(ctx)
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

// Create creates the database (PUT /db).
func (d *Database) Create(ctx context.Context) error {
	resp, err := d.resource.Put(ctx)
	if err != nil {
		return err
	}
	if err := ResponseError(resp); err != nil {
		return err
	}
	return resp.Release()
}

// Delete removes the database and everything in it (DELETE /db).
func (d *Database) Delete(ctx context.Context) error {
	resp, err := d.resource.Delete(ctx)
	if err != nil {
		return err
	}
	if err := ResponseError(resp); err != nil {
		return err
	}
	return resp.Release()
}

// AllDocs queries the _all_docs view. Options follow the query grammar,
// so keys and ranges are JSON-encoded automatically.
func (d *Database) AllDocs(ctx context.Context, opts ...RequestOption) (map[string]any, error) {
	resp, err := d.resource.Join("_all_docs").Get(ctx, opts...)
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

// BulkDocs inserts or updates a batch of documents (POST /db/_bulk_docs).
func (d *Database) BulkDocs(ctx context.Context, docs []map[string]any, opts ...RequestOption) ([]map[string]any, error) {
	body := map[string]any{"docs": docs}
	opts = append(opts, WithJSONBody(body))
	resp, err := d.resource.Join("_bulk_docs").Post(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if err := ResponseError(resp); err != nil {
		return nil, err
	}
	var results []map[string]any
	if err := resp.JSON(&results); err != nil {
		resp.Close()
		return nil, err
	}
	return results, resp.Release()
}

// Changes returns the changes feed response. The caller owns the
// response and must Release or Close it; continuous feeds stay open
// until the context is canceled.
func (d *Database) Changes(ctx context.Context, opts ...RequestOption) (*ChangesResult, error) {
	resp, err := d.resource.Join("_changes").Get(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if err := ResponseError(resp); err != nil {
		return nil, err
	}
	return &ChangesResult{resp: resp}, nil
}

// Compact triggers database compaction (POST /db/_compact).
func (d *Database) Compact(ctx context.Context) error {
	resp, err := d.resource.Join("_compact").Post(ctx,
		WithHeader("Content-Type", "application/json"))
	if err != nil {
		return err
	}
	if err := ResponseError(resp); err != nil {
		return err
	}
	return resp.Release()
}

// EnsureFullCommit flushes uncommitted writes to disk.
func (d *Database) EnsureFullCommit(ctx context.Context) error {
	resp, err := d.resource.Join("_ensure_full_commit").Post(ctx,
		WithHeader("Content-Type", "application/json"))
	if err != nil {
		return err
	}
	if err := ResponseError(resp); err != nil {
		return err
	}
	return resp.Release()
}

// RevsDiff reports, for each document, which of the given revisions the
// database is missing (POST /db/_revs_diff).
func (d *Database) RevsDiff(ctx context.Context, idRevs map[string][]string) (map[string]any, error) {
	resp, err := d.resource.Join("_revs_diff").Post(ctx, WithJSONBody(idRevs))
	if err != nil {
		return nil, err
	}
	if err := ResponseError(resp); err != nil {
		return nil, err
	}
	var diff map[string]any
	if err := resp.JSON(&diff); err != nil {
		resp.Close()
		return nil, err
	}
	return diff, resp.Release()
}

// Security reads the database security object (GET /db/_security).
func (d *Database) Security(ctx context.Context) (map[string]any, error) {
	resp, err := d.resource.Join("_security").Get(ctx)
	if err != nil {
		return nil, err
	}
	if err := ResponseError(resp); err != nil {
		return nil, err
	}
	var sec map[string]any
	if err := resp.JSON(&sec); err != nil {
		resp.Close()
		return nil, err
	}
	return sec, resp.Release()
}

// SetSecurity replaces the database security object (PUT /db/_security).
func (d *Database) SetSecurity(ctx context.Context, sec map[string]any) error {
	resp, err := d.resource.Join("_security").Put(ctx, WithJSONBody(sec))
	if err != nil {
		return err
	}
	if err := ResponseError(resp); err != nil {
		return err
	}
	return resp.Release()
}

// ChangesResult wraps an open changes feed. Lines arrive one JSON
// object at a time; Next decodes them as they come, skipping blank
// heartbeat lines, and returns io.EOF when the feed ends.
type ChangesResult struct {
	resp *transport.Response
}

// Next returns the next change row. Terminal rows such as the
// {"last_seq": ...} trailer are returned like any other.
func (c *ChangesResult) Next() (map[string]any, error) {
	for {
		line, err := c.resp.Stream().ReadLine()
		if err != nil {
			return nil, err
		}
		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			continue
		}
		// Non-continuous feeds wrap rows in a results array; strip
		// the framing so both modes yield bare objects.
		line = bytes.TrimSuffix(line, []byte(","))
		if bytes.Equal(line, []byte(`{"results":[`)) {
			continue
		}
		if !bytes.HasPrefix(line, []byte("{")) {
			continue
		}
		var row map[string]any
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, err
		}
		return row, nil
	}
}

// Release drains and closes the feed.
func (c *ChangesResult) Release() error { return c.resp.Release() }

// Close aborts the feed without draining.
func (c *ChangesResult) Close() error { return c.resp.Close() }
