package couch

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/futonlabs/couchstream/pkg/authn"
	"github.com/futonlabs/couchstream/pkg/transport"
)

// Server is the root of the store's API surface.
type Server struct {
	resource *Resource
	session  *Session
}

// ServerOption customizes a Server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	transportConfig *transport.Config
	httpOptions     []transport.Option
	auth            authn.Provider
	logger          *zap.Logger
}

// WithTransportConfig supplies TLS and pooling settings.
func WithTransportConfig(config *transport.Config) ServerOption {
	return func(o *serverOptions) { o.transportConfig = config }
}

// WithAuth sets the default authentication provider.
func WithAuth(auth authn.Provider) ServerOption {
	return func(o *serverOptions) { o.auth = auth }
}

// WithLogger attaches a structured logger.
func WithLogger(logger *zap.Logger) ServerOption {
	return func(o *serverOptions) { o.logger = logger }
}

// NewServer creates a client for the server at rawurl.
func NewServer(rawurl string, opts ...ServerOption) (*Server, error) {
	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger != nil {
		o.httpOptions = append(o.httpOptions, transport.WithLogger(o.logger))
	}
	client := transport.NewClient(o.transportConfig, o.httpOptions...)
	resource := NewResource(client, rawurl, o.auth)
	s := &Server{resource: resource}
	s.session = &Session{resource: resource.Join("_session")}
	return s, nil
}

// NewServerWithResource wraps an existing resource, primarily for
// tests.
func NewServerWithResource(resource *Resource) *Server {
	return &Server{
		resource: resource,
		session:  &Session{resource: resource.Join("_session")},
	}
}

// Resource returns the server's root resource.
func (s *Server) Resource() *Resource { return s.resource }

// Session returns the session (cookie authentication) endpoint.
func (s *Server) Session() *Session { return s.session }

// Database addresses a database by name.
func (s *Server) Database(name string) *Database {
	return &Database{resource: s.resource.Join(name), name: name}
}

// AuthDatabase addresses the authentication database, conventionally
// _users, whose documents carry a mandatory ID prefix.
func (s *Server) AuthDatabase(name string) *AuthDatabase {
	if name == "" {
		name = "_users"
	}
	return &AuthDatabase{Database: Database{resource: s.resource.Join(name), name: name}}
}

// Info returns the server welcome banner (GET /).
func (s *Server) Info(ctx context.Context) (map[string]any, error) {
	resp, err := s.resource.Get(ctx)
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

// AllDBs lists the databases on the server.
func (s *Server) AllDBs(ctx context.Context) ([]string, error) {
	resp, err := s.resource.Join("_all_dbs").Get(ctx)
	if err != nil {
		return nil, err
	}
	if err := ResponseError(resp); err != nil {
		return nil, err
	}
	var dbs []string
	if err := resp.JSON(&dbs); err != nil {
		resp.Close()
		return nil, err
	}
	return dbs, resp.Release()
}

// ActiveTasks lists the tasks currently running on the server.
func (s *Server) ActiveTasks(ctx context.Context) ([]map[string]any, error) {
	resp, err := s.resource.Join("_active_tasks").Get(ctx)
	if err != nil {
		return nil, err
	}
	if err := ResponseError(resp); err != nil {
		return nil, err
	}
	var tasks []map[string]any
	if err := resp.JSON(&tasks); err != nil {
		resp.Close()
		return nil, err
	}
	return tasks, resp.Release()
}

// UUIDs asks the server for count fresh document IDs.
func (s *Server) UUIDs(ctx context.Context, count int) ([]string, error) {
	if count <= 0 {
		count = 1
	}
	resp, err := s.resource.Join("_uuids").Get(ctx, WithParam("count", count))
	if err != nil {
		return nil, err
	}
	if err := ResponseError(resp); err != nil {
		return nil, err
	}
	var body struct {
		UUIDs []string `json:"uuids"`
	}
	if err := resp.JSON(&body); err != nil {
		resp.Close()
		return nil, err
	}
	return body.UUIDs, resp.Release()
}

// NewDocID generates a document ID client-side, for when a round-trip
// to _uuids is not worth it.
func NewDocID() string {
	return uuid.NewString()
}
