package couch

import (
	"context"

	"github.com/futonlabs/couchstream/pkg/authn"
)

// Session drives the cookie-based _session endpoint.
type Session struct {
	resource *Resource
}

type sessionCredentials struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Open authenticates with name and password and returns a CookieAuth
// carrying the issued session token. The caller decides where to apply
// it, typically via Resource.WithAuth.
func (s *Session) Open(ctx context.Context, name, password string) (*authn.CookieAuth, error) {
	resp, err := s.resource.Post(ctx,
		WithJSONBody(sessionCredentials{Name: name, Password: password}))
	if err != nil {
		return nil, err
	}
	if err := ResponseError(resp); err != nil {
		return nil, err
	}
	auth := authn.NewCookieAuth("")
	auth.Update(resp.HTTP())
	if err := resp.Release(); err != nil {
		return nil, err
	}
	if auth.Token() == "" {
		return nil, authn.ErrNoCredentials
	}
	return auth, nil
}

// Info reports the authentication state of the given credentials
// (GET /_session).
func (s *Session) Info(ctx context.Context, auth authn.Provider) (map[string]any, error) {
	resp, err := s.resource.Get(ctx, WithRequestAuth(auth))
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

// Close invalidates the session server-side (DELETE /_session).
func (s *Session) Close(ctx context.Context, auth authn.Provider) error {
	resp, err := s.resource.Delete(ctx, WithRequestAuth(auth))
	if err != nil {
		return err
	}
	if err := ResponseError(resp); err != nil {
		return err
	}
	return resp.Release()
}
