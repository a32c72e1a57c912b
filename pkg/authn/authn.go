// Package authn provides HTTP-level authentication providers for the
// document store: basic credentials, session cookies, and trusted-proxy
// headers. A provider stamps outgoing requests and may harvest state
// from responses (the cookie provider captures refreshed AuthSession
// cookies the server rotates on activity).
package authn

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
)

// Sentinel errors for credential handling.
var (
	// ErrNoCredentials indicates a provider was asked to sign a request
	// without having credentials to sign with.
	ErrNoCredentials = errors.New("authn: no credentials provided")
)

// Provider applies authentication to outgoing requests and observes
// responses for updated credentials.
type Provider interface {
	// Apply stamps the request with authentication material.
	Apply(req *http.Request)

	// Update harvests authentication state from a response. Most
	// providers ignore it.
	Update(resp *http.Response)
}

// NoAuth is the null provider.
type NoAuth struct{}

func (NoAuth) Apply(*http.Request)   {}
func (NoAuth) Update(*http.Response) {}

// BasicAuth sends credentials in the Authorization header.
type BasicAuth struct {
	Name     string
	Password string
}

// NewBasicAuth creates a basic-auth provider.
func NewBasicAuth(name, password string) *BasicAuth {
	return &BasicAuth{Name: name, Password: password}
}

func (b *BasicAuth) Apply(req *http.Request) {
	req.SetBasicAuth(b.Name, b.Password)
}

func (b *BasicAuth) Update(*http.Response) {}

// CookieAuth authenticates with the AuthSession cookie issued by the
// _session endpoint and keeps it fresh as the server rotates it.
type CookieAuth struct {
	cookie *http.Cookie
}

// SessionCookieName is the cookie the server issues for session
// authentication.
const SessionCookieName = "AuthSession"

// NewCookieAuth creates a cookie provider from an existing session
// token. Providers created with an empty token stay dormant until
// Update captures a cookie from a response.
func NewCookieAuth(token string) *CookieAuth {
	c := &CookieAuth{}
	if token != "" {
		c.cookie = &http.Cookie{Name: SessionCookieName, Value: token}
	}
	return c
}

func (c *CookieAuth) Apply(req *http.Request) {
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
}

func (c *CookieAuth) Update(resp *http.Response) {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == SessionCookieName {
			c.cookie = cookie
			return
		}
	}
}

// Token returns the current session token, or the empty string.
func (c *CookieAuth) Token() string {
	if c.cookie == nil {
		return ""
	}
	return c.cookie.Value
}

// ProxyAuth authenticates through a trusted reverse proxy using the
// X-Auth-CouchDB-UserName, X-Auth-CouchDB-Roles and X-Auth-CouchDB-Token
// headers. The token is the hex HMAC-SHA1 of the username keyed with
// the shared secret; when no secret is configured the token header is
// omitted (the server must then run with proxy_use_secret disabled).
type ProxyAuth struct {
	Username string
	Roles    []string
	Secret   string

	headerNames ProxyHeaderNames
}

// ProxyHeaderNames allows overriding the header names, which are
// configurable server-side.
type ProxyHeaderNames struct {
	Username string
	Roles    string
	Token    string
}

// DefaultProxyHeaderNames are the server defaults.
var DefaultProxyHeaderNames = ProxyHeaderNames{
	Username: "X-Auth-CouchDB-UserName",
	Roles:    "X-Auth-CouchDB-Roles",
	Token:    "X-Auth-CouchDB-Token",
}

// NewProxyAuth creates a proxy-auth provider.
func NewProxyAuth(username string, roles []string, secret string) *ProxyAuth {
	return &ProxyAuth{
		Username:    username,
		Roles:       roles,
		Secret:      secret,
		headerNames: DefaultProxyHeaderNames,
	}
}

// WithHeaderNames overrides the proxy header names.
func (p *ProxyAuth) WithHeaderNames(names ProxyHeaderNames) *ProxyAuth {
	p.headerNames = names
	return p
}

func (p *ProxyAuth) Apply(req *http.Request) {
	req.Header.Set(p.headerNames.Username, p.Username)
	req.Header.Set(p.headerNames.Roles, strings.Join(p.Roles, ","))
	if p.Secret != "" {
		req.Header.Set(p.headerNames.Token, p.token())
	}
}

func (p *ProxyAuth) Update(*http.Response) {}

// token computes the hex HMAC-SHA1 of the username with the shared
// secret, matching the server's proxy_use_secret verification.
func (p *ProxyAuth) token() string {
	mac := hmac.New(sha1.New, []byte(p.Secret))
	mac.Write([]byte(p.Username))
	return hex.EncodeToString(mac.Sum(nil))
}
