package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/miekg/dns"
)

// Common errors
var (
	// ErrNoRecordsFound is returned when the domain has no SRV records
	// for the service.
	ErrNoRecordsFound = errors.New("no SRV records found for domain")
	// ErrInvalidDomain is returned when the domain is empty or not a
	// valid DNS name.
	ErrInvalidDomain = errors.New("invalid discovery domain")
)

// DefaultService is the SRV service label for the document store.
const DefaultService = "couchdb"

// Endpoint is one server advertised by a SRV record.
type Endpoint struct {
	Host     string
	Port     uint16
	Priority uint16
	Weight   uint16
}

// URL renders the endpoint as a base URL with the given scheme.
func (e Endpoint) URL(scheme string) string {
	if scheme == "" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(e.Host, fmt.Sprint(e.Port)))
}

// ClientConfig contains configuration for the discovery client.
type ClientConfig struct {
	// Service is the SRV service label, without the leading
	// underscore. Defaults to DefaultService.
	Service string

	// Proto is the SRV protocol label, tcp or udp. Defaults to tcp.
	Proto string

	// DNSServer is the DNS server to use for lookups (optional).
	// Format: "ip:port". If empty, the resolvers from
	// /etc/resolv.conf are used.
	DNSServer string
}

// Client resolves server endpoints from DNS SRV records.
type Client struct {
	config    ClientConfig
	dnsClient *dns.Client
}

// NewClient creates a discovery client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(ClientConfig{})
}

// NewClientWithConfig creates a discovery client with custom
// configuration.
func NewClientWithConfig(config ClientConfig) *Client {
	if config.Service == "" {
		config.Service = DefaultService
	}
	if config.Proto == "" {
		config.Proto = "tcp"
	}
	return &Client{
		config:    config,
		dnsClient: new(dns.Client),
	}
}

// Resolve returns the endpoints advertised for domain, sorted by
// priority then descending weight.
func (c *Client) Resolve(ctx context.Context, domain string) ([]Endpoint, error) {
	queryDomain, err := c.formatQueryDomain(domain)
	if err != nil {
		return nil, err
	}
	return c.lookupSRV(ctx, queryDomain)
}

// ResolveURL resolves domain and returns the best endpoint as a base
// URL with the given scheme.
func (c *Client) ResolveURL(ctx context.Context, domain, scheme string) (string, error) {
	endpoints, err := c.Resolve(ctx, domain)
	if err != nil {
		return "", err
	}
	return endpoints[0].URL(scheme), nil
}

// formatQueryDomain constructs the SRV query name for the domain.
func (c *Client) formatQueryDomain(domain string) (string, error) {
	domain = strings.TrimSuffix(strings.TrimSpace(domain), ".")
	if domain == "" {
		return "", ErrInvalidDomain
	}
	if _, ok := dns.IsDomainName(domain); !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidDomain, domain)
	}
	return fmt.Sprintf("_%s._%s.%s", c.config.Service, c.config.Proto, domain), nil
}

// lookupSRV performs the DNS query and extracts the SRV records.
func (c *Client) lookupSRV(ctx context.Context, queryDomain string) ([]Endpoint, error) {
	dnsServer := c.config.DNSServer
	if dnsServer == "" {
		config, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil {
			return nil, fmt.Errorf("failed to read DNS config: %w", err)
		}
		if len(config.Servers) == 0 {
			return nil, errors.New("no DNS servers configured")
		}
		dnsServer = config.Servers[0] + ":" + config.Port
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(queryDomain), dns.TypeSRV)
	msg.RecursionDesired = true

	resp, _, err := c.dnsClient.ExchangeContext(ctx, msg, dnsServer)
	if err != nil {
		return nil, fmt.Errorf("DNS lookup failed for %s: %w", queryDomain, err)
	}

	if resp.Rcode == dns.RcodeNameError {
		return nil, fmt.Errorf("%w: %s", ErrNoRecordsFound, queryDomain)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("DNS lookup failed for %s: rcode=%d", queryDomain, resp.Rcode)
	}

	var endpoints []Endpoint
	for _, rr := range resp.Answer {
		srv, ok := rr.(*dns.SRV)
		if !ok {
			continue
		}
		target := strings.TrimSuffix(srv.Target, ".")
		// RFC 2782: a lone "." target means the service is
		// decidedly not available.
		if target == "" {
			continue
		}
		endpoints = append(endpoints, Endpoint{
			Host:     target,
			Port:     srv.Port,
			Priority: srv.Priority,
			Weight:   srv.Weight,
		})
	}

	if len(endpoints) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRecordsFound, queryDomain)
	}

	sortEndpoints(endpoints)
	return endpoints, nil
}

// sortEndpoints orders by priority (lower first) and weight (higher
// first) within a priority.
func sortEndpoints(endpoints []Endpoint) {
	sort.SliceStable(endpoints, func(i, j int) bool {
		if endpoints[i].Priority != endpoints[j].Priority {
			return endpoints[i].Priority < endpoints[j].Priority
		}
		return endpoints[i].Weight > endpoints[j].Weight
	})
}
