// Copyright (c) 2026 Futon Labs
// SPDX-License-Identifier: BSD-2-Clause

/*
Package discovery resolves document store endpoints from DNS SRV
records.

Deployments that publish _couchdb._tcp SRV records let clients find
servers by domain instead of hard-coded URLs:

	client := discovery.NewClient()
	endpoints, err := client.Resolve(ctx, "example.com")

Endpoints come back sorted by SRV priority, then weight, so the first
entry is the preferred server. ResolveURL is the shortcut for the
common one-server case:

	base, err := client.ResolveURL(ctx, "example.com", "https")
	server, err := couch.NewServer(base)

# References

  - DNS SRV RFC 2782: https://datatracker.ietf.org/doc/html/rfc2782
*/
package discovery
