// Copyright (c) 2026 Futon Labs
// SPDX-License-Identifier: BSD-2-Clause

/*
Package couchstream implements a streaming client for CouchDB-compatible
document stores.

# Overview

couchstream is a Go client library built around single-pass, lazy decoding
of the compound response bodies a CouchDB-style HTTP API can return: a
plain JSON document, a set of open document revisions delivered as
multipart/mixed, or a document interleaved with its binary attachments
delivered as multipart/related. Attachment bodies are exposed as ordinary
byte-stream readers without ever materializing a whole response in memory.

# Package Structure

The library is organized into the following packages:

	github.com/futonlabs/couchstream/pkg/couch       - Server/database/document/attachment API
	github.com/futonlabs/couchstream/pkg/multipart   - Nested multipart response decoding
	github.com/futonlabs/couchstream/pkg/transport   - HTTP(S) transport with TLS 1.2/1.3
	github.com/futonlabs/couchstream/pkg/authn       - Authentication providers (basic, cookie, proxy)
	github.com/futonlabs/couchstream/pkg/compression - GZIP attachment encoding
	github.com/futonlabs/couchstream/pkg/discovery   - DNS SRV cluster endpoint discovery
	github.com/futonlabs/couchstream/pkg/retry       - Request-layer retry policies

# Quick Start

To fetch a document together with its attachments:

	import (
	    "github.com/futonlabs/couchstream/pkg/couch"
	)

	server, _ := couch.NewServer("https://couch.example.com:6984")
	db := server.Database("invoices")
	doc := db.Doc("invoice-2026-000017")

	result, err := doc.GetWithAtts(ctx)
	if err != nil {
	    return err
	}
	defer result.Release()

	for {
	    name, att, err := result.Next()
	    if err == io.EOF {
	        break
	    }
	    if err != nil {
	        return err
	    }
	    data, _ := io.ReadAll(att)
	    fmt.Printf("%s: %d bytes\n", name, len(data))
	}

To walk all open revisions of a document:

	revs, err := doc.GetOpenRevs(ctx, nil)
	if err != nil {
	    return err
	}
	defer revs.Release()

	for {
	    rev, atts, err := revs.Next()
	    if err == io.EOF {
	        break
	    }
	    if err != nil {
	        return err
	    }
	    fmt.Println(rev.Rev(), atts != nil)
	}

# Streaming Model

All decoding is pull-based and forward-only. A multipart reader yields one
part at a time; advancing to the next part drains whatever the caller left
unread, so the underlying HTTP connection is never left straddling a parse
boundary. Readers over one response must not be used from multiple
goroutines; readers over different responses are independent.

# Authentication

The authn package provides HTTP-level authentication providers:

  - BasicAuth: Authorization header credentials
  - CookieAuth: AuthSession cookie, obtainable via Server.Session().Open
  - ProxyAuth: X-Auth-CouchDB-* headers with an HMAC-SHA1 token

# License

BSD-2-Clause License
*/
package couchstream
