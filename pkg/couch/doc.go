// Copyright (c) 2026 Futon Labs
// SPDX-License-Identifier: BSD-2-Clause

// Package couch provides the resource layer: typed handles for the
// server, databases, documents and attachments, talking JSON and
// multipart over HTTP.
//
// # Resources
//
// Resource is an immutable URL plus a transport client and an
// authentication provider. Join derives child resources with
// path-escaped segments; the typed handles (Server, Database,
// DocumentRef, DesignDocRef, AttachmentRef) are thin wrappers over
// resources that know their endpoint's verbs and response shapes.
//
// # Query grammar
//
// Request parameters follow the store's encoding rules: booleans
// become true/false, plain strings and numbers pass through, and
// anything else (keys, ranges, revision lists) is JSON-encoded.
// WithParam applies the grammar, so callers pass native Go values.
//
// # Streaming results
//
// GetOpenRevs and GetWithAtts return result wrappers that couple a
// multipart reader with the underlying response. Release drains and
// recycles the connection; Close aborts it. Attachment content is
// exposed through AttachmentReader, a forward-only reader with chunk
// and line helpers.
//
// # Errors
//
// HTTP failures become StatusError values that match the package's
// category sentinels with errors.Is:
//
//	doc, err := db.Doc("missing").Get(ctx)
//	if errors.Is(err, couch.ErrNotFound) { ... }
//
// Transport failures pass through unwrapped; multipart framing
// failures surface as the multipart package's error types.
package couch
