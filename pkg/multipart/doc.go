// Copyright (c) 2026 Futon Labs
// SPDX-License-Identifier: BSD-2-Clause

/*
Package multipart decodes the nested MIME multipart response bodies the
document store emits, without materializing them in memory.

The store answers certain requests with compound bodies: a set of open
document revisions as multipart/mixed, or one document interleaved with
its binary attachments as multipart/related. Envelopes nest, since a
multipart/mixed part may itself be multipart/related, and attachment
bodies can be large, so decoding is lazy, single-pass, and driven
entirely by the caller's reads.

# Wire Format

The store emits a subset of RFC 2046 framing:

	--boundary\r\n
	Content-Type: application/json\r\n
	\r\n
	{"_id": "foo", ...}\r\n
	--boundary\r\n
	Content-Disposition: attachment; filename="att.txt"\r\n
	Content-Type: text/plain\r\n
	Content-Length: 9\r\n
	\r\n
	some data\r\n
	--boundary--

Recognized part headers are Content-Type, Content-Disposition,
Content-Length, and Content-Encoding.

# Iteration Discipline

A Reader is strictly forward-only: calling Next drains whatever remains
of the previously returned part, so interleaved reads can never corrupt
the stream offset. Next keeps returning io.EOF once the closing
boundary has been seen. Nesting is explicit: a part whose content type
is itself multipart is handed to SubReader at the call site, so callers
that do not need the nested structure can read the part as opaque bytes.

# Specialized Readers

OpenRevsReader interprets a multipart/mixed open-revisions response as a
sequence of (document, attachments-reader) pairs. DocAttachmentsReader
interprets a multipart/related document-with-attachments response,
matching attachment parts positionally to the stub descriptors declared
in the document's _attachments mapping.

# Errors

ParseError covers malformed framing, TruncatedError a stream that ends
early, and UnsupportedContentTypeError a top-level media type the store
is not known to emit. Transport errors pass through unchanged. Nothing
is retried here: a half-consumed multipart stream cannot be resumed, so
retry policy belongs to the request layer.
*/
package multipart
