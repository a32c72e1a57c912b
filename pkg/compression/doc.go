// Copyright (c) 2026 Futon Labs
// SPDX-License-Identifier: BSD-2-Clause

/*
Package compression provides gzip encoding for attachment payloads.

The store serves attachments with Content-Encoding: gzip when the
client stored them compressed, and accepts pre-compressed uploads the
same way.

# Compression

Compress payloads before uploading:

	compressor := compression.NewCompressor()
	compressed, err := compressor.Compress(payload)

Decompress buffered payloads:

	decompressed, err := compressor.Decompress(compressed)

# Streaming

Attachment bodies can be large, so responses are decoded without
buffering:

	r, closer, err := compression.NewStreamReader(part.Encoding(), part)
	if closer != nil {
	    defer closer.Close()
	}

# Content Type Detection

The package determines which content types are worth compressing:

	if compression.ShouldCompress("application/json") {
	    // Compress before upload
	}

Already-compressed formats (gzip, zip, jpeg, png, mp4) are left alone.

# References

  - GZIP RFC 1952: https://datatracker.ietf.org/doc/html/rfc1952
*/
package compression
