// Copyright (c) 2026 Futon Labs
// SPDX-License-Identifier: BSD-2-Clause

/*
Package transport implements the streaming HTTP(S) transport the client
rides on, with TLS 1.2/1.3 support.

Responses are never buffered here: Do returns a Response whose body is
consumed lazily through a boundary-aware Stream, so multipart decoding
and attachment reads pull bytes straight off the connection. The caller
owns the response lifecycle: Release drains and returns the connection
to the pool, Close aborts it.

# TLS Configuration

The package recommends TLS 1.3 with fallback to TLS 1.2:

	config := transport.DefaultConfig()
	// MinTLSVersion: TLS 1.2
	// MaxTLSVersion: TLS 1.3

For TLS 1.2, the following cipher suites are recommended:
  - TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384
  - TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256
  - TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384
  - TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256

# Client Usage

	client := transport.NewClient(&transport.Config{
	    MinTLSVersion: transport.TLS12,
	    Certificates:  []tls.Certificate{clientCert},
	    RootCAs:       certPool,
	})

	req, _ := client.Request(ctx, http.MethodGet, url, nil)
	resp, err := client.Do(req)
	if err != nil {
	    return err
	}
	defer resp.Release()

Transport-level errors (connection reset, timeout) are returned
unchanged, preserving their classification for retry policies layered
above.
*/
package transport
