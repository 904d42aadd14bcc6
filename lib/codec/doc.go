// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides fand's standard CBOR encoding configuration.
//
// Everything that crosses the daemon socket is CBOR: the request
// envelope, the response envelope, and the per-action payloads. The
// fan-curve configuration file is YAML (human-edited); CBOR is
// reserved for the wire.
//
// This package holds the shared encoding and decoding modes so the
// daemon and every client encode identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding
// (RFC 8949 §4.2), so the same logical request always produces
// identical bytes.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (the socket):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
package codec
