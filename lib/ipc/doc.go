// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

// Package ipc is the control channel between unprivileged clients and
// the fand daemon: the CBOR wire types, the unix-socket server the
// daemon embeds, and the client the CLI and control loop use.
//
// The protocol is strictly request/response — one CBOR request per
// connection, one reply, then close. The client suspends until the
// reply arrives or its timeout fires; there are no fire-and-forget
// calls, because every operation's caller needs a definitive outcome.
// Authorization happens once per connection, at accept, from
// SO_PEERCRED credentials; the verdict is carried to handlers and a
// denied connection can reach only check-authorization.
//
// Both the daemon and every client import the wire types from here so
// the protocol is defined once rather than mirrored.
package ipc
