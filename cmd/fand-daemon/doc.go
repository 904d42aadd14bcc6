// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

// fand-daemon is the privileged half of fand. It holds the one handle
// to the hwmon fan controller, serves the CBOR fan protocol on a
// root/admin-restricted unix socket, and is the safety boundary: no
// RPM value reaches hardware without being clamped into the fan's
// operating range here, whatever a client asked for.
//
// The daemon is a long-running background service. It starts
// independently of any client, outlives client connections, and exits
// only on SIGINT/SIGTERM or a fatal startup failure. Individual
// hardware operation failures are reported to clients as absent
// values or rejected calls, never by crashing.
package main
