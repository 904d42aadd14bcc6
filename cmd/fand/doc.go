// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

// fand is the unprivileged command-line client for fand-daemon. It
// talks the CBOR fan protocol over the daemon's unix socket and never
// touches hardware itself.
//
// One-shot commands (status, set, mode, check-auth) map directly onto
// protocol calls. The run command starts the client-side control loop:
// it samples host temperature sensors, evaluates a fan curve, and
// issues setpoints until interrupted, returning the fan to automatic
// mode on the way out.
package main
