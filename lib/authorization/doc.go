// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

// Package authorization gates connections to the fand daemon socket.
//
// A Policy maps kernel-attested peer credentials (SO_PEERCRED) to an
// authorize/deny decision. The decision is made once, when the
// connection is accepted, and applies to every call on it. Policies
// are deliberately separated from RPC dispatch so the check can be
// strengthened (code-signing, entitlements) without touching the
// protocol layer.
package authorization
