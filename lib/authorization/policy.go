// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

package authorization

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is the sentinel wrapped by every policy denial.
// The RPC layer matches it with errors.Is to distinguish a policy
// denial from an infrastructure failure.
var ErrUnauthorized = errors.New("unauthorized")

// Peer is the kernel-attested identity of a connecting process,
// read from the socket at accept time. It is granted once per
// connection and never re-checked mid-call.
type Peer struct {
	UID uint32
	GID uint32
	PID int32
}

// Policy decides whether a peer may issue calls on a connection.
// A nil return authorizes the connection; a denial wraps
// ErrUnauthorized.
//
// The dispatch layer never inspects peer identity itself — swapping
// in a stricter policy (binary identity verification, entitlement
// checks) must not touch it.
type Policy interface {
	Authorize(peer Peer) error
}

// RootOnly returns the minimal policy: only processes running with
// effective uid 0 may issue calls.
func RootOnly() Policy { return rootOnly{} }

type rootOnly struct{}

func (rootOnly) Authorize(peer Peer) error {
	if peer.UID == 0 {
		return nil
	}
	return fmt.Errorf("%w: uid %d is not root", ErrUnauthorized, peer.UID)
}

// RootOrGroup returns a policy admitting root and any process whose
// primary group matches gid. This is the production policy: the
// socket's group is set to the admin group, and the policy re-checks
// membership so a stale socket mode alone cannot grant access.
//
// SO_PEERCRED carries only the primary gid; a caller whose admin
// membership is supplementary must connect via a process with the
// admin group primary (sg, newgrp, or a systemd unit Group= setting).
func RootOrGroup(gid uint32) Policy { return rootOrGroup{gid: gid} }

type rootOrGroup struct {
	gid uint32
}

func (p rootOrGroup) Authorize(peer Peer) error {
	if peer.UID == 0 {
		return nil
	}
	if peer.GID == p.gid {
		return nil
	}
	return fmt.Errorf("%w: uid %d gid %d (need root or gid %d)", ErrUnauthorized, peer.UID, peer.GID, p.gid)
}

// AllowAll returns a policy that authorizes every peer. Test-only:
// production mains never construct it.
func AllowAll() Policy { return allowAll{} }

type allowAll struct{}

func (allowAll) Authorize(Peer) error { return nil }

// DenyAll returns a policy that denies every peer. Used in tests to
// exercise the rejected-connection paths.
func DenyAll() Policy { return denyAll{} }

type denyAll struct{}

func (denyAll) Authorize(peer Peer) error {
	return fmt.Errorf("%w: policy denies all peers", ErrUnauthorized)
}
