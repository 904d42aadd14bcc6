// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

package authorization

import (
	"errors"
	"testing"
)

func TestRootOnly(t *testing.T) {
	policy := RootOnly()

	if err := policy.Authorize(Peer{UID: 0, GID: 0, PID: 100}); err != nil {
		t.Errorf("root denied: %v", err)
	}

	err := policy.Authorize(Peer{UID: 1000, GID: 1000, PID: 101})
	if err == nil {
		t.Fatal("non-root authorized")
	}
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("denial does not wrap ErrUnauthorized: %v", err)
	}
}

func TestRootOrGroup(t *testing.T) {
	const adminGID = 975
	policy := RootOrGroup(adminGID)

	tests := []struct {
		name string
		peer Peer
		want bool
	}{
		{"root", Peer{UID: 0, GID: 0}, true},
		{"admin group member", Peer{UID: 1000, GID: adminGID}, true},
		{"other user", Peer{UID: 1000, GID: 1000}, false},
		{"root group but not root uid", Peer{UID: 1000, GID: 0}, false},
	}
	for _, test := range tests {
		err := policy.Authorize(test.peer)
		if authorized := err == nil; authorized != test.want {
			t.Errorf("%s: authorized=%v (err=%v), want %v", test.name, authorized, err, test.want)
		}
		if err != nil && !errors.Is(err, ErrUnauthorized) {
			t.Errorf("%s: denial does not wrap ErrUnauthorized: %v", test.name, err)
		}
	}
}

func TestDenyAllWrapsSentinel(t *testing.T) {
	if err := DenyAll().Authorize(Peer{UID: 0}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("DenyAll denial does not wrap ErrUnauthorized: %v", err)
	}
}

func TestAllowAll(t *testing.T) {
	if err := AllowAll().Authorize(Peer{UID: 65534}); err != nil {
		t.Errorf("AllowAll denied: %v", err)
	}
}
