// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

package authorization

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// PeerFromConn reads the connecting process's credentials from a unix
// socket via SO_PEERCRED. The kernel fills these from the peer at
// connect time; unlike anything carried in the request payload, they
// cannot be spoofed by an unprivileged process.
//
// Note the known limit of this evidence: it identifies the uid/gid,
// not the binary. A hardened Policy that verifies code identity needs
// a different source (e.g., hashing /proc/<pid>/exe), which is why
// Peer carries the PID.
func PeerFromConn(conn *net.UnixConn) (Peer, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return Peer{}, fmt.Errorf("accessing raw connection: %w", err)
	}

	var credentials *unix.Ucred
	var credentialsErr error
	controlErr := raw.Control(func(fd uintptr) {
		credentials, credentialsErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if controlErr != nil {
		return Peer{}, fmt.Errorf("raw control: %w", controlErr)
	}
	if credentialsErr != nil {
		return Peer{}, fmt.Errorf("SO_PEERCRED: %w", credentialsErr)
	}

	return Peer{
		UID: credentials.Uid,
		GID: credentials.Gid,
		PID: credentials.Pid,
	}, nil
}
