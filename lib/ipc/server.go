// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fand-project/fand/lib/authorization"
	"github.com/fand-project/fand/lib/codec"
)

// readTimeout is how long the server waits for a connected client to
// send its request. A well-behaved client sends immediately after
// connecting.
const readTimeout = 30 * time.Second

// writeTimeout is how long the server waits for the response write.
const writeTimeout = 10 * time.Second

// maxRequestSize caps a single CBOR request. The fan protocol's
// largest request is a few dozen bytes; 64 KiB leaves room for
// protocol growth while keeping a hostile peer from exhausting
// memory.
const maxRequestSize = 64 * 1024

// Caller is the per-connection authorization context passed to every
// handler: the kernel-attested peer identity and the policy verdict
// made at accept time.
type Caller struct {
	Peer       authorization.Peer
	Authorized bool
}

// ActionFunc processes one request for a specific action. The raw
// parameter is the full CBOR request (including the "action" field);
// the handler decodes action-specific fields from it.
//
// Return a value to include in the success response, or an error for
// a failure response. A nil value yields a bare {ok: true}.
type ActionFunc func(ctx context.Context, caller Caller, raw []byte) (any, error)

// Server serves the fan protocol on a unix socket. Each connection
// handles exactly one request/response cycle: the client writes a
// CBOR request, the server replies, the connection closes. The
// connecting process's credentials are read via SO_PEERCRED and
// evaluated against the policy before dispatch; denied connections
// receive an unauthorized error for every action except those
// registered with HandleOpen.
type Server struct {
	socketPath string
	policy     authorization.Policy
	logger     *slog.Logger

	// socketGID, when >= 0, is applied as the socket file's group so
	// admin-group members can connect through the 0660 mode.
	socketGID int

	handlers map[string]ActionFunc

	// openActions marks handlers served even on denied connections
	// (check-authorization). Everything else requires authorization.
	openActions map[string]bool

	// activeConnections tracks in-flight handlers for graceful
	// shutdown: Serve drains them before returning.
	activeConnections sync.WaitGroup
}

// NewServer creates a server for socketPath gated by policy. Register
// actions with Handle or HandleOpen before calling Serve.
func NewServer(socketPath string, policy authorization.Policy, logger *slog.Logger) *Server {
	return &Server{
		socketPath:  socketPath,
		policy:      policy,
		logger:      logger,
		socketGID:   -1,
		handlers:    make(map[string]ActionFunc),
		openActions: make(map[string]bool),
	}
}

// SetSocketGroup sets the gid applied to the socket file at bind.
func (s *Server) SetSocketGroup(gid int) { s.socketGID = gid }

// Handle registers a handler for an action requiring authorization.
// Panics on duplicate registration.
func (s *Server) Handle(action string, handler ActionFunc) {
	if _, exists := s.handlers[action]; exists {
		panic(fmt.Sprintf("ipc.Server: duplicate handler for action %q", action))
	}
	s.handlers[action] = handler
}

// HandleOpen registers a handler served regardless of the policy
// verdict. Only non-mutating self-test actions belong here.
func (s *Server) HandleOpen(action string, handler ActionFunc) {
	s.Handle(action, handler)
	s.openActions[action] = true
}

// Serve binds the socket and dispatches requests until ctx is
// cancelled, then stops accepting and drains active handlers.
//
// Any stale socket file at the path is removed before listening. The
// socket is created mode 0660 (plus the configured group) so that
// socket permissions and the peer-credential policy gate access in
// depth. The socket file is removed on return.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := s.listen()
	if err != nil {
		return err
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()

	// Unblock Accept when the context is cancelled.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("control socket listening", "path", s.socketPath)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

// listen binds the unix socket with the access mode the daemon
// depends on.
func (s *Server) listen() (net.Listener, error) {
	socketDir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(socketDir, 0755); err != nil {
		return nil, fmt.Errorf("creating socket directory %s: %w", socketDir, err)
	}
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}

	if s.socketGID >= 0 {
		if err := os.Chown(s.socketPath, -1, s.socketGID); err != nil {
			listener.Close()
			return nil, fmt.Errorf("setting socket group: %w", err)
		}
	}
	if err := os.Chmod(s.socketPath, 0660); err != nil {
		listener.Close()
		return nil, fmt.Errorf("setting socket permissions: %w", err)
	}
	return listener, nil
}

// handleConnection processes one request/response cycle. The
// authorization verdict is made here, once, before any request bytes
// are trusted.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	caller, err := s.authorizeConn(conn)
	if err != nil {
		// Could not even read peer credentials: nothing about this
		// peer is trustworthy, so no reply beyond the error.
		s.logger.Warn("rejecting connection without credentials", "error", err)
		s.writeError(conn, "unauthorized")
		return
	}

	conn.SetReadDeadline(time.Now().Add(readTimeout))

	// Decode one CBOR value. CBOR is self-delimiting so no framing
	// protocol is needed; LimitReader bounds a hostile request.
	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			// Client connected but sent nothing.
			return
		}
		s.writeError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}

	var header struct {
		Action string `cbor:"action"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		s.writeError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if header.Action == "" {
		s.writeError(conn, "missing required field: action")
		return
	}

	handler, exists := s.handlers[header.Action]
	if !exists {
		s.writeError(conn, fmt.Sprintf("unknown action %q", header.Action))
		return
	}

	if !caller.Authorized && !s.openActions[header.Action] {
		s.logger.Warn("unauthorized request",
			"action", header.Action,
			"uid", caller.Peer.UID,
			"pid", caller.Peer.PID,
		)
		s.writeError(conn, "unauthorized")
		return
	}

	result, err := handler(ctx, caller, []byte(raw))
	if err != nil {
		s.logger.Debug("action failed",
			"action", header.Action,
			"error", err,
		)
		s.writeError(conn, err.Error())
		return
	}

	s.writeSuccess(conn, result)
}

// authorizeConn reads the peer's credentials and evaluates the
// policy. An error means credentials were unreadable; a readable but
// denied peer returns Authorized=false, not an error, so open actions
// still work.
func (s *Server) authorizeConn(conn net.Conn) (Caller, error) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return Caller{}, fmt.Errorf("connection is %T, not a unix socket", conn)
	}
	peer, err := authorization.PeerFromConn(unixConn)
	if err != nil {
		return Caller{}, err
	}

	caller := Caller{Peer: peer}
	if err := s.policy.Authorize(peer); err != nil {
		s.logger.Debug("policy denied peer",
			"uid", peer.UID,
			"gid", peer.GID,
			"pid", peer.PID,
			"error", err,
		)
		return caller, nil
	}
	caller.Authorized = true
	return caller, nil
}

// writeError sends {ok: false, error: message}. Write failures are
// logged at debug level; the connection is closing regardless.
func (s *Server) writeError(conn net.Conn, message string) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(Response{
		OK:    false,
		Error: message,
	}); err != nil {
		s.logger.Debug("failed to write error response", "error", err)
	}
}

// writeSuccess sends {ok: true} with the marshaled result in "data"
// when the handler returned one.
func (s *Server) writeSuccess(conn net.Conn, result any) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	response := Response{OK: true}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			s.writeError(conn, fmt.Sprintf("internal: marshaling response: %v", err))
			return
		}
		response.Data = data
	}

	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug("failed to write success response", "error", err)
	}
}
