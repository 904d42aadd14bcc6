// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/fand-project/fand/lib/codec"
)

// dialAttempts, dialDelay, and dialMaxDelay shape the reconnect
// window the client rides out when the daemon restarts. Since every
// call dials fresh, surviving a restart only requires the dial itself
// to retry; a call that was in flight when the daemon died is
// reported as failed, exactly as the protocol requires.
const (
	dialAttempts = 5
	dialDelay    = 100 * time.Millisecond
	dialMaxDelay = 2 * time.Second
)

// defaultCallTimeout bounds a complete call (dial retries, write,
// read) when the caller's context carries no deadline. No call may
// block its caller indefinitely.
const defaultCallTimeout = 10 * time.Second

// maxResponseSize caps a single CBOR response, matching the server's
// request cap philosophy.
const maxResponseSize = 1024 * 1024

// CallError is returned when the daemon replies ok=false. Transport
// and encoding failures are plain errors, not CallError, so a caller
// can distinguish "the daemon rejected this" from "this call did not
// happen".
type CallError struct {
	Action  string
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("daemon rejected %q: %s", e.Action, e.Message)
}

// Client issues fan protocol calls to the daemon socket. Each call
// opens a new connection (matching the server's one-request-per-
// connection model), sends the request, reads the reply, and closes.
// A Client holds no connection state, so it is safe for concurrent
// use and needs no teardown.
type Client struct {
	socketPath string
}

// NewClient returns a client for the daemon socket at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// GetFanSpeed returns fan i's current speed, effective bounds,
// setpoint, and mode.
func (c *Client) GetFanSpeed(ctx context.Context, fan int) (FanInfo, error) {
	var info FanInfo
	err := c.call(ctx, Request{Action: ActionGetFanSpeed, Fan: fan}, &info)
	return info, err
}

// SetFanSpeed requests rpm for fan i and returns the value the daemon
// actually applied after clamping.
func (c *Client) SetFanSpeed(ctx context.Context, fan, rpm int) (int, error) {
	var result SetResult
	if err := c.call(ctx, Request{Action: ActionSetFanSpeed, Fan: fan, RPM: rpm}, &result); err != nil {
		return 0, err
	}
	return result.AppliedRPM, nil
}

// EnableForcedMode switches fan i to forced mode.
func (c *Client) EnableForcedMode(ctx context.Context, fan int) error {
	return c.call(ctx, Request{Action: ActionEnableForcedMode, Fan: fan}, nil)
}

// DisableForcedMode returns fan i to automatic mode.
func (c *Client) DisableForcedMode(ctx context.Context, fan int) error {
	return c.call(ctx, Request{Action: ActionDisableForcedMode, Fan: fan}, nil)
}

// GetAllFanInfo returns one record per fan, ordered by index.
func (c *Client) GetAllFanInfo(ctx context.Context) ([]FanInfo, error) {
	var list FanList
	if err := c.call(ctx, Request{Action: ActionGetAllFanInfo}, &list); err != nil {
		return nil, err
	}
	return list.Fans, nil
}

// CheckAuthorization reports whether this client's mutating calls
// would be accepted. It succeeds even when the daemon has denied the
// connection — that is the point of the call.
func (c *Client) CheckAuthorization(ctx context.Context) (bool, error) {
	var result AuthResult
	if err := c.call(ctx, Request{Action: ActionCheckAuthorization}, &result); err != nil {
		return false, err
	}
	return result.Authorized, nil
}

// call performs one request/response cycle. On ok=false the error is
// a *CallError; anything else means the call did not complete and the
// caller must treat the outcome as unknown-failed, never as success.
func (c *Client) call(ctx context.Context, request Request, result any) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultCallTimeout)
		defer cancel()
	}

	response, err := c.send(ctx, request)
	if err != nil {
		return fmt.Errorf("calling %q on %s: %w", request.Action, c.socketPath, err)
	}

	if !response.OK {
		return &CallError{Action: request.Action, Message: response.Error}
	}

	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding response data for %q: %w", request.Action, err)
		}
	}
	return nil
}

// send dials (with retry, to ride out a daemon restart), writes the
// request, and decodes the response envelope.
func (c *Client) send(ctx context.Context, request Request) (Response, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return Response{}, fmt.Errorf("writing request: %w", err)
	}

	// Half-close to signal we are done writing. CBOR is self-
	// delimiting so the protocol does not require this, but it lets
	// the daemon distinguish a slow client from a finished one.
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		return Response{}, fmt.Errorf("reading response: %w", err)
	}
	return response, nil
}

// dial connects to the daemon socket, retrying with backoff so a
// daemon restart between calls is invisible to the caller.
func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	var dialer net.Dialer
	var conn net.Conn

	err := retry.Do(func() error {
		var dialErr error
		conn, dialErr = dialer.DialContext(ctx, "unix", c.socketPath)
		return dialErr
	}, retry.Attempts(dialAttempts), retry.Delay(dialDelay), retry.MaxDelay(dialMaxDelay), retry.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("connecting to daemon: %w", err)
	}
	return conn, nil
}
