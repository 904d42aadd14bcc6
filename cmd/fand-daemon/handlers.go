// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/fand-project/fand/lib/codec"
	"github.com/fand-project/fand/lib/ipc"
)

// registerHandlers binds the daemon's RPC surface to the socket
// server. check-authorization is the only action open to denied
// connections; everything else, reads included, requires an
// authorized peer.
func (d *Daemon) registerHandlers(server *ipc.Server) {
	server.Handle(ipc.ActionGetFanSpeed, d.handleGetFanSpeed)
	server.Handle(ipc.ActionSetFanSpeed, d.handleSetFanSpeed)
	server.Handle(ipc.ActionEnableForcedMode, d.handleEnableForcedMode)
	server.Handle(ipc.ActionDisableForcedMode, d.handleDisableForcedMode)
	server.Handle(ipc.ActionGetAllFanInfo, d.handleGetAllFanInfo)
	server.HandleOpen(ipc.ActionCheckAuthorization, d.handleCheckAuthorization)
}

func decodeRequest(raw []byte) (ipc.Request, error) {
	var request ipc.Request
	if err := codec.Unmarshal(raw, &request); err != nil {
		return ipc.Request{}, fmt.Errorf("invalid request: %w", err)
	}
	return request, nil
}

func (d *Daemon) handleGetFanSpeed(ctx context.Context, caller ipc.Caller, raw []byte) (any, error) {
	request, err := decodeRequest(raw)
	if err != nil {
		return nil, err
	}
	if err := d.validFan(request.Fan); err != nil {
		return nil, err
	}
	return d.fanInfo(request.Fan), nil
}

func (d *Daemon) handleSetFanSpeed(ctx context.Context, caller ipc.Caller, raw []byte) (any, error) {
	request, err := decodeRequest(raw)
	if err != nil {
		return nil, err
	}

	result, err := d.setFanSpeed(request.Fan, request.RPM)
	if err != nil {
		return nil, err
	}

	d.logger.Info("setpoint written",
		"fan", result.Fan,
		"requested", request.RPM,
		"applied", result.AppliedRPM,
		"peer_uid", caller.Peer.UID,
		"peer_pid", caller.Peer.PID,
	)
	return result, nil
}

func (d *Daemon) handleEnableForcedMode(ctx context.Context, caller ipc.Caller, raw []byte) (any, error) {
	return d.handleModeChange(caller, raw, true)
}

func (d *Daemon) handleDisableForcedMode(ctx context.Context, caller ipc.Caller, raw []byte) (any, error) {
	return d.handleModeChange(caller, raw, false)
}

func (d *Daemon) handleModeChange(caller ipc.Caller, raw []byte, forced bool) (any, error) {
	request, err := decodeRequest(raw)
	if err != nil {
		return nil, err
	}
	if err := d.setForcedMode(request.Fan, forced); err != nil {
		return nil, err
	}

	d.logger.Info("operating mode changed",
		"fan", request.Fan,
		"forced", forced,
		"peer_uid", caller.Peer.UID,
		"peer_pid", caller.Peer.PID,
	)
	return nil, nil
}

func (d *Daemon) handleGetAllFanInfo(ctx context.Context, caller ipc.Caller, raw []byte) (any, error) {
	return d.allFanInfo(), nil
}

// handleCheckAuthorization reports the connection's policy verdict:
// true exactly when this connection's mutating calls would be
// accepted.
func (d *Daemon) handleCheckAuthorization(ctx context.Context, caller ipc.Caller, raw []byte) (any, error) {
	return ipc.AuthResult{Authorized: caller.Authorized}, nil
}
