// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import "github.com/fand-project/fand/lib/codec"

// Action names for the fan protocol. Every request carries exactly
// one of these in its "action" field.
const (
	// ActionGetFanSpeed reads one fan's current speed, effective
	// bounds, setpoint, and mode. No side effects.
	ActionGetFanSpeed = "get-fan-speed"

	// ActionSetFanSpeed requests a new setpoint. The daemon clamps
	// the requested RPM into the fan's effective bounds before the
	// hardware write; an out-of-range request is not an error.
	ActionSetFanSpeed = "set-fan-speed"

	// ActionEnableForcedMode switches a fan to forced (manual) mode.
	ActionEnableForcedMode = "enable-forced-mode"

	// ActionDisableForcedMode returns a fan to automatic mode.
	ActionDisableForcedMode = "disable-forced-mode"

	// ActionGetAllFanInfo returns one record per fan, ordered by
	// index. No side effects.
	ActionGetAllFanInfo = "get-all-fan-info"

	// ActionCheckAuthorization reports whether this connection's
	// mutating calls would be accepted. It is the one action served
	// on denied connections, so a client can self-test before
	// surfacing controls to its user.
	ActionCheckAuthorization = "check-authorization"
)

// Request is the CBOR request sent to the daemon socket. Fields
// beyond Action are action-specific; unused fields are omitted from
// the encoding.
type Request struct {
	// Action is one of the Action* constants.
	Action string `cbor:"action"`

	// Fan is the 0-based fan index for per-fan actions. Omitted (and
	// therefore 0, the primary fan) is valid: the protocol
	// generalizes every call to an explicit index but keeps fan 0 as
	// the default addressee.
	Fan int `cbor:"fan,omitempty"`

	// RPM is the requested speed for set-fan-speed.
	RPM int `cbor:"rpm,omitempty"`
}

// Response is the wire envelope for every reply. Exactly one response
// is sent per request, on the same connection.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// FanInfo is the per-fan record returned by get-fan-speed and
// get-all-fan-info. Pointer fields are optionals: nil means the
// underlying register read failed or no value is in force.
type FanInfo struct {
	// Index is the 0-based fan index.
	Index int `cbor:"index"`

	// CurrentRPM is the measured speed. Nil when the sensor read
	// failed; the display layer shows "unknown", never zero.
	CurrentRPM *int `cbor:"current_rpm,omitempty"`

	// MinRPM and MaxRPM are the effective bounds the daemon clamps
	// against: the hardware's reported range, or the fallback
	// defaults when the registers were unreadable at startup. The
	// daemon always fills them; they are optionals only so that
	// other protocol participants can omit them.
	MinRPM *int `cbor:"min_rpm,omitempty"`
	MaxRPM *int `cbor:"max_rpm,omitempty"`

	// TargetRPM is the commanded setpoint currently in force, if any.
	TargetRPM *int `cbor:"target_rpm,omitempty"`

	// Forced reports the fan's operating mode: true when explicit
	// setpoints override the firmware loop.
	Forced bool `cbor:"forced"`
}

// SetResult is the data payload of a successful set-fan-speed reply.
type SetResult struct {
	// Fan echoes the addressed fan index.
	Fan int `cbor:"fan"`

	// AppliedRPM is the value actually written after clamping. The
	// client mirrors this, not its own request, as the authoritative
	// setpoint.
	AppliedRPM int `cbor:"applied_rpm"`
}

// FanList is the data payload of get-all-fan-info.
type FanList struct {
	Fans []FanInfo `cbor:"fans"`
}

// AuthResult is the data payload of check-authorization.
type AuthResult struct {
	Authorized bool `cbor:"authorized"`
}
