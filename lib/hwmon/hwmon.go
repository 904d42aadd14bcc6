// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

package hwmon

// Controller is the hardware register interface for a fan controller.
// The daemon holds exactly one Controller for its entire lifetime; no
// other component touches hardware.
//
// Every accessor returns an optional value or a success flag rather
// than an error. Register access is inherently flaky — firmware busy,
// key absent on this chip — and a privileged long-running daemon must
// degrade to "unknown" rather than crash. Range validation is the
// caller's job: SetTargetRPM performs the raw write only, keeping the
// hardware boundary thin and auditable.
//
// Fan indices are 0-based and stable for the life of the Controller.
type Controller interface {
	// FanCount returns the number of fans the hardware reports.
	// Queried once at open and cached.
	FanCount() int

	// ActualRPM returns the current measured speed of fan i, or
	// ok=false if the sensor read fails.
	ActualRPM(i int) (rpm int, ok bool)

	// MinRPM returns the hardware minimum speed bound for fan i, or
	// ok=false if the register is unreachable.
	MinRPM(i int) (rpm int, ok bool)

	// MaxRPM returns the hardware maximum speed bound for fan i, or
	// ok=false if the register is unreachable.
	MaxRPM(i int) (rpm int, ok bool)

	// TargetRPM returns the currently commanded setpoint for fan i,
	// or ok=false if none is in force or the register is unreadable.
	TargetRPM(i int) (rpm int, ok bool)

	// SetTargetRPM writes a new setpoint for fan i and reports
	// whether the hardware acknowledged the write. The caller must
	// pre-clamp rpm into the fan's valid range.
	SetTargetRPM(i, rpm int) bool

	// EnableForcedMode switches fan i to forced (manual) mode, in
	// which only explicit setpoint writes take effect.
	EnableForcedMode(i int) bool

	// DisableForcedMode returns fan i to automatic mode, in which
	// the firmware's own control loop may adjust the speed.
	DisableForcedMode(i int) bool

	// IsForcedMode reports whether fan i is currently in forced
	// mode. Returns false when the mode register is unreadable.
	IsForcedMode(i int) bool

	// Close releases any held resources.
	Close()
}
