// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

package hwmon

import "sync"

// NewFake returns a Fake controller with the given fans. Tests mutate
// fan state through the Controller operations or the Set* helpers.
func NewFake(fans ...FakeFan) *Fake {
	fake := &Fake{fans: make([]FakeFan, len(fans))}
	copy(fake.fans, fans)
	return fake
}

// FakeFan is the register state of one fan in a Fake controller. A
// nil optional field models an unreadable register.
type FakeFan struct {
	Actual *int
	Min    *int
	Max    *int
	Target *int
	Forced bool

	// RejectWrites makes SetTargetRPM and the mode toggles report
	// failure without changing state, modeling a busy or read-only
	// controller.
	RejectWrites bool
}

// SetCall records one SetTargetRPM invocation, for ordering and
// idempotence assertions.
type SetCall struct {
	Fan int
	RPM int
}

// Fake is an in-memory Controller for tests. Safe for concurrent use,
// matching the daemon's concurrent dispatch.
type Fake struct {
	mu    sync.Mutex
	fans  []FakeFan
	calls []SetCall
}

func (f *Fake) FanCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fans)
}

func (f *Fake) ActualRPM(i int) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.valid(i) || f.fans[i].Actual == nil {
		return 0, false
	}
	return *f.fans[i].Actual, true
}

func (f *Fake) MinRPM(i int) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.valid(i) || f.fans[i].Min == nil {
		return 0, false
	}
	return *f.fans[i].Min, true
}

func (f *Fake) MaxRPM(i int) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.valid(i) || f.fans[i].Max == nil {
		return 0, false
	}
	return *f.fans[i].Max, true
}

func (f *Fake) TargetRPM(i int) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.valid(i) || f.fans[i].Target == nil {
		return 0, false
	}
	return *f.fans[i].Target, true
}

func (f *Fake) SetTargetRPM(i, rpm int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.valid(i) {
		return false
	}
	f.calls = append(f.calls, SetCall{Fan: i, RPM: rpm})
	if f.fans[i].RejectWrites {
		return false
	}
	value := rpm
	f.fans[i].Target = &value
	return true
}

func (f *Fake) EnableForcedMode(i int) bool {
	return f.setForced(i, true)
}

func (f *Fake) DisableForcedMode(i int) bool {
	return f.setForced(i, false)
}

func (f *Fake) IsForcedMode(i int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.valid(i) && f.fans[i].Forced
}

func (f *Fake) Close() {}

// SetActual updates the measured speed of fan i, simulating the
// physical fan responding to a setpoint.
func (f *Fake) SetActual(i, rpm int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.valid(i) {
		value := rpm
		f.fans[i].Actual = &value
	}
}

// Calls returns a copy of every SetTargetRPM invocation so far, in
// issue order.
func (f *Fake) Calls() []SetCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := make([]SetCall, len(f.calls))
	copy(calls, f.calls)
	return calls
}

func (f *Fake) setForced(i int, forced bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.valid(i) {
		return false
	}
	if f.fans[i].RejectWrites {
		return false
	}
	f.fans[i].Forced = forced
	return true
}

func (f *Fake) valid(i int) bool {
	return i >= 0 && i < len(f.fans)
}

// IntPtr returns a pointer to value, for FakeFan literals.
func IntPtr(value int) *int { return &value }
