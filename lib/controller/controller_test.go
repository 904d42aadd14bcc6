// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/fand-project/fand/lib/clock"
	"github.com/fand-project/fand/lib/curve"
	"github.com/fand-project/fand/lib/sensor"
	"github.com/fand-project/fand/lib/testutil"
)

var testEpoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

type setCall struct {
	fan int
	rpm int
}

// fakeService records daemon calls and can be told to fail them.
type fakeService struct {
	mu          sync.Mutex
	failSet     bool
	failEnable  bool
	failDisable bool

	setCalls     chan setCall
	enableCalls  chan int
	disableCalls chan int
}

func newFakeService() *fakeService {
	return &fakeService{
		setCalls:     make(chan setCall, 16),
		enableCalls:  make(chan int, 16),
		disableCalls: make(chan int, 16),
	}
}

func (s *fakeService) SetFanSpeed(ctx context.Context, fan, rpm int) (int, error) {
	s.mu.Lock()
	fail := s.failSet
	s.mu.Unlock()
	s.setCalls <- setCall{fan: fan, rpm: rpm}
	if fail {
		return 0, fmt.Errorf("daemon unreachable")
	}
	return rpm, nil
}

func (s *fakeService) EnableForcedMode(ctx context.Context, fan int) error {
	s.mu.Lock()
	fail := s.failEnable
	s.mu.Unlock()
	s.enableCalls <- fan
	if fail {
		return fmt.Errorf("daemon unreachable")
	}
	return nil
}

func (s *fakeService) DisableForcedMode(ctx context.Context, fan int) error {
	s.mu.Lock()
	fail := s.failDisable
	s.mu.Unlock()
	s.disableCalls <- fan
	if fail {
		return fmt.Errorf("daemon unreachable")
	}
	return nil
}

func (s *fakeService) setFailSet(fail bool) {
	s.mu.Lock()
	s.failSet = fail
	s.mu.Unlock()
}

// startLoop runs a Loop against a fake clock and fake service.
// Returns the loop, the clock, and the service.
func startLoop(t *testing.T, configure func(*Config)) (*Loop, *clock.FakeClock, *fakeService) {
	t.Helper()

	fakeClock := clock.Fake(testEpoch)
	service := newFakeService()
	cfg := Config{
		Fan:      0,
		Interval: time.Second,
		Curve:    curve.Default(),
		MinRPM:   1200,
		MaxRPM:   5500,
		Source:   sensor.Static(78),
		Service:  service,
		Clock:    fakeClock,
		Logger:   testLogger(),
	}
	if configure != nil {
		configure(&cfg)
	}

	loop, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		testutil.RequireClosed(t, done, 5*time.Second, "loop shutdown")
	})

	// The ticker must be registered before any Advance.
	fakeClock.BlockUntilWaiters(1)
	return loop, fakeClock, service
}

func TestAutomaticTickIssuesCurveTarget(t *testing.T) {
	// 78° maps to 4200 on the default curve, inside [1200, 5500].
	loop, fakeClock, service := startLoop(t, nil)

	fakeClock.Advance(time.Second)

	call := testutil.RequireReceive(t, service.setCalls, 5*time.Second, "automatic setpoint")
	if call.fan != 0 || call.rpm != 4200 {
		t.Errorf("set call = %+v, want fan 0 rpm 4200", call)
	}

	waitForApplied(t, loop, 4200)
}

func TestCurveOutputBoundedToFanRange(t *testing.T) {
	// 95° maps to 6000 on the default curve; the fan's max is 5500.
	_, fakeClock, service := startLoop(t, func(cfg *Config) {
		cfg.Source = sensor.Static(95)
	})

	fakeClock.Advance(time.Second)

	call := testutil.RequireReceive(t, service.setCalls, 5*time.Second, "bounded setpoint")
	if call.rpm != 5500 {
		t.Errorf("set call rpm = %d, want 5500 (bounded)", call.rpm)
	}
}

func TestFailedSampleSkipsTick(t *testing.T) {
	_, fakeClock, service := startLoop(t, func(cfg *Config) {
		cfg.Source = sensor.Func(func(context.Context) (float64, bool) {
			return 0, false
		})
	})

	fakeClock.Advance(time.Second)

	testutil.RequireNoReceive(t, service.setCalls, 200*time.Millisecond,
		"tick with failed sample must not issue a setpoint")
}

func TestFailedSetKeepsLoopRunning(t *testing.T) {
	ticks := make(chan Tick, 16)
	_, fakeClock, service := startLoop(t, func(cfg *Config) {
		cfg.OnTick = func(tick Tick) { ticks <- tick }
	})

	service.setFailSet(true)
	fakeClock.Advance(time.Second)

	testutil.RequireReceive(t, service.setCalls, 5*time.Second, "first (failing) call")
	tick := testutil.RequireReceive(t, ticks, 5*time.Second, "failed tick observation")
	if tick.Err == nil {
		t.Fatal("failed call not reported to observer")
	}
	if !tick.Time.Equal(testEpoch.Add(time.Second)) {
		t.Errorf("tick time = %v, want %v", tick.Time, testEpoch.Add(time.Second))
	}

	// The loop must carry on: the next tick issues again.
	service.setFailSet(false)
	fakeClock.Advance(time.Second)

	call := testutil.RequireReceive(t, service.setCalls, 5*time.Second, "call after failure")
	if call.rpm != 4200 {
		t.Errorf("post-failure call rpm = %d, want 4200", call.rpm)
	}
}

func TestForcedModeSuppressesTicks(t *testing.T) {
	loop, fakeClock, service := startLoop(t, nil)

	if err := loop.SetForced(context.Background(), 3000); err != nil {
		t.Fatalf("SetForced: %v", err)
	}
	testutil.RequireReceive(t, service.enableCalls, 5*time.Second, "enable-forced-mode call")
	call := testutil.RequireReceive(t, service.setCalls, 5*time.Second, "forced setpoint")
	if call.rpm != 3000 {
		t.Errorf("forced setpoint = %d, want 3000", call.rpm)
	}
	if loop.Mode() != Forced {
		t.Fatalf("mode = %v, want forced", loop.Mode())
	}

	// Ticks now issue nothing.
	fakeClock.Advance(3 * time.Second)
	testutil.RequireNoReceive(t, service.setCalls, 200*time.Millisecond,
		"forced mode must not recompute on ticks")
}

func TestForceRPMOnlyInForcedMode(t *testing.T) {
	loop, _, service := startLoop(t, nil)

	if err := loop.ForceRPM(context.Background(), 2500); err == nil {
		t.Fatal("ForceRPM accepted in automatic mode")
	}

	if err := loop.SetForced(context.Background(), 3000); err != nil {
		t.Fatalf("SetForced: %v", err)
	}
	drain(service.setCalls)

	if err := loop.ForceRPM(context.Background(), 2500); err != nil {
		t.Fatalf("ForceRPM: %v", err)
	}
	call := testutil.RequireReceive(t, service.setCalls, 5*time.Second, "explicit forced setpoint")
	if call.rpm != 2500 {
		t.Errorf("forced setpoint = %d, want 2500", call.rpm)
	}
}

func TestSetAutomaticResumesTicks(t *testing.T) {
	loop, fakeClock, service := startLoop(t, nil)

	if err := loop.SetForced(context.Background(), 3000); err != nil {
		t.Fatalf("SetForced: %v", err)
	}
	drain(service.setCalls)

	if err := loop.SetAutomatic(context.Background()); err != nil {
		t.Fatalf("SetAutomatic: %v", err)
	}
	testutil.RequireReceive(t, service.disableCalls, 5*time.Second, "disable-forced-mode call")
	if loop.Mode() != Automatic {
		t.Fatalf("mode = %v, want automatic", loop.Mode())
	}

	fakeClock.Advance(time.Second)
	call := testutil.RequireReceive(t, service.setCalls, 5*time.Second, "resumed automatic setpoint")
	if call.rpm != 4200 {
		t.Errorf("resumed setpoint = %d, want 4200", call.rpm)
	}
}

func TestModeMirrorNotUpdatedWithoutAck(t *testing.T) {
	loop, _, service := startLoop(t, nil)

	service.mu.Lock()
	service.failEnable = true
	service.mu.Unlock()

	if err := loop.SetForced(context.Background(), 3000); err == nil {
		t.Fatal("SetForced succeeded despite daemon rejection")
	}
	if loop.Mode() != Automatic {
		t.Errorf("mode mirror changed without daemon acknowledgment: %v", loop.Mode())
	}
}

func waitForApplied(t *testing.T, loop *Loop, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if applied, ok := loop.LastApplied(); ok && applied == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	applied, ok := loop.LastApplied()
	t.Fatalf("LastApplied = (%d, %v), want (%d, true)", applied, ok, want)
}

func drain(ch chan setCall) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
