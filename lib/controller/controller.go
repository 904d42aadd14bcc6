// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fand-project/fand/lib/clock"
	"github.com/fand-project/fand/lib/curve"
	"github.com/fand-project/fand/lib/sensor"
)

// Mode is the loop's local mirror of the fan's operating mode. The
// daemon owns the authoritative mode; the mirror changes only after
// the daemon acknowledges a mode switch.
type Mode int

const (
	// Automatic: each tick evaluates the curve and issues a
	// setpoint.
	Automatic Mode = iota

	// Forced: the loop issues nothing on ticks; the fan holds the
	// last explicit setpoint.
	Forced
)

func (m Mode) String() string {
	if m == Forced {
		return "forced"
	}
	return "automatic"
}

// FanService is the subset of daemon calls the loop issues. Satisfied
// by *ipc.Client.
type FanService interface {
	SetFanSpeed(ctx context.Context, fan, rpm int) (applied int, err error)
	EnableForcedMode(ctx context.Context, fan int) error
	DisableForcedMode(ctx context.Context, fan int) error
}

// Tick reports the outcome of one automatic-mode control step to the
// observer. Err is set when the set-speed call failed; the loop keeps
// running regardless.
type Tick struct {
	// Time is when the step ran, per the loop's clock.
	Time time.Time

	Temperature float64
	Target      int
	Applied     int
	Err         error
}

// Config assembles a Loop.
type Config struct {
	// Fan is the index this loop controls. One Loop drives one fan.
	Fan int

	// Interval is the tick cadence. Required.
	Interval time.Duration

	// Curve maps temperature to RPM. Required.
	Curve *curve.Curve

	// MinRPM and MaxRPM bound the curve's output to the fan's known
	// operating range before the call is issued. The daemon clamps
	// again regardless; bounding here just keeps the request honest.
	// Zero MaxRPM disables client-side bounding.
	MinRPM int
	MaxRPM int

	Source  sensor.Source
	Service FanService
	Clock   clock.Clock
	Logger  *slog.Logger

	// CallTimeout bounds each daemon call issued by a tick. Zero
	// means the service's own default applies.
	CallTimeout time.Duration

	// OnTick, when set, observes every automatic-mode control step.
	// Called synchronously from the loop goroutine.
	OnTick func(Tick)
}

// Loop is the client-side fan-curve control loop. Run ticks on the
// configured interval; SetForced, ForceRPM, and SetAutomatic serve
// user intents from other goroutines.
type Loop struct {
	cfg Config

	mu          sync.Mutex
	mode        Mode
	lastApplied int
	hasApplied  bool
}

// New validates cfg and returns a Loop starting in Automatic mode.
func New(cfg Config) (*Loop, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("controller: interval must be positive")
	}
	if cfg.Curve == nil {
		return nil, fmt.Errorf("controller: curve is required")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("controller: temperature source is required")
	}
	if cfg.Service == nil {
		return nil, fmt.Errorf("controller: fan service is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loop{cfg: cfg}, nil
}

// Run ticks until ctx is cancelled. Each tick completes its daemon
// call before the next tick is considered, so setpoints for the fan
// are issued strictly in order; ticks that arrive while a call is
// still in flight are dropped by the ticker, not queued.
//
// A failed tick — sample failure, transport error, daemon rejection —
// is reported and skipped. The loop never stops on its own: a stalled
// loop would leave the fan pinned at a stale setpoint, which is worse
// than missing one update.
func (l *Loop) Run(ctx context.Context) error {
	ticker := l.cfg.Clock.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	l.cfg.Logger.Info("control loop running",
		"fan", l.cfg.Fan,
		"interval", l.cfg.Interval,
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

// tick performs one automatic-mode control step.
func (l *Loop) tick(ctx context.Context) {
	if l.Mode() != Automatic {
		return
	}

	temperature, ok := l.cfg.Source.Read(ctx)
	if !ok {
		// A failed sample means skip, not "zero degrees": acting on
		// zero would spin the fan down against a possibly hot part.
		l.cfg.Logger.Warn("temperature sample failed, skipping tick", "fan", l.cfg.Fan)
		return
	}

	target := l.bound(l.cfg.Curve.Evaluate(temperature))
	applied, err := l.setSpeed(ctx, target)

	if err != nil {
		l.cfg.Logger.Warn("set-fan-speed failed, will retry next tick",
			"fan", l.cfg.Fan,
			"target", target,
			"error", err,
		)
	} else {
		l.recordApplied(applied)
		l.cfg.Logger.Debug("setpoint applied",
			"fan", l.cfg.Fan,
			"temperature", temperature,
			"target", target,
			"applied", applied,
		)
	}

	if l.cfg.OnTick != nil {
		l.cfg.OnTick(Tick{
			Time:        l.cfg.Clock.Now(),
			Temperature: temperature,
			Target:      target,
			Applied:     applied,
			Err:         err,
		})
	}
}

// SetForced switches the fan to forced mode holding rpm. The local
// mode mirror updates only after the daemon acknowledges both the
// mode switch and the setpoint — the loop never assumes success.
func (l *Loop) SetForced(ctx context.Context, rpm int) error {
	ctx, cancel := l.callContext(ctx)
	defer cancel()

	if err := l.cfg.Service.EnableForcedMode(ctx, l.cfg.Fan); err != nil {
		return fmt.Errorf("enabling forced mode: %w", err)
	}

	l.mu.Lock()
	l.mode = Forced
	l.mu.Unlock()

	applied, err := l.cfg.Service.SetFanSpeed(ctx, l.cfg.Fan, l.bound(rpm))
	if err != nil {
		// Mode switched but the setpoint didn't land; the fan holds
		// its previous value until the user retries. Still forced.
		return fmt.Errorf("setting forced speed: %w", err)
	}
	l.recordApplied(applied)
	return nil
}

// ForceRPM issues an explicit setpoint while in forced mode.
func (l *Loop) ForceRPM(ctx context.Context, rpm int) error {
	if l.Mode() != Forced {
		return fmt.Errorf("fan %d is in automatic mode; switch to forced first", l.cfg.Fan)
	}

	ctx, cancel := l.callContext(ctx)
	defer cancel()

	applied, err := l.cfg.Service.SetFanSpeed(ctx, l.cfg.Fan, l.bound(rpm))
	if err != nil {
		return err
	}
	l.recordApplied(applied)
	return nil
}

// SetAutomatic returns the fan to automatic mode. The mirror updates
// only on daemon acknowledgment.
func (l *Loop) SetAutomatic(ctx context.Context) error {
	ctx, cancel := l.callContext(ctx)
	defer cancel()

	if err := l.cfg.Service.DisableForcedMode(ctx, l.cfg.Fan); err != nil {
		return fmt.Errorf("disabling forced mode: %w", err)
	}

	l.mu.Lock()
	l.mode = Automatic
	l.mu.Unlock()
	return nil
}

// Mode returns the local mode mirror.
func (l *Loop) Mode() Mode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode
}

// LastApplied returns the most recent daemon-acknowledged setpoint.
func (l *Loop) LastApplied() (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastApplied, l.hasApplied
}

func (l *Loop) setSpeed(ctx context.Context, rpm int) (int, error) {
	ctx, cancel := l.callContext(ctx)
	defer cancel()
	return l.cfg.Service.SetFanSpeed(ctx, l.cfg.Fan, rpm)
}

func (l *Loop) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.cfg.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, l.cfg.CallTimeout)
}

func (l *Loop) recordApplied(rpm int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastApplied = rpm
	l.hasApplied = true
}

// bound clamps rpm into the fan's known operating range.
func (l *Loop) bound(rpm int) int {
	if l.cfg.MaxRPM <= 0 {
		return rpm
	}
	if rpm < l.cfg.MinRPM {
		return l.cfg.MinRPM
	}
	if rpm > l.cfg.MaxRPM {
		return l.cfg.MaxRPM
	}
	return rpm
}
