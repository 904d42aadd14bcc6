// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/fand-project/fand/lib/hwmon"
	"github.com/fand-project/fand/lib/ipc"
)

// Fallback clamp bounds, used for a fan whose hardware min/max
// registers were unreadable at startup. Conservative for the hardware
// class this daemon manages.
const (
	fallbackMinRPM = 1000
	fallbackMaxRPM = 6000
)

// fanBounds is one fan's effective operating range. Read from
// hardware once per daemon session and immutable afterwards.
type fanBounds struct {
	min          int
	max          int
	fromHardware bool
}

// Daemon owns the hardware handle and the per-fan state the RPC
// handlers operate on. All fields are set before the socket starts
// serving; the per-fan mutexes are the only synchronization, giving
// one write in flight per fan and untorn reads.
type Daemon struct {
	controller hwmon.Controller
	bounds     []fanBounds
	fanLocks   []sync.Mutex
	logger     *slog.Logger
}

// newDaemon queries each fan's operating bounds once and returns a
// Daemon ready to register handlers. Bounds queries that fail fall
// back to [fallbackMinRPM, fallbackMaxRPM] — the daemon still serves
// such fans, it just clamps against the conservative defaults.
func newDaemon(controller hwmon.Controller, logger *slog.Logger) *Daemon {
	count := controller.FanCount()
	daemon := &Daemon{
		controller: controller,
		bounds:     make([]fanBounds, count),
		fanLocks:   make([]sync.Mutex, count),
		logger:     logger,
	}

	for fan := 0; fan < count; fan++ {
		min, minOK := controller.MinRPM(fan)
		max, maxOK := controller.MaxRPM(fan)
		if minOK && maxOK && min <= max {
			daemon.bounds[fan] = fanBounds{min: min, max: max, fromHardware: true}
		} else {
			daemon.bounds[fan] = fanBounds{min: fallbackMinRPM, max: fallbackMaxRPM}
			logger.Warn("hardware bounds unavailable, using fallback clamp range",
				"fan", fan,
				"min", fallbackMinRPM,
				"max", fallbackMaxRPM,
			)
		}
	}
	return daemon
}

// clamp bounds rpm into fan's effective range. Out-of-range requests
// are honored at the nearest bound rather than rejected: the caller's
// intent (more or less cooling) survives clamping.
func (d *Daemon) clamp(fan, rpm int) int {
	bounds := d.bounds[fan]
	if rpm < bounds.min {
		return bounds.min
	}
	if rpm > bounds.max {
		return bounds.max
	}
	return rpm
}

func (d *Daemon) validFan(fan int) error {
	if fan < 0 || fan >= len(d.bounds) {
		return fmt.Errorf("no such fan: %d (have %d)", fan, len(d.bounds))
	}
	return nil
}

// fanInfo snapshots one fan under its lock, so a concurrent write
// cannot tear the record.
func (d *Daemon) fanInfo(fan int) ipc.FanInfo {
	d.fanLocks[fan].Lock()
	defer d.fanLocks[fan].Unlock()
	return d.fanInfoLocked(fan)
}

func (d *Daemon) fanInfoLocked(fan int) ipc.FanInfo {
	bounds := d.bounds[fan]
	info := ipc.FanInfo{
		Index:  fan,
		MinRPM: &bounds.min,
		MaxRPM: &bounds.max,
		Forced: d.controller.IsForcedMode(fan),
	}
	if rpm, ok := d.controller.ActualRPM(fan); ok {
		info.CurrentRPM = &rpm
	}
	if rpm, ok := d.controller.TargetRPM(fan); ok {
		info.TargetRPM = &rpm
	}
	return info
}

// setFanSpeed clamps and writes a setpoint. The hardware write itself
// carries the pre-clamped value only — lib/hwmon does not re-validate.
func (d *Daemon) setFanSpeed(fan, rpm int) (ipc.SetResult, error) {
	if err := d.validFan(fan); err != nil {
		return ipc.SetResult{}, err
	}

	d.fanLocks[fan].Lock()
	defer d.fanLocks[fan].Unlock()

	applied := d.clamp(fan, rpm)
	if !d.controller.SetTargetRPM(fan, applied) {
		return ipc.SetResult{}, fmt.Errorf("hardware did not acknowledge the write")
	}
	return ipc.SetResult{Fan: fan, AppliedRPM: applied}, nil
}

// setForcedMode toggles the fan's operating mode.
func (d *Daemon) setForcedMode(fan int, forced bool) error {
	if err := d.validFan(fan); err != nil {
		return err
	}

	d.fanLocks[fan].Lock()
	defer d.fanLocks[fan].Unlock()

	var acknowledged bool
	if forced {
		acknowledged = d.controller.EnableForcedMode(fan)
	} else {
		acknowledged = d.controller.DisableForcedMode(fan)
	}
	if !acknowledged {
		return fmt.Errorf("hardware did not acknowledge the mode change")
	}
	return nil
}

// allFanInfo snapshots every fan in index order.
func (d *Daemon) allFanInfo() ipc.FanList {
	list := ipc.FanList{Fans: make([]ipc.FanInfo, 0, len(d.bounds))}
	for fan := range d.bounds {
		list.Fans = append(list.Fans, d.fanInfo(fan))
	}
	return list
}
