// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fand-project/fand/lib/controller"
	"github.com/fand-project/fand/lib/curve"
	"github.com/fand-project/fand/lib/ipc"
	"github.com/fand-project/fand/lib/sensor"
)

// revertTimeout bounds the return-to-automatic call issued during
// shutdown. The interrupt already cancelled the main context, so the
// revert gets its own.
const revertTimeout = 5 * time.Second

// cmdRun drives one fan from a temperature curve until interrupted.
func cmdRun(args []string) error {
	flags, socketPath := newFlagSet("run")
	fan := flags.Int("fan", 0, "fan index to control")
	interval := flags.Duration("interval", 2*time.Second, "control loop tick interval")
	curvePath := flags.String("curve", "", "YAML fan curve file (built-in curve if empty)")
	sensorMatch := flags.String("sensor", "", "substring match on sensor keys (hottest match wins; empty matches all)")
	forceRPM := flags.Int("force", -1, "start in forced mode at this RPM instead of running the curve")
	debug := flags.Bool("debug", false, "enable debug logging")
	if err := flags.Parse(args); err != nil {
		return err
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	fanCurve := curve.Default()
	if *curvePath != "" {
		loaded, err := curve.Load(*curvePath)
		if err != nil {
			return err
		}
		fanCurve = loaded
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := ipc.NewClient(*socketPath)

	// Fetch the fan's effective bounds up front. They double as a
	// liveness and authorization probe: a missing daemon or denied
	// connection fails here instead of silently dropping every tick.
	info, err := client.GetFanSpeed(ctx, *fan)
	if err != nil {
		return fmt.Errorf("querying fan %d: %w", *fan, err)
	}

	cfg := controller.Config{
		Fan:      *fan,
		Interval: *interval,
		Curve:    fanCurve,
		Source:   sensor.NewHost(*sensorMatch, logger),
		Service:  client,
		Logger:   logger,
	}
	if info.MinRPM != nil && info.MaxRPM != nil {
		cfg.MinRPM = *info.MinRPM
		cfg.MaxRPM = *info.MaxRPM
	}

	loop, err := controller.New(cfg)
	if err != nil {
		return err
	}

	if *forceRPM >= 0 {
		if err := loop.SetForced(ctx, *forceRPM); err != nil {
			return err
		}
		logger.Info("holding forced setpoint", "fan", *fan, "rpm", *forceRPM)
	}

	// The loop only returns when the context is cancelled; that is the
	// normal exit, not an error.
	if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	// Hand the fan back to the hardware's automatic control so an
	// interrupted session never leaves it pinned.
	revertCtx, cancel := context.WithTimeout(context.Background(), revertTimeout)
	defer cancel()
	if err := loop.SetAutomatic(revertCtx); err != nil {
		logger.Warn("could not return fan to automatic mode", "fan", *fan, "error", err)
		return nil
	}
	logger.Info("fan returned to automatic mode", "fan", *fan)
	return nil
}
