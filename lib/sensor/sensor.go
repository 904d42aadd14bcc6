// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

package sensor

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// Source yields the current temperature in degrees Celsius. ok=false
// signals a sampling failure; the control loop treats that as "skip
// this tick", never as zero degrees.
type Source interface {
	Read(ctx context.Context) (temperature float64, ok bool)
}

// Func adapts a function to the Source interface.
type Func func(ctx context.Context) (float64, bool)

func (f Func) Read(ctx context.Context) (float64, bool) { return f(ctx) }

// Static returns a Source that always yields the same temperature.
// Useful for tests and for pinning a curve evaluation by hand.
func Static(temperature float64) Source {
	return Func(func(context.Context) (float64, bool) {
		return temperature, true
	})
}

// Host reads temperatures from the operating system's sensors via
// gopsutil. When several sensors match, the hottest reading wins —
// the fan must serve the worst-case component.
type Host struct {
	// keyMatch filters sensors by substring of their sensor key
	// (e.g. "coretemp", "cpu"). Empty matches every sensor.
	keyMatch string
	logger   *slog.Logger
}

// NewHost returns a Source over the host's temperature sensors,
// filtered by keyMatch.
func NewHost(keyMatch string, logger *slog.Logger) *Host {
	return &Host{keyMatch: keyMatch, logger: logger}
}

func (h *Host) Read(ctx context.Context) (float64, bool) {
	readings, err := host.SensorsTemperaturesWithContext(ctx)
	if err != nil {
		h.logger.Debug("sensor read failed", "error", err)
		return 0, false
	}

	hottest := 0.0
	found := false
	for _, reading := range readings {
		if h.keyMatch != "" && !strings.Contains(strings.ToLower(reading.SensorKey), strings.ToLower(h.keyMatch)) {
			continue
		}
		if reading.Temperature <= 0 {
			// Zero and negative readings from gopsutil are sensor
			// glitches on this hardware class, not valid samples.
			continue
		}
		if !found || reading.Temperature > hottest {
			hottest = reading.Temperature
			found = true
		}
	}

	if !found {
		h.logger.Debug("no usable temperature sensor", "key_match", h.keyMatch, "sensors", len(readings))
		return 0, false
	}
	return hottest, true
}
