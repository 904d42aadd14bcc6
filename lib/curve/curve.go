// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

package curve

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Point is one anchor of a fan curve: at Temperature degrees the fan
// should run at RPM. Between anchors the curve interpolates linearly.
type Point struct {
	Temperature float64 `yaml:"temperature"`
	RPM         int     `yaml:"rpm"`
}

// Curve maps a temperature to a target fan speed. It is monotonically
// non-decreasing by construction: New rejects any point set where a
// hotter anchor asks for a slower fan.
type Curve struct {
	points []Point
}

// New builds a Curve from anchor points. Points must be sorted by
// strictly increasing temperature with non-decreasing, non-negative
// RPM values, and at least one point is required.
func New(points []Point) (*Curve, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("curve needs at least one point")
	}
	for i, point := range points {
		if point.RPM < 0 {
			return nil, fmt.Errorf("point %d: negative rpm %d", i, point.RPM)
		}
		if i == 0 {
			continue
		}
		if point.Temperature <= points[i-1].Temperature {
			return nil, fmt.Errorf("point %d: temperature %.1f not above previous %.1f",
				i, point.Temperature, points[i-1].Temperature)
		}
		if point.RPM < points[i-1].RPM {
			return nil, fmt.Errorf("point %d: rpm %d below previous %d (curve must be non-decreasing)",
				i, point.RPM, points[i-1].RPM)
		}
	}

	curve := &Curve{points: make([]Point, len(points))}
	copy(curve.points, points)
	return curve, nil
}

// Default returns the built-in curve used when no configuration file
// is given: idle below 40°, ramping to full speed at 90°.
func Default() *Curve {
	curve, err := New([]Point{
		{Temperature: 40, RPM: 1200},
		{Temperature: 60, RPM: 2500},
		{Temperature: 75, RPM: 3900},
		{Temperature: 80, RPM: 4400},
		{Temperature: 90, RPM: 6000},
	})
	if err != nil {
		panic("curve: built-in default curve is invalid: " + err.Error())
	}
	return curve
}

// Evaluate returns the target RPM for a temperature. Temperatures
// below the first anchor get the first anchor's RPM; above the last,
// the last's. The result is always within [first.RPM, last.RPM];
// bounding to a specific fan's hardware range is the caller's job.
func (c *Curve) Evaluate(temperature float64) int {
	first := c.points[0]
	if temperature <= first.Temperature {
		return first.RPM
	}
	last := c.points[len(c.points)-1]
	if temperature >= last.Temperature {
		return last.RPM
	}

	for i := 1; i < len(c.points); i++ {
		upper := c.points[i]
		if temperature > upper.Temperature {
			continue
		}
		lower := c.points[i-1]
		span := upper.Temperature - lower.Temperature
		fraction := (temperature - lower.Temperature) / span
		rpm := float64(lower.RPM) + fraction*float64(upper.RPM-lower.RPM)
		return int(math.Round(rpm))
	}
	return last.RPM
}

// Points returns a copy of the curve's anchors, for display.
func (c *Curve) Points() []Point {
	points := make([]Point, len(c.points))
	copy(points, c.points)
	return points
}

// fileFormat is the YAML schema of a curve configuration file.
type fileFormat struct {
	Points []Point `yaml:"points"`
}

// Load reads a curve from a YAML file:
//
//	points:
//	  - temperature: 40
//	    rpm: 1200
//	  - temperature: 90
//	    rpm: 6000
func Load(path string) (*Curve, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading curve file: %w", err)
	}

	var parsed fileFormat
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parsing curve file %s: %w", path, err)
	}

	curve, err := New(parsed.Points)
	if err != nil {
		return nil, fmt.Errorf("invalid curve in %s: %w", path, err)
	}
	return curve, nil
}
