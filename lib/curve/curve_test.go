// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

package curve

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewRejectsInvalidPointSets(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
	}{
		{"empty", nil},
		{"negative rpm", []Point{{Temperature: 40, RPM: -1}}},
		{"unsorted temperatures", []Point{
			{Temperature: 60, RPM: 2000},
			{Temperature: 40, RPM: 3000},
		}},
		{"duplicate temperature", []Point{
			{Temperature: 40, RPM: 2000},
			{Temperature: 40, RPM: 3000},
		}},
		{"decreasing rpm", []Point{
			{Temperature: 40, RPM: 3000},
			{Temperature: 60, RPM: 2000},
		}},
	}
	for _, test := range tests {
		if _, err := New(test.points); err == nil {
			t.Errorf("%s: New accepted an invalid point set", test.name)
		}
	}
}

func TestEvaluateInterpolation(t *testing.T) {
	curve, err := New([]Point{
		{Temperature: 40, RPM: 1000},
		{Temperature: 60, RPM: 3000},
		{Temperature: 80, RPM: 5000},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		temperature float64
		want        int
	}{
		{30, 1000}, // below first anchor
		{40, 1000}, // at first anchor
		{50, 2000}, // midpoint of first segment
		{60, 3000}, // at middle anchor
		{70, 4000}, // midpoint of second segment
		{80, 5000}, // at last anchor
		{95, 5000}, // above last anchor
	}
	for _, test := range tests {
		if got := curve.Evaluate(test.temperature); got != test.want {
			t.Errorf("Evaluate(%.0f) = %d, want %d", test.temperature, got, test.want)
		}
	}
}

func TestEvaluateIsMonotonic(t *testing.T) {
	curve := Default()

	previous := -1
	for temperature := 0.0; temperature <= 110; temperature += 0.5 {
		rpm := curve.Evaluate(temperature)
		if rpm < previous {
			t.Fatalf("curve decreased: %d rpm at %.1f° after %d rpm", rpm, temperature, previous)
		}
		previous = rpm
	}
}

func TestDefaultCurveReferencePoint(t *testing.T) {
	// 78° sits in the 75°→80° segment of the default curve and maps
	// to 4200 RPM.
	if got := Default().Evaluate(78); got != 4200 {
		t.Errorf("Default().Evaluate(78) = %d, want 4200", got)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curve.yaml")
	content := `points:
  - temperature: 35
    rpm: 1100
  - temperature: 70
    rpm: 3600
  - temperature: 88
    rpm: 5800
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing curve file: %v", err)
	}

	curve, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := curve.Evaluate(35); got != 1100 {
		t.Errorf("Evaluate(35) = %d, want 1100", got)
	}
	if got := curve.Evaluate(100); got != 5800 {
		t.Errorf("Evaluate(100) = %d, want 5800", got)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curve.yaml")
	content := `points:
  - temperature: 70
    rpm: 3600
  - temperature: 35
    rpm: 1100
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing curve file: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted an unsorted curve")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load succeeded for a missing file")
	}
}
