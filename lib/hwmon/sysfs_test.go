// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

package hwmon

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// writeChip builds a synthetic hwmon chip directory. attributes maps
// attribute file names to contents.
func writeChip(t *testing.T, root, dir, name string, attributes map[string]string) {
	t.Helper()
	chipDir := filepath.Join(root, dir)
	if err := os.MkdirAll(chipDir, 0755); err != nil {
		t.Fatalf("creating chip dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(chipDir, "name"), []byte(name+"\n"), 0644); err != nil {
		t.Fatalf("writing name: %v", err)
	}
	for attribute, content := range attributes {
		if err := os.WriteFile(filepath.Join(chipDir, attribute), []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", attribute, err)
		}
	}
}

func twoFanChip() map[string]string {
	return map[string]string{
		"fan1_input":  "2240\n",
		"fan1_min":    "1200\n",
		"fan1_max":    "5500\n",
		"fan1_target": "2200\n",
		"pwm1_enable": "2\n",
		"fan2_input":  "1980\n",
		"fan2_min":    "1100\n",
		"fan2_max":    "5200\n",
		"fan2_target": "2000\n",
		"pwm2_enable": "1\n",
	}
}

func TestOpenSelectsChipByName(t *testing.T) {
	root := t.TempDir()
	writeChip(t, root, "hwmon0", "coretemp", map[string]string{"temp1_input": "45000\n"})
	writeChip(t, root, "hwmon1", "applesmc", twoFanChip())

	controller, err := openFrom(root, "applesmc", testLogger())
	if err != nil {
		t.Fatalf("openFrom: %v", err)
	}
	defer controller.Close()

	if controller.ChipName() != "applesmc" {
		t.Errorf("ChipName = %q, want applesmc", controller.ChipName())
	}
	if controller.FanCount() != 2 {
		t.Errorf("FanCount = %d, want 2", controller.FanCount())
	}
}

func TestOpenPicksFirstChipWithFans(t *testing.T) {
	root := t.TempDir()
	writeChip(t, root, "hwmon0", "coretemp", map[string]string{"temp1_input": "45000\n"})
	writeChip(t, root, "hwmon1", "applesmc", twoFanChip())

	controller, err := openFrom(root, "", testLogger())
	if err != nil {
		t.Fatalf("openFrom: %v", err)
	}
	defer controller.Close()

	if controller.ChipName() != "applesmc" {
		t.Errorf("ChipName = %q, want applesmc", controller.ChipName())
	}
}

func TestOpenFailsWithoutFanRegisters(t *testing.T) {
	root := t.TempDir()
	writeChip(t, root, "hwmon0", "coretemp", map[string]string{"temp1_input": "45000\n"})

	if _, err := openFrom(root, "", testLogger()); err == nil {
		t.Fatal("openFrom succeeded with no fan-bearing chip")
	}
	if _, err := openFrom(root, "coretemp", testLogger()); err == nil {
		t.Fatal("openFrom succeeded for a chip without fan registers")
	}
}

func TestReadRegisters(t *testing.T) {
	root := t.TempDir()
	writeChip(t, root, "hwmon0", "applesmc", twoFanChip())
	controller, err := openFrom(root, "", testLogger())
	if err != nil {
		t.Fatalf("openFrom: %v", err)
	}

	tests := []struct {
		name   string
		read   func(int) (int, bool)
		fan    int
		want   int
		wantOK bool
	}{
		{"actual fan 0", controller.ActualRPM, 0, 2240, true},
		{"min fan 0", controller.MinRPM, 0, 1200, true},
		{"max fan 0", controller.MaxRPM, 0, 5500, true},
		{"target fan 0", controller.TargetRPM, 0, 2200, true},
		{"actual fan 1", controller.ActualRPM, 1, 1980, true},
		{"out of range fan", controller.ActualRPM, 2, 0, false},
		{"negative fan", controller.ActualRPM, -1, 0, false},
	}
	for _, test := range tests {
		got, ok := test.read(test.fan)
		if got != test.want || ok != test.wantOK {
			t.Errorf("%s: got (%d, %v), want (%d, %v)", test.name, got, ok, test.want, test.wantOK)
		}
	}
}

func TestAbsentRegisterReportsNotOK(t *testing.T) {
	root := t.TempDir()
	attributes := twoFanChip()
	delete(attributes, "fan1_target")
	writeChip(t, root, "hwmon0", "applesmc", attributes)

	controller, err := openFrom(root, "", testLogger())
	if err != nil {
		t.Fatalf("openFrom: %v", err)
	}
	if _, ok := controller.TargetRPM(0); ok {
		t.Error("TargetRPM reported ok for an absent register")
	}
}

func TestSetTargetRPMWritesRegister(t *testing.T) {
	root := t.TempDir()
	writeChip(t, root, "hwmon0", "applesmc", twoFanChip())
	controller, err := openFrom(root, "", testLogger())
	if err != nil {
		t.Fatalf("openFrom: %v", err)
	}

	if !controller.SetTargetRPM(0, 4200) {
		t.Fatal("SetTargetRPM failed")
	}
	data, err := os.ReadFile(filepath.Join(root, "hwmon0", "fan1_target"))
	if err != nil {
		t.Fatalf("reading written register: %v", err)
	}
	if written, _ := strconv.Atoi(string(data)); written != 4200 {
		t.Errorf("fan1_target = %q, want 4200", data)
	}

	got, ok := controller.TargetRPM(0)
	if !ok || got != 4200 {
		t.Errorf("TargetRPM after write = (%d, %v), want (4200, true)", got, ok)
	}
}

func TestForcedModeToggle(t *testing.T) {
	root := t.TempDir()
	writeChip(t, root, "hwmon0", "applesmc", twoFanChip())
	controller, err := openFrom(root, "", testLogger())
	if err != nil {
		t.Fatalf("openFrom: %v", err)
	}

	if controller.IsForcedMode(0) {
		t.Fatal("fan 0 starts forced; synthetic chip says automatic")
	}
	if !controller.EnableForcedMode(0) {
		t.Fatal("EnableForcedMode failed")
	}
	if !controller.IsForcedMode(0) {
		t.Error("IsForcedMode false immediately after EnableForcedMode")
	}
	if !controller.DisableForcedMode(0) {
		t.Fatal("DisableForcedMode failed")
	}
	if controller.IsForcedMode(0) {
		t.Error("IsForcedMode true immediately after DisableForcedMode")
	}
}

func TestFanIndexShift(t *testing.T) {
	// Controller index 1 must map to the chip's fan2_*/pwm2_* family.
	root := t.TempDir()
	writeChip(t, root, "hwmon0", "applesmc", twoFanChip())
	controller, err := openFrom(root, "", testLogger())
	if err != nil {
		t.Fatalf("openFrom: %v", err)
	}

	if !controller.IsForcedMode(1) {
		t.Error("fan 1 should be forced (pwm2_enable is 1)")
	}
	if !controller.SetTargetRPM(1, 3100) {
		t.Fatal("SetTargetRPM fan 1 failed")
	}
	data, err := os.ReadFile(filepath.Join(root, "hwmon0", "fan2_target"))
	if err != nil {
		t.Fatalf("reading fan2_target: %v", err)
	}
	if written, _ := strconv.Atoi(string(data)); written != 3100 {
		t.Errorf("fan2_target = %q, want 3100", data)
	}
}
