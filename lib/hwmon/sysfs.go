// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

package hwmon

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// pwmEnable register values, per the kernel hwmon sysfs ABI.
const (
	pwmModeForced    = 1 // manual: fan holds the commanded setpoint
	pwmModeAutomatic = 2 // firmware control loop owns the speed
)

// Sysfs is a Controller backed by a Linux hwmon chip. The register
// key families it uses are the conventional ones for this hardware
// class: fan<N>_input (measured speed), fan<N>_min and fan<N>_max
// (operating bounds), fan<N>_target (setpoint), and pwm<N>_enable
// (mode flag). Exact encodings stay behind this type; callers only
// see the typed Controller operations.
//
// hwmon attribute files are numbered from 1; Controller fan indices
// are 0-based. The shift happens here and nowhere else.
type Sysfs struct {
	chipDir  string
	chipName string
	fanCount int
	logger   *slog.Logger
}

// Open resolves a hwmon chip under /sys/class/hwmon and returns a
// Controller for it. chipName selects a chip by its sysfs "name"
// attribute; when empty, the first chip exposing fan1_input is used.
func Open(chipName string, logger *slog.Logger) (*Sysfs, error) {
	return openFrom("/sys/class/hwmon", chipName, logger)
}

// openFrom is the testable implementation of Open. It accepts the
// hwmon class root so tests can point at a synthetic tree.
func openFrom(root, chipName string, logger *slog.Logger) (*Sysfs, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading hwmon class directory %s: %w", root, err)
	}

	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "hwmon") {
			continue
		}
		chipDir := filepath.Join(root, entry.Name())
		name, _ := readRegisterString(filepath.Join(chipDir, "name"))

		if chipName != "" {
			if name != chipName {
				continue
			}
		} else if _, err := os.Stat(filepath.Join(chipDir, "fan1_input")); err != nil {
			continue
		}

		controller := &Sysfs{
			chipDir:  chipDir,
			chipName: name,
			logger:   logger,
		}
		controller.fanCount = countFans(chipDir)
		if controller.fanCount == 0 {
			return nil, fmt.Errorf("hwmon chip %q at %s exposes no fan registers", name, chipDir)
		}
		logger.Info("fan controller opened",
			"chip", name,
			"path", chipDir,
			"fans", controller.fanCount,
		)
		return controller, nil
	}

	if chipName != "" {
		return nil, fmt.Errorf("no hwmon chip named %q under %s", chipName, root)
	}
	return nil, fmt.Errorf("no hwmon chip with fan registers under %s", root)
}

// countFans counts contiguous fan<N>_input attributes starting at 1.
// Fan numbering gaps are rare and a chip that has them exposes the
// fans before the gap, which is the safe subset to manage.
func countFans(chipDir string) int {
	count := 0
	for {
		path := filepath.Join(chipDir, fmt.Sprintf("fan%d_input", count+1))
		if _, err := os.Stat(path); err != nil {
			return count
		}
		count++
	}
}

// ChipName returns the sysfs "name" attribute of the managed chip.
func (s *Sysfs) ChipName() string { return s.chipName }

func (s *Sysfs) FanCount() int { return s.fanCount }

func (s *Sysfs) ActualRPM(i int) (int, bool) {
	return s.readFanRegister(i, "input")
}

func (s *Sysfs) MinRPM(i int) (int, bool) {
	return s.readFanRegister(i, "min")
}

func (s *Sysfs) MaxRPM(i int) (int, bool) {
	return s.readFanRegister(i, "max")
}

func (s *Sysfs) TargetRPM(i int) (int, bool) {
	return s.readFanRegister(i, "target")
}

func (s *Sysfs) SetTargetRPM(i, rpm int) bool {
	if !s.validFan(i) {
		return false
	}
	path := filepath.Join(s.chipDir, fmt.Sprintf("fan%d_target", i+1))
	return s.writeRegister(path, rpm)
}

func (s *Sysfs) EnableForcedMode(i int) bool {
	return s.writeModeRegister(i, pwmModeForced)
}

func (s *Sysfs) DisableForcedMode(i int) bool {
	return s.writeModeRegister(i, pwmModeAutomatic)
}

func (s *Sysfs) IsForcedMode(i int) bool {
	if !s.validFan(i) {
		return false
	}
	path := filepath.Join(s.chipDir, fmt.Sprintf("pwm%d_enable", i+1))
	mode, ok := readRegisterInt(path)
	return ok && mode == pwmModeForced
}

// Close is a no-op for the sysfs backend: registers are opened per
// operation, so there is no held descriptor. Present to satisfy
// Controller.
func (s *Sysfs) Close() {}

func (s *Sysfs) validFan(i int) bool {
	return i >= 0 && i < s.fanCount
}

// readFanRegister reads fan<i+1>_<suffix>. Absent or unparsable
// registers report ok=false, never an error — a transient EC read
// failure must not distinguish itself from a missing key.
func (s *Sysfs) readFanRegister(i int, suffix string) (int, bool) {
	if !s.validFan(i) {
		return 0, false
	}
	path := filepath.Join(s.chipDir, fmt.Sprintf("fan%d_%s", i+1, suffix))
	return readRegisterInt(path)
}

func (s *Sysfs) writeModeRegister(i, mode int) bool {
	if !s.validFan(i) {
		return false
	}
	path := filepath.Join(s.chipDir, fmt.Sprintf("pwm%d_enable", i+1))
	return s.writeRegister(path, mode)
}

// writeRegister writes a decimal value to a sysfs attribute. Failures
// are logged at debug level and reported as false; the daemon's reply
// carries the outcome upstream.
func (s *Sysfs) writeRegister(path string, value int) bool {
	if err := os.WriteFile(path, []byte(strconv.Itoa(value)), 0644); err != nil {
		s.logger.Debug("register write failed", "path", path, "value", value, "error", err)
		return false
	}
	return true
}

// readRegisterString reads a single-line sysfs attribute.
func readRegisterString(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// readRegisterInt reads an integer sysfs attribute.
func readRegisterInt(path string) (int, bool) {
	text, ok := readRegisterString(path)
	if !ok {
		return 0, false
	}
	value, err := strconv.Atoi(text)
	if err != nil {
		return 0, false
	}
	return value, true
}
