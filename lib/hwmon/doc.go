// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

// Package hwmon owns the hardware boundary of fand: the typed register
// interface to the fan controller. The production backend reads and
// writes Linux hwmon sysfs attributes; the in-package Fake backs the
// daemon and control-loop tests.
//
// The design rule for this package is that nothing here fails loudly.
// Registers go absent when firmware is busy or a key does not exist on
// this chip model, and the privileged daemon above must keep running
// through that, so every accessor reports an optional value or a
// success flag instead of an error.
package hwmon
