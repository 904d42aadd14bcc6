// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

// Package curve defines the temperature-to-RPM mapping the control
// loop evaluates on each tick. Curves are piecewise-linear over
// user-supplied anchor points, validated to be monotonically
// non-decreasing, and loadable from a YAML file.
package curve
