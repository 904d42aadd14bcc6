// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

// Package sensor supplies the temperature input of the control loop.
// The loop consumes exactly one value per tick through the Source
// interface; how a temperature is measured (which sensors, which
// aggregation) stays behind it.
package sensor
