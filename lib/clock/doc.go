// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source so that periodic
// work (the fan-curve control loop) can be tested deterministically.
// Production code uses Real(); tests use Fake() and advance time
// explicitly.
package clock
