// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

// Package controller runs the client-side fan control loop: sample a
// temperature, evaluate the curve, issue a setpoint to the daemon,
// repeat. It holds the client's mirror of the fan's operating mode
// and refuses to update that mirror without a daemon acknowledgment.
package controller
