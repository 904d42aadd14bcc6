// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides channel assertion helpers shared by fand's
// tests. Every helper embeds a timeout so a broken synchronization bug
// fails the test instead of hanging the suite.
package testutil
