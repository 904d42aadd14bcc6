// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/fand-project/fand/lib/ipc"
)

const defaultSocketPath = "/run/fand/fand.sock"

const usage = `fand controls the fan daemon.

Usage:
  fand <command> [flags]

Commands:
  status      show every fan's speed, setpoint, bounds, and mode
  set         write a fan setpoint (daemon clamps into the fan's range)
  mode        switch a fan between automatic and forced mode
  check-auth  report whether this user may issue fan commands
  run         drive a fan from a temperature curve until interrupted

Run "fand <command> --help" for the command's flags.
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fand: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("no command given")
	}

	command, rest := args[0], args[1:]
	switch command {
	case "status":
		return cmdStatus(rest)
	case "set":
		return cmdSet(rest)
	case "mode":
		return cmdMode(rest)
	case "check-auth":
		return cmdCheckAuth(rest)
	case "run":
		return cmdRun(rest)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

// formatOptional renders a possibly-absent reading. The daemon omits
// values the hardware would not report; showing "-" keeps that
// distinct from a real zero.
func formatOptional(value *int) string {
	if value == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *value)
}

func modeString(forced bool) string {
	if forced {
		return "forced"
	}
	return "automatic"
}

func printFan(info ipc.FanInfo) {
	fmt.Printf("fan %d: current %s rpm, target %s rpm, range [%s, %s], mode %s\n",
		info.Index,
		formatOptional(info.CurrentRPM),
		formatOptional(info.TargetRPM),
		formatOptional(info.MinRPM),
		formatOptional(info.MaxRPM),
		modeString(info.Forced),
	)
}
