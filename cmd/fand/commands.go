// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/fand-project/fand/lib/ipc"
)

// oneShotTimeout bounds every single-call command. Generous for a
// local socket, short enough that a wedged daemon fails the command
// instead of hanging the terminal.
const oneShotTimeout = 15 * time.Second

func newFlagSet(name string) (*pflag.FlagSet, *string) {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	socketPath := flags.String("socket", defaultSocketPath, "daemon socket path")
	return flags, socketPath
}

func cmdStatus(args []string) error {
	flags, socketPath := newFlagSet("status")
	if err := flags.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), oneShotTimeout)
	defer cancel()

	fans, err := ipc.NewClient(*socketPath).GetAllFanInfo(ctx)
	if err != nil {
		return err
	}
	if len(fans) == 0 {
		fmt.Println("no fans")
		return nil
	}
	for _, info := range fans {
		printFan(info)
	}
	return nil
}

func cmdSet(args []string) error {
	flags, socketPath := newFlagSet("set")
	fan := flags.Int("fan", 0, "fan index")
	rpm := flags.Int("rpm", -1, "target speed in RPM (required)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *rpm < 0 {
		return fmt.Errorf("set: --rpm is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), oneShotTimeout)
	defer cancel()

	applied, err := ipc.NewClient(*socketPath).SetFanSpeed(ctx, *fan, *rpm)
	if err != nil {
		return err
	}
	if applied != *rpm {
		fmt.Printf("fan %d: requested %d rpm, daemon applied %d (clamped to the fan's range)\n", *fan, *rpm, applied)
	} else {
		fmt.Printf("fan %d: set to %d rpm\n", *fan, applied)
	}
	return nil
}

func cmdMode(args []string) error {
	flags, socketPath := newFlagSet("mode")
	fan := flags.Int("fan", 0, "fan index")
	if err := flags.Parse(args); err != nil {
		return err
	}

	mode := flags.Arg(0)
	if mode != "forced" && mode != "automatic" {
		return fmt.Errorf("mode: argument must be \"forced\" or \"automatic\"")
	}

	ctx, cancel := context.WithTimeout(context.Background(), oneShotTimeout)
	defer cancel()

	client := ipc.NewClient(*socketPath)
	var err error
	if mode == "forced" {
		err = client.EnableForcedMode(ctx, *fan)
	} else {
		err = client.DisableForcedMode(ctx, *fan)
	}
	if err != nil {
		return err
	}
	fmt.Printf("fan %d: %s mode\n", *fan, mode)
	return nil
}

func cmdCheckAuth(args []string) error {
	flags, socketPath := newFlagSet("check-auth")
	if err := flags.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), oneShotTimeout)
	defer cancel()

	authorized, err := ipc.NewClient(*socketPath).CheckAuthorization(ctx)
	if err != nil {
		return err
	}
	if authorized {
		fmt.Println("authorized")
		return nil
	}
	fmt.Println("not authorized (need root or fand group membership)")
	return nil
}
