// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"os/user"
	"strconv"
	"syscall"

	"github.com/fand-project/fand/lib/authorization"
	"github.com/fand-project/fand/lib/hwmon"
	"github.com/fand-project/fand/lib/ipc"
)

// defaultSocketPath is where clients expect the daemon. The directory
// is created at startup; /run is tmpfs, so a stale socket never
// survives a reboot.
const defaultSocketPath = "/run/fand/fand.sock"

// defaultAdminGroup is the unix group whose members may issue calls
// without being root. Created by the package installer; when absent,
// the daemon falls back to a root-only policy.
const defaultAdminGroup = "fand"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		socketPath string
		chipName   string
		adminGroup string
		debug      bool
	)

	flag.StringVar(&socketPath, "socket", defaultSocketPath, "unix socket path for the control channel")
	flag.StringVar(&chipName, "chip", "", "hwmon chip name to manage (auto-detect the first fan-bearing chip if empty)")
	flag.StringVar(&adminGroup, "admin-group", defaultAdminGroup, "unix group allowed to connect alongside root (empty for root-only)")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The hardware handle is the reason this process exists: failing
	// to acquire it is the one fatal startup condition besides the
	// socket bind. Everything after this degrades instead of exiting.
	controller, err := hwmon.Open(chipName, logger)
	if err != nil {
		return fmt.Errorf("opening fan controller: %w", err)
	}
	defer controller.Close()

	daemon := newDaemon(controller, logger)
	for fan, bounds := range daemon.bounds {
		logger.Info("fan registered",
			"fan", fan,
			"min_rpm", bounds.min,
			"max_rpm", bounds.max,
			"bounds_from_hardware", bounds.fromHardware,
		)
	}

	policy, socketGID := buildPolicy(adminGroup, logger)

	server := ipc.NewServer(socketPath, policy, logger)
	if socketGID >= 0 {
		server.SetSocketGroup(socketGID)
	}
	daemon.registerHandlers(server)

	// Serve blocks until ctx is cancelled, then drains in-flight
	// requests. Hardware and mode state need no teardown: the fan
	// stays at its last hardware-level state, which clients can
	// correct as soon as a new daemon binds the socket.
	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("serving control socket: %w", err)
	}
	logger.Info("shut down")
	return nil
}

// buildPolicy resolves the admin group and returns the connection
// policy plus the gid for socket group ownership (-1 when disabled).
func buildPolicy(adminGroup string, logger *slog.Logger) (authorization.Policy, int) {
	if adminGroup == "" {
		logger.Info("admin group disabled, root-only policy")
		return authorization.RootOnly(), -1
	}

	group, err := user.LookupGroup(adminGroup)
	if err != nil {
		logger.Warn("admin group not found, falling back to root-only policy",
			"group", adminGroup,
			"error", err,
		)
		return authorization.RootOnly(), -1
	}

	gid, err := strconv.Atoi(group.Gid)
	if err != nil {
		logger.Warn("admin group has non-numeric gid, falling back to root-only policy",
			"group", adminGroup,
			"gid", group.Gid,
		)
		return authorization.RootOnly(), -1
	}

	logger.Info("admin group resolved", "group", adminGroup, "gid", gid)
	return authorization.RootOrGroup(uint32(gid)), gid
}
