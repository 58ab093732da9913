// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

// Package main is the entry point for the SubRewind agent.
//
// SubRewind watches playback sessions on a Plex Media Server and briefly
// turns subtitles on when a viewer rewinds, turning them back off once
// playback passes the point the rewind started from. It runs as a small
// sidecar next to the server and never persists anything.
//
// # Application Architecture
//
// The agent initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered settings (defaults, settings.yaml, env)
//  2. Credentials: token and client identifier from the credentials file
//  3. Plex client and command dispatcher (circuit breaker, dual routing)
//  4. Activity bus: in-process Watermill feed backing the activity API
//  5. Notification listener: SSE or WebSocket stream from the server
//  6. Monitor manager: session registry plus per-session rewind monitors
//  7. Supervisor tree: Suture v4 with a pipeline layer and an API layer
//  8. Status API: read-only health, sessions, activity, and metrics
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the supervisor tree stops,
// then every open rewind cycle is closed by restoring the player's subtitle
// state before the process exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/subrewind/internal/api"
	"github.com/tomtom215/subrewind/internal/bus"
	"github.com/tomtom215/subrewind/internal/config"
	"github.com/tomtom215/subrewind/internal/listener"
	"github.com/tomtom215/subrewind/internal/logging"
	"github.com/tomtom215/subrewind/internal/monitor"
	"github.com/tomtom215/subrewind/internal/plex"
	"github.com/tomtom215/subrewind/internal/supervisor"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

// shutdownGrace bounds the final force-off pass over open rewind cycles.
const shutdownGrace = 10 * time.Second

func main() {
	os.Exit(run())
}

//nolint:gocyclo // Sequential CLI dispatch and setup steps
func run() int {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "subrewind: %v\n", err)
		printUsage()
		return 2
	}

	if opts.Help {
		printUsage()
		return 0
	}

	// Template and maintenance flags exit before any connection is made.
	if opts.SettingsTemplate {
		if err := config.WriteSettingsTemplate(config.DefaultConfigPaths[0]); err != nil {
			fmt.Fprintf(os.Stderr, "subrewind: %v\n", err)
			return 1
		}
		fmt.Printf("Wrote settings template to %s\n", config.DefaultConfigPaths[0])
		return 0
	}

	if opts.UpdateSettingsFile {
		path, err := config.UpdateSettingsFile()
		if err != nil {
			fmt.Fprintf(os.Stderr, "subrewind: %v\n", err)
			return 1
		}
		fmt.Printf("Settings file updated: %s\n", path)
		return 0
	}

	if opts.TestSettings {
		if _, err := config.LoadWithKoanf(); err != nil {
			fmt.Fprintf(os.Stderr, "subrewind: settings invalid: %v\n", err)
			return 1
		}
		if path := config.FindConfigFile(); path != "" {
			fmt.Printf("Settings OK (%s)\n", path)
		} else {
			fmt.Println("Settings OK (built-in defaults)")
		}
		return 0
	}

	cfg, err := config.LoadWithKoanf()
	if err != nil {
		fmt.Fprintf(os.Stderr, "subrewind: failed to load configuration: %v\n", err)
		return 1
	}

	if opts.TokenTemplate {
		if err := config.WriteCredentialsTemplate(cfg.Plex.CredentialsPath); err != nil {
			fmt.Fprintf(os.Stderr, "subrewind: %v\n", err)
			return 1
		}
		fmt.Printf("Wrote credentials template to %s; fill in your Plex token.\n", cfg.Plex.CredentialsPath)
		return 0
	}

	// CLI switches override the loaded configuration.
	if opts.Debug {
		cfg.Logging.Level = "debug"
	}
	if opts.Verbose {
		cfg.Logging.Level = "trace"
		cfg.Logging.Format = "console"
	}
	if opts.Background {
		cfg.Instance.Background = true
	}
	if opts.AllowDuplicate {
		cfg.Instance.AllowDuplicate = true
	}

	if opts.Stop {
		if err := stopInstance(cfg.Instance.PIDFile); err != nil {
			fmt.Fprintf(os.Stderr, "subrewind: %v\n", err)
			return 1
		}
		fmt.Println("Stop signal sent.")
		return 0
	}

	if cfg.Instance.Background && !alreadyDaemonized() {
		pid, err := daemonize(cfg.Instance.PIDFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "subrewind: %v\n", err)
			return 1
		}
		fmt.Printf("SubRewind running in the background (pid %d).\n", pid)
		return 0
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if !cfg.Instance.AllowDuplicate {
		if pid, running := instanceRunning(cfg.Instance.PIDFile); running {
			logging.Error().Int("pid", pid).Msg("Another instance is already running; use -allow-duplicate-instance to override")
			return 1
		}
	}
	if err := writePIDFile(cfg.Instance.PIDFile); err != nil {
		logging.Error().Err(err).Msg("Failed to write pidfile")
		return 1
	}
	defer removePIDFile(cfg.Instance.PIDFile)

	creds, err := config.ResolveCredentials(cfg)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to resolve Plex credentials")
		return 1
	}

	logging.Info().
		Str("version", version).
		Str("plex_url", logging.SanitizeURL(cfg.Plex.URL)).
		Str("transport", cfg.Listener.Transport).
		Bool("send_direct", cfg.Dispatch.SendDirectToDevice).
		Msg("Starting SubRewind")

	// Pipeline wiring. The client satisfies the registry's lister/poller
	// seams and the listener's credentials seam.
	client := plex.NewClient(cfg, creds)
	dispatcher := plex.NewDispatcher(client, cfg)
	broker := bus.NewBroker(0)
	lst := listener.NewListener(client, cfg)
	manager := monitor.NewManager(client, client, dispatcher, lst.Events(), cfg, broker)
	connection := supervisor.NewConnectionSupervisor(client, lst, manager, broker)

	tree := supervisor.NewTree(supervisor.DefaultTreeConfig())
	tree.AddPipelineService(supervisor.NewBrokerService(broker))
	tree.AddPipelineService(connection)

	if cfg.Server.Enabled {
		handler := api.NewHandler(manager, broker, connection, cfg.Listener.Transport, version)
		server := &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      api.NewRouter(handler),
			ReadTimeout:  cfg.Server.Timeout,
			WriteTimeout: cfg.Server.Timeout,
			IdleTimeout:  60 * time.Second,
		}
		tree.AddAPIService(supervisor.NewHTTPServerService(server, shutdownGrace))
		logging.Info().Str("addr", server.Addr).Msg("Status API enabled")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, stopping supervisor tree")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree stopped")
		}
	}

	// Drain remaining supervisor errors so nothing is lost on the way down.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Close every open rewind cycle: a viewer's subtitles must not stay
	// stuck on because the agent exited mid-cycle.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	manager.Shutdown(shutdownCtx)
	shutdownCancel()

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	if err := broker.Close(); err != nil {
		logging.Warn().Err(err).Msg("Activity bus close failed")
	}

	logging.Info().Msg("SubRewind stopped")
	return 0
}
