// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// settingsTemplate is the commented settings file written by the
// -settings-template flag. Values shown are the defaults.
const settingsTemplate = `# SubRewind settings.
# Every value shown is the default; delete anything you do not change.
# Environment variables override this file (see README for the full list).

plex:
  # Plex Media Server base URL.
  url: "http://127.0.0.1:32400"
  # Path to the credentials file holding AppToken and ClientIdentifier.
  credentials_path: "credentials.conf"
  # Device name shown to players when commands are sent directly.
  device_name: "SubRewind"

monitor:
  # Poll period while a rewind cycle is open / while everything is quiet.
  active_tick: 1s
  idle_tick: 5s
  # A backwards jump larger than max_rewind is treated as deliberate seeking.
  max_rewind: 60s
  # Smallest backwards jump that reacts; exactly this far does nothing.
  rewind_trigger: 2s
  # Forward slack beyond normal playback before a jump counts as a skip.
  fast_forward_margin: 2s
  # How long a session missing from a refresh is kept before retiring.
  session_grace: 15s
  # Assumed accuracy of player-reported positions.
  position_resolution: 1s

subtitles:
  # Ordered match patterns against each stream's display title,
  # case-insensitive. A leading '-' excludes matches.
  preferences:
    - "english"
    - "-forced"
  # Prefer external (sidecar) subtitle streams over embedded ones.
  prefer_external: true

dispatch:
  # Send player commands straight to the device instead of via the server.
  send_direct: false
  command_timeout: 8s
  poll_timeout: 1s

listener:
  # Notification transport: "sse" or "websocket".
  transport: "sse"
  buffer: 256

server:
  # Local read-only status API (health, sessions, metrics).
  enabled: true
  host: "127.0.0.1"
  port: 32460
  timeout: 30s

logging:
  # trace, debug, info, warn, error, fatal
  level: "info"
  # json or console
  format: "json"
  caller: false

instance:
  background: false
  pid_file: "subrewind.pid"
  allow_duplicate: false
`

// WriteSettingsTemplate writes the commented settings template to path.
// It refuses to overwrite an existing file.
func WriteSettingsTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("refusing to overwrite existing file %s", path)
	}
	if err := os.WriteFile(path, []byte(settingsTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write settings template %s: %w", path, err)
	}
	return nil
}

// WriteCredentialsTemplate writes a credentials file with an empty token and
// a freshly generated client identifier. It refuses to overwrite an existing
// file so a live token cannot be clobbered by accident.
func WriteCredentialsTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("refusing to overwrite existing file %s", path)
	}
	creds := &Credentials{
		AppToken:         "",
		ClientIdentifier: NewClientIdentifier(),
	}
	return SaveCredentials(path, creds)
}

// RenderSettings renders cfg as a settings file body with the full schema.
// Used by -update-settings-file to rewrite an older file with any keys added
// since it was created, preserving the operator's values.
func RenderSettings(cfg *Config) string {
	var b strings.Builder

	b.WriteString("# SubRewind settings.\n")
	fmt.Fprintf(&b, "# Rewritten by -update-settings-file on %s.\n\n", time.Now().Format("2006-01-02"))

	fmt.Fprintf(&b, "plex:\n")
	fmt.Fprintf(&b, "  url: %q\n", cfg.Plex.URL)
	fmt.Fprintf(&b, "  credentials_path: %q\n", cfg.Plex.CredentialsPath)
	fmt.Fprintf(&b, "  device_name: %q\n\n", cfg.Plex.DeviceName)

	fmt.Fprintf(&b, "monitor:\n")
	fmt.Fprintf(&b, "  active_tick: %s\n", cfg.Monitor.ActiveTick)
	fmt.Fprintf(&b, "  idle_tick: %s\n", cfg.Monitor.IdleTick)
	fmt.Fprintf(&b, "  max_rewind: %s\n", cfg.Monitor.MaxRewind)
	fmt.Fprintf(&b, "  rewind_trigger: %s\n", cfg.Monitor.RewindTrigger)
	fmt.Fprintf(&b, "  fast_forward_margin: %s\n", cfg.Monitor.FastForwardMargin)
	fmt.Fprintf(&b, "  session_grace: %s\n", cfg.Monitor.SessionGrace)
	fmt.Fprintf(&b, "  position_resolution: %s\n\n", cfg.Monitor.PositionResolution)

	fmt.Fprintf(&b, "subtitles:\n")
	fmt.Fprintf(&b, "  preferences:\n")
	for _, p := range cfg.Subtitles.Preferences {
		fmt.Fprintf(&b, "    - %q\n", p)
	}
	fmt.Fprintf(&b, "  prefer_external: %t\n\n", cfg.Subtitles.PreferExternal)

	fmt.Fprintf(&b, "dispatch:\n")
	fmt.Fprintf(&b, "  send_direct: %t\n", cfg.Dispatch.SendDirectToDevice)
	fmt.Fprintf(&b, "  command_timeout: %s\n", cfg.Dispatch.CommandTimeout)
	fmt.Fprintf(&b, "  poll_timeout: %s\n\n", cfg.Dispatch.PollTimeout)

	fmt.Fprintf(&b, "listener:\n")
	fmt.Fprintf(&b, "  transport: %q\n", cfg.Listener.Transport)
	fmt.Fprintf(&b, "  buffer: %d\n\n", cfg.Listener.Buffer)

	fmt.Fprintf(&b, "server:\n")
	fmt.Fprintf(&b, "  enabled: %t\n", cfg.Server.Enabled)
	fmt.Fprintf(&b, "  host: %q\n", cfg.Server.Host)
	fmt.Fprintf(&b, "  port: %d\n", cfg.Server.Port)
	fmt.Fprintf(&b, "  timeout: %s\n\n", cfg.Server.Timeout)

	fmt.Fprintf(&b, "logging:\n")
	fmt.Fprintf(&b, "  level: %q\n", cfg.Logging.Level)
	fmt.Fprintf(&b, "  format: %q\n", cfg.Logging.Format)
	fmt.Fprintf(&b, "  caller: %t\n\n", cfg.Logging.Caller)

	fmt.Fprintf(&b, "instance:\n")
	fmt.Fprintf(&b, "  background: %t\n", cfg.Instance.Background)
	fmt.Fprintf(&b, "  pid_file: %q\n", cfg.Instance.PIDFile)
	fmt.Fprintf(&b, "  allow_duplicate: %t\n", cfg.Instance.AllowDuplicate)

	return b.String()
}

// UpdateSettingsFile rewrites the active settings file with the full current
// schema, keeping the values already set in it. When no settings file exists
// the default template is written to the first default path instead.
func UpdateSettingsFile() (string, error) {
	cfg, err := LoadWithKoanf()
	if err != nil {
		return "", err
	}

	path := findConfigFile()
	if path == "" {
		path = DefaultConfigPaths[0]
		if err := os.WriteFile(path, []byte(settingsTemplate), 0o644); err != nil {
			return "", fmt.Errorf("failed to write settings file %s: %w", path, err)
		}
		return path, nil
	}

	if err := os.WriteFile(path, []byte(RenderSettings(cfg)), 0o644); err != nil {
		return "", fmt.Errorf("failed to rewrite settings file %s: %w", path, err)
	}
	return path, nil
}
