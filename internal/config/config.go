// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

package config

import (
	"time"
)

// Config holds all application configuration loaded from the settings file and
// environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in sensible defaults for all settings
//  2. Settings File: optional YAML file (settings.yaml) for persistent settings
//  3. Environment Variables: override any setting
//
// Configuration Categories:
//
//  1. Plex Connection:
//     - Plex: server URL, credentials file, device targeting
//
//  2. Behavior:
//     - Monitor: tick cadence, rewind window, session grace period
//     - Subtitles: preference patterns and external-stream preference
//     - Dispatch: command routing and timeouts
//     - Listener: notification transport selection
//
//  3. Observability:
//     - Server: local status API (optional)
//     - Logging: log levels and output formats
//
//  4. Process:
//     - Instance: background mode, PID file, duplicate-instance guard
//
// Thread Safety:
// Config is immutable after LoadWithKoanf() and safe for concurrent read
// access from multiple goroutines.
type Config struct {
	Plex      PlexConfig      `koanf:"plex"`
	Monitor   MonitorConfig   `koanf:"monitor"`
	Subtitles SubtitlesConfig `koanf:"subtitles"`
	Dispatch  DispatchConfig  `koanf:"dispatch"`
	Listener  ListenerConfig  `koanf:"listener"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Instance  InstanceConfig  `koanf:"instance"`
}

// PlexConfig holds Plex Media Server connection settings.
//
// The token and client identifier are normally read from the credentials file
// (CredentialsPath); Token and ClientIdentifier here act as overrides for
// container deployments where a mounted file is inconvenient.
//
// Environment Variables:
//   - PLEX_URL: Plex Media Server URL (e.g., http://localhost:32400)
//   - PLEX_TOKEN: X-Plex-Token override (normally read from credentials file)
//   - PLEX_CLIENT_IDENTIFIER: X-Plex-Client-Identifier override
//   - PLEX_CREDENTIALS_PATH: path to the AppToken/ClientIdentifier file
//   - PLEX_DEVICE_NAME: X-Plex-Device-Name sent on direct-to-player commands
type PlexConfig struct {
	URL              string `koanf:"url" validate:"required"`              // Plex Media Server URL (http://localhost:32400)
	Token            string `koanf:"token" validate:"omitempty,min=8"`     // X-Plex-Token override; takes precedence over the credentials file
	ClientIdentifier string `koanf:"client_identifier"`                    // X-Plex-Client-Identifier override
	CredentialsPath  string `koanf:"credentials_path" validate:"required"` // Path to the Key=Value credentials file
	DeviceName       string `koanf:"device_name"`                          // X-Plex-Device-Name header for direct commands
}

// MonitorConfig holds the rewind-detection cadence and window settings.
//
// ActiveTick is the poll period while any session is mid-rewind-cycle;
// IdleTick applies when every monitor is quiescent. MaxRewind bounds how far
// back a jump may land and still count as a "small" rewind: anything farther
// is treated as deliberate seeking and left alone.
//
// Environment Variables:
//   - MONITOR_ACTIVE_TICK: poll period during an active rewind cycle (default: 1s)
//   - MONITOR_IDLE_TICK: poll period when all sessions are quiet (default: 5s)
//   - MONITOR_MAX_REWIND: largest rewind that still triggers subtitles (default: 60s)
//   - MONITOR_REWIND_TRIGGER: minimum backwards jump to react to (default: 2s)
//   - MONITOR_FAST_FORWARD_MARGIN: forward jump slack before a skip is assumed (default: 2s)
//   - MONITOR_SESSION_GRACE: how long a vanished session is kept before retiring (default: 15s)
//   - MONITOR_POSITION_RESOLUTION: assumed accuracy of player-reported positions (default: 1s)
type MonitorConfig struct {
	ActiveTick         time.Duration `koanf:"active_tick" validate:"gte=200ms,lte=30s"`        // Tick period with a rewind cycle open
	IdleTick           time.Duration `koanf:"idle_tick" validate:"gtefield=ActiveTick,lte=5m"` // Tick period when idle
	MaxRewind          time.Duration `koanf:"max_rewind" validate:"gtfield=RewindTrigger"`     // Upper bound for an assisted rewind
	RewindTrigger      time.Duration `koanf:"rewind_trigger" validate:"gt=0"`                  // Minimum backwards jump that reacts
	FastForwardMargin  time.Duration `koanf:"fast_forward_margin" validate:"gte=0"`            // Forward slack before treating a jump as a skip
	SessionGrace       time.Duration `koanf:"session_grace" validate:"gte=0"`                  // Retention for sessions missing from a refresh
	PositionResolution time.Duration `koanf:"position_resolution" validate:"gt=0"`             // Assumed resolution of reported positions
}

// SubtitlesConfig controls which subtitle stream is enabled on a rewind.
//
// Preferences is an ordered list of match patterns applied to each stream's
// extended display title, case-insensitively. A leading '-' marks a negative
// pattern: streams matching it are excluded. A stream is a candidate when it
// contains every positive pattern and no negative pattern.
//
// Environment Variables:
//   - SUBTITLE_PREFERENCES: comma-separated patterns (e.g. "english,-forced,-sdh")
//   - SUBTITLE_PREFER_EXTERNAL: prefer external streams over embedded (default: true)
type SubtitlesConfig struct {
	Preferences    []string `koanf:"preferences"`     // Ordered match patterns; leading '-' negates
	PreferExternal bool     `koanf:"prefer_external"` // Break ties in favor of external streams
}

// DispatchConfig holds command routing and HTTP timeout settings.
//
// SendDirectToDevice selects the primary route for player commands: true
// targets the player device directly at its advertised address, false relays
// through the Plex server. On a failed command the dispatcher retries once on
// the other route.
//
// Environment Variables:
//   - DISPATCH_SEND_DIRECT: send commands straight to the player device (default: false)
//   - DISPATCH_COMMAND_TIMEOUT: timeout for command-class requests (default: 8s)
//   - DISPATCH_POLL_TIMEOUT: timeout for poll-class requests (default: 1s)
type DispatchConfig struct {
	SendDirectToDevice bool          `koanf:"send_direct"`                                          // Primary route: player device instead of the server
	CommandTimeout     time.Duration `koanf:"command_timeout" validate:"gt=0"`                      // Timeout for setStreams and other commands
	PollTimeout        time.Duration `koanf:"poll_timeout" validate:"gt=0,ltefield=CommandTimeout"` // Timeout for timeline polls and probes
}

// Listener transport names accepted by ListenerConfig.Transport.
const (
	TransportSSE       = "sse"
	TransportWebsocket = "websocket"
)

// ListenerConfig selects and tunes the server notification transport.
//
// SSE (the eventsource endpoint) is the default and matches what Plex's own
// web client uses. The WebSocket transport consumes the same notifications
// over /:/websockets/notifications and exists for servers or proxies that
// mishandle long-lived event streams.
//
// Environment Variables:
//   - LISTENER_TRANSPORT: "sse" or "websocket" (default: sse)
//   - LISTENER_BUFFER: bounded event channel capacity (default: 256)
type ListenerConfig struct {
	Transport string `koanf:"transport" validate:"oneof=sse websocket"` // Notification transport: sse or websocket
	Buffer    int    `koanf:"buffer" validate:"gt=0"`                   // Event channel capacity; overflow drops oldest-first
}

// ServerConfig holds the optional local status API settings.
//
// The API is read-only: health, tracked sessions, and Prometheus metrics.
// It binds to localhost by default.
//
// Environment Variables:
//   - API_ENABLED: serve the status API (default: true)
//   - HTTP_HOST: bind address (default: 127.0.0.1)
//   - HTTP_PORT: bind port (default: 32460)
//   - HTTP_TIMEOUT: request read/write timeout (default: 30s)
type ServerConfig struct {
	Enabled bool          `koanf:"enabled"`                                                            // Serve the local status API
	Host    string        `koanf:"host" validate:"required_if=Enabled true"`                           // Bind address
	Port    int           `koanf:"port" validate:"required_if=Enabled true,omitempty,gte=1,lte=65535"` // Bind port
	Timeout time.Duration `koanf:"timeout" validate:"required_if=Enabled true,omitempty,gt=0"`         // Read/write timeout
}

// LoggingConfig holds log output settings.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error, fatal (default: info)
//   - LOG_FORMAT: json or console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// InstanceConfig holds process-level settings.
//
// Environment Variables:
//   - BACKGROUND: detach and run in the background (default: false)
//   - PID_FILE: path to the PID file (default: subrewind.pid)
//   - ALLOW_DUPLICATE_INSTANCE: skip the single-instance check (default: false)
type InstanceConfig struct {
	Background     bool   `koanf:"background"`      // Detach from the terminal on start
	PIDFile        string `koanf:"pid_file"`        // PID file used by -stop and the duplicate check
	AllowDuplicate bool   `koanf:"allow_duplicate"` // Permit a second instance against the same server
}
