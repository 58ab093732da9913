// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

package config

import (
	"fmt"
	"strings"

	"github.com/tomtom215/subrewind/internal/validation"
)

// settingNames maps struct namespaces reported by the validator back to the
// environment variable each setting answers to, so validation errors name
// the knob the operator actually turns.
var settingNames = map[string]string{
	"Config.Plex.URL":             "PLEX_URL",
	"Config.Plex.Token":           "PLEX_TOKEN",
	"Config.Plex.CredentialsPath": "PLEX_CREDENTIALS_PATH",

	"Config.Monitor.ActiveTick":         "MONITOR_ACTIVE_TICK",
	"Config.Monitor.IdleTick":           "MONITOR_IDLE_TICK",
	"Config.Monitor.MaxRewind":          "MONITOR_MAX_REWIND",
	"Config.Monitor.RewindTrigger":      "MONITOR_REWIND_TRIGGER",
	"Config.Monitor.FastForwardMargin":  "MONITOR_FAST_FORWARD_MARGIN",
	"Config.Monitor.SessionGrace":       "MONITOR_SESSION_GRACE",
	"Config.Monitor.PositionResolution": "MONITOR_POSITION_RESOLUTION",

	"Config.Dispatch.CommandTimeout": "DISPATCH_COMMAND_TIMEOUT",
	"Config.Dispatch.PollTimeout":    "DISPATCH_POLL_TIMEOUT",

	"Config.Listener.Transport": "LISTENER_TRANSPORT",
	"Config.Listener.Buffer":    "LISTENER_BUFFER",

	"Config.Server.Host":    "HTTP_HOST",
	"Config.Server.Port":    "HTTP_PORT",
	"Config.Server.Timeout": "HTTP_TIMEOUT",

	"Config.Logging.Level":  "LOG_LEVEL",
	"Config.Logging.Format": "LOG_FORMAT",
}

// Validate checks that the configuration is complete and internally
// consistent. Structural constraints (ranges, enums, cross-field ordering)
// live as validate tags on the config structs; the checks below cover what
// tags cannot express.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return settingError(verr.Errors()[0])
	}

	if err := validateHTTPURL(c.Plex.URL, "PLEX_URL"); err != nil {
		return fmt.Errorf("PLEX_URL is invalid: %w", err)
	}

	return c.validateSubtitles()
}

// settingError rewrites one validator failure under the setting's
// environment variable name.
func settingError(fe validation.FieldError) error {
	name, ok := settingNames[fe.Namespace()]
	if !ok {
		name = fe.Namespace()
	}
	// The translated message leads with the struct field name; swap in the
	// setting name instead.
	message := strings.TrimPrefix(fe.Error(), fe.Field())
	return fmt.Errorf("%s%s", name, message)
}

// validateSubtitles validates the preference pattern list. Tags cannot
// express "non-empty after stripping the negation prefix".
func (c *Config) validateSubtitles() error {
	for _, p := range c.Subtitles.Preferences {
		trimmed := strings.TrimPrefix(strings.TrimSpace(p), "-")
		if trimmed == "" {
			return fmt.Errorf("SUBTITLE_PREFERENCES contains an empty pattern")
		}
	}
	return nil
}
