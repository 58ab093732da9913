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

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where the settings file is searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"settings.yaml",
	"settings.yml",
	"/etc/subrewind/settings.yaml",
	"/etc/subrewind/settings.yml",
}

// ConfigPathEnvVar is the environment variable that can override the settings
// file path.
const ConfigPathEnvVar = "SUBREWIND_CONFIG"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by the settings file and
// environment variables.
func defaultConfig() *Config {
	return &Config{
		Plex: PlexConfig{
			URL:              "http://127.0.0.1:32400",
			Token:            "", // Normally read from the credentials file
			ClientIdentifier: "", // Normally read from the credentials file
			CredentialsPath:  "credentials.conf",
			DeviceName:       "SubRewind",
		},
		Monitor: MonitorConfig{
			ActiveTick:         1 * time.Second,
			IdleTick:           5 * time.Second,
			MaxRewind:          60 * time.Second,
			RewindTrigger:      2 * time.Second,
			FastForwardMargin:  2 * time.Second,
			SessionGrace:       15 * time.Second,
			PositionResolution: 1 * time.Second,
		},
		Subtitles: SubtitlesConfig{
			Preferences:    []string{"english", "-forced"},
			PreferExternal: true,
		},
		Dispatch: DispatchConfig{
			SendDirectToDevice: false, // Relay through the server by default
			CommandTimeout:     8 * time.Second,
			PollTimeout:        1 * time.Second,
		},
		Listener: ListenerConfig{
			Transport: TransportSSE,
			Buffer:    256,
		},
		Server: ServerConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    32460,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Instance: InstanceConfig{
			Background:     false,
			PIDFile:        "subrewind.pid",
			AllowDuplicate: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in values
//  2. Settings file: optional YAML file (if one exists)
//  3. Environment variables: override any setting
//
// Precedence: ENV > File > Defaults.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load settings file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load settings file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// FindConfigFile reports the settings file that LoadWithKoanf would use, or
// an empty string when running on defaults only. Exposed for -test-settings
// and -update-settings-file.
func FindConfigFile() string {
	return findConfigFile()
}

// findConfigFile searches for a settings file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	// Check environment variable first
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	// Search default paths
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as
// comma-separated slices when they arrive as strings from the environment.
var sliceConfigPaths = []string{
	"subtitles.preferences",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars come in as strings but the config expects
// slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from the YAML file)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
//
// Examples:
//   - PLEX_URL -> plex.url
//   - MONITOR_MAX_REWIND -> monitor.max_rewind
//   - SUBTITLE_PREFERENCES -> subtitles.preferences
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Plex connection
		"plex_url":               "plex.url",
		"plex_token":             "plex.token",
		"plex_client_identifier": "plex.client_identifier",
		"plex_credentials_path":  "plex.credentials_path",
		"plex_device_name":       "plex.device_name",

		// Monitor cadence and windows
		"monitor_active_tick":         "monitor.active_tick",
		"monitor_idle_tick":           "monitor.idle_tick",
		"monitor_max_rewind":          "monitor.max_rewind",
		"monitor_rewind_trigger":      "monitor.rewind_trigger",
		"monitor_fast_forward_margin": "monitor.fast_forward_margin",
		"monitor_session_grace":       "monitor.session_grace",
		"monitor_position_resolution": "monitor.position_resolution",

		// Subtitle selection
		"subtitle_preferences":     "subtitles.preferences",
		"subtitle_prefer_external": "subtitles.prefer_external",

		// Command dispatch
		"dispatch_send_direct":     "dispatch.send_direct",
		"dispatch_command_timeout": "dispatch.command_timeout",
		"dispatch_poll_timeout":    "dispatch.poll_timeout",

		// Notification listener
		"listener_transport": "listener.transport",
		"listener_buffer":    "listener.buffer",

		// Status API
		"api_enabled":  "server.enabled",
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		// Process
		"background":               "instance.background",
		"pid_file":                 "instance.pid_file",
		"allow_duplicate_instance": "instance.allow_duplicate",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unmapped keys are skipped so random environment variables cannot
	// pollute the config.
	return ""
}

// GetKoanfInstance returns a new Koanf instance for advanced usage, such as
// testing with mock configuration sources.
func GetKoanfInstance() *koanf.Koanf {
	return koanf.New(".")
}
