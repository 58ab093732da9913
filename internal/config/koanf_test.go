// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	// Plex defaults
	if cfg.Plex.URL != "http://127.0.0.1:32400" {
		t.Errorf("Plex.URL = %q, want http://127.0.0.1:32400", cfg.Plex.URL)
	}
	if cfg.Plex.Token != "" {
		t.Errorf("Plex.Token should be empty by default, got %q", cfg.Plex.Token)
	}
	if cfg.Plex.CredentialsPath != "credentials.conf" {
		t.Errorf("Plex.CredentialsPath = %q, want credentials.conf", cfg.Plex.CredentialsPath)
	}

	// Monitor defaults
	if cfg.Monitor.ActiveTick != 1*time.Second {
		t.Errorf("Monitor.ActiveTick = %v, want 1s", cfg.Monitor.ActiveTick)
	}
	if cfg.Monitor.IdleTick != 5*time.Second {
		t.Errorf("Monitor.IdleTick = %v, want 5s", cfg.Monitor.IdleTick)
	}
	if cfg.Monitor.MaxRewind != 60*time.Second {
		t.Errorf("Monitor.MaxRewind = %v, want 60s", cfg.Monitor.MaxRewind)
	}
	if cfg.Monitor.RewindTrigger != 2*time.Second {
		t.Errorf("Monitor.RewindTrigger = %v, want 2s", cfg.Monitor.RewindTrigger)
	}
	if cfg.Monitor.SessionGrace != 15*time.Second {
		t.Errorf("Monitor.SessionGrace = %v, want 15s", cfg.Monitor.SessionGrace)
	}

	// Subtitle defaults
	if len(cfg.Subtitles.Preferences) != 2 {
		t.Errorf("Subtitles.Preferences = %v, want 2 defaults", cfg.Subtitles.Preferences)
	}
	if !cfg.Subtitles.PreferExternal {
		t.Error("Subtitles.PreferExternal should be true by default")
	}

	// Dispatch defaults
	if cfg.Dispatch.SendDirectToDevice {
		t.Error("Dispatch.SendDirectToDevice should be false by default")
	}
	if cfg.Dispatch.CommandTimeout != 8*time.Second {
		t.Errorf("Dispatch.CommandTimeout = %v, want 8s", cfg.Dispatch.CommandTimeout)
	}
	if cfg.Dispatch.PollTimeout != 1*time.Second {
		t.Errorf("Dispatch.PollTimeout = %v, want 1s", cfg.Dispatch.PollTimeout)
	}

	// Listener defaults
	if cfg.Listener.Transport != TransportSSE {
		t.Errorf("Listener.Transport = %q, want sse", cfg.Listener.Transport)
	}
	if cfg.Listener.Buffer != 256 {
		t.Errorf("Listener.Buffer = %d, want 256", cfg.Listener.Buffer)
	}

	// Server defaults
	if !cfg.Server.Enabled {
		t.Error("Server.Enabled should be true by default")
	}
	if cfg.Server.Port != 32460 {
		t.Errorf("Server.Port = %d, want 32460", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want 127.0.0.1", cfg.Server.Host)
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", cfg.Logging.Format)
	}

	// Instance defaults
	if cfg.Instance.Background {
		t.Error("Instance.Background should be false by default")
	}
	if cfg.Instance.PIDFile != "subrewind.pid" {
		t.Errorf("Instance.PIDFile = %q, want subrewind.pid", cfg.Instance.PIDFile)
	}
}

// TestDefaultConfigValidates verifies the defaults pass their own validation
func TestDefaultConfigValidates(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig().Validate() error = %v, want nil", err)
	}
}

// TestEnvTransformFunc verifies environment variable name transformations
func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// Plex
		{"PLEX_URL", "plex.url"},
		{"PLEX_TOKEN", "plex.token"},
		{"PLEX_CLIENT_IDENTIFIER", "plex.client_identifier"},
		{"PLEX_CREDENTIALS_PATH", "plex.credentials_path"},
		{"PLEX_DEVICE_NAME", "plex.device_name"},

		// Monitor
		{"MONITOR_ACTIVE_TICK", "monitor.active_tick"},
		{"MONITOR_IDLE_TICK", "monitor.idle_tick"},
		{"MONITOR_MAX_REWIND", "monitor.max_rewind"},
		{"MONITOR_REWIND_TRIGGER", "monitor.rewind_trigger"},
		{"MONITOR_SESSION_GRACE", "monitor.session_grace"},

		// Subtitles
		{"SUBTITLE_PREFERENCES", "subtitles.preferences"},
		{"SUBTITLE_PREFER_EXTERNAL", "subtitles.prefer_external"},

		// Dispatch
		{"DISPATCH_SEND_DIRECT", "dispatch.send_direct"},
		{"DISPATCH_COMMAND_TIMEOUT", "dispatch.command_timeout"},
		{"DISPATCH_POLL_TIMEOUT", "dispatch.poll_timeout"},

		// Listener
		{"LISTENER_TRANSPORT", "listener.transport"},
		{"LISTENER_BUFFER", "listener.buffer"},

		// Server
		{"API_ENABLED", "server.enabled"},
		{"HTTP_PORT", "server.port"},
		{"HTTP_HOST", "server.host"},

		// Logging
		{"LOG_LEVEL", "logging.level"},
		{"LOG_FORMAT", "logging.format"},

		// Process
		{"BACKGROUND", "instance.background"},
		{"PID_FILE", "instance.pid_file"},
		{"ALLOW_DUPLICATE_INSTANCE", "instance.allow_duplicate"},

		// Unknown (should return empty)
		{"RANDOM_VAR", ""},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := envTransformFunc(tt.input)
			if result != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

// TestFindConfigFile verifies settings file discovery
func TestFindConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	defer func() {
		if err := os.Chdir(origDir); err != nil {
			t.Errorf("Failed to restore working directory: %v", err)
		}
	}()

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}

	t.Run("no settings file exists", func(t *testing.T) {
		os.Unsetenv(ConfigPathEnvVar)
		if result := findConfigFile(); result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})

	t.Run("settings.yaml exists", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "settings.yaml")
		if err := os.WriteFile(configPath, []byte("plex:\n  url: http://x:32400\n"), 0644); err != nil {
			t.Fatalf("Failed to create settings file: %v", err)
		}
		defer os.Remove(configPath)

		os.Unsetenv(ConfigPathEnvVar)
		if result := findConfigFile(); result != "settings.yaml" {
			t.Errorf("findConfigFile() = %q, want settings.yaml", result)
		}
	})

	t.Run("SUBREWIND_CONFIG env var takes precedence", func(t *testing.T) {
		customPath := filepath.Join(tmpDir, "custom_settings.yaml")
		if err := os.WriteFile(customPath, []byte("plex:\n  url: http://x:32400\n"), 0644); err != nil {
			t.Fatalf("Failed to create custom settings file: %v", err)
		}
		defer os.Remove(customPath)

		os.Setenv(ConfigPathEnvVar, customPath)
		defer os.Unsetenv(ConfigPathEnvVar)

		if result := findConfigFile(); result != customPath {
			t.Errorf("findConfigFile() = %q, want %q", result, customPath)
		}
	})

	t.Run("SUBREWIND_CONFIG env var with non-existent file", func(t *testing.T) {
		os.Setenv(ConfigPathEnvVar, "/non/existent/settings.yaml")
		defer os.Unsetenv(ConfigPathEnvVar)

		if result := findConfigFile(); result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})
}

// TestLoadWithKoanfEnvVars tests loading configuration from environment variables
func TestLoadWithKoanfEnvVars(t *testing.T) {
	os.Clearenv()

	os.Setenv("PLEX_URL", "http://plex.local:32400")
	os.Setenv("MONITOR_MAX_REWIND", "90s")
	os.Setenv("SUBTITLE_PREFERENCES", "english, -forced , -sdh")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("LISTENER_TRANSPORT", "websocket")
	defer os.Clearenv()

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Plex.URL != "http://plex.local:32400" {
		t.Errorf("Plex.URL = %q, want http://plex.local:32400", cfg.Plex.URL)
	}
	if cfg.Monitor.MaxRewind != 90*time.Second {
		t.Errorf("Monitor.MaxRewind = %v, want 90s", cfg.Monitor.MaxRewind)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Listener.Transport != TransportWebsocket {
		t.Errorf("Listener.Transport = %q, want websocket", cfg.Listener.Transport)
	}

	// Comma-separated env var becomes a trimmed slice
	wantPrefs := []string{"english", "-forced", "-sdh"}
	if len(cfg.Subtitles.Preferences) != len(wantPrefs) {
		t.Fatalf("Subtitles.Preferences = %v, want %v", cfg.Subtitles.Preferences, wantPrefs)
	}
	for i, want := range wantPrefs {
		if cfg.Subtitles.Preferences[i] != want {
			t.Errorf("Subtitles.Preferences[%d] = %q, want %q", i, cfg.Subtitles.Preferences[i], want)
		}
	}

	// Defaults survive for unset values
	if cfg.Monitor.ActiveTick != 1*time.Second {
		t.Errorf("Monitor.ActiveTick = %v, want 1s (default)", cfg.Monitor.ActiveTick)
	}
	if cfg.Server.Port != 32460 {
		t.Errorf("Server.Port = %d, want 32460 (default)", cfg.Server.Port)
	}
}

// TestLoadWithKoanfConfigFile tests loading configuration from a YAML file
func TestLoadWithKoanfConfigFile(t *testing.T) {
	os.Clearenv()
	defer os.Clearenv()

	tmpDir := t.TempDir()

	configContent := `
plex:
  url: "http://settings-file.local:32400"
  device_name: "TestAgent"

monitor:
  active_tick: 500ms
  max_rewind: 45s

subtitles:
  preferences:
    - "german"
    - "-commentary"
  prefer_external: false

logging:
  level: "warn"
`
	configPath := filepath.Join(tmpDir, "settings.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create settings file: %v", err)
	}

	os.Setenv(ConfigPathEnvVar, configPath)
	defer os.Unsetenv(ConfigPathEnvVar)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Plex.URL != "http://settings-file.local:32400" {
		t.Errorf("Plex.URL = %q, want http://settings-file.local:32400", cfg.Plex.URL)
	}
	if cfg.Plex.DeviceName != "TestAgent" {
		t.Errorf("Plex.DeviceName = %q, want TestAgent", cfg.Plex.DeviceName)
	}
	if cfg.Monitor.ActiveTick != 500*time.Millisecond {
		t.Errorf("Monitor.ActiveTick = %v, want 500ms", cfg.Monitor.ActiveTick)
	}
	if cfg.Monitor.MaxRewind != 45*time.Second {
		t.Errorf("Monitor.MaxRewind = %v, want 45s", cfg.Monitor.MaxRewind)
	}
	if cfg.Subtitles.PreferExternal {
		t.Error("Subtitles.PreferExternal = true, want false from file")
	}
	if len(cfg.Subtitles.Preferences) != 2 || cfg.Subtitles.Preferences[0] != "german" {
		t.Errorf("Subtitles.Preferences = %v, want [german -commentary]", cfg.Subtitles.Preferences)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}

	// Defaults survive for keys the file omits
	if cfg.Monitor.IdleTick != 5*time.Second {
		t.Errorf("Monitor.IdleTick = %v, want 5s (default)", cfg.Monitor.IdleTick)
	}
}

// TestLoadWithKoanfEnvOverridesFile verifies precedence: ENV > file > defaults
func TestLoadWithKoanfEnvOverridesFile(t *testing.T) {
	os.Clearenv()
	defer os.Clearenv()

	tmpDir := t.TempDir()
	configContent := `
plex:
  url: "http://from-file.local:32400"
logging:
  level: "warn"
`
	configPath := filepath.Join(tmpDir, "settings.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create settings file: %v", err)
	}

	os.Setenv(ConfigPathEnvVar, configPath)
	os.Setenv("LOG_LEVEL", "trace")
	defer os.Unsetenv(ConfigPathEnvVar)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Plex.URL != "http://from-file.local:32400" {
		t.Errorf("Plex.URL = %q, want the file value", cfg.Plex.URL)
	}
	if cfg.Logging.Level != "trace" {
		t.Errorf("Logging.Level = %q, want trace (env wins over file)", cfg.Logging.Level)
	}
}

// TestLoadWithKoanfInvalidFile verifies a malformed settings file fails loudly
func TestLoadWithKoanfInvalidFile(t *testing.T) {
	os.Clearenv()
	defer os.Clearenv()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "settings.yaml")
	if err := os.WriteFile(configPath, []byte("plex: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to create settings file: %v", err)
	}

	os.Setenv(ConfigPathEnvVar, configPath)
	defer os.Unsetenv(ConfigPathEnvVar)

	if _, err := LoadWithKoanf(); err == nil {
		t.Error("LoadWithKoanf() error = nil, want parse failure")
	}
}
