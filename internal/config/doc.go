// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

// Package config provides centralized configuration management for SubRewind.
//
// Configuration is loaded with Koanf v2 from three layered sources, in
// ascending priority:
//
//  1. Defaults: built-in values for every setting
//  2. Settings file: optional YAML file (settings.yaml) for persistent settings
//  3. Environment variables: override any setting
//
// The Plex token and client identifier live in a separate credentials file
// (simple Key=Value lines) so the settings file can be shared or committed
// without leaking secrets. See LoadCredentials.
//
// Example:
//
//	cfg, err := config.LoadWithKoanf()
//	if err != nil {
//	    log.Fatal("failed to load config:", err)
//	}
//	creds, err := config.LoadCredentials(cfg.Plex.CredentialsPath)
//
// Config is immutable after LoadWithKoanf and safe for concurrent reads.
package config
