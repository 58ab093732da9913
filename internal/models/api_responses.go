// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

package models

import (
	"time"
)

// APIResponse is the standardized response wrapper used by all status API
// endpoints.
//
// Status field values:
//   - "success": Request completed successfully, see Data field
//   - "error": Request failed, see Error field for details
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
}

// APIError carries structured error details for failed requests.
type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthStatus is the payload of GET /api/v1/health.
type HealthStatus struct {
	Status           string     `json:"status"`
	Version          string     `json:"version"`
	ServerConnected  bool       `json:"server_connected"`
	ListenerRunning  bool       `json:"listener_running"`
	Transport        string     `json:"transport"`
	SessionsTracked  int        `json:"sessions_tracked"`
	LastRefreshTime  *time.Time `json:"last_refresh_time,omitempty"`
	UptimeSeconds    float64    `json:"uptime_seconds"`
	TempSubsSessions int        `json:"temp_subs_sessions"`
}

// MonitoredSession is one entry of GET /api/v1/sessions: the registry view of
// a playback joined with its monitor state.
type MonitoredSession struct {
	PlaybackID      string `json:"playback_id"`
	DeviceName      string `json:"device_name"`
	MachineID       string `json:"machine_id"`
	MediaTitle      string `json:"media_title"`
	ViewOffsetMS    int64  `json:"view_offset_ms"`
	AccurateTimeMS  *int64 `json:"accurate_time_ms,omitempty"`
	KnownSubsOn     string `json:"known_subs_on"`
	MonitorState    string `json:"monitor_state"`
	TempSubsOn      bool   `json:"temp_subs_on"`
	UserEnabledSubs bool   `json:"user_enabled_subs"`
	PreferredSub    string `json:"preferred_subtitle,omitempty"`
	SubtitleCount   int    `json:"subtitle_count"`
}
