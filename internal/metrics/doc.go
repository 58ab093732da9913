// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package instruments the agent with the Prometheus client library, exposing
metrics for monitoring command dispatch, rewind detection, and connection health.

# Overview

The package provides metrics for:
  - Player command dispatch (volume, routing, latency, retries)
  - Timeline polls against player devices
  - Session registry churn (created, retired, tracked)
  - Rewind monitor activity and temp-subtitle cycles
  - Notification listener health and the bounded event queue
  - Connection supervisor probes and backoff
  - Circuit breaker state transitions

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint of the status API in Prometheus
text format:

	curl http://localhost:32460/metrics

# Available Metrics

Command Metrics:
  - plex_commands_total: Dispatched player commands (counter)
    Labels: command, route (server, direct), result
  - plex_command_duration_seconds: Command latency (histogram)
    Labels: route
  - plex_command_retries_total: Alternate-route retries (counter)
  - plex_commands_in_flight: Dispatch gate occupancy, 0 or 1 (gauge)

Monitor Metrics:
  - rewinds_detected_total: Rewinds that opened a temp-subtitle cycle (counter)
  - subtitles_enabled_total / subtitles_disabled_total: Cycle edges (counters)
    Disable labels: reason (caught_up, fast_forward, over_rewind, teardown)
  - subtitle_enable_failures_total: Enables that did not happen (counter)
    Labels: reason (no_subtitles, command_failed)
  - temp_subtitle_sessions: Open temp cycles (gauge)
  - monitors_by_state: Monitors per state (gauge)
    Labels: state (idle, watching, temp_on)
  - monitor_tick_duration_seconds: Full manager tick time (histogram)

Registry Metrics:
  - sessions_tracked: Current registry size (gauge)
  - sessions_created_total / sessions_retired_total: Churn (counters)
  - registry_refresh_duration_seconds: Refresh latency (histogram)
  - registry_refresh_errors_total: Failed refreshes (counter)

Listener Metrics:
  - listener_connected: Listener connectivity, 0 or 1 (gauge)
  - listener_events_total: Received events (counter)
    Labels: type (playing, activity, transcode, ping, unknown)
  - listener_reconnects_total: Reconnect cycles (counter)
  - event_queue_depth / event_queue_dropped_total: Bounded queue health

Supervisor Metrics:
  - server_probes_total: Reachability probes (counter)
    Labels: result (connected, maintenance, unauthorized, unreachable)
  - server_connected: Server reachability, 0 or 1 (gauge)
  - reconnect_backoff_seconds: Current backoff (gauge)

# Usage

Metrics are recorded through helper functions rather than direct metric access:

	start := time.Now()
	err := dispatcher.SetSubtitleStream(ctx, session, streamID)
	metrics.RecordCommand("set_streams", route, resultLabel(err), time.Since(start))

Helpers keep label sets consistent across call sites.
*/
package metrics
