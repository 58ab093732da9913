// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the agent:
// - Plex command dispatch (volume, routing, latency, the single-permit gate)
// - Timeline polling
// - Session registry churn
// - Rewind monitor activity and temp-subtitle cycles
// - Notification listener health
// - Connection supervisor probes and backoff

var (
	// Command Dispatch Metrics
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plex_commands_total",
			Help: "Total number of player commands dispatched",
		},
		[]string{"command", "route", "result"}, // route: "server", "direct"; result: "success", "rejected", "unauthorized", "not_found", "transport"
	)

	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plex_command_duration_seconds",
			Help:    "Duration of player command requests in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"route"},
	)

	CommandRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "plex_command_retries_total",
			Help: "Total number of commands retried on the alternate route",
		},
	)

	CommandsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "plex_commands_in_flight",
			Help: "Commands currently holding the dispatch gate (0 or 1)",
		},
	)

	// Timeline Poll Metrics
	TimelinePollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_polls_total",
			Help: "Total number of player timeline polls",
		},
		[]string{"result"}, // "ok", "no_time", "timeout", "error"
	)

	TimelinePollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "timeline_poll_duration_seconds",
			Help:    "Duration of player timeline polls in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
	)

	// Session Registry Metrics
	SessionsTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_tracked",
			Help: "Current number of playback sessions in the registry",
		},
	)

	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_created_total",
			Help: "Total number of playback sessions entered into the registry",
		},
	)

	SessionsRetired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessions_retired_total",
			Help: "Total number of playback sessions retired from the registry",
		},
		[]string{"reason"}, // "grace_expired", "shutdown"
	)

	RegistryRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "registry_refresh_duration_seconds",
			Help:    "Duration of session registry refreshes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RegistryRefreshErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_refresh_errors_total",
			Help: "Total number of failed session registry refreshes",
		},
	)

	// Rewind Monitor Metrics
	RewindsDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rewinds_detected_total",
			Help: "Total number of rewinds that opened a temp-subtitle cycle",
		},
	)

	SubtitlesEnabled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "subtitles_enabled_total",
			Help: "Total number of successful temp subtitle enables",
		},
	)

	SubtitlesDisabled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subtitles_disabled_total",
			Help: "Total number of temp subtitle disables",
		},
		[]string{"reason"}, // "caught_up", "fast_forward", "over_rewind", "teardown"
	)

	EnableFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subtitle_enable_failures_total",
			Help: "Total number of temp subtitle enables that did not happen",
		},
		[]string{"reason"}, // "no_subtitles", "command_failed"
	)

	TempSubtitleSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "temp_subtitle_sessions",
			Help: "Current number of sessions with temporarily enabled subtitles",
		},
	)

	MonitorsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitors_by_state",
			Help: "Current number of rewind monitors in each state",
		},
		[]string{"state"}, // "idle", "watching", "temp_on"
	)

	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "monitor_tick_duration_seconds",
			Help:    "Duration of one full monitor manager tick in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	// Notification Listener Metrics
	ListenerConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "listener_connected",
			Help: "Whether the notification listener is connected (1) or not (0)",
		},
	)

	ListenerEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listener_events_total",
			Help: "Total number of notification events received",
		},
		[]string{"type"}, // "playing", "activity", "transcode", "ping", "unknown"
	)

	ListenerReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "listener_reconnects_total",
			Help: "Total number of listener reconnect cycles",
		},
	)

	ListenerParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "listener_parse_failures_total",
			Help: "Total number of notification payloads that failed to parse",
		},
	)

	EventQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "event_queue_depth",
			Help: "Current depth of the bounded listener event queue",
		},
	)

	EventQueueDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "event_queue_dropped_total",
			Help: "Total number of events dropped from a full listener queue",
		},
	)

	// Connection Supervisor Metrics
	ServerProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "server_probes_total",
			Help: "Total number of server reachability probes",
		},
		[]string{"result"}, // "connected", "maintenance", "unauthorized", "unreachable"
	)

	ServerConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "server_connected",
			Help: "Whether the agent considers the server reachable (1) or not (0)",
		},
	)

	ReconnectBackoff = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reconnect_backoff_seconds",
			Help: "Current supervisor reconnect backoff in seconds",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordCommand records a dispatched player command and its outcome
func RecordCommand(command, route, result string, duration time.Duration) {
	CommandsTotal.WithLabelValues(command, route, result).Inc()
	CommandDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordCommandRetry records a command retried on the alternate route
func RecordCommandRetry() {
	CommandRetries.Inc()
}

// TrackCommandGate tracks the single-permit dispatch gate
func TrackCommandGate(held bool) {
	if held {
		CommandsInFlight.Inc()
	} else {
		CommandsInFlight.Dec()
	}
}

// RecordTimelinePoll records a player timeline poll and its outcome
func RecordTimelinePoll(result string, duration time.Duration) {
	TimelinePollsTotal.WithLabelValues(result).Inc()
	TimelinePollDuration.Observe(duration.Seconds())
}

// RecordRegistryRefresh records a registry refresh and its outcome
func RecordRegistryRefresh(duration time.Duration, err error) {
	RegistryRefreshDuration.Observe(duration.Seconds())
	if err != nil {
		RegistryRefreshErrors.Inc()
	}
}

// RecordSessionCreated records a new session entering the registry
func RecordSessionCreated() {
	SessionsCreated.Inc()
}

// RecordSessionRetired records a session leaving the registry
func RecordSessionRetired(reason string) {
	SessionsRetired.WithLabelValues(reason).Inc()
}

// UpdateSessionsTracked updates the tracked-session gauge
func UpdateSessionsTracked(count int) {
	SessionsTracked.Set(float64(count))
}

// RecordRewindDetected records a rewind that opened a temp-subtitle cycle
func RecordRewindDetected() {
	RewindsDetected.Inc()
}

// RecordSubtitlesEnabled records a successful temp subtitle enable
func RecordSubtitlesEnabled() {
	SubtitlesEnabled.Inc()
}

// RecordSubtitlesDisabled records a temp subtitle disable and why
func RecordSubtitlesDisabled(reason string) {
	SubtitlesDisabled.WithLabelValues(reason).Inc()
}

// RecordEnableFailure records an enable that did not happen and why
func RecordEnableFailure(reason string) {
	EnableFailures.WithLabelValues(reason).Inc()
}

// UpdateTempSubtitleSessions updates the open temp-cycle gauge
func UpdateTempSubtitleSessions(count int) {
	TempSubtitleSessions.Set(float64(count))
}

// UpdateMonitorStates replaces the per-state monitor counts
func UpdateMonitorStates(idle, watching, tempOn int) {
	MonitorsByState.WithLabelValues("idle").Set(float64(idle))
	MonitorsByState.WithLabelValues("watching").Set(float64(watching))
	MonitorsByState.WithLabelValues("temp_on").Set(float64(tempOn))
}

// RecordTick records the duration of one monitor manager tick
func RecordTick(duration time.Duration) {
	TickDuration.Observe(duration.Seconds())
}

// SetListenerConnected updates the listener connectivity gauge
func SetListenerConnected(connected bool) {
	if connected {
		ListenerConnected.Set(1)
	} else {
		ListenerConnected.Set(0)
	}
}

// RecordListenerEvent records a received notification event
func RecordListenerEvent(eventType string) {
	ListenerEvents.WithLabelValues(eventType).Inc()
}

// RecordListenerReconnect records a listener reconnect cycle
func RecordListenerReconnect() {
	ListenerReconnects.Inc()
}

// RecordListenerParseFailure records a payload that failed to parse
func RecordListenerParseFailure() {
	ListenerParseFailures.Inc()
}

// UpdateEventQueueDepth updates the bounded queue depth gauge
func UpdateEventQueueDepth(depth int) {
	EventQueueDepth.Set(float64(depth))
}

// RecordEventDropped records an event dropped from a full queue
func RecordEventDropped() {
	EventQueueDropped.Inc()
}

// RecordServerProbe records a reachability probe and its outcome
func RecordServerProbe(result string) {
	ServerProbesTotal.WithLabelValues(result).Inc()
}

// SetServerConnected updates the server connectivity gauge
func SetServerConnected(connected bool) {
	if connected {
		ServerConnected.Set(1)
	} else {
		ServerConnected.Set(0)
	}
}

// UpdateReconnectBackoff updates the current backoff gauge
func UpdateReconnectBackoff(backoff time.Duration) {
	ReconnectBackoff.Set(backoff.Seconds())
}
