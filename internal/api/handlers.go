// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/subrewind/internal/bus"
	"github.com/tomtom215/subrewind/internal/models"
)

// defaultActivityLimit caps GET /api/v1/activity when no limit is given.
const defaultActivityLimit = 50

// SessionSource is the monitor manager's read surface.
type SessionSource interface {
	Sessions() []models.MonitoredSession
	SessionCount() int
	TempSubtitleCount() int
	LastRefresh() time.Time
}

// ActivitySource is the activity feed's read surface.
type ActivitySource interface {
	Recent(limit int) []bus.Event
}

// PipelineStatus reports the connection supervisor's view of the world.
type PipelineStatus interface {
	ServerConnected() bool
	ListenerRunning() bool
}

// Handler serves the local status API. All sources are published snapshots;
// no handler ever touches the tick goroutine's state.
type Handler struct {
	sessions  SessionSource
	activity  ActivitySource
	pipeline  PipelineStatus
	transport string
	version   string
	startTime time.Time
}

// NewHandler wires the status handlers.
func NewHandler(sessions SessionSource, activity ActivitySource, pipeline PipelineStatus, transport, version string) *Handler {
	return &Handler{
		sessions:  sessions,
		activity:  activity,
		pipeline:  pipeline,
		transport: transport,
		version:   version,
		startTime: time.Now(),
	}
}

// Health is GET /api/v1/health: the full status document.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	serverConnected := h.pipeline.ServerConnected()
	listenerRunning := h.pipeline.ListenerRunning()

	status := "ok"
	if !serverConnected || !listenerRunning {
		status = "degraded"
	}

	health := models.HealthStatus{
		Status:           status,
		Version:          h.version,
		ServerConnected:  serverConnected,
		ListenerRunning:  listenerRunning,
		Transport:        h.transport,
		SessionsTracked:  h.sessions.SessionCount(),
		UptimeSeconds:    time.Since(h.startTime).Seconds(),
		TempSubsSessions: h.sessions.TempSubtitleCount(),
	}
	if last := h.sessions.LastRefresh(); !last.IsZero() {
		health.LastRefreshTime = &last
	}

	respondJSON(w, http.StatusOK, health)
}

// HealthLive is GET /api/v1/health/live: process liveness only.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HealthReady is GET /api/v1/health/ready: 200 only while the pipeline holds
// a server connection.
func (h *Handler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	if !h.pipeline.ServerConnected() {
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "not connected to media server")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Sessions is GET /api/v1/sessions: the monitored session snapshot.
func (h *Handler) Sessions(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.sessions.Sessions())
}

// Activity is GET /api/v1/activity: the recent feed, newest first. The limit
// query parameter bounds the result; it defaults to 50.
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	respondJSON(w, http.StatusOK, h.activity.Recent(limit))
}
