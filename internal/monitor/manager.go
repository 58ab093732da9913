// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

/*
manager.go - Monitor Manager

The manager owns the tick loop, the session registry and all per-session
monitors. Each tick it drains pending push events, refreshes the registry
against the server listing, advances every monitor, and publishes a snapshot
for HTTP readers. Registry hooks fire synchronously inside Refresh, so
monitor creation and retirement also happen on the tick goroutine; the
published snapshot behind an RWMutex is the only cross-goroutine surface.

The cadence adapts: the fast tick while any playing session has a monitor
engaged, the slow tick when everything is paused or the registry is empty.

The manager survives listener reconnects. The supervisor stops and restarts
Run around a rebuild, and monitor state (including an outstanding temporary
enable) carries across; Shutdown is only called once, at process exit, and
turns any remaining temporary subtitles off.
*/

//nolint:staticcheck // File documentation, not package doc
package monitor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/subrewind/internal/config"
	"github.com/tomtom215/subrewind/internal/listener"
	"github.com/tomtom215/subrewind/internal/logging"
	"github.com/tomtom215/subrewind/internal/metrics"
	"github.com/tomtom215/subrewind/internal/models"
	"github.com/tomtom215/subrewind/internal/registry"
)

// destroyTimeout bounds the force-off command issued while retiring a
// monitor; retirement must not block the tick loop on a dead device.
const destroyTimeout = 5 * time.Second

// Manager runs the tick loop over the registry and its monitors.
type Manager struct {
	registry   *registry.Registry
	dispatcher SubtitleSetter
	events     <-chan listener.Event
	activity   ActivityRecorder
	cfg        *config.Config

	activeTick time.Duration
	idleTick   time.Duration

	// monitors is keyed by playback id; tick goroutine only.
	monitors map[string]*Monitor

	mu          sync.RWMutex
	published   []models.MonitoredSession
	lastRefresh time.Time
	tempCount   int
}

// NewManager wires a manager, its registry and the lifecycle hooks together.
// The events channel is owned by the listener and survives its reconnects.
func NewManager(lister registry.SessionLister, poller registry.TimelinePoller, dispatcher SubtitleSetter, events <-chan listener.Event, cfg *config.Config, activity ActivityRecorder) *Manager {
	m := &Manager{
		dispatcher: dispatcher,
		events:     events,
		activity:   activity,
		cfg:        cfg,
		activeTick: cfg.Monitor.ActiveTick,
		idleTick:   cfg.Monitor.IdleTick,
		monitors:   make(map[string]*Monitor),
	}
	m.registry = registry.New(lister, poller, cfg, registry.Hooks{
		OnCreate: m.onSessionCreate,
		OnRetire: m.onSessionRetire,
	})
	return m
}

// Run drives ticks until the context is canceled. It never returns a
// non-context error: a failed refresh or command is logged, counted and
// retried on the next tick rather than escalated.
func (m *Manager) Run(ctx context.Context) error {
	logging.Info().
		Dur("active_tick", m.activeTick).
		Dur("idle_tick", m.idleTick).
		Msg("Monitor manager running")

	for {
		start := time.Now()
		m.runTick(ctx)
		metrics.RecordTick(time.Since(start))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-m.events:
			if ok {
				m.handleEvent(event)
			}
			// An event mid-wait starts the next tick early so a push
			// position lands in the machine without a full idle wait.
		case <-time.After(m.cadence()):
		}
	}
}

// runTick performs one full cycle: drain, refresh, advance, publish.
func (m *Manager) runTick(ctx context.Context) {
	m.drainEvents()

	if err := m.registry.Refresh(ctx); err != nil {
		logging.Warn().Err(err).Msg("Session refresh failed, keeping previous state")
	}

	m.tickMonitors(ctx)
	m.publish()
}

// drainEvents folds every pending push notification into the registry
// without blocking.
func (m *Manager) drainEvents() {
	metrics.UpdateEventQueueDepth(len(m.events))
	for {
		select {
		case event, ok := <-m.events:
			if !ok {
				return
			}
			m.handleEvent(event)
		default:
			return
		}
	}
}

func (m *Manager) handleEvent(event listener.Event) {
	metrics.RecordListenerEvent(event.Type.String())

	switch event.Type {
	case listener.EventPlaying:
		if event.Playing != nil {
			m.registry.ApplyPlaying(event.Playing)
		}
	case listener.EventActivity:
		if event.Activity != nil {
			logging.Debug().
				Str("activity", event.Activity.Event).
				Str("uuid", event.Activity.UUID).
				Msg("Server activity notification")
		}
	case listener.EventTranscode:
		if event.Transcode != nil {
			logging.Debug().
				Str("key", event.Transcode.Key).
				Msg("Transcode session notification")
		}
	default:
		// Pings and unrecognized records carry nothing actionable.
	}
}

// tickMonitors advances every monitor in playback-id order against its live
// session.
func (m *Manager) tickMonitors(ctx context.Context) {
	ids := make([]string, 0, len(m.monitors))
	for id := range m.monitors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		session, ok := m.registry.Get(id)
		if !ok {
			// Retired mid-tick by a stopped notification; the hook
			// already destroyed the monitor.
			continue
		}
		m.monitors[id].Tick(ctx, session)
	}
}

// cadence picks the next tick interval: fast while any playing session has
// an engaged monitor, slow otherwise.
func (m *Manager) cadence() time.Duration {
	for id, mon := range m.monitors {
		session, ok := m.registry.Get(id)
		if ok && session.IsPlaying() && mon.State().Phase != PhaseIdle {
			return m.activeTick
		}
	}
	return m.idleTick
}

// onSessionCreate is the registry OnCreate hook: every tracked session gets
// a monitor from its first observation.
func (m *Manager) onSessionCreate(session *registry.PlaybackSession) {
	m.monitors[session.PlaybackID] = NewMonitor(session, m.cfg, m.dispatcher, m.activity)
	if m.activity != nil {
		m.activity.Record(ActivitySessionStart, session.PlaybackID, session.DeviceName, session.MediaTitle, "")
	}
}

// onSessionRetire is the registry OnRetire hook. The force-off runs on its
// own bounded context: retirement often means the device is already gone,
// and a canceled run context must not skip the cleanup at shutdown.
func (m *Manager) onSessionRetire(playbackID string) {
	mon, ok := m.monitors[playbackID]
	if !ok {
		return
	}
	delete(m.monitors, playbackID)

	ctx, cancel := context.WithTimeout(context.Background(), destroyTimeout)
	defer cancel()
	mon.Destroy(ctx)

	if m.activity != nil {
		m.activity.Record(ActivitySessionEnd, playbackID, mon.target.DeviceName, mon.target.MediaTitle, "")
	}
}

// Shutdown turns off every outstanding temporary enable and drops all
// monitors. Called exactly once at process exit, never on a listener
// reconnect.
func (m *Manager) Shutdown(ctx context.Context) {
	for _, mon := range m.monitors {
		mon.Destroy(ctx)
	}
	m.monitors = make(map[string]*Monitor)
	m.publish()
	logging.Info().Msg("Monitor manager shut down")
}

// publish rebuilds the cross-goroutine snapshot and the state gauges.
func (m *Manager) publish() {
	snapshot := m.registry.Snapshot()
	published := make([]models.MonitoredSession, 0, len(snapshot))

	var idle, watching, tempOn, tempCount int
	for i := range snapshot {
		s := &snapshot[i]
		entry := models.MonitoredSession{
			PlaybackID:     s.PlaybackID,
			DeviceName:     s.DeviceName,
			MachineID:      s.MachineID,
			MediaTitle:     s.MediaTitle,
			ViewOffsetMS:   s.ViewOffsetMS,
			AccurateTimeMS: s.AccurateTimeMS,
			KnownSubsOn:    s.KnownSubsOn.String(),
			SubtitleCount:  len(s.AvailableSubtitles),
		}
		if s.PreferredSubtitle != nil {
			entry.PreferredSub = s.PreferredSubtitle.Title
		}

		if mon, ok := m.monitors[s.PlaybackID]; ok {
			state := mon.State()
			entry.MonitorState = state.Phase.String()
			entry.TempSubsOn = state.TempSubsOn
			entry.UserEnabledSubs = state.UserEnabledSubs

			switch state.Phase {
			case PhaseTempOn:
				tempOn++
			case PhaseWatching:
				watching++
			default:
				idle++
			}
			if state.TempSubsOn {
				tempCount++
			}
		}
		published = append(published, entry)
	}

	metrics.UpdateMonitorStates(idle, watching, tempOn)
	metrics.UpdateTempSubtitleSessions(tempCount)

	m.mu.Lock()
	m.published = published
	m.lastRefresh = m.registry.LastRefresh()
	m.tempCount = tempCount
	m.mu.Unlock()
}

// Sessions returns the snapshot published at the last tick boundary. Safe
// from any goroutine.
func (m *Manager) Sessions() []models.MonitoredSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.MonitoredSession, len(m.published))
	copy(out, m.published)
	return out
}

// SessionCount returns the number of sessions in the published snapshot.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.published)
}

// TempSubtitleCount returns how many sessions have a temporary enable
// outstanding.
func (m *Manager) TempSubtitleCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tempCount
}

// LastRefresh returns when the registry last reconciled successfully.
func (m *Manager) LastRefresh() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRefresh
}
