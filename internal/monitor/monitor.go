// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

/*
monitor.go - Per-Session Monitor

One Monitor owns one session's state machine and performs its side effects.
The split with state.go is deliberate: Transition proposes, the monitor
disposes. A proposed state is committed only after every action it carries
succeeded on the wire, so TempSubsOn never claims an enable that did not
happen. On failure only the previous-position sample advances and the same
classification re-fires on the next tick.
*/

//nolint:staticcheck // File documentation, not package doc
package monitor

import (
	"context"
	"errors"

	"github.com/tomtom215/subrewind/internal/config"
	"github.com/tomtom215/subrewind/internal/logging"
	"github.com/tomtom215/subrewind/internal/metrics"
	"github.com/tomtom215/subrewind/internal/plex"
	"github.com/tomtom215/subrewind/internal/registry"
)

// SubtitleSetter issues one subtitle-stream command to one device.
// Satisfied by *plex.Dispatcher.
type SubtitleSetter interface {
	SetSubtitleStream(ctx context.Context, target plex.CommandTarget, streamID string) error
}

// ActivityRecorder receives notable lifecycle moments for the activity feed.
// Satisfied by *bus.Broker; may be nil.
type ActivityRecorder interface {
	Record(kind, playbackID, device, title, detail string)
}

// Activity feed kinds emitted by the monitor layer.
const (
	ActivitySessionStart = "session.start"
	ActivitySessionEnd   = "session.retire"
	ActivityRewind       = "rewind.detect"
	ActivitySubsEnable   = "subs.enable"
	ActivitySubsOff      = "subs.off"
)

// errNoSubtitles marks an enable that is impossible rather than failed: the
// session has no subtitle streams at all.
var errNoSubtitles = errors.New("session has no subtitle streams")

// Monitor drives the rewind state machine for one playback session. All
// methods run on the manager's tick goroutine.
type Monitor struct {
	playbackID string
	dispatcher SubtitleSetter
	activity   ActivityRecorder
	tuning     Tuning

	state State

	// target is refreshed every tick so a device address change between
	// ticks routes the next command correctly.
	target plex.CommandTarget
}

// NewMonitor creates a monitor for a freshly registered session and runs its
// setup pass on the session's current observation.
func NewMonitor(session *registry.PlaybackSession, cfg *config.Config, dispatcher SubtitleSetter, activity ActivityRecorder) *Monitor {
	m := &Monitor{
		playbackID: session.PlaybackID,
		dispatcher: dispatcher,
		activity:   activity,
		tuning:     tuningFrom(cfg),
		target:     session.Target(),
	}
	m.state = Setup(inputFrom(session))

	if m.state.UserEnabledSubs {
		logging.Debug().
			Str("playback_id", m.playbackID).
			Str("device", session.DeviceName).
			Msg("Subtitles already on at session start, deferring to the user")
	}
	return m
}

// tuningFrom derives the per-session thresholds from config. The position
// epsilon is the coarser of the tick cadence and the telemetry resolution: a
// difference smaller than either is indistinguishable from normal playback.
func tuningFrom(cfg *config.Config) Tuning {
	eps := cfg.Monitor.ActiveTick.Milliseconds()
	if res := cfg.Monitor.PositionResolution.Milliseconds(); res > eps {
		eps = res
	}
	return Tuning{
		MaxRewindMS:         cfg.Monitor.MaxRewind.Milliseconds(),
		RewindTriggerMS:     cfg.Monitor.RewindTrigger.Milliseconds(),
		FastForwardMarginMS: cfg.Monitor.FastForwardMargin.Milliseconds(),
		EpsilonMS:           eps,
	}
}

// inputFrom samples a session into a machine input.
func inputFrom(session *registry.PlaybackSession) Input {
	return Input{
		PositionMS:      session.BestPositionMS(),
		ActiveSubtitles: session.HasActiveSubtitles(),
		KnownSubsOn:     session.KnownSubsOn,
	}
}

// PlaybackID returns the session this monitor is bound to.
func (m *Monitor) PlaybackID() string { return m.playbackID }

// State returns the machine state as of the last committed tick.
func (m *Monitor) State() State { return m.state }

// TempSubsOn reports whether an agent-issued enable is outstanding.
func (m *Monitor) TempSubsOn() bool { return m.state.TempSubsOn }

// Tick advances the monitor by one observation of its live session. The
// session pointer is only touched on the tick goroutine; on a successful
// command its KnownSubsOn drops to unknown until a timeline poll reconciles
// it.
func (m *Monitor) Tick(ctx context.Context, session *registry.PlaybackSession) {
	m.target = session.Target()
	in := inputFrom(session)

	next, actions := Transition(m.state, in, m.tuning)
	for _, action := range actions {
		err := m.apply(ctx, action, session)
		switch {
		case err == nil:
		case errors.Is(err, errNoSubtitles):
			// Nothing to enable, now or ever, for this session. Abandon
			// the cycle so the same rewind does not re-fire every tick.
			m.state.LatestWatchedMS = in.PositionMS
			m.state.PreviousPositionMS = in.PositionMS
			return
		default:
			// Keep the old state; only the position sample advances.
			// The classification re-fires next tick and the dispatcher
			// retries naturally.
			m.state.PreviousPositionMS = in.PositionMS
			return
		}
	}
	m.state = next
}

// apply executes one action against the wire.
func (m *Monitor) apply(ctx context.Context, action Action, session *registry.PlaybackSession) error {
	switch action {
	case ActionEnable:
		return m.enable(ctx, session)
	case ActionReachOriginal:
		return m.disable(ctx, session, "reach_original")
	case ActionForceOffFastForward:
		return m.disable(ctx, session, "fast_forward")
	case ActionForceOffOverRewind:
		return m.disable(ctx, session, "over_rewind")
	default:
		return nil
	}
}

func (m *Monitor) enable(ctx context.Context, session *registry.PlaybackSession) error {
	metrics.RecordRewindDetected()
	m.record(ActivityRewind, session, "")

	if session.PreferredSubtitle == nil {
		metrics.RecordEnableFailure("no_subtitles")
		logging.Info().
			Str("playback_id", m.playbackID).
			Str("device", session.DeviceName).
			Str("title", session.MediaTitle).
			Msg("Rewind detected but the session has no subtitle streams")
		return errNoSubtitles
	}

	preferred := *session.PreferredSubtitle
	if err := m.dispatcher.SetSubtitleStream(ctx, m.target, preferred.ID); err != nil {
		metrics.RecordEnableFailure(plex.ErrKind(err).String())
		logging.Warn().
			Err(err).
			Str("playback_id", m.playbackID).
			Str("device", session.DeviceName).
			Msg("Subtitle enable failed")
		return err
	}

	session.KnownSubsOn = registry.TriUnknown
	metrics.RecordSubtitlesEnabled()
	logging.Info().
		Str("playback_id", m.playbackID).
		Str("device", session.DeviceName).
		Str("title", session.MediaTitle).
		Str("subtitle", preferred.Title).
		Int64("position_ms", session.BestPositionMS()).
		Int64("rewound_from_ms", m.state.LatestWatchedMS).
		Msg("Rewind detected, subtitles enabled")
	m.record(ActivitySubsEnable, session, preferred.Title)
	return nil
}

func (m *Monitor) disable(ctx context.Context, session *registry.PlaybackSession, reason string) error {
	if err := m.dispatcher.SetSubtitleStream(ctx, m.target, plex.DisableSubtitles); err != nil {
		logging.Warn().
			Err(err).
			Str("playback_id", m.playbackID).
			Str("device", session.DeviceName).
			Str("reason", reason).
			Msg("Subtitle disable failed")
		return err
	}

	session.KnownSubsOn = registry.TriUnknown
	metrics.RecordSubtitlesDisabled(reason)
	logging.Info().
		Str("playback_id", m.playbackID).
		Str("device", session.DeviceName).
		Str("title", session.MediaTitle).
		Str("reason", reason).
		Int64("position_ms", session.BestPositionMS()).
		Msg("Subtitles turned back off")
	m.record(ActivitySubsOff, session, reason)
	return nil
}

// Destroy closes the monitor out. An outstanding temporary enable is turned
// off best-effort so a stopped or vanished session is not left with
// subtitles the viewer never asked for.
func (m *Monitor) Destroy(ctx context.Context) {
	if !m.state.TempSubsOn {
		return
	}

	if err := m.dispatcher.SetSubtitleStream(ctx, m.target, plex.DisableSubtitles); err != nil {
		logging.Warn().
			Err(err).
			Str("playback_id", m.playbackID).
			Str("device", m.target.DeviceName).
			Msg("Could not turn subtitles off during teardown")
		return
	}

	metrics.RecordSubtitlesDisabled("teardown")
	logging.Info().
		Str("playback_id", m.playbackID).
		Str("device", m.target.DeviceName).
		Msg("Subtitles turned off during teardown")
	m.state.TempSubsOn = false
	m.state.Phase = PhaseWatching

	if m.activity != nil {
		m.activity.Record(ActivitySubsOff, m.playbackID, m.target.DeviceName, m.target.MediaTitle, "teardown")
	}
}

func (m *Monitor) record(kind string, session *registry.PlaybackSession, detail string) {
	if m.activity == nil {
		return
	}
	m.activity.Record(kind, session.PlaybackID, session.DeviceName, session.MediaTitle, detail)
}
