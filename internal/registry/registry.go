// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

/*
registry.go - Session Registry

The registry reconciles its session set against the server's /status/sessions
listing every tick:

  - Sessions already tracked are updated in place and re-polled for an
    accurate timeline position
  - Sessions newly listed are created, get their preferred subtitle computed,
    and trigger the OnCreate hook (monitor creation)
  - Sessions missing from the listing are NOT retired immediately: the server
    briefly drops paused or transitioning playbacks, so entries survive a
    configurable grace period before the OnRetire hook fires

Concurrency: a Registry has exactly one writer, the monitor manager's tick
loop. It carries no locks; readers outside the tick loop must work from
Snapshot copies published at tick boundaries.
*/

//nolint:staticcheck // File documentation, not package doc
package registry

import (
	"context"
	"sort"
	"time"

	"github.com/tomtom215/subrewind/internal/config"
	"github.com/tomtom215/subrewind/internal/logging"
	"github.com/tomtom215/subrewind/internal/metrics"
	"github.com/tomtom215/subrewind/internal/models"
	"github.com/tomtom215/subrewind/internal/plex"
)

// SessionLister fetches the server's active session listing.
// Satisfied by *plex.Client.
type SessionLister interface {
	Sessions(ctx context.Context) (*models.SessionContainer, error)
}

// TimelinePoller fetches one device's timeline. Satisfied by *plex.Client.
type TimelinePoller interface {
	PollTimeline(ctx context.Context, machineID, deviceName, directURL string) (*plex.TimelineSnapshot, error)
}

// Hooks are the registry's lifecycle callbacks. Both run synchronously on
// the tick goroutine.
type Hooks struct {
	// OnCreate fires after a new session entered the registry.
	OnCreate func(session *PlaybackSession)
	// OnRetire fires after a session left the registry.
	OnRetire func(playbackID string)
}

// Registry is the set of active playback sessions keyed by playback id.
type Registry struct {
	lister SessionLister
	poller TimelinePoller
	hooks  Hooks

	patterns       []string
	preferExternal bool
	grace          time.Duration

	sessions    map[string]*PlaybackSession
	lastRefresh time.Time

	// now is a test seam for grace-period arithmetic.
	now func() time.Time
}

// New creates an empty registry.
func New(lister SessionLister, poller TimelinePoller, cfg *config.Config, hooks Hooks) *Registry {
	return &Registry{
		lister:         lister,
		poller:         poller,
		hooks:          hooks,
		patterns:       cfg.Subtitles.Preferences,
		preferExternal: cfg.Subtitles.PreferExternal,
		grace:          cfg.Monitor.SessionGrace,
		sessions:       make(map[string]*PlaybackSession),
		now:            time.Now,
	}
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	return len(r.sessions)
}

// Get returns the live session for id. The pointer is only valid on the tick
// goroutine; other readers use Snapshot.
func (r *Registry) Get(playbackID string) (*PlaybackSession, bool) {
	s, ok := r.sessions[playbackID]
	return s, ok
}

// LastRefresh returns when the last successful refresh completed.
func (r *Registry) LastRefresh() time.Time {
	return r.lastRefresh
}

// Snapshot returns deep copies of all sessions, ordered by playback id for
// deterministic iteration.
func (r *Registry) Snapshot() []PlaybackSession {
	out := make([]PlaybackSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlaybackID < out[j].PlaybackID })
	return out
}

// Refresh reconciles the registry against the server listing. A failed
// listing fetch leaves the registry untouched; sessions only age toward
// retirement on refreshes that actually observed the server.
func (r *Registry) Refresh(ctx context.Context) error {
	start := time.Now()
	container, err := r.lister.Sessions(ctx)
	metrics.RecordRegistryRefresh(time.Since(start), err)
	if err != nil {
		return err
	}

	now := r.now()
	seen := make(map[string]bool, len(container.Videos))

	for i := range container.Videos {
		video := &container.Videos[i]
		id := video.PlaybackID()
		if id == "" {
			continue
		}
		seen[id] = true

		if existing, ok := r.sessions[id]; ok {
			r.updateSession(ctx, existing, video)
		} else {
			r.createSession(ctx, id, video)
		}
	}

	r.retireStale(now, seen)

	r.lastRefresh = now
	metrics.UpdateSessionsTracked(len(r.sessions))
	return nil
}

// updateSession refreshes a tracked session from its server listing entry
// and re-polls the device timeline for an accurate position.
func (r *Registry) updateSession(ctx context.Context, s *PlaybackSession, video *models.VideoSession) {
	s.SessionKey = video.SessionKey
	s.ViewOffsetMS = video.ViewOffset
	s.ActiveSubtitleIDs = video.SelectedSubtitleIDs()
	s.PlayerState = video.Player.State
	s.LastSeen = time.Time{}

	r.applyTimeline(ctx, s)
}

// createSession builds a new registry entry from a server listing entry,
// computes its preferred subtitle, and fires the OnCreate hook.
func (r *Registry) createSession(ctx context.Context, id string, video *models.VideoSession) {
	streams := video.SubtitleStreams()
	available := make([]SubtitleStream, 0, len(streams))
	for i := range streams {
		available = append(available, subtitleFromStream(&streams[i]))
	}

	s := &PlaybackSession{
		PlaybackID:         id,
		SessionKey:         video.SessionKey,
		MachineID:          video.Player.MachineIdentifier,
		DeviceName:         video.Player.Title,
		MediaTitle:         video.DisplayTitle(),
		DirectURL:          video.DirectURL(),
		AvailableSubtitles: available,
		ActiveSubtitleIDs:  video.SelectedSubtitleIDs(),
		PreferredSubtitle:  ChoosePreferred(available, r.patterns, r.preferExternal),
		ViewOffsetMS:       video.ViewOffset,
		PlayerState:        video.Player.State,
	}

	r.applyTimeline(ctx, s)
	r.sessions[id] = s
	metrics.RecordSessionCreated()

	event := logging.Info().
		Str("playback_id", id).
		Str("device", s.DeviceName).
		Str("title", s.MediaTitle).
		Int("subtitles", len(available))
	if s.PreferredSubtitle != nil {
		event = event.Str("preferred_subtitle", s.PreferredSubtitle.Title)
	}
	event.Msg("Tracking new session")

	if r.hooks.OnCreate != nil {
		r.hooks.OnCreate(s)
	}
}

// applyTimeline overwrites the session's accurate position and observed
// subtitle state from one timeline poll, or clears them to unknown when the
// device did not answer usefully.
func (r *Registry) applyTimeline(ctx context.Context, s *PlaybackSession) {
	snap, err := r.poller.PollTimeline(ctx, s.MachineID, s.DeviceName, s.DirectURL)
	if err != nil {
		logging.Debug().
			Err(err).
			Str("device", s.DeviceName).
			Msg("Timeline poll failed")
	}
	if snap == nil {
		s.AccurateTimeMS = nil
		s.KnownSubsOn = TriUnknown
		return
	}
	timeMS := snap.TimeMS
	s.AccurateTimeMS = &timeMS
	s.KnownSubsOn = TriFromBool(snap.SubtitlesOn())
	if snap.State != "" {
		s.PlayerState = snap.State
	}
}

// retireStale stamps newly absent sessions and retires those absent for
// longer than the grace period.
func (r *Registry) retireStale(now time.Time, seen map[string]bool) {
	for id, s := range r.sessions {
		if seen[id] {
			continue
		}
		if s.LastSeen.IsZero() {
			s.LastSeen = now
			logging.Debug().
				Str("playback_id", id).
				Str("device", s.DeviceName).
				Msg("Session missing from listing, starting grace period")
			continue
		}
		if now.Sub(s.LastSeen) > r.grace {
			r.retire(id, "grace_expired")
		}
	}
}

// ApplyPlaying folds one push notification into the registry. Playing and
// paused updates touch positions in place; a stopped notification retires
// the session immediately. Push events never create sessions: creation stays
// in Refresh where the full media listing is available.
func (r *Registry) ApplyPlaying(notification *models.PlaySessionState) {
	id := notification.PlaybackID()
	s, ok := r.sessions[id]
	if !ok {
		return
	}

	if notification.IsStopped() {
		r.retire(id, "stopped")
		metrics.UpdateSessionsTracked(len(r.sessions))
		return
	}

	s.ViewOffsetMS = notification.ViewOffset
	offset := notification.ViewOffset
	s.AccurateTimeMS = &offset
	if notification.State != "" {
		s.PlayerState = notification.State
	}
}

// retire removes one session and fires the OnRetire hook.
func (r *Registry) retire(playbackID, reason string) {
	s := r.sessions[playbackID]
	delete(r.sessions, playbackID)
	metrics.RecordSessionRetired(reason)

	logging.Info().
		Str("playback_id", playbackID).
		Str("device", s.DeviceName).
		Str("reason", reason).
		Msg("Session retired")

	if r.hooks.OnRetire != nil {
		r.hooks.OnRetire(playbackID)
	}
}
