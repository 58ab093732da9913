// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

package registry

import (
	"time"

	"github.com/tomtom215/subrewind/internal/models"
	"github.com/tomtom215/subrewind/internal/plex"
)

// TriBool is a three-valued boolean for facts the agent can only observe
// asynchronously. After issuing a subtitle command the true player state is
// unknown until the next timeline poll reconciles it.
type TriBool uint8

const (
	// TriUnknown means the fact has not been observed since it last changed.
	TriUnknown TriBool = iota
	// TriFalse means the fact was observed false.
	TriFalse
	// TriTrue means the fact was observed true.
	TriTrue
)

// String returns "unknown", "no" or "yes".
func (t TriBool) String() string {
	switch t {
	case TriFalse:
		return "no"
	case TriTrue:
		return "yes"
	default:
		return "unknown"
	}
}

// TriFromBool lifts an observed boolean into a TriBool.
func TriFromBool(b bool) TriBool {
	if b {
		return TriTrue
	}
	return TriFalse
}

// SubtitleStream describes one subtitle track of a session. Immutable within
// the session's lifetime.
type SubtitleStream struct {
	// ID is the stream id used on the setStreams wire call.
	ID string
	// Title is the extended display title used for preference matching.
	Title string
	// Language is the track's language name when known.
	Language string
	// External marks sidecar files as opposed to embedded tracks.
	External bool
	// Selected marks tracks the player reported as active.
	Selected bool
}

// subtitleFromStream converts a wire stream into the session model.
func subtitleFromStream(s *models.Stream) SubtitleStream {
	title := s.ExtendedDisplayTitle
	if title == "" {
		title = s.DisplayTitle
	}
	return SubtitleStream{
		ID:       s.ID,
		Title:    title,
		Language: s.Language,
		External: s.IsExternal(),
		Selected: s.Selected,
	}
}

// PlaybackSession is one active playback on one device, keyed by PlaybackID.
//
// Invariants:
//   - PlaybackID is unique within the registry
//   - ActiveSubtitleIDs is a subset of AvailableSubtitles ids
//   - KnownSubsOn is TriUnknown from the moment a subtitle command is issued
//     until the next successful timeline poll reconciles it
//   - AccurateTimeMS is non-nil iff the last timeline poll returned a usable
//     video entry
type PlaybackSession struct {
	PlaybackID string
	SessionKey string
	MachineID  string
	DeviceName string
	MediaTitle string
	DirectURL  string

	AvailableSubtitles []SubtitleStream
	ActiveSubtitleIDs  []string
	// PreferredSubtitle is the track a rewind will enable; nil when the
	// session has no subtitles. Computed once at creation.
	PreferredSubtitle *SubtitleStream

	// ViewOffsetMS is the authoritative position from the server listing or
	// a push event.
	ViewOffsetMS int64
	// AccurateTimeMS is the higher-resolution position from the last
	// timeline poll, when one succeeded.
	AccurateTimeMS *int64
	PlayerState    string

	KnownSubsOn TriBool

	// LastSeen is set when a refresh failed to observe the session; zero
	// while the server still lists it. Sessions absent for longer than the
	// grace period retire.
	LastSeen time.Time
}

// BestPositionMS returns the most precise position available: the timeline
// poll result when present, the server view offset otherwise.
func (s *PlaybackSession) BestPositionMS() int64 {
	if s.AccurateTimeMS != nil {
		return *s.AccurateTimeMS
	}
	return s.ViewOffsetMS
}

// HasActiveSubtitles reports whether the server listing marks any subtitle
// stream selected.
func (s *PlaybackSession) HasActiveSubtitles() bool {
	return len(s.ActiveSubtitleIDs) > 0
}

// IsPlaying reports whether the player last reported the playing state.
func (s *PlaybackSession) IsPlaying() bool {
	return s.PlayerState == models.PlayerStatePlaying
}

// Target returns the command routing identity for this session's device.
func (s *PlaybackSession) Target() plex.CommandTarget {
	return plex.CommandTarget{
		MachineID:  s.MachineID,
		DeviceName: s.DeviceName,
		DirectURL:  s.DirectURL,
		MediaTitle: s.MediaTitle,
	}
}

// Clone returns a deep copy safe to hand to readers outside the tick loop.
func (s *PlaybackSession) Clone() PlaybackSession {
	out := *s
	out.AvailableSubtitles = append([]SubtitleStream(nil), s.AvailableSubtitles...)
	out.ActiveSubtitleIDs = append([]string(nil), s.ActiveSubtitleIDs...)
	if s.PreferredSubtitle != nil {
		preferred := *s.PreferredSubtitle
		out.PreferredSubtitle = &preferred
	}
	if s.AccurateTimeMS != nil {
		accurate := *s.AccurateTimeMS
		out.AccurateTimeMS = &accurate
	}
	return out
}
