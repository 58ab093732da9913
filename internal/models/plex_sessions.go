// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

package models

import (
	"encoding/xml"
	"fmt"
)

// Stream type constants from the Plex API.
const (
	// StreamTypeVideo identifies a video stream.
	StreamTypeVideo = 1
	// StreamTypeAudio identifies an audio stream.
	StreamTypeAudio = 2
	// StreamTypeSubtitle identifies a subtitle stream.
	StreamTypeSubtitle = 3
)

// Player state constants reported by Plex sessions and timelines.
const (
	PlayerStatePlaying = "playing"
	PlayerStatePaused  = "paused"
	PlayerStateStopped = "stopped"
	PlayerStateBuffer  = "buffering"
)

// SessionContainer is the root element of GET /status/sessions.
// Each Video child is one active playback.
type SessionContainer struct {
	XMLName xml.Name       `xml:"MediaContainer"`
	Size    int            `xml:"size,attr"`
	Videos  []VideoSession `xml:"Video"`
}

// VideoSession is one active playback entry from /status/sessions.
type VideoSession struct {
	Key              string       `xml:"key,attr"`
	RatingKey        string       `xml:"ratingKey,attr"`
	SessionKey       string       `xml:"sessionKey,attr"`
	Type             string       `xml:"type,attr"`
	Title            string       `xml:"title,attr"`
	GrandparentTitle string       `xml:"grandparentTitle,attr"`
	ViewOffset       int64        `xml:"viewOffset,attr"`
	Duration         int64        `xml:"duration,attr"`
	Player           Player       `xml:"Player"`
	Session          *SessionInfo `xml:"Session"`
	Media            []Media      `xml:"Media"`
}

// Player describes the device driving a session. PlaybackID is the per-playback
// client identifier; it changes when the viewer switches to a different item on
// the same device.
type Player struct {
	MachineIdentifier string `xml:"machineIdentifier,attr"`
	Title             string `xml:"title,attr"`
	Address           string `xml:"address,attr"`
	Port              string `xml:"port,attr"`
	PlaybackID        string `xml:"playbackId,attr"`
	Product           string `xml:"product,attr"`
	Platform          string `xml:"platform,attr"`
	State             string `xml:"state,attr"`
	Local             bool   `xml:"local,attr"`
}

// SessionInfo carries the server-side session id for a Video entry.
type SessionInfo struct {
	ID        string `xml:"id,attr"`
	Bandwidth int    `xml:"bandwidth,attr"`
}

// Media is one media variant of a playing item.
type Media struct {
	ID    string `xml:"id,attr"`
	Parts []Part `xml:"Part"`
}

// Part is one file part of a media variant.
type Part struct {
	ID      string   `xml:"id,attr"`
	Streams []Stream `xml:"Stream"`
}

// Stream is one track inside a part. Subtitle streams have
// StreamType == StreamTypeSubtitle; selected="1" marks the active ones.
// External sidecar subtitle streams carry a non-empty key attribute.
type Stream struct {
	ID                   string `xml:"id,attr"`
	StreamType           int    `xml:"streamType,attr"`
	Codec                string `xml:"codec,attr"`
	Language             string `xml:"language,attr"`
	LanguageCode         string `xml:"languageCode,attr"`
	DisplayTitle         string `xml:"displayTitle,attr"`
	ExtendedDisplayTitle string `xml:"extendedDisplayTitle,attr"`
	Title                string `xml:"title,attr"`
	Selected             bool   `xml:"selected,attr"`
	Key                  string `xml:"key,attr"`
}

// IsSubtitle reports whether the stream is a subtitle track.
func (s *Stream) IsSubtitle() bool {
	return s.StreamType == StreamTypeSubtitle
}

// IsExternal reports whether the stream is a sidecar subtitle file rather
// than an embedded track. Plex exposes sidecar streams with a key attribute
// pointing at /library/streams/<id>.
func (s *Stream) IsExternal() bool {
	return s.Key != ""
}

// ParseSessionContainer decodes a /status/sessions response body.
func ParseSessionContainer(data []byte) (*SessionContainer, error) {
	var container SessionContainer
	if err := xml.Unmarshal(data, &container); err != nil {
		return nil, fmt.Errorf("parse session container: %w", err)
	}
	return &container, nil
}

// PlaybackID returns the identity key for this playback: the Player's
// playbackId attribute when present, the machine identifier otherwise.
// Older servers omit playbackId; on those a device can only run one
// playback at a time, so the machine identifier is an adequate key.
func (v *VideoSession) PlaybackID() string {
	if v.Player.PlaybackID != "" {
		return v.Player.PlaybackID
	}
	return v.Player.MachineIdentifier
}

// SessionID returns the server-side session id, or empty when absent.
func (v *VideoSession) SessionID() string {
	if v.Session == nil {
		return ""
	}
	return v.Session.ID
}

// SubtitleStreams returns all subtitle tracks across media parts, in
// document order.
func (v *VideoSession) SubtitleStreams() []Stream {
	var subs []Stream
	for _, media := range v.Media {
		for _, part := range media.Parts {
			for _, stream := range part.Streams {
				if stream.IsSubtitle() {
					subs = append(subs, stream)
				}
			}
		}
	}
	return subs
}

// SelectedSubtitleIDs returns the ids of subtitle tracks marked selected.
func (v *VideoSession) SelectedSubtitleIDs() []string {
	var ids []string
	for _, stream := range v.SubtitleStreams() {
		if stream.Selected {
			ids = append(ids, stream.ID)
		}
	}
	return ids
}

// DisplayTitle returns a human-readable name for logging: the show title for
// episodes, the item title otherwise.
func (v *VideoSession) DisplayTitle() string {
	if v.GrandparentTitle != "" {
		return fmt.Sprintf("%s - %s", v.GrandparentTitle, v.Title)
	}
	return v.Title
}

// DirectURL returns the player's own callback endpoint, addressable from the
// agent's host, or empty when the player did not report an address.
func (v *VideoSession) DirectURL() string {
	if v.Player.Address == "" {
		return ""
	}
	port := v.Player.Port
	if port == "" {
		// Plex players listen on 32500 for /player requests unless they
		// advertise otherwise.
		port = "32500"
	}
	return fmt.Sprintf("http://%s:%s", v.Player.Address, port)
}
