// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

package models

import (
	"fmt"

	"github.com/goccy/go-json"
)

// PlaySessionState is the payload of a "playing" notification. The SSE
// endpoint delivers it as the single value of a one-key JSON object; the
// WebSocket endpoint delivers it inside a NotificationContainer array.
type PlaySessionState struct {
	SessionKey       string `json:"sessionKey"`
	ClientIdentifier string `json:"clientIdentifier"`
	RatingKey        string `json:"ratingKey"`
	Key              string `json:"key"`
	GUID             string `json:"guid"`
	ViewOffset       int64  `json:"viewOffset"`
	State            string `json:"state"`
	TranscodeSession string `json:"transcodeSession"`
}

// PlaybackID returns the registry identity for this notification. Plex puts
// the per-playback client identifier in clientIdentifier on push events.
func (p *PlaySessionState) PlaybackID() string {
	return p.ClientIdentifier
}

// IsPlaying reports whether the notification carries an active state.
func (p *PlaySessionState) IsPlaying() bool {
	return p.State == PlayerStatePlaying
}

// IsStopped reports whether the session ended.
func (p *PlaySessionState) IsStopped() bool {
	return p.State == PlayerStateStopped
}

// playingEnvelope matches the SSE "playing" data body: a single-key object
// whose inner value is the notification.
type playingEnvelope struct {
	PlaySessionStateNotification *PlaySessionState `json:"PlaySessionStateNotification"`
}

// ParsePlayingData decodes the data body of an SSE "playing" record.
func ParsePlayingData(data []byte) (*PlaySessionState, error) {
	var envelope playingEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("parse playing notification: %w", err)
	}
	if envelope.PlaySessionStateNotification == nil {
		return nil, fmt.Errorf("parse playing notification: missing PlaySessionStateNotification")
	}
	return envelope.PlaySessionStateNotification, nil
}

// ActivityNotification is the payload of an "activity" record. The agent only
// logs these; they carry library scan and background task progress.
type ActivityNotification struct {
	Event string `json:"event"`
	UUID  string `json:"uuid"`
}

// activityEnvelope matches the SSE "activity" data body.
type activityEnvelope struct {
	ActivityNotification *ActivityNotification `json:"ActivityNotification"`
}

// ParseActivityData decodes the data body of an SSE "activity" record.
func ParseActivityData(data []byte) (*ActivityNotification, error) {
	var envelope activityEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("parse activity notification: %w", err)
	}
	if envelope.ActivityNotification == nil {
		return nil, fmt.Errorf("parse activity notification: missing ActivityNotification")
	}
	return envelope.ActivityNotification, nil
}

// TranscodeSessionNotification is the payload of transcodeSession.* records.
type TranscodeSessionNotification struct {
	Key           string  `json:"key"`
	Throttled     bool    `json:"throttled"`
	Complete      bool    `json:"complete"`
	Progress      float64 `json:"progress"`
	VideoDecision string  `json:"videoDecision"`
}

// NotificationContainer is the envelope used by the WebSocket endpoint
// (/:/websockets/notifications). The type field routes to the populated
// notification array.
type NotificationContainer struct {
	Type                         string                         `json:"type"`
	Size                         int                            `json:"size"`
	PlaySessionStateNotification []PlaySessionState             `json:"PlaySessionStateNotification,omitempty"`
	ActivityNotification         []ActivityNotification         `json:"ActivityNotification,omitempty"`
	TranscodeSession             []TranscodeSessionNotification `json:"TranscodeSession,omitempty"`
}

// WebsocketNotification is one frame from the WebSocket endpoint.
type WebsocketNotification struct {
	NotificationContainer NotificationContainer `json:"NotificationContainer"`
}

// ParseWebsocketNotification decodes one WebSocket frame.
func ParseWebsocketNotification(data []byte) (*WebsocketNotification, error) {
	var notification WebsocketNotification
	if err := json.Unmarshal(data, &notification); err != nil {
		return nil, fmt.Errorf("parse websocket notification: %w", err)
	}
	return &notification, nil
}
