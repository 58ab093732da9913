// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

package listener

import (
	"context"
	"errors"

	"github.com/tomtom215/subrewind/internal/models"
)

// ErrDisconnected is returned by a transport's Run when the notification
// stream ended without the agent asking for it: EOF, a socket error, or the
// server closing the connection. The connection supervisor reacts by tearing
// the pipeline down and re-probing.
var ErrDisconnected = errors.New("listener: notification stream disconnected")

// EventType classifies a notification from the server.
type EventType int

const (
	// EventPlaying is a playback position / state change.
	EventPlaying EventType = iota
	// EventActivity is a library scan or background task update.
	EventActivity
	// EventTranscode is a transcode session start, update or end.
	EventTranscode
	// EventPing is the stream keepalive. Never queued.
	EventPing
	// EventUnknown is any record the agent does not recognize.
	EventUnknown
)

// String returns the metric label for the event type.
func (t EventType) String() string {
	switch t {
	case EventPlaying:
		return "playing"
	case EventActivity:
		return "activity"
	case EventTranscode:
		return "transcode"
	case EventPing:
		return "ping"
	default:
		return "unknown"
	}
}

// Event is one typed notification delivered to the monitor manager. Exactly
// one of the payload pointers is non-nil, matching Type.
type Event struct {
	Type EventType
	// Name is the raw record name, e.g. "transcodeSession.update".
	Name string

	Playing   *models.PlaySessionState
	Activity  *models.ActivityNotification
	Transcode *models.TranscodeSessionNotification
}

// Listener is one notification transport: the SSE eventsource stream or the
// WebSocket endpoint. Run blocks until the context ends (returning ctx.Err())
// or the stream dies (returning ErrDisconnected or a kind-tagged error).
// Events delivers typed events on a bounded channel that survives reconnects.
type Listener interface {
	Run(ctx context.Context) error
	Events() <-chan Event
}
