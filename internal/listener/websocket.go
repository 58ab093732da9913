// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

/*
websocket.go - WebSocket Notification Listener

The alternative notification transport. Plex publishes the same notifications
on /:/websockets/notifications as JSON frames wrapped in a
NotificationContainer envelope; this transport exists for servers or reverse
proxies that mishandle long-lived event streams.

Behavior mirrors the SSE transport: typed events on the same bounded channel,
no internal reconnection (the connection supervisor owns restart policy), and
an unexpected close surfacing as ErrDisconnected.

Keepalive: a ping every 30 seconds, a 60-second read deadline refreshed by
pongs. A missed deadline ends Run with ErrDisconnected.
*/

//nolint:staticcheck // File documentation, not package doc
package listener

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/subrewind/internal/config"
	"github.com/tomtom215/subrewind/internal/logging"
	"github.com/tomtom215/subrewind/internal/metrics"
	"github.com/tomtom215/subrewind/internal/models"
)

const (
	wsHandshakeTimeout = 10 * time.Second
	wsPingInterval     = 30 * time.Second
	wsReadDeadline     = 60 * time.Second
	wsWriteTimeout     = 10 * time.Second
)

// WebSocketListener consumes notifications over the WebSocket endpoint.
type WebSocketListener struct {
	creds  Credentials
	events chan Event
}

// NewWebSocketListener creates the WebSocket transport.
func NewWebSocketListener(creds Credentials, cfg *config.Config) *WebSocketListener {
	buffer := cfg.Listener.Buffer
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &WebSocketListener{
		creds:  creds,
		events: make(chan Event, buffer),
	}
}

// Events returns the bounded typed-event channel.
func (l *WebSocketListener) Events() <-chan Event {
	return l.events
}

// Run dials the endpoint and reads frames until the context ends or the
// connection dies.
func (l *WebSocketListener) Run(ctx context.Context) error {
	wsURL, err := l.buildURL()
	if err != nil {
		return fmt.Errorf("listener: %w", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout:  wsHandshakeTimeout,
		EnableCompression: true,
	}
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("listener: %w", errUnauthorized)
		}
		return fmt.Errorf("%w: websocket dial: %w", ErrDisconnected, err)
	}
	defer conn.Close()

	metrics.SetListenerConnected(true)
	defer metrics.SetListenerConnected(false)
	logging.Info().Str("transport", "websocket").Msg("Notification listener connected")

	// Close the connection when ctx ends so the blocking read unblocks.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	})

	pingDone := make(chan struct{})
	go l.pingLoop(ctx, conn, pingDone)
	defer func() { <-pingDone }()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				logging.Info().Str("transport", "websocket").Msg("Notification listener stopped")
				return ctx.Err()
			}
			logging.Warn().Err(err).Str("transport", "websocket").Msg("Notification stream ended unexpectedly")
			return fmt.Errorf("%w: %w", ErrDisconnected, err)
		}
		l.handleFrame(payload)
	}
}

// pingLoop keeps the connection alive until ctx ends.
func (l *WebSocketListener) pingLoop(ctx context.Context, conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(wsWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// handleFrame parses one frame and queues the typed events it carries.
func (l *WebSocketListener) handleFrame(payload []byte) {
	notification, err := models.ParseWebsocketNotification(payload)
	if err != nil {
		logging.Debug().Err(err).Msg("Dropping malformed websocket frame")
		metrics.RecordListenerParseFailure()
		return
	}

	for _, event := range containerEvents(&notification.NotificationContainer) {
		metrics.RecordListenerEvent(event.Type.String())
		if event.Type == EventPing {
			continue
		}
		emitBounded(l.events, event)
	}
}

// containerEvents flattens one NotificationContainer into typed events.
func containerEvents(container *models.NotificationContainer) []Event {
	switch {
	case container.Type == recordPlaying:
		events := make([]Event, 0, len(container.PlaySessionStateNotification))
		for i := range container.PlaySessionStateNotification {
			events = append(events, Event{
				Type:    EventPlaying,
				Name:    container.Type,
				Playing: &container.PlaySessionStateNotification[i],
			})
		}
		return events

	case container.Type == recordActivity:
		events := make([]Event, 0, len(container.ActivityNotification))
		for i := range container.ActivityNotification {
			events = append(events, Event{
				Type:     EventActivity,
				Name:     container.Type,
				Activity: &container.ActivityNotification[i],
			})
		}
		return events

	case strings.HasPrefix(container.Type, transcodePrefix):
		events := make([]Event, 0, len(container.TranscodeSession))
		for i := range container.TranscodeSession {
			events = append(events, Event{
				Type:      EventTranscode,
				Name:      container.Type,
				Transcode: &container.TranscodeSession[i],
			})
		}
		return events

	case container.Type == recordPing:
		return []Event{{Type: EventPing, Name: container.Type}}

	default:
		return []Event{{Type: EventUnknown, Name: container.Type}}
	}
}

// buildURL converts the server base URL into the websocket endpoint.
func (l *WebSocketListener) buildURL() (string, error) {
	parsed, err := url.Parse(l.creds.BaseURL())
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	scheme := "ws"
	if parsed.Scheme == "https" {
		scheme = "wss"
	}

	endpoint := url.URL{
		Scheme: scheme,
		Host:   parsed.Host,
		Path:   "/:/websockets/notifications",
		RawQuery: url.Values{
			"X-Plex-Token": []string{l.creds.Token()},
		}.Encode(),
	}
	return endpoint.String(), nil
}

// NewListener selects the configured transport.
func NewListener(creds Credentials, cfg *config.Config) Listener {
	if cfg.Listener.Transport == config.TransportWebsocket {
		return NewWebSocketListener(creds, cfg)
	}
	return NewSSEListener(creds, cfg)
}
