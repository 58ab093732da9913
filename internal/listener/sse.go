// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

/*
sse.go - Eventsource Notification Listener

The default notification transport: one long-lived GET against the server's
/:/eventsource/notifications endpoint, filtered to playback events. The body
is a text stream of blank-line-terminated records parsed by the pure fold in
parser.go.

Lifecycle:
  - Run connects, reads until the context ends or the stream dies, and
    returns; it never reconnects on its own. The connection supervisor owns
    restart policy, so a dead stream surfaces as ErrDisconnected.
  - Cancellation is cooperative: canceling the context closes the response
    body, which unblocks the line read immediately.

Events flow out on a bounded channel. When the monitor manager falls behind,
the oldest queued event is dropped first: a newer position always supersedes
an older one for the same session.
*/

//nolint:staticcheck // File documentation, not package doc
package listener

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tomtom215/subrewind/internal/config"
	"github.com/tomtom215/subrewind/internal/logging"
	"github.com/tomtom215/subrewind/internal/metrics"
)

// defaultBuffer is the event channel capacity when config leaves it unset.
const defaultBuffer = 256

// Credentials is the subset of the Plex client the transports need.
// Satisfied by *plex.Client.
type Credentials interface {
	BaseURL() string
	Token() string
	ClientID() string
}

// SSEListener consumes the eventsource notification stream.
type SSEListener struct {
	creds  Credentials
	client *http.Client
	events chan Event
}

// NewSSEListener creates the SSE transport. The event channel is created
// once and survives Run restarts.
func NewSSEListener(creds Credentials, cfg *config.Config) *SSEListener {
	buffer := cfg.Listener.Buffer
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &SSEListener{
		creds: creds,
		// No overall timeout: the stream is long-lived by design. The
		// request context carries cancellation.
		client: &http.Client{},
		events: make(chan Event, buffer),
	}
}

// Events returns the bounded typed-event channel.
func (l *SSEListener) Events() <-chan Event {
	return l.events
}

// Run connects and reads the stream until the context ends or the stream
// dies. A clean shutdown returns ctx.Err(); an unexpected end returns
// ErrDisconnected.
func (l *SSEListener) Run(ctx context.Context) error {
	body, err := l.connect(ctx)
	if err != nil {
		return err
	}
	defer body.Close()

	metrics.SetListenerConnected(true)
	defer metrics.SetListenerConnected(false)
	logging.Info().Str("transport", "sse").Msg("Notification listener connected")

	var folder recordFolder
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		event, complete := folder.FeedLine(scanner.Text())
		if !complete {
			continue
		}
		metrics.RecordListenerEvent(event.Type.String())
		if event.Type == EventPing {
			continue
		}
		l.emit(event)
	}

	// The read loop only exits when the stream ended. Distinguish "we were
	// asked to stop" from "the server went away".
	if ctx.Err() != nil {
		logging.Info().Str("transport", "sse").Msg("Notification listener stopped")
		return ctx.Err()
	}

	readErr := scanner.Err()
	if readErr == nil {
		readErr = io.EOF
	}
	logging.Warn().Err(readErr).Str("transport", "sse").Msg("Notification stream ended unexpectedly")
	return fmt.Errorf("%w: %w", ErrDisconnected, readErr)
}

// connect opens the eventsource request and validates the response.
func (l *SSEListener) connect(ctx context.Context) (io.ReadCloser, error) {
	endpoint := fmt.Sprintf("%s/:/eventsource/notifications?%s", l.creds.BaseURL(), url.Values{
		"filters": []string{"playing"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("listener: create request: %w", err)
	}
	req.Header.Set("X-Plex-Token", l.creds.Token())
	req.Header.Set("X-Plex-Client-Identifier", l.creds.ClientID())
	req.Header.Set("Accept", "text/event-stream")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDisconnected, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("listener: %w", errUnauthorized)
		}
		return nil, fmt.Errorf("%w: HTTP %d", ErrDisconnected, resp.StatusCode)
	}
	return resp.Body, nil
}

// errUnauthorized marks a rejected token on the stream endpoint; the
// supervisor treats it as fatal like any other 401.
var errUnauthorized = errors.New("notification stream rejected token (HTTP 401)")

// IsUnauthorized reports whether a listener error was a 401.
func IsUnauthorized(err error) bool {
	return errors.Is(err, errUnauthorized)
}

// emit queues one event without ever blocking the read loop. A full queue
// drops the oldest event first.
func (l *SSEListener) emit(event Event) {
	emitBounded(l.events, event)
}

// emitBounded is the shared non-blocking enqueue used by both transports.
func emitBounded(events chan Event, event Event) {
	select {
	case events <- event:
	default:
		select {
		case <-events:
			metrics.RecordEventDropped()
		default:
		}
		select {
		case events <- event:
		default:
		}
	}
	metrics.UpdateEventQueueDepth(len(events))
}
