// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

/*
dispatcher.go - Subtitle Command Dispatch

This file implements the single operation the rewind monitors need from the
server: setting (or clearing) the subtitle stream on one player device.

Dispatch Contract:
  - Serialization: all control commands share the client's single-permit
    gate, so contradictory commands are never in flight together
  - Routing: a primary and a secondary route (server relay vs the player's
    own /player endpoint); config picks the primary, and a failed primary is
    retried exactly once on the secondary
  - Idempotency: setStreams is safe to repeat; the dispatcher never dedupes
  - Errors: every failure comes back as a kind-tagged *Error; nothing
    propagates past the dispatcher as a panic
*/

//nolint:staticcheck // File documentation, not package doc
package plex

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/tomtom215/subrewind/internal/config"
	"github.com/tomtom215/subrewind/internal/logging"
	"github.com/tomtom215/subrewind/internal/metrics"
)

// DisableSubtitles is the subtitleStreamID value that turns subtitles off.
const DisableSubtitles = "0"

// CommandTarget identifies the player device a command is addressed to.
type CommandTarget struct {
	// MachineID is the device's machineIdentifier, sent as
	// X-Plex-Target-Client-Identifier on every route.
	MachineID string
	// DeviceName is the player's advertised title, sent as
	// X-Plex-Device-Name on the direct route.
	DeviceName string
	// DirectURL is the player's own callback endpoint; empty when the
	// device did not advertise an address.
	DirectURL string
	// MediaTitle is carried for logging only.
	MediaTitle string
}

// route is one way of reaching the player: through the server relay or
// straight at the device.
type route struct {
	name string // "server" or "direct"
	base string // empty means the server base URL
}

// Dispatcher issues subtitle-stream commands with serialization, routing and
// a circuit breaker around the wire calls.
type Dispatcher struct {
	client     *Client
	sendDirect bool
	breaker    *CommandBreaker
}

// NewDispatcher creates a command dispatcher on top of the shared client.
func NewDispatcher(client *Client, cfg *config.Config) *Dispatcher {
	return &Dispatcher{
		client:     client,
		sendDirect: cfg.Dispatch.SendDirectToDevice,
		breaker:    NewCommandBreaker("plex-commands"),
	}
}

// SetSubtitleStream sets the subtitle stream on the target device; streamID
// DisableSubtitles ("0") turns subtitles off. It blocks on the single-permit
// command gate, tries the primary route, and retries exactly once on the
// secondary when the primary fails. Success of either route is success.
//
// The caller is responsible for marking its known-subtitle state unknown on
// success: the player acknowledges the change asynchronously.
func (d *Dispatcher) SetSubtitleStream(ctx context.Context, target CommandTarget, streamID string) error {
	if err := d.client.acquireGate(ctx); err != nil {
		return transportError("set_streams", err)
	}
	defer d.client.releaseGate()

	routes := d.routesFor(target)

	var lastErr error
	for i, r := range routes {
		if i > 0 {
			metrics.RecordCommandRetry()
			logging.Debug().
				Str("device", target.DeviceName).
				Str("route", r.name).
				Msg("Retrying subtitle command on alternate route")
		}

		err := d.breaker.Execute(func() error {
			return d.setStreams(ctx, r, target, streamID)
		})
		if err == nil {
			logging.Debug().
				Str("device", target.DeviceName).
				Str("route", r.name).
				Str("stream_id", streamID).
				Msg("Subtitle command delivered")
			return nil
		}
		lastErr = err

		// An auth failure will not succeed on the other route either.
		if IsKind(err, KindAuth) {
			break
		}
	}
	return lastErr
}

// routesFor orders the available routes: config picks the primary, and the
// direct route only exists when the device advertised an address.
func (d *Dispatcher) routesFor(target CommandTarget) []route {
	server := route{name: "server"}
	direct := route{name: "direct", base: target.DirectURL}

	if target.DirectURL == "" {
		return []route{server}
	}
	if d.sendDirect {
		return []route{direct, server}
	}
	return []route{server, direct}
}

// setStreams performs one setStreams request on one route.
func (d *Dispatcher) setStreams(ctx context.Context, r route, target CommandTarget, streamID string) error {
	headers := make(http.Header)
	headers.Set("X-Plex-Target-Client-Identifier", target.MachineID)
	if r.base != "" && d.client.deviceName != "" {
		headers.Set("X-Plex-Device-Name", d.client.deviceName)
	}

	start := time.Now()
	_, err := d.client.getBody(ctx, requestConfig{
		op:   "set_streams",
		base: r.base,
		path: "/player/playback/setStreams",
		query: url.Values{
			"subtitleStreamID": []string{streamID},
			"type":             []string{"video"},
			"commandID":        []string{d.client.nextCommandID()},
		},
		headers: headers,
	})

	result := "success"
	if err != nil {
		result = ErrKind(err).String()
	}
	metrics.RecordCommand("set_streams", r.name, result, time.Since(start))
	return err
}
