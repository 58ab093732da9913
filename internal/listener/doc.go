// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

// Package listener consumes the server's push notification stream.
//
// Two interchangeable transports deliver the same typed events on a bounded
// channel: the eventsource (SSE) endpoint, which is the default, and the
// WebSocket endpoint for deployments where proxies break long-lived event
// streams. Neither transport reconnects on its own; an unexpected stream end
// returns ErrDisconnected and the connection supervisor rebuilds the
// pipeline.
//
// The SSE framing is parsed by a pure fold (parser.go) so the line-to-event
// logic is testable without sockets.
package listener
