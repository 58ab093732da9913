// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

// Package models defines the Plex wire formats SubRewind consumes and the
// response types its status API produces.
//
// Plex speaks two formats to this agent:
//
//   - XML for the server's active-session listing (/status/sessions) and for
//     per-player timeline polls ({player}/player/timeline/poll). Player devices
//     only answer the timeline endpoint in XML, so both session-class responses
//     are modeled with encoding/xml attribute tags.
//   - JSON for push notifications, both on the SSE endpoint
//     (/:/eventsource/notifications) and the WebSocket endpoint
//     (/:/websockets/notifications). These are decoded with goccy/go-json.
//
// The types in this package are pure data carriers: parsing helpers live here,
// all session lifecycle logic lives in internal/registry.
package models
