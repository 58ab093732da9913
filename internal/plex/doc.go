// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

/*
Package plex talks HTTP to the Plex Media Server and to player devices.

It provides the four wire operations the agent needs, and nothing else:

  - Probe: is the server reachable, in maintenance, or rejecting our token
  - Sessions: the authoritative /status/sessions listing
  - PollTimeline: one device's high-resolution position and subtitle state
  - SetSubtitleStream: the only command the agent ever issues

# Request Classes

Requests split into two classes with separate http.Clients:

  - Command-class (setStreams): long timeout, serialized through a
    single-permit gate so contradictory commands are never in flight
    together, wrapped in a circuit breaker
  - Poll-class (probe, sessions, timeline): short timeout, rate limited,
    never gated, so the tick loop stays responsive

# Error Taxonomy

Every failure is a kind-tagged *Error (transport, maintenance, unauthorized,
not_found, parse, rejected). Callers branch with IsKind / ErrKind; nothing in
this package panics or propagates raw HTTP details upward.
*/
package plex
