// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

// Package registry tracks active playback sessions.
//
// It reconciles against the server's session listing on every tick, carries
// the per-session facts the rewind monitors consume (positions, subtitle
// inventory, observed subtitle state), and applies the subtitle preference
// policy when a session is first sighted. Sessions that vanish from the
// listing survive a grace period before retiring, because the server briefly
// drops paused and transitioning playbacks.
//
// The registry is single-writer by design: only the monitor manager's tick
// goroutine mutates it. Everyone else reads Snapshot copies.
package registry
