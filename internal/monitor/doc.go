// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

// Package monitor implements the rewind detection core and the tick loop
// around it.
//
// Three layers, in order of purity:
//
//   - state.go: the pure per-session state machine. Transition classifies
//     one position sample (rewind, over-rewind, fast-forward, caught-up) and
//     proposes a new state plus the wire actions it requires.
//   - monitor.go: one impure Monitor per session. It executes the proposed
//     actions through the command dispatcher and commits the proposed state
//     only when they succeeded.
//   - manager.go: the single tick goroutine owning the registry and every
//     monitor, with an adaptive cadence and a published snapshot for HTTP
//     readers.
//
// The rule the layering protects: subtitles the agent turned on are always
// turned off again, on catch-up, on skip, on session end, and on shutdown,
// and never while the user is driving them.
package monitor
