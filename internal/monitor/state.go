// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

/*
state.go - Rewind State Machine (pure core)

The decision logic of the whole agent, kept free of I/O: Transition maps
(state, tick sample, tuning) onto (new state, actions). The impure monitor
executes the actions and only commits the new state when they succeeded, so
a failed wire command can never corrupt the machine.

Classification of one sample p against the previous tick:

  - rewind:       p fell more than the trigger below the high-water mark,
                  but not beyond the maximum rewind window
  - over-rewind:  p fell beyond the window; deliberate seeking, leave alone
  - fast-forward: p jumped ahead of the previous sample by more than the
                  telemetry resolution plus a margin
  - caught up:    p crossed back above the high-water mark from a rewind

All comparisons are strict, so a jump of exactly the trigger distance does
nothing.
*/

//nolint:staticcheck // File documentation, not package doc
package monitor

import (
	"github.com/tomtom215/subrewind/internal/registry"
)

// Phase is the monitor's position in the rewind cycle.
type Phase int

const (
	// PhaseIdle means the monitor has not completed its setup pass.
	PhaseIdle Phase = iota
	// PhaseWatching means subtitles are not agent-driven; the monitor
	// tracks forward progress and watches for a rewind.
	PhaseWatching
	// PhaseTempOn means the agent enabled subtitles because of a rewind
	// and is waiting for playback to catch back up.
	PhaseTempOn
)

// String returns the metric label for the phase.
func (p Phase) String() string {
	switch p {
	case PhaseWatching:
		return "watching"
	case PhaseTempOn:
		return "temp_on"
	default:
		return "idle"
	}
}

// State is the complete per-session machine state.
//
// Invariants:
//   - TempSubsOn is true iff exactly one enable has been issued without a
//     matching disable
//   - While UserEnabledSubs is true no command is ever issued
//   - LatestWatchedMS only decreases on an explicit reset (over-rewind or
//     fast-forward)
type State struct {
	Phase Phase
	// UserEnabledSubs latches when the user drives subtitles themselves;
	// the agent then keeps its hands off until the user turns them off.
	UserEnabledSubs bool
	// LatestWatchedMS is the high-water mark of forward playback.
	LatestWatchedMS int64
	// PreviousPositionMS is the sample from the immediately preceding tick.
	PreviousPositionMS int64
	// TempSubsOn is true while an agent-issued enable has no matching
	// disable.
	TempSubsOn bool
}

// Input is one tick's observation of a session.
type Input struct {
	// PositionMS is the best available playback position.
	PositionMS int64
	// ActiveSubtitles reports whether the server listing marks a subtitle
	// stream selected. Used only to detect user action.
	ActiveSubtitles bool
	// KnownSubsOn is the reconciled player subtitle state; TriUnknown
	// between a command and the next successful timeline poll.
	KnownSubsOn registry.TriBool
}

// Tuning holds the per-session thresholds, all in milliseconds.
type Tuning struct {
	// MaxRewindMS bounds how far back a jump may land and still get
	// subtitles; anything farther is deliberate seeking.
	MaxRewindMS int64
	// RewindTriggerMS is the minimum backward jump considered a rewind.
	RewindTriggerMS int64
	// FastForwardMarginMS is the slack above EpsilonMS before a forward
	// jump counts as a skip.
	FastForwardMarginMS int64
	// EpsilonMS is the smallest meaningful position difference given the
	// telemetry resolution and tick cadence.
	EpsilonMS int64
}

// Action is a command the impure monitor must execute. At most one action
// results from one tick.
type Action int

const (
	// ActionEnable turns the preferred subtitle stream on.
	ActionEnable Action = iota
	// ActionReachOriginal turns subtitles off because playback crossed the
	// pre-rewind high-water mark.
	ActionReachOriginal
	// ActionForceOffFastForward turns subtitles off because the viewer
	// skipped ahead mid-cycle.
	ActionForceOffFastForward
	// ActionForceOffOverRewind turns subtitles off because the viewer
	// rewound beyond the window mid-cycle.
	ActionForceOffOverRewind
)

// String names the action for logs.
func (a Action) String() string {
	switch a {
	case ActionEnable:
		return "enable"
	case ActionReachOriginal:
		return "reach_original"
	case ActionForceOffFastForward:
		return "force_off_fast_forward"
	case ActionForceOffOverRewind:
		return "force_off_over_rewind"
	default:
		return "unknown"
	}
}

// Setup builds the initial state from the first observation of a session:
// the position seeds both marks, and subtitles already on means the user put
// them there.
func Setup(in Input) State {
	return State{
		Phase:              PhaseWatching,
		UserEnabledSubs:    in.KnownSubsOn == registry.TriTrue || in.ActiveSubtitles,
		LatestWatchedMS:    in.PositionMS,
		PreviousPositionMS: in.PositionMS,
	}
}

// Transition advances the machine by one tick. It is pure: no I/O, no
// clocks, no mutation of its arguments.
func Transition(s State, in Input, t Tuning) (State, []Action) {
	p := in.PositionMS

	next := s
	var actions []Action

	switch {
	case s.UserEnabledSubs:
		// The user drives; track progress and detect them turning
		// subtitles off again.
		next.LatestWatchedMS = p
		if !in.ActiveSubtitles && in.KnownSubsOn != registry.TriUnknown {
			next.UserEnabledSubs = false
		}

	case s.Phase == PhaseTempOn:
		switch {
		case p > s.PreviousPositionMS+t.EpsilonMS+t.FastForwardMarginMS:
			// Skipped ahead mid-cycle; the rewound region is moot.
			actions = append(actions, ActionForceOffFastForward)
			next.Phase = PhaseWatching
			next.TempSubsOn = false
			next.LatestWatchedMS = p

		case p < s.LatestWatchedMS-t.MaxRewindMS:
			// Rewound again, beyond the window this time.
			actions = append(actions, ActionForceOffOverRewind)
			next.Phase = PhaseWatching
			next.TempSubsOn = false
			next.LatestWatchedMS = p

		case p > s.LatestWatchedMS+t.EpsilonMS:
			// Caught back up past where the rewind started. The
			// high-water mark stays put; forward ticks move it.
			actions = append(actions, ActionReachOriginal)
			next.Phase = PhaseWatching
			next.TempSubsOn = false

		default:
			// Still inside the rewound region.
		}

	default: // PhaseWatching, user not driving
		if in.ActiveSubtitles && in.KnownSubsOn == registry.TriTrue && !s.TempSubsOn {
			// Subtitles appeared without us issuing anything: the user
			// turned them on. Latch and stand down.
			next.UserEnabledSubs = true
			next.LatestWatchedMS = p
			break
		}

		rewound := p < s.LatestWatchedMS-t.RewindTriggerMS
		tooFar := p < s.LatestWatchedMS-t.MaxRewindMS
		if rewound && !tooFar {
			actions = append(actions, ActionEnable)
			next.Phase = PhaseTempOn
			next.TempSubsOn = true
			// High-water mark deliberately kept: it is the point the
			// viewer rewound from.
		} else {
			next.LatestWatchedMS = p
		}
	}

	next.PreviousPositionMS = p
	return next, actions
}
