// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

/*
connection.go - Connection Supervisor

The outermost control loop of the pipeline: probe the server, run the
listener and the monitor manager while the connection holds, tear both down
and re-probe when the notification stream drops.

Loop contract:
  - Probe outcomes: connected starts the pipeline; maintenance retries on a
    short fixed backoff; unreachable retries on doubling backoff capped at
    one minute; unauthorized terminates the whole tree (a bad token does not
    heal by retrying)
  - The listener and the manager share one inner context. Whichever side
    stops first cancels the other, and the supervisor waits for both before
    re-probing, so two pipelines never overlap
  - Monitor state lives in the manager, which is constructed once and only
    has its Run loop restarted: an open temporary-subtitle cycle survives a
    reconnect
*/

//nolint:staticcheck // File documentation, not package doc
package supervisor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/subrewind/internal/listener"
	"github.com/tomtom215/subrewind/internal/logging"
	"github.com/tomtom215/subrewind/internal/metrics"
	"github.com/tomtom215/subrewind/internal/plex"
)

const (
	initialBackoff     = 1 * time.Second
	maxBackoff         = 60 * time.Second
	maintenanceBackoff = 5 * time.Second
	// reconnectDelay spaces the first re-probe after a stream drop; the
	// server that just dropped us rarely answers a millisecond later.
	reconnectDelay = 1 * time.Second
)

// Prober checks server reachability. Satisfied by *plex.Client.
type Prober interface {
	Probe(ctx context.Context) plex.ProbeResult
}

// PipelineRunner is the manager side of the pipeline. Satisfied by
// *monitor.Manager.
type PipelineRunner interface {
	Run(ctx context.Context) error
}

// ActivityRecorder mirrors the monitor layer's feed seam; may be nil.
type ActivityRecorder interface {
	Record(kind, playbackID, device, title, detail string)
}

// activityListenerDrop is the feed kind for an unexpected stream end.
const activityListenerDrop = "listener.disconnect"

// ConnectionSupervisor owns the probe/run/reconnect cycle. It implements
// suture.Service; the only errors it surfaces are context cancellation and
// the tree-terminating credential rejection.
type ConnectionSupervisor struct {
	prober   Prober
	listener listener.Listener
	manager  PipelineRunner
	activity ActivityRecorder

	serverUp   atomic.Bool
	listenerUp atomic.Bool
}

// NewConnectionSupervisor wires the supervisor over an already constructed
// listener and manager.
func NewConnectionSupervisor(prober Prober, lst listener.Listener, manager PipelineRunner, activity ActivityRecorder) *ConnectionSupervisor {
	return &ConnectionSupervisor{
		prober:   prober,
		listener: lst,
		manager:  manager,
		activity: activity,
	}
}

// String names the service in supervision logs.
func (s *ConnectionSupervisor) String() string {
	return "connection-supervisor"
}

// ServerConnected reports whether the last probe succeeded and the pipeline
// is up.
func (s *ConnectionSupervisor) ServerConnected() bool {
	return s.serverUp.Load()
}

// ListenerRunning reports whether the notification transport currently holds
// a stream.
func (s *ConnectionSupervisor) ListenerRunning() bool {
	return s.listenerUp.Load()
}

// Serve implements suture.Service.
func (s *ConnectionSupervisor) Serve(ctx context.Context) error {
	backoff := initialBackoff

	for {
		result := s.prober.Probe(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		switch result {
		case plex.ProbeConnected:
			// Fall through to run the pipeline.

		case plex.ProbeUnauthorized:
			logging.Error().Msg("Server rejected the token; refusing to retry")
			return fmt.Errorf("server rejected credentials: %w", suture.ErrTerminateSupervisorTree)

		default:
			wait := backoff
			if result == plex.ProbeMaintenance {
				// Maintenance windows end on their own schedule; poll
				// them on a short fixed interval instead of backing off.
				wait = maintenanceBackoff
			} else if backoff < maxBackoff {
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}

			metrics.UpdateReconnectBackoff(wait)
			logging.Warn().
				Str("probe", result.String()).
				Dur("retry_in", wait).
				Msg("Server not reachable")

			if !sleepCtx(ctx, wait) {
				return ctx.Err()
			}
			continue
		}

		backoff = initialBackoff
		metrics.UpdateReconnectBackoff(0)
		s.serverUp.Store(true)
		logging.Info().Msg("Server reachable, starting notification pipeline")

		err := s.runPipeline(ctx)
		s.serverUp.Store(false)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if listener.IsUnauthorized(err) {
			logging.Error().Err(err).Msg("Notification stream rejected the token; refusing to retry")
			return fmt.Errorf("listener rejected credentials: %w", suture.ErrTerminateSupervisorTree)
		}

		metrics.RecordListenerReconnect()
		logging.Warn().Err(err).Msg("Notification stream lost, reconnecting")
		if s.activity != nil {
			detail := ""
			if err != nil {
				detail = err.Error()
			}
			s.activity.Record(activityListenerDrop, "", "", "", detail)
		}

		if !sleepCtx(ctx, reconnectDelay) {
			return ctx.Err()
		}
	}
}

// runPipeline runs the listener and the manager under one shared context and
// returns the listener's exit error once both sides stopped.
func (s *ConnectionSupervisor) runPipeline(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	managerDone := make(chan error, 1)
	go func() {
		managerDone <- s.manager.Run(runCtx)
	}()

	s.listenerUp.Store(true)
	metrics.SetListenerConnected(true)
	err := s.listener.Run(runCtx)
	metrics.SetListenerConnected(false)
	s.listenerUp.Store(false)

	cancel()
	<-managerDone
	return err
}

// sleepCtx waits for d or the context; false means the context ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
