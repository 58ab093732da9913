// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

package plex

import (
	"context"

	"github.com/tomtom215/subrewind/internal/metrics"
)

// ProbeResult classifies one reachability probe of the server root.
type ProbeResult int

const (
	// ProbeConnected means the server answered 2xx and the pipeline may start.
	ProbeConnected ProbeResult = iota
	// ProbeMaintenance means a 503 with the maintenance marker; retry sooner.
	ProbeMaintenance
	// ProbeUnauthorized means the token was rejected. Fatal for the caller.
	ProbeUnauthorized
	// ProbeUnreachable covers refused connections, timeouts and any other
	// failure. Retry with normal backoff.
	ProbeUnreachable
)

// String returns the probe result label used in logs and metrics.
func (r ProbeResult) String() string {
	switch r {
	case ProbeConnected:
		return "connected"
	case ProbeMaintenance:
		return "maintenance"
	case ProbeUnauthorized:
		return "unauthorized"
	default:
		return "unreachable"
	}
}

// Probe checks whether the server root endpoint answers. It never returns an
// error: every outcome maps onto a ProbeResult for the connection supervisor
// to act on.
func (c *Client) Probe(ctx context.Context) ProbeResult {
	_, err := c.getBody(ctx, requestConfig{
		op:   "probe",
		path: "/",
		poll: true,
	})

	result := probeResultFor(err)
	metrics.RecordServerProbe(result.String())
	metrics.SetServerConnected(result == ProbeConnected)
	return result
}

// probeResultFor maps a getBody error onto a ProbeResult.
func probeResultFor(err error) ProbeResult {
	if err == nil {
		return ProbeConnected
	}
	switch ErrKind(err) {
	case KindMaintenance:
		return ProbeMaintenance
	case KindAuth:
		return ProbeUnauthorized
	default:
		return ProbeUnreachable
	}
}
