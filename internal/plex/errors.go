// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

package plex

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Kind classifies a failed Plex request. Every HTTP call in this package
// returns an *Error carrying one of these kinds; callers branch on the kind
// instead of inspecting status codes or error strings.
type Kind int

const (
	// KindTransport covers connection refused, timeouts, DNS and TLS failures.
	KindTransport Kind = iota + 1
	// KindMaintenance is a 503 carrying the server's maintenance marker.
	KindMaintenance
	// KindAuth is a 401 from any endpoint. Not recoverable by retrying.
	KindAuth
	// KindNotFound is a 404; the target device may be transiently absent.
	KindNotFound
	// KindParse means the response body was not the expected XML or JSON.
	KindParse
	// KindRejected is any other non-2xx command response.
	KindRejected
)

// String returns the kind name used in logs and metric labels.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindMaintenance:
		return "maintenance"
	case KindAuth:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindParse:
		return "parse"
	case KindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Error is the kind-tagged error returned by all Plex HTTP operations.
type Error struct {
	Kind   Kind
	Op     string // operation name, e.g. "set_streams", "sessions"
	Status int    // HTTP status when the server answered, 0 otherwise
	Err    error  // wrapped cause, may be nil for pure status errors
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("plex %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("plex %s: %s (HTTP %d)", e.Op, e.Kind, e.Status)
	}
	return fmt.Sprintf("plex %s: %s", e.Op, e.Kind)
}

// Unwrap exposes the cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a plex *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// ErrKind extracts the kind from err, or 0 when err is not a plex *Error.
func ErrKind(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

// maintenanceMarker is the substring Plex puts in a 503 body while the
// database is being upgraded or repaired.
const maintenanceMarker = "maintenance"

// classifyStatus maps a non-2xx response to an *Error.
func classifyStatus(op string, status int, body []byte) *Error {
	switch {
	case status == http.StatusUnauthorized:
		return &Error{Kind: KindAuth, Op: op, Status: status}
	case status == http.StatusNotFound:
		return &Error{Kind: KindNotFound, Op: op, Status: status}
	case status == http.StatusServiceUnavailable &&
		strings.Contains(strings.ToLower(string(body)), maintenanceMarker):
		return &Error{Kind: KindMaintenance, Op: op, Status: status}
	default:
		return &Error{Kind: KindRejected, Op: op, Status: status}
	}
}

// transportError wraps a client-side failure (dial, timeout, context).
func transportError(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

// parseError wraps a body that failed to decode.
func parseError(op string, err error) *Error {
	return &Error{Kind: KindParse, Op: op, Err: err}
}

// isTimeout reports whether err is a deadline or timeout failure. Timeline
// polls treat these as "device not answering", not as errors worth noise.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
