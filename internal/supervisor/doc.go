// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

// Package supervisor provides Suture-based process supervision for the
// agent.
//
// The tree has two layers under the root: the pipeline layer holds the
// connection supervisor (which in turn owns the probe/listener/manager
// reconnect cycle) and the activity bus consumer; the API layer holds the
// local HTTP server. Failures restart within their layer, so a panic in an
// HTTP handler cannot interrupt an open subtitle cycle and a flapping server
// connection cannot take /metrics down.
//
// Two conditions end the tree instead of restarting: context cancellation
// (shutdown) and a credential rejection, which the connection supervisor
// converts into suture.ErrTerminateSupervisorTree because retrying a bad
// token only produces log noise.
package supervisor
