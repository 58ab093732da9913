// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

package plex

import (
	"context"

	"github.com/tomtom215/subrewind/internal/models"
)

// Sessions fetches the server's active playback listing from
// GET /status/sessions. The listing is the authoritative source for session
// creation and retirement; the registry reconciles against it every tick.
//
// This is a poll-class request: short timeout, no command gate.
func (c *Client) Sessions(ctx context.Context) (*models.SessionContainer, error) {
	body, err := c.getBody(ctx, requestConfig{
		op:   "sessions",
		path: "/status/sessions",
		poll: true,
	})
	if err != nil {
		return nil, err
	}

	container, err := models.ParseSessionContainer(body)
	if err != nil {
		return nil, parseError("sessions", err)
	}
	return container, nil
}
