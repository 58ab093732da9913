// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

/*
client.go - Plex HTTP Client

This file provides the core Client struct shared by the probe, the session
and timeline pollers, and the command dispatcher.

Client Features:
  - X-Plex-Token and X-Plex-Client-Identifier on every request
  - Two HTTP clients: command-class (long timeout) and poll-class (short
    timeout), so a slow command can never starve the tick loop
  - Single-permit command gate serializing all control commands
  - Outbound rate limiting on poll-class requests
  - Monotonic commandID for /player requests

Related Files:
  - probe.go: server reachability probe
  - sessions.go: /status/sessions listing
  - timeline.go: per-device timeline poll
  - dispatcher.go: setStreams command dispatch
*/

//nolint:staticcheck // File documentation, not package doc
package plex

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/subrewind/internal/config"
	"github.com/tomtom215/subrewind/internal/metrics"
)

// pollBurst bounds how many poll-class requests may fire back-to-back at the
// start of a tick. One sessions listing plus a handful of timeline polls.
const pollBurst = 10

// Client handles communication with a Plex Media Server and with player
// devices' /player endpoints.
//
// The zero value is not usable; construct with NewClient.
type Client struct {
	baseURL    string
	token      string
	clientID   string
	deviceName string

	// commandClient carries setStreams and other control commands.
	commandClient *http.Client
	// pollClient carries sessions listings, timeline polls and probes. Its
	// short timeout keeps the tick loop responsive when a device is gone.
	pollClient *http.Client

	// gate is the single-permit semaphore serializing control commands.
	// Poll-class requests never touch it.
	gate chan struct{}

	// pollLimiter smooths poll-class traffic so a large registry cannot
	// hammer the server within one tick.
	pollLimiter *rate.Limiter

	// commandID increments per /player request, as the remote-control
	// protocol requires.
	commandID atomic.Int64
}

// NewClient creates a Plex client from the loaded configuration and resolved
// credentials.
func NewClient(cfg *config.Config, creds *config.Credentials) *Client {
	commandTimeout := cfg.Dispatch.CommandTimeout
	if commandTimeout <= 0 {
		commandTimeout = 8 * time.Second
	}
	pollTimeout := cfg.Dispatch.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = time.Second
	}

	return &Client{
		baseURL:       cfg.Plex.URL,
		token:         creds.AppToken,
		clientID:      creds.ClientIdentifier,
		deviceName:    cfg.Plex.DeviceName,
		commandClient: &http.Client{Timeout: commandTimeout},
		pollClient:    &http.Client{Timeout: pollTimeout},
		gate:          make(chan struct{}, 1),
		pollLimiter:   rate.NewLimiter(rate.Limit(pollBurst*2), pollBurst),
	}
}

// BaseURL returns the configured server URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ClientID returns the agent's X-Plex-Client-Identifier.
func (c *Client) ClientID() string {
	return c.clientID
}

// Token returns the X-Plex-Token. Used by the listener to authenticate the
// notification stream.
func (c *Client) Token() string {
	return c.token
}

// acquireGate takes the single-permit command gate, or fails when ctx ends
// first. Callers must pair it with releaseGate.
func (c *Client) acquireGate(ctx context.Context) error {
	select {
	case c.gate <- struct{}{}:
		metrics.TrackCommandGate(true)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// releaseGate returns the command gate permit.
func (c *Client) releaseGate() {
	<-c.gate
	metrics.TrackCommandGate(false)
}

// nextCommandID returns the next monotonic commandID query value.
func (c *Client) nextCommandID() string {
	return strconv.FormatInt(c.commandID.Add(1), 10)
}

// requestConfig holds per-request options for getBody.
type requestConfig struct {
	op      string     // operation name for error tagging
	base    string     // base URL; empty means the server baseURL
	path    string     // endpoint path
	query   url.Values // optional query parameters
	headers http.Header
	poll    bool // poll-class: short-timeout client, rate limited, no gate
}

// getBody executes a GET and returns the response body. Non-2xx statuses and
// transport failures come back as kind-tagged *Error values; the body is
// still returned alongside a status error so callers can inspect markers.
func (c *Client) getBody(ctx context.Context, cfg requestConfig) ([]byte, error) {
	base := cfg.base
	if base == "" {
		base = c.baseURL
	}

	httpClient := c.commandClient
	if cfg.poll {
		httpClient = c.pollClient
		if err := c.pollLimiter.Wait(ctx); err != nil {
			return nil, transportError(cfg.op, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+cfg.path, http.NoBody)
	if err != nil {
		return nil, transportError(cfg.op, fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("X-Plex-Client-Identifier", c.clientID)
	for key, values := range cfg.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	if len(cfg.query) > 0 {
		req.URL.RawQuery = cfg.query.Encode()
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, transportError(cfg.op, err)
	}
	defer resp.Body.Close()

	// Bound the read: Plex session listings are small, and command
	// responses are near-empty.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, transportError(cfg.op, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return body, classifyStatus(cfg.op, resp.StatusCode, body)
	}
	return body, nil
}
