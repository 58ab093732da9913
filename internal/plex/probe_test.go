// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

package plex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestProbe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   ProbeResult
	}{
		{"reachable", http.StatusOK, "<MediaContainer/>", ProbeConnected},
		{"maintenance", http.StatusServiceUnavailable, "Server is in maintenance mode", ProbeMaintenance},
		{"bad token", http.StatusUnauthorized, "", ProbeUnauthorized},
		{"plain 503", http.StatusServiceUnavailable, "upstream down", ProbeUnreachable},
		{"server error", http.StatusInternalServerError, "", ProbeUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			if got := client.Probe(context.Background()); got != tt.want {
				t.Errorf("Probe() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProbeConnectionRefused(t *testing.T) {
	t.Parallel()

	client := newTestClient("http://127.0.0.1:1")
	if got := client.Probe(context.Background()); got != ProbeUnreachable {
		t.Errorf("Probe() = %v, want %v", got, ProbeUnreachable)
	}
}

func TestProbeResultString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		result ProbeResult
		want   string
	}{
		{ProbeConnected, "connected"},
		{ProbeMaintenance, "maintenance"},
		{ProbeUnauthorized, "unauthorized"},
		{ProbeUnreachable, "unreachable"},
	}
	for _, tt := range tests {
		if got := tt.result.String(); got != tt.want {
			t.Errorf("ProbeResult(%d).String() = %q, want %q", tt.result, got, tt.want)
		}
	}
}
