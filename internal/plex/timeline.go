// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

package plex

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/tomtom215/subrewind/internal/logging"
	"github.com/tomtom215/subrewind/internal/metrics"
	"github.com/tomtom215/subrewind/internal/models"
)

// TimelineSnapshot is the usable part of one device timeline poll: a
// high-resolution position, the subtitle stream the player is rendering, and
// the player state.
type TimelineSnapshot struct {
	// TimeMS is the playback position in milliseconds.
	TimeMS int64
	// SubtitleStreamID is the active subtitle stream id; empty or "0" means
	// no subtitles are rendered.
	SubtitleStreamID string
	// State is the player state: playing, paused, buffering or stopped.
	State string
}

// SubtitlesOn reports whether the player is rendering a subtitle stream.
func (s *TimelineSnapshot) SubtitlesOn() bool {
	return s.SubtitleStreamID != "" && s.SubtitleStreamID != "0"
}

// PollTimeline asks one player device for its current timeline and returns
// the entry carrying a position, or nil when the device did not answer with
// one. It runs inside the tick loop, so it uses the short poll-class timeout
// and treats a timeout as "app closed", not as an error.
//
// The returned snapshot is a value; the caller applies it to registry state.
func (c *Client) PollTimeline(ctx context.Context, machineID, deviceName, directURL string) (*TimelineSnapshot, error) {
	if directURL == "" {
		return nil, nil
	}

	headers := make(http.Header)
	headers.Set("X-Plex-Target-Client-Identifier", machineID)
	if deviceName != "" {
		headers.Set("X-Plex-Device-Name", deviceName)
	}

	start := time.Now()
	body, err := c.getBody(ctx, requestConfig{
		op:   "timeline",
		base: directURL,
		path: "/player/timeline/poll",
		query: url.Values{
			"wait":      []string{"0"},
			"commandID": []string{c.nextCommandID()},
		},
		headers: headers,
		poll:    true,
	})
	if err != nil {
		if isTimeout(err) {
			// Expected when the player app is closed or asleep.
			logging.Debug().
				Str("device", deviceName).
				Msg("Timeline poll timed out")
			metrics.RecordTimelinePoll("timeout", time.Since(start))
			return nil, nil
		}
		metrics.RecordTimelinePoll("error", time.Since(start))
		return nil, err
	}

	container, err := models.ParseTimelineContainer(body)
	if err != nil {
		metrics.RecordTimelinePoll("error", time.Since(start))
		return nil, parseError("timeline", err)
	}

	active := container.ActiveTimeline()
	if active == nil {
		metrics.RecordTimelinePoll("no_time", time.Since(start))
		return nil, nil
	}
	timeMS, ok := active.TimeMS()
	if !ok {
		metrics.RecordTimelinePoll("no_time", time.Since(start))
		return nil, nil
	}

	metrics.RecordTimelinePoll("ok", time.Since(start))
	return &TimelineSnapshot{
		TimeMS:           timeMS,
		SubtitleStreamID: active.SubtitleStreamID,
		State:            active.State,
	}, nil
}
