// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

package listener

import (
	"strings"

	"github.com/tomtom215/subrewind/internal/logging"
	"github.com/tomtom215/subrewind/internal/metrics"
	"github.com/tomtom215/subrewind/internal/models"
)

// Record names the eventsource endpoint emits.
const (
	recordPlaying   = "playing"
	recordActivity  = "activity"
	recordPing      = "ping"
	transcodePrefix = "transcodeSession."
)

// recordFolder folds the SSE line framing into typed events. It is pure
// state-machine code with no I/O: feed it lines, collect events. A record is
// `event:<name>` and `data:<json>` lines terminated by a blank line.
type recordFolder struct {
	name string
	data strings.Builder
}

// FeedLine consumes one line of the stream. It returns a completed event and
// true when the line terminated a record.
func (f *recordFolder) FeedLine(line string) (Event, bool) {
	line = strings.TrimRight(line, "\r")

	if line == "" {
		if f.name == "" && f.data.Len() == 0 {
			return Event{}, false
		}
		event := parseRecord(f.name, f.data.String())
		f.name = ""
		f.data.Reset()
		return event, true
	}

	if value, ok := cutField(line, "event"); ok {
		f.name = value
		return Event{}, false
	}
	if value, ok := cutField(line, "data"); ok {
		// Multi-line data concatenates per the SSE spec.
		f.data.WriteString(value)
		return Event{}, false
	}

	// Comment lines (leading colon) and unknown fields are ignored.
	return Event{}, false
}

// cutField splits an SSE "field:value" line, trimming the single optional
// space after the colon.
func cutField(line, field string) (string, bool) {
	rest, ok := strings.CutPrefix(line, field+":")
	if !ok {
		return "", false
	}
	return strings.TrimPrefix(rest, " "), true
}

// parseRecord maps one complete record onto a typed event. Malformed payloads
// degrade to EventUnknown so one bad record never kills the stream.
func parseRecord(name, data string) Event {
	switch {
	case name == recordPing:
		return Event{Type: EventPing, Name: name}

	case name == recordPlaying:
		playing, err := models.ParsePlayingData([]byte(data))
		if err != nil {
			logging.Debug().Err(err).Msg("Dropping malformed playing record")
			metrics.RecordListenerParseFailure()
			return Event{Type: EventUnknown, Name: name}
		}
		return Event{Type: EventPlaying, Name: name, Playing: playing}

	case name == recordActivity:
		activity, err := models.ParseActivityData([]byte(data))
		if err != nil {
			logging.Debug().Err(err).Msg("Dropping malformed activity record")
			metrics.RecordListenerParseFailure()
			return Event{Type: EventUnknown, Name: name}
		}
		return Event{Type: EventActivity, Name: name, Activity: activity}

	case strings.HasPrefix(name, transcodePrefix):
		// Transcode payloads are logged, never acted on; a parse failure
		// just leaves the payload empty.
		var transcode models.TranscodeSessionNotification
		return Event{Type: EventTranscode, Name: name, Transcode: &transcode}

	default:
		return Event{Type: EventUnknown, Name: name}
	}
}
