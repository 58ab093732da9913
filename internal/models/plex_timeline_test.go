// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

package models

import (
	"testing"
)

const timelineFixture = `<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer size="3">
  <Timeline type="music" state="stopped"/>
  <Timeline type="photo" state="stopped"/>
  <Timeline type="video" state="playing" time="118345" duration="3300000"
            subtitleStreamID="33" ratingKey="5201" key="/library/metadata/5201"/>
</MediaContainer>`

func TestParseTimelineContainer(t *testing.T) {
	t.Parallel()

	container, err := ParseTimelineContainer([]byte(timelineFixture))
	if err != nil {
		t.Fatalf("ParseTimelineContainer() error = %v", err)
	}
	if len(container.Timelines) != 3 {
		t.Fatalf("len(Timelines) = %d, want 3", len(container.Timelines))
	}

	active := container.ActiveTimeline()
	if active == nil {
		t.Fatal("ActiveTimeline() = nil, want the video entry")
	}
	if active.Type != "video" {
		t.Errorf("Type = %q, want %q", active.Type, "video")
	}

	ms, ok := active.TimeMS()
	if !ok {
		t.Fatal("TimeMS() ok = false, want true")
	}
	if ms != 118345 {
		t.Errorf("TimeMS() = %d, want 118345", ms)
	}
	if !active.SubtitlesOn() {
		t.Error("SubtitlesOn() = false, want true for subtitleStreamID=33")
	}
}

func TestActiveTimelineNoneActive(t *testing.T) {
	t.Parallel()

	body := `<MediaContainer size="2">
  <Timeline type="music" state="stopped"/>
  <Timeline type="video" state="stopped"/>
</MediaContainer>`

	container, err := ParseTimelineContainer([]byte(body))
	if err != nil {
		t.Fatalf("ParseTimelineContainer() error = %v", err)
	}
	if active := container.ActiveTimeline(); active != nil {
		t.Errorf("ActiveTimeline() = %+v, want nil when no entry carries a time", active)
	}
}

func TestTimelineTimeMS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		time   string
		wantMS int64
		wantOK bool
	}{
		{name: "valid", time: "118345", wantMS: 118345, wantOK: true},
		{name: "zero", time: "0", wantMS: 0, wantOK: true},
		{name: "empty", time: "", wantOK: false},
		{name: "garbage", time: "not-a-number", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tl := Timeline{Time: tt.time}
			ms, ok := tl.TimeMS()
			if ok != tt.wantOK {
				t.Fatalf("TimeMS() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && ms != tt.wantMS {
				t.Errorf("TimeMS() = %d, want %d", ms, tt.wantMS)
			}
		})
	}
}

func TestTimelineSubtitlesOn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		streamID string
		want     bool
	}{
		{name: "empty means unreported", streamID: "", want: false},
		{name: "zero means off", streamID: "0", want: false},
		{name: "positive id means on", streamID: "33", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tl := Timeline{SubtitleStreamID: tt.streamID}
			if got := tl.SubtitlesOn(); got != tt.want {
				t.Errorf("SubtitlesOn() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseTimelineContainerMalformed(t *testing.T) {
	t.Parallel()

	if _, err := ParseTimelineContainer([]byte("<MediaContainer><Timeline>")); err == nil {
		t.Error("expected error for malformed XML")
	}
}
