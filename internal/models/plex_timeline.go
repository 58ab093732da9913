// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

package models

import (
	"encoding/xml"
	"fmt"
	"strconv"
)

// TimelineContainer is the root element of GET {player}/player/timeline/poll.
// Players report one Timeline per media type (music, photo, video); only the
// entry with a non-empty time attribute carries a usable position.
type TimelineContainer struct {
	XMLName   xml.Name   `xml:"MediaContainer"`
	Timelines []Timeline `xml:"Timeline"`
}

// Timeline is one per-type status entry from a player's timeline poll.
// Time and SubtitleStreamID stay strings on the wire: an absent position is
// an empty string, which is distinct from "0".
type Timeline struct {
	Type             string `xml:"type,attr"`
	State            string `xml:"state,attr"`
	Time             string `xml:"time,attr"`
	Duration         string `xml:"duration,attr"`
	SubtitleStreamID string `xml:"subtitleStreamID,attr"`
	RatingKey        string `xml:"ratingKey,attr"`
	Key              string `xml:"key,attr"`
}

// HasTime reports whether this entry carries a playback position.
func (t *Timeline) HasTime() bool {
	return t.Time != ""
}

// TimeMS returns the playback position in milliseconds. The second return is
// false when the time attribute is absent or not numeric.
func (t *Timeline) TimeMS() (int64, bool) {
	if t.Time == "" {
		return 0, false
	}
	ms, err := strconv.ParseInt(t.Time, 10, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}

// SubtitlesOn reports whether the player currently renders a subtitle stream.
// Both an empty id and "0" mean no subtitles.
func (t *Timeline) SubtitlesOn() bool {
	return t.SubtitleStreamID != "" && t.SubtitleStreamID != "0"
}

// ParseTimelineContainer decodes a timeline poll response body.
func ParseTimelineContainer(data []byte) (*TimelineContainer, error) {
	var container TimelineContainer
	if err := xml.Unmarshal(data, &container); err != nil {
		return nil, fmt.Errorf("parse timeline container: %w", err)
	}
	return &container, nil
}

// ActiveTimeline returns the timeline entry with a playback position, or nil
// when no entry has one (closed player apps answer with empty entries).
func (c *TimelineContainer) ActiveTimeline() *Timeline {
	for i := range c.Timelines {
		if c.Timelines[i].HasTime() {
			return &c.Timelines[i]
		}
	}
	return nil
}
