// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

package registry

import (
	"strings"
)

// ChoosePreferred selects the subtitle stream a rewind will enable.
//
// Patterns split into positive and negative (leading '-'); a stream is a
// candidate when its title contains every positive pattern and no negative
// pattern, case-insensitively. Ties break on preferExternal, then document
// order. With no candidates the choice falls back to the first external
// stream (when preferExternal) or simply the first stream. Returns nil only
// when the session has no subtitle streams at all.
func ChoosePreferred(streams []SubtitleStream, patterns []string, preferExternal bool) *SubtitleStream {
	if len(streams) == 0 {
		return nil
	}

	positive, negative := splitPatterns(patterns)

	var candidates []*SubtitleStream
	for i := range streams {
		if matchesPatterns(&streams[i], positive, negative) {
			candidates = append(candidates, &streams[i])
		}
	}

	if len(candidates) > 0 {
		if preferExternal {
			for _, c := range candidates {
				if c.External {
					return c
				}
			}
		}
		return candidates[0]
	}

	// No candidate matched the patterns; fall back to something sane
	// rather than leaving rewinds without subtitles.
	if preferExternal {
		for i := range streams {
			if streams[i].External {
				return &streams[i]
			}
		}
	}
	return &streams[0]
}

// splitPatterns separates patterns into positives and stripped negatives.
// Blank patterns are dropped.
func splitPatterns(patterns []string) (positive, negative []string) {
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if negated, ok := strings.CutPrefix(p, "-"); ok {
			if negated != "" {
				negative = append(negative, strings.ToLower(negated))
			}
			continue
		}
		positive = append(positive, strings.ToLower(p))
	}
	return positive, negative
}

// matchesPatterns reports whether the stream's title contains every positive
// pattern and no negative pattern.
func matchesPatterns(stream *SubtitleStream, positive, negative []string) bool {
	title := strings.ToLower(stream.Title)
	for _, p := range positive {
		if !strings.Contains(title, p) {
			return false
		}
	}
	for _, n := range negative {
		if strings.Contains(title, n) {
			return false
		}
	}
	return true
}
