// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

package logging

import (
	"net/url"
	"strings"
)

// SanitizeToken masks a token, showing only first and last 4 characters.
// Example: "xJ9aQ2mP4nL8kR5tW7vZ" -> "xJ9a...W7vZ"
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeURL masks the X-Plex-Token query parameter in a URL so request
// targets can be logged without leaking credentials. Malformed URLs are
// returned truncated rather than parsed.
func SanitizeURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return truncateString(rawURL, 80)
	}
	q := u.Query()
	for key := range q {
		if strings.EqualFold(key, "X-Plex-Token") {
			q.Set(key, SanitizeToken(q.Get(key)))
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
