// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Credential file keys. The file is plain Key=Value lines so users can create
// it by hand from a token obtained elsewhere.
const (
	credentialKeyToken            = "AppToken"
	credentialKeyClientIdentifier = "ClientIdentifier"
)

// Credentials holds the Plex token and the client identifier this agent
// presents to the server. Both travel as X-Plex-* headers on every request.
type Credentials struct {
	AppToken         string
	ClientIdentifier string
}

// Validate checks that the credentials are usable for authenticated requests.
func (c *Credentials) Validate() error {
	if c.AppToken == "" {
		return fmt.Errorf("%s is missing; run with -token-template and fill in your Plex token", credentialKeyToken)
	}
	if len(c.AppToken) < 8 {
		return fmt.Errorf("%s appears invalid (too short)", credentialKeyToken)
	}
	if c.ClientIdentifier == "" {
		return fmt.Errorf("%s is missing", credentialKeyClientIdentifier)
	}
	return nil
}

// LoadCredentials reads a credentials file of Key=Value lines.
// Blank lines and lines starting with '#' are ignored; unknown keys are
// skipped so the file format can grow without breaking old agents.
func LoadCredentials(path string) (*Credentials, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open credentials file %s: %w", path, err)
	}
	defer f.Close()

	creds := &Credentials{}
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("credentials file %s line %d: expected Key=Value, got %q", path, lineNo, line)
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case credentialKeyToken:
			creds.AppToken = value
		case credentialKeyClientIdentifier:
			creds.ClientIdentifier = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read credentials file %s: %w", path, err)
	}

	return creds, nil
}

// SaveCredentials writes the credentials file with owner-only permissions.
func SaveCredentials(path string, creds *Credentials) error {
	var b strings.Builder
	b.WriteString("# SubRewind credentials. Keep this file private.\n")
	fmt.Fprintf(&b, "%s=%s\n", credentialKeyToken, creds.AppToken)
	fmt.Fprintf(&b, "%s=%s\n", credentialKeyClientIdentifier, creds.ClientIdentifier)

	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write credentials file %s: %w", path, err)
	}
	return nil
}

// NewClientIdentifier generates a fresh client identifier for this agent
// installation. Plex treats the identifier as the device identity, so it is
// generated once and persisted.
func NewClientIdentifier() string {
	return uuid.NewString()
}

// ResolveCredentials produces the effective credentials for this run:
// the credentials file provides the base, and any non-empty Token or
// ClientIdentifier in the config (typically from environment variables)
// takes precedence.
//
// A missing credentials file is not an error when the config supplies a
// token. A missing client identifier is bootstrapped with a generated one
// and persisted back to the file so the server sees a stable device
// identity across restarts.
func ResolveCredentials(cfg *Config) (*Credentials, error) {
	creds := &Credentials{}

	fileCreds, err := LoadCredentials(cfg.Plex.CredentialsPath)
	switch {
	case err == nil:
		*creds = *fileCreds
	case errors.Is(err, os.ErrNotExist):
		// Fall through to config overrides.
	default:
		return nil, err
	}

	if cfg.Plex.Token != "" {
		creds.AppToken = cfg.Plex.Token
	}
	if cfg.Plex.ClientIdentifier != "" {
		creds.ClientIdentifier = cfg.Plex.ClientIdentifier
	}

	bootstrapped := false
	if creds.ClientIdentifier == "" {
		creds.ClientIdentifier = NewClientIdentifier()
		bootstrapped = true
	}

	if err := creds.Validate(); err != nil {
		return nil, err
	}

	// Persist the generated identifier only when the file was the source of
	// truth; config-supplied credentials stay wherever the operator put them.
	if bootstrapped && cfg.Plex.Token == "" {
		if err := SaveCredentials(cfg.Plex.CredentialsPath, creds); err != nil {
			return nil, err
		}
	}

	return creds, nil
}
