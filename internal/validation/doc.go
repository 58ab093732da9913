// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

// Package validation provides struct validation using go-playground/validator v10.
//
// It wraps the library behind a thread-safe singleton and translates failures
// into human-readable messages. Each failure carries the full struct
// namespace so callers can rename fields for their own surface; the config
// package uses this to report settings errors under their environment
// variable names.
//
// # Quick Start
//
//	type MonitorConfig struct {
//	    ActiveTick time.Duration `validate:"gte=200ms,lte=30s"`
//	    IdleTick   time.Duration `validate:"gtefield=ActiveTick,lte=5m"`
//	}
//
//	if verr := validation.ValidateStruct(&cfg); verr != nil {
//	    for _, fe := range verr.Errors() {
//	        fmt.Println(fe.Namespace(), fe.Error())
//	    }
//	}
//
// Duration fields compare against duration-literal params ("200ms", "5m"),
// and the *field tags express cross-field ordering constraints.
//
// # Related Packages
//
//   - internal/config: settings validation via struct tags
//   - github.com/go-playground/validator/v10: underlying library
package validation
