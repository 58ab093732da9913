// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

package main

import (
	"fmt"
	"strings"
)

// cliOptions is the parsed command line. Every option is a switch; SubRewind
// takes no positional arguments and no valued flags, so parsing is a straight
// alias lookup.
type cliOptions struct {
	Background         bool
	Stop               bool
	Help               bool
	Debug              bool
	Verbose            bool
	SettingsTemplate   bool
	TokenTemplate      bool
	AllowDuplicate     bool
	UpdateSettingsFile bool
	TestSettings       bool
}

// cliAliases maps every accepted spelling to its canonical option name. Each
// option accepts a long form, a short form, and the slash-prefixed variants
// of both for operators used to Windows-style switches.
var cliAliases = map[string]string{
	"background": "background",
	"b":          "background",

	"stop": "stop",
	"x":    "stop",

	"help": "help",
	"h":    "help",
	"?":    "help",

	"debug": "debug",
	"d":     "debug",

	"verbose": "verbose",
	"v":       "verbose",

	"settings-template": "settings-template",
	"st":                "settings-template",

	"token-template": "token-template",
	"tt":             "token-template",

	"allow-duplicate-instance": "allow-duplicate-instance",
	"ad":                       "allow-duplicate-instance",

	"update-settings-file": "update-settings-file",
	"us":                   "update-settings-file",

	"test-settings": "test-settings",
	"ts":            "test-settings",
}

// parseArgs resolves args (without the program name) into options.
// The stdlib flag package cannot spell "-?" or "/background", so the alias
// table is walked by hand.
func parseArgs(args []string) (*cliOptions, error) {
	opts := &cliOptions{}

	for _, arg := range args {
		name := strings.TrimLeft(arg, "-/")
		if name == arg {
			return nil, fmt.Errorf("unexpected argument %q (flags start with - or /)", arg)
		}

		canonical, ok := cliAliases[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown flag %q", arg)
		}

		switch canonical {
		case "background":
			opts.Background = true
		case "stop":
			opts.Stop = true
		case "help":
			opts.Help = true
		case "debug":
			opts.Debug = true
		case "verbose":
			opts.Verbose = true
		case "settings-template":
			opts.SettingsTemplate = true
		case "token-template":
			opts.TokenTemplate = true
		case "allow-duplicate-instance":
			opts.AllowDuplicate = true
		case "update-settings-file":
			opts.UpdateSettingsFile = true
		case "test-settings":
			opts.TestSettings = true
		}
	}

	return opts, nil
}

const usageText = `SubRewind - temporary subtitles on rewind for Plex

Usage: subrewind [flags]

Flags (each also accepts its short form, and / instead of -):
  -background, -b                Detach and run in the background
  -stop, -x                      Stop the running background instance
  -help, -h, -?                  Show this help and exit
  -debug, -d                     Force debug log level
  -verbose, -v                   Force trace log level with console output
  -settings-template, -st        Write a commented settings.yaml template and exit
  -token-template, -tt           Write a credentials file skeleton and exit
  -allow-duplicate-instance, -ad Skip the single-instance check
  -update-settings-file, -us     Rewrite the settings file with the full schema
  -test-settings, -ts            Load and validate settings, then exit

Configuration is read from settings.yaml (or $SUBREWIND_CONFIG) with
environment variables taking precedence. See the settings template for the
full schema.
`

func printUsage() {
	fmt.Print(usageText)
}
