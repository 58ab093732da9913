// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

package main

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// daemonEnvMarker tells a re-executed child that it is already detached, so
// it must not daemonize again.
const daemonEnvMarker = "SUBREWIND_DAEMONIZED"

// readPIDFile returns the PID recorded in path, or 0 when the file does not
// exist or holds garbage.
func readPIDFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}

// instanceRunning reports whether the PID in the pidfile names a live
// process. A stale pidfile left by a crash reads as not running.
func instanceRunning(path string) (int, bool) {
	pid := readPIDFile(path)
	if pid == 0 {
		return 0, false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return pid, false
	}
	// Signal 0 probes existence without delivering anything.
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return pid, false
	}
	return pid, true
}

// writePIDFile records this process in the pidfile.
func writePIDFile(path string) error {
	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(path, []byte(pid+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write pidfile %s: %w", path, err)
	}
	return nil
}

// removePIDFile deletes the pidfile; a missing file is not an error.
func removePIDFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: failed to remove pidfile %s: %v\n", path, err)
	}
}

// stopInstance signals the background instance recorded in the pidfile with
// SIGTERM, triggering its normal graceful shutdown path.
func stopInstance(path string) error {
	pid, running := instanceRunning(path)
	if !running {
		if pid != 0 {
			removePIDFile(path)
			return fmt.Errorf("stale pidfile %s (process %d is gone); removed", path, pid)
		}
		return fmt.Errorf("no running instance found (pidfile %s)", path)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to address process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal process %d: %w", pid, err)
	}
	return nil
}

// daemonize re-executes the current binary detached from the terminal, with
// stdout and stderr redirected to a log file next to the pidfile. The parent
// returns the child PID and is expected to exit immediately.
func daemonize(pidFile string) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to locate own executable: %w", err)
	}

	logPath := strings.TrimSuffix(pidFile, ".pid") + ".log"
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to open background log %s: %w", logPath, err)
	}
	defer logFile.Close()

	// Strip the -background flag variants so the child runs in the
	// foreground of its new session.
	args := make([]string, 0, len(os.Args)-1)
	for _, arg := range os.Args[1:] {
		name := strings.ToLower(strings.TrimLeft(arg, "-/"))
		if cliAliases[name] == "background" {
			continue
		}
		args = append(args, arg)
	}

	cmd := exec.Command(exe, args...)
	cmd.Env = append(os.Environ(), daemonEnvMarker+"=1")
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start background instance: %w", err)
	}
	return cmd.Process.Pid, nil
}

// alreadyDaemonized reports whether this process is the detached child.
func alreadyDaemonized() bool {
	return os.Getenv(daemonEnvMarker) == "1"
}
