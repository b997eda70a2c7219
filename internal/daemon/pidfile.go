package daemon

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	pidFileName = "cliplog.pid"

	// EnvDaemonChild marks a process started by Spawn
	EnvDaemonChild = "CLIPLOG_DAEMON"
)

// ErrNotRunning means no live daemon process was found
var ErrNotRunning = errors.New("daemon not running")

// PIDPath returns the pid file location inside runDir
func PIDPath(runDir string) string {
	return filepath.Join(runDir, pidFileName)
}

// WritePID records pid in runDir
func WritePID(runDir string, pid int) error {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	if err := os.WriteFile(PIDPath(runDir), []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// ReadPID returns the pid recorded in runDir
func ReadPID(runDir string) (int, error) {
	data, err := os.ReadFile(PIDPath(runDir))
	if errors.Is(err, os.ErrNotExist) {
		return 0, ErrNotRunning
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID in file: %q", strings.TrimSpace(string(data)))
	}
	return pid, nil
}

// RemovePID deletes the pid file, ignoring a missing one
func RemovePID(runDir string) error {
	if err := os.Remove(PIDPath(runDir)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Running returns the daemon pid when the recorded process is alive.
// A stale pid file is removed.
func Running(runDir string) (int, bool) {
	pid, err := ReadPID(runDir)
	if err != nil {
		return 0, false
	}
	if !processAlive(pid) {
		_ = RemovePID(runDir)
		return 0, false
	}
	return pid, true
}

// Stop asks the recorded daemon to terminate and waits up to timeout for it
// to exit.
func Stop(runDir string, timeout time.Duration) (int, error) {
	pid, ok := Running(runDir)
	if !ok {
		return 0, ErrNotRunning
	}
	if err := terminate(pid); err != nil {
		return pid, fmt.Errorf("failed to signal process %d: %w", pid, err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			_ = RemovePID(runDir)
			return pid, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return pid, fmt.Errorf("process %d did not exit within %s", pid, timeout)
}

// Spawn re-executes the current binary with args in a detached session.
// The --detach flag is dropped so the child runs in the foreground.
func Spawn(args []string, logPath string) (int, error) {
	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to get executable path: %w", err)
	}

	filtered := make([]string, 0, len(args))
	for _, arg := range args {
		if arg != "--detach" && arg != "-d" {
			filtered = append(filtered, arg)
		}
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create log directory: %w", err)
	}
	out, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer out.Close()

	cmd := exec.Command(executable, filtered...)
	cmd.Env = append(os.Environ(), EnvDaemonChild+"=1")
	cmd.Stdout = out
	cmd.Stderr = out
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon process: %w", err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("failed to release daemon process: %w", err)
	}
	return pid, nil
}
