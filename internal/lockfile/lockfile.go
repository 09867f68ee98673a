// Package lockfile records the address and PID of a running studylit server
// so a second instance, or doctor, can tell whether one is already up.
package lockfile

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/studylit/internal/constants"
)

var (
	findProcessFunc = ps.FindProcess
	getpidFunc      = os.Getpid

	// ErrNotRunning is returned when no live server holds the lockfile
	ErrNotRunning = errors.New("studylit server is not running")
)

// Info is the content of a lockfile.
type Info struct {
	Addr string
	PID  int
}

// Path returns the lockfile location inside configDir.
func Path(configDir string) string {
	return filepath.Join(configDir, constants.ServerLockfileName)
}

func parse(content string) (Info, error) {
	parts := strings.Split(strings.TrimSpace(content), "|")
	if len(parts) != 2 {
		return Info{}, errors.New("lockfile is malformed")
	}

	addr := strings.TrimSpace(parts[0])
	if addr == "" {
		return Info{}, errors.New("address in lockfile is empty")
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return Info{}, fmt.Errorf("invalid address in lockfile: %w", err)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return Info{}, errors.New("invalid port number in lockfile")
	}
	if portNum < 1 || portNum > 65535 {
		return Info{}, fmt.Errorf("port number %d is outside valid range (1-65535)", portNum)
	}

	pid, err := strconv.Atoi(parts[1])
	if err != nil || pid <= 0 {
		return Info{}, errors.New("invalid process ID in lockfile")
	}
	return Info{Addr: addr, PID: pid}, nil
}

// Check reads the lockfile and confirms its process is a live studylit.
// A missing or stale lockfile yields ErrNotRunning.
func Check(path string) (Info, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Info{}, ErrNotRunning
		}
		return Info{}, fmt.Errorf("failed to read lockfile: %w", err)
	}

	info, err := parse(string(content))
	if err != nil {
		return Info{}, err
	}

	process, err := findProcessFunc(info.PID)
	if err != nil || process == nil {
		return Info{}, ErrNotRunning
	}
	if !strings.HasPrefix(process.Executable(), constants.AppName) {
		return Info{}, fmt.Errorf("%w: process with PID %d is %s", ErrNotRunning, info.PID, process.Executable())
	}
	return info, nil
}

// Acquire writes a lockfile for this process. It fails when another live
// server already holds it; a stale or malformed file is replaced.
func Acquire(path, addr string) error {
	if info, err := Check(path); err == nil && info.PID != getpidFunc() {
		return fmt.Errorf("studylit server already running at %s (pid %d)", info.Addr, info.PID)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create lockfile directory: %w", err)
	}
	content := fmt.Sprintf("%s|%d", addr, getpidFunc())
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write lockfile: %w", err)
	}
	return nil
}

// Release removes the lockfile if it belongs to this process.
func Release(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info, err := parse(string(content)); err == nil && info.PID != getpidFunc() {
		return nil
	}
	return os.Remove(path)
}
