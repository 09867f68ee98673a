package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ps "github.com/mitchellh/go-ps"
)

type mockProcess struct {
	pid        int
	executable string
}

func (m *mockProcess) Pid() int {
	return m.pid
}

func (m *mockProcess) PPid() int {
	return 0
}

func (m *mockProcess) Executable() string {
	return m.executable
}

func withProcesses(t *testing.T, self int, running map[int]string) {
	t.Helper()
	oldFind, oldPid := findProcessFunc, getpidFunc
	t.Cleanup(func() { findProcessFunc, getpidFunc = oldFind, oldPid })

	getpidFunc = func() int { return self }
	findProcessFunc = func(pid int) (ps.Process, error) {
		exe, ok := running[pid]
		if !ok {
			return nil, nil
		}
		return &mockProcess{pid: pid, executable: exe}, nil
	}
}

func TestCheck(t *testing.T) {
	withProcesses(t, 1, map[int]string{12345: "studylit", 222: "postgres"})
	path := filepath.Join(t.TempDir(), "server.lock")

	if _, err := Check(path); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Check(missing) error = %v, want ErrNotRunning", err)
	}

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"malformed", "invalid", "malformed"},
		{"three parts", "127.0.0.1:8080|12345|secret", "malformed"},
		{"empty address", "|12345", "address"},
		{"no port", "localhost|12345", "invalid address"},
		{"port out of range", "127.0.0.1:99999|12345", "outside valid range"},
		{"bad pid", "127.0.0.1:8080|abc", "process ID"},
		{"not running", "127.0.0.1:8080|999", "not running"},
		{"other executable", "127.0.0.1:8080|222", "postgres"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			_, err := Check(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Check() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	if err := os.WriteFile(path, []byte("127.0.0.1:8080|12345\n"), 0600); err != nil {
		t.Fatal(err)
	}
	info, err := Check(path)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if info.Addr != "127.0.0.1:8080" || info.PID != 12345 {
		t.Errorf("Check() = %+v", info)
	}
}

func TestAcquireAndRelease(t *testing.T) {
	withProcesses(t, 500, map[int]string{500: "studylit", 600: "studylit"})
	path := Path(filepath.Join(t.TempDir(), "nested"))

	if err := Acquire(path, "127.0.0.1:8080"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	info, err := Check(path)
	if err != nil || info.PID != 500 {
		t.Fatalf("Check() after Acquire = %+v, %v", info, err)
	}

	// Re-acquiring our own lock is allowed.
	if err := Acquire(path, "127.0.0.1:9090"); err != nil {
		t.Errorf("Acquire(own lock) error = %v", err)
	}

	if err := Release(path); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("lockfile should be gone after Release")
	}
	if err := Release(path); err != nil {
		t.Errorf("Release(missing) error = %v", err)
	}
}

func TestAcquire_HeldByOtherServer(t *testing.T) {
	withProcesses(t, 500, map[int]string{600: "studylit"})
	path := filepath.Join(t.TempDir(), "server.lock")
	if err := os.WriteFile(path, []byte("127.0.0.1:8080|600"), 0600); err != nil {
		t.Fatal(err)
	}

	err := Acquire(path, "127.0.0.1:9090")
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Errorf("Acquire() error = %v, want already running", err)
	}

	// Release leaves another process's lock alone.
	if err := Release(path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("Release() removed a lock it does not own")
	}
}

func TestAcquire_ReplacesStaleLock(t *testing.T) {
	withProcesses(t, 500, map[int]string{})
	path := filepath.Join(t.TempDir(), "server.lock")
	if err := os.WriteFile(path, []byte("127.0.0.1:8080|600"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := Acquire(path, "127.0.0.1:9090"); err != nil {
		t.Fatalf("Acquire(stale) error = %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "127.0.0.1:9090|500" {
		t.Errorf("lockfile = %q", data)
	}
}
