package migration

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func setupTestMigrations(t *testing.T, migrations map[string]string) string {
	dir := t.TempDir()
	for filename, content := range migrations {
		path := filepath.Join(dir, filename)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write test migration %s: %v", filename, err)
		}
	}
	return dir
}

func newRunner(t *testing.T, db *sql.DB, migrations map[string]string) *Runner {
	runner, err := NewRunner(db, os.DirFS(setupTestMigrations(t, migrations)), DriverSQLite)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	return runner
}

func TestNewRunner_RejectsUnknownDriver(t *testing.T) {
	db := setupTestDB(t)
	if _, err := NewRunner(db, os.DirFS(t.TempDir()), "mysql"); err == nil {
		t.Error("NewRunner() expected error for unknown driver")
	}
	if _, err := NewRunner(nil, os.DirFS(t.TempDir()), DriverSQLite); err == nil {
		t.Error("NewRunner() expected error for nil db")
	}
}

func TestGetCurrentVersion(t *testing.T) {
	db := setupTestDB(t)
	runner := newRunner(t, db, map[string]string{
		"001_test.sql": "CREATE TABLE test (id INTEGER);",
	})

	version, err := runner.GetCurrentVersion()
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0, got %d", version)
	}

	if err := runner.SetVersion(5); err != nil {
		t.Fatalf("SetVersion failed: %v", err)
	}

	version, err = runner.GetCurrentVersion()
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	if version != 5 {
		t.Errorf("expected version 5, got %d", version)
	}
}

func TestReadMigrationFiles(t *testing.T) {
	tests := []struct {
		name      string
		files     map[string]string
		wantErr   bool
		wantOrder []int
		wantNames []string
	}{
		{
			name: "sorted by version",
			files: map[string]string{
				"002_second.sql": "SELECT 2;",
				"001_first.sql":  "SELECT 1;",
				"010_tenth.sql":  "SELECT 10;",
				"README.md":      "ignored",
			},
			wantOrder: []int{1, 2, 10},
			wantNames: []string{"first", "second", "tenth"},
		},
		{
			name:    "missing underscore",
			files:   map[string]string{"001.sql": "SELECT 1;"},
			wantErr: true,
		},
		{
			name:    "non numeric version",
			files:   map[string]string{"abc_init.sql": "SELECT 1;"},
			wantErr: true,
		},
		{
			name:    "zero version",
			files:   map[string]string{"000_init.sql": "SELECT 1;"},
			wantErr: true,
		},
		{
			name: "duplicate version",
			files: map[string]string{
				"001_a.sql":  "SELECT 1;",
				"0001_b.sql": "SELECT 1;",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newRunner(t, setupTestDB(t), tt.files)
			migrations, err := runner.ReadMigrationFiles()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadMigrationFiles() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(migrations) != len(tt.wantOrder) {
				t.Fatalf("got %d migrations, want %d", len(migrations), len(tt.wantOrder))
			}
			for i, m := range migrations {
				if m.Version != tt.wantOrder[i] || m.Name != tt.wantNames[i] {
					t.Errorf("migration %d = (%d, %s), want (%d, %s)", i, m.Version, m.Name, tt.wantOrder[i], tt.wantNames[i])
				}
			}
		})
	}
}

func TestApplyMigrations(t *testing.T) {
	db := setupTestDB(t)
	runner := newRunner(t, db, map[string]string{
		"001_users.sql": "CREATE TABLE users (id TEXT PRIMARY KEY);",
		"002_posts.sql": "CREATE TABLE posts (id TEXT PRIMARY KEY, user_id TEXT);",
	})

	pending, err := runner.Pending()
	if err != nil || pending != 2 {
		t.Fatalf("Pending() = %d, %v, want 2", pending, err)
	}

	var messages []string
	count, err := runner.ApplyMigrations(func(msg string) { messages = append(messages, msg) })
	if err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 migrations applied, got %d", count)
	}
	if len(messages) == 0 {
		t.Error("expected progress messages")
	}

	if _, err := db.Exec("INSERT INTO posts (id, user_id) VALUES ('p1', 'u1')"); err != nil {
		t.Errorf("posts table missing after migration: %v", err)
	}

	// A second run is a no-op.
	count, err = runner.ApplyMigrations(nil)
	if err != nil {
		t.Fatalf("second ApplyMigrations failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 migrations on second run, got %d", count)
	}
}

func TestApplyMigrations_FailureRollsBack(t *testing.T) {
	db := setupTestDB(t)
	runner := newRunner(t, db, map[string]string{
		"001_ok.sql":     "CREATE TABLE ok (id INTEGER);",
		"002_broken.sql": "CREATE TABLE broken (id INTEGER; -- syntax error",
	})

	count, err := runner.ApplyMigrations(nil)
	if err == nil {
		t.Fatal("ApplyMigrations() expected error")
	}
	if count != 1 {
		t.Errorf("expected 1 migration applied before failure, got %d", count)
	}

	version, err := runner.GetCurrentVersion()
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	if version != 1 {
		t.Errorf("expected version 1 after failed migration, got %d", version)
	}
}

func TestValidateVersion_TooNew(t *testing.T) {
	db := setupTestDB(t)
	runner := newRunner(t, db, map[string]string{
		"001_init.sql": "CREATE TABLE t (id INTEGER);",
	})
	if err := runner.SetVersion(7); err != nil {
		t.Fatalf("SetVersion failed: %v", err)
	}

	if err := runner.ValidateVersion(); !errors.Is(err, ErrSchemaTooNew) {
		t.Errorf("ValidateVersion() error = %v, want ErrSchemaTooNew", err)
	}
	if _, err := runner.ApplyMigrations(nil); !errors.Is(err, ErrSchemaTooNew) {
		t.Errorf("ApplyMigrations() error = %v, want ErrSchemaTooNew", err)
	}
}
