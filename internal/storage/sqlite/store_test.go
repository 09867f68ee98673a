package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/julianstephens/studylit/internal/migration"
	"github.com/julianstephens/studylit/internal/storage"
	"github.com/julianstephens/studylit/internal/storage/storagetest"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_Provider(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Provider {
		return setupTestStore(t)
	})
}

func TestStore_LoadBeforeInit(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.db"))
	err := store.Load()
	if err == nil || !strings.Contains(err.Error(), "studylit init") {
		t.Errorf("Load() error = %v, want hint to run init", err)
	}
}

func TestStore_LoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatal(err)
	}
	store := NewStore(path)
	defer store.Close()

	err := store.Load()
	if err == nil || !strings.Contains(err.Error(), "studylit init") {
		t.Errorf("Load() error = %v, want hint to run init", err)
	}
}

func TestStore_LoadAfterInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "studylit.db")
	store := NewStore(path)
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	store.Close()

	reopened := NewStore(path)
	if err := reopened.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer reopened.Close()

	if reopened.GetConfigPath() != path {
		t.Errorf("GetConfigPath() = %q, want %q", reopened.GetConfigPath(), path)
	}
	if reopened.Driver() != "sqlite" {
		t.Errorf("Driver() = %q, want sqlite", reopened.Driver())
	}
}

func TestStore_LoadRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studylit.db")
	store := NewStore(path)
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if _, err := store.GetDB().Exec("UPDATE schema_version SET version = 999"); err != nil {
		t.Fatalf("failed to bump schema version: %v", err)
	}
	store.Close()

	reopened := NewStore(path)
	defer reopened.Close()
	if err := reopened.Load(); !errors.Is(err, migration.ErrSchemaTooNew) {
		t.Errorf("Load() error = %v, want ErrSchemaTooNew", err)
	}
}

func TestTableExists(t *testing.T) {
	store := setupTestStore(t)

	for _, name := range []string{"users", "tasks", "credo_logs", "chat_messages", "weekly_reports", "notes", "schema_version"} {
		exists, err := store.tableExists(name)
		if err != nil {
			t.Fatalf("tableExists(%s) error = %v", name, err)
		}
		if !exists {
			t.Errorf("tableExists(%s) = false, want true after migrations", name)
		}
	}

	if _, err := store.GetDB().Exec("CREATE TABLE lowercase_table (id INTEGER)"); err != nil {
		t.Fatal(err)
	}
	exists, err := store.tableExists("LOWERCASE_TABLE")
	if err != nil || !exists {
		t.Errorf("tableExists(LOWERCASE_TABLE) = %v, %v; want true", exists, err)
	}

	exists, err = store.tableExists("'; DROP TABLE tasks; --")
	if err != nil || exists {
		t.Errorf("tableExists(injection) = %v, %v; want false", exists, err)
	}
}

func TestTableExists_ClosedDB(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "closed.db"))
	if err != nil {
		t.Fatal(err)
	}
	db.Close()

	store := &Store{db: db}
	if _, err := store.tableExists("users"); err == nil {
		t.Error("tableExists() on closed database should return an error")
	}
}

func TestStore_ForeignKeysEnforced(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.GetDB().Exec(`INSERT INTO tasks (id, user_id, title, status, source, created_at, updated_at)
		VALUES ('t1', 'nobody', 'orphan', 'todo', 'manual', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z')`)
	if err == nil {
		t.Error("insert with unknown user_id succeeded, want foreign key failure")
	}
}

func TestStore_ClearTaskTimer(t *testing.T) {
	store := setupTestStore(t)
	db := store.GetDB()
	stmts := []string{
		`INSERT INTO users (id, email, password_hash, display_name, created_at)
			VALUES ('u1', 'a@example.com', 'x', 'A', '2024-01-01T00:00:00Z')`,
		`INSERT INTO tasks (id, user_id, title, status, last_started_at, source, created_at, updated_at)
			VALUES ('t1', 'u1', 'stale', 'paused', '2024-01-01T08:00:00Z', 'manual', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z')`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	// The model drops the stale timestamp on load.
	task, err := store.GetTask(context.Background(), "u1", "t1")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if task.LastStartedAt() != nil {
		t.Errorf("LastStartedAt() = %v, want nil for paused task", task.LastStartedAt())
	}

	if err := store.ClearTaskTimer(context.Background(), "t1"); err != nil {
		t.Fatalf("ClearTaskTimer() error = %v", err)
	}
	rows, err := store.GetTaskRows(context.Background())
	if err != nil {
		t.Fatalf("GetTaskRows() error = %v", err)
	}
	if len(rows) != 1 || rows[0].LastStartedAt != nil {
		t.Errorf("rows = %+v, want timer cleared", rows)
	}
}
