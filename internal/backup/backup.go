// Package backup snapshots the SQLite database into <config dir>/backups
// and restores it from those snapshots. Postgres deployments are expected
// to use pg_dump instead.
package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/lockfile"
	"github.com/julianstephens/studylit/internal/logger"
)

const stampFormat = "20060102-150405"

var (
	// ErrNoDatabase is returned when the database file does not exist yet.
	ErrNoDatabase = errors.New("database does not exist")
	// ErrServerRunning blocks a restore while a server holds the database open.
	ErrServerRunning = errors.New("stop the running studylit server before restoring")
	// ErrNotStudylit is returned for files that are SQLite but lack the studylit schema.
	ErrNotStudylit = errors.New("file is not a studylit database")
)

// Info describes one backup file.
type Info struct {
	Path      string
	Timestamp time.Time
	Size      int64
}

// Name returns the file name of the backup.
func (i Info) Name() string {
	return filepath.Base(i.Path)
}

// Manager handles backup operations for one database file.
type Manager struct {
	dbPath    string
	backupDir string
	now       func() time.Time
}

// NewManager creates a manager that keeps backups next to dbPath.
func NewManager(dbPath string) *Manager {
	return &Manager{
		dbPath:    dbPath,
		backupDir: filepath.Join(filepath.Dir(dbPath), constants.BackupDirName),
		now:       time.Now,
	}
}

// WithClock replaces the clock used to stamp backup names.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Dir returns the backup directory.
func (m *Manager) Dir() string {
	return m.backupDir
}

// Create snapshots the database and prunes the oldest backups beyond
// constants.MaxBackups.
func (m *Manager) Create(ctx context.Context) (Info, error) {
	info, err := m.create(ctx)
	if err != nil {
		return Info{}, err
	}
	if err := m.rotate(); err != nil {
		logger.Warn("failed to rotate old backups", "error", err)
	}
	return info, nil
}

func (m *Manager) create(ctx context.Context) (Info, error) {
	if _, err := os.Stat(m.dbPath); os.IsNotExist(err) {
		return Info{}, fmt.Errorf("%w: %s", ErrNoDatabase, m.dbPath)
	}
	if err := os.MkdirAll(m.backupDir, 0700); err != nil {
		return Info{}, fmt.Errorf("failed to create backup directory: %w", err)
	}

	stamp := m.now().UTC()
	path, err := m.freeName(stamp)
	if err != nil {
		return Info{}, err
	}
	if err := m.snapshot(ctx, path); err != nil {
		return Info{}, fmt.Errorf("failed to backup database: %w", err)
	}

	st, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	logger.Info("backup created", "path", path, "bytes", st.Size())
	return Info{Path: path, Timestamp: stamp.Truncate(time.Second), Size: st.Size()}, nil
}

// freeName picks studylit-<stamp>.db, adding -N when the second is taken.
func (m *Manager) freeName(stamp time.Time) (string, error) {
	base := constants.BackupFilePrefix + stamp.Format(stampFormat)
	path := filepath.Join(m.backupDir, base+constants.BackupFileSuffix)
	for n := 1; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		}
		if n > 100 {
			return "", errors.New("failed to generate unique backup filename")
		}
		path = filepath.Join(m.backupDir, fmt.Sprintf("%s-%d%s", base, n, constants.BackupFileSuffix))
	}
}

// snapshot writes a consistent copy with VACUUM INTO, which is safe while
// other connections hold the database open.
func (m *Manager) snapshot(ctx context.Context, dest string) error {
	db, err := sql.Open("sqlite", m.dbPath+"?mode=ro")
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}
	defer db.Close()

	if err := verifySchema(ctx, db); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return err
	}
	return nil
}

// List returns every backup, newest first.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Info{}, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := []Info{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		stamp, seq, ok := parseName(entry.Name())
		if !ok {
			continue
		}
		st, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, Info{
			Path:      filepath.Join(m.backupDir, entry.Name()),
			Timestamp: stamp.Add(time.Duration(seq)),
			Size:      st.Size(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	for i := range backups {
		backups[i].Timestamp = backups[i].Timestamp.Truncate(time.Second)
	}
	return backups, nil
}

// parseName reads the timestamp and collision counter out of a backup name.
func parseName(name string) (time.Time, int, bool) {
	if !strings.HasPrefix(name, constants.BackupFilePrefix) || !strings.HasSuffix(name, constants.BackupFileSuffix) {
		return time.Time{}, 0, false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(name, constants.BackupFilePrefix), constants.BackupFileSuffix)
	if len(rest) < len(stampFormat) {
		return time.Time{}, 0, false
	}
	stamp, err := time.Parse(stampFormat, rest[:len(stampFormat)])
	if err != nil {
		return time.Time{}, 0, false
	}
	suffix := rest[len(stampFormat):]
	if suffix == "" {
		return stamp, 0, true
	}
	seq, err := strconv.Atoi(strings.TrimPrefix(suffix, "-"))
	if err != nil || !strings.HasPrefix(suffix, "-") || seq < 1 {
		return time.Time{}, 0, false
	}
	return stamp, seq, true
}

func (m *Manager) rotate() error {
	backups, err := m.List()
	if err != nil {
		return err
	}
	for i := constants.MaxBackups; i < len(backups); i++ {
		if err := os.Remove(backups[i].Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[i].Name(), err)
		}
	}
	return nil
}

// Restore replaces the database with the backup at path. The current
// database is snapshotted first and that snapshot is returned so the user
// can undo. Restoring is refused while a server holds the lockfile.
func (m *Manager) Restore(ctx context.Context, path string) (Info, error) {
	if _, err := lockfile.Check(lockfile.Path(filepath.Dir(m.dbPath))); err == nil {
		return Info{}, ErrServerRunning
	}
	if _, err := os.Stat(path); err != nil {
		return Info{}, fmt.Errorf("backup file does not exist: %s", path)
	}
	if err := Verify(ctx, path); err != nil {
		return Info{}, fmt.Errorf("backup file is corrupted or invalid: %w", err)
	}

	var previous Info
	if _, err := os.Stat(m.dbPath); err == nil {
		// Not rotated, so the undo point survives even at the cap.
		previous, err = m.create(ctx)
		if err != nil {
			return Info{}, fmt.Errorf("failed to backup current database before restore: %w", err)
		}
	}

	tmp := m.dbPath + ".restore.tmp"
	if err := copyFile(path, tmp); err != nil {
		return Info{}, fmt.Errorf("failed to copy backup file: %w", err)
	}
	if err := os.Rename(tmp, m.dbPath); err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil {
			logger.Warn("failed to remove temporary restore file", "path", tmp, "error", rmErr)
		}
		return Info{}, fmt.Errorf("failed to restore database: %w", err)
	}
	// Stale WAL files would replay over the restored pages.
	for _, ext := range []string{"-wal", "-shm"} {
		if err := os.Remove(m.dbPath + ext); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove sqlite sidecar", "path", m.dbPath+ext, "error", err)
		}
	}
	logger.Info("database restored", "from", path, "previous", previous.Path)
	return previous, nil
}

// Verify checks that path is an intact studylit SQLite database.
func Verify(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return err
	}
	defer db.Close()
	return verifySchema(ctx, db)
}

func verifySchema(ctx context.Context, db *sql.DB) error {
	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	var n int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('users', 'tasks')").Scan(&n)
	if err != nil {
		return err
	}
	if n != 2 {
		return ErrNotStudylit
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := out.ReadFrom(in); err != nil {
		return err
	}
	return out.Sync()
}
