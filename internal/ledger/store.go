package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"stagehand/internal/config"
)

// Entry is one recorded publish.
type Entry struct {
	PublishID string
	TaskID    int
	Template  string
	Version   int
	FileType  string
	Path      string
	Comment   string
	CreatedAt time.Time
}

// Store manages ledger persistence backed by SQLite. Writes are guarded by
// a file lock so concurrent host sessions cannot interleave.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

// Open initializes or connects to the ledger database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.LedgerPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:   db,
		path: dbPath,
		lock: flock.New(dbPath + ".lock"),
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Record appends a publish to the ledger and returns its publish ID. An
// empty PublishID is assigned a fresh UUID; CreatedAt defaults to now.
func (s *Store) Record(ctx context.Context, entry Entry) (string, error) {
	ctx = ensureContext(ctx)
	if entry.PublishID == "" {
		entry.PublishID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.FileType == "" {
		entry.FileType = "usd"
	}

	if err := s.lock.Lock(); err != nil {
		return "", fmt.Errorf("acquire ledger lock: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	err := s.execWithRetry(ctx, `
		INSERT INTO publishes (publish_id, task_id, template, version, file_type, path, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.PublishID, entry.TaskID, entry.Template, entry.Version,
		entry.FileType, entry.Path, entry.Comment,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("record publish: %w", err)
	}
	return entry.PublishID, nil
}

// List returns every recorded publish, oldest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	return s.query(ctx, `
		SELECT publish_id, task_id, template, version, file_type, path, comment, created_at
		FROM publishes ORDER BY id`)
}

// ListForTask returns the publishes recorded against a task, oldest first.
func (s *Store) ListForTask(ctx context.Context, taskID int) ([]Entry, error) {
	return s.query(ctx, `
		SELECT publish_id, task_id, template, version, file_type, path, comment, created_at
		FROM publishes WHERE task_id = ? ORDER BY id`, taskID)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query publishes: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var created string
		if err := rows.Scan(&entry.PublishID, &entry.TaskID, &entry.Template,
			&entry.Version, &entry.FileType, &entry.Path, &entry.Comment, &created); err != nil {
			return nil, fmt.Errorf("scan publish: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, created); parseErr == nil {
			entry.CreatedAt = ts
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// NextVersion returns one past the highest version recorded for a task and
// template, or 1 when nothing is recorded.
func (s *Store) NextVersion(ctx context.Context, template string, taskID int) (int, error) {
	ctx = ensureContext(ctx)
	var highest sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT MAX(version) FROM publishes WHERE task_id = ? AND template = ?",
		taskID, template,
	).Scan(&highest)
	if err != nil {
		return 0, fmt.Errorf("read highest version: %w", err)
	}
	if !highest.Valid {
		return 1, nil
	}
	return int(highest.Int64) + 1, nil
}

// Clear removes every recorded publish.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("acquire ledger lock: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()
	return s.execWithRetry(ctx, "DELETE FROM publishes")
}
