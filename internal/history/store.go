package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"winnow/internal/dupe"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; users clear the history database after a bump.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match
// the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// ErrNotFound indicates the requested run does not exist.
var ErrNotFound = errors.New("run not found")

// Run is one recorded scan or merge.
type Run struct {
	ID         string
	Kind       string
	Root       string
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool
	Action     string
	Groups     int
	Files      int
	BytesSaved int64
	Merged     int
	Duplicates int
	Renamed    int
	Errors     int
}

// Store persists run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
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

// Open initializes or connects to the history database at dbPath,
// creating the parent directory as needed.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure state directory: %w", err)
	}

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

	store := &Store{db: db, path: dbPath}
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

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (run 'winnow history clear' or delete the database)",
			ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// RecordRun persists a run and its duplicate groups in one transaction.
// A missing run ID is assigned; group and member order is preserved.
func (s *Store) RecordRun(ctx context.Context, run *Run, groups []dupe.Group) error {
	ctx = ensureContext(ctx)
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Groups == 0 {
		run.Groups = len(groups)
	}

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin run tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO runs (id, kind, root, started_at, finished_at, dry_run, action,
				group_count, file_count, bytes_saved, merged, duplicates, renamed, errors)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.Kind, run.Root,
			run.StartedAt.UTC().Format(time.RFC3339Nano),
			run.FinishedAt.UTC().Format(time.RFC3339Nano),
			boolToInt(run.DryRun), run.Action,
			run.Groups, run.Files, run.BytesSaved,
			run.Merged, run.Duplicates, run.Renamed, run.Errors)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		for gi, group := range groups {
			res, err := tx.ExecContext(ctx,
				"INSERT INTO run_groups (run_id, position) VALUES (?, ?)", run.ID, gi)
			if err != nil {
				return fmt.Errorf("insert group: %w", err)
			}
			groupID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("group id: %w", err)
			}
			for fi, file := range group.Files {
				_, err := tx.ExecContext(ctx, `
					INSERT INTO run_members (group_id, position, path, size, created_at)
					VALUES (?, ?, ?, ?, ?)`,
					groupID, fi, file.Path, file.Size,
					file.Created.UTC().Format(time.RFC3339Nano))
				if err != nil {
					return fmt.Errorf("insert member: %w", err)
				}
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit run: %w", err)
		}
		return nil
	})
}

// ListRuns returns the most recent runs, newest first. A non-positive
// limit returns everything.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	query := `
		SELECT id, kind, root, started_at, finished_at, dry_run, action,
			group_count, file_count, bytes_saved, merged, duplicates, renamed, errors
		FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun loads one run and its recorded groups.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, []dupe.Group, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, root, started_at, finished_at, dry_run, action,
			group_count, file_count, bytes_saved, merged, duplicates, renamed, errors
		FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, m.path, m.size, m.created_at
		FROM run_groups g JOIN run_members m ON m.group_id = g.id
		WHERE g.run_id = ?
		ORDER BY g.position, m.position`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load groups: %w", err)
	}
	defer rows.Close()

	var groups []dupe.Group
	lastGroup := int64(-1)
	for rows.Next() {
		var (
			groupID int64
			path    string
			size    int64
			created string
		)
		if err := rows.Scan(&groupID, &path, &size, &created); err != nil {
			return nil, nil, fmt.Errorf("scan member: %w", err)
		}
		if groupID != lastGroup {
			groups = append(groups, dupe.Group{})
			lastGroup = groupID
		}
		createdAt, _ := time.Parse(time.RFC3339Nano, created)
		last := &groups[len(groups)-1]
		last.Files = append(last.Files, dupe.FileRecord{Path: path, Size: size, Created: createdAt})
	}
	return &run, groups, rows.Err()
}

// Clear removes every recorded run.
func (s *Store) Clear(ctx context.Context) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, "DELETE FROM runs")
		return err
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run      Run
		started  string
		finished string
		dryRun   int
	)
	err := row.Scan(&run.ID, &run.Kind, &run.Root, &started, &finished, &dryRun, &run.Action,
		&run.Groups, &run.Files, &run.BytesSaved, &run.Merged, &run.Duplicates, &run.Renamed, &run.Errors)
	if err != nil {
		return Run{}, err
	}
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
	run.DryRun = dryRun != 0
	return run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
