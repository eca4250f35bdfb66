package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// SQLiteStore persists the history record in a single SQLite table.
// It keeps the same whole-document semantics as FileStore: Load reads the
// complete table, Save replaces the table contents in one transaction.
type SQLiteStore struct {
	db *sqlx.DB
}

const seenSchema = `
CREATE TABLE IF NOT EXISTS seen_postings (
	key    TEXT PRIMARY KEY,
	source TEXT NOT NULL DEFAULT '',
	title  TEXT NOT NULL DEFAULT '',
	url    TEXT NOT NULL DEFAULT ''
)`

// NewSQLiteStore opens (or creates) a SQLite-backed history store.
func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, seenSchema); err != nil {
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads the full seen-postings table. Read failures degrade to an
// empty record with a warning, same fail-open policy as the file store.
func (s *SQLiteStore) Load() Record {
	type row struct {
		Key string `db:"key"`
		Entry
	}
	var rows []row
	if err := s.db.Select(&rows, "SELECT key, source, title, url FROM seen_postings"); err != nil {
		lgr.Printf("[WARN] failed to read history table, starting empty: %v", err)
		return Record{}
	}

	rec := make(Record, len(rows))
	for _, r := range rows {
		rec[r.Key] = r.Entry
	}
	return rec
}

// Save replaces the table contents with the given record in one transaction,
// retrying on transient SQLite lock errors.
func (s *SQLiteStore) Save(rec Record) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(context.Background(), func() error {
		tx, err := s.db.Beginx()
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("begin history save: %w", err)}
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.Exec("DELETE FROM seen_postings"); err != nil {
			return &criticalError{err: fmt.Errorf("clear seen postings: %w", err)}
		}

		for key, e := range rec {
			_, err := tx.Exec("INSERT INTO seen_postings (key, source, title, url) VALUES (?, ?, ?, ?)",
				key, e.Source, e.Title, e.URL)
			if err != nil {
				return &criticalError{err: fmt.Errorf("insert seen posting: %w", err)}
			}
		}

		if err := tx.Commit(); err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("commit history save: %w", err)}
		}
		return nil
	})
}

// criticalError wraps an error to signal repeater to stop retrying
type criticalError struct {
	err error
}

func (e *criticalError) Error() string {
	return e.err.Error()
}

// isLockError checks if an error is a SQLite lock/busy error
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "SQLITE_BUSY") ||
		strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked")
}
