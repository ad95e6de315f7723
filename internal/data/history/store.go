package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"pyanalyzer/internal/shared/util"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Open opens (and migrates) the history database at path. busyTimeout of
// zero uses two seconds.
func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}
	if err := util.EnsureParentDir(cleanPath); err != nil {
		return nil, fmt.Errorf("create history directory for %q: %w", cleanPath, err)
	}
	if busyTimeout <= 0 {
		busyTimeout = 2 * time.Second
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}
	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save stores rec, assigning an id and timestamp when they are unset, and
// returns the stored record.
func (s *Store) Save(rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Path = strings.TrimSpace(rec.Path)
	if rec.Path == "" {
		return Record{}, fmt.Errorf("history record path must not be empty")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if len(rec.Result) == 0 {
		rec.Result = []byte("{}")
	}

	err := s.withRetry("save analysis", func() error {
		_, err := s.db.Exec(`
INSERT INTO analyses (id, path, content_hash, ts_utc, diagnostic_count, result_json)
VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID,
			rec.Path,
			rec.ContentHash,
			rec.Timestamp.UTC().Format(time.RFC3339Nano),
			rec.DiagnosticCount,
			string(rec.Result),
		)
		return err
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ListByPath returns the newest records of path first, at most limit rows
// (all rows when limit <= 0).
func (s *Store) ListByPath(path string, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT id, path, content_hash, ts_utc, diagnostic_count, result_json
FROM analyses
WHERE path = ?
ORDER BY ts_utc DESC, id ASC`
	args := []any{strings.TrimSpace(path)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows *sql.Rows
	err := s.withRetry("list analyses", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var (
			rec    Record
			tsRaw  string
			result string
		)
		if err := rows.Scan(&rec.ID, &rec.Path, &rec.ContentHash, &tsRaw, &rec.DiagnosticCount, &result); err != nil {
			return nil, fmt.Errorf("scan analysis row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse analysis timestamp %q: %w", tsRaw, err)
		}
		rec.Timestamp = ts.UTC()
		rec.Result = []byte(result)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analysis rows: %w", err)
	}
	return records, nil
}

// LatestHash returns the content hash of the newest record of path, or "" when
// the path has no history.
func (s *Store) LatestHash(path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var hash string
	err := s.withRetry("latest hash", func() error {
		qErr := s.db.QueryRow(
			`SELECT content_hash FROM analyses WHERE path = ? ORDER BY ts_utc DESC LIMIT 1`,
			strings.TrimSpace(path),
		).Scan(&hash)
		if errors.Is(qErr, sql.ErrNoRows) {
			hash = ""
			return nil
		}
		return qErr
	})
	return hash, err
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
