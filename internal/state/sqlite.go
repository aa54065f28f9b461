package state

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db      *sql.DB
	closed  bool
	writeMu sync.Mutex
	tx      *sql.Tx
}

// NewSQLiteStore creates a new SQLite state store
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Configure SQLite for concurrent access
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=cache_size(2000)&_pragma=busy_timeout(60000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(10 * time.Minute)

	store := &SQLiteStore{db: db}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS records (
		path TEXT PRIMARY KEY,
		size INTEGER NOT NULL,
		mod_time DATETIME NOT NULL,
		hash TEXT NOT NULL DEFAULT '',
		delete_detected_at DATETIME,
		last_download_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_records_delete_detected ON records(delete_detected_at);
	`

	_, err := s.db.Exec(query)
	return err
}

// Lookup retrieves the record for a path, or nil if none exists
func (s *SQLiteStore) Lookup(path string) (*Record, error) {
	if s.closed {
		return nil, fmt.Errorf("state store is closed")
	}

	var result *Record
	err := s.retryOnBusy(func() error {
		var err error
		result, err = s.lookupInternal(path)
		return err
	})
	return result, err
}

func (s *SQLiteStore) lookupInternal(path string) (*Record, error) {
	query := `
	SELECT path, size, mod_time, hash, delete_detected_at, last_download_at
	FROM records WHERE path = ?
	`

	record, err := scanRecord(s.db.QueryRow(query, path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Upsert inserts or replaces the record for its path
func (s *SQLiteStore) Upsert(record *Record) error {
	if s.closed {
		return fmt.Errorf("state store is closed")
	}

	// Serialize writes to avoid SQLITE_BUSY from multiple concurrent writers
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.retryOnBusy(func() error {
		query := `
		INSERT INTO records
		(path, size, mod_time, hash, delete_detected_at, last_download_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			size = excluded.size,
			mod_time = excluded.mod_time,
			hash = excluded.hash,
			delete_detected_at = excluded.delete_detected_at,
			last_download_at = excluded.last_download_at
		`

		_, err := s.execer().Exec(query,
			record.Path,
			record.Size,
			record.ModTime.UTC(),
			record.Hash,
			nullTime(record.DeleteDetectedAt),
			nullTime(record.LastDownloadAt),
		)
		return err
	})
}

// MarkDeleteDetected stamps the record's delete-detected timestamp
func (s *SQLiteStore) MarkDeleteDetected(path string, at time.Time) error {
	if s.closed {
		return fmt.Errorf("state store is closed")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.retryOnBusy(func() error {
		_, err := s.execer().Exec(
			`UPDATE records SET delete_detected_at = ? WHERE path = ?`,
			at.UTC(), path,
		)
		return err
	})
}

// ForEach visits every record in path order
func (s *SQLiteStore) ForEach(fn func(*Record) error) error {
	if s.closed {
		return fmt.Errorf("state store is closed")
	}

	query := `
	SELECT path, size, mod_time, hash, delete_detected_at, last_download_at
	FROM records ORDER BY path ASC
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return err
		}
		if err := fn(record); err != nil {
			return err
		}
	}

	return rows.Err()
}

// BeginBatch opens a transaction that subsequent writes join
func (s *SQLiteStore) BeginBatch() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.tx != nil {
		return fmt.Errorf("batch already open")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	s.tx = tx
	return nil
}

// EndBatch commits the open transaction
func (s *SQLiteStore) EndBatch() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.tx == nil {
		return fmt.Errorf("no batch open")
	}

	err := s.tx.Commit()
	s.tx = nil
	return err
}

// Close closes the database connection, rolling back any open batch
func (s *SQLiteStore) Close() error {
	s.writeMu.Lock()
	if s.tx != nil {
		s.tx.Rollback()
		s.tx = nil
	}
	s.closed = true
	s.writeMu.Unlock()

	return s.db.Close()
}

type sqlExecer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// execer returns the open batch transaction, or the database itself.
// Callers must hold writeMu.
func (s *SQLiteStore) execer() sqlExecer {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var record Record
	var deleteDetected, lastDownload sql.NullTime

	err := row.Scan(
		&record.Path,
		&record.Size,
		&record.ModTime,
		&record.Hash,
		&deleteDetected,
		&lastDownload,
	)
	if err != nil {
		return nil, err
	}

	record.ModTime = record.ModTime.UTC()
	if deleteDetected.Valid {
		t := deleteDetected.Time.UTC()
		record.DeleteDetectedAt = &t
	}
	if lastDownload.Valid {
		t := lastDownload.Time.UTC()
		record.LastDownloadAt = &t
	}

	return &record, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// retryOnBusy retries the operation if SQLite is busy
func (s *SQLiteStore) retryOnBusy(operation func() error) error {
	maxRetries := 10
	baseDelay := 50 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		if isSQLiteBusyError(err) && attempt < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<uint(attempt))
			jitter := time.Duration(attempt*10) * time.Millisecond
			time.Sleep(delay + jitter)
			continue
		}

		return err
	}

	return nil
}

// isSQLiteBusyError checks if the error is a SQLite busy error
func isSQLiteBusyError(err error) bool {
	if err == nil {
		return false
	}
	errorStr := err.Error()
	return strings.Contains(errorStr, "database is locked") ||
		strings.Contains(errorStr, "SQLITE_BUSY")
}
