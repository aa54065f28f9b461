package state

import (
	"time"
)

// Record holds the last known metadata for one mirrored path.
// Paths are container-relative and slash-separated; timestamps are UTC.
type Record struct {
	Path             string
	Size             int64
	ModTime          time.Time
	Hash             string
	DeleteDetectedAt *time.Time
	LastDownloadAt   *time.Time
}

// Deleted reports whether the record is flagged as delete-detected
func (r *Record) Deleted() bool {
	return r.DeleteDetectedAt != nil
}

// Store defines the interface for local state persistence
type Store interface {
	// Lookup returns the record for a path, or nil if none exists
	Lookup(path string) (*Record, error)

	// Upsert inserts or replaces the record for its path
	Upsert(record *Record) error

	// MarkDeleteDetected stamps the record's delete-detected timestamp
	MarkDeleteDetected(path string, at time.Time) error

	// ForEach visits every record; stops on the first error returned by fn
	ForEach(fn func(*Record) error) error

	// BeginBatch groups subsequent upserts into one transaction for
	// throughput. Not crash-atomic: a partial batch is re-reconciled on
	// the next run.
	BeginBatch() error
	EndBatch() error

	Close() error
}
