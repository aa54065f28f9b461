package mirror

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"minio2local/internal/state"

	"go.uber.org/zap"
)

// DeletionScanner finds local paths the remote no longer lists and
// tombstones them. Two passes: one over the state store (records whose keys
// were not seen this run) and one over the tree itself (files the store has
// never heard of). Both require the expected-path set to be complete, are
// idempotent, and may run concurrently with each other and with downloads.
type DeletionScanner struct {
	store    state.Store
	expected *PathSet
	stats    *Stats
	logger   *zap.Logger

	root string
	now  func() time.Time
}

// NewDeletionScanner creates a scanner over the given root
func NewDeletionScanner(store state.Store, expected *PathSet, stats *Stats, logger *zap.Logger, root string) *DeletionScanner {
	return &DeletionScanner{
		store:    store,
		expected: expected,
		stats:    stats,
		logger:   logger,
		root:     root,
		now:      time.Now,
	}
}

// SweepStore tombstones every record whose path was not listed this run.
// Records already flagged delete-detected are left alone, so a path is
// tombstoned exactly once.
func (s *DeletionScanner) SweepStore() error {
	return s.store.ForEach(func(record *state.Record) error {
		if record.Deleted() || s.expected.Contains(record.Path) || IsTombstone(record.Path) {
			return nil
		}

		// Tombstone first, flag after: a record flagged delete-detected is
		// never revisited, so the flag must only be set once the tombstone
		// or marker is actually in the tree. A failed rename is retried on
		// the next sweep.
		detectedAt := s.now().UTC()
		local := filepath.Join(s.root, filepath.FromSlash(record.Path))
		if err := os.Rename(local, DeletedName(local, detectedAt)); err != nil {
			if !os.IsNotExist(err) {
				s.logger.Error("Failed to tombstone deleted file",
					zap.String("path", record.Path), zap.Error(err))
				return nil
			}
			// File already gone: leave a zero-byte marker so the deletion
			// event stays visible in the tree.
			if err := writeEmptyMarker(DeletedMarkerName(local, detectedAt)); err != nil {
				s.logger.Error("Failed to write deletion marker",
					zap.String("path", record.Path), zap.Error(err))
				return nil
			}
		}

		if err := s.store.MarkDeleteDetected(record.Path, detectedAt); err != nil {
			return fmt.Errorf("failed to mark %s delete-detected: %w", record.Path, err)
		}

		s.stats.Deleted.Add(1)
		s.logger.Info("Tombstoned deleted object", zap.String("path", record.Path))
		return nil
	})
}

// stagingSuffix is the transport's in-flight download suffix. Staging files
// appear and vanish while the drain runs concurrently with this pass; they
// are never mirrored content.
const stagingSuffix = ".part.minio"

// SweepTree tombstones on-disk files that are neither expected, already
// tombstoned, nor known to the store. Files with a record belong to
// SweepStore, which may run concurrently.
func (s *DeletionScanner) SweepTree() error {
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || IsTombstone(d.Name()) || strings.HasSuffix(d.Name(), stagingSuffix) {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if s.expected.Contains(rel) {
			return nil
		}

		if record, err := s.store.Lookup(rel); err == nil && record != nil {
			return nil
		}

		detectedAt := s.now().UTC()
		if err := os.Rename(path, DeletedName(path, detectedAt)); err != nil {
			if !os.IsNotExist(err) {
				s.logger.Error("Failed to tombstone stray file", zap.String("path", rel), zap.Error(err))
			}
			return nil
		}

		s.stats.Deleted.Add(1)
		s.logger.Info("Tombstoned stray file", zap.String("path", rel))
		return nil
	})

	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func writeEmptyMarker(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, nil, 0o644)
}
