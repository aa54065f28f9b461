package mirror

import (
	"time"

	"minio2local/internal/storage"

	"go.uber.org/zap"
)

// Classifier decides, for each remote descriptor, whether the local side is
// missing it, stale, or current. It never mutates the state store.
type Classifier struct {
	info     InfoSource
	expected *PathSet
	stats    *Stats
	logger   *zap.Logger
}

// NewClassifier creates a classifier over the given local-info source
func NewClassifier(info InfoSource, expected *PathSet, stats *Stats, logger *zap.Logger) *Classifier {
	return &Classifier{
		info:     info,
		expected: expected,
		stats:    stats,
		logger:   logger,
	}
}

// Classify inspects one descriptor and returns the job to execute, if any.
// UpToDate and ignored entries produce no job. Per-item lookup errors are
// logged and swallowed so one bad entry never aborts the listing.
func (c *Classifier) Classify(obj storage.ObjectInfo) (Job, bool) {
	scanned := c.stats.Scanned.Add(1)

	if obj.Dir || IsTombstone(obj.Key) {
		c.stats.Ignored.Add(1)
		return Job{}, false
	}

	rel := obj.Key
	c.expected.Add(rel)

	record, err := c.info.Lookup(rel)
	if err != nil {
		c.stats.Failed.Add(1)
		c.logger.Warn("Failed to look up local record",
			zap.String("key", rel),
			zap.Int64("scanned", scanned),
			zap.Error(err),
		)
		return Job{}, false
	}

	switch {
	case record == nil || record.Deleted():
		c.stats.New.Add(1)
		return Job{Object: obj, Class: ClassNew}, true

	case record.Size != obj.Size ||
		!sameTime(record.ModTime, obj.LastModified) ||
		hashesConflict(record.Hash, obj.ContentHash()):
		c.stats.Modified.Add(1)
		return Job{Object: obj, Record: record, Class: ClassModified}, true

	default:
		c.stats.UpToDate.Add(1)
		return Job{}, false
	}
}

// hashesConflict is the opportunistic hash check: only authoritative when
// both sides actually have a hash.
func hashesConflict(local, remote string) bool {
	return local != "" && remote != "" && local != remote
}

// sameTime compares at second granularity, the finest the remote side
// reports reliably.
func sameTime(a, b time.Time) bool {
	return a.UTC().Truncate(time.Second).Equal(b.UTC().Truncate(time.Second))
}
