package mirror

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"minio2local/internal/metrics"
	"minio2local/internal/state"
	"minio2local/internal/storage"

	"go.uber.org/zap"
)

// emptyContentMD5 is the MD5 of zero bytes: the signature of the empty
// placeholder objects some containers hold in bulk. They are never
// transferred; their records are stamped directly.
const emptyContentMD5 = "d41d8cd98f00b204e9800998ecf8427e"

// Executor runs one job to a terminal outcome: tombstone-rename-then-fetch
// for modified files, plain fetch for new ones. Failures are swallowed and
// reclassified on the next run; nothing here retries.
type Executor struct {
	client  storage.Client
	store   state.Store
	metrics *metrics.Collector
	stats   *Stats
	logger  *zap.Logger

	bucket string
	root   string
	dirs   *dirCache

	now func() time.Time
}

// NewExecutor creates an executor writing under root
func NewExecutor(client storage.Client, store state.Store, collector *metrics.Collector, stats *Stats, logger *zap.Logger, bucket, root string) *Executor {
	return &Executor{
		client:  client,
		store:   store,
		metrics: collector,
		stats:   stats,
		logger:  logger,
		bucket:  bucket,
		root:    root,
		dirs:    newDirCache(),
		now:     time.Now,
	}
}

// Execute runs one job and updates the record and counters on completion.
// The record is only ever advanced after the transfer or skip decision has
// actually happened.
func (e *Executor) Execute(ctx context.Context, job Job) Outcome {
	start := e.now()
	obj := job.Object
	local := filepath.Join(e.root, filepath.FromSlash(obj.Key))

	if job.Class == ClassModified {
		// Re-check against the current record: a matching size and hash
		// means the classifier tripped on timestamp skew, not content.
		if e.recheckUnchanged(obj) {
			return e.reconcile(obj, local)
		}

		if err := os.Rename(local, ModifiedName(local, obj.LastModified)); err != nil && !os.IsNotExist(err) {
			return e.failIO(obj, "failed to tombstone superseded file", err)
		}
	}

	if isEmptyPlaceholder(obj) {
		return e.stampPlaceholder(obj)
	}

	if err := e.dirs.ensure(filepath.Dir(local)); err != nil {
		return e.failIO(obj, "failed to create parent directory", err)
	}

	res := e.client.Fetch(ctx, e.bucket, obj.Key, local)
	switch res.Status {
	case storage.FetchNotFound:
		// Listed-then-deleted race; the object will be gone from the next
		// run's listing.
		e.logger.Warn("Object vanished between listing and fetch", zap.String("key", obj.Key))
		e.stats.Failed.Add(1)
		e.metrics.IncFailed()
		return OutcomeFailed

	case storage.FetchIOError:
		return e.failIO(obj, "failed to fetch object", res.Err)
	}

	if err := os.Chtimes(local, obj.LastModified, obj.LastModified); err != nil {
		e.logger.Warn("Failed to set file mtime", zap.String("key", obj.Key), zap.Error(err))
	}

	hash := obj.ContentHash()
	if hash == "" {
		var err error
		if hash, err = md5File(local); err != nil {
			e.logger.Warn("Failed to hash downloaded file", zap.String("key", obj.Key), zap.Error(err))
			hash = ""
		}
	}

	downloadedAt := e.now().UTC()
	record := &state.Record{
		Path:           obj.Key,
		Size:           res.Size,
		ModTime:        obj.LastModified,
		Hash:           hash,
		LastDownloadAt: &downloadedAt,
	}
	if err := e.store.Upsert(record); err != nil {
		e.logger.Error("Failed to persist record after download", zap.String("key", obj.Key), zap.Error(err))
	}

	e.stats.DownloadedBytes.Add(res.Size)
	e.metrics.IncFetched()
	e.metrics.AddBytes(res.Size)
	e.metrics.ObserveDuration(e.now().Sub(start))

	e.logger.Debug("Fetched object",
		zap.String("key", obj.Key),
		zap.String("class", job.Class.String()),
		zap.Int64("size", res.Size),
	)
	return OutcomeFetched
}

// recheckUnchanged reports whether the current record still matches the
// descriptor on size and hash, with both hashes present
func (e *Executor) recheckUnchanged(obj storage.ObjectInfo) bool {
	record, err := e.store.Lookup(obj.Key)
	if err != nil || record == nil {
		return false
	}
	remoteHash := obj.ContentHash()
	return record.Size == obj.Size &&
		record.Hash != "" && remoteHash != "" && record.Hash == remoteHash
}

// reconcile aligns the stored and on-disk mtimes with the remote value for a
// false-positive Modified job, without transferring anything
func (e *Executor) reconcile(obj storage.ObjectInfo, local string) Outcome {
	record, err := e.store.Lookup(obj.Key)
	if err != nil || record == nil {
		return OutcomeFailed
	}

	record.ModTime = obj.LastModified
	if err := e.store.Upsert(record); err != nil {
		e.logger.Error("Failed to reconcile record mtime", zap.String("key", obj.Key), zap.Error(err))
		return OutcomeFailed
	}

	if err := os.Chtimes(local, obj.LastModified, obj.LastModified); err != nil && !os.IsNotExist(err) {
		e.logger.Warn("Failed to reconcile file mtime", zap.String("key", obj.Key), zap.Error(err))
	}

	e.metrics.IncSkipped()
	e.logger.Debug("Reconciled timestamp-only change", zap.String("key", obj.Key))
	return OutcomeSkipped
}

// stampPlaceholder completes an empty-placeholder job without network I/O
func (e *Executor) stampPlaceholder(obj storage.ObjectInfo) Outcome {
	downloadedAt := e.now().UTC()
	record := &state.Record{
		Path:           obj.Key,
		Size:           obj.Size,
		ModTime:        obj.LastModified,
		Hash:           obj.ContentHash(),
		LastDownloadAt: &downloadedAt,
	}
	if err := e.store.Upsert(record); err != nil {
		e.logger.Error("Failed to persist placeholder record", zap.String("key", obj.Key), zap.Error(err))
		e.stats.Failed.Add(1)
		e.metrics.IncFailed()
		return OutcomeFailed
	}

	e.metrics.IncSkipped()
	e.logger.Debug("Skipped empty placeholder", zap.String("key", obj.Key))
	return OutcomeSkipped
}

// failIO handles a local I/O failure: the per-run directory cache may be
// stale after a filesystem error, so later jobs recheck from scratch
func (e *Executor) failIO(obj storage.ObjectInfo, msg string, err error) Outcome {
	e.logger.Error(msg, zap.String("key", obj.Key), zap.Error(err))
	e.stats.Failed.Add(1)
	e.metrics.IncFailed()
	e.dirs.invalidate()
	return OutcomeFailed
}

func isEmptyPlaceholder(obj storage.ObjectInfo) bool {
	return obj.Size == 0 || obj.ContentHash() == emptyContentMD5
}

func md5File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
