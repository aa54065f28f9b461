package progress

import (
	"sync"
	"time"

	"minio2local/internal/mirror"

	"go.uber.org/zap"
)

// Reporter logs a periodic status line while a run is active. Mirror runs
// are frequently non-interactive, so status goes through the logger rather
// than a terminal display.
type Reporter struct {
	stats    *mirror.Stats
	logger   *zap.Logger
	interval time.Duration

	done chan struct{}
	wg   sync.WaitGroup
}

// NewReporter creates a reporter over the given run stats
func NewReporter(stats *mirror.Stats, logger *zap.Logger, interval time.Duration) *Reporter {
	return &Reporter{
		stats:    stats,
		logger:   logger,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins periodic reporting
func (r *Reporter) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.report()
			case <-r.done:
				return
			}
		}
	}()
}

// Stop ends periodic reporting and waits for the loop to exit
func (r *Reporter) Stop() {
	close(r.done)
	r.wg.Wait()
}

func (r *Reporter) report() {
	snap := r.stats.Snapshot()
	r.logger.Info("Mirror progress",
		zap.Int64("scanned", snap.Scanned),
		zap.Int64("new", snap.New),
		zap.Int64("modified", snap.Modified),
		zap.Int64("up_to_date", snap.UpToDate),
		zap.Int64("deleted", snap.Deleted),
		zap.Int64("failed", snap.Failed),
		zap.String("downloaded", FormatBytes(snap.DownloadedBytes)),
	)
}
