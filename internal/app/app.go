package app

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"minio2local/internal/config"
	"minio2local/internal/metrics"
	"minio2local/internal/mirror"
	"minio2local/internal/progress"
	"minio2local/internal/state"
	"minio2local/internal/storage"

	"go.uber.org/zap"
)

// Mirror represents the main mirror application
type Mirror struct {
	cfg     *config.Config
	logger  *zap.Logger
	client  storage.Client
	store   state.Store
	metrics *metrics.Collector
}

// New creates a new mirror instance
func New(cfg *config.Config, logger *zap.Logger) (*Mirror, error) {
	client, err := storage.NewMinIOClient(storage.Config{
		Endpoint:  cfg.Source.Endpoint,
		AccessKey: cfg.Source.AccessKey,
		SecretKey: cfg.Source.SecretKey,
		Secure:    cfg.Source.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create source client: %w", err)
	}

	store, err := state.NewSQLiteStore(cfg.Mirror.StateDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	return &Mirror{
		cfg:     cfg,
		logger:  logger,
		client:  client,
		store:   store,
		metrics: metrics.New(),
	}, nil
}

// NewWithDeps creates a mirror with explicit collaborators
func NewWithDeps(cfg *config.Config, logger *zap.Logger, client storage.Client, store state.Store) *Mirror {
	return &Mirror{
		cfg:     cfg,
		logger:  logger,
		client:  client,
		store:   store,
		metrics: metrics.New(),
	}
}

// Run executes one mirror pass
func (m *Mirror) Run(ctx context.Context) error {
	start := time.Now()

	m.logger.Info("Starting mirror run",
		zap.String("bucket", m.cfg.Mirror.Bucket),
		zap.String("prefix", m.cfg.Mirror.Prefix),
		zap.String("local_root", m.cfg.Mirror.LocalRoot),
		zap.Int("concurrency", m.cfg.Mirror.Concurrency),
	)

	if err := os.MkdirAll(m.cfg.Mirror.LocalRoot, 0o755); err != nil {
		return fmt.Errorf("failed to create local root: %w", err)
	}

	if addr := m.cfg.Mirror.MetricsAddr; addr != "" {
		go func() {
			if err := m.metrics.StartServer(addr); err != nil {
				m.logger.Error("Failed to start metrics server", zap.Error(err))
			}
		}()
	}

	stats := mirror.NewStats()
	expected := mirror.NewPathSet()
	queue := mirror.NewQueue()

	reporter := progress.NewReporter(stats, m.logger, 10*time.Second)
	reporter.Start()
	defer reporter.Stop()

	// Classification phase: fan out over the listing stream, one batch
	// transaction around the whole phase.
	if err := m.store.BeginBatch(); err != nil {
		return fmt.Errorf("failed to open state batch: %w", err)
	}

	var info mirror.InfoSource = &mirror.CachedInfo{Store: m.store}
	if m.cfg.Mirror.ProbeDisk {
		info = &mirror.DiskInfo{Root: m.cfg.Mirror.LocalRoot}
	}
	classifier := mirror.NewClassifier(info, expected, stats, m.logger)

	objCh, errCh := m.client.ListObjects(ctx, m.cfg.Mirror.Bucket, m.cfg.Mirror.Prefix)

	var classifyWg sync.WaitGroup
	for i := 0; i < m.cfg.Mirror.Concurrency; i++ {
		classifyWg.Add(1)
		go func() {
			defer classifyWg.Done()
			for obj := range objCh {
				if job, ok := classifier.Classify(obj); ok {
					queue.Push(job)
				}
			}
		}()
	}

	classifyWg.Wait()

	// An outer listing failure ends the stream early; finalize with what
	// was classified so the run still reports and reconciles.
	if err := <-errCh; err != nil {
		m.logger.Error("Remote listing failed, finalizing partial run",
			zap.Int64("scanned", stats.Scanned.Load()),
			zap.Error(err),
		)
	}

	if err := m.store.EndBatch(); err != nil {
		return fmt.Errorf("failed to commit state batch: %w", err)
	}
	queue.Close()

	// Deletion passes need the complete expected set but run concurrently
	// with the download drain.
	scanner := mirror.NewDeletionScanner(m.store, expected, stats, m.logger, m.cfg.Mirror.LocalRoot)
	var deletionWg sync.WaitGroup
	deletionWg.Add(2)
	go func() {
		defer deletionWg.Done()
		if err := scanner.SweepStore(); err != nil {
			m.logger.Error("Store-side deletion pass failed", zap.Error(err))
		}
	}()
	go func() {
		defer deletionWg.Done()
		if err := scanner.SweepTree(); err != nil {
			m.logger.Error("Tree-side deletion pass failed", zap.Error(err))
		}
	}()

	executor := mirror.NewExecutor(m.client, m.store, m.metrics, stats, m.logger, m.cfg.Mirror.Bucket, m.cfg.Mirror.LocalRoot)
	m.drain(ctx, queue, executor)

	deletionWg.Wait()

	snap := stats.Snapshot()
	m.logger.Info("Mirror run completed",
		zap.Int64("scanned", snap.Scanned),
		zap.Int64("new", snap.New),
		zap.Int64("modified", snap.Modified),
		zap.Int64("up_to_date", snap.UpToDate),
		zap.Int64("ignored", snap.Ignored),
		zap.Int64("deleted", snap.Deleted),
		zap.Int64("failed", snap.Failed),
		zap.String("downloaded", progress.FormatBytes(snap.DownloadedBytes)),
		zap.String("elapsed", progress.FormatDuration(time.Since(start))),
	)

	return nil
}

// drain consumes the queue under the concurrency ceiling. Admission is a
// soft cap: when the live set is full the loop waits for any in-flight
// download to finish, then compacts completions before admitting more.
func (m *Mirror) drain(ctx context.Context, queue *mirror.Queue, executor *mirror.Executor) {
	limit := m.cfg.Mirror.Concurrency
	live := make(map[int]struct{}, limit)
	completions := make(chan int, limit)

	var wg sync.WaitGroup
	next := 0

	for {
		job, ok := queue.Pop()
		if !ok {
			break
		}

		for len(live) >= limit {
			delete(live, <-completions)
			compact(live, completions)
		}

		id := next
		next++
		live[id] = struct{}{}
		m.metrics.SetInflight(len(live))

		wg.Add(1)
		go func(id int, job mirror.Job) {
			defer wg.Done()
			executor.Execute(ctx, job)
			completions <- id
		}(id, job)
	}

	wg.Wait()
	m.metrics.SetInflight(0)
}

// compact removes every already-finished entry without blocking
func compact(live map[int]struct{}, completions <-chan int) {
	for {
		select {
		case id := <-completions:
			delete(live, id)
		default:
			return
		}
	}
}

// Close releases the state store; safe on every exit path
func (m *Mirror) Close() error {
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}
