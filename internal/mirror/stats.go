package mirror

import "sync/atomic"

// Stats holds the aggregate counters for one run. It is passed explicitly to
// every worker; there is no process-wide state.
type Stats struct {
	Scanned         atomic.Int64
	New             atomic.Int64
	Modified        atomic.Int64
	UpToDate        atomic.Int64
	Ignored         atomic.Int64
	Deleted         atomic.Int64
	Failed          atomic.Int64
	DownloadedBytes atomic.Int64
}

// NewStats creates a zeroed run-stats context
func NewStats() *Stats {
	return &Stats{}
}

// Snapshot is a point-in-time copy of the counters
type Snapshot struct {
	Scanned         int64
	New             int64
	Modified        int64
	UpToDate        int64
	Ignored         int64
	Deleted         int64
	Failed          int64
	DownloadedBytes int64
}

// Snapshot reads all counters
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Scanned:         s.Scanned.Load(),
		New:             s.New.Load(),
		Modified:        s.Modified.Load(),
		UpToDate:        s.UpToDate.Load(),
		Ignored:         s.Ignored.Load(),
		Deleted:         s.Deleted.Load(),
		Failed:          s.Failed.Load(),
		DownloadedBytes: s.DownloadedBytes.Load(),
	}
}
