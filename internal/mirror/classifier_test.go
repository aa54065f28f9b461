package mirror

import (
	"testing"
	"time"

	"minio2local/internal/state"
	"minio2local/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t1 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func classify(t *testing.T, record *state.Record, obj storage.ObjectInfo) (Job, bool, *Stats, *PathSet) {
	t.Helper()

	store := newMemStore()
	if record != nil {
		require.NoError(t, store.Upsert(record))
	}

	stats := NewStats()
	expected := NewPathSet()
	c := NewClassifier(&CachedInfo{Store: store}, expected, stats, zap.NewNop())

	job, ok := c.Classify(obj)
	return job, ok, stats, expected
}

func TestClassifyNewWhenNoRecord(t *testing.T) {
	obj := storage.ObjectInfo{Key: "a/b.txt", Size: 10, LastModified: t1, ETag: "h1"}

	job, ok, stats, expected := classify(t, nil, obj)

	require.True(t, ok)
	assert.Equal(t, ClassNew, job.Class)
	assert.Equal(t, int64(1), stats.Scanned.Load())
	assert.Equal(t, int64(1), stats.New.Load())
	assert.True(t, expected.Contains("a/b.txt"))
}

func TestClassifyNewWhenRecordFlaggedDeleted(t *testing.T) {
	deleted := t1
	record := &state.Record{Path: "a/b.txt", Size: 10, ModTime: t1, Hash: "h1", DeleteDetectedAt: &deleted}
	obj := storage.ObjectInfo{Key: "a/b.txt", Size: 10, LastModified: t1, ETag: "h1"}

	job, ok, _, _ := classify(t, record, obj)

	require.True(t, ok)
	assert.Equal(t, ClassNew, job.Class)
}

func TestClassifyUpToDate(t *testing.T) {
	record := &state.Record{Path: "a/b.txt", Size: 10, ModTime: t1, Hash: "h1"}
	obj := storage.ObjectInfo{Key: "a/b.txt", Size: 10, LastModified: t1, ETag: "h1"}

	_, ok, stats, _ := classify(t, record, obj)

	assert.False(t, ok)
	assert.Equal(t, int64(1), stats.UpToDate.Load())
}

func TestClassifyUpToDateWhenHashAbsentOnOneSide(t *testing.T) {
	// Multipart ETags don't count as hashes; size and mtime decide alone.
	record := &state.Record{Path: "a/b.txt", Size: 10, ModTime: t1, Hash: "h1"}
	obj := storage.ObjectInfo{Key: "a/b.txt", Size: 10, LastModified: t1, ETag: "abc-4"}

	_, ok, stats, _ := classify(t, record, obj)

	assert.False(t, ok)
	assert.Equal(t, int64(1), stats.UpToDate.Load())
}

func TestClassifyModified(t *testing.T) {
	base := state.Record{Path: "a/b.txt", Size: 10, ModTime: t1, Hash: "h1"}

	tests := []struct {
		name string
		obj  storage.ObjectInfo
	}{
		{"size differs", storage.ObjectInfo{Key: "a/b.txt", Size: 11, LastModified: t1, ETag: "h1"}},
		{"mtime differs", storage.ObjectInfo{Key: "a/b.txt", Size: 10, LastModified: t1.Add(time.Minute), ETag: "h1"}},
		{"hash differs", storage.ObjectInfo{Key: "a/b.txt", Size: 10, LastModified: t1, ETag: "h2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := base
			job, ok, stats, _ := classify(t, &record, tt.obj)

			require.True(t, ok)
			assert.Equal(t, ClassModified, job.Class)
			require.NotNil(t, job.Record)
			assert.Equal(t, int64(1), stats.Modified.Load())
		})
	}
}

func TestClassifyIgnoresDirsAndTombstones(t *testing.T) {
	tests := []storage.ObjectInfo{
		{Key: "a/dir/", Dir: true},
		{Key: "a/b.txt[DELETED 202603151204]", Size: 3, LastModified: t1},
		{Key: "a/b.txt[MODIFIED 202603151204]", Size: 3, LastModified: t1},
	}

	for _, obj := range tests {
		_, ok, stats, expected := classify(t, nil, obj)

		assert.False(t, ok, obj.Key)
		assert.Equal(t, int64(1), stats.Ignored.Load(), obj.Key)
		assert.False(t, expected.Contains(obj.Key), obj.Key)
	}
}
