package mirror

import (
	"os"
	"path/filepath"
	"testing"

	"minio2local/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDiskInfoLookup(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, writeLocal(root, "a/b.txt", []byte("hello")))
	require.NoError(t, os.Chtimes(filepath.Join(root, "a", "b.txt"), t1, t1))

	info := &DiskInfo{Root: root}

	record, err := info.Lookup("a/b.txt")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, int64(5), record.Size)
	assert.True(t, record.ModTime.Equal(t1))
	assert.Empty(t, record.Hash)

	record, err = info.Lookup("missing.txt")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestClassifyWithDiskProbe(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, writeLocal(root, "a/b.txt", []byte("hello")))
	require.NoError(t, os.Chtimes(filepath.Join(root, "a", "b.txt"), t1, t1))

	stats := NewStats()
	c := NewClassifier(&DiskInfo{Root: root}, NewPathSet(), stats, zap.NewNop())

	// Matching size and mtime on disk: current, even without a hash.
	_, ok := c.Classify(storage.ObjectInfo{Key: "a/b.txt", Size: 5, LastModified: t1, ETag: "h1"})
	assert.False(t, ok)
	assert.Equal(t, int64(1), stats.UpToDate.Load())

	// Size mismatch against the file on disk
	job, ok := c.Classify(storage.ObjectInfo{Key: "a/b.txt", Size: 9, LastModified: t1, ETag: "h1"})
	require.True(t, ok)
	assert.Equal(t, ClassModified, job.Class)

	// Nothing on disk at all
	job, ok = c.Classify(storage.ObjectInfo{Key: "new.txt", Size: 3, LastModified: t1, ETag: "h2"})
	require.True(t, ok)
	assert.Equal(t, ClassNew, job.Class)
}
