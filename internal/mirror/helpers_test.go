package mirror

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"minio2local/internal/state"
	"minio2local/internal/storage"
)

// memStore is an in-memory state.Store for tests
type memStore struct {
	mu      sync.Mutex
	records map[string]*state.Record
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*state.Record)}
}

func (s *memStore) Lookup(path string) (*state.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[path]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (s *memStore) Upsert(record *state.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *record
	s.records[record.Path] = &copied
	return nil
}

func (s *memStore) MarkDeleteDetected(path string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.records[path]; ok {
		t := at.UTC()
		record.DeleteDetectedAt = &t
	}
	return nil
}

func (s *memStore) ForEach(fn func(*state.Record) error) error {
	s.mu.Lock()
	snapshot := make([]*state.Record, 0, len(s.records))
	for _, record := range s.records {
		copied := *record
		snapshot = append(snapshot, &copied)
	}
	s.mu.Unlock()

	for _, record := range snapshot {
		if err := fn(record); err != nil {
			return err
		}
	}
	return nil
}

func (s *memStore) BeginBatch() error { return nil }
func (s *memStore) EndBatch() error   { return nil }
func (s *memStore) Close() error      { return nil }

// fakeClient is an in-memory storage.Client for tests
type fakeClient struct {
	mu       sync.Mutex
	objects  map[string][]byte
	infos    map[string]storage.ObjectInfo
	fetchErr error
	fetches  atomic.Int64
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		objects: make(map[string][]byte),
		infos:   make(map[string]storage.ObjectInfo),
	}
}

func (c *fakeClient) put(key string, data []byte, mtime time.Time, etag string) storage.ObjectInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	info := storage.ObjectInfo{
		Key:          key,
		Size:         int64(len(data)),
		ETag:         etag,
		LastModified: mtime.UTC(),
	}
	c.objects[key] = data
	c.infos[key] = info
	return info
}

func (c *fakeClient) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, key)
	delete(c.infos, key)
}

func (c *fakeClient) ListObjects(ctx context.Context, bucket, prefix string) (<-chan storage.ObjectInfo, <-chan error) {
	objCh := make(chan storage.ObjectInfo)
	errCh := make(chan error, 1)

	c.mu.Lock()
	infos := make([]storage.ObjectInfo, 0, len(c.infos))
	for _, info := range c.infos {
		infos = append(infos, info)
	}
	c.mu.Unlock()

	go func() {
		defer close(objCh)
		defer close(errCh)
		for _, info := range infos {
			select {
			case objCh <- info:
			case <-ctx.Done():
				return
			}
		}
	}()

	return objCh, errCh
}

func (c *fakeClient) StatObject(ctx context.Context, bucket, key string) (storage.ObjectInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, ok := c.infos[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return info, nil
}

// failFetch makes every subsequent Fetch fail with an I/O error
func (c *fakeClient) failFetch(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchErr = err
}

func (c *fakeClient) Fetch(ctx context.Context, bucket, key, localPath string) storage.FetchResult {
	c.mu.Lock()
	data, ok := c.objects[key]
	fetchErr := c.fetchErr
	c.mu.Unlock()

	if fetchErr != nil {
		return storage.FetchResult{Status: storage.FetchIOError, Err: fetchErr}
	}

	if !ok {
		return storage.FetchResult{Status: storage.FetchNotFound, Err: storage.ErrObjectNotFound}
	}

	c.fetches.Add(1)
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return storage.FetchResult{Status: storage.FetchIOError, Err: err}
	}
	return storage.FetchResult{Status: storage.FetchOK, Size: int64(len(data))}
}

func writeLocal(root, rel string, data []byte) error {
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
