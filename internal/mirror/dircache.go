package mirror

import (
	"os"
	"sync"
)

// dirCache remembers directories already created this run so concurrent
// executors don't re-issue MkdirAll for every file in a large directory.
type dirCache struct {
	mu sync.Mutex
	m  map[string]struct{}
}

func newDirCache() *dirCache {
	return &dirCache{m: make(map[string]struct{})}
}

func (d *dirCache) ensure(dir string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.m[dir]; ok {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	d.m[dir] = struct{}{}
	return nil
}

// invalidate drops the cache after an I/O failure; the filesystem state can
// no longer be trusted, so later jobs recheck directory existence.
func (d *dirCache) invalidate() {
	d.mu.Lock()
	d.m = make(map[string]struct{})
	d.mu.Unlock()
}
