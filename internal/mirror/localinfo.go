package mirror

import (
	"os"
	"path/filepath"

	"minio2local/internal/state"
)

// InfoSource answers "what do we know about this local path" for the
// classifier. Two variants exist, selected by configuration: the cached
// record from the state store (default, avoids re-statting every file) and
// a direct disk probe.
type InfoSource interface {
	Lookup(relPath string) (*state.Record, error)
}

// CachedInfo serves lookups from the state store
type CachedInfo struct {
	Store state.Store
}

func (c *CachedInfo) Lookup(relPath string) (*state.Record, error) {
	return c.Store.Lookup(relPath)
}

// DiskInfo serves lookups by statting the mirrored tree directly. Records
// synthesized from disk carry no content hash, so classification falls back
// to the size/mtime filter alone.
type DiskInfo struct {
	Root string
}

func (d *DiskInfo) Lookup(relPath string) (*state.Record, error) {
	fi, err := os.Stat(filepath.Join(d.Root, filepath.FromSlash(relPath)))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &state.Record{
		Path:    relPath,
		Size:    fi.Size(),
		ModTime: fi.ModTime().UTC(),
	}, nil
}
