package storage

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrObjectNotFound indicates the object vanished between listing and fetch
var ErrObjectNotFound = errors.New("object not found")

// Client defines the interface for the remote object source
type Client interface {
	// ListObjects streams object descriptors under the given prefix
	ListObjects(ctx context.Context, bucket, prefix string) (<-chan ObjectInfo, <-chan error)

	// StatObject returns metadata for a single object
	StatObject(ctx context.Context, bucket, key string) (ObjectInfo, error)

	// Fetch downloads one object into localPath, overwriting it
	Fetch(ctx context.Context, bucket, key, localPath string) FetchResult
}

// ObjectInfo contains object metadata from a listing or stat
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
	Dir          bool
}

// ContentHash returns the ETag when it is usable as a content hash.
// Multipart ETags (containing '-') are not plain MD5 sums and count as absent.
func (o ObjectInfo) ContentHash() string {
	if strings.Contains(o.ETag, "-") {
		return ""
	}
	return strings.Trim(o.ETag, `"`)
}

// FetchStatus classifies the outcome of a Fetch call
type FetchStatus int

const (
	FetchOK FetchStatus = iota
	FetchNotFound
	FetchIOError
)

// FetchResult is the typed outcome of a Fetch call, so callers branch
// explicitly instead of inspecting error strings
type FetchResult struct {
	Status FetchStatus
	Size   int64
	Err    error
}

// Config contains client configuration
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
}
