// Package storage defines the object storage port the pipeline
// persists archives through, with filesystem and S3 adapters behind
// it.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned by Get when no object exists under the
// requested key.
var ErrObjectNotFound = errors.New("object not found")

// ObjectMetadata is metadata attached to stored objects.
type ObjectMetadata struct {
	ContentType   string            `json:"content_type"`
	ContentLength int64             `json:"content_length"`
	LastModified  time.Time         `json:"last_modified"`
	UserMetadata  map[string]string `json:"user_metadata,omitempty"`
}

// ObjectInfo describes a stored object in a listing.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStorage abstracts where archives end up. The fs adapter backs
// local and CLI use; the s3 adapter backs deployed environments. The
// store location (base path or bucket) is fixed at construction, so
// callers deal only in keys.
type ObjectStorage interface {
	Put(ctx context.Context, key string, reader io.Reader, metadata ObjectMetadata) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}
