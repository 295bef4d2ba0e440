// Package fs implements the object storage port on the local
// filesystem. Metadata lives in a sidecar JSON file next to each
// object.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stocklib/internal/observability"
	"stocklib/internal/storage"
)

const metadataSuffix = ".metadata.json"

// Storage implements storage.ObjectStorage on a local directory.
type Storage struct {
	basePath string
	logger   observability.Logger
	metrics  observability.Metrics
}

// New creates a filesystem store rooted at basePath, creating the
// directory if needed.
func New(basePath string, logger observability.Logger, metrics observability.Metrics) (*Storage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create base path: %w", err)
	}
	return &Storage{
		basePath: basePath,
		logger:   logger.WithFields(observability.Fields{"adapter": "fs"}),
		metrics:  metrics,
	}, nil
}

// Put stores an object and its metadata sidecar.
func (s *Storage) Put(ctx context.Context, key string, reader io.Reader, metadata storage.ObjectMetadata) error {
	start := time.Now()
	s.metrics.StartOperation("storage_put")
	defer s.metrics.EndOperation("storage_put")

	path := s.objectPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		s.metrics.RecordError("storage_put", "mkdir")
		return fmt.Errorf("create object directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		s.metrics.RecordError("storage_put", "create")
		return fmt.Errorf("create object file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, reader)
	if err != nil {
		s.metrics.RecordError("storage_put", "write")
		return fmt.Errorf("write object: %w", err)
	}

	metadata.ContentLength = written
	metadata.LastModified = time.Now().UTC()
	if err := s.saveMetadata(key, metadata); err != nil {
		s.metrics.RecordError("storage_put", "metadata")
		return fmt.Errorf("save metadata: %w", err)
	}

	s.logger.Info(ctx, "Object stored", observability.Fields{
		"key":         key,
		"bytes":       written,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	s.metrics.RecordSuccess("storage_put")
	s.metrics.RecordFileSize("archive", written)
	return nil
}

// Get opens a stored object for reading.
func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	file, err := os.Open(s.objectPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			s.metrics.RecordError("storage_get", "not_found")
			return nil, storage.ErrObjectNotFound
		}
		s.metrics.RecordError("storage_get", "open")
		return nil, fmt.Errorf("open object: %w", err)
	}
	s.metrics.RecordSuccess("storage_get")
	return file, nil
}

// Delete removes an object and its metadata sidecar. Deleting a
// missing object is not an error.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := os.Remove(s.objectPath(key)); err != nil && !os.IsNotExist(err) {
		s.metrics.RecordError("storage_delete", "remove")
		return fmt.Errorf("delete object: %w", err)
	}
	os.Remove(s.metadataPath(key))
	s.metrics.RecordSuccess("storage_delete")
	return nil
}

// Exists reports whether an object is stored under key.
func (s *Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.objectPath(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// List returns stored objects whose keys start with prefix.
func (s *Storage) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var objects []storage.ObjectInfo
	err := filepath.Walk(s.basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || strings.HasSuffix(path, metadataSuffix) {
			return nil
		}
		rel, relErr := filepath.Rel(s.basePath, path)
		if relErr != nil {
			return nil
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		objects = append(objects, storage.ObjectInfo{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		s.metrics.RecordError("storage_list", "walk")
		return nil, fmt.Errorf("list objects: %w", err)
	}
	s.metrics.RecordSuccess("storage_list")
	return objects, nil
}

// objectPath resolves a key inside the base path. Leading slashes and
// parent traversals are stripped so a key can never escape the root.
func (s *Storage) objectPath(key string) string {
	key = strings.TrimPrefix(key, "/")
	key = filepath.FromSlash(key)
	key = strings.ReplaceAll(key, "..", "")
	return filepath.Join(s.basePath, key)
}

func (s *Storage) metadataPath(key string) string {
	return s.objectPath(key) + metadataSuffix
}

func (s *Storage) saveMetadata(key string, metadata storage.ObjectMetadata) error {
	data, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	return os.WriteFile(s.metadataPath(key), data, 0o644)
}

// Metadata loads the sidecar metadata for a stored object. Missing
// sidecars yield empty metadata.
func (s *Storage) Metadata(key string) (storage.ObjectMetadata, error) {
	data, err := os.ReadFile(s.metadataPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return storage.ObjectMetadata{}, nil
		}
		return storage.ObjectMetadata{}, err
	}
	var metadata storage.ObjectMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return storage.ObjectMetadata{}, err
	}
	return metadata, nil
}
