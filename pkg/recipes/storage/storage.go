// Package storage keeps uploaded recipe images in a local directory, a MinIO
// bucket or an S3 bucket.
//
// Keys are relative slash-separated paths such as
// "uploads/recipe/3f2c....png". The media URL of an image is derived from its
// key, so keys are checked once here and every backend sees the same form.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/mikepea/recipes/pkg/recipes/config"
)

var (
	// ErrNotFound means no image is stored under the key
	ErrNotFound = errors.New("object not found")
	// ErrInvalidKey rejects empty, absolute or non-canonical keys
	ErrInvalidKey = errors.New("invalid object key")
	// ErrNotImage rejects uploads whose content type is not image/*
	ErrNotImage = errors.New("content type is not an image")
)

// Backend is where image bytes end up. Delete of a missing key succeeds.
type Backend interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Storage is the media store handlers talk to
type Storage struct {
	backend Backend
}

// NewStorage returns a media store on top of backend
func NewStorage(backend Backend) *Storage {
	return &Storage{backend: backend}
}

// FromConfig builds the backend named by cfg.Backend
func FromConfig(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Backend {
	case "local":
		backend, err = NewLocalStorage(cfg.MediaRoot)
	case "minio":
		backend, err = NewMinioClient(cfg.Minio)
	case "s3":
		backend, err = NewS3Client(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("%s storage: %w", cfg.Backend, err)
	}
	return NewStorage(backend), nil
}

// CheckKey reports whether key is a canonical relative path
func CheckKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || path.Clean(key) != key || strings.HasPrefix(key, "../") || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// EnsureBucket creates the bucket or media root if needed. Called once at startup.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Put stores an image. contentType must be an image/* type; it is recorded
// by object-store backends and ignored by the local one.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if err := CheckKey(key); err != nil {
		return err
	}
	if !strings.HasPrefix(contentType, "image/") {
		return fmt.Errorf("%w: %q", ErrNotImage, contentType)
	}
	return s.backend.Put(ctx, key, r, size, contentType)
}

// Get opens a stored image. A missing key yields ErrNotFound, as does a key
// that could never have been stored.
func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if CheckKey(key) != nil {
		return nil, ErrNotFound
	}
	return s.backend.Get(ctx, key)
}

// Delete removes a stored image. Missing keys are not an error.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := CheckKey(key); err != nil {
		return err
	}
	return s.backend.Delete(ctx, key)
}

// Bucket names where images live: a bucket name, or the media root directory
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}
