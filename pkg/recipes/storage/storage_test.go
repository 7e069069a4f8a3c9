package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/mikepea/recipes/pkg/recipes/config"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage failed: %v", err)
	}
	store := NewStorage(backend)
	if err := store.EnsureBucket(ctx); err != nil {
		t.Fatalf("EnsureBucket failed: %v", err)
	}

	data := []byte("image bytes")
	if err := store.Put(ctx, "uploads/recipe/a.png", bytes.NewReader(data), int64(len(data)), "image/png"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	r, err := store.Get(ctx, "uploads/recipe/a.png")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	got, _ := io.ReadAll(r)
	r.Close()
	if !bytes.Equal(got, data) {
		t.Errorf("Expected %q, got %q", data, got)
	}

	if err := store.Delete(ctx, "uploads/recipe/a.png"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "uploads/recipe/a.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}

	// Deleting again is not an error
	if err := store.Delete(ctx, "uploads/recipe/a.png"); err != nil {
		t.Errorf("Expected no error deleting a missing object, got %v", err)
	}
}

func TestLocalStorageKeysStayUnderRoot(t *testing.T) {
	root := t.TempDir()
	backend, _ := NewLocalStorage(root)

	p, err := backend.Path("../../etc/passwd")
	if err != nil {
		t.Fatalf("Path failed: %v", err)
	}
	if p != root+string(os.PathSeparator)+"etc"+string(os.PathSeparator)+"passwd" {
		t.Errorf("Expected path under root, got %s", p)
	}

	if _, err := backend.Path(""); err == nil {
		t.Error("Expected error for empty key")
	}
}

func TestStorageRejectsBadKeysAndTypes(t *testing.T) {
	ctx := context.Background()
	backend, _ := NewLocalStorage(t.TempDir())
	store := NewStorage(backend)

	for _, key := range []string{"", "/uploads/a.png", "../a.png", "uploads/../a.png", "uploads//a.png"} {
		if err := store.Put(ctx, key, bytes.NewReader([]byte("x")), 1, "image/png"); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Key %q: expected ErrInvalidKey, got %v", key, err)
		}
		if _, err := store.Get(ctx, key); !errors.Is(err, ErrNotFound) {
			t.Errorf("Key %q: expected ErrNotFound on Get, got %v", key, err)
		}
	}

	if err := store.Put(ctx, "uploads/recipe/a.txt", bytes.NewReader([]byte("x")), 1, "text/plain"); !errors.Is(err, ErrNotImage) {
		t.Errorf("Expected ErrNotImage, got %v", err)
	}
	if _, err := store.Get(ctx, "uploads/recipe/a.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected nothing stored for rejected upload, got %v", err)
	}
}

func TestFromConfig(t *testing.T) {
	store, err := FromConfig(context.Background(), config.StorageConfig{Backend: "local", MediaRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	if store.Bucket() == "" {
		t.Error("Expected bucket to be set")
	}

	if _, err := FromConfig(context.Background(), config.StorageConfig{Backend: "minio"}); err == nil {
		t.Error("Expected error for incomplete minio config")
	}
	if _, err := FromConfig(context.Background(), config.StorageConfig{Backend: "s3"}); err == nil {
		t.Error("Expected error for s3 without region and bucket")
	}
	if _, err := FromConfig(context.Background(), config.StorageConfig{Backend: "ftp"}); err == nil {
		t.Error("Expected error for unknown backend")
	}
}

func TestNewMinioClientValidatesConfig(t *testing.T) {
	tests := []config.MinioConfig{
		{AccessKey: "a", SecretKey: "s", Bucket: "b"},
		{Endpoint: "localhost:9000", Bucket: "b"},
		{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"},
	}
	for _, cfg := range tests {
		if _, err := NewMinioClient(cfg); err == nil {
			t.Errorf("Expected error for config %+v", cfg)
		}
	}

	client, err := NewMinioClient(config.MinioConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "recipes"})
	if err != nil {
		t.Fatalf("Expected valid config to construct a client, got %v", err)
	}
	if client.Bucket() != "recipes" {
		t.Errorf("Expected bucket recipes, got %s", client.Bucket())
	}
}
