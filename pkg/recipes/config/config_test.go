package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	// t.Setenv cannot unset, so pin the keys to their default values
	t.Setenv("PORT", "8080")
	t.Setenv("RECIPES_DB_DRIVER", "sqlite")
	t.Setenv("RECIPES_DB_DSN", "recipes.db")
	t.Setenv("RECIPES_STORAGE", "local")
	t.Setenv("RECIPES_MEDIA_ROOT", "media")
	t.Setenv("RECIPES_MAX_UPLOAD_MB", "10")
	t.Setenv("DB_WAIT_TIMEOUT", "30s")

	cfg := LoadConfig()

	if cfg.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Expected sqlite driver, got %s", cfg.Database.Driver)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Errorf("Expected 10MB upload limit, got %d", cfg.MaxUploadBytes)
	}
	if cfg.Database.WaitTimeout != 30*time.Second {
		t.Errorf("Expected 30s wait timeout, got %s", cfg.Database.WaitTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got %v", err)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RECIPES_DB_DRIVER", "postgres")
	t.Setenv("RECIPES_DB_DSN", "host=db user=recipes dbname=recipes")
	t.Setenv("RECIPES_STORAGE", "minio")
	t.Setenv("MINIO_ENDPOINT", "minio:9000")
	t.Setenv("MINIO_ACCESS_KEY", "access")
	t.Setenv("MINIO_SECRET_KEY", "secret")
	t.Setenv("MINIO_BUCKET", "images")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg := LoadConfig()

	if cfg.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Port)
	}
	if cfg.Storage.Minio.Bucket != "images" || !cfg.Storage.Minio.UseSSL {
		t.Errorf("Unexpected minio config: %+v", cfg.Storage.Minio)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected config to be valid, got %v", err)
	}
}

func TestInvalidNumbersFallBackToDefaults(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	t.Setenv("DB_WAIT_TIMEOUT", "soon")

	cfg := LoadConfig()

	if cfg.Port != 8080 {
		t.Errorf("Expected default port, got %d", cfg.Port)
	}
	if cfg.Database.WaitTimeout != 30*time.Second {
		t.Errorf("Expected default timeout, got %s", cfg.Database.WaitTimeout)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Port:           8080,
		MaxUploadBytes: 1 << 20,
		Database:       DatabaseConfig{Driver: "sqlite", DSN: ":memory:"},
		Storage:        StorageConfig{Backend: "local", MediaRoot: "media"},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("Expected base config to be valid, got %v", err)
	}

	badDriver := base
	badDriver.Database.Driver = "mysql"
	if err := badDriver.Validate(); err == nil {
		t.Error("Expected error for unsupported driver")
	}

	badStorage := base
	badStorage.Storage.Backend = "minio"
	if err := badStorage.Validate(); err == nil {
		t.Error("Expected error for incomplete minio config")
	}

	s3 := base
	s3.Storage.Backend = "s3"
	if err := s3.Validate(); err == nil {
		t.Error("Expected error for s3 without region and bucket")
	}
	s3.Storage.S3 = S3Config{Region: "eu-west-1", Bucket: "recipes"}
	if err := s3.Validate(); err != nil {
		t.Errorf("Expected s3 config to be valid, got %v", err)
	}

	badPort := base
	badPort.Port = 0
	if err := badPort.Validate(); err == nil {
		t.Error("Expected error for invalid port")
	}
}

func TestLoadConfigReadsDotEnvInDev(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("RECIPES_MEDIA_ROOT=from-dotenv\nPORT=9999\n"), 0o600); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}
	t.Chdir(dir)
	t.Setenv("RECIPES_ENV", "dev")
	t.Setenv("PORT", "8081")
	t.Setenv("RECIPES_MEDIA_ROOT", "")
	os.Unsetenv("RECIPES_MEDIA_ROOT")

	cfg := LoadConfig()

	if cfg.Storage.MediaRoot != "from-dotenv" {
		t.Errorf("Expected media root from .env, got %s", cfg.Storage.MediaRoot)
	}
	if cfg.Port != 8081 {
		t.Errorf("Expected process environment to win over .env, got %d", cfg.Port)
	}
}

func TestLoadConfigWithoutDotEnvInDev(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RECIPES_ENV", "dev")
	t.Setenv("PORT", "8082")

	if cfg := LoadConfig(); cfg.Port != 8082 {
		t.Errorf("Expected port from environment, got %d", cfg.Port)
	}
}
