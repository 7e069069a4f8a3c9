package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all settings for the recipes server, read from the environment.
type Config struct {
	Port      int
	JWTSecret string
	// MaxUploadBytes caps the size of a recipe image upload
	MaxUploadBytes int64
	Database       DatabaseConfig
	Log            LogConfig
	Storage        StorageConfig
}

type DatabaseConfig struct {
	Driver      string // sqlite or postgres
	DSN         string
	WaitTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string // json or console
}

type StorageConfig struct {
	Backend   string // local, minio or s3
	MediaRoot string
	Minio     MinioConfig
	S3        S3Config
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Config selects an AWS S3 bucket. Credentials come from the default AWS
// chain (environment, shared config or instance role).
type S3Config struct {
	Region   string
	Bucket   string
	Endpoint string // optional, for S3-compatible services
}

// LoadConfig reads configuration from the environment.
// In dev mode a .env file in the working directory is loaded first; it never
// overrides variables already set in the process environment.
func LoadConfig() Config {
	if os.Getenv("RECIPES_ENV") == "dev" {
		// No .env is fine, the process environment is used as is
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Msg("Ignoring unreadable .env file")
		}
	}

	return Config{
		Port:           getEnvInt("PORT", 8080),
		JWTSecret:      getEnv("JWT_SECRET", "recipes-dev-secret-change-in-production"),
		MaxUploadBytes: int64(getEnvInt("RECIPES_MAX_UPLOAD_MB", 10)) << 20,
		Database: DatabaseConfig{
			Driver:      getEnv("RECIPES_DB_DRIVER", "sqlite"),
			DSN:         getEnv("RECIPES_DB_DSN", "recipes.db"),
			WaitTimeout: getEnvDuration("DB_WAIT_TIMEOUT", 30*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("RECIPES_LOG_LEVEL", "info"),
			Format: getEnv("RECIPES_LOG_FORMAT", "json"),
		},
		Storage: StorageConfig{
			Backend:   getEnv("RECIPES_STORAGE", "local"),
			MediaRoot: getEnv("RECIPES_MEDIA_ROOT", "media"),
			Minio: MinioConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", "recipes"),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
			S3: S3Config{
				Region:   getEnv("AWS_REGION", ""),
				Bucket:   getEnv("RECIPES_S3_BUCKET", ""),
				Endpoint: getEnv("RECIPES_S3_ENDPOINT", ""),
			},
		},
	}
}

// Validate checks that the configuration can be used to start the server
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Port))
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("database DSN is required"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("max upload size must be positive"))
	}
	switch c.Storage.Backend {
	case "local":
		if strings.TrimSpace(c.Storage.MediaRoot) == "" {
			errs = append(errs, errors.New("media root is required for local storage"))
		}
	case "minio":
		m := c.Storage.Minio
		if m.Endpoint == "" || m.AccessKey == "" || m.SecretKey == "" || m.Bucket == "" {
			errs = append(errs, errors.New("minio storage requires endpoint, access key, secret key and bucket"))
		}
	case "s3":
		if c.Storage.S3.Region == "" || c.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("s3 storage requires region and bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage backend %q", c.Storage.Backend))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.Atoi(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := time.ParseDuration(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}
