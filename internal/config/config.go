// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Secret backends understood by the platform/secrets package.
const (
	SecretsBackendFile = "file"
	SecretsBackendGCP  = "gcp"
)

// Object store drivers understood by the filestorage package.
const (
	ObjectStoreGCS   = "gcs"
	ObjectStoreS3    = "s3"
	ObjectStoreMinIO = "minio"
	ObjectStoreLocal = "local"
)

// Database drivers understood by the platform/database package.
const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode       string        `mapstructure:"GIN_MODE"`
	ServerHost    string        `mapstructure:"SERVER_HOST"`
	ServerPort    string        `mapstructure:"SERVER_PORT"`
	ServerTimeout time.Duration `mapstructure:"-"` // SERVER_TIMEOUT_SECONDS
	APIBasePath   string        `mapstructure:"API_BASE_PATH"`

	// Database Configuration
	DBDriver          string        `mapstructure:"DB_DRIVER"`
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"-"` // DB_CONN_MAX_LIFETIME_MINUTES
	DBSQLitePath      string        `mapstructure:"DB_SQLITE_PATH"`
	DBRunMigrations   bool          `mapstructure:"DB_RUN_MIGRATIONS"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Secrets
	GoogleCloudProject string `mapstructure:"GOOGLE_CLOUD_PROJECT"`
	SecretsBackend     string `mapstructure:"SECRETS_BACKEND"`

	// Firebase Configuration
	FirebaseServiceAccountKeyPath string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_KEY_PATH"`
	FirebaseConfigPath            string `mapstructure:"FIREBASE_CONFIG_PATH"`
	FirebaseAPIKey                string `mapstructure:"FIREBASE_API_KEY"`
	FirebaseCheckRevoked          bool   `mapstructure:"FIREBASE_CHECK_REVOKED"`

	// Object storage
	ObjectStoreDriver string `mapstructure:"OBJECT_STORE_DRIVER"`
	StorageBucket     string `mapstructure:"STORAGE_BUCKET_USER_ACCOUNT_IMAGES"`
	LocalStoragePath  string `mapstructure:"LOCAL_STORAGE_PATH"`
	S3Region          string `mapstructure:"S3_REGION"`
	S3Endpoint        string `mapstructure:"S3_ENDPOINT"`
	S3AccessKey       string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey       string `mapstructure:"S3_SECRET_KEY"`
	MinIOEndpoint     string `mapstructure:"MINIO_ENDPOINT"`
	MinIOAccessKey    string `mapstructure:"MINIO_ACCESS_KEY"`
	MinIOSecretKey    string `mapstructure:"MINIO_SECRET_KEY"`
	MinIOUseSSL       bool   `mapstructure:"MINIO_USE_SSL"`
	MaxUploadSizeMB   int    `mapstructure:"MAX_UPLOAD_SIZE_MB"`
}

// MaxUploadBytes is the signup form size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadSizeMB) << 20
}

// PostgresDSN builds the key/value DSN used by the GORM postgres driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode, c.DBTimezone)
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()

	// Set default values
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)
	v.SetDefault("API_BASE_PATH", "")

	v.SetDefault("DB_DRIVER", DBDriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "user_account_db")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)
	v.SetDefault("DB_SQLITE_PATH", "user_account.db")
	v.SetDefault("DB_RUN_MIGRATIONS", true)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("GOOGLE_CLOUD_PROJECT", "")
	v.SetDefault("SECRETS_BACKEND", SecretsBackendFile)

	// Firebase
	v.SetDefault("FIREBASE_SERVICE_ACCOUNT_KEY_PATH", "")
	v.SetDefault("FIREBASE_CONFIG_PATH", "")
	v.SetDefault("FIREBASE_API_KEY", "")
	v.SetDefault("FIREBASE_CHECK_REVOKED", false)

	// Object storage
	v.SetDefault("OBJECT_STORE_DRIVER", ObjectStoreGCS)
	v.SetDefault("STORAGE_BUCKET_USER_ACCOUNT_IMAGES", "")
	v.SetDefault("LOCAL_STORAGE_PATH", "./images")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("MINIO_ENDPOINT", "")
	v.SetDefault("MINIO_ACCESS_KEY", "")
	v.SetDefault("MINIO_SECRET_KEY", "")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("MAX_UPLOAD_SIZE_MB", 10)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Convert duration fields
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute

	cfg.APIBasePath = strings.TrimRight(cfg.APIBasePath, "/")
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.SecretsBackend = strings.ToLower(strings.TrimSpace(cfg.SecretsBackend))
	cfg.ObjectStoreDriver = strings.ToLower(strings.TrimSpace(cfg.ObjectStoreDriver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DBDriverPostgres, DBDriverSQLite:
	default:
		return fmt.Errorf("FATAL: unsupported DB_DRIVER %q", c.DBDriver)
	}

	switch c.SecretsBackend {
	case SecretsBackendFile:
		if strings.TrimSpace(c.FirebaseServiceAccountKeyPath) == "" {
			return fmt.Errorf("FATAL: FIREBASE_SERVICE_ACCOUNT_KEY_PATH is not set. This is required for Firebase Admin SDK initialization")
		}
		if _, err := os.Stat(c.FirebaseServiceAccountKeyPath); os.IsNotExist(err) {
			return fmt.Errorf("FATAL: Firebase service account key file specified in FIREBASE_SERVICE_ACCOUNT_KEY_PATH (%s) not found", c.FirebaseServiceAccountKeyPath)
		}
		if c.FirebaseConfigPath == "" && c.FirebaseAPIKey == "" {
			return fmt.Errorf("FATAL: one of FIREBASE_CONFIG_PATH or FIREBASE_API_KEY is required for password sign-in")
		}
	case SecretsBackendGCP:
		if strings.TrimSpace(c.GoogleCloudProject) == "" {
			return fmt.Errorf("FATAL: GOOGLE_CLOUD_PROJECT is required when SECRETS_BACKEND=gcp")
		}
	default:
		return fmt.Errorf("FATAL: unsupported SECRETS_BACKEND %q", c.SecretsBackend)
	}

	switch c.ObjectStoreDriver {
	case ObjectStoreGCS, ObjectStoreS3, ObjectStoreMinIO, ObjectStoreLocal:
	default:
		return fmt.Errorf("FATAL: unsupported OBJECT_STORE_DRIVER %q", c.ObjectStoreDriver)
	}
	if strings.TrimSpace(c.StorageBucket) == "" {
		return fmt.Errorf("FATAL: STORAGE_BUCKET_USER_ACCOUNT_IMAGES is not set")
	}
	if c.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("FATAL: MAX_UPLOAD_SIZE_MB must be positive")
	}
	return nil
}
