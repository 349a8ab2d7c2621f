package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"

	"management-web/internal/reconcile"
)

type Config struct {
	// Application
	AppName string
	AppEnv  string
	AppPort string
	AppURL  string

	// Logging
	LogLevel  string
	LogFormat string

	// Database
	DBHost            string
	DBPort            string
	DBDatabase        string
	DBUsername        string
	DBPassword        string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// JWT
	JWTSecret        string
	JWTAccessExpire  time.Duration
	JWTRefreshExpire time.Duration

	// Upload
	UploadMaxSize int
	UploadPath    string
	ExportPath    string

	// Import
	ImportConcurrency     int
	ImportDuplicatePolicy string
	ImportAsyncThreshold  int
	ImportTimeout         time.Duration
	ProgressTTL           time.Duration

	// Asynq
	WorkerConcurrency  int
	AsynqRedisAddr     string
	AsynqRedisPassword string
	AsynqRedisDB       int
}

func Load() (*Config, error) {
	// Load .env file if exists
	// Try to load from current dir first, then parent dirs
	_ = godotenv.Load()
	_ = godotenv.Load("../../.env") // For when running from cmd/web or cmd/worker

	cfg := &Config{
		AppName: getEnv("APP_NAME", "Management Web"),
		AppEnv:  getEnv("APP_ENV", "development"),
		AppPort: getEnv("APP_PORT", "8080"),
		AppURL:  getEnv("APP_URL", "http://localhost:8080"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		DBHost:            getEnv("DB_HOST", "127.0.0.1"),
		DBPort:            getEnv("DB_PORT", "3306"),
		DBDatabase:        getEnv("DB_DATABASE", "management"),
		DBUsername:        getEnv("DB_USERNAME", "root"),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBMaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		JWTSecret:        getEnv("JWT_SECRET", "change-this-secret-key"),
		JWTAccessExpire:  getEnvAsDuration("JWT_ACCESS_EXPIRE", 24*time.Hour),
		JWTRefreshExpire: getEnvAsDuration("JWT_REFRESH_EXPIRE", 168*time.Hour),

		UploadMaxSize: getEnvAsInt("UPLOAD_MAX_SIZE", 20971520), // 20MB
		UploadPath:    getEnv("UPLOAD_PATH", "./storage/uploads"),
		ExportPath:    getEnv("EXPORT_PATH", "./storage/exports"),

		ImportConcurrency:     getEnvAsInt("IMPORT_CONCURRENCY", reconcile.DefaultConcurrency),
		ImportDuplicatePolicy: getEnv("IMPORT_DUPLICATE_POLICY", "update"),
		ImportAsyncThreshold:  getEnvAsInt("IMPORT_ASYNC_THRESHOLD", 2000),
		ImportTimeout:         getEnvAsDuration("IMPORT_TIMEOUT", 10*time.Minute),
		ProgressTTL:           getEnvAsDuration("IMPORT_PROGRESS_TTL", 24*time.Hour),

		WorkerConcurrency:  getEnvAsInt("WORKER_CONCURRENCY", 4),
		AsynqRedisAddr:     getEnv("ASYNQ_REDIS_ADDR", "127.0.0.1:6379"),
		AsynqRedisPassword: getEnv("ASYNQ_REDIS_PASSWORD", ""),
		AsynqRedisDB:       getEnvAsInt("ASYNQ_REDIS_DB", 0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the import pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.ImportConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("IMPORT_CONCURRENCY must be positive, got %d", c.ImportConcurrency))
	}
	if _, err := reconcile.ParseDuplicatePolicy(c.ImportDuplicatePolicy); err != nil {
		errs = append(errs, fmt.Errorf("IMPORT_DUPLICATE_POLICY: %w", err))
	}
	if c.ImportAsyncThreshold < 0 {
		errs = append(errs, fmt.Errorf("IMPORT_ASYNC_THRESHOLD must not be negative, got %d", c.ImportAsyncThreshold))
	}
	if c.UploadMaxSize <= 0 {
		errs = append(errs, fmt.Errorf("UPLOAD_MAX_SIZE must be positive, got %d", c.UploadMaxSize))
	}
	if c.AppEnv == "production" && c.JWTSecret == "change-this-secret-key" {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	return errors.Join(errs...)
}

// DuplicatePolicy returns the parsed IMPORT_DUPLICATE_POLICY.
func (c *Config) DuplicatePolicy() reconcile.DuplicatePolicy {
	p, _ := reconcile.ParseDuplicatePolicy(c.ImportDuplicatePolicy)
	return p
}

// GetDSN builds the MySQL DSN. Imported text is utf8mb4 so tri-state values
// and Vietnamese headers survive the round trip. Times travel in UTC, the
// location imported dates are truncated in, so a DATE column stores the day
// the sheet shows whatever the host time zone.
func (c *Config) GetDSN() string {
	dsn := mysql.NewConfig()
	dsn.User = c.DBUsername
	dsn.Passwd = c.DBPassword
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(c.DBHost, c.DBPort)
	dsn.DBName = c.DBDatabase
	dsn.Collation = "utf8mb4_unicode_ci"
	dsn.ParseTime = true
	dsn.Loc = time.UTC
	return dsn.FormatDSN()
}

func (c *Config) GetRedisAddr() string {
	return net.JoinHostPort(c.RedisHost, c.RedisPort)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
