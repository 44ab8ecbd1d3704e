// Package config provides centralized configuration for the roster service.
// Settings come from environment variables with defaults, and the whole
// configuration is validated on startup so misconfiguration fails fast.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Upload   UploadConfig
	Ingest   IngestConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port defaults to 5000, where the roster frontend expects the backend.
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"5000"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// StoreConfig selects and scopes the roster store.
type StoreConfig struct {
	// Driver is one of postgres, redis, memory (default: postgres)
	Driver string `env:"STORE_DRIVER" default:"postgres"`

	// ProjectID scopes the collection path artifacts/{project}/public/data/students
	ProjectID string `env:"STORE_PROJECT_ID" envAlt:"PROJECT_ID" default:"roster"`

	// BatchSize is the maximum number of records per atomic store batch (default: 500)
	BatchSize int `env:"STORE_BATCH_SIZE" default:"500"`

	// Timeout bounds every individual store call (default: 30s)
	Timeout time.Duration `env:"STORE_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// URL is required when Store.Driver is postgres
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" default:"127.0.0.1:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" default:"0"`
}

// UploadConfig holds multipart upload limits.
type UploadConfig struct {
	// MaxFileSize is the maximum request body size in bytes (default: 32MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"33554432"`

	// MaxFiles is the maximum number of files in one ingestion request (default: 20)
	MaxFiles int `env:"UPLOAD_MAX_FILES" default:"20"`

	// MaxConcurrent is the number of ingestions the server runs at once (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWait is how long an upload waits for a free slot before failing
	MaxWait time.Duration `env:"UPLOAD_MAX_WAIT" default:"30s"`
}

// IngestConfig holds roster policy settings.
type IngestConfig struct {
	// RequireDepartment adds department to the required header and field set
	RequireDepartment bool `env:"INGEST_REQUIRE_DEPARTMENT" default:"false"`

	// NamePrefix is the placeholder name template: "<prefix> <rollNumber>"
	NamePrefix string `env:"INGEST_NAME_PREFIX" default:"Student"`
}

// SecurityConfig holds request-origin settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// CORSOrigins is a comma-separated list of allowed origins; "*" allows all
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" default:"info"`
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Collection returns the collection path records are stored under.
func (c *StoreConfig) Collection() string {
	return "artifacts/" + c.ProjectID + "/public/data/students"
}

// String returns a safe representation of the config for logging.
// Connection strings and passwords are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Addr: %q}, ", c.Server.Addr())
	fmt.Fprintf(&b, "Store: {Driver: %q, Collection: %q, BatchSize: %d, Timeout: %s}, ",
		c.Store.Driver, c.Store.Collection(), c.Store.BatchSize, c.Store.Timeout)
	fmt.Fprintf(&b, "Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Database.MaxConns, c.Database.MinConns)
	fmt.Fprintf(&b, "Redis: {Addr: %q, Password: [MASKED], DB: %d}, ", c.Redis.Addr, c.Redis.DB)
	fmt.Fprintf(&b, "Upload: {MaxFileSize: %d, MaxFiles: %d, MaxConcurrent: %d}, ",
		c.Upload.MaxFileSize, c.Upload.MaxFiles, c.Upload.MaxConcurrent)
	fmt.Fprintf(&b, "Ingest: {RequireDepartment: %v, NamePrefix: %q}, ",
		c.Ingest.RequireDepartment, c.Ingest.NamePrefix)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
