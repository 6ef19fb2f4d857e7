// Package config loads server configuration from flags, environment
// variables and an optional .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Server   ServerConfig
	Auth     AuthConfig
	Database DatabaseConfig
	Visitor  VisitorConfig
	Cache    CacheConfig
	Metrics  MetricsConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	DataDir     string // Root for sqlite, badger and the auth key (default: ~/Recshelf)
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string
	Format string // pretty or json; empty picks by environment
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	KeyDir               string // Directory holding auth.key (default: DataDir)
}

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DatabaseConfig selects the account database.
type DatabaseConfig struct {
	Driver      string
	SQLitePath  string
	PostgresURL string
}

// VisitorConfig controls unauthenticated use.
type VisitorConfig struct {
	// Persist keeps visitor stores in a local badger database across restarts.
	// When false they live for the process lifetime.
	Persist   bool
	StorePath string

	// AllowWrites permits visitors to add, edit and delete.
	AllowWrites bool

	// Limit is the visitor-authored item count at which clients should prompt
	// for an account. It is reported, not enforced.
	Limit int

	// DevReadLatency delays every read to emulate a remote backend.
	DevReadLatency time.Duration

	// IdleTTL ends a visitor's session: its store leaves memory once unused
	// for this long. Persisted state survives and reloads on the next
	// request. Zero keeps stores until the process exits.
	IdleTTL time.Duration
}

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// CacheConfig holds query cache configuration.
type CacheConfig struct {
	Backend   string
	RedisAddr string
	TTL       time.Duration
}

// MetricsConfig controls the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// LoadConfig loads configuration from the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load resolves every value with precedence:
// 1. Command-line flags.
// 2. Environment variables.
// 3. .env file.
// 4. Defaults.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("recshelf", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	dataDir := fs.String("data-dir", "", "Directory for local databases and keys")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "", "Log format (pretty, json)")

	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma separated allowed origins")

	accessTokenDuration := fs.String("access-token-duration", "", "Access token lifetime (e.g., 15m)")
	refreshTokenDuration := fs.String("refresh-token-duration", "", "Refresh token lifetime (e.g., 720h)")

	dbDriver := fs.String("db-driver", "", "Account database driver (sqlite, postgres)")
	dbPath := fs.String("db-path", "", "SQLite database path")
	databaseURL := fs.String("database-url", "", "Postgres connection string")

	visitorPersist := fs.String("visitor-persist", "", "Persist visitor data locally (default: false)")
	visitorWrites := fs.String("visitor-allow-writes", "", "Allow unauthenticated writes (default: true)")
	visitorLimit := fs.String("visitor-limit", "", "Visitor item count that prompts sign-up (default: 15)")
	devLatency := fs.String("dev-read-latency", "", "Artificial read latency (e.g., 300ms)")
	visitorIdleTTL := fs.String("visitor-idle-ttl", "", "Idle time before a visitor store is dropped (default: 2h)")

	cacheBackend := fs.String("cache-backend", "", "Query cache backend (memory, redis)")
	redisAddr := fs.String("redis-addr", "", "Redis address for the redis cache backend")
	cacheTTL := fs.String("cache-ttl", "", "Query cache entry lifetime (default: 5m)")

	metricsEnabled := fs.String("metrics", "", "Expose /metrics (default: true)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// godotenv never overrides variables already set in the environment.
	_ = godotenv.Load(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
			DataDir:     getConfigValue(*dataDir, "DATA_DIR", ""),
		},
		Logger: LoggerConfig{
			Level:  getConfigValue(*logLevel, "LOG_LEVEL", "info"),
			Format: getConfigValue(*logFormat, "LOG_FORMAT", ""),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			Driver:      getConfigValue(*dbDriver, "DB_DRIVER", DriverSQLite),
			SQLitePath:  getConfigValue(*dbPath, "DB_PATH", ""),
			PostgresURL: getConfigValue(*databaseURL, "DATABASE_URL", ""),
		},
		Visitor: VisitorConfig{
			Persist:     getBoolConfigValue(*visitorPersist, "VISITOR_PERSIST", false),
			AllowWrites: getBoolConfigValue(*visitorWrites, "VISITOR_ALLOW_WRITES", true),
			Limit:       getIntConfigValue(*visitorLimit, "VISITOR_LIMIT", 15),
		},
		Cache: CacheConfig{
			Backend:   getConfigValue(*cacheBackend, "CACHE_BACKEND", CacheMemory),
			RedisAddr: getConfigValue(*redisAddr, "REDIS_ADDR", "localhost:6379"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolConfigValue(*metricsEnabled, "METRICS_ENABLED", true),
		},
	}

	durations := []struct {
		flagValue, envKey, def string
		dst                    *time.Duration
	}{
		{*accessTokenDuration, "ACCESS_TOKEN_DURATION", "15m", &cfg.Auth.AccessTokenDuration},
		{*refreshTokenDuration, "REFRESH_TOKEN_DURATION", "720h", &cfg.Auth.RefreshTokenDuration},
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{*devLatency, "VISITOR_DEV_READ_LATENCY", "0s", &cfg.Visitor.DevReadLatency},
		{*visitorIdleTTL, "VISITOR_IDLE_TTL", "2h", &cfg.Visitor.IdleTTL},
		{*cacheTTL, "CACHE_TTL", "5m", &cfg.Cache.TTL},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(d.envKey), raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	switch c.App.Environment {
	case "development", "staging", "production":
	case "":
		return errors.New("ENV is required")
	default:
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Logger.Format {
	case "", "pretty", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be pretty or json)", c.Logger.Format)
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return errors.New("sqlite database path cannot be empty")
		}
	case DriverPostgres:
		if c.Database.PostgresURL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("invalid database driver: %s (must be sqlite or postgres)", c.Database.Driver)
	}

	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for the redis cache backend")
		}
	default:
		return fmt.Errorf("invalid cache backend: %s (must be memory or redis)", c.Cache.Backend)
	}

	if c.Visitor.Limit < 1 {
		return fmt.Errorf("visitor limit must be positive, got %d", c.Visitor.Limit)
	}
	if c.Visitor.DevReadLatency < 0 {
		return errors.New("dev read latency cannot be negative")
	}
	if c.Visitor.IdleTTL < 0 {
		return errors.New("visitor idle TTL cannot be negative")
	}

	return nil
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// expandPaths fills path defaults relative to DataDir.
func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	dataDir, err := expandPath(c.App.DataDir, filepath.Join(homeDir, "Recshelf"))
	if err != nil {
		return err
	}
	c.App.DataDir = dataDir

	if c.Database.SQLitePath, err = expandPath(c.Database.SQLitePath, filepath.Join(dataDir, "recshelf.db")); err != nil {
		return err
	}
	if c.Visitor.StorePath, err = expandPath(c.Visitor.StorePath, filepath.Join(dataDir, "visitors")); err != nil {
		return err
	}
	if c.Auth.KeyDir, err = expandPath(c.Auth.KeyDir, dataDir); err != nil {
		return err
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// An empty path resolves to defaultPath.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue accepts "true", "1" and "yes" (case-insensitive) as true.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	switch strings.ToLower(strValue) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

// getIntConfigValue returns an int from flag, env var, or default.
// Unparseable values fall back to the default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
