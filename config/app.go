package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cache backends
const (
	CacheMemory   = "memory"
	CacheRedis    = "redis"
	CacheDynamoDB = "dynamodb"
	CacheNone     = "none"
)

// AppConfig holds the service level settings
type AppConfig struct {
	HTTPAddr   string
	Debug      bool
	CacheKind  string
	CacheTTL   time.Duration
	RedisAddr  string
	CacheTable string
	Database   *DatabaseConfig
}

// LoadDotEnv loads variables from the given .env files (".env" when none
// are named). Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// Validate checks if the application configuration is valid
func (c *AppConfig) Validate(env Environment) error {
	if c.HTTPAddr == "" {
		return &ValidationError{Field: "HTTPAddr", Message: "listen address cannot be empty"}
	}

	switch c.CacheKind {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if c.RedisAddr == "" {
			return &ValidationError{Field: "RedisAddr", Message: "redis address cannot be empty"}
		}
	case CacheDynamoDB:
		if c.CacheTable == "" {
			return &ValidationError{Field: "CacheTable", Message: "cache table cannot be empty"}
		}
	default:
		return &ValidationError{Field: "CacheKind", Message: fmt.Sprintf("unsupported cache %q", c.CacheKind)}
	}

	if c.CacheTTL <= 0 {
		return &ValidationError{Field: "CacheTTL", Message: "cache TTL must be positive"}
	}

	if env == Production && c.Debug {
		return &ValidationError{Field: "Debug", Message: "debug logging is not allowed in production"}
	}

	if c.Database == nil {
		return &ValidationError{Field: "Database", Message: "database configuration is missing"}
	}
	return c.Database.Validate(env)
}

// GetAppConfig retrieves the application configuration using the provided config provider
func GetAppConfig(ctx context.Context, provider Provider) (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:   ":8080",
		CacheKind:  CacheMemory,
		CacheTTL:   5 * time.Minute,
		RedisAddr:  "localhost:6379",
		CacheTable: "TreeCache",
	}

	if addr, err := provider.GetString(ctx, "HTTP_ADDR"); err == nil {
		cfg.HTTPAddr = addr
	}
	if debug, err := provider.GetBool(ctx, "DEBUG"); err == nil {
		cfg.Debug = debug
	}
	if kind, err := provider.GetString(ctx, "CACHE_BACKEND"); err == nil {
		cfg.CacheKind = strings.ToLower(kind)
	}
	if ttl, err := provider.GetString(ctx, "CACHE_TTL"); err == nil {
		parsed, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, &ValidationError{Field: "CacheTTL", Message: "invalid duration"}
		}
		cfg.CacheTTL = parsed
	}
	if host, err := provider.GetString(ctx, "REDIS_HOST"); err == nil {
		port, err := provider.GetString(ctx, "REDIS_PORT")
		if err != nil {
			port = "6379"
		}
		cfg.RedisAddr = fmt.Sprintf("%s:%s", host, port)
	}
	if table, err := provider.GetString(ctx, "CACHE_TABLE"); err == nil {
		cfg.CacheTable = table
	}

	dbCfg, err := GetDatabaseConfig(ctx, provider)
	if err != nil {
		return nil, err
	}
	cfg.Database = dbCfg

	if err := cfg.Validate(provider.GetEnvironment()); err != nil {
		return nil, fmt.Errorf("invalid application configuration: %w", err)
	}
	return cfg, nil
}
