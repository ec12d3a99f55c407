package config

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Environment represents the application environment
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Supported database drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverPGX      = "pgx"
)

var (
	validSSLModes = map[string]bool{
		"disable":     true,
		"require":     true,
		"verify-ca":   true,
		"verify-full": true,
	}
	dbNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)
	upperPattern  = regexp.MustCompile(`[A-Z]`)
	lowerPattern  = regexp.MustCompile(`[a-z]`)
	digitPattern  = regexp.MustCompile(`[0-9]`)
	symbolPattern = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Provider defines the interface for configuration management
type Provider interface {
	// GetString retrieves a string configuration value
	GetString(ctx context.Context, key string) (string, error)
	// GetInt retrieves an integer configuration value
	GetInt(ctx context.Context, key string) (int, error)
	// GetBool retrieves a boolean configuration value
	GetBool(ctx context.Context, key string) (bool, error)
	// GetSecret retrieves a secret value
	GetSecret(ctx context.Context, key string) (string, error)
	// GetEnvironment returns the current environment
	GetEnvironment() Environment
}

// currentEnvironment reads APP_ENV, defaulting to development
func currentEnvironment() Environment {
	env := os.Getenv("APP_ENV")
	if env == "" {
		return Development
	}
	return Environment(env)
}

// EnvProvider implements Provider using environment variables
type EnvProvider struct {
	prefix      string
	environment Environment
}

// NewEnvProvider creates a new environment-based configuration provider.
// Every key is looked up as prefix+key.
func NewEnvProvider(prefix string) Provider {
	return &EnvProvider{
		prefix:      prefix,
		environment: currentEnvironment(),
	}
}

// GetEnvironment returns the current environment
func (p *EnvProvider) GetEnvironment() Environment {
	return p.environment
}

// GetString retrieves a string configuration value from environment variables
func (p *EnvProvider) GetString(ctx context.Context, key string) (string, error) {
	value := os.Getenv(p.prefix + key)
	if value == "" {
		return "", fmt.Errorf("environment variable %s%s not set", p.prefix, key)
	}
	return value, nil
}

// GetInt retrieves an integer configuration value from environment variables
func (p *EnvProvider) GetInt(ctx context.Context, key string) (int, error) {
	return parseInt(p.GetString(ctx, key))
}

// GetBool retrieves a boolean configuration value from environment variables
func (p *EnvProvider) GetBool(ctx context.Context, key string) (bool, error) {
	return parseBool(p.GetString(ctx, key))
}

// GetSecret retrieves a secret value from environment variables
func (p *EnvProvider) GetSecret(ctx context.Context, key string) (string, error) {
	return p.GetString(ctx, key)
}

func parseInt(value string, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(value)
}

func parseBool(value string, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(value)
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Driver     string
	SQLitePath string
	// DSN, when set, is used verbatim instead of the discrete fields
	DSN        string
	Host       string
	Port       int
	User       string
	Password   string
	DBName     string
	SSLMode    string
}

// IsPostgres reports whether the driver talks to PostgreSQL
func (c *DatabaseConfig) IsPostgres() bool {
	return c.Driver == DriverPostgres || c.Driver == DriverPGX
}

// ConnString returns the libpq style connection string
func (c *DatabaseConfig) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Validate checks if the database configuration is valid
func (c *DatabaseConfig) Validate(env Environment) error {
	switch c.Driver {
	case DriverMemory:
		if env == Production {
			return &ValidationError{Field: "Driver", Message: "memory driver is not allowed in production"}
		}
		return nil
	case DriverSQLite:
		if c.SQLitePath == "" {
			return &ValidationError{Field: "SQLitePath", Message: "sqlite path cannot be empty"}
		}
		return nil
	case DriverPostgres, DriverPGX:
		if c.DSN != "" {
			return nil
		}
	default:
		return &ValidationError{Field: "Driver", Message: fmt.Sprintf("unsupported driver %q", c.Driver)}
	}

	if c.Host == "" {
		return &ValidationError{Field: "Host", Message: "host cannot be empty"}
	}

	// Validate host is a valid hostname or IP
	if host := net.ParseIP(c.Host); host == nil {
		if _, err := net.LookupHost(c.Host); err != nil {
			return &ValidationError{Field: "Host", Message: "invalid hostname or IP address"}
		}
	}

	if c.Port <= 0 || c.Port > 65535 {
		return &ValidationError{Field: "Port", Message: "port must be between 1 and 65535"}
	}

	if c.User == "" {
		return &ValidationError{Field: "User", Message: "user cannot be empty"}
	}

	if c.Password == "" {
		return &ValidationError{Field: "Password", Message: "password cannot be empty"}
	}

	if env == Production {
		if err := validatePasswordStrength("Password", c.Password); err != nil {
			return err
		}
	}

	if c.DBName == "" {
		return &ValidationError{Field: "DBName", Message: "database name cannot be empty"}
	}

	if !dbNamePattern.MatchString(c.DBName) {
		return &ValidationError{Field: "DBName", Message: "database name must start with a letter and contain only letters, numbers, and underscores"}
	}

	if !validSSLModes[c.SSLMode] {
		return &ValidationError{Field: "SSLMode", Message: "invalid SSL mode"}
	}

	// Require SSL in production
	if env == Production && c.SSLMode == "disable" {
		return &ValidationError{Field: "SSLMode", Message: "SSL cannot be disabled in production"}
	}

	return nil
}

// validatePasswordStrength enforces the production password policy
func validatePasswordStrength(field, password string) error {
	if len(password) < 12 {
		return &ValidationError{Field: field, Message: "password must be at least 12 characters long in production"}
	}
	rules := []struct {
		pattern *regexp.Regexp
		message string
	}{
		{upperPattern, "password must contain at least one uppercase letter in production"},
		{lowerPattern, "password must contain at least one lowercase letter in production"},
		{digitPattern, "password must contain at least one number in production"},
		{symbolPattern, "password must contain at least one special character in production"},
	}
	for _, rule := range rules {
		if !rule.pattern.MatchString(password) {
			return &ValidationError{Field: field, Message: rule.message}
		}
	}
	return nil
}

// validateSecretSchema validates the structure of secrets stored in AWS Secrets Manager
func validateSecretSchema(secrets map[string]string, env Environment) error {
	// Only PostgreSQL deployments keep credentials in the secret
	if driver, ok := secrets["DB_DRIVER"]; ok && driver != DriverPostgres && driver != DriverPGX {
		return nil
	}
	if _, ok := secrets["DB_DSN"]; ok {
		return nil
	}

	requiredKeys := []string{
		"DB_HOST",
		"DB_PORT",
		"DB_USER",
		"DB_PASSWORD",
		"DB_NAME",
		"DB_SSLMODE",
	}
	for _, key := range requiredKeys {
		if _, ok := secrets[key]; !ok {
			return &ValidationError{Field: key, Message: "required secret key not found"}
		}
	}

	if _, err := strconv.Atoi(secrets["DB_PORT"]); err != nil {
		return &ValidationError{Field: "DB_PORT", Message: "port must be a valid number"}
	}

	if !validSSLModes[secrets["DB_SSLMODE"]] {
		return &ValidationError{Field: "DB_SSLMODE", Message: "invalid SSL mode"}
	}

	if env == Production {
		if strings.ToLower(secrets["DB_HOST"]) == "localhost" {
			return &ValidationError{Field: "DB_HOST", Message: "localhost is not allowed in production"}
		}
		if secrets["DB_SSLMODE"] == "disable" {
			return &ValidationError{Field: "DB_SSLMODE", Message: "SSL cannot be disabled in production"}
		}
		if err := validatePasswordStrength("DB_PASSWORD", secrets["DB_PASSWORD"]); err != nil {
			return err
		}
	}

	return nil
}

// GetDatabaseConfig retrieves database configuration using the provided config provider
func GetDatabaseConfig(ctx context.Context, provider Provider) (*DatabaseConfig, error) {
	driver, err := provider.GetString(ctx, "DB_DRIVER")
	if err != nil {
		driver = DriverSQLite // Default to a local file database if not set
	}

	cfg := &DatabaseConfig{Driver: driver}

	switch driver {
	case DriverSQLite:
		path, err := provider.GetString(ctx, "SQLITE_PATH")
		if err != nil {
			path = DefaultSQLitePath()
		}
		cfg.SQLitePath = path
	case DriverPostgres, DriverPGX:
		if err := loadPostgresConfig(ctx, provider, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(provider.GetEnvironment()); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	return cfg, nil
}

func loadPostgresConfig(ctx context.Context, provider Provider, cfg *DatabaseConfig) error {
	if dsn, err := provider.GetSecret(ctx, "DB_DSN"); err == nil {
		cfg.DSN = dsn
		return nil
	}

	var err error
	if cfg.Host, err = provider.GetString(ctx, "DB_HOST"); err != nil {
		return fmt.Errorf("failed to get DB_HOST: %w", err)
	}
	if cfg.Port, err = provider.GetInt(ctx, "DB_PORT"); err != nil {
		return fmt.Errorf("failed to get DB_PORT: %w", err)
	}
	if cfg.User, err = provider.GetString(ctx, "DB_USER"); err != nil {
		return fmt.Errorf("failed to get DB_USER: %w", err)
	}
	if cfg.Password, err = provider.GetSecret(ctx, "DB_PASSWORD"); err != nil {
		return fmt.Errorf("failed to get DB_PASSWORD: %w", err)
	}
	if cfg.DBName, err = provider.GetString(ctx, "DB_NAME"); err != nil {
		return fmt.Errorf("failed to get DB_NAME: %w", err)
	}
	if cfg.SSLMode, err = provider.GetString(ctx, "DB_SSLMODE"); err != nil {
		cfg.SSLMode = "disable" // Default to disable if not set
	}
	return nil
}

// DefaultSQLitePath returns ~/.treepath/treepath.db, falling back to the
// working directory when the home directory is not usable
func DefaultSQLitePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	dataDir := filepath.Join(homeDir, ".treepath")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		dataDir = "."
	}

	return filepath.Join(dataDir, "treepath.db")
}

// OverlayProvider answers from a fixed set of values first and defers to
// another provider for everything else. The CLI uses it for flag overrides.
type OverlayProvider struct {
	base   Provider
	values map[string]string
}

// NewOverlayProvider creates a provider that prefers values over base
func NewOverlayProvider(base Provider, values map[string]string) *OverlayProvider {
	return &OverlayProvider{base: base, values: values}
}

// GetEnvironment returns the base provider's environment
func (p *OverlayProvider) GetEnvironment() Environment {
	return p.base.GetEnvironment()
}

// GetString retrieves a string configuration value
func (p *OverlayProvider) GetString(ctx context.Context, key string) (string, error) {
	if value, ok := p.values[key]; ok {
		return value, nil
	}
	return p.base.GetString(ctx, key)
}

// GetInt retrieves an integer configuration value
func (p *OverlayProvider) GetInt(ctx context.Context, key string) (int, error) {
	return parseInt(p.GetString(ctx, key))
}

// GetBool retrieves a boolean configuration value
func (p *OverlayProvider) GetBool(ctx context.Context, key string) (bool, error) {
	return parseBool(p.GetString(ctx, key))
}

// GetSecret retrieves a secret value
func (p *OverlayProvider) GetSecret(ctx context.Context, key string) (string, error) {
	if value, ok := p.values[key]; ok {
		return value, nil
	}
	return p.base.GetSecret(ctx, key)
}
