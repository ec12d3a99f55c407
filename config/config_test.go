package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPostgres() *DatabaseConfig {
	return &DatabaseConfig{
		Driver:   DriverPostgres,
		Host:     "127.0.0.1",
		Port:     5432,
		User:     "treepath",
		Password: "Str0ng!Passw0rd",
		DBName:   "treepath",
		SSLMode:  "require",
	}
}

func TestEnvProvider(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	t.Setenv("TP_NAME", "tree")
	t.Setenv("TP_PORT", "8080")
	t.Setenv("TP_BAD_PORT", "eighty")
	t.Setenv("TP_DEBUG", "true")
	ctx := context.Background()

	p := NewEnvProvider("TP_")
	assert.Equal(t, Staging, p.GetEnvironment())

	name, err := p.GetString(ctx, "NAME")
	require.NoError(t, err)
	assert.Equal(t, "tree", name)

	port, err := p.GetInt(ctx, "PORT")
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	_, err = p.GetInt(ctx, "BAD_PORT")
	assert.Error(t, err)

	debug, err := p.GetBool(ctx, "DEBUG")
	require.NoError(t, err)
	assert.True(t, debug)

	_, err = p.GetString(ctx, "MISSING")
	assert.Error(t, err)

	secret, err := p.GetSecret(ctx, "NAME")
	require.NoError(t, err)
	assert.Equal(t, "tree", secret)
}

func TestEnvironmentDefaultsToDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "")
	assert.Equal(t, Development, NewEnvProvider("").GetEnvironment())
}

func TestDatabaseConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*DatabaseConfig)
		env    Environment
		field  string
	}{
		{name: "valid", modify: func(*DatabaseConfig) {}, env: Production},
		{name: "pgx driver", modify: func(c *DatabaseConfig) { c.Driver = DriverPGX }, env: Development},
		{name: "missing host", modify: func(c *DatabaseConfig) { c.Host = "" }, env: Development, field: "Host"},
		{name: "bad port", modify: func(c *DatabaseConfig) { c.Port = 70000 }, env: Development, field: "Port"},
		{name: "missing user", modify: func(c *DatabaseConfig) { c.User = "" }, env: Development, field: "User"},
		{name: "missing password", modify: func(c *DatabaseConfig) { c.Password = "" }, env: Development, field: "Password"},
		{name: "weak password in production", modify: func(c *DatabaseConfig) { c.Password = "short" }, env: Production, field: "Password"},
		{name: "weak password in development", modify: func(c *DatabaseConfig) { c.Password = "short" }, env: Development},
		{name: "bad database name", modify: func(c *DatabaseConfig) { c.DBName = "1tree" }, env: Development, field: "DBName"},
		{name: "bad ssl mode", modify: func(c *DatabaseConfig) { c.SSLMode = "sometimes" }, env: Development, field: "SSLMode"},
		{name: "ssl disabled in production", modify: func(c *DatabaseConfig) { c.SSLMode = "disable" }, env: Production, field: "SSLMode"},
		{name: "dsn skips field checks", modify: func(c *DatabaseConfig) { *c = DatabaseConfig{Driver: DriverPostgres, DSN: "postgres://localhost/tree"} }, env: Production},
		{name: "memory", modify: func(c *DatabaseConfig) { *c = DatabaseConfig{Driver: DriverMemory} }, env: Development},
		{name: "memory in production", modify: func(c *DatabaseConfig) { *c = DatabaseConfig{Driver: DriverMemory} }, env: Production, field: "Driver"},
		{name: "sqlite", modify: func(c *DatabaseConfig) { *c = DatabaseConfig{Driver: DriverSQLite, SQLitePath: "tree.db"} }, env: Production},
		{name: "sqlite without path", modify: func(c *DatabaseConfig) { *c = DatabaseConfig{Driver: DriverSQLite} }, env: Development, field: "SQLitePath"},
		{name: "unknown driver", modify: func(c *DatabaseConfig) { c.Driver = "oracle" }, env: Development, field: "Driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validPostgres()
			tt.modify(cfg)
			err := cfg.Validate(tt.env)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestConnString(t *testing.T) {
	cfg := validPostgres()
	assert.Equal(t, "host=127.0.0.1 port=5432 user=treepath password=Str0ng!Passw0rd dbname=treepath sslmode=require", cfg.ConnString())

	cfg.DSN = "postgres://me@db/tree"
	assert.Equal(t, "postgres://me@db/tree", cfg.ConnString())
	assert.True(t, cfg.IsPostgres())
	assert.False(t, (&DatabaseConfig{Driver: DriverSQLite}).IsPostgres())
}

func staticProvider(values map[string]string) Provider {
	return NewOverlayProvider(NewEnvProvider("TREEPATH_TEST_UNSET_"), values)
}

func TestGetDatabaseConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to sqlite", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		cfg, err := GetDatabaseConfig(ctx, staticProvider(nil))
		require.NoError(t, err)
		assert.Equal(t, DriverSQLite, cfg.Driver)
		assert.Equal(t, "treepath.db", filepath.Base(cfg.SQLitePath))
	})

	t.Run("sqlite path", func(t *testing.T) {
		cfg, err := GetDatabaseConfig(ctx, staticProvider(map[string]string{
			"DB_DRIVER":   DriverSQLite,
			"SQLITE_PATH": "/tmp/tree.db",
		}))
		require.NoError(t, err)
		assert.Equal(t, "/tmp/tree.db", cfg.SQLitePath)
	})

	t.Run("postgres fields", func(t *testing.T) {
		cfg, err := GetDatabaseConfig(ctx, staticProvider(map[string]string{
			"DB_DRIVER":   DriverPGX,
			"DB_HOST":     "127.0.0.1",
			"DB_PORT":     "5433",
			"DB_USER":     "treepath",
			"DB_PASSWORD": "secret",
			"DB_NAME":     "tree",
		}))
		require.NoError(t, err)
		assert.Equal(t, 5433, cfg.Port)
		assert.Equal(t, "disable", cfg.SSLMode)
	})

	t.Run("postgres dsn", func(t *testing.T) {
		cfg, err := GetDatabaseConfig(ctx, staticProvider(map[string]string{
			"DB_DRIVER": DriverPostgres,
			"DB_DSN":    "postgres://localhost/tree",
		}))
		require.NoError(t, err)
		assert.Equal(t, "postgres://localhost/tree", cfg.ConnString())
	})

	t.Run("postgres missing host", func(t *testing.T) {
		_, err := GetDatabaseConfig(ctx, staticProvider(map[string]string{"DB_DRIVER": DriverPostgres}))
		assert.ErrorContains(t, err, "DB_HOST")
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := GetDatabaseConfig(ctx, staticProvider(map[string]string{"DB_DRIVER": "oracle"}))
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

func TestOverlayProvider(t *testing.T) {
	t.Setenv("TP_BASE", "from-env")
	t.Setenv("TP_SHADOWED", "from-env")
	ctx := context.Background()

	p := NewOverlayProvider(NewEnvProvider("TP_"), map[string]string{
		"SHADOWED": "from-overlay",
		"COUNT":    "3",
		"ENABLED":  "false",
	})

	value, err := p.GetString(ctx, "SHADOWED")
	require.NoError(t, err)
	assert.Equal(t, "from-overlay", value)

	value, err = p.GetString(ctx, "BASE")
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)

	count, err := p.GetInt(ctx, "COUNT")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	enabled, err := p.GetBool(ctx, "ENABLED")
	require.NoError(t, err)
	assert.False(t, enabled)

	secret, err := p.GetSecret(ctx, "SHADOWED")
	require.NoError(t, err)
	assert.Equal(t, "from-overlay", secret)

	_, err = p.GetString(ctx, "MISSING")
	assert.Error(t, err)
}

func TestValidateSecretSchema(t *testing.T) {
	full := func() map[string]string {
		return map[string]string{
			"DB_HOST":     "db.internal",
			"DB_PORT":     "5432",
			"DB_USER":     "treepath",
			"DB_PASSWORD": "Str0ng!Passw0rd",
			"DB_NAME":     "treepath",
			"DB_SSLMODE":  "require",
		}
	}

	tests := []struct {
		name    string
		modify  func(map[string]string)
		env     Environment
		wantErr bool
	}{
		{name: "complete", modify: func(map[string]string) {}, env: Production},
		{name: "non postgres driver", modify: func(s map[string]string) { clear(s); s["DB_DRIVER"] = DriverSQLite }, env: Production},
		{name: "dsn only", modify: func(s map[string]string) { clear(s); s["DB_DSN"] = "postgres://db/tree" }, env: Production},
		{name: "missing key", modify: func(s map[string]string) { delete(s, "DB_USER") }, env: Development, wantErr: true},
		{name: "bad port", modify: func(s map[string]string) { s["DB_PORT"] = "x" }, env: Development, wantErr: true},
		{name: "bad ssl", modify: func(s map[string]string) { s["DB_SSLMODE"] = "maybe" }, env: Development, wantErr: true},
		{name: "localhost in production", modify: func(s map[string]string) { s["DB_HOST"] = "LOCALHOST" }, env: Production, wantErr: true},
		{name: "ssl disabled in production", modify: func(s map[string]string) { s["DB_SSLMODE"] = "disable" }, env: Production, wantErr: true},
		{name: "weak password in production", modify: func(s map[string]string) { s["DB_PASSWORD"] = "password" }, env: Production, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secrets := full()
			tt.modify(secrets)
			err := validateSecretSchema(secrets, tt.env)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

type fakeSecretsManager struct {
	secret *string
	err    error
	calls  int
}

func (f *fakeSecretsManager) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{Name: params.SecretId, SecretString: f.secret}, nil
}

func TestAWSSecretsProvider(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("TREEPATH_FALLBACK", "env-value")
	ctx := context.Background()

	client := &fakeSecretsManager{secret: aws.String(`{"DB_DRIVER":"sqlite","SQLITE_PATH":"/data/tree.db","CACHE_TTL":"1m","DEBUG":"true","PORT":"9000"}`)}
	p := NewAWSSecretsProviderWithClient(client, "treepath/config")

	value, err := p.GetString(ctx, "SQLITE_PATH")
	require.NoError(t, err)
	assert.Equal(t, "/data/tree.db", value)

	port, err := p.GetInt(ctx, "PORT")
	require.NoError(t, err)
	assert.Equal(t, 9000, port)

	debug, err := p.GetBool(ctx, "DEBUG")
	require.NoError(t, err)
	assert.True(t, debug)

	value, err = p.GetSecret(ctx, "TREEPATH_FALLBACK")
	require.NoError(t, err)
	assert.Equal(t, "env-value", value)

	_, err = p.GetString(ctx, "NOT_ANYWHERE")
	assert.Error(t, err)

	assert.Equal(t, 1, client.calls, "the secret is fetched once within its TTL")

	p.ttl = 0
	_, err = p.GetString(ctx, "SQLITE_PATH")
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)
}

func TestAWSSecretsProviderErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("client error", func(t *testing.T) {
		p := NewAWSSecretsProviderWithClient(&fakeSecretsManager{err: errors.New("denied")}, "s")
		_, err := p.GetString(ctx, "KEY")
		assert.ErrorContains(t, err, "denied")
	})

	t.Run("binary secret", func(t *testing.T) {
		p := NewAWSSecretsProviderWithClient(&fakeSecretsManager{}, "s")
		_, err := p.GetString(ctx, "KEY")
		assert.ErrorContains(t, err, "no string value")
	})

	t.Run("invalid json", func(t *testing.T) {
		p := NewAWSSecretsProviderWithClient(&fakeSecretsManager{secret: aws.String("{")}, "s")
		_, err := p.GetString(ctx, "KEY")
		assert.ErrorContains(t, err, "parse secret JSON")
	})

	t.Run("invalid schema", func(t *testing.T) {
		p := NewAWSSecretsProviderWithClient(&fakeSecretsManager{secret: aws.String(`{"DB_HOST":"db"}`)}, "s")
		_, err := p.GetString(ctx, "DB_HOST")
		assert.ErrorContains(t, err, "invalid secret schema")
	})
}

func TestNewProviderWithoutSecret(t *testing.T) {
	t.Setenv("AWS_SECRET_NAME", "")
	p, err := NewProvider(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &EnvProvider{}, p)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("TREEPATH_DOTENV_A=from-file\nTREEPATH_DOTENV_B=from-file\n"), 0o600))

	t.Setenv("TREEPATH_DOTENV_B", "from-env")
	// t.Setenv restores B; A is created by the load and must be removed
	t.Cleanup(func() { os.Unsetenv("TREEPATH_DOTENV_A") })

	require.NoError(t, LoadDotEnv(file))
	assert.Equal(t, "from-file", os.Getenv("TREEPATH_DOTENV_A"))
	assert.Equal(t, "from-env", os.Getenv("TREEPATH_DOTENV_B"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}

func TestGetAppConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults", func(t *testing.T) {
		cfg, err := GetAppConfig(ctx, staticProvider(map[string]string{"DB_DRIVER": DriverMemory}))
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.HTTPAddr)
		assert.Equal(t, CacheMemory, cfg.CacheKind)
		assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
		assert.Equal(t, "localhost:6379", cfg.RedisAddr)
		assert.Equal(t, "TreeCache", cfg.CacheTable)
		assert.Equal(t, DriverMemory, cfg.Database.Driver)
	})

	t.Run("overrides", func(t *testing.T) {
		cfg, err := GetAppConfig(ctx, staticProvider(map[string]string{
			"DB_DRIVER":     DriverMemory,
			"HTTP_ADDR":     ":9090",
			"DEBUG":         "true",
			"CACHE_BACKEND": "Redis",
			"CACHE_TTL":     "30s",
			"REDIS_HOST":    "cache",
			"CACHE_TABLE":   "Trees",
		}))
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.HTTPAddr)
		assert.True(t, cfg.Debug)
		assert.Equal(t, CacheRedis, cfg.CacheKind)
		assert.Equal(t, 30*time.Second, cfg.CacheTTL)
		assert.Equal(t, "cache:6379", cfg.RedisAddr)
		assert.Equal(t, "Trees", cfg.CacheTable)
	})

	t.Run("bad ttl", func(t *testing.T) {
		_, err := GetAppConfig(ctx, staticProvider(map[string]string{"DB_DRIVER": DriverMemory, "CACHE_TTL": "soon"}))
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "CacheTTL", verr.Field)
	})

	t.Run("unknown cache", func(t *testing.T) {
		_, err := GetAppConfig(ctx, staticProvider(map[string]string{"DB_DRIVER": DriverMemory, "CACHE_BACKEND": "memcached"}))
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "CacheKind", verr.Field)
	})
}

func TestAppConfigValidate(t *testing.T) {
	base := func() *AppConfig {
		return &AppConfig{
			HTTPAddr:   ":8080",
			CacheKind:  CacheDynamoDB,
			CacheTTL:   time.Minute,
			CacheTable: "TreeCache",
			Database:   &DatabaseConfig{Driver: DriverSQLite, SQLitePath: "tree.db"},
		}
	}

	assert.NoError(t, base().Validate(Production))

	cfg := base()
	cfg.Debug = true
	assert.Error(t, cfg.Validate(Production))
	assert.NoError(t, cfg.Validate(Development))

	cfg = base()
	cfg.CacheTTL = 0
	assert.Error(t, cfg.Validate(Development))

	cfg = base()
	cfg.CacheTable = ""
	assert.Error(t, cfg.Validate(Development))

	cfg = base()
	cfg.Database = nil
	assert.Error(t, cfg.Validate(Development))

	cfg = base()
	cfg.HTTPAddr = ""
	assert.Error(t, cfg.Validate(Development))
}
