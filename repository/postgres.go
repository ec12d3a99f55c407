package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ammiranda/treepath/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

// PostgresStore is a SQLStore backed by PostgreSQL, reached through either
// lib/pq ("postgres") or pgx ("pgx")
type PostgresStore struct {
	*SQLStore
	driver string
	dsn    string
}

var _ Lifecycle = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgreSQL store from configuration
func NewPostgresStore(ctx context.Context, cfgProvider config.Provider) (*PostgresStore, error) {
	cfg, err := config.GetDatabaseConfig(ctx, cfgProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to get database config: %w", err)
	}
	if !cfg.IsPostgres() {
		return nil, fmt.Errorf("driver %q is not a PostgreSQL driver", cfg.Driver)
	}
	return NewPostgresStoreWithConfig(cfg), nil
}

// NewPostgresStoreWithConfig creates a PostgreSQL store from a ready config
func NewPostgresStoreWithConfig(cfg *config.DatabaseConfig) *PostgresStore {
	return &PostgresStore{driver: cfg.Driver, dsn: cfg.ConnString()}
}


// Initialize connects to PostgreSQL and applies migrations
func (s *PostgresStore) Initialize(ctx context.Context) error {
	db, err := sql.Open(s.driver, s.dsn)
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("error pinging database: %w", err)
	}

	store := NewSQLStore(db, DialectPostgres)
	if err := store.Migrate(); err != nil {
		db.Close()
		return err
	}

	s.SQLStore = store
	return nil
}

// Cleanup closes the database connection
func (s *PostgresStore) Cleanup(ctx context.Context) error {
	if s.SQLStore != nil && s.db != nil {
		return s.db.Close()
	}
	return nil
}
