package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is a SQLStore backed by a SQLite database file
type SQLiteStore struct {
	*SQLStore
	dbPath string
}

var _ Lifecycle = (*SQLiteStore)(nil)

// NewSQLiteStore creates a SQLite store for the given database file. Call
// Initialize before use.
func NewSQLiteStore(dbPath string) *SQLiteStore {
	return &SQLiteStore{dbPath: dbPath}
}

// Initialize opens the database and applies migrations
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	db, err := sql.Open("sqlite3", s.dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}

	// A single connection serialises writers, which SQLite needs anyway
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("error pinging database: %w", err)
	}

	store := NewSQLStore(db, DialectSQLite)
	if err := store.Migrate(); err != nil {
		db.Close()
		return err
	}

	s.SQLStore = store
	return nil
}

// Cleanup closes the database connection
func (s *SQLiteStore) Cleanup(ctx context.Context) error {
	if s.SQLStore != nil && s.db != nil {
		return s.db.Close()
	}
	return nil
}
