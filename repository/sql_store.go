package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ammiranda/treepath/migrations"
	"github.com/ammiranda/treepath/models"
)

// Dialect captures the SQL differences between the supported databases
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

func (d Dialect) placeholder(n int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (d Dialect) migrationName() string {
	if d == DialectPostgres {
		return migrations.Postgres
	}
	return migrations.SQLite
}

const categoryColumns = "id, label, path, level, parent_id, created_at, updated_at"

// SQLStore implements Store for categories on top of database/sql. Staged
// changes are written inside a single transaction on Commit.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time

	mu      sync.Mutex
	added   []*models.Category
	updated []*models.Category
	removed []*models.Category
}

var _ Store[*models.Category, int64] = (*SQLStore)(nil)

// NewSQLStore wraps an open database. The schema must already exist; use
// Migrate to apply it.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: dialect,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// DB returns the underlying connection pool
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Migrate applies pending schema migrations
func (s *SQLStore) Migrate() error {
	return migrations.Up(s.db, s.dialect.migrationName())
}

// Rollback reverts the most recent schema migration
func (s *SQLStore) Rollback() error {
	return migrations.Down(s.db, s.dialect.migrationName())
}

// SchemaVersion reports the applied migration version
func (s *SQLStore) SchemaVersion() (uint, bool, error) {
	return migrations.Version(s.db, s.dialect.migrationName())
}

// Find retrieves every category matching the filter, ordered by id
func (s *SQLStore) Find(ctx context.Context, filter Filter[int64]) ([]*models.Category, error) {
	where, args := s.whereClause(filter)
	query := "SELECT " + categoryColumns + " FROM categories"
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying categories: %w", err)
	}
	defer rows.Close()

	categories := make([]*models.Category, 0)
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning category: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

// Get retrieves a category by ID
func (s *SQLStore) Get(ctx context.Context, id int64) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE id = "+s.dialect.placeholder(1),
		id,
	)
	category, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNodeNotFound
		}
		return nil, fmt.Errorf("error getting category: %w", err)
	}
	return category, nil
}

// Add stages a category for insertion
func (s *SQLStore) Add(category *models.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.added = append(s.added, category)
}

// Update stages the tree and label columns of a category
func (s *SQLStore) Update(category *models.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, staged := range s.updated {
		if staged == category {
			return
		}
	}
	s.updated = append(s.updated, category)
}

// Remove stages deletion of a category
func (s *SQLStore) Remove(category *models.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, category)
}

// Commit writes inserts, then updates, then deletes in one transaction
func (s *SQLStore) Commit(ctx context.Context) error {
	s.mu.Lock()
	added, updated, removed := s.added, s.updated, s.removed
	s.added, s.updated, s.removed = nil, nil, nil
	s.mu.Unlock()

	if len(added) == 0 && len(updated) == 0 && len(removed) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	ids := make([]int64, len(added))
	for i, category := range added {
		id, err := s.insert(ctx, tx, category, now)
		if err != nil {
			return err
		}
		ids[i] = id
	}

	for _, category := range updated {
		if err := s.update(ctx, tx, category, now); err != nil {
			return err
		}
	}

	for _, category := range removed {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM categories WHERE id = "+s.dialect.placeholder(1),
			category.ID,
		); err != nil {
			return fmt.Errorf("error deleting category %d: %w", category.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	// Only expose generated values once they are durable
	for i, category := range added {
		category.ID = ids[i]
		category.CreatedAt = now
		category.UpdatedAt = now
	}
	for _, category := range updated {
		category.UpdatedAt = now
	}
	return nil
}

func (s *SQLStore) insert(ctx context.Context, tx *sql.Tx, c *models.Category, now time.Time) (int64, error) {
	if c.Label == "" {
		return 0, fmt.Errorf("error creating category: %w", ErrInvalidArgument)
	}

	columns := "label, path, level, parent_id, created_at, updated_at"
	args := []any{c.Label, c.Path, c.Level, nullableID(c.ParentID), now, now}
	if c.ID != 0 {
		columns = "id, " + columns
		args = append([]any{c.ID}, args...)
	}
	query := fmt.Sprintf("INSERT INTO categories (%s) VALUES (%s)", columns, s.placeholders(len(args)))

	if s.dialect == DialectPostgres {
		var id int64
		if err := tx.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("error creating category: %w", err)
		}
		return id, nil
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("error creating category: %w", err)
	}
	if c.ID != 0 {
		return c.ID, nil
	}
	return result.LastInsertId()
}

func (s *SQLStore) update(ctx context.Context, tx *sql.Tx, c *models.Category, now time.Time) error {
	p := s.dialect.placeholder
	result, err := tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE categories SET label = %s, path = %s, level = %s, parent_id = %s, updated_at = %s WHERE id = %s",
			p(1), p(2), p(3), p(4), p(5), p(6)),
		c.Label, c.Path, c.Level, nullableID(c.ParentID), now, c.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating category %d: %w", c.ID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("error updating category %d: %w", c.ID, ErrNodeNotFound)
	}
	return nil
}

// whereClause translates a filter into SQL. Placeholders are numbered in
// argument order.
func (s *SQLStore) whereClause(filter Filter[int64]) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	next := func(v any) string {
		args = append(args, v)
		return s.dialect.placeholder(len(args))
	}

	for _, c := range filter.Conditions {
		switch c.Op {
		case OpIDIn:
			if len(c.IDs) == 0 {
				clauses = append(clauses, "1 = 0")
				continue
			}
			marks := make([]string, len(c.IDs))
			for i, id := range c.IDs {
				marks[i] = next(id)
			}
			clauses = append(clauses, "id IN ("+strings.Join(marks, ", ")+")")
		case OpIDNot:
			clauses = append(clauses, "id <> "+next(c.IDs[0]))
		case OpPathEquals:
			clauses = append(clauses, "path = "+next(c.Path))
		case OpPathPrefix:
			clauses = append(clauses, "path LIKE "+next(escapeLike(c.Path)+"%")+` ESCAPE '\'`)
		case OpParentIsNull:
			clauses = append(clauses, "parent_id IS NULL")
		case OpParentEquals:
			clauses = append(clauses, "parent_id = "+next(c.IDs[0]))
		default:
			clauses = append(clauses, "1 = 0")
		}
	}
	return strings.Join(clauses, " AND "), args
}

func (s *SQLStore) placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = s.dialect.placeholder(i + 1)
	}
	return strings.Join(marks, ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (*models.Category, error) {
	var (
		c        models.Category
		parentID sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.Label, &c.Path, &c.Level, &parentID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if parentID.Valid {
		c.ParentID = &parentID.Int64
	}
	return &c, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
