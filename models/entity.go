package models

// Entity is the capability set a record needs to take part in a
// materialized-path tree. Path, level and parent id are managed by the tree
// repository; editing them by hand leaves the tree inconsistent.
type Entity[ID comparable] interface {
	// GetID returns the primary key. The zero value means "not persisted".
	GetID() ID
	// GetPath returns the delimited ancestor ids, root first, "" for a root.
	GetPath() string
	SetPath(path string)
	// GetLevel returns the number of ancestors, 0 for a root.
	GetLevel() int
	SetLevel(level int)
	// GetParentID returns the direct parent id, nil for a root.
	GetParentID() *ID
	SetParentID(id *ID)
}

// Index describes a secondary index the store must maintain
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// Mapping is the logical schema a store must provide for a tree entity
type Mapping struct {
	Table            string
	PrimaryKey       string
	RequiredColumns  []string
	NullableColumns  []string
	SecondaryIndexes []Index
}

// CategoryMapping is realised by the SQL migrations
var CategoryMapping = Mapping{
	Table:           "categories",
	PrimaryKey:      "id",
	RequiredColumns: []string{"label", "path", "level"},
	NullableColumns: []string{"parent_id"},
	SecondaryIndexes: []Index{
		{Name: "idx_categories_path", Columns: []string{"path"}},
		{Name: "idx_categories_parent_id", Columns: []string{"parent_id"}},
	},
}
