package repository

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ammiranda/treepath/ident"
	"github.com/ammiranda/treepath/models"
	"github.com/ammiranda/treepath/pathcodec"
)

type categoryStore = Store[*models.Category, int64]
type categoryTree = TreeRepository[*models.Category, int64]

// storeFactories lists every store the tree tests run against
var storeFactories = map[string]func(t *testing.T) categoryStore{
	"memory": func(t *testing.T) categoryStore {
		return NewCategoryMemoryStore()
	},
	"sqlite": func(t *testing.T) categoryStore {
		store := NewSQLiteStore(filepath.Join(t.TempDir(), "tree.db"))
		require.NoError(t, store.Initialize(context.Background()))
		t.Cleanup(func() {
			store.Cleanup(context.Background())
		})
		return store
	},
}

// forEachStore runs fn once per store implementation
func forEachStore(t *testing.T, fn func(t *testing.T, store categoryStore)) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

// createTestCategoryTree stores categories 1..10 and arranges them as
//
//	        ┌───────1───────┐
//	        │       │       │
//	    ┌───2───┐   3       4
//	    │       │           │
//	    5       6           8
//	    │       │
//	    9       10
//	    │
//	    7
func createTestCategoryTree(t *testing.T, store categoryStore, opts ...Option) *categoryTree {
	t.Helper()
	ctx := context.Background()

	cats := make([]*models.Category, 10)
	for i := range cats {
		cats[i] = &models.Category{ID: int64(i + 1), Label: strconv.Itoa(i + 1)}
		store.Add(cats[i])
	}
	require.NoError(t, store.Commit(ctx))

	repo := NewTreeRepository[*models.Category, int64](store, ident.Int64Serializer{}, opts...)

	edges := [][2]int{
		{2, 1}, {3, 1}, {4, 1},
		{5, 2}, {6, 2}, {8, 4},
		{9, 5}, {10, 6}, {7, 9},
	}
	for _, edge := range edges {
		child, parent := cats[edge[0]-1], cats[edge[1]-1]
		_, err := repo.SetParent(ctx, child, parent)
		require.NoError(t, err)
	}
	return repo
}

// mustGet loads a category by id
func mustGet(t *testing.T, repo *categoryTree, id int64) *models.Category {
	t.Helper()
	category, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return category
}

// idsOf returns the ids of the entities as a set-comparable slice
func idsOf[E models.Entity[ID], ID comparable](entities []E) []ID {
	ids := make([]ID, len(entities))
	for i, e := range entities {
		ids[i] = e.GetID()
	}
	return ids
}

// requireTreeInvariants checks that every stored node's path, level and
// parent id all describe the same tree.
func requireTreeInvariants(t *testing.T, repo *categoryTree) {
	t.Helper()
	ctx := context.Background()

	all, err := repo.QueryAll().List(ctx)
	require.NoError(t, err)

	byID := make(map[int64]*models.Category, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}

	codec := repo.Codec()
	for _, c := range all {
		ancestors, err := codec.Parse(c.Path)
		require.NoError(t, err)

		require.Equal(t, len(ancestors), c.Level, "level of %d", c.ID)
		require.Equal(t, pathcodec.Depth(c.Path), c.Level, "depth of %d", c.ID)

		if c.ParentID == nil {
			require.Empty(t, c.Path, "root %d must have an empty path", c.ID)
			continue
		}
		require.NotEmpty(t, ancestors, "node %d has a parent but no path", c.ID)
		require.Equal(t, *c.ParentID, ancestors[len(ancestors)-1], "parent of %d", c.ID)

		parent, ok := byID[*c.ParentID]
		require.True(t, ok, "parent %d of %d is missing", *c.ParentID, c.ID)
		require.Equal(t, codec.Child(parent.Path, parent.ID), c.Path, "path of %d", c.ID)
	}
}

// uuidNode is a minimal entity keyed by UUID
type uuidNode struct {
	id       uuid.UUID
	path     string
	level    int
	parentID *uuid.UUID
}

func newUUIDNode() *uuidNode {
	return &uuidNode{id: uuid.New()}
}

func (n *uuidNode) GetID() uuid.UUID {
	return n.id
}

func (n *uuidNode) GetPath() string {
	return n.path
}

func (n *uuidNode) SetPath(path string) {
	n.path = path
}

func (n *uuidNode) GetLevel() int {
	return n.level
}

func (n *uuidNode) SetLevel(level int) {
	n.level = level
}

func (n *uuidNode) GetParentID() *uuid.UUID {
	return n.parentID
}

func (n *uuidNode) SetParentID(id *uuid.UUID) {
	n.parentID = id
}
