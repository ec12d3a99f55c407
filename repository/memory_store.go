package repository

import (
	"context"
	"sync"

	"github.com/ammiranda/treepath/ident"
	"github.com/ammiranda/treepath/models"
)

// MemoryStore implements Store in process memory. It is an identity map:
// Find and Get return the very instances it holds, so field changes made by
// the tree repository are visible to other holders of the same instance
// before Commit. The tree columns (path, level, parent) of every committed
// entity are kept aside; when Commit fails, entities staged with Update are
// put back to those values.
type MemoryStore[E models.Entity[ID], ID comparable] struct {
	mu        sync.RWMutex
	order     []ID
	nodes     map[ID]E
	committed map[ID]treeState[ID]
	assign    func(E)
	added     []E
	updated   map[ID]E
	removed   []E
}

// treeState is the committed value of an entity's tree columns
type treeState[ID comparable] struct {
	path     string
	level    int
	parentID *ID
}

func captureState[E models.Entity[ID], ID comparable](entity E) treeState[ID] {
	state := treeState[ID]{path: entity.GetPath(), level: entity.GetLevel()}
	if parent := entity.GetParentID(); parent != nil {
		id := *parent
		state.parentID = &id
	}
	return state
}

func restoreState[E models.Entity[ID], ID comparable](entity E, state treeState[ID]) {
	entity.SetPath(state.path)
	entity.SetLevel(state.level)
	if state.parentID == nil {
		entity.SetParentID(nil)
		return
	}
	id := *state.parentID
	entity.SetParentID(&id)
}

// MemoryOption configures a MemoryStore
type MemoryOption[E models.Entity[ID], ID comparable] func(*MemoryStore[E, ID])

// WithIDAssigner sets the function that gives new entities an id when they
// are committed without one. It is called with the store locked.
func WithIDAssigner[E models.Entity[ID], ID comparable](assign func(E)) MemoryOption[E, ID] {
	return func(m *MemoryStore[E, ID]) {
		m.assign = assign
	}
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore[E models.Entity[ID], ID comparable](opts ...MemoryOption[E, ID]) *MemoryStore[E, ID] {
	m := &MemoryStore[E, ID]{
		nodes:     make(map[ID]E),
		committed: make(map[ID]treeState[ID]),
		updated:   make(map[ID]E),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewCategoryMemoryStore creates an in-memory category store that gives
// new categories the next id above the largest one stored.
func NewCategoryMemoryStore() *MemoryStore[*models.Category, int64] {
	m := NewMemoryStore[*models.Category, int64]()
	m.assign = func(c *models.Category) {
		var highest int64
		for id := range m.nodes {
			if id > highest {
				highest = id
			}
		}
		c.ID = highest + 1
	}
	return m
}

// Initialize performs any necessary setup
func (m *MemoryStore[E, ID]) Initialize(ctx context.Context) error {
	return nil
}

// Cleanup drops all entities and anything staged
func (m *MemoryStore[E, ID]) Cleanup(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = nil
	m.nodes = make(map[ID]E)
	m.committed = make(map[ID]treeState[ID])
	m.added = nil
	m.updated = make(map[ID]E)
	m.removed = nil
	return nil
}

// Find returns matching entities in insertion order
func (m *MemoryStore[E, ID]) Find(ctx context.Context, filter Filter[ID]) ([]E, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]E, 0)
	for _, id := range m.order {
		node := m.nodes[id]
		if filter.Matches(node) {
			result = append(result, node)
		}
	}
	return result, nil
}

// Get retrieves an entity by id
func (m *MemoryStore[E, ID]) Get(ctx context.Context, id ID) (E, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, ok := m.nodes[id]
	if !ok {
		var zero E
		return zero, ErrNodeNotFound
	}
	return node, nil
}

// Add stages a new entity
func (m *MemoryStore[E, ID]) Add(entity E) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.added = append(m.added, entity)
}

// Update stages an entity whose fields were changed in place
func (m *MemoryStore[E, ID]) Update(entity E) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated[entity.GetID()] = entity
}

// Remove stages deletion of an entity
func (m *MemoryStore[E, ID]) Remove(entity E) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, entity)
}

// Commit applies staged inserts, updates and deletes. On failure the
// updated entities get their committed tree columns back.
func (m *MemoryStore[E, ID]) Commit(ctx context.Context) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() {
		if err != nil {
			m.rollback()
		}
		m.added = nil
		m.updated = make(map[ID]E)
		m.removed = nil
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	if m.assign == nil {
		for _, entity := range m.added {
			if ident.IsUnset(entity.GetID()) {
				return ErrNotPersisted
			}
		}
	}

	// assign runs with the lock held and sees earlier inserts of this commit
	for _, entity := range m.added {
		if ident.IsUnset(entity.GetID()) {
			m.assign(entity)
		}
		id := entity.GetID()
		if _, exists := m.nodes[id]; !exists {
			m.order = append(m.order, id)
		}
		m.nodes[id] = entity
		m.committed[id] = captureState[E, ID](entity)
	}

	for id, entity := range m.updated {
		if _, ok := m.nodes[id]; ok {
			m.committed[id] = captureState[E, ID](entity)
		}
	}

	for _, entity := range m.removed {
		id := entity.GetID()
		if _, ok := m.nodes[id]; !ok {
			continue
		}
		delete(m.nodes, id)
		delete(m.committed, id)
		for i, existing := range m.order {
			if existing == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

// rollback restores the committed tree columns of every updated entity.
// Callers hold the lock.
func (m *MemoryStore[E, ID]) rollback() {
	for id, entity := range m.updated {
		if state, ok := m.committed[id]; ok {
			restoreState(entity, state)
		}
	}
}

// Len returns the number of committed entities
func (m *MemoryStore[E, ID]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}
