package repository

import (
	"context"
	"errors"

	"github.com/ammiranda/treepath/models"
)

// Store is the persistent collection the tree repository works on. Reads go
// straight to committed state; Add, Update and Remove only stage changes
// until Commit persists all of them as one unit.
type Store[E models.Entity[ID], ID comparable] interface {
	// Find returns every entity matching all conditions of the filter.
	// The result is unordered.
	Find(ctx context.Context, filter Filter[ID]) ([]E, error)

	// Get returns the entity with the given primary key, or
	// ErrNodeNotFound if there is none.
	Get(ctx context.Context, id ID) (E, error)

	// Add stages a new entity for insertion.
	Add(entity E)

	// Update stages the current field values of an existing entity.
	Update(entity E)

	// Remove stages deletion of an entity.
	Remove(entity E)

	// Commit persists everything staged since the last commit. Either all
	// staged changes land or none do; the staging area is empty afterwards
	// in both cases.
	Commit(ctx context.Context) error
}

// Lifecycle is implemented by stores that hold external resources
type Lifecycle interface {
	// Initialize opens connections and applies the schema.
	Initialize(ctx context.Context) error
	// Cleanup releases everything Initialize acquired.
	Cleanup(ctx context.Context) error
}

// Common errors
var (
	// ErrNodeNotFound is returned when a requested node does not exist
	ErrNodeNotFound = errors.New("node not found")
	// ErrInvalidArgument is returned when a required entity argument is nil
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotPersisted is returned when an entity argument has an unset id
	ErrNotPersisted = errors.New("entity is not persisted, save it first")
	// ErrCycle is returned when a node would become its own ancestor
	ErrCycle = errors.New("new parent is the node itself or one of its descendants")
	// ErrInconsistentPath is returned when a stored path does not agree
	// with the tree structure it is supposed to encode
	ErrInconsistentPath = errors.New("inconsistent materialized path")
)
