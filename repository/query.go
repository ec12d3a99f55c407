package repository

import (
	"context"

	"github.com/ammiranda/treepath/models"
)

// Query is a lazy, immutable query handle over a store. Nothing is read
// until List, Count or First is called.
type Query[E models.Entity[ID], ID comparable] struct {
	store  Store[E, ID]
	filter Filter[ID]
}

func newQuery[E models.Entity[ID], ID comparable](store Store[E, ID], conds ...Condition[ID]) *Query[E, ID] {
	return &Query[E, ID]{store: store, filter: Filter[ID]{}.And(conds...)}
}

// Where returns a narrowed copy of the query
func (q *Query[E, ID]) Where(conds ...Condition[ID]) *Query[E, ID] {
	return &Query[E, ID]{store: q.store, filter: q.filter.And(conds...)}
}

// Filter returns the conditions the query will send to the store
func (q *Query[E, ID]) Filter() Filter[ID] {
	return q.filter
}

// List realises the query
func (q *Query[E, ID]) List(ctx context.Context) ([]E, error) {
	if q.filter.Empty() {
		return []E{}, nil
	}
	return q.store.Find(ctx, q.filter)
}

// Count returns the number of matching entities
func (q *Query[E, ID]) Count(ctx context.Context) (int, error) {
	entities, err := q.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(entities), nil
}

// First returns any one matching entity. ok is false when nothing matches.
func (q *Query[E, ID]) First(ctx context.Context) (entity E, ok bool, err error) {
	entities, err := q.List(ctx)
	if err != nil || len(entities) == 0 {
		return entity, false, err
	}
	return entities[0], true, nil
}
