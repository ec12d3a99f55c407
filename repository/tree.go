package repository

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ammiranda/treepath/ident"
	"github.com/ammiranda/treepath/models"
	"github.com/ammiranda/treepath/pathcodec"
)

// Mutation names reported to a Recorder
const (
	OpInsert    = "insert"
	OpSetParent = "set_parent"
	OpDetach    = "detach"
	OpRemove    = "remove"
)

// Recorder observes completed tree mutations
type Recorder interface {
	ObserveMutation(op string, rewritten int, elapsed time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveMutation(string, int, time.Duration, error) {}

type options struct {
	logger     *zap.Logger
	recorder   Recorder
	cycleCheck bool
}

// Option configures a TreeRepository
type Option func(*options)

// WithLogger sets the logger used for mutation tracing
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRecorder sets the mutation metrics recorder
func WithRecorder(recorder Recorder) Option {
	return func(o *options) {
		if recorder != nil {
			o.recorder = recorder
		}
	}
}

// WithCycleCheck toggles the ancestry check in SetParent. It is on by
// default; turning it off leaves cycle prevention to the caller.
func WithCycleCheck(enabled bool) Option {
	return func(o *options) {
		o.cycleCheck = enabled
	}
}

// MoveResult describes the effect of a SetParent call
type MoveResult struct {
	// Rewritten is the number of descendants whose path changed.
	Rewritten int
}

// TreeRepository maintains materialized paths for entities held in a Store.
// It keeps no entity state of its own: every operation works from the
// entity handed in plus fresh store reads.
type TreeRepository[E models.Entity[ID], ID comparable] struct {
	store Store[E, ID]
	codec pathcodec.Codec[ID]
	opts  options
}

// NewTreeRepository creates a tree repository over store
func NewTreeRepository[E models.Entity[ID], ID comparable](store Store[E, ID], serializer ident.Serializer[ID], opts ...Option) *TreeRepository[E, ID] {
	o := options{
		logger:     zap.NewNop(),
		recorder:   nopRecorder{},
		cycleCheck: true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &TreeRepository[E, ID]{
		store: store,
		codec: pathcodec.New(serializer),
		opts:  o,
	}
}

// Codec returns the path codec used by the repository
func (r *TreeRepository[E, ID]) Codec() pathcodec.Codec[ID] {
	return r.codec
}

// QueryRoots returns all entities without a parent
func (r *TreeRepository[E, ID]) QueryRoots() *Query[E, ID] {
	return newQuery(r.store, ParentIsNull[ID]())
}

// QueryAll returns an unrestricted query for caller-composed filters
func (r *TreeRepository[E, ID]) QueryAll() *Query[E, ID] {
	return newQuery(r.store)
}

// GetByID looks an entity up by primary key
func (r *TreeRepository[E, ID]) GetByID(ctx context.Context, id ID) (E, error) {
	return r.store.Get(ctx, id)
}

// QueryAncestors returns the ancestors of entity in no particular order.
// Use GetPathFromRoot when the order matters.
func (r *TreeRepository[E, ID]) QueryAncestors(entity E) (*Query[E, ID], error) {
	if err := assertStored[E, ID](entity); err != nil {
		return nil, err
	}
	ancestors, err := r.codec.Parse(entity.GetPath())
	if err != nil {
		return nil, err
	}
	return newQuery(r.store, IDIn(ancestors...)), nil
}

// QueryDescendants returns every node below entity
func (r *TreeRepository[E, ID]) QueryDescendants(entity E) (*Query[E, ID], error) {
	if err := assertStored[E, ID](entity); err != nil {
		return nil, err
	}
	prefix := r.codec.Child(entity.GetPath(), entity.GetID())
	return newQuery(r.store, PathPrefix[ID](prefix)), nil
}

// QueryChildren returns the direct children of entity
func (r *TreeRepository[E, ID]) QueryChildren(entity E) (*Query[E, ID], error) {
	if err := assertStored[E, ID](entity); err != nil {
		return nil, err
	}
	childPath := r.codec.Child(entity.GetPath(), entity.GetID())
	return newQuery(r.store, PathEquals[ID](childPath)), nil
}

// QuerySiblings returns the nodes sharing entity's parent, excluding entity
func (r *TreeRepository[E, ID]) QuerySiblings(entity E) (*Query[E, ID], error) {
	if err := assertStored[E, ID](entity); err != nil {
		return nil, err
	}
	return newQuery(r.store, PathEquals[ID](entity.GetPath()), IDNot(entity.GetID())), nil
}

// GetParent returns the parent of entity. ok is false for a root.
func (r *TreeRepository[E, ID]) GetParent(ctx context.Context, entity E) (parent E, ok bool, err error) {
	if err := assertStored[E, ID](entity); err != nil {
		return parent, false, err
	}
	parentID := entity.GetParentID()
	if parentID == nil {
		return parent, false, nil
	}
	parent, err = r.store.Get(ctx, *parentID)
	if err != nil {
		return parent, false, err
	}
	return parent, true, nil
}

// GetPathFromRoot returns the ancestors of entity ordered from the root
// down to the direct parent. The store gives no ordering guarantee, so the
// ancestors are loaded and sorted by their position in the path.
func (r *TreeRepository[E, ID]) GetPathFromRoot(ctx context.Context, entity E) ([]E, error) {
	if err := assertStored[E, ID](entity); err != nil {
		return nil, err
	}
	path, err := r.codec.Parse(entity.GetPath())
	if err != nil {
		return nil, err
	}
	ancestors, err := newQuery(r.store, IDIn(path...)).List(ctx)
	if err != nil {
		return nil, err
	}

	position := make(map[ID]int, len(path))
	for i, id := range path {
		position[id] = i
	}
	sort.Slice(ancestors, func(i, j int) bool {
		return position[ancestors[i].GetID()] < position[ancestors[j].GetID()]
	})
	return ancestors, nil
}

// Insert places a new entity below parent (or as a root when parent is nil)
// and commits it. The store assigns the id if the entity has none.
func (r *TreeRepository[E, ID]) Insert(ctx context.Context, entity E, parent E) (err error) {
	start := time.Now()
	defer func() {
		r.opts.recorder.ObserveMutation(OpInsert, 0, time.Since(start), err)
	}()

	if isNil(entity) {
		return fmt.Errorf("entity: %w", ErrInvalidArgument)
	}
	ancestors, parentID, err := r.ancestorsOf(parent)
	if err != nil {
		return err
	}

	entity.SetPath(r.codec.Format(ancestors))
	entity.SetLevel(len(ancestors))
	entity.SetParentID(parentID)

	r.store.Add(entity)
	if err := r.store.Commit(ctx); err != nil {
		r.opts.logger.Warn("insert commit failed", zap.Error(err))
		return fmt.Errorf("commit insert: %w", err)
	}

	r.opts.logger.Debug("node inserted",
		zap.Any("id", entity.GetID()),
		zap.String("path", entity.GetPath()),
	)
	return nil
}

// SetParent moves entity, with its whole subtree, below newParent. A nil
// newParent makes entity a root. The entity and every rewritten descendant
// are committed together.
func (r *TreeRepository[E, ID]) SetParent(ctx context.Context, entity E, newParent E) (result MoveResult, err error) {
	start := time.Now()
	defer func() {
		r.opts.recorder.ObserveMutation(OpSetParent, result.Rewritten, time.Since(start), err)
	}()

	if err := assertStored[E, ID](entity); err != nil {
		return result, fmt.Errorf("entity: %w", err)
	}
	newAncestors, newParentID, err := r.ancestorsOf(newParent)
	if err != nil {
		return result, err
	}
	if r.opts.cycleCheck {
		for _, id := range newAncestors {
			if id == entity.GetID() {
				return result, ErrCycle
			}
		}
	}

	oldPath := entity.GetPath()
	newPath := r.codec.Format(newAncestors)

	descendantsQuery, err := r.QueryDescendants(entity)
	if err != nil {
		return result, err
	}
	descendants, err := descendantsQuery.List(ctx)
	if err != nil {
		return result, fmt.Errorf("load descendants: %w", err)
	}

	// Every descendant path is oldPrefix + suffix; only the prefix changes.
	oldPrefix := r.codec.Child(oldPath, entity.GetID())
	newPrefix := r.codec.Child(newPath, entity.GetID())
	rewrites := make([]string, len(descendants))
	for i, d := range descendants {
		path := d.GetPath()
		if !strings.HasPrefix(path, oldPrefix) {
			return result, fmt.Errorf("%w: descendant path %q lacks prefix %q", ErrInconsistentPath, path, oldPrefix)
		}
		rewrites[i] = newPrefix + path[len(oldPrefix):]
	}

	for i, d := range descendants {
		if d.GetPath() == rewrites[i] {
			continue
		}
		d.SetPath(rewrites[i])
		d.SetLevel(pathcodec.Depth(rewrites[i]))
		r.store.Update(d)
		result.Rewritten++
	}

	entity.SetLevel(len(newAncestors))
	entity.SetPath(newPath)
	entity.SetParentID(newParentID)
	r.store.Update(entity)

	if err := r.store.Commit(ctx); err != nil {
		r.opts.logger.Warn("set parent commit failed",
			zap.Any("id", entity.GetID()),
			zap.Error(err),
		)
		return MoveResult{}, fmt.Errorf("commit set parent: %w", err)
	}

	r.opts.logger.Debug("node moved",
		zap.Any("id", entity.GetID()),
		zap.String("old_path", oldPath),
		zap.String("new_path", newPath),
		zap.Int("rewritten", result.Rewritten),
	)
	return result, nil
}

// DetachNode turns entity into a childless root. Its direct children move
// up to entity's former parent, so the rest of its subtree stays attached
// to the tree.
func (r *TreeRepository[E, ID]) DetachNode(ctx context.Context, entity E) (err error) {
	start := time.Now()
	rewritten := 0
	defer func() {
		r.opts.recorder.ObserveMutation(OpDetach, rewritten, time.Since(start), err)
	}()

	if err := assertStored[E, ID](entity); err != nil {
		return fmt.Errorf("entity: %w", err)
	}

	// Both must be captured before entity's own path changes.
	childrenQuery, err := r.QueryChildren(entity)
	if err != nil {
		return err
	}
	children, err := childrenQuery.List(ctx)
	if err != nil {
		return fmt.Errorf("load children: %w", err)
	}
	formerParent, _, err := r.GetParent(ctx, entity)
	if err != nil {
		return fmt.Errorf("load parent: %w", err)
	}

	for _, child := range children {
		moved, err := r.SetParent(ctx, child, formerParent)
		if err != nil {
			return fmt.Errorf("reparent child %v: %w", child.GetID(), err)
		}
		rewritten += moved.Rewritten + 1
	}

	var none E
	moved, err := r.SetParent(ctx, entity, none)
	if err != nil {
		return err
	}
	rewritten += moved.Rewritten
	return nil
}

// RemoveNode detaches entity and then deletes it
func (r *TreeRepository[E, ID]) RemoveNode(ctx context.Context, entity E) (err error) {
	start := time.Now()
	defer func() {
		r.opts.recorder.ObserveMutation(OpRemove, 0, time.Since(start), err)
	}()

	if err := assertStored[E, ID](entity); err != nil {
		return fmt.Errorf("entity: %w", err)
	}
	if err := r.DetachNode(ctx, entity); err != nil {
		return err
	}

	r.store.Remove(entity)
	if err := r.store.Commit(ctx); err != nil {
		r.opts.logger.Warn("remove commit failed",
			zap.Any("id", entity.GetID()),
			zap.Error(err),
		)
		return fmt.Errorf("commit remove: %w", err)
	}

	r.opts.logger.Debug("node removed", zap.Any("id", entity.GetID()))
	return nil
}

// ancestorsOf returns the ancestor chain a child of parent would have, and
// the parent id to record. A nil parent yields an empty chain.
func (r *TreeRepository[E, ID]) ancestorsOf(parent E) ([]ID, *ID, error) {
	if isNil(parent) {
		return []ID{}, nil, nil
	}
	if ident.IsUnset(parent.GetID()) {
		return nil, nil, fmt.Errorf("parent: %w", ErrNotPersisted)
	}
	ancestors, err := r.codec.Parse(parent.GetPath())
	if err != nil {
		return nil, nil, err
	}
	parentID := parent.GetID()
	return append(ancestors, parentID), &parentID, nil
}

// assertStored rejects nil entities and entities that were never saved
func assertStored[E models.Entity[ID], ID comparable](entity E) error {
	if isNil(entity) {
		return ErrInvalidArgument
	}
	if ident.IsUnset(entity.GetID()) {
		return ErrNotPersisted
	}
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
