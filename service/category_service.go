// Package service implements the category use-cases shared by the HTTP API,
// the Lambda entrypoint and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ammiranda/treepath/cache"
	"github.com/ammiranda/treepath/ident"
	"github.com/ammiranda/treepath/models"
	"github.com/ammiranda/treepath/repository"
)

// CategoryStore is the store the service runs on
type CategoryStore = repository.Store[*models.Category, int64]

// CacheObserver is told about cache traffic. *metrics.Recorder implements it.
type CacheObserver interface {
	CacheHit()
	CacheMiss()
	CacheInvalidated()
}

type nopObserver struct{}

func (nopObserver) CacheHit()         {}
func (nopObserver) CacheMiss()        {}
func (nopObserver) CacheInvalidated() {}

// Option configures a CategoryService
type Option func(*CategoryService)

// WithLogger sets the service logger. The tree repository logs through it too.
func WithLogger(logger *zap.Logger) Option {
	return func(s *CategoryService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCache sets the provider used for rendered trees
func WithCache(provider cache.Provider) Option {
	return func(s *CategoryService) {
		if provider != nil {
			s.cache = provider
		}
	}
}

// WithRecorder forwards mutation metrics to the tree repository
func WithRecorder(recorder repository.Recorder) Option {
	return func(s *CategoryService) {
		s.recorder = recorder
	}
}

// WithCacheObserver sets the cache traffic observer
func WithCacheObserver(observer CacheObserver) Option {
	return func(s *CategoryService) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// CategoryService runs category operations against a tree repository.
//
// The tree repository is not safe for concurrent mutation, so the service
// takes a write lock around every mutation and a read lock around reads.
type CategoryService struct {
	mu       sync.RWMutex
	store    CategoryStore
	tree     *repository.TreeRepository[*models.Category, int64]
	cache    cache.Provider
	logger   *zap.Logger
	recorder repository.Recorder
	observer CacheObserver
}

// New creates a category service over store
func New(store CategoryStore, opts ...Option) *CategoryService {
	s := &CategoryService{
		store:    store,
		cache:    cache.NopCache{},
		logger:   zap.NewNop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}

	treeOpts := []repository.Option{repository.WithLogger(s.logger.Named("tree"))}
	if s.recorder != nil {
		treeOpts = append(treeOpts, repository.WithRecorder(s.recorder))
	}
	s.tree = repository.NewTreeRepository[*models.Category, int64](store, ident.Int64Serializer{}, treeOpts...)
	return s
}

// Tree exposes the underlying tree repository
func (s *CategoryService) Tree() *repository.TreeRepository[*models.Category, int64] {
	return s.tree
}

// Create stores a new category below parentID, or as a root when
// parentID is nil
func (s *CategoryService) Create(ctx context.Context, label string, parentID *int64) (*models.Category, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, fmt.Errorf("label: %w", repository.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var parent *models.Category
	if parentID != nil {
		var err error
		if parent, err = s.store.Get(ctx, *parentID); err != nil {
			return nil, fmt.Errorf("parent %d: %w", *parentID, err)
		}
	}

	category := models.NewCategory(label)
	if err := s.tree.Insert(ctx, category, parent); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	s.logger.Info("category created",
		zap.Int64("id", category.ID),
		zap.String("path", category.Path),
	)
	return clone(category), nil
}

// Rename changes the label of a category. The tree is unaffected.
func (s *CategoryService) Rename(ctx context.Context, id int64, label string) (*models.Category, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, fmt.Errorf("label: %w", repository.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	category, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	category.Label = label
	s.store.Update(category)
	if err := s.store.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit rename: %w", err)
	}
	s.invalidate(ctx)
	return clone(category), nil
}

// Get returns a single category
func (s *CategoryService) Get(ctx context.Context, id int64) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, err := s.tree.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return clone(category), nil
}

// Forest renders every tree. It returns models.ErrTreeNotFound when there
// are no categories.
func (s *CategoryService) Forest(ctx context.Context) ([]*models.TreeNode, error) {
	if nodes, ok := s.cached(ctx, cache.ForestKey); ok {
		return nodes, nil
	}

	return s.render(ctx, cache.ForestKey, func() ([]*models.Category, error) {
		return s.tree.QueryAll().List(ctx)
	})
}

// Subtree renders id and everything below it
func (s *CategoryService) Subtree(ctx context.Context, id int64) (*models.TreeNode, error) {
	key := cache.SubtreeKey(id)
	if nodes, ok := s.cached(ctx, key); ok && len(nodes) == 1 {
		return nodes[0], nil
	}

	rendered, err := s.render(ctx, key, func() ([]*models.Category, error) {
		return s.subtree(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return rendered[0], nil
}

// render loads categories, nests them and caches the result under key, all
// while holding the read lock. Mutations invalidate under the write lock, so
// a rendering can never be cached after the invalidation that outdates it.
func (s *CategoryService) render(ctx context.Context, key string, load func() ([]*models.Category, error)) ([]*models.TreeNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories, err := load()
	if err != nil {
		return nil, err
	}
	nodes, err := models.BuildForest(categories)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, nodes)
	return nodes, nil
}

func (s *CategoryService) subtree(ctx context.Context, id int64) ([]*models.Category, error) {
	root, err := s.tree.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	query, err := s.tree.QueryDescendants(root)
	if err != nil {
		return nil, err
	}
	descendants, err := query.List(ctx)
	if err != nil {
		return nil, err
	}
	return append([]*models.Category{root}, descendants...), nil
}

// Roots returns every category without a parent
func (s *CategoryService) Roots(ctx context.Context) ([]*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortByID(s.tree.QueryRoots().List(ctx))
}

// Ancestors returns the ancestors of id, nearest to the root first
func (s *CategoryService) Ancestors(ctx context.Context, id int64) ([]*models.Category, error) {
	return s.related(ctx, id, s.tree.QueryAncestors, func(cats []*models.Category) {
		sort.SliceStable(cats, func(i, j int) bool { return cats[i].Level < cats[j].Level })
	})
}

// Descendants returns every category below id
func (s *CategoryService) Descendants(ctx context.Context, id int64) ([]*models.Category, error) {
	return s.related(ctx, id, s.tree.QueryDescendants, byID)
}

// Children returns the direct children of id
func (s *CategoryService) Children(ctx context.Context, id int64) ([]*models.Category, error) {
	return s.related(ctx, id, s.tree.QueryChildren, byID)
}

// Siblings returns the categories sharing id's parent
func (s *CategoryService) Siblings(ctx context.Context, id int64) ([]*models.Category, error) {
	return s.related(ctx, id, s.tree.QuerySiblings, byID)
}

type queryFunc func(*models.Category) (*repository.Query[*models.Category, int64], error)

func (s *CategoryService) related(ctx context.Context, id int64, query queryFunc, order func([]*models.Category)) ([]*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, err := s.tree.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	q, err := query(category)
	if err != nil {
		return nil, err
	}
	categories, err := q.List(ctx)
	if err != nil {
		return nil, err
	}
	order(categories)
	return cloneAll(categories), nil
}

// Parent returns the parent of id. ok is false for a root.
func (s *CategoryService) Parent(ctx context.Context, id int64) (parent *models.Category, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, err := s.tree.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	parent, ok, err = s.tree.GetParent(ctx, category)
	if err != nil || !ok {
		return nil, false, err
	}
	return clone(parent), true, nil
}

// PathFromRoot returns the chain of ancestors from the root down to id's
// parent
func (s *CategoryService) PathFromRoot(ctx context.Context, id int64) ([]*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, err := s.tree.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	path, err := s.tree.GetPathFromRoot(ctx, category)
	if err != nil {
		return nil, err
	}
	return cloneAll(path), nil
}

// Move reparents id below parentID, or makes it a root when parentID is nil
func (s *CategoryService) Move(ctx context.Context, id int64, parentID *int64) (*models.Category, repository.MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, repository.MoveResult{}, err
	}
	var parent *models.Category
	if parentID != nil {
		if parent, err = s.store.Get(ctx, *parentID); err != nil {
			return nil, repository.MoveResult{}, fmt.Errorf("parent %d: %w", *parentID, err)
		}
	}

	result, err := s.tree.SetParent(ctx, category, parent)
	if err != nil {
		return nil, result, err
	}
	s.invalidate(ctx)

	s.logger.Info("category moved",
		zap.Int64("id", id),
		zap.String("path", category.Path),
		zap.Int("rewritten", result.Rewritten),
	)
	return clone(category), result, nil
}

// Detach makes id a childless root; its children move to its former parent
func (s *CategoryService) Detach(ctx context.Context, id int64) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.tree.DetachNode(ctx, category); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	s.logger.Info("category detached", zap.Int64("id", id))
	return clone(category), nil
}

// Remove deletes id after handing its children to its parent
func (s *CategoryService) Remove(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tree.RemoveNode(ctx, category); err != nil {
		return err
	}
	s.invalidate(ctx)

	s.logger.Info("category removed", zap.Int64("id", id))
	return nil
}

func (s *CategoryService) cached(ctx context.Context, key string) ([]*models.TreeNode, bool) {
	nodes, ok := s.cache.Get(ctx, key)
	if ok {
		s.observer.CacheHit()
	} else {
		s.observer.CacheMiss()
	}
	return nodes, ok
}

// invalidate drops cached renderings. A failure only leaves stale entries
// until their TTL runs out, so it is logged rather than returned.
func (s *CategoryService) invalidate(ctx context.Context) {
	s.observer.CacheInvalidated()
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("cache invalidation failed", zap.Error(err))
	}
}

func byID(categories []*models.Category) {
	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })
}

func sortByID(categories []*models.Category, err error) ([]*models.Category, error) {
	if err != nil {
		return nil, err
	}
	byID(categories)
	return cloneAll(categories), nil
}

// clone copies a category so callers never share an instance with the
// store, which may keep mutating it
func clone(c *models.Category) *models.Category {
	copied := *c
	if c.ParentID != nil {
		parentID := *c.ParentID
		copied.ParentID = &parentID
	}
	return &copied
}

func cloneAll(categories []*models.Category) []*models.Category {
	copies := make([]*models.Category, len(categories))
	for i, c := range categories {
		copies[i] = clone(c)
	}
	return copies
}

// IsNotFound reports whether err means a category or tree does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNodeNotFound) || errors.Is(err, models.ErrTreeNotFound)
}
