// Package app wires configuration, store, cache and metrics into the HTTP
// router shared by the server and the Lambda entry point.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/ammiranda/treepath/cache"
	"github.com/ammiranda/treepath/config"
	"github.com/ammiranda/treepath/handlers"
	"github.com/ammiranda/treepath/metrics"
	"github.com/ammiranda/treepath/repository"
	"github.com/ammiranda/treepath/service"
)

// OpenStore opens and migrates the configured store. The returned closer
// releases it.
func OpenStore(ctx context.Context, cfg *config.DatabaseConfig) (service.CategoryStore, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return repository.NewCategoryMemoryStore(), func() {}, nil
	case config.DriverSQLite:
		store := repository.NewSQLiteStore(cfg.SQLitePath)
		if err := store.Initialize(ctx); err != nil {
			return nil, nil, err
		}
		return store, func() { store.Cleanup(context.Background()) }, nil
	case config.DriverPostgres, config.DriverPGX:
		store := repository.NewPostgresStoreWithConfig(cfg)
		if err := store.Initialize(ctx); err != nil {
			return nil, nil, err
		}
		return store, func() { store.Cleanup(context.Background()) }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

// NewRouter builds the full HTTP stack for cfg. The returned closer
// releases the store and the cache.
func NewRouter(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*gin.Engine, func(), error) {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	store, closeStore, err := OpenStore(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	provider, err := cache.NewFromConfig(ctx, cfg)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	closeAll := func() {
		if closer, ok := provider.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				log.Warn("closing cache", zap.Error(err))
			}
		}
		closeStore()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewRecorder(reg)

	svc := service.New(store,
		service.WithLogger(log),
		service.WithCache(provider),
		service.WithRecorder(recorder),
		service.WithCacheObserver(recorder),
	)

	log.Info("application wired",
		zap.String("driver", cfg.Database.Driver),
		zap.String("cache", cfg.CacheKind),
	)
	return handlers.NewRouter(svc, log, reg), closeAll, nil
}
