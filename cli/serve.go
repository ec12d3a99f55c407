package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ammiranda/treepath/config"
	"github.com/ammiranda/treepath/internal/app"
)

const serveLongDesc string = `Run the HTTP API.

Settings come from the environment (or a .env file):
  HTTP_ADDR        listen address (default :8080)
  CACHE_BACKEND    memory, redis, dynamodb or none (default memory)
  CACHE_TTL        lifetime of cached trees (default 5m)
  DB_DRIVER        sqlite, postgres, pgx or memory (default sqlite)`

type serveCommander struct {
	flags *globalFlags
	addr  string
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	cmder := &serveCommander{flags: flags}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}
	cmd.Flags().StringVarP(&cmder.addr, "addr", "a", "", "Listen address, overrides HTTP_ADDR")
	return cmd
}

func (c *serveCommander) run(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := c.flags.provider(ctx)
	if err != nil {
		return err
	}
	cfg, err := config.GetAppConfig(ctx, provider)
	if err != nil {
		return err
	}
	if c.addr != "" {
		cfg.HTTPAddr = c.addr
	}

	log := c.flags.loggerAt(cmd, c.flags.debug || cfg.Debug)
	defer log.Sync()

	router, closeAll, err := app.NewRouter(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeAll()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
