// Package cli implements the treepath command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ammiranda/treepath/config"
	"github.com/ammiranda/treepath/internal/app"
	"github.com/ammiranda/treepath/logger"
	"github.com/ammiranda/treepath/service"
)

const rootLongDesc string = `treepath keeps a category tree in a relational store using
materialized paths, and serves it over HTTP.

Examples:
  treepath serve
  treepath migrate up --driver postgres
  treepath add phones --parent 1
  treepath move 4 --parent 2
  treepath show 4`

const rootShortDesc string = "Materialized path category tree"

// globalFlags are shared by every subcommand
type globalFlags struct {
	driver     string
	sqlitePath string
	dsn        string
	debug      bool
}

// NewRootCmd builds the treepath command tree
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "treepath",
		Short:         rootShortDesc,
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return config.LoadDotEnv()
		},
	}

	cmd.PersistentFlags().StringVar(&flags.driver, "driver", "", "Store driver: sqlite, postgres, pgx or memory (default from DB_DRIVER, else sqlite)")
	cmd.PersistentFlags().StringVarP(&flags.sqlitePath, "sqlite-path", "s", "", "Path to the SQLite database (default from SQLITE_PATH)")
	cmd.PersistentFlags().StringVar(&flags.dsn, "dsn", "", "PostgreSQL connection string, overrides the DB_* variables")
	cmd.PersistentFlags().BoolVarP(&flags.debug, "debug", "d", false, "Enable debug logging")

	cmd.AddCommand(
		newServeCmd(flags),
		newMigrateCmd(flags),
		newTreeCmd(flags),
		newRootsCmd(flags),
		newShowCmd(flags),
		newAddCmd(flags),
		newMoveCmd(flags),
		newDetachCmd(flags),
		newRemoveCmd(flags),
		newAncestorsCmd(flags),
	)
	return cmd
}

// Execute runs the command line and exits non-zero on failure
func Execute() {
	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (f *globalFlags) logger(cmd *cobra.Command) *zap.Logger {
	return f.loggerAt(cmd, f.debug)
}

func (f *globalFlags) loggerAt(cmd *cobra.Command, debug bool) *zap.Logger {
	return logger.New(debug, cmd.ErrOrStderr())
}

// databaseConfig resolves the store settings from flags, then the
// environment
func (f *globalFlags) databaseConfig(ctx context.Context) (*config.DatabaseConfig, error) {
	provider, err := f.provider(ctx)
	if err != nil {
		return nil, err
	}
	return config.GetDatabaseConfig(ctx, provider)
}

// provider layers the flag values over the configured provider
func (f *globalFlags) provider(ctx context.Context) (config.Provider, error) {
	base, err := config.NewProvider(ctx)
	if err != nil {
		return nil, err
	}
	overrides := map[string]string{}
	if f.driver != "" {
		overrides["DB_DRIVER"] = f.driver
	}
	if f.sqlitePath != "" {
		overrides["SQLITE_PATH"] = f.sqlitePath
	}
	if f.dsn != "" {
		overrides["DB_DSN"] = f.dsn
		if f.driver == "" {
			overrides["DB_DRIVER"] = config.DriverPostgres
		}
	}
	if f.debug {
		overrides["DEBUG"] = "true"
	}
	return config.NewOverlayProvider(base, overrides), nil
}

// openStore opens and migrates the configured store. The returned closer
// releases it.
func (f *globalFlags) openStore(ctx context.Context) (service.CategoryStore, func(), error) {
	cfg, err := f.databaseConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	return app.OpenStore(ctx, cfg)
}

// openService opens the store and wraps it in a category service
func (f *globalFlags) openService(cmd *cobra.Command) (*service.CategoryService, func(), error) {
	store, closeStore, err := f.openStore(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	svc := service.New(store, service.WithLogger(f.logger(cmd)))
	return svc, closeStore, nil
}
