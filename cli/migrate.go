package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

const migrateLongDesc string = `Manage the database schema. Opening a SQL store applies any
pending migrations, so "up" is mostly useful as an explicit deploy step.

Examples:
  treepath migrate up
  treepath migrate down --driver postgres
  treepath migrate version`

// schemaStore is the part of a SQL store the migrate commands use
type schemaStore interface {
	Migrate() error
	Rollback() error
	SchemaVersion() (uint, bool, error)
}

func newMigrateCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  migrateLongDesc,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withSchema(cmd.Context(), flags, func(store schemaStore) error {
					if err := store.Migrate(); err != nil {
						return err
					}
					return printVersion(cmd, store)
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withSchema(cmd.Context(), flags, func(store schemaStore) error {
					if err := store.Rollback(); err != nil {
						return err
					}
					return printVersion(cmd, store)
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withSchema(cmd.Context(), flags, func(store schemaStore) error {
					return printVersion(cmd, store)
				})
			},
		},
	)
	return cmd
}

// withSchema opens the configured store and runs fn against it
func withSchema(ctx context.Context, flags *globalFlags, fn func(schemaStore) error) error {
	store, closeStore, err := flags.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	schema, ok := store.(schemaStore)
	if !ok {
		return fmt.Errorf("the configured driver has no schema")
	}
	return fn(schema)
}

func printVersion(cmd *cobra.Command, store schemaStore) error {
	version, dirty, err := store.SchemaVersion()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if dirty {
		fmt.Fprintf(out, "schema version %d (dirty)\n", version)
		return nil
	}
	fmt.Fprintf(out, "schema version %d\n", version)
	return nil
}
