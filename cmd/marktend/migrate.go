package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/undergrove/marktend/internal/cli"
	"github.com/undergrove/marktend/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Bring the database schema up to date. Every command migrates on startup,
so this exists mainly for provisioning and for checking the schema version.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			sqliteStore, ok := store.(*storage.SQLiteStorage)
			if !ok {
				return fmt.Errorf("storage is not SQLite")
			}
			version, err := sqliteStore.SchemaVersion(ctx)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Database migrated to schema version %d", version)))
			return nil
		},
	}
}
