package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/puzzbot/internal/db"
)

// DBCmd returns the db command
func DBCmd() *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the local SQLite record store",
	}
	dbCmd.PersistentFlags().String("path", "puzzbot.db", "SQLite database path")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("path")
			database, err := db.OpenSQLite(path)
			if err != nil {
				return err
			}
			defer database.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Database initialized at %s (schema v%d)\n", path, db.SchemaVersion)
			return nil
		},
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a small practice hunt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("path")
			database, err := db.OpenSQLite(path)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := db.SeedFixtures(database); err != nil {
				return fmt.Errorf("failed to seed %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Seeded %s\n", path)
			return nil
		},
	}

	dbCmd.AddCommand(initCmd)
	dbCmd.AddCommand(seedCmd)
	return dbCmd
}
