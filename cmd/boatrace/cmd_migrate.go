package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/boatrace-edge/internal/database"
)

func newMigrateCmd() *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if printOnly {
				fmt.Print(database.Schema())
				return nil
			}
			ctx := cmd.Context()
			db, err := database.NewDB(ctx, &cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			if err := db.EnsureSchema(ctx); err != nil {
				return err
			}
			logger.Info("Schema applied")
			return nil
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the schema instead of applying it")
	return cmd
}
