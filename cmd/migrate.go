package cmd

import (
	"fmt"

	"dinq_match/utils"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables and partial unique indexes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		if err := utils.InitDB(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer utils.CloseDB()

		if err := utils.Migrate(utils.GetDB()); err != nil {
			return err
		}
		utils.Logger().Info("migration finished")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
