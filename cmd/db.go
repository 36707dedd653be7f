package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Taichi-iskw/yt-rag/internal/config"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database operations",
}

// dbMigrateCmd applies the embedded schema migrations
var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long:  `Create or upgrade the pipelines and chunk_embeddings tables in DATABASE_URL.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("database_url is not set; run 'ytrag config init DATABASE_URL' or set DATABASE_URL")
		}

		if err := config.RunMigrations(cfg.DatabaseURL); err != nil {
			return err
		}

		version, dirty, err := config.MigrationVersion(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		cmd.Printf("Database schema at version %d", version)
		if dirty {
			cmd.Print(" (dirty)")
		}
		cmd.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbMigrateCmd)
}
