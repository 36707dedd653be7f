package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Taichi-iskw/yt-rag/internal/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration settings",
	Long:  `Manage configuration settings for ytrag.`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init [DATABASE_URL]",
	Short: "Initialize configuration file",
	Long: `Create a commented configuration file. Passing DATABASE_URL selects the
postgres pipeline registry; otherwise the in-memory registry is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var databaseURL string
		if len(args) > 0 {
			databaseURL = args[0]
		}

		if err := config.InitConfig(databaseURL); err != nil {
			return err
		}

		configPath, err := config.GetConfigPath()
		if err != nil {
			return err
		}

		cmd.Printf("Created configuration file: %s\n", configPath)
		cmd.Println("Set GEMINI_API_KEY in your environment or a .env file before querying.")
		return nil
	},
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the configuration file path and the effective settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			var err error
			if path, err = config.GetConfigPath(); err != nil {
				return err
			}
		}

		cfg, _, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration file: %s\n\n", path)
		fmt.Fprintf(out, "data_dir:           %s\n", cfg.DataDir)
		fmt.Fprintf(out, "registry:           %s\n", cfg.Registry)
		fmt.Fprintf(out, "index_backend:      %s\n", cfg.IndexBackend)
		fmt.Fprintf(out, "database_url:       %s\n", orUnset(cfg.DatabaseURL))
		fmt.Fprintf(out, "redis_url:          %s\n", orUnset(cfg.RedisURL))
		fmt.Fprintf(out, "transcript:         %s %v\n", cfg.Transcript.Provider, cfg.Transcript.Languages)
		fmt.Fprintf(out, "chunk duration:     %gs (strict: %t)\n", cfg.Chunking.DurationSeconds, cfg.Chunking.Strict)
		fmt.Fprintf(out, "embedding:          %s @ %s\n", cfg.Embedding.Model, cfg.Embedding.URL)
		fmt.Fprintf(out, "completion:         %s @ %s\n", cfg.Completion.Model, cfg.Completion.BaseURL)
		fmt.Fprintf(out, "GEMINI_API_KEY:     %s\n", cfg.MaskedAPIKey())
		fmt.Fprintf(out, "server addr:        %s\n", cfg.Server.Addr)
		return nil
	},
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
