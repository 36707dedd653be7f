package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Taichi-iskw/yt-rag/internal/config"
	"github.com/Taichi-iskw/yt-rag/internal/errors"
	"github.com/Taichi-iskw/yt-rag/internal/logger"
)

var (
	configPath string
	envFile    string
	logLevel   string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ytrag",
	Short: "Ask questions about YouTube videos",
	Long: `ytrag fetches a video's transcript, splits it into time-bounded chunks,
embeds them into a vector index and answers questions with a language model
using the most relevant chunks as context.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errors.MessageOf(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.yt-rag/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional .env file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// loadConfig loads configuration and installs the configured default logger
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return nil, nil, err
	}

	levelName := cfg.Log.Level
	if logLevel != "" {
		levelName = logLevel
	}
	level, err := logger.ParseLevel(levelName)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeConfig, "invalid log level")
	}
	return cfg, logger.New(logger.Config{Level: level, Format: cfg.Log.Format}), nil
}
