package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"portfolio-assistant/internal/config"
	"portfolio-assistant/internal/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Portfolio chat assistant",
	Long: `Keyword-driven chat assistant for the portfolio site. Serves the web
widget API and the Telegram bot, and answers one-off questions from the shell.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var envFile string

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
}

// loadConfig reads the dotenv file, parses the environment and sets up the
// process logger.
func loadConfig() (*config.Config, error) {
	envErr := godotenv.Load(envFile)

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if _, err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if envErr != nil {
		logger.L().Warn("env_file_not_loaded", zap.String("path", envFile), zap.Error(envErr))
	}
	return cfg, nil
}
