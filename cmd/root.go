package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/boxoffice-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "boxoffice",
	Short: "Box office grosses scraper",
	Long:  "Scrapes yearly release charts, decides domestic, international and worldwide grosses per release, and writes per-year CSV files.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is normal; the environment may already be set.
		_ = godotenv.Load()

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
