package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/comps-valuation/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "comps-valuation",
	Short: "Comparable-company valuation for private companies",
	Long:  "Extracts a company profile from a free-text description, matches public comparables, enriches them with market data and produces revenue-multiple, growth-adjusted and risk-adjusted valuations.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
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
