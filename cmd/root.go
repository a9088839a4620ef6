package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clearfreight/customs-audit/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "customs-audit",
	Short: "Customs clearance document audit pipeline",
	Long:  "Classifies, extracts, and validates customs clearance document bundles (entry prints, commercial invoices, air waybills) against region checklists using multimodal Claude models.",
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
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
