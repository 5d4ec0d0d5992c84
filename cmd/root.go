package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/appraisal-engine/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "appraisal-engine",
	Short: "Multi-run consensus appraisal of collectible items",
	Long:  "Identifies collectible items from photographs via vision models, re-runs noisy analyses until they converge, and interactively gathers the evidence that reduces uncertainty most.",
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
