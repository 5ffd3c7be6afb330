package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/trustlens/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "trustlens",
	Short: "Dark-pattern detection for e-commerce product pages",
	Long:  "Renders a product page, detects manipulative design patterns (fake scarcity, countdown timers, drip pricing, pre-ticked add-ons, confirm-shaming), checks the MRP against price history and grades the page A-F.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		switch cmd.Name() {
		case "analyze", "history", "serve":
			if err := cfg.Validate(cmd.Name()); err != nil {
				return err
			}
		}

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
