package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/logger"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "termtrend",
	Short: "Rank trending terms in a community feed",
	Long: `termtrend keeps an archive of a community's posts, ranks the terms they
mention per time window by count, score, context and score density, and
writes one rank series per term and metric.

Run "termtrend run" for the polling loop or use the other commands for a
single step over the stored archive.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/termtrend.yaml", "path to config file")
}
