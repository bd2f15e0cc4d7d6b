package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var pruneDays int

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove rank files that fell behind the newest window by more than the cutoff",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("days") {
			cfg.Storage.PruneAfterDays = pruneDays
		}
		ctx := context.Background()
		a, err := newApp(ctx, cfg, buildOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		removed, err := a.pipeline.Prune(ctx)
		if err != nil {
			return err
		}
		for _, name := range removed {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d rank files removed\n", len(removed))
		return nil
	},
}

func init() {
	pruneCmd.Flags().IntVar(&pruneDays, "days", 0, "age in days after which a rank file is removed (defaults to storage.pruneAfterDays)")
	rootCmd.AddCommand(pruneCmd)
}
