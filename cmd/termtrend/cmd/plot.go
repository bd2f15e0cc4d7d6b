package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Redraw one chart per metric from the stored rank series",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg.Plot.Enabled = true
		a, err := newApp(ctx, cfg, buildOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		charts, err := a.pipeline.Plot(ctx)
		if err != nil {
			return err
		}
		for _, c := range charts {
			fmt.Fprintln(cmd.OutOrStdout(), c)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(plotCmd)
}
