package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/exporter"
)

var exportMode string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export rank windows from the stored archive without fetching",
	Long: `Export rank windows from the stored archive without fetching.

Modes:
  forward            rewrite every series from the oldest window
  forward-resumable  append complete windows newer than the watermark
  backward           rewrite every series from the newest window
  up-to              backward with midnight-aligned windows`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportMode != "" {
			if _, err := exporter.ParseMode(exportMode); err != nil {
				return err
			}
			cfg.Export.Mode = exportMode
		}
		ctx := context.Background()
		a, err := newApp(ctx, cfg, buildOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.pipeline.Export(ctx)
		if err != nil {
			return err
		}
		if res.EmptyArchive {
			fmt.Fprintln(cmd.OutOrStdout(), "archive is empty, nothing exported")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "mode %s: %d windows exported, %d skipped, %d rows written\n",
			res.Export.Mode, res.Export.Exported, res.Export.Skipped, res.Export.Rows)
		if !res.Export.Watermark.IsZero() {
			fmt.Fprintf(cmd.OutOrStdout(), "watermark %s\n", res.Export.Watermark.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportMode, "mode", "m", "", "export mode (defaults to export.mode)")
	rootCmd.AddCommand(exportCmd)
}
