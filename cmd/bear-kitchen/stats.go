package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	var days int
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show AI token usage and system health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			usage, err := application.Usage(ctx, days)
			if err != nil {
				return err
			}
			health := application.Health(ctx)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "AI usage, last %d days:\n", days)
			if len(usage) == 0 {
				fmt.Fprintln(out, "  no data yet")
			}
			for _, d := range usage {
				fmt.Fprintf(out, "  %s  %6d prompt  %6d completion  %3d calls\n",
					d.Date, d.TotalPrompt, d.TotalCompletion, d.TotalExecution)
			}
			fmt.Fprintf(out, "\nStatus: %s (schema v%d)\n", health.Status, health.SchemaVersion)
			fmt.Fprintf(out, "Memory: %dMB alloc, %dMB sys, %d GCs\n", health.AllocMB, health.SysMB, health.NumGC)
			fmt.Fprintf(out, "Data:   %s\n", health.DataDiskSize)
			return nil
		},
	}
	statsCmd.Flags().IntVar(&days, "days", 7, "Days of usage to show")
	rootCmd.AddCommand(statsCmd)

	var keep int
	cleanupCmd := &cobra.Command{
		Use:   "metrics-cleanup",
		Short: "Remove old AI usage records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			affected, err := application.CleanupMetrics(cmd.Context(), keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully removed %d old metric records.\n", affected)
			return nil
		},
	}
	cleanupCmd.Flags().IntVar(&keep, "days", 30, "Keep records for the last N days")
	rootCmd.AddCommand(cleanupCmd)
}
