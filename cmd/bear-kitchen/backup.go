package main

import (
	"fmt"
	"os"
	"time"

	"bear-kitchen/internal/config"
	"bear-kitchen/internal/shared"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Write recipes and week plans to the backup directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := application.Export(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Exported %d recipes to %s\n", res.Recipes, res.RecipesFile)
			if res.PlansFile != "" {
				fmt.Fprintf(out, "Exported %d week plans to %s\n", res.Plans, res.PlansFile)
			}
			if res.Pruned > 0 {
				fmt.Fprintf(out, "Removed %d old backups\n", res.Pruned)
			}
			return nil
		},
	})

	var plans, merge bool
	restoreCmd := &cobra.Command{
		Use:   "restore [FILE]",
		Short: "Add the records of a backup file to the store",
		Long: "Add every record of a backup file as a new record. Existing records are kept.\n" +
			"With --merge the ids of the file are kept and records with the same id are replaced.\n" +
			"Without FILE the newest backup in the backup directory is used.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				if plans || merge {
					return fmt.Errorf("--plans and --merge need a backup file: %w", shared.ErrValidation)
				}
				name, res, err := application.RestoreLatest(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Restored %d recipes from %s\n", res.Added, name)
				return nil
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w: %w", args[0], shared.ErrValidation, err)
			}
			switch {
			case plans && merge:
				res, err := application.MergePlans(ctx, data)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Merged week plans: %d added, %d replaced\n", res.Added, res.Replaced)
			case plans:
				res, err := application.RestorePlans(ctx, data)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Restored %d week plans\n", res.Added)
			case merge:
				res, err := application.Merge(ctx, data)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Merged recipes: %d added, %d replaced\n", res.Added, res.Replaced)
			default:
				res, err := application.Restore(ctx, data)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Restored %d recipes\n", res.Added)
			}
			return nil
		},
	}
	restoreCmd.Flags().BoolVar(&plans, "plans", false, "The file holds week plans")
	restoreCmd.Flags().BoolVarP(&merge, "merge", "m", false, "Keep the file's ids and replace records with the same id")
	rootCmd.AddCommand(restoreCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Merge the cloud copy and upload the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := application.Sync(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Synced at %s: %d added, %d updated from cloud, %d uploaded\n",
				time.UnixMilli(report.SyncedAt).Format(time.DateTime),
				report.Merged.Added, report.Merged.Replaced, report.Uploaded)
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Import backup files dropped into the drop folder until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := application.Watcher()
			if err != nil {
				return err
			}
			if w == nil {
				return fmt.Errorf("no drop folder configured, set %s_DROP_DIR: %w", config.Prefix, shared.ErrValidation)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Watching for backups, press Ctrl+C to stop")
			return w.Run(cmd.Context())
		},
	})
}
