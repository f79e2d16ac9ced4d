package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	ghostCmd := &cobra.Command{Use: "ghost", Short: "Ghost blog operations"}

	var publish bool
	publishCmd := &cobra.Command{
		Use:   "publish RECIPE_ID",
		Short: "Post a recipe to the blog, as a draft unless --publish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			post, err := application.PublishRecipe(cmd.Context(), id, publish)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s post %s", post.Status, post.ID)
			if post.URL != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " at %s", post.URL)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	publishCmd.Flags().BoolVar(&publish, "publish", false, "Publish instead of saving a draft")
	ghostCmd.AddCommand(publishCmd)

	ghostCmd.AddCommand(&cobra.Command{
		Use:   "import",
		Short: "Add the blog's posts as recipes, skipping titles already stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, skipped, err := application.ImportGhost(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d recipes, skipped %d already stored\n", res.Added, skipped)
			return nil
		},
	})

	rootCmd.AddCommand(ghostCmd)
}
