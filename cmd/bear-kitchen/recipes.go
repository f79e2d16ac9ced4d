package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"bear-kitchen/internal/llm"
	"bear-kitchen/internal/recipe"
	"bear-kitchen/internal/shared"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

func init() {
	// add
	var title, content, contentFile, image string
	var tags []string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a recipe",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readContent(content, contentFile)
			if err != nil {
				return err
			}
			rec := recipe.Recipe{Title: title, Content: body, Tags: tags}
			if image != "" {
				img, err := readImage(image)
				if err != nil {
					return err
				}
				rec.Image = recipe.Images{{MimeType: img.MimeType, Data: img.Data}}
			}
			saved, err := application.CreateRecipe(cmd.Context(), rec)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added recipe %d: %s\n", saved.IDValue(), saved.Title)
			return nil
		},
	}
	addCmd.Flags().StringVarP(&title, "title", "t", "", "Recipe title (required)")
	addCmd.Flags().StringVarP(&content, "content", "c", "", "Markdown content")
	addCmd.Flags().StringVarP(&contentFile, "file", "f", "", "Read markdown content from a file, - for stdin")
	addCmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag (repeatable)")
	addCmd.Flags().StringVar(&image, "image", "", "Attach a photo")
	_ = addCmd.MarkFlagRequired("title")
	rootCmd.AddCommand(addCmd)

	// edit
	var editTitle, editContent, editFile string
	var editTags []string
	editCmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change a recipe's title, content or tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var patch recipe.Patch
			if cmd.Flags().Changed("title") {
				patch.Title = &editTitle
			}
			if cmd.Flags().Changed("content") || cmd.Flags().Changed("file") {
				body, err := readContent(editContent, editFile)
				if err != nil {
					return err
				}
				patch.Content = &body
			}
			if cmd.Flags().Changed("tag") {
				patch.Tags = &editTags
			}
			saved, err := application.EditRecipe(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated recipe %d: %s\n", saved.IDValue(), saved.Title)
			return nil
		},
	}
	editCmd.Flags().StringVarP(&editTitle, "title", "t", "", "New title")
	editCmd.Flags().StringVarP(&editContent, "content", "c", "", "New markdown content")
	editCmd.Flags().StringVarP(&editFile, "file", "f", "", "Read new content from a file, - for stdin")
	editCmd.Flags().StringSliceVar(&editTags, "tag", nil, "Replace tags (repeatable)")
	rootCmd.AddCommand(editCmd)

	// rm
	rootCmd.AddCommand(&cobra.Command{
		Use:   "rm ID",
		Short: "Delete a recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := application.DeleteRecipe(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted recipe %d\n", id)
			return nil
		},
	})

	// ls
	var lsTag string
	lsCmd := &cobra.Command{
		Use:   "ls [QUERY]",
		Short: "List recipes, optionally matching a title or tag",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			recipes, err := application.SearchRecipes(cmd.Context(), query, lsTag)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(recipes) == 0 {
				fmt.Fprintln(out, "No recipes found.")
				return nil
			}
			for _, r := range recipes {
				fmt.Fprintf(out, "%4d  %s", r.IDValue(), r.Title)
				if len(r.Tags) > 0 {
					fmt.Fprintf(out, "  [%s]", strings.Join(r.Tags, ", "))
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	lsCmd.Flags().StringVar(&lsTag, "tag", "", "Only recipes with this tag")
	rootCmd.AddCommand(lsCmd)

	// show
	var raw bool
	showCmd := &cobra.Command{
		Use:   "show ID",
		Short: "Print a recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rec, err := application.Recipe(cmd.Context(), id)
			if err != nil {
				return err
			}
			md := recipeMarkdown(rec)
			if raw {
				fmt.Fprint(cmd.OutOrStdout(), md)
				return nil
			}
			renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
			if err != nil {
				return err
			}
			out, err := renderer.Render(md)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	showCmd.Flags().BoolVar(&raw, "raw", false, "Print markdown without styling")
	rootCmd.AddCommand(showCmd)

	// scan
	var useOCR, cleanup bool
	var into int64
	scanCmd := &cobra.Command{
		Use:   "scan PHOTO",
		Short: "Read a recipe from a photo",
		Long: "Read a recipe from a photo with the vision model, or with --ocr run local OCR.\n" +
			"With --into the result is merged into an existing recipe instead of creating one.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := readImage(args[0])
			if err != nil {
				return err
			}
			var target *int64
			if cmd.Flags().Changed("into") {
				target = &into
			}

			var rec recipe.Recipe
			if useOCR {
				rec, err = application.ScanText(cmd.Context(), img, target, cleanup)
			} else {
				rec, err = application.ScanPhoto(cmd.Context(), img, target)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved recipe %d: %s\n", rec.IDValue(), rec.Title)
			return nil
		},
	}
	scanCmd.Flags().BoolVar(&useOCR, "ocr", false, "Use local OCR instead of the vision model")
	scanCmd.Flags().BoolVar(&cleanup, "cleanup", false, "Have the text model tidy the OCR text")
	scanCmd.Flags().Int64Var(&into, "into", 0, "Merge into the recipe with this ID")
	rootCmd.AddCommand(scanCmd)

	// clip
	rootCmd.AddCommand(&cobra.Command{
		Use:   "clip URL",
		Short: "Clip a recipe from a web page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := application.ClipURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Clipped recipe %d: %s\n", rec.IDValue(), rec.Title)
			return nil
		},
	})
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid recipe id %q: %w", s, shared.ErrValidation)
	}
	return id, nil
}

// readContent returns text, or the contents of path when one is given.
func readContent(text, path string) (string, error) {
	if path == "" {
		return text, nil
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w: %w", path, shared.ErrValidation, err)
	}
	return string(data), nil
}

func readImage(path string) (llm.ImageInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return llm.ImageInput{}, fmt.Errorf("failed to read photo %s: %w: %w", path, shared.ErrValidation, err)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return llm.ImageInput{}, fmt.Errorf("%s is not an image (%s): %w", path, mime, shared.ErrValidation)
	}
	return llm.ImageInput{MimeType: mime, Data: data}, nil
}

func recipeMarkdown(r recipe.Recipe) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", r.Title)
	if len(r.Tags) > 0 {
		fmt.Fprintf(&sb, "*%s*\n\n", strings.Join(r.Tags, " · "))
	}
	for _, img := range r.Image {
		if img.URL != "" {
			fmt.Fprintf(&sb, "![photo](%s)\n\n", img.URL)
		}
	}
	sb.WriteString(r.Content)
	if !strings.HasSuffix(r.Content, "\n") {
		sb.WriteString("\n")
	}
	return sb.String()
}
