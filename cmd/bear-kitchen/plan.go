package main

import (
	"fmt"
	"io"
	"strings"

	"bear-kitchen/internal/planner"
	"bear-kitchen/internal/recipe"

	"github.com/spf13/cobra"
)

func init() {
	var week string
	planCmd := &cobra.Command{Use: "plan", Short: "Week plan operations"}
	planCmd.PersistentFlags().StringVarP(&week, "week", "w", "", "Any date in the week (YYYY-MM-DD), defaults to this week")

	// show
	planCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the week's plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, meals, err := application.WeekMeals(cmd.Context(), week)
			if err != nil {
				return err
			}
			printPlan(cmd.OutOrStdout(), plan, meals)
			return nil
		},
	})

	// add
	planCmd.AddCommand(&cobra.Command{
		Use:   "add DAY RECIPE_ID",
		Short: "Plan a recipe on a day",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, id, err := dayAndID(args)
			if err != nil {
				return err
			}
			plan, err := application.AddMeal(cmd.Context(), week, day, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Planned recipe %d on %s of week %s\n", id, day, plan.WeekStart)
			return nil
		},
	})

	// rm
	planCmd.AddCommand(&cobra.Command{
		Use:   "rm DAY RECIPE_ID",
		Short: "Take a recipe off a day",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, id, err := dayAndID(args)
			if err != nil {
				return err
			}
			plan, err := application.RemoveMeal(cmd.Context(), week, day, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed recipe %d from %s of week %s\n", id, day, plan.WeekStart)
			return nil
		},
	})

	// name
	planCmd.AddCommand(&cobra.Command{
		Use:   "name NAME",
		Short: "Name the week",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := application.RenameWeek(cmd.Context(), week, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Week %s is now %q\n", plan.WeekStart, *plan.Name)
			return nil
		},
	})

	// list
	planCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Write the week's shopping list with the text model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := application.GenerateShoppingList(cmd.Context(), week)
			if err != nil {
				return err
			}
			printShoppingList(cmd.OutOrStdout(), plan)
			return nil
		},
	})

	// set-list
	planCmd.AddCommand(&cobra.Command{
		Use:   "set-list FILE",
		Short: "Replace the week's shopping list with a markdown file, - for stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			markdown, err := readContent("", args[0])
			if err != nil {
				return err
			}
			plan, err := application.SetShoppingList(cmd.Context(), week, markdown)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved the shopping list of week %s\n", plan.WeekStart)
			return nil
		},
	})

	// history
	planCmd.AddCommand(&cobra.Command{
		Use:   "history",
		Short: "List every stored week, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plans, err := application.PlanHistory(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range plans {
				name := ""
				if p.Name != nil {
					name = *p.Name
				}
				fmt.Fprintf(out, "%s  %2d meals  %s\n", p.WeekStart, len(p.Days.IDs()), name)
			}
			return nil
		},
	})

	rootCmd.AddCommand(planCmd)
}

func dayAndID(args []string) (planner.Weekday, int64, error) {
	day, err := planner.ParseWeekday(args[0])
	if err != nil {
		return "", 0, err
	}
	id, err := parseID(args[1])
	if err != nil {
		return "", 0, err
	}
	return day, id, nil
}

func printPlan(out io.Writer, plan planner.WeekPlan, meals map[planner.Weekday][]recipe.Recipe) {
	header := "Week of " + plan.WeekStart
	if plan.Name != nil && *plan.Name != "" {
		header += ": " + *plan.Name
	}
	fmt.Fprintln(out, header)
	for _, day := range planner.Weekdays {
		fmt.Fprintf(out, "  %-10s", day)
		dishes := meals[day]
		if len(dishes) == 0 {
			fmt.Fprintln(out, "-")
			continue
		}
		titles := make([]string, len(dishes))
		for i, d := range dishes {
			titles[i] = fmt.Sprintf("%s (%d)", d.Title, d.IDValue())
		}
		fmt.Fprintln(out, strings.Join(titles, ", "))
	}
	if plan.ShoppingList != nil && *plan.ShoppingList != "" {
		fmt.Fprintln(out)
		printShoppingList(out, plan)
	}
}

func printShoppingList(out io.Writer, plan planner.WeekPlan) {
	fmt.Fprintln(out, "Shopping list:")
	if plan.ShoppingList == nil {
		fmt.Fprintln(out, "  (empty)")
		return
	}
	fmt.Fprintln(out, strings.TrimRight(*plan.ShoppingList, "\n"))
}
