package app

import (
	"context"
	"fmt"

	"bear-kitchen/internal/planner"
	"bear-kitchen/internal/recipe"
	"bear-kitchen/internal/shared"
)

// Week returns the plan for the week containing weekStart. An empty
// weekStart means the current week.
func (a *App) Week(ctx context.Context, weekStart string) (planner.WeekPlan, error) {
	return a.board.Week(ctx, a.weekKey(weekStart))
}

// WeekMeals returns the plan and its resolved recipes per day.
func (a *App) WeekMeals(ctx context.Context, weekStart string) (planner.WeekPlan, map[planner.Weekday][]recipe.Recipe, error) {
	plan, err := a.Week(ctx, weekStart)
	if err != nil {
		return planner.WeekPlan{}, nil, err
	}
	meals, err := a.board.Meals(ctx, plan)
	return plan, meals, err
}

// AddMeal plans a stored recipe on day.
func (a *App) AddMeal(ctx context.Context, weekStart string, day planner.Weekday, recipeID int64) (planner.WeekPlan, error) {
	rec, err := a.recipes.Get(ctx, recipeID)
	if err != nil {
		return planner.WeekPlan{}, err
	}
	if rec == nil {
		return planner.WeekPlan{}, fmt.Errorf("recipe %d: %w", recipeID, shared.ErrNotFound)
	}
	return a.board.AddMeal(ctx, a.weekKey(weekStart), day, recipeID)
}

// RemoveMeal takes a recipe off day.
func (a *App) RemoveMeal(ctx context.Context, weekStart string, day planner.Weekday, recipeID int64) (planner.WeekPlan, error) {
	return a.board.RemoveMeal(ctx, a.weekKey(weekStart), day, recipeID)
}

// RenameWeek names the week's plan.
func (a *App) RenameWeek(ctx context.Context, weekStart, name string) (planner.WeekPlan, error) {
	return a.board.Rename(ctx, a.weekKey(weekStart), name)
}

// SetShoppingList replaces the week's shopping list with markdown.
func (a *App) SetShoppingList(ctx context.Context, weekStart, markdown string) (planner.WeekPlan, error) {
	return a.board.SetShoppingList(ctx, a.weekKey(weekStart), markdown)
}

// GenerateShoppingList has the text model write the week's shopping list.
func (a *App) GenerateShoppingList(ctx context.Context, weekStart string) (planner.WeekPlan, error) {
	plan, meta, err := a.board.GenerateShoppingList(ctx, a.weekKey(weekStart))
	a.recordMeta(ctx, meta)
	return plan, err
}

// PlanHistory returns every stored week plan, newest first.
func (a *App) PlanHistory(ctx context.Context) ([]planner.WeekPlan, error) {
	return a.board.History(ctx)
}

func (a *App) weekKey(weekStart string) string {
	if weekStart == "" {
		return planner.WeekStartOf(a.now())
	}
	return weekStart
}
