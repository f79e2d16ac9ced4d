package planner

import (
	"context"
	"fmt"
	"strings"

	"bear-kitchen/internal/recipe"
	"bear-kitchen/internal/shared"
)

// ErrEmptyPlan is returned when a shopping list is requested for a week without meals.
var ErrEmptyPlan = fmt.Errorf("add some recipes to your week first: %w", shared.ErrValidation)

// RecipeSource resolves planned recipe ids.
type RecipeSource interface {
	GetByIDs(ctx context.Context, ids []int64) (map[int64]recipe.Recipe, error)
}

// Board is the weekly meal board. A week's plan lives only in memory until
// the first meal is added or the week is named.
type Board struct {
	plans   *PlanRepository
	recipes RecipeSource
	chef    *Chef
}

// NewBoard creates a Board. chef may be nil when no text model is configured.
func NewBoard(plans *PlanRepository, recipes RecipeSource, chef *Chef) *Board {
	return &Board{plans: plans, recipes: recipes, chef: chef}
}

// Week returns the stored plan for the week containing weekStart, or a new
// unsaved one.
func (b *Board) Week(ctx context.Context, weekStart string) (WeekPlan, error) {
	key, err := NormalizeWeekStart(weekStart)
	if err != nil {
		return WeekPlan{}, err
	}

	stored, err := b.plans.FindByWeekStart(ctx, key)
	if err != nil {
		return WeekPlan{}, err
	}
	if stored == nil {
		return NewWeekPlan(key), nil
	}
	return *stored, nil
}

// AddMeal appends recipeID to day, saving the plan if it was not stored yet.
func (b *Board) AddMeal(ctx context.Context, weekStart string, day Weekday, recipeID int64) (WeekPlan, error) {
	plan, err := b.Week(ctx, weekStart)
	if err != nil {
		return WeekPlan{}, err
	}

	days := plan.Days
	days.Add(day, recipeID)
	return b.save(ctx, plan, PlanPatch{Days: &days})
}

// RemoveMeal drops every occurrence of recipeID from day. An unsaved plan
// is left unsaved.
func (b *Board) RemoveMeal(ctx context.Context, weekStart string, day Weekday, recipeID int64) (WeekPlan, error) {
	plan, err := b.Week(ctx, weekStart)
	if err != nil {
		return WeekPlan{}, err
	}

	days := plan.Days
	if !days.Remove(day, recipeID) || !plan.Persisted() {
		plan.Days = days
		return plan, nil
	}
	return b.save(ctx, plan, PlanPatch{Days: &days})
}

// Rename sets the plan's name, saving the plan if it was not stored yet.
func (b *Board) Rename(ctx context.Context, weekStart, name string) (WeekPlan, error) {
	plan, err := b.Week(ctx, weekStart)
	if err != nil {
		return WeekPlan{}, err
	}

	name = strings.TrimSpace(name)
	return b.save(ctx, plan, PlanPatch{Name: &name})
}

// SetShoppingList stores markdown as the week's shopping list. An unsaved
// plan only carries it in the returned value.
func (b *Board) SetShoppingList(ctx context.Context, weekStart, markdown string) (WeekPlan, error) {
	plan, err := b.Week(ctx, weekStart)
	if err != nil {
		return WeekPlan{}, err
	}

	if !plan.Persisted() {
		plan.ShoppingList = &markdown
		return plan, nil
	}
	return b.save(ctx, plan, PlanPatch{ShoppingList: &markdown})
}

// Meals resolves the plan's recipe ids per day. Ids of deleted recipes are skipped.
func (b *Board) Meals(ctx context.Context, plan WeekPlan) (map[Weekday][]recipe.Recipe, error) {
	found, err := b.recipes.GetByIDs(ctx, plan.Days.IDs())
	if err != nil {
		return nil, err
	}

	meals := make(map[Weekday][]recipe.Recipe, len(Weekdays))
	for _, day := range Weekdays {
		for _, id := range plan.Days.Get(day) {
			if rec, ok := found[id]; ok {
				meals[day] = append(meals[day], rec)
			}
		}
	}
	return meals, nil
}

// GenerateShoppingList asks the chef for the week's list and stores it.
func (b *Board) GenerateShoppingList(ctx context.Context, weekStart string) (WeekPlan, shared.AgentMeta, error) {
	if b.chef == nil {
		return WeekPlan{}, shared.AgentMeta{}, fmt.Errorf("shopping list generation is not configured: %w", shared.ErrValidation)
	}

	plan, err := b.Week(ctx, weekStart)
	if err != nil {
		return WeekPlan{}, shared.AgentMeta{}, err
	}
	meals, err := b.Meals(ctx, plan)
	if err != nil {
		return WeekPlan{}, shared.AgentMeta{}, err
	}

	var all []recipe.Recipe
	for _, day := range Weekdays {
		all = append(all, meals[day]...)
	}
	if len(all) == 0 {
		return plan, shared.AgentMeta{}, ErrEmptyPlan
	}

	result, err := b.chef.ShoppingList(ctx, all)
	if err != nil {
		return plan, result.Meta, err
	}

	plan, err = b.SetShoppingList(ctx, plan.WeekStart, result.ShoppingList)
	return plan, result.Meta, err
}

// History returns every stored plan, newest week first.
func (b *Board) History(ctx context.Context) ([]WeekPlan, error) {
	return b.plans.List(ctx, ListOptions{OrderBy: "weekStart", Desc: true})
}

func (b *Board) save(ctx context.Context, plan WeekPlan, patch PlanPatch) (WeekPlan, error) {
	if !plan.Persisted() {
		patch.Apply(&plan)
		if _, err := b.plans.Insert(ctx, &plan); err != nil {
			return WeekPlan{}, err
		}
		return plan, nil
	}

	if err := b.plans.Update(ctx, *plan.ID, patch); err != nil {
		return WeekPlan{}, err
	}
	patch.Apply(&plan)
	return plan, nil
}
