// Package reconcile merges external backup documents into the local store
// and keeps the store in step with the cloud copy.
//
// There is no conflict detection: a restored file always adds records, and
// a cloud merge overwrites local records that share an id.
package reconcile

import (
	"context"
	"fmt"

	"bear-kitchen/internal/backup"
	"bear-kitchen/internal/planner"
	"bear-kitchen/internal/recipe"
)

// RecipeStore is the part of recipe.Repository reconciliation writes through.
type RecipeStore interface {
	BulkUpsert(ctx context.Context, records []recipe.Recipe) (recipe.UpsertResult, error)
	List(ctx context.Context, opts recipe.ListOptions) ([]recipe.Recipe, error)
	MarkAllSynced(ctx context.Context, at int64) error
}

// PlanStore is the part of planner.PlanRepository reconciliation writes through.
type PlanStore interface {
	BulkUpsert(ctx context.Context, plans []planner.WeekPlan) (planner.UpsertResult, error)
}

// Result counts the records a reconciliation added and replaced.
type Result struct {
	Added    int
	Replaced int
}

// Total is the number of records written.
func (r Result) Total() int {
	return r.Added + r.Replaced
}

// RestoreFromFile imports a recipe backup as new records. Every id in the
// document is dropped, so the store grows by exactly the number of records
// in data. A malformed document is rejected before anything is written.
func RestoreFromFile(ctx context.Context, store RecipeStore, data []byte) (Result, error) {
	records, err := backup.DecodeRecipes(data)
	if err != nil {
		return Result{}, err
	}
	for i := range records {
		records[i] = records[i].WithoutID()
	}
	return upsertRecipes(ctx, store, records)
}

// MergeCloud applies the cloud copy of the recipe collection. Records keep
// their ids, so a remote record replaces the local one with the same id
// regardless of which is newer. Records with unknown ids are added.
func MergeCloud(ctx context.Context, store RecipeStore, data []byte) (Result, error) {
	records, err := backup.DecodeRecipes(data)
	if err != nil {
		return Result{}, err
	}
	return upsertRecipes(ctx, store, records)
}

// RestorePlansFromFile imports a week plan backup as new plans.
func RestorePlansFromFile(ctx context.Context, store PlanStore, data []byte) (Result, error) {
	plans, err := backup.DecodePlans(data)
	if err != nil {
		return Result{}, err
	}
	for i := range plans {
		plans[i].ID = nil
	}
	return upsertPlans(ctx, store, plans)
}

// MergePlans applies a week plan document, keeping ids. Like MergeCloud the
// incoming plan wins.
func MergePlans(ctx context.Context, store PlanStore, data []byte) (Result, error) {
	plans, err := backup.DecodePlans(data)
	if err != nil {
		return Result{}, err
	}
	return upsertPlans(ctx, store, plans)
}

func upsertRecipes(ctx context.Context, store RecipeStore, records []recipe.Recipe) (Result, error) {
	res, err := store.BulkUpsert(ctx, records)
	result := Result{Added: res.Inserted, Replaced: res.Replaced}
	if err != nil {
		return result, fmt.Errorf("merge stopped after %d records: %w", result.Total(), err)
	}
	return result, nil
}

func upsertPlans(ctx context.Context, store PlanStore, plans []planner.WeekPlan) (Result, error) {
	res, err := store.BulkUpsert(ctx, plans)
	result := Result{Added: res.Inserted, Replaced: res.Replaced}
	if err != nil {
		return result, fmt.Errorf("merge stopped after %d plans: %w", result.Total(), err)
	}
	return result, nil
}
