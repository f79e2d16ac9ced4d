package app

import (
	"context"
	"encoding/json"
	"net/http"

	"bear-kitchen/internal/database"
	"bear-kitchen/internal/live"
	"bear-kitchen/internal/planner"
	"bear-kitchen/internal/recipe"
)

// RegisterRoutes adds the live feeds and the health endpoint to mux.
func (a *App) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/live/recipes", live.Handler(a.hub, database.CollectionRecipes, a.recipeFeed, a.logger))
	mux.Handle("/live/plans", live.Handler(a.hub, database.CollectionPlans, a.planFeed, a.logger))
	mux.HandleFunc("/health", a.handleHealth)
}

func (a *App) recipeFeed(ctx context.Context) ([]recipe.Recipe, error) {
	return a.recipes.List(ctx, recipe.ListOptions{OrderBy: "updatedAt", Desc: true})
}

func (a *App) planFeed(ctx context.Context) ([]planner.WeekPlan, error) {
	return a.plans.List(ctx, planner.ListOptions{OrderBy: "weekStart", Desc: true})
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := a.Health(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if health.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(health)
}
