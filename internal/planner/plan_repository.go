package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"bear-kitchen/internal/database"
	"bear-kitchen/internal/shared"
)

const planColumns = "id, week_start, name, days, shopping_list"

// ListOptions selects the ordering of List. OrderBy must be an indexed field.
type ListOptions struct {
	OrderBy string
	Desc    bool
}

// UpsertResult reports what BulkUpsert did, in input order.
type UpsertResult struct {
	IDs      []int64
	Inserted int
	Replaced int
}

// PlanPatch holds the fields to merge into a stored plan. Nil fields are left untouched.
type PlanPatch struct {
	WeekStart    *string
	Name         *string
	Days         *Days
	ShoppingList *string
}

// Apply merges the non-nil fields of p into plan.
func (p PlanPatch) Apply(plan *WeekPlan) {
	if p.WeekStart != nil {
		plan.WeekStart = *p.WeekStart
	}
	if p.Name != nil {
		v := *p.Name
		plan.Name = &v
	}
	if p.Days != nil {
		plan.Days = *p.Days
	}
	if p.ShoppingList != nil {
		v := *p.ShoppingList
		plan.ShoppingList = &v
	}
}

// PlanRepository is a database-backed repository for week plans.
type PlanRepository struct {
	db       *sql.DB
	notifier database.Notifier
}

// NewPlanRepository creates a new PlanRepository. Every committed write is reported to notifier.
func NewPlanRepository(d *sql.DB, notifier database.Notifier) *PlanRepository {
	if notifier == nil {
		notifier = database.NopNotifier{}
	}
	return &PlanRepository{db: d, notifier: notifier}
}

// Insert stores plan as a new record and sets the assigned id on it.
func (r *PlanRepository) Insert(ctx context.Context, plan *WeekPlan) (int64, error) {
	if err := normalizePlan(plan); err != nil {
		return 0, fmt.Errorf("failed to insert plan: %w", err)
	}

	var id int64
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		id, err = insertPlan(ctx, tx, *plan)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert plan: %w", err)
	}

	plan.SetID(id)
	r.notifier.Notify(database.CollectionPlans)
	return id, nil
}

// Update merges patch into the plan with the given id.
func (r *PlanRepository) Update(ctx context.Context, id int64, patch PlanPatch) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		current, err := getPlan(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("plan %d: %w", id, shared.ErrNotFound)
		}
		patch.Apply(current)
		if err := normalizePlan(current); err != nil {
			return err
		}
		return writePlan(ctx, tx, *current)
	})
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}

	r.notifier.Notify(database.CollectionPlans)
	return nil
}

// Get retrieves a plan by its ID. A missing plan is (nil, nil).
func (r *PlanRepository) Get(ctx context.Context, id int64) (*WeekPlan, error) {
	plan, err := getPlan(ctx, r.db, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan by ID: %w", err)
	}
	return plan, nil
}

// Delete removes the plan. Deleting a missing id is not an error.
func (r *PlanRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM plans WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", database.StorageErr(err))
	}
	if n, _ := res.RowsAffected(); n > 0 {
		r.notifier.Notify(database.CollectionPlans)
	}
	return nil
}

// List returns every plan ordered by an indexed field, ties broken by id.
// The zero ListOptions orders by weekStart ascending.
func (r *PlanRepository) List(ctx context.Context, opts ListOptions) ([]WeekPlan, error) {
	field := opts.OrderBy
	if field == "" {
		field = "weekStart"
	}
	idx, ok := database.Indexed(database.CollectionPlans, field)
	if !ok {
		return nil, fmt.Errorf("cannot order plans by %q: %w", field, shared.ErrValidation)
	}

	dir := "ASC"
	if opts.Desc {
		dir = "DESC"
	}
	query := fmt.Sprintf("SELECT %s FROM plans ORDER BY %s %s, id %s", planColumns, idx.Column, dir, dir)

	plans, err := queryPlans(ctx, r.db, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

// FindBy returns the plans whose indexed field equals value, ordered by id.
func (r *PlanRepository) FindBy(ctx context.Context, field string, value any) ([]WeekPlan, error) {
	idx, ok := database.Indexed(database.CollectionPlans, field)
	if !ok {
		return nil, fmt.Errorf("plans have no index on %q: %w", field, shared.ErrValidation)
	}

	query := fmt.Sprintf("SELECT %s FROM plans WHERE %s = ? ORDER BY id", planColumns, idx.Column)
	plans, err := queryPlans(ctx, r.db, query, value)
	if err != nil {
		return nil, fmt.Errorf("failed to find plans by %s: %w", field, err)
	}
	return plans, nil
}

// FindByWeekStart returns the first plan stored for the week containing
// weekStart, or nil. Any day of the week finds it.
func (r *PlanRepository) FindByWeekStart(ctx context.Context, weekStart string) (*WeekPlan, error) {
	key, err := NormalizeWeekStart(weekStart)
	if err != nil {
		return nil, fmt.Errorf("failed to find plan: %w", err)
	}
	plans, err := r.FindBy(ctx, "weekStart", key)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, nil
	}
	return &plans[0], nil
}

// Count returns the number of plans in the database.
func (r *PlanRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM plans").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count plans: %w", database.StorageErr(err))
	}
	return count, nil
}

// BulkUpsert writes plans in order with the same rules as the recipe store:
// an id is kept and replaces any plan stored under it, no id means a new
// plan, and every plan commits on its own.
func (r *PlanRepository) BulkUpsert(ctx context.Context, plans []WeekPlan) (UpsertResult, error) {
	var result UpsertResult
	for i, plan := range plans {
		var (
			id       int64
			replaced bool
		)
		err := normalizePlan(&plan)
		if err == nil {
			err = database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
				if plan.ID == nil {
					var err error
					id, err = insertPlan(ctx, tx, plan)
					return err
				}

				id = *plan.ID
				existing, err := getPlan(ctx, tx, id)
				if err != nil {
					return err
				}
				replaced = existing != nil
				return writePlan(ctx, tx, plan)
			})
		}
		if err != nil {
			return result, fmt.Errorf("failed to upsert plan %d of %d: %w", i+1, len(plans), err)
		}

		result.IDs = append(result.IDs, id)
		if replaced {
			result.Replaced++
		} else {
			result.Inserted++
		}
		r.notifier.Notify(database.CollectionPlans)
	}
	return result, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func getPlan(ctx context.Context, q querier, id int64) (*WeekPlan, error) {
	plan, err := scanPlan(q.QueryRowContext(ctx, "SELECT "+planColumns+" FROM plans WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return plan, err
}

func queryPlans(ctx context.Context, q querier, query string, args ...any) ([]WeekPlan, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, database.StorageErr(err)
	}
	defer rows.Close()

	var plans []WeekPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}
	if err := rows.Err(); err != nil {
		return nil, database.StorageErr(err)
	}
	return plans, nil
}

func scanPlan(s rowScanner) (*WeekPlan, error) {
	var (
		plan         WeekPlan
		id           int64
		name         sql.NullString
		days         string
		shoppingList sql.NullString
	)
	if err := s.Scan(&id, &plan.WeekStart, &name, &days, &shoppingList); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, database.StorageErr(err)
	}

	plan.SetID(id)
	if err := json.Unmarshal([]byte(days), &plan.Days); err != nil {
		return nil, fmt.Errorf("plan %d has unreadable days: %w: %w", id, shared.ErrStorage, err)
	}
	if name.Valid {
		plan.Name = &name.String
	}
	if shoppingList.Valid {
		plan.ShoppingList = &shoppingList.String
	}
	return &plan, nil
}

func insertPlan(ctx context.Context, tx *sql.Tx, plan WeekPlan) (int64, error) {
	days, err := json.Marshal(plan.Days)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal days: %w: %w", shared.ErrStorage, err)
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO plans (week_start, name, days, shopping_list) VALUES (?, ?, ?, ?)",
		plan.WeekStart, database.Nullable(plan.Name), string(days), database.Nullable(plan.ShoppingList))
	if err != nil {
		return 0, database.StorageErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, database.StorageErr(err)
	}
	return id, nil
}

// writePlan stores plan under its own id, replacing every field.
func writePlan(ctx context.Context, tx *sql.Tx, plan WeekPlan) error {
	days, err := json.Marshal(plan.Days)
	if err != nil {
		return fmt.Errorf("failed to marshal days: %w: %w", shared.ErrStorage, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO plans (id, week_start, name, days, shopping_list)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			week_start = excluded.week_start,
			name = excluded.name,
			days = excluded.days,
			shopping_list = excluded.shopping_list`,
		*plan.ID, plan.WeekStart, database.Nullable(plan.Name), string(days), database.Nullable(plan.ShoppingList))
	return database.StorageErr(err)
}

func normalizePlan(plan *WeekPlan) error {
	weekStart, err := NormalizeWeekStart(plan.WeekStart)
	if err != nil {
		return err
	}
	plan.WeekStart = weekStart
	return nil
}
