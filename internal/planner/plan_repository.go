package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Store is the persistence adapter contract: plans keyed by user and week.
// LoadPlan returns nil, nil when nothing is stored.
type Store interface {
	LoadPlan(ctx context.Context, userID string, week int) (*Plan, error)
	SavePlan(ctx context.Context, userID string, week int, plan *Plan) error
}

// SavedPlan is the stored document: the plan plus ownership metadata.
type SavedPlan struct {
	UserID     string    `json:"user_id"`
	WeekNumber int       `json:"week_number"`
	SavedAt    time.Time `json:"saved_at"`
	Plan       *Plan     `json:"plan"`
}

// HistoryEntry summarizes one past save.
type HistoryEntry struct {
	PlanID       string
	WeekNumber   int
	DietType     string
	MealCount    int
	DurationDays int
	SavedAt      time.Time
}

// PlanRepository is a sqlite-backed Store. Saves are last-write-wins.
type PlanRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(d *sql.DB) *PlanRepository {
	return &PlanRepository{db: d, now: time.Now}
}

// SavePlan upserts the plan for (userID, week) and appends a history entry.
func (r *PlanRepository) SavePlan(ctx context.Context, userID string, week int, plan *Plan) error {
	if plan == nil {
		return &PersistenceError{Op: "save", Err: ErrNoPlan}
	}
	savedAt := r.now().UTC()
	data, err := json.Marshal(SavedPlan{UserID: userID, WeekNumber: week, SavedAt: savedAt, Plan: plan})
	if err != nil {
		return &PersistenceError{Op: "save", Err: fmt.Errorf("failed to marshal plan: %w", err)}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO meal_plans (user_id, week_number, plan_id, plan_data, saved_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, week_number) DO UPDATE SET plan_id = excluded.plan_id, plan_data = excluded.plan_data, saved_at = excluded.saved_at`,
		userID, week, plan.ID, string(data), savedAt)
	if err != nil {
		return &PersistenceError{Op: "save", Err: fmt.Errorf("failed to upsert plan for user %s: %w", userID, err)}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO meal_plan_history (user_id, plan_id, week_number, diet_type, meal_count, duration_days, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, plan.ID, week, string(plan.Settings.DietType), plan.Settings.MealCount, plan.Settings.DurationDays, savedAt)
	if err != nil {
		return &PersistenceError{Op: "save", Err: fmt.Errorf("failed to append plan history: %w", err)}
	}

	if err := tx.Commit(); err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	return nil
}

// LoadPlan returns the plan stored for (userID, week), or nil if none.
func (r *PlanRepository) LoadPlan(ctx context.Context, userID string, week int) (*Plan, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT plan_data FROM meal_plans WHERE user_id = ? AND week_number = ?`, userID, week).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, &PersistenceError{Op: "load", Err: fmt.Errorf("failed to query plan for user %s: %w", userID, err)}
	}

	var saved SavedPlan
	if err := json.Unmarshal([]byte(data), &saved); err != nil {
		return nil, &PersistenceError{Op: "load", Err: fmt.Errorf("failed to unmarshal plan: %w", err)}
	}
	if saved.WeekNumber != week {
		return nil, nil
	}
	return saved.Plan, nil
}

// ListRecentByUserID retrieves the N most recent saves for a user.
func (r *PlanRepository) ListRecentByUserID(ctx context.Context, userID string, limit int) ([]HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT plan_id, week_number, diet_type, meal_count, duration_days, saved_at
		 FROM meal_plan_history WHERE user_id = ? ORDER BY saved_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, &PersistenceError{Op: "history", Err: fmt.Errorf("failed to list recent plans for user %s: %w", userID, err)}
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.PlanID, &e.WeekNumber, &e.DietType, &e.MealCount, &e.DurationDays, &e.SavedAt); err != nil {
			return nil, &PersistenceError{Op: "history", Err: err}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "history", Err: err}
	}
	return entries, nil
}
