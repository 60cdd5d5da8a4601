package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nutrition-planner/internal/planner"
)

// Operations recorded in the generation_metrics table.
const (
	OpGenerate   = "generate"
	OpRegenerate = "regenerate"
)

// GenerationMetric records the outcome of a single plan build.
type GenerationMetric struct {
	Operation       string
	DietType        string
	MealCount       int
	Weeks           int
	Dishes          int
	UniqueRecipes   int
	SelectionMisses int
	LatencyMS       int64
	Timestamp       time.Time
}

// NewGenerationMetric summarizes a built plan.
func NewGenerationMetric(op string, plan *planner.Plan, misses int, latency time.Duration) GenerationMetric {
	stats := planner.Stats(plan)
	return GenerationMetric{
		Operation:       op,
		DietType:        string(plan.Settings.DietType),
		MealCount:       plan.Settings.MealCount,
		Weeks:           len(plan.Weeks),
		Dishes:          stats.TotalDishes,
		UniqueRecipes:   stats.UniqueRecipes,
		SelectionMisses: misses,
		LatencyMS:       latency.Milliseconds(),
		Timestamp:       time.Now().UTC(),
	}
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m GenerationMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generation_metrics
		 (operation, diet_type, meal_count, weeks, dishes, unique_recipes, selection_misses, latency_ms, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Operation, m.DietType, m.MealCount, m.Weeks, m.Dishes, m.UniqueRecipes, m.SelectionMisses, m.LatencyMS, ts.UTC())
	if err != nil {
		return fmt.Errorf("failed to record generation metric: %w", err)
	}
	return nil
}

// DailyUsage aggregates plan builds for a single day.
type DailyUsage struct {
	Date            string
	Generations     int
	TotalDishes     int
	SelectionMisses int
	AvgLatencyMS    float64
}

// GetDailyUsage retrieves usage for the last N days, newest day first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := s.now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(ctx,
		`SELECT substr(timestamp, 1, 10) AS day, COUNT(*), SUM(dishes), SUM(selection_misses), AVG(latency_ms)
		 FROM generation_metrics WHERE timestamp >= ?
		 GROUP BY day ORDER BY day DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.Generations, &u.TotalDishes, &u.SelectionMisses, &u.AvgLatencyMS); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := s.now().UTC().AddDate(0, 0, -olderThanDays)
	res, err := s.db.ExecContext(ctx, `DELETE FROM generation_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up generation metrics: %w", err)
	}
	return res.RowsAffected()
}
