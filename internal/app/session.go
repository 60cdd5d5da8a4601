package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"nutrition-planner/internal/auth"
	"nutrition-planner/internal/metrics"
	"nutrition-planner/internal/planner"
	"nutrition-planner/internal/recipe"
	"nutrition-planner/internal/shopping"
)

// missCounter counts selection misses of the current build and forwards
// them to the Prometheus collector.
type missCounter struct {
	n         atomic.Int64
	collector *metrics.Collector
}

func (m *missCounter) SelectionMiss(slot planner.SlotID, dt recipe.DishType) {
	m.n.Add(1)
	if m.collector != nil {
		m.collector.SelectionMiss(slot, dt)
	}
}

func (m *missCounter) reset() int { return int(m.n.Swap(0)) }

// Session owns one user's in-memory plan. Every method takes the session
// lock, so the plan is never mutated and saved at the same time.
type Session struct {
	app     *App
	auth    auth.Authenticator
	builder *planner.Builder
	saver   *AutoSaver
	misses  *missCounter
	logger  *zap.Logger

	mu     sync.Mutex
	plan   *planner.Plan
	week   int
	notice error
}

// Plan returns the current plan, or nil before generation or load.
func (s *Session) Plan() *planner.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan
}

// Week returns the week number the plan is saved under.
func (s *Session) Week() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.week
}

// UseWeek sets the week number later saves are stored under. Weeks below
// one are ignored.
func (s *Session) UseWeek(week int) {
	if week < 1 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.week = week
}

// Notice returns the last persistence failure, cleared by the next
// successful save or load.
func (s *Session) Notice() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notice
}

// Generate builds a new plan and makes it current. A ValidationError leaves
// the previous plan untouched.
func (s *Session) Generate(ctx context.Context, goals planner.Goals, settings planner.Settings) (*planner.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	s.misses.reset()
	plan, err := s.builder.GeneratePlan(goals, settings)
	if err != nil {
		return nil, err
	}
	s.plan = plan
	s.app.recordRun(ctx, metrics.NewGenerationMetric(metrics.OpGenerate, plan, s.misses.reset(), time.Since(start)))
	s.saver.Schedule()
	return plan, nil
}

// Regenerate rebuilds every meal of the current plan with a fresh history.
func (s *Session) Regenerate(ctx context.Context) (*planner.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.plan == nil {
		return nil, planner.ErrNoPlan
	}
	start := time.Now()
	s.misses.reset()
	if err := s.builder.RegenerateWithVariety(s.plan); err != nil {
		return nil, err
	}
	s.app.recordRun(ctx, metrics.NewGenerationMetric(metrics.OpRegenerate, s.plan, s.misses.reset(), time.Since(start)))
	s.saver.Schedule()
	return s.plan, nil
}

// Load replaces the current plan with the one stored for week and rebuilds
// the usage history from it. It returns nil, nil when nothing is stored.
func (s *Session) Load(ctx context.Context, week int) (*planner.Plan, error) {
	u, err := auth.RequireUser(ctx, s.auth)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := s.app.plans.LoadPlan(ctx, u.ID, week)
	if err != nil {
		s.fail("load", err)
		return nil, s.notice
	}
	s.notice = nil
	if plan == nil {
		return nil, nil
	}
	s.builder.RebuildTracker(plan)
	s.plan = plan
	s.week = week
	s.logger.Info("Plan loaded", zap.String("user", u.ID), zap.Int("week", week), zap.String("plan_id", plan.ID))
	return plan, nil
}

// Save stores the current plan for the signed-in user. A failure is kept
// as the session notice and the in-memory plan stays usable.
func (s *Session) Save(ctx context.Context) error {
	u, err := auth.RequireUser(ctx, s.auth)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.plan == nil {
		return planner.ErrNoPlan
	}
	if err := s.app.plans.SavePlan(ctx, u.ID, s.week, s.plan); err != nil {
		s.fail("save", err)
		return s.notice
	}
	s.notice = nil
	s.logger.Debug("Plan saved", zap.String("user", u.ID), zap.Int("week", s.week))
	return nil
}

// fail records a persistence failure. Caller holds s.mu.
func (s *Session) fail(op string, err error) {
	var perr *planner.PersistenceError
	if !errors.As(err, &perr) {
		err = &planner.PersistenceError{Op: op, Err: err}
	}
	s.notice = err
	s.app.persistenceFailed(op)
	s.logger.Warn("Plan persistence failed", zap.String("op", op), zap.Error(err))
}

// Close saves any pending change and stops the auto-saver.
func (s *Session) Close(ctx context.Context) error {
	err := s.saver.Flush(ctx)
	s.saver.Stop()
	return err
}

// mutate runs fn against the current plan and schedules a save when it succeeds.
func (s *Session) mutate(fn func(plan *planner.Plan) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.plan == nil {
		return planner.ErrNoPlan
	}
	if err := fn(s.plan); err != nil {
		return err
	}
	s.saver.Schedule()
	return nil
}

// AddRecipe appends the named recipe at its default portion.
func (s *Session) AddRecipe(week, day int, slot planner.SlotID, name string) (*planner.ScaledRecipe, error) {
	var added *planner.ScaledRecipe
	err := s.mutate(func(plan *planner.Plan) (err error) {
		added, err = s.builder.AddRecipeToMeal(plan, week, day, slot, name)
		return err
	})
	return added, err
}

// RemoveRecipe drops the dish at index.
func (s *Session) RemoveRecipe(week, day int, slot planner.SlotID, index int) error {
	return s.mutate(func(plan *planner.Plan) error {
		return s.builder.RemoveRecipeFromMeal(plan, week, day, slot, index)
	})
}

// ClearMeal drops every dish of a meal.
func (s *Session) ClearMeal(week, day int, slot planner.SlotID) error {
	return s.mutate(func(plan *planner.Plan) error {
		return s.builder.RemoveAllRecipesFromMeal(plan, week, day, slot)
	})
}

// AdjustPortion resizes the dish at index.
func (s *Session) AdjustPortion(week, day int, slot planner.SlotID, index int, grams float64) error {
	return s.mutate(func(plan *planner.Plan) error {
		return s.builder.AdjustPortion(plan, week, day, slot, index, grams)
	})
}

// FillMeal tops the meal up with one balancing dish. It returns nil when
// the meal needs nothing or no recipe fits.
func (s *Session) FillMeal(week, day int, slot planner.SlotID) (*planner.ScaledRecipe, error) {
	var added *planner.ScaledRecipe
	err := s.mutate(func(plan *planner.Plan) (err error) {
		added, err = s.builder.FillMeal(plan, week, day, slot)
		return err
	})
	return added, err
}

// Stats reports recipe variety of the current plan.
func (s *Session) Stats() planner.VarietyStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return planner.Stats(s.plan)
}

// Search looks up recipes, ranking repeats of the current plan lower.
func (s *Session) Search(query string) []recipe.Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()

	restrictions, diet := s.filters()
	return s.app.corpus.Search(query, restrictions, diet, s.builder.Tracker())
}

// Browse lists recipes of one dish type that fit the current plan's
// diet and restrictions, least used first.
func (s *Session) Browse(dt recipe.DishType) []recipe.Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()

	restrictions, diet := s.filters()
	return s.app.corpus.Browse(dt, restrictions, diet, s.builder.Tracker())
}

// filters returns the current plan's restrictions and diet. Caller holds s.mu.
func (s *Session) filters() ([]recipe.Restriction, recipe.DietType) {
	if s.plan == nil {
		return nil, ""
	}
	return s.plan.Settings.Restrictions, s.plan.Settings.DietType
}

// ShoppingList aggregates the current plan. When someone is signed in and
// a list repository is configured the list is also stored; a storage
// failure is logged and the list is still returned.
func (s *Session) ShoppingList(ctx context.Context) (*shopping.ShoppingList, error) {
	s.mu.Lock()
	plan := s.plan
	var list *shopping.ShoppingList
	if plan != nil {
		list = &shopping.ShoppingList{PlanID: plan.ID, Items: s.app.aggregator.Aggregate(plan)}
	}
	s.mu.Unlock()

	if list == nil {
		return nil, planner.ErrNoPlan
	}
	if s.app.lists == nil {
		return list, nil
	}

	u, err := auth.RequireUser(ctx, s.auth)
	if errors.Is(err, auth.ErrUnauthenticated) {
		return list, nil
	}
	if err != nil {
		return nil, err
	}
	list.UserID = u.ID
	if _, err := s.app.lists.Save(ctx, list); err != nil {
		s.logger.Warn("Failed to store shopping list", zap.String("plan_id", list.PlanID), zap.Error(err))
	}
	return list, nil
}

// History lists the user's most recent saves.
func (s *Session) History(ctx context.Context, limit int) ([]planner.HistoryEntry, error) {
	u, err := auth.RequireUser(ctx, s.auth)
	if err != nil {
		return nil, err
	}
	return s.app.plans.ListRecentByUserID(ctx, u.ID, limit)
}
