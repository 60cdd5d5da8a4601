package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrition-planner/internal/auth"
	"nutrition-planner/internal/config"
	"nutrition-planner/internal/database"
	"nutrition-planner/internal/metrics"
	"nutrition-planner/internal/planner"
	"nutrition-planner/internal/recipe"
	"nutrition-planner/internal/shopping"
)

type fakeStore struct {
	mu       sync.Mutex
	plans    map[string]*planner.Plan
	saves    int
	saveErr  error
	loadErr  error
	history  []planner.HistoryEntry
	lastUser string
}

func newFakeStore() *fakeStore {
	return &fakeStore{plans: make(map[string]*planner.Plan)}
}

func key(userID string, week int) string { return fmt.Sprintf("%s/%d", userID, week) }

func (f *fakeStore) LoadPlan(_ context.Context, userID string, week int) (*planner.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.plans[key(userID, week)], nil
}

func (f *fakeStore) SavePlan(_ context.Context, userID string, week int, plan *planner.Plan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.plans[key(userID, week)] = plan
	return nil
}

func (f *fakeStore) ListRecentByUserID(_ context.Context, userID string, limit int) ([]planner.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUser = userID
	if len(f.history) > limit {
		return f.history[:limit], nil
	}
	return f.history, nil
}

func (f *fakeStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

func rcp(name, category string, cal, protein, fat, carbs float64, ingredients ...string) recipe.Recipe {
	return recipe.Recipe{
		Name:         name,
		Category:     category,
		Ingredients:  ingredients,
		Instructions: []string{"Приготовить"},
		Nutrition:    recipe.Nutrition{Calories: cal, Protein: protein, Fat: fat, Carbs: carbs},
	}
}

func testCorpus() *recipe.Corpus {
	return recipe.NewCorpus([]recipe.Recipe{
		rcp("Овсяная каша", "Каши", 110, 4, 3, 18, "Овсяные хлопья 50 г", "Молоко 200 мл", "Соль по вкусу"),
		rcp("Омлет с овощами", "Яичные блюда", 140, 10, 10, 3, "Яйца 3 шт", "Помидор 1 шт"),
		rcp("Творог с зеленью", "Молочное", 150, 17, 5, 4, "Творог 200 г", "Укроп 1 пучок"),
		rcp("Суп куриный", "Супы", 50, 4, 2, 4, "Курица 300 г", "Картофель 2 шт", "Морковь 1 шт"),
		rcp("Борщ", "Супы", 55, 3, 2, 6, "Говядина 300 г", "Свекла 1 шт", "Капуста 200 г"),
		rcp("Котлеты говяжьи", "Горячее", 220, 18, 15, 5, "Говяжий фарш 500 г", "Лук 1 шт", "Яйцо 1 шт"),
		rcp("Курица запеченная", "Птица", 165, 25, 7, 0, "Куриное филе 400 г", "Соль по вкусу"),
		rcp("Салат овощной", "Салаты", 40, 1, 2, 5, "Огурец 2 шт", "Помидор 2 шт"),
		rcp("Гречка на гарнир", "Гарниры", 130, 4, 1, 25, "Гречка 100 г", "Вода 200 мл"),
		rcp("Лосось на гриле", "Рыба", 200, 22, 12, 0, "Лосось 300 г", "Лимон 1 шт"),
		rcp("Грецкие орехи", "Орехи", 650, 15, 65, 14, "Орехи грецкие 50 г"),
		rcp("Банан", "Фрукты", 90, 1, 0.3, 23, "Банан 1 шт"),
		rcp("Кефир", "Молочное", 50, 3, 2.5, 4, "Кефир 250 мл"),
	})
}

func testConfig() *config.Config {
	th := planner.DefaultThresholds()
	return &config.Config{
		MaxDishesPerMeal:       planner.DefaultMaxDishesPerMeal,
		PlannerSeed:            7,
		BalanceProteinGap:      th.MealProteinGap,
		BalanceFatGap:          th.MealFatGap,
		BalanceCarbsGap:        th.MealCarbsGap,
		BalanceMealMinCalories: th.MealMinCalories,
		BalanceDayMinCalories:  th.DayMinCalories,
		FillProteinGap:         th.DayProteinGap,
		FillCarbsGap:           th.FillCarbsGap,
	}
}

var (
	goals    = planner.Goals{Calories: 2000, Protein: 100, Fat: 70, Carbs: 250}
	settings = planner.Settings{MealCount: 3, DurationDays: 7, DietType: recipe.DietBalanced}
)

type fixture struct {
	app   *App
	store *fakeStore
	reg   *prometheus.Registry
	runs  *metrics.Store
	lists *shopping.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "app.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		store: newFakeStore(),
		reg:   prometheus.NewRegistry(),
		runs:  metrics.NewStore(db.SQL),
		lists: shopping.NewRepository(db.SQL),
	}
	f.app = NewApp(testConfig(), testCorpus(), f.store, f.lists, f.runs, metrics.NewCollector(f.reg), nil)
	return f
}

func TestSession_GenerateRecordsRunAndSaves(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.app.NewSession(auth.NewStatic("alice"))

	plan, err := s.Generate(ctx, goals, settings)
	require.NoError(t, err)
	require.Len(t, plan.Weeks, 1)
	assert.Same(t, plan, s.Plan())
	assert.Equal(t, 1, s.Week())
	assert.True(t, s.saver.Pending())

	usage, err := f.runs.GetDailyUsage(ctx, 1)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, 1, usage[0].Generations)
	assert.Equal(t, planner.Stats(plan).TotalDishes, usage[0].TotalDishes)

	n, err := testutil.GatherAndCount(f.reg, "nutrition_planner_plans_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 1, f.store.saveCount())
	assert.Same(t, plan, f.store.plans[key("alice", 1)])
}

func TestSession_UseWeek(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.app.NewSession(auth.NewStatic("alice"))

	s.UseWeek(0)
	assert.Equal(t, 1, s.Week())
	s.UseWeek(5)
	plan, err := s.Generate(ctx, goals, settings)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Week())

	require.NoError(t, s.Save(ctx))
	assert.Same(t, plan, f.store.plans[key("alice", 5)])
	assert.Nil(t, f.store.plans[key("alice", 1)])
	s.saver.Stop()
}

func TestSession_ValidationErrorKeepsState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.app.NewSession(auth.NewStatic("alice"))

	_, err := s.Generate(ctx, planner.Goals{Calories: 999, Protein: 30, Fat: 20, Carbs: 100}, settings)
	var verr *planner.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Nil(t, s.Plan())
	assert.False(t, s.saver.Pending())

	first, err := s.Generate(ctx, goals, settings)
	require.NoError(t, err)
	_, err = s.Generate(ctx, planner.Goals{Calories: 5001, Protein: 30, Fat: 20, Carbs: 100}, settings)
	require.ErrorAs(t, err, &verr)
	assert.Same(t, first, s.Plan())
}

func TestSession_SaveFailureIsNonBlocking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.app.NewSession(auth.NewStatic("alice"))
	_, err := s.Generate(ctx, goals, settings)
	require.NoError(t, err)

	f.store.saveErr = errors.New("disk full")
	err = s.Save(ctx)
	var perr *planner.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "save", perr.Op)
	assert.Equal(t, err, s.Notice())

	require.NotNil(t, s.Plan())
	require.NoError(t, s.ClearMeal(1, 1, planner.SlotBreakfast))
	m, err := s.Plan().Meal(1, 1, planner.SlotBreakfast)
	require.NoError(t, err)
	assert.Empty(t, m.Recipes)

	n, err := testutil.GatherAndCount(f.reg, "nutrition_planner_persistence_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f.store.saveErr = nil
	require.NoError(t, s.Save(ctx))
	assert.NoError(t, s.Notice())
	assert.Equal(t, 1, f.store.saveCount())
}

func TestSession_RequiresUserForPersistence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.app.NewSession(auth.NewStatic(""))

	_, err := s.Load(ctx, 1)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)

	_, err = s.Generate(ctx, goals, settings)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Save(ctx), auth.ErrUnauthenticated)

	list, err := s.ShoppingList(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, list.Items)
	assert.Zero(t, list.ID)

	_, err = s.History(ctx, 5)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestSession_LoadRebuildsTracker(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	author := f.app.NewSession(auth.NewStatic("alice"))
	stored, err := author.Generate(ctx, goals, settings)
	require.NoError(t, err)
	f.store.plans[key("alice", 2)] = stored
	author.saver.Stop()

	s := f.app.NewSession(auth.NewStatic("alice"))
	missing, err := s.Load(ctx, 3)
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.Nil(t, s.Plan())

	plan, err := s.Load(ctx, 2)
	require.NoError(t, err)
	assert.Same(t, stored, plan)
	assert.Equal(t, 2, s.Week())

	m, err := plan.Meal(1, 1, planner.SlotLunch)
	require.NoError(t, err)
	require.NotEmpty(t, m.Recipes)
	assert.Positive(t, s.builder.Tracker().UsageCount(m.Recipes[0].Name))
	assert.False(t, s.saver.Pending())

	f.store.loadErr = errors.New("connection reset")
	_, err = s.Load(ctx, 2)
	var perr *planner.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "load", perr.Op)
	assert.Same(t, stored, s.Plan())
}

func TestSession_Mutations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.app.NewSession(auth.NewStatic("alice"))

	_, err := s.AddRecipe(1, 1, planner.SlotLunch, "Борщ")
	assert.ErrorIs(t, err, planner.ErrNoPlan)
	assert.ErrorIs(t, s.RemoveRecipe(1, 1, planner.SlotLunch, 0), planner.ErrNoPlan)

	_, err = s.Generate(ctx, goals, settings)
	require.NoError(t, err)
	require.NoError(t, s.Close(ctx))
	s = f.app.NewSession(auth.NewStatic("alice"))
	_, err = s.Load(ctx, 1)
	require.NoError(t, err)

	_, err = s.AddRecipe(1, 1, planner.SlotLunch, "Пицца")
	assert.ErrorIs(t, err, recipe.ErrRecipeNotFound)
	assert.False(t, s.saver.Pending())

	require.NoError(t, s.ClearMeal(1, 1, planner.SlotLunch))
	added, err := s.AddRecipe(1, 1, planner.SlotLunch, "Борщ")
	require.NoError(t, err)
	assert.Equal(t, "Борщ", added.Name)
	assert.True(t, s.saver.Pending())

	require.NoError(t, s.AdjustPortion(1, 1, planner.SlotLunch, 0, 300))
	m, err := s.Plan().Meal(1, 1, planner.SlotLunch)
	require.NoError(t, err)
	assert.Equal(t, 300.0, m.Recipes[0].PortionGrams)
	assert.InDelta(t, m.Recipes[0].ScaledNutrition.Calories, m.Actual.Calories, 1e-9)

	assert.ErrorIs(t, s.RemoveRecipe(1, 1, planner.SlotLunch, 5), planner.ErrIndexOutOfRange)
	require.NoError(t, s.RemoveRecipe(1, 1, planner.SlotLunch, 0))
	assert.Empty(t, m.Recipes)

	_, err = s.FillMeal(1, 9, planner.SlotLunch)
	assert.ErrorIs(t, err, planner.ErrMealNotFound)

	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 2, f.store.saveCount())
}

func TestSession_Regenerate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.app.NewSession(auth.NewStatic("alice"))

	_, err := s.Regenerate(ctx)
	assert.ErrorIs(t, err, planner.ErrNoPlan)

	plan, err := s.Generate(ctx, goals, settings)
	require.NoError(t, err)
	again, err := s.Regenerate(ctx)
	require.NoError(t, err)
	assert.Same(t, plan, again)
	assert.Len(t, again.Weeks, 1)

	usage, err := f.runs.GetDailyUsage(ctx, 1)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, 2, usage[0].Generations)
}

func TestSession_ShoppingListIsStored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.app.NewSession(auth.NewStatic("alice"))

	_, err := s.ShoppingList(ctx)
	assert.ErrorIs(t, err, planner.ErrNoPlan)

	plan, err := s.Generate(ctx, goals, settings)
	require.NoError(t, err)

	list, err := s.ShoppingList(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, list.Items)
	assert.NotZero(t, list.ID)
	assert.Equal(t, "alice", list.UserID)
	for _, it := range list.Items {
		assert.NotEqual(t, "соль", it.Name)
	}

	stored, err := f.lists.GetByPlanID(ctx, "alice", plan.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, list.Items, stored.Items)
}

func TestSession_SearchAndHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.history = []planner.HistoryEntry{{PlanID: "p2", WeekNumber: 1}, {PlanID: "p1", WeekNumber: 1}}
	s := f.app.NewSession(auth.NewStatic("alice"))

	found := s.Search("борщ")
	require.NotEmpty(t, found)
	assert.Equal(t, "Борщ", found[0].Name)

	var soups []string
	for _, r := range s.Browse(recipe.Soup) {
		soups = append(soups, r.Name)
	}
	assert.ElementsMatch(t, []string{"Суп куриный", "Борщ"}, soups)

	entries, err := s.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "p2", entries[0].PlanID)
	assert.Equal(t, "alice", f.store.lastUser)

	assert.Zero(t, s.Stats().TotalDishes)
}
