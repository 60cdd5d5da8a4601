package planner

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrition-planner/internal/recipe"
)

var standardGoals = Goals{Calories: 2000, Protein: 100, Fat: 70, Carbs: 250}

func TestValidate_Boundaries(t *testing.T) {
	settings := Settings{MealCount: 3, DurationDays: 7, DietType: recipe.DietBalanced}

	tests := []struct {
		name  string
		goals Goals
		ok    bool
	}{
		{"LowerBound", Goals{Calories: 1000, Protein: 30, Fat: 20, Carbs: 100}, true},
		{"UpperBound", Goals{Calories: 5000, Protein: 300, Fat: 150, Carbs: 500}, true},
		{"CaloriesTooLow", Goals{Calories: 999, Protein: 30, Fat: 20, Carbs: 100}, false},
		{"CaloriesTooHigh", Goals{Calories: 5001, Protein: 30, Fat: 20, Carbs: 100}, false},
		{"ProteinTooLow", Goals{Calories: 2000, Protein: 29, Fat: 20, Carbs: 100}, false},
		{"FatTooHigh", Goals{Calories: 2000, Protein: 100, Fat: 151, Carbs: 200}, false},
		{"CarbsTooLow", Goals{Calories: 2000, Protein: 100, Fat: 70, Carbs: 99}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.goals, settings)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Len(t, verr.Violations, 1)
		})
	}
}

func TestValidate_Settings(t *testing.T) {
	var verr *ValidationError

	err := Validate(standardGoals, Settings{MealCount: 6, DurationDays: 7})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Settings.MealCount", verr.Violations[0].Field)

	err = Validate(standardGoals, Settings{MealCount: 3, DurationDays: 0})
	require.True(t, errors.As(err, &verr))

	err = Validate(standardGoals, Settings{MealCount: 3, DurationDays: 7, DietType: "carnivore"})
	require.True(t, errors.As(err, &verr))

	assert.NoError(t, Validate(standardGoals, Settings{MealCount: 5, DurationDays: 28}))
}

func TestGeneratePlan_ScenarioA(t *testing.T) {
	b := newTestBuilder()
	plan, err := b.GeneratePlan(standardGoals, Settings{MealCount: 3, DurationDays: 28, DietType: recipe.DietBalanced})
	require.NoError(t, err)

	assert.NotEmpty(t, plan.ID)
	require.Len(t, plan.Weeks, 4)
	for wn := 1; wn <= 4; wn++ {
		week := plan.Weeks[wn]
		require.NotNil(t, week, "week %d", wn)
		assert.Equal(t, wn, week.Number)
		require.Len(t, week.Days, 7)
		for dn := 1; dn <= 7; dn++ {
			day := week.Days[dn]
			require.NotNil(t, day)
			require.Len(t, day.Meals, 3)
			for _, slot := range []SlotID{SlotBreakfast, SlotLunch, SlotDinner} {
				m := day.Meals[slot]
				require.NotNil(t, m, "week %d day %d %s", wn, dn, slot)
				assert.NotEmpty(t, m.Recipes)
				assert.LessOrEqual(t, len(m.Recipes), DefaultMaxDishesPerMeal)
				assertConservation(t, m)
			}
		}
	}
}

func TestGeneratePlan_WeekCount(t *testing.T) {
	b := newTestBuilder()
	for days, weeks := range map[int]int{1: 1, 7: 1, 8: 2, 14: 2, 21: 3, 22: 4} {
		plan, err := b.GeneratePlan(standardGoals, Settings{MealCount: 4, DurationDays: days})
		require.NoError(t, err)
		assert.Len(t, plan.Weeks, weeks, "duration %d", days)
		for _, w := range plan.Weeks {
			assert.Len(t, w.Days, DaysPerWeek)
		}
	}
}

func TestGeneratePlan_Layouts(t *testing.T) {
	b := newTestBuilder()

	plan, err := b.GeneratePlan(standardGoals, Settings{MealCount: 5, DurationDays: 7})
	require.NoError(t, err)
	day := plan.Weeks[1].Days[1]
	for _, slot := range []SlotID{SlotBreakfast, SlotSnack1, SlotLunch, SlotSnack2, SlotDinner} {
		assert.Contains(t, day.Meals, slot)
	}
	assert.Equal(t, "Перекус", day.Meals[SlotSnack2].Name)
	assert.Equal(t, "20:00", day.Meals[SlotDinner].Time)
	assert.Equal(t, recipe.DietBalanced, plan.Settings.DietType)
}

func TestGeneratePlan_InvalidDoesNotTouchState(t *testing.T) {
	b := newTestBuilder()
	_, err := b.GeneratePlan(standardGoals, Settings{MealCount: 3, DurationDays: 7})
	require.NoError(t, err)
	before := b.Tracker().UsageCount("Суп куриный") + b.Tracker().UsageCount("Борщ")

	_, err = b.GeneratePlan(Goals{Calories: 999, Protein: 30, Fat: 20, Carbs: 100}, Settings{MealCount: 3, DurationDays: 7})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	after := b.Tracker().UsageCount("Суп куриный") + b.Tracker().UsageCount("Борщ")
	assert.Equal(t, before, after)
	assert.Positive(t, after)
}

func TestGeneratePlan_Diets(t *testing.T) {
	b := NewBuilder(testCorpus(), WithRand(rand.New(rand.NewSource(7))))

	plan, err := b.GeneratePlan(standardGoals, Settings{MealCount: 4, DurationDays: 14, DietType: recipe.DietVegetarian})
	require.NoError(t, err)
	plan.Visit(func(_, _ int, m *Meal) {
		for _, r := range m.Recipes {
			assert.True(t, recipe.IsAllowed(r.Recipe, nil, recipe.DietVegetarian), "%s is not vegetarian", r.Name)
		}
	})

	plan, err = b.GeneratePlan(standardGoals, Settings{MealCount: 3, DurationDays: 7, Restrictions: []recipe.Restriction{recipe.NoMilk, recipe.NoEggs}})
	require.NoError(t, err)
	plan.Visit(func(_, _ int, m *Meal) {
		for _, r := range m.Recipes {
			assert.True(t, recipe.IsAllowed(r.Recipe, []recipe.Restriction{recipe.NoMilk, recipe.NoEggs}, recipe.DietBalanced), r.Name)
		}
	})
}

func TestGeneratePlan_SelectionMissIsNotFatal(t *testing.T) {
	obs := &missCounter{}
	// Every recipe in the fixture is excluded, so nothing can be selected.
	b := NewBuilder(testCorpus(), WithRand(constRand(0.5)), WithObserver(obs))
	plan, err := b.GeneratePlan(standardGoals, Settings{MealCount: 3, DurationDays: 7, Restrictions: []recipe.Restriction{" "}})
	require.NoError(t, err)

	plan.Visit(func(_, _ int, m *Meal) {
		assert.Empty(t, m.Recipes)
		assert.Equal(t, recipe.Nutrition{}, m.Actual)
	})
	assert.NotEmpty(t, obs.misses)
}

func TestGeneratePlan_MaxDishesPerMeal(t *testing.T) {
	b := newTestBuilder(WithMaxDishesPerMeal(3))
	plan, err := b.GeneratePlan(Goals{Calories: 5000, Protein: 300, Fat: 150, Carbs: 500}, Settings{MealCount: 3, DurationDays: 7})
	require.NoError(t, err)
	plan.Visit(func(_, _ int, m *Meal) {
		assert.LessOrEqual(t, len(m.Recipes), 3)
	})
}

func TestRegenerateWithVariety(t *testing.T) {
	b := NewBuilder(testCorpus(), WithRand(rand.New(rand.NewSource(1))))
	plan, err := b.GeneratePlan(standardGoals, Settings{MealCount: 3, DurationDays: 14})
	require.NoError(t, err)
	id := plan.ID

	require.NoError(t, b.RegenerateWithVariety(plan))
	assert.Equal(t, id, plan.ID)
	assert.Len(t, plan.Weeks, 2)

	// Usage history must describe the rebuilt plan only.
	total := 0
	for _, r := range testCorpus().All() {
		total += b.Tracker().UsageCount(r.Name)
	}
	assert.Equal(t, Stats(plan).TotalDishes, total)

	assert.ErrorIs(t, b.RegenerateWithVariety(nil), ErrNoPlan)
}

func TestRebuildTracker(t *testing.T) {
	b := newTestBuilder()
	plan, err := b.GeneratePlan(standardGoals, Settings{MealCount: 3, DurationDays: 7})
	require.NoError(t, err)

	fresh := newTestBuilder()
	fresh.RebuildTracker(plan)
	for _, r := range testCorpus().All() {
		assert.Equal(t, b.Tracker().UsageCount(r.Name), fresh.Tracker().UsageCount(r.Name), r.Name)
	}
}

func TestCorrectMacros(t *testing.T) {
	assert.Equal(t, standardGoals, CorrectMacros(standardGoals))

	got := CorrectMacros(Goals{Calories: 2000, Protein: 200, Fat: 100, Carbs: 300})
	assert.Equal(t, Goals{Calories: 2000, Protein: 138, Fat: 69, Carbs: 207}, got)
}

func TestSlotSubGoals(t *testing.T) {
	layout := Layout(3)
	breakfast := layout[0].SubGoals(standardGoals)
	assert.Equal(t, recipe.Nutrition{Calories: 500, Protein: 30, Fat: 18, Carbs: 50}, breakfast)

	lunch := layout[1].SubGoals(standardGoals)
	assert.Equal(t, recipe.Nutrition{Calories: 900, Protein: 45, Fat: 32, Carbs: 113}, lunch)

	assert.Equal(t, fallbackLayout, Layout(7))
	assert.Equal(t, SlotSnack, SlotSnack2.Kind())
	assert.Equal(t, SlotBreakfast, SlotID("brunch").Kind())
}

func TestStats(t *testing.T) {
	plan := &Plan{Weeks: map[int]*Week{1: {Number: 1, Days: map[int]*Day{
		1: {DayNumber: 1, Meals: map[SlotID]*Meal{
			SlotBreakfast: {Recipes: []ScaledRecipe{{Recipe: recipe.Recipe{Name: "A"}}, {Recipe: recipe.Recipe{Name: "B"}}}},
			SlotLunch:     {Recipes: []ScaledRecipe{{Recipe: recipe.Recipe{Name: "A"}}}},
		}},
		2: {DayNumber: 2, Meals: map[SlotID]*Meal{
			SlotDinner: {Recipes: []ScaledRecipe{{Recipe: recipe.Recipe{Name: "A"}}, {Recipe: recipe.Recipe{Name: "C"}}}},
		}},
	}}}}

	s := Stats(plan)
	assert.Equal(t, 3, s.UniqueRecipes)
	assert.Equal(t, 5, s.TotalDishes)
	assert.Equal(t, 60, s.VarietyPct)
	require.Len(t, s.MostUsed, 3)
	assert.Equal(t, RecipeFrequency{"A", 3}, s.MostUsed[0])
	assert.Equal(t, RecipeFrequency{"B", 1}, s.MostUsed[1])

	assert.Equal(t, VarietyStats{}, Stats(nil))
}

func TestGeneratePlan_Timestamps(t *testing.T) {
	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	b := newTestBuilder(WithClock(func() time.Time { return at }))
	plan, err := b.GeneratePlan(standardGoals, Settings{MealCount: 3, DurationDays: 7})
	require.NoError(t, err)
	assert.Equal(t, at, plan.GeneratedAt)
	assert.Equal(t, at, plan.UpdatedAt)
}

func TestDay_OrderedMeals(t *testing.T) {
	d := &Day{DayNumber: 1, Meals: map[SlotID]*Meal{
		SlotDinner:    {Type: SlotDinner},
		SlotBreakfast: {Type: SlotBreakfast},
		SlotSnack:     {Type: SlotSnack},
		SlotLunch:     nil,
	}}

	var got []SlotID
	for _, m := range d.OrderedMeals() {
		got = append(got, m.Type)
	}
	assert.Equal(t, []SlotID{SlotBreakfast, SlotSnack, SlotDinner}, got)
}
