package planner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrition-planner/internal/recipe"
)

// emptyPlan has a single day with no meals composed yet.
func emptyPlan() *Plan {
	return &Plan{
		ID:       "plan-1",
		Goals:    standardGoals,
		Settings: Settings{MealCount: 3, DurationDays: 7, DietType: recipe.DietBalanced},
		Weeks: map[int]*Week{1: {Number: 1, Days: map[int]*Day{
			1: {DayNumber: 1, Meals: map[SlotID]*Meal{}},
		}}},
	}
}

func TestAddRemove_RestoresScoreAndUsage(t *testing.T) {
	b := newTestBuilder()
	plan := emptyPlan()
	borscht, _ := b.Corpus().Get("Борщ")
	sub := Layout(3)[1].SubGoals(standardGoals)

	before := b.Composer().baseScore(borscht, recipe.Soup, sub, recipe.Nutrition{}, 1, 2)

	added, err := b.AddRecipeToMeal(plan, 1, 1, SlotLunch, "Борщ")
	require.NoError(t, err)
	assert.Equal(t, "Борщ", added.Name)
	assert.Equal(t, 1, b.Tracker().UsageCount("Борщ"))

	m, err := plan.Meal(1, 1, SlotLunch)
	require.NoError(t, err)
	assert.Equal(t, "Обед", m.Name)
	assert.Equal(t, sub, m.Goals)
	assertConservation(t, m)

	require.NoError(t, b.RemoveRecipeFromMeal(plan, 1, 1, SlotLunch, 0))
	assert.Empty(t, m.Recipes)
	assert.Equal(t, recipe.Nutrition{}, m.Actual)
	assert.Equal(t, 0, b.Tracker().UsageCount("Борщ"))
	assert.Empty(t, b.Tracker().NamesOn(1, 1))

	after := b.Composer().baseScore(borscht, recipe.Soup, sub, recipe.Nutrition{}, 1, 2)
	assert.Equal(t, before, after)
}

func TestAddRecipeToMeal_ExplicitAddIgnoresDishCap(t *testing.T) {
	b := newTestBuilder(WithMaxDishesPerMeal(1))
	plan := emptyPlan()

	for i := 0; i < 3; i++ {
		_, err := b.AddRecipeToMeal(plan, 1, 1, SlotDinner, "Салат овощной")
		require.NoError(t, err)
	}
	m, _ := plan.Meal(1, 1, SlotDinner)
	assert.Len(t, m.Recipes, 3)
	assert.Equal(t, 3, b.Tracker().UsageCount("Салат овощной"))
	assertConservation(t, m)
}

func TestMutations_Errors(t *testing.T) {
	b := newTestBuilder()
	plan := emptyPlan()

	_, err := b.AddRecipeToMeal(plan, 1, 1, SlotLunch, "Пицца")
	assert.ErrorIs(t, err, recipe.ErrRecipeNotFound)

	_, err = b.AddRecipeToMeal(plan, 2, 1, SlotLunch, "Борщ")
	assert.ErrorIs(t, err, ErrMealNotFound)

	_, err = b.AddRecipeToMeal(nil, 1, 1, SlotLunch, "Борщ")
	assert.ErrorIs(t, err, ErrNoPlan)

	assert.ErrorIs(t, b.RemoveRecipeFromMeal(plan, 1, 1, SlotLunch, 0), ErrMealNotFound)

	_, err = b.AddRecipeToMeal(plan, 1, 1, SlotLunch, "Борщ")
	require.NoError(t, err)
	assert.ErrorIs(t, b.RemoveRecipeFromMeal(plan, 1, 1, SlotLunch, 1), ErrIndexOutOfRange)
	assert.ErrorIs(t, b.RemoveRecipeFromMeal(plan, 1, 1, SlotLunch, -1), ErrIndexOutOfRange)
	assert.ErrorIs(t, b.AdjustPortion(plan, 1, 1, SlotLunch, 4, 200), ErrIndexOutOfRange)

	var verr *ValidationError
	err = b.AdjustPortion(plan, 1, 1, SlotLunch, 0, 0)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "PortionGrams", verr.Violations[0].Field)

	// Failed calls leave the meal untouched.
	m, _ := plan.Meal(1, 1, SlotLunch)
	assert.Len(t, m.Recipes, 1)
	assert.Equal(t, 1, b.Tracker().UsageCount("Борщ"))
}

func TestAdjustPortion(t *testing.T) {
	b := newTestBuilder()
	plan := emptyPlan()
	_, err := b.AddRecipeToMeal(plan, 1, 1, SlotLunch, "Борщ")
	require.NoError(t, err)
	_, err = b.AddRecipeToMeal(plan, 1, 1, SlotLunch, "Салат овощной")
	require.NoError(t, err)

	require.NoError(t, b.AdjustPortion(plan, 1, 1, SlotLunch, 0, 350))
	m, _ := plan.Meal(1, 1, SlotLunch)
	assert.Equal(t, 350.0, m.Recipes[0].PortionGrams)
	assert.Equal(t, recipe.Nutrition{Calories: 193, Protein: 10.5, Fat: 7, Carbs: 21}, m.Recipes[0].ScaledNutrition)
	assert.Equal(t, recipe.Soup, m.Recipes[0].DishType)
	assertConservation(t, m)
	// Portion changes do not count as new uses.
	assert.Equal(t, 1, b.Tracker().UsageCount("Борщ"))
}

func TestRemoveAllRecipesFromMeal(t *testing.T) {
	b := newTestBuilder()
	plan := emptyPlan()
	for _, name := range []string{"Борщ", "Борщ", "Банан"} {
		_, err := b.AddRecipeToMeal(plan, 1, 1, SlotLunch, name)
		require.NoError(t, err)
	}

	require.NoError(t, b.RemoveAllRecipesFromMeal(plan, 1, 1, SlotLunch))
	m, _ := plan.Meal(1, 1, SlotLunch)
	assert.Empty(t, m.Recipes)
	assert.Equal(t, recipe.Nutrition{}, m.Actual)
	assert.Zero(t, b.Tracker().UsageCount("Борщ"))
	assert.Zero(t, b.Tracker().UsageCount("Банан"))
}

func TestFillMeal(t *testing.T) {
	b := newTestBuilder()
	plan := emptyPlan()
	lunch := Layout(3)[1]
	plan.Weeks[1].Days[1].Meals[SlotLunch] = &Meal{Name: lunch.Name, Type: SlotLunch, Goals: lunch.SubGoals(standardGoals)}

	added, err := b.FillMeal(plan, 1, 1, SlotLunch)
	require.NoError(t, err)
	require.NotNil(t, added)
	assert.Equal(t, recipe.ProteinBar, added.DishType)
	assert.Equal(t, 50.0, added.PortionGrams)

	m, _ := plan.Meal(1, 1, SlotLunch)
	assertConservation(t, m)

	// A meal that is already on target is left alone.
	plan.Weeks[1].Days[1].Meals[SlotDinner] = &Meal{Type: SlotDinner, Goals: recipe.Nutrition{Calories: 40}}
	added, err = b.FillMeal(plan, 1, 1, SlotDinner)
	require.NoError(t, err)
	assert.Nil(t, added)

	_, err = b.FillMeal(plan, 1, 1, SlotBreakfast)
	assert.ErrorIs(t, err, ErrMealNotFound)
}

func TestFillMeal_KetoFallsBackToSlotBalancer(t *testing.T) {
	b := newTestBuilder()
	plan := emptyPlan()
	plan.Settings.DietType = recipe.DietKeto
	// Only a carbs gap remains, and keto forbids fruit.
	plan.Weeks[1].Days[1].Meals[SlotDinner] = &Meal{Type: SlotDinner, Goals: recipe.Nutrition{Calories: 300, Protein: 5, Fat: 2, Carbs: 60}}

	added, err := b.FillMeal(plan, 1, 1, SlotDinner)
	require.NoError(t, err)
	require.NotNil(t, added)
	assert.Equal(t, recipe.Salad, added.DishType)
	assert.Equal(t, "Салат овощной", added.Name)
}
