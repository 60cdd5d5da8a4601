package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrition-planner/internal/recipe"
)

func TestSelectDishTypes(t *testing.T) {
	tests := []struct {
		name string
		rnd  float64
		slot SlotID
		diet recipe.DietType
		want []recipe.DishType
	}{
		{"PrimaryAndSecondary", 0.5, SlotLunch, recipe.DietBalanced, []recipe.DishType{recipe.Soup, recipe.Salad}},
		{"AllTiers", 0.1, SlotLunch, recipe.DietBalanced, []recipe.DishType{recipe.Soup, recipe.Salad, recipe.Fish}},
		{"PrimaryOnly", 0.9, SlotLunch, recipe.DietBalanced, []recipe.DishType{recipe.Soup}},
		{"VegetarianDinner", 0.9, SlotDinner, recipe.DietVegetarian, []recipe.DishType{recipe.Main}},
		{"NumberedSnack", 0.5, SlotSnack2, recipe.DietBalanced, []recipe.DishType{recipe.Fruit, recipe.ProteinBar}},
		{"KetoSnackSkipsFruit", 0.9, SlotSnack, recipe.DietKeto, []recipe.DishType{recipe.Nuts}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(testCorpus(), WithRand(constRand(tt.rnd)))
			assert.Equal(t, tt.want, b.Composer().SelectDishTypes(tt.slot, tt.diet, 1))
		})
	}
}

func TestSelectDishTypes_PrefersLeastUsedThisWeek(t *testing.T) {
	b := newTestBuilder()
	b.Tracker().Record("Суп куриный", 1, 1)

	got := b.Composer().SelectDishTypes(SlotLunch, recipe.DietBalanced, 1)
	require.NotEmpty(t, got)
	assert.Equal(t, recipe.Main, got[0])

	// Other weeks are unaffected.
	got = b.Composer().SelectDishTypes(SlotLunch, recipe.DietBalanced, 2)
	assert.Equal(t, recipe.Soup, got[0])
}

func TestBaseScore_MonotonicInUsage(t *testing.T) {
	b := newTestBuilder()
	c := b.Composer()
	r, ok := b.Corpus().Get("Борщ")
	require.True(t, ok)
	sub := recipe.Nutrition{Calories: 900, Protein: 45, Fat: 32, Carbs: 113}

	prev := c.baseScore(r, recipe.Soup, sub, recipe.Nutrition{}, 1, 1)
	for uses := 1; uses <= 6; uses++ {
		// Uses land in a different week so only usage and category terms move.
		b.Tracker().Record(r.Name, 3, 1)
		score := c.baseScore(r, recipe.Soup, sub, recipe.Nutrition{}, 1, 1)
		assert.Less(t, score, prev, "usage %d", uses)
		prev = score
	}
}

func TestBaseScore_RecencyPenalties(t *testing.T) {
	b := newTestBuilder()
	c := b.Composer()
	r, _ := b.Corpus().Get("Борщ")
	other, _ := b.Corpus().Get("Суп куриный")
	sub := recipe.Nutrition{Calories: 900, Protein: 45, Fat: 32, Carbs: 113}

	// Give both recipes the same usage and category state, differing only in when.
	b.Tracker().Record(r.Name, 1, 4)
	b.Tracker().Record(other.Name, 2, 4)

	recent := c.baseScore(r, recipe.Soup, sub, recipe.Nutrition{}, 1, 5)
	stale := c.baseScore(other, recipe.Soup, sub, recipe.Nutrition{}, 1, 5)
	otherFit := c.baseScore(other, recipe.Soup, sub, recipe.Nutrition{}, 3, 5) - c.baseScore(r, recipe.Soup, sub, recipe.Nutrition{}, 3, 5)

	assert.InDelta(t, sameWeekPenalty+recentPenalty, stale-recent-otherFit, 1e-9)
}

func TestScoreRecipe_JitterIsBounded(t *testing.T) {
	b := newTestBuilder()
	r, _ := b.Corpus().Get("Борщ")
	sub := recipe.Nutrition{Calories: 900, Protein: 45, Fat: 32, Carbs: 113}
	base := b.Composer().baseScore(r, recipe.Soup, sub, recipe.Nutrition{}, 1, 1)

	for _, v := range []float64{0, 0.25, 0.5, 0.75, 0.999} {
		c := NewComposer(b.Corpus(), b.Tracker(), constRand(v), DefaultThresholds(), 0, nil, nil)
		s := c.ScoreRecipe(r, recipe.Soup, sub, recipe.Nutrition{}, 1, 1)
		assert.InDelta(t, base, s, jitterFraction*base+1e-9)
	}
	assert.Equal(t, base, b.Composer().ScoreRecipe(r, recipe.Soup, sub, recipe.Nutrition{}, 1, 1))
}

func TestSelectRecipe_FallsBackToAnyAllowed(t *testing.T) {
	b := newTestBuilder()
	cons := Constraints{Diet: recipe.DietBalanced}

	r, ok := b.Composer().SelectRecipe(recipe.Avocado, recipe.Nutrition{Calories: 500}, recipe.Nutrition{}, cons, 1, 1)
	require.True(t, ok)
	assert.NotEmpty(t, r.Name)

	r, ok = b.Composer().SelectRecipe(recipe.ProteinBar, recipe.Nutrition{Calories: 500}, recipe.Nutrition{}, cons, 1, 1)
	require.True(t, ok)
	assert.Equal(t, "Протеиновый батончик", r.Name)

	_, ok = b.Composer().SelectRecipe(recipe.Soup, recipe.Nutrition{Calories: 500}, recipe.Nutrition{},
		Constraints{Diet: recipe.DietBalanced, Restrictions: []recipe.Restriction{" "}}, 1, 1)
	assert.False(t, ok)
}

func TestComposeMeal_RecordsEveryDish(t *testing.T) {
	b := newTestBuilder()
	slot := Layout(3)[1]
	m := b.Composer().ComposeMeal(slot, slot.SubGoals(standardGoals), Constraints{Diet: recipe.DietBalanced}, 1, 1)

	require.NotEmpty(t, m.Recipes)
	assert.Equal(t, "Обед", m.Name)
	assert.Equal(t, SlotLunch, m.Type)
	assertConservation(t, m)

	recorded := 0
	for _, name := range b.Tracker().NamesOn(1, 1) {
		recorded += b.Tracker().UsageCount(name)
	}
	assert.Equal(t, len(m.Recipes), recorded)
}

func TestPortionBounds(t *testing.T) {
	lo, hi := PortionBounds(recipe.Nuts, recipe.DietBalanced)
	assert.Equal(t, 50.0, lo)
	assert.Equal(t, 300.0, hi)

	lo, hi = PortionBounds(recipe.Soup, recipe.DietBalanced)
	assert.Equal(t, 100.0, lo)
	assert.Equal(t, 400.0, hi)

	lo, hi = PortionBounds(recipe.Cereal, recipe.DietKeto)
	assert.Equal(t, 50.0, lo)
	assert.Equal(t, 50.0, hi)

	lo, hi = PortionBounds(recipe.Cereal, recipe.DietBalanced)
	assert.Equal(t, 100.0, lo)
	assert.Equal(t, 300.0, hi)
}

func TestComputePortion_StaysOnGridAndInBounds(t *testing.T) {
	b := newTestBuilder()
	c := b.Composer()
	types := []recipe.DishType{
		recipe.Breakfast, recipe.Cereal, recipe.Soup, recipe.Main, recipe.Nuts,
		recipe.ProteinBar, recipe.Vegetables, recipe.Poultry, recipe.Rice, "unknown",
	}
	diets := []recipe.DietType{recipe.DietBalanced, recipe.DietKeto, recipe.DietHighProtein}
	remaining := []float64{-200, 0, 10, 120, 480, 2000}

	for _, r := range b.Corpus().All() {
		for _, dt := range types {
			for _, diet := range diets {
				lo, hi := PortionBounds(dt, diet)
				for _, cal := range remaining {
					sub := recipe.Nutrition{Calories: cal, Protein: cal / 20, Fat: cal / 40, Carbs: cal / 8}
					g := c.ComputePortion(r, dt, sub, recipe.Nutrition{}, diet)
					assert.GreaterOrEqual(t, g, lo)
					assert.LessOrEqual(t, g, hi)
					assert.Zero(t, int(g)%int(PortionStep), "%s %s %s %.0f -> %.1f", r.Name, dt, diet, cal, g)
				}
			}
		}
	}
}

func TestComputePortion_Caps(t *testing.T) {
	c := newTestBuilder().Composer()
	soup, _ := testCorpus().Get("Суп куриный")
	chicken, _ := testCorpus().Get("Курица запеченная")

	assert.Equal(t, 300.0, c.ComputePortion(soup, recipe.Soup, recipe.Nutrition{Calories: 900}, recipe.Nutrition{}, recipe.DietBalanced))
	assert.Equal(t, 200.0, c.ComputePortion(soup, recipe.Soup, recipe.Nutrition{Calories: 100}, recipe.Nutrition{}, recipe.DietBalanced))
	// Protein budget of 20g caps 25g/100g chicken at 80g, which clamps to the minimum.
	assert.Equal(t, 100.0, c.ComputePortion(chicken, recipe.Poultry, recipe.Nutrition{Calories: 500, Protein: 20}, recipe.Nutrition{}, recipe.DietBalanced))
	assert.Equal(t, 150.0, c.ComputePortion(chicken, recipe.Poultry, recipe.Nutrition{Calories: 500, Protein: 60}, recipe.Nutrition{}, recipe.DietBalanced))
}

func TestBalanceMeal_TargetsProteinGap(t *testing.T) {
	b := newTestBuilder()
	c := b.Composer()
	m := &Meal{Type: SlotSnack, Goals: recipe.Nutrition{Calories: 400, Protein: 40, Fat: 5, Carbs: 20}}

	c.balanceMeal(m, Constraints{Diet: recipe.DietBalanced}, 1, 1)
	require.Len(t, m.Recipes, 1)
	assert.Equal(t, recipe.ProteinBar, m.Recipes[0].DishType)
	assert.Equal(t, "Протеиновый батончик", m.Recipes[0].Name)
	assertConservation(t, m)
}

func TestBalanceMeal_SkipsWhenCloseOrFull(t *testing.T) {
	c := newTestBuilder(WithMaxDishesPerMeal(1)).Composer()
	cons := Constraints{Diet: recipe.DietBalanced}

	nearGoal := &Meal{Type: SlotLunch, Goals: recipe.Nutrition{Calories: 40, Protein: 30}}
	c.balanceMeal(nearGoal, cons, 1, 1)
	assert.Empty(t, nearGoal.Recipes)

	banana, _ := testCorpus().Get("Банан")
	full := &Meal{Type: SlotLunch, Goals: recipe.Nutrition{Calories: 900, Protein: 45}}
	full.Recipes = []ScaledRecipe{NewScaledRecipe(banana, recipe.Fruit, 100)}
	full.Recalculate()
	c.balanceMeal(full, cons, 1, 1)
	assert.Len(t, full.Recipes, 1)
}
