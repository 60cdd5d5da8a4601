package planner

import (
	"sort"
	"time"

	"nutrition-planner/internal/recipe"
)

// DaysPerWeek is fixed; a Week always has exactly this many Days.
const DaysPerWeek = 7

// Settings captures the user's plan choices.
type Settings struct {
	MealCount    int                  `json:"meal_count" validate:"oneof=3 4 5"`
	DurationDays int                  `json:"duration_days" validate:"min=1,max=364"`
	DietType     recipe.DietType      `json:"diet_type" validate:"omitempty,oneof=balanced keto vegetarian vegan high_protein low_fat low_carb"`
	Restrictions []recipe.Restriction `json:"restrictions,omitempty"`
	Favorites    string               `json:"favorites,omitempty"`
}

// WeekCount returns ceil(DurationDays/7).
func (s Settings) WeekCount() int {
	return (s.DurationDays + DaysPerWeek - 1) / DaysPerWeek
}

// ScaledRecipe is a recipe bound to a portion size.
type ScaledRecipe struct {
	recipe.Recipe
	PortionGrams    float64          `json:"portion_grams"`
	ScaledNutrition recipe.Nutrition `json:"scaled_nutrition"`
	DishType        recipe.DishType  `json:"dish_type"`
}

// NewScaledRecipe scales r to grams.
func NewScaledRecipe(r recipe.Recipe, dt recipe.DishType, grams float64) ScaledRecipe {
	return ScaledRecipe{
		Recipe:          r,
		PortionGrams:    grams,
		ScaledNutrition: r.Nutrition.Scale(grams),
		DishType:        dt,
	}
}

// Meal is one eating occasion within a Day.
type Meal struct {
	Name    string           `json:"name"`
	Time    string           `json:"time"`
	Type    SlotID           `json:"type"`
	Goals   recipe.Nutrition `json:"goals"`
	Recipes []ScaledRecipe   `json:"recipes"`
	Actual  recipe.Nutrition `json:"actual"`
}

// Recalculate recomputes Actual as the sum over Recipes.
func (m *Meal) Recalculate() {
	var total recipe.Nutrition
	for _, r := range m.Recipes {
		total = total.Add(r.ScaledNutrition)
	}
	m.Actual = total
}

// Remaining is the gap between the meal's goals and its actual totals.
func (m *Meal) Remaining() recipe.Nutrition {
	return m.Goals.Sub(m.Actual)
}

// Day holds the meals of one calendar day.
type Day struct {
	DayNumber int              `json:"day_number"`
	Meals     map[SlotID]*Meal `json:"meals"`
}

// Totals sums the actual nutrition of every meal.
func (d *Day) Totals() recipe.Nutrition {
	var total recipe.Nutrition
	for _, m := range d.Meals {
		total = total.Add(m.Actual)
	}
	return total
}

// OrderedMeals returns the day's meals in eating order.
func (d *Day) OrderedMeals() []*Meal {
	slots := orderedSlots(d.Meals)
	meals := make([]*Meal, len(slots))
	for i, s := range slots {
		meals[i] = d.Meals[s]
	}
	return meals
}

// Week holds days 1..7.
type Week struct {
	Number int          `json:"number"`
	Days   map[int]*Day `json:"days"`
}

// Plan is a generated multi-week meal plan.
type Plan struct {
	ID          string        `json:"id"`
	Goals       Goals         `json:"goals"`
	Settings    Settings      `json:"settings"`
	Weeks       map[int]*Week `json:"weeks"`
	GeneratedAt time.Time     `json:"generated_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Meal returns the meal at the given coordinates.
func (p *Plan) Meal(week, day int, slot SlotID) (*Meal, error) {
	d, err := p.Day(week, day)
	if err != nil {
		return nil, err
	}
	m, ok := d.Meals[slot]
	if !ok || m == nil {
		return nil, ErrMealNotFound
	}
	return m, nil
}

// Day returns the day at the given coordinates.
func (p *Plan) Day(week, day int) (*Day, error) {
	w, ok := p.Weeks[week]
	if !ok || w == nil {
		return nil, ErrMealNotFound
	}
	d, ok := w.Days[day]
	if !ok || d == nil {
		return nil, ErrMealNotFound
	}
	return d, nil
}

// WeekNumbers returns the plan's week numbers in ascending order.
func (p *Plan) WeekNumbers() []int {
	nums := make([]int, 0, len(p.Weeks))
	for n := range p.Weeks {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Visit calls fn for every meal in week, day and slot order.
func (p *Plan) Visit(fn func(week, day int, m *Meal)) {
	for _, wn := range p.WeekNumbers() {
		w := p.Weeks[wn]
		for dn := 1; dn <= DaysPerWeek; dn++ {
			d, ok := w.Days[dn]
			if !ok || d == nil {
				continue
			}
			for _, slot := range orderedSlots(d.Meals) {
				fn(wn, dn, d.Meals[slot])
			}
		}
	}
}

// orderedSlots returns the day's slots in eating order, unknown slots last.
func orderedSlots(meals map[SlotID]*Meal) []SlotID {
	slots := make([]SlotID, 0, len(meals))
	for s, m := range meals {
		if m != nil {
			slots = append(slots, s)
		}
	}
	sort.Slice(slots, func(i, j int) bool {
		oi, oj := slots[i].order(), slots[j].order()
		if oi != oj {
			return oi < oj
		}
		return slots[i] < slots[j]
	})
	return slots
}
