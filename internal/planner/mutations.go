package planner

import (
	"fmt"

	"go.uber.org/zap"

	"nutrition-planner/internal/recipe"
)

// mealFor returns the meal at the coordinates, creating it from the slot
// layout when the day exists but lacks that slot.
func (b *Builder) mealFor(plan *Plan, week, day int, slot SlotID) (*Meal, error) {
	if plan == nil {
		return nil, ErrNoPlan
	}
	d, err := plan.Day(week, day)
	if err != nil {
		return nil, err
	}
	if m, ok := d.Meals[slot]; ok && m != nil {
		return m, nil
	}
	s := SlotFor(plan.Settings.MealCount, slot)
	m := &Meal{Name: s.Name, Time: s.Time, Type: slot, Goals: s.SubGoals(plan.Goals)}
	if d.Meals == nil {
		d.Meals = make(map[SlotID]*Meal)
	}
	d.Meals[slot] = m
	return m, nil
}

// AddRecipeToMeal appends a corpus recipe to a meal with a computed portion.
func (b *Builder) AddRecipeToMeal(plan *Plan, week, day int, slot SlotID, name string) (*ScaledRecipe, error) {
	r, ok := b.corpus.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", recipe.ErrRecipeNotFound, name)
	}
	m, err := b.mealFor(plan, week, day, slot)
	if err != nil {
		return nil, err
	}

	if slot == SlotBreakfast && !recipe.IsHealthyForBreakfast(r) {
		b.logger.Warn("recipe is not a healthy breakfast choice", zap.String("recipe", name))
	}

	dt := b.corpus.TypeOf(name)
	grams := b.composer.ComputePortion(r, dt, m.Goals, m.Actual, plan.Settings.DietType)
	b.composer.addDish(m, r, dt, grams, week, day)
	plan.UpdatedAt = b.now()
	added := m.Recipes[len(m.Recipes)-1]
	return &added, nil
}

// RemoveRecipeFromMeal drops the recipe at index and releases its usage.
func (b *Builder) RemoveRecipeFromMeal(plan *Plan, week, day int, slot SlotID, index int) error {
	if plan == nil {
		return ErrNoPlan
	}
	m, err := plan.Meal(week, day, slot)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(m.Recipes) {
		return ErrIndexOutOfRange
	}

	name := m.Recipes[index].Name
	m.Recipes = append(m.Recipes[:index], m.Recipes[index+1:]...)
	m.Recalculate()
	b.tracker.Unrecord(name, week, day)
	plan.UpdatedAt = b.now()
	return nil
}

// RemoveAllRecipesFromMeal empties a meal.
func (b *Builder) RemoveAllRecipesFromMeal(plan *Plan, week, day int, slot SlotID) error {
	if plan == nil {
		return ErrNoPlan
	}
	m, err := plan.Meal(week, day, slot)
	if err != nil {
		return err
	}
	for _, r := range m.Recipes {
		b.tracker.Unrecord(r.Name, week, day)
	}
	m.Recipes = nil
	m.Recalculate()
	plan.UpdatedAt = b.now()
	return nil
}

// AdjustPortion rescales the recipe at index to grams.
func (b *Builder) AdjustPortion(plan *Plan, week, day int, slot SlotID, index int, grams float64) error {
	if plan == nil {
		return ErrNoPlan
	}
	if grams <= 0 {
		return &ValidationError{Violations: []FieldViolation{{Field: "PortionGrams", Rule: "gt", Param: "0", Value: grams}}}
	}
	m, err := plan.Meal(week, day, slot)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(m.Recipes) {
		return ErrIndexOutOfRange
	}

	sr := m.Recipes[index]
	m.Recipes[index] = NewScaledRecipe(sr.Recipe, sr.DishType, grams)
	m.Recalculate()
	plan.UpdatedAt = b.now()
	return nil
}

// FillMeal adds one dish chosen to close the meal's remaining calories. It
// returns nil when the meal is already close enough to its goal or full.
func (b *Builder) FillMeal(plan *Plan, week, day int, slot SlotID) (*ScaledRecipe, error) {
	if plan == nil {
		return nil, ErrNoPlan
	}
	m, err := plan.Meal(week, day, slot)
	if err != nil {
		return nil, err
	}
	rem := m.Remaining()
	if rem.Calories <= b.thresholds.FillMinCalories || len(m.Recipes) >= b.maxDishes {
		return nil, nil
	}

	cons := constraintsOf(plan.Settings)
	var dt recipe.DishType
	switch {
	case rem.Protein > b.thresholds.DayProteinGap:
		dt = recipe.ProteinBar
	case rem.Fat > b.thresholds.DayFatGap:
		dt = recipe.Nuts
	case rem.Carbs > b.thresholds.FillCarbsGap:
		dt = recipe.Fruit
	default:
		dt = fillDefault(slot)
	}
	if !recipe.IsDishTypeAllowed(dt, cons.Diet) {
		dt = slotBalancer(slot)
	}

	r, ok := b.composer.SelectRecipe(dt, m.Goals, m.Actual, cons, week, day)
	if !ok {
		b.composer.miss(slot, dt)
		return nil, nil
	}
	grams := b.composer.ComputePortion(r, dt, m.Goals, m.Actual, cons.Diet)
	b.composer.addDish(m, r, dt, grams, week, day)
	plan.UpdatedAt = b.now()
	added := m.Recipes[len(m.Recipes)-1]
	return &added, nil
}

func fillDefault(slot SlotID) recipe.DishType {
	switch slot.Kind() {
	case SlotBreakfast:
		return recipe.Yogurt
	case SlotLunch:
		return recipe.Vegetables
	case SlotDinner:
		return recipe.Salad
	}
	return recipe.Fruit
}
