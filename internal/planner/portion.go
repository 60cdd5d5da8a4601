package planner

import (
	"math"

	"nutrition-planner/internal/recipe"
)

// PortionStep is the granularity of every computed portion, in grams.
const PortionStep = 25.0

var standardPortions = map[recipe.DishType]float64{
	recipe.Breakfast:  250,
	recipe.Cereal:     200,
	recipe.Porridge:   250,
	recipe.Soup:       300,
	recipe.Main:       200,
	recipe.Salad:      200,
	recipe.Snack:      150,
	recipe.Fruit:      200,
	recipe.Yogurt:     150,
	recipe.Nuts:       50,
	recipe.Light:      200,
	recipe.Dessert:    100,
	recipe.SideDish:   150,
	recipe.Baking:     100,
	recipe.Eggs:       150,
	recipe.Dairy:      200,
	recipe.Poultry:    150,
	recipe.Fish:       150,
	recipe.Vegetables: 250,
	recipe.ProteinBar: 60,
	recipe.Smoothie:   250,
	recipe.Pancakes:   200,
}

const (
	defaultStandardPortion = 150.0
	defaultMinPortion      = 100.0
	defaultMaxPortion      = 300.0
	ketoStarchCap          = 50.0
)

var minPortions = map[recipe.DishType]float64{
	recipe.Nuts:       30,
	recipe.ProteinBar: 40,
}

var maxPortions = map[recipe.DishType]float64{
	recipe.Soup:       400,
	recipe.Vegetables: 350,
}

var ketoStarches = map[recipe.DishType]bool{
	recipe.Cereal: true,
	recipe.Rice:   true,
	recipe.Pasta:  true,
	recipe.Baking: true,
}

// StandardPortion returns the typical serving size for a dish type.
func StandardPortion(dt recipe.DishType) float64 {
	if p, ok := standardPortions[dt]; ok {
		return p
	}
	return defaultStandardPortion
}

// PortionBounds returns the allowed portion range for a dish type under a
// diet. Both bounds lie on the PortionStep grid, so a clamped, rounded
// portion always stays inside them. A diet cap lowers the minimum too.
func PortionBounds(dt recipe.DishType, diet recipe.DietType) (lo, hi float64) {
	lo, hi = defaultMinPortion, defaultMaxPortion
	if v, ok := minPortions[dt]; ok {
		lo = v
	}
	if v, ok := maxPortions[dt]; ok {
		hi = v
	}
	if diet == recipe.DietKeto && ketoStarches[dt] {
		hi = math.Min(hi, ketoStarchCap)
		lo = math.Min(lo, hi)
	}
	lo = math.Ceil(lo/PortionStep) * PortionStep
	hi = math.Floor(hi/PortionStep) * PortionStep
	return lo, hi
}

// ComputePortion sizes a recipe for a meal: start from the standard portion,
// cap it by the remaining calorie budget (and the protein budget for protein
// dishes), then clamp to the dish-type bounds on the 25g grid.
func (c *Composer) ComputePortion(r recipe.Recipe, dt recipe.DishType, sub, running recipe.Nutrition, diet recipe.DietType) float64 {
	return c.portion(r, dt, sub.Sub(running), diet, macroNone)
}

// portion applies the sizing rules against a remaining budget. When target
// names a macro, the portion is also capped to close that macro's gap.
func (c *Composer) portion(r recipe.Recipe, dt recipe.DishType, rem recipe.Nutrition, diet recipe.DietType, target macro) float64 {
	grams := StandardPortion(dt)

	cal := r.Nutrition.Calories
	if cal == 0 {
		cal = 100
	}
	grams = math.Min(grams, rem.Calories/cal*100)

	if proteinDishes[dt] {
		protein := r.Nutrition.Protein
		if protein == 0 {
			protein = 10
		}
		grams = math.Min(grams, rem.Protein/protein*100)
	}

	if per100 := target.of(r.Nutrition); target != macroNone && per100 > 0 {
		grams = math.Min(grams, target.of(rem)/per100*100)
	}

	lo, hi := PortionBounds(dt, diet)
	return clampPortion(grams, lo, hi)
}

func clampPortion(grams, lo, hi float64) float64 {
	if math.IsNaN(grams) {
		return lo
	}
	grams = math.Round(grams/PortionStep) * PortionStep
	return math.Max(lo, math.Min(hi, grams))
}
