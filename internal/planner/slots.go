package planner

import (
	"math"

	"nutrition-planner/internal/recipe"
)

// SlotID names a meal slot within a day.
type SlotID string

const (
	SlotBreakfast SlotID = "breakfast"
	SlotSnack1    SlotID = "snack1"
	SlotLunch     SlotID = "lunch"
	SlotSnack     SlotID = "snack"
	SlotSnack2    SlotID = "snack2"
	SlotDinner    SlotID = "dinner"
)

var slotOrder = map[SlotID]int{
	SlotBreakfast: 0,
	SlotSnack1:    1,
	SlotLunch:     2,
	SlotSnack:     3,
	SlotSnack2:    4,
	SlotDinner:    5,
}

func (s SlotID) order() int {
	if o, ok := slotOrder[s]; ok {
		return o
	}
	return len(slotOrder)
}

// Kind maps numbered snack slots onto the generic snack kind used for dish
// type tiers. Unknown slots compose like breakfast.
func (s SlotID) Kind() SlotID {
	switch s {
	case SlotSnack1, SlotSnack2, SlotSnack:
		return SlotSnack
	case SlotLunch, SlotDinner:
		return s
	}
	return SlotBreakfast
}

// Slot describes a meal occasion and its share of the daily target.
type Slot struct {
	ID     SlotID
	Name   string
	Time   string
	Weight float64
}

// Layouts maps a daily meal count to its ordered slots.
var Layouts = map[int][]Slot{
	3: {
		{SlotBreakfast, "Завтрак", "8:00", 0.25},
		{SlotLunch, "Обед", "13:00", 0.45},
		{SlotDinner, "Ужин", "19:00", 0.30},
	},
	4: {
		{SlotBreakfast, "Завтрак", "8:00", 0.20},
		{SlotLunch, "Обед", "13:00", 0.35},
		{SlotSnack, "Перекус", "16:00", 0.15},
		{SlotDinner, "Ужин", "19:00", 0.30},
	},
	5: {
		{SlotBreakfast, "Завтрак", "8:00", 0.20},
		{SlotSnack1, "Перекус", "11:00", 0.10},
		{SlotLunch, "Обед", "14:00", 0.30},
		{SlotSnack2, "Перекус", "17:00", 0.15},
		{SlotDinner, "Ужин", "20:00", 0.25},
	},
}

var fallbackLayout = []Slot{
	{SlotBreakfast, "Завтрак", "8:00", 0.25},
	{SlotLunch, "Обед", "13:00", 0.40},
	{SlotDinner, "Ужин", "19:00", 0.35},
}

// defaultSlot is used when a dish is added to a slot the layout lacks.
var defaultSlot = Slot{Name: "Прием пищи", Time: "12:00", Weight: 0.25}

// Layout returns the slots for a meal count.
func Layout(mealCount int) []Slot {
	if l, ok := Layouts[mealCount]; ok {
		return l
	}
	return fallbackLayout
}

// SlotFor finds a slot in the layout for mealCount, falling back to a generic slot.
func SlotFor(mealCount int, id SlotID) Slot {
	for _, s := range Layout(mealCount) {
		if s.ID == id {
			return s
		}
	}
	s := defaultSlot
	s.ID = id
	return s
}

// Breakfast goals lean toward protein.
const (
	breakfastCarbsFactor   = 0.8
	breakfastProteinFactor = 1.2
)

// SubGoals splits daily goals by the slot weight.
func (s Slot) SubGoals(g Goals) recipe.Nutrition {
	n := recipe.Nutrition{
		Calories: math.Round(g.Calories * s.Weight),
		Protein:  math.Round(g.Protein * s.Weight),
		Fat:      math.Round(g.Fat * s.Weight),
		Carbs:    math.Round(g.Carbs * s.Weight),
	}
	if s.ID == SlotBreakfast {
		n.Carbs = math.Round(n.Carbs * breakfastCarbsFactor)
		n.Protein = math.Round(n.Protein * breakfastProteinFactor)
	}
	return n
}
