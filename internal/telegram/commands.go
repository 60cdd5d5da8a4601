package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"nutrition-planner/internal/planner"
	"nutrition-planner/internal/recipe"
)

var defaultGoals = planner.Goals{Calories: 2000, Protein: 100, Fat: 70, Carbs: 250}

var defaultSettings = planner.Settings{MealCount: 3, DurationDays: 7, DietType: recipe.DietBalanced}

// slotAliases accepts Russian meal names as well as slot IDs.
var slotAliases = map[string]planner.SlotID{
	"завтрак":  planner.SlotBreakfast,
	"обед":     planner.SlotLunch,
	"ужин":     planner.SlotDinner,
	"перекус":  planner.SlotSnack,
	"перекус1": planner.SlotSnack1,
	"перекус2": planner.SlotSnack2,
}

// parseGenerateArgs reads "[kcal protein fat carbs] [meals] [days] [diet]
// [restrictions...]". Numbers are positional; words may follow in any order.
// Macros that disagree with the calories are corrected proportionally.
func parseGenerateArgs(args string) (planner.Goals, planner.Settings, error) {
	goals, settings := defaultGoals, defaultSettings
	fields := strings.Fields(args)

	var nums []float64
	for len(fields) > 0 {
		v, err := strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", "."), 64)
		if err != nil {
			break
		}
		nums = append(nums, v)
		fields = fields[1:]
	}

	switch len(nums) {
	case 0:
	case 4, 5, 6:
		goals = planner.CorrectMacros(planner.Goals{Calories: nums[0], Protein: nums[1], Fat: nums[2], Carbs: nums[3]})
		if len(nums) > 4 {
			settings.MealCount = int(nums[4])
		}
		if len(nums) > 5 {
			settings.DurationDays = int(nums[5])
		}
	default:
		return goals, settings, fmt.Errorf("нужно 4 числа (ккал, белки, жиры, углеводы), затем приёмы и дни")
	}

	for _, f := range fields {
		word := strings.ToLower(f)
		if d := recipe.DietType(word); d.Valid() {
			settings.DietType = d
			continue
		}
		r := recipe.Restriction(word)
		if _, ok := recipe.RestrictionKeywords[r]; !ok {
			return goals, settings, fmt.Errorf("неизвестная диета или ограничение: %s", f)
		}
		settings.Restrictions = append(settings.Restrictions, r)
	}
	return goals, settings, nil
}

// parseDayArgs reads "[week] [day]", both defaulting to 1.
func parseDayArgs(args string) (week, day int, err error) {
	week, day = 1, 1
	fields := strings.Fields(args)
	if len(fields) > 2 {
		return 0, 0, fmt.Errorf("формат: /day неделя день")
	}
	if len(fields) > 0 {
		if week, err = strconv.Atoi(fields[0]); err != nil {
			return 0, 0, fmt.Errorf("неделя должна быть числом: %s", fields[0])
		}
	}
	if len(fields) > 1 {
		if day, err = strconv.Atoi(fields[1]); err != nil {
			return 0, 0, fmt.Errorf("день должен быть числом: %s", fields[1])
		}
	}
	return week, day, nil
}

// mealRef is the "week day slot" prefix shared by the meal commands.
type mealRef struct {
	week, day int
	slot      planner.SlotID
}

func parseMealRef(fields []string, usage string) (mealRef, error) {
	if len(fields) < 3 {
		return mealRef{}, fmt.Errorf("формат: %s", usage)
	}
	week, day, err := parseDayArgs(fields[0] + " " + fields[1])
	if err != nil {
		return mealRef{}, err
	}
	return mealRef{week: week, day: day, slot: parseSlot(fields[2])}, nil
}

func parseSlot(s string) planner.SlotID {
	s = strings.ToLower(s)
	if id, ok := slotAliases[s]; ok {
		return id
	}
	return planner.SlotID(s)
}

func parseFillArgs(args string) (week, day int, slot planner.SlotID, err error) {
	ref, err := parseMealRef(strings.Fields(args), "/fill неделя день приём")
	return ref.week, ref.day, ref.slot, err
}

// parseAddArgs reads "week day slot recipe name".
func parseAddArgs(args string) (mealRef, string, error) {
	const usage = "/add неделя день приём название"
	fields := strings.Fields(args)
	ref, err := parseMealRef(fields, usage)
	if err != nil {
		return ref, "", err
	}
	if len(fields) < 4 {
		return ref, "", fmt.Errorf("формат: %s", usage)
	}
	return ref, strings.Join(fields[3:], " "), nil
}

// parseIndexArgs reads "week day slot n [extra]" with n counted from 1.
func parseIndexArgs(args, usage string, extra bool) (mealRef, int, float64, error) {
	fields := strings.Fields(args)
	want := 4
	if extra {
		want = 5
	}
	if len(fields) != want {
		return mealRef{}, 0, 0, fmt.Errorf("формат: %s", usage)
	}
	ref, err := parseMealRef(fields, usage)
	if err != nil {
		return ref, 0, 0, err
	}
	n, err := strconv.Atoi(fields[3])
	if err != nil || n < 1 {
		return ref, 0, 0, fmt.Errorf("номер блюда должен быть положительным числом: %s", fields[3])
	}
	var grams float64
	if extra {
		if grams, err = strconv.ParseFloat(fields[4], 64); err != nil {
			return ref, 0, 0, fmt.Errorf("вес должен быть числом: %s", fields[4])
		}
	}
	return ref, n - 1, grams, nil
}
