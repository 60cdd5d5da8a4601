package planner

import (
	"math"
	"sort"
)

// RecipeFrequency is how often a recipe appears in a plan.
type RecipeFrequency struct {
	Name  string
	Count int
}

// VarietyStats summarizes recipe repetition across a plan.
type VarietyStats struct {
	UniqueRecipes int
	TotalDishes   int
	VarietyPct    int
	MostUsed      []RecipeFrequency // top 10, most frequent first
}

const topRecipes = 10

// Stats computes variety statistics from the plan contents.
func Stats(plan *Plan) VarietyStats {
	var s VarietyStats
	if plan == nil {
		return s
	}

	counts := make(map[string]int)
	plan.Visit(func(_, _ int, m *Meal) {
		for _, r := range m.Recipes {
			counts[r.Name]++
			s.TotalDishes++
		}
	})

	s.UniqueRecipes = len(counts)
	if s.TotalDishes > 0 {
		s.VarietyPct = int(math.Round(float64(s.UniqueRecipes) / float64(s.TotalDishes) * 100))
	}

	for name, n := range counts {
		s.MostUsed = append(s.MostUsed, RecipeFrequency{name, n})
	}
	sort.Slice(s.MostUsed, func(i, j int) bool {
		if s.MostUsed[i].Count != s.MostUsed[j].Count {
			return s.MostUsed[i].Count > s.MostUsed[j].Count
		}
		return s.MostUsed[i].Name < s.MostUsed[j].Name
	})
	if len(s.MostUsed) > topRecipes {
		s.MostUsed = s.MostUsed[:topRecipes]
	}
	return s
}
