package recipe

import (
	"sort"
	"strings"
)

// UsageCounter reports how often a recipe has been used in the current plan.
type UsageCounter interface {
	UsageCount(name string) int
}

const (
	SearchLimit = 50
	BrowseLimit = 30

	usagePenalty = 50
)

type scored struct {
	recipe Recipe
	score  int
}

// Search ranks allowed recipes by how well they match the query, penalizing
// recipes already used in the plan. usage may be nil.
func (c *Corpus) Search(query string, restrictions []Restriction, diet DietType, usage UsageCounter) []Recipe {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var results []scored
	for _, r := range c.recipes {
		if !IsAllowed(r, restrictions, diet) {
			continue
		}
		s := matchScore(r, q)
		if s == 0 {
			continue
		}
		if usage != nil {
			s -= usage.UsageCount(r.Name) * usagePenalty
		}
		results = append(results, scored{r, s})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })
	return top(results, SearchLimit)
}

func matchScore(r Recipe, q string) int {
	score := 0
	if strings.Contains(strings.ToLower(r.Name), q) {
		score += 100
	}
	if strings.Contains(strings.ToLower(r.Category), q) {
		score += 50
	}
	if strings.Contains(ingredientText(r), q) {
		score += 30
	}
	if strings.Contains(strings.ToLower(r.Description), q) {
		score += 20
	}
	return score
}

// Browse lists allowed recipes of a dish type, least-used first.
func (c *Corpus) Browse(dt DishType, restrictions []Restriction, diet DietType, usage UsageCounter) []Recipe {
	var results []scored
	for _, r := range c.Filter(dt, restrictions, diet) {
		n := 0
		if usage != nil {
			n = usage.UsageCount(r.Name)
		}
		results = append(results, scored{r, -n})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })
	return top(results, BrowseLimit)
}

func top(results []scored, limit int) []Recipe {
	if len(results) > limit {
		results = results[:limit]
	}
	out := make([]Recipe, len(results))
	for i, s := range results {
		out[i] = s.recipe
	}
	return out
}
