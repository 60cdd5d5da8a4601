package recipe

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Nutrition holds calories and macronutrients. For a Recipe the values are per 100g.
type Nutrition struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
}

// Add returns the element-wise sum of n and o.
func (n Nutrition) Add(o Nutrition) Nutrition {
	return Nutrition{
		Calories: n.Calories + o.Calories,
		Protein:  n.Protein + o.Protein,
		Fat:      n.Fat + o.Fat,
		Carbs:    n.Carbs + o.Carbs,
	}
}

// Sub returns n minus o.
func (n Nutrition) Sub(o Nutrition) Nutrition {
	return Nutrition{
		Calories: n.Calories - o.Calories,
		Protein:  n.Protein - o.Protein,
		Fat:      n.Fat - o.Fat,
		Carbs:    n.Carbs - o.Carbs,
	}
}

// Scale converts per-100g values into values for a portion of the given grams.
// Calories are rounded to whole units, macros to one decimal.
func (n Nutrition) Scale(grams float64) Nutrition {
	f := grams / 100
	return Nutrition{
		Calories: math.Round(n.Calories * f),
		Protein:  round1(n.Protein * f),
		Fat:      round1(n.Fat * f),
		Carbs:    round1(n.Carbs * f),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Recipe is an immutable corpus entry. Name is its identity key.
type Recipe struct {
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Ingredients  []string  `json:"ingredients"`
	Instructions []string  `json:"instructions"`
	Nutrition    Nutrition `json:"nutrition"`
	Description  string    `json:"description,omitempty"`
	URL          string    `json:"url,omitempty"`
}

// Record is a raw corpus record as found in the static source. Nutrient keys
// vary between sources, so the nutrition block is kept untyped until normalized.
type Record struct {
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Ingredients  []string        `json:"ingredients"`
	Instructions json.RawMessage `json:"instructions,omitempty"`
	Nutrition    map[string]any  `json:"nutrition"`
	Description  string          `json:"description,omitempty"`
	URL          string          `json:"url,omitempty"`
}

var nutrientKeys = map[string][]string{
	"calories": {"calories", "Calories", "kcal", "energy"},
	"protein":  {"protein", "proteins", "Protein", "Proteins"},
	"fat":      {"fat", "fats", "Fat", "Fats"},
	"carbs":    {"carbs", "Carbs", "carbohydrates", "Carbohydrates"},
}

// Normalize converts a raw record into a Recipe with canonical nutrition keys.
// Missing or unparsable nutrient values become 0.
func (r Record) Normalize() Recipe {
	return Recipe{
		Name:         strings.TrimSpace(r.Name),
		Category:     strings.TrimSpace(r.Category),
		Ingredients:  compact(r.Ingredients),
		Instructions: decodeInstructions(r.Instructions),
		Nutrition: Nutrition{
			Calories: lookupNutrient(r.Nutrition, nutrientKeys["calories"]),
			Protein:  lookupNutrient(r.Nutrition, nutrientKeys["protein"]),
			Fat:      lookupNutrient(r.Nutrition, nutrientKeys["fat"]),
			Carbs:    lookupNutrient(r.Nutrition, nutrientKeys["carbs"]),
		},
		Description: strings.TrimSpace(r.Description),
		URL:         r.URL,
	}
}

// ToRecord converts a Recipe back into its canonical record form.
func (r Recipe) ToRecord() Record {
	steps, _ := json.Marshal(r.Instructions)
	return Record{
		Name:         r.Name,
		Category:     r.Category,
		Ingredients:  r.Ingredients,
		Instructions: steps,
		Nutrition: map[string]any{
			"calories": r.Nutrition.Calories,
			"protein":  r.Nutrition.Protein,
			"fat":      r.Nutrition.Fat,
			"carbs":    r.Nutrition.Carbs,
		},
		Description: r.Description,
		URL:         r.URL,
	}
}

func lookupNutrient(m map[string]any, keys []string) float64 {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if f := toFloat(v); f != 0 {
			return f
		}
	}
	return 0
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case json.Number:
		f, _ := x.Float64()
		return f
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(x, ",", "."))
		// Values like "250 ккал" or "12.5 г" are common in scraped pages.
		if i := strings.IndexFunc(s, func(r rune) bool { return (r < '0' || r > '9') && r != '.' }); i > 0 {
			s = s[:i]
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

// decodeInstructions accepts either a list of steps or a single text block.
func decodeInstructions(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var steps []string
	if err := json.Unmarshal(raw, &steps); err == nil {
		return compact(steps)
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return compact(strings.Split(text, "\n"))
	}
	return nil
}

func compact(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// Decode reads a JSON array of records and normalizes them. Records without a
// name are dropped; duplicate names keep the first occurrence.
func Decode(r io.Reader) ([]Recipe, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode recipe records: %w", err)
	}

	seen := make(map[string]bool, len(records))
	recipes := make([]Recipe, 0, len(records))
	for _, rec := range records {
		rcp := rec.Normalize()
		if rcp.Name == "" || seen[rcp.Name] {
			continue
		}
		seen[rcp.Name] = true
		recipes = append(recipes, rcp)
	}
	return recipes, nil
}
