package recipe

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrRecipeNotFound is returned when a recipe name is not in the corpus.
var ErrRecipeNotFound = errors.New("recipe not found")

// DataLoadError reports that the corpus source was unreachable or malformed.
type DataLoadError struct {
	Source string
	Err    error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("failed to load recipe corpus from %s: %v", e.Source, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// Corpus is the loaded, immutable recipe set with dish types precomputed.
type Corpus struct {
	recipes []Recipe
	types   []DishType
	byName  map[string]int
}

// NewCorpus indexes recipes by name. Later duplicates are ignored.
func NewCorpus(recipes []Recipe) *Corpus {
	c := &Corpus{
		recipes: make([]Recipe, 0, len(recipes)),
		types:   make([]DishType, 0, len(recipes)),
		byName:  make(map[string]int, len(recipes)),
	}
	for _, r := range recipes {
		if _, dup := c.byName[r.Name]; dup || r.Name == "" {
			continue
		}
		c.byName[r.Name] = len(c.recipes)
		c.recipes = append(c.recipes, r)
		c.types = append(c.types, Classify(r))
	}
	return c
}

// Load opens the source, decodes its records and builds a Corpus. Any failure
// is reported as a *DataLoadError.
func Load(ctx context.Context, src Source) (*Corpus, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, &DataLoadError{Source: src.String(), Err: err}
	}
	defer rc.Close()

	recipes, err := Decode(rc)
	if err != nil {
		return nil, &DataLoadError{Source: src.String(), Err: err}
	}
	if len(recipes) == 0 {
		return nil, &DataLoadError{Source: src.String(), Err: errors.New("no recipes in source")}
	}
	return NewCorpus(recipes), nil
}

// Len returns the number of recipes.
func (c *Corpus) Len() int { return len(c.recipes) }

// All returns the recipes in corpus order. The slice must not be modified.
func (c *Corpus) All() []Recipe { return c.recipes }

// Get looks a recipe up by name.
func (c *Corpus) Get(name string) (Recipe, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Recipe{}, false
	}
	return c.recipes[i], true
}

// TypeOf returns the dish type of the named recipe, classifying unknown names on the fly.
func (c *Corpus) TypeOf(name string) DishType {
	if i, ok := c.byName[name]; ok {
		return c.types[i]
	}
	return Classify(Recipe{Name: name})
}

// CategoryOf returns the lowercased category of the named recipe.
func (c *Corpus) CategoryOf(name string) (string, bool) {
	i, ok := c.byName[name]
	if !ok {
		return "", false
	}
	return strings.ToLower(c.recipes[i].Category), true
}

// Filter returns recipes of the given dish type that satisfy the constraints.
// An empty dish type matches every type.
func (c *Corpus) Filter(dt DishType, restrictions []Restriction, diet DietType) []Recipe {
	var out []Recipe
	for i, r := range c.recipes {
		if dt != "" && c.types[i] != dt {
			continue
		}
		if IsAllowed(r, restrictions, diet) {
			out = append(out, r)
		}
	}
	return out
}

// Categories returns the distinct non-empty categories in sorted order.
func (c *Corpus) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range c.recipes {
		if r.Category == "" || seen[r.Category] {
			continue
		}
		seen[r.Category] = true
		out = append(out, r.Category)
	}
	sort.Strings(out)
	return out
}

// TypeCounts returns how many recipes fall into each dish type.
func (c *Corpus) TypeCounts() map[DishType]int {
	counts := make(map[DishType]int)
	for _, t := range c.types {
		counts[t]++
	}
	return counts
}
