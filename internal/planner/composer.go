package planner

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"nutrition-planner/internal/recipe"
)

// Rand is the random source used for tier selection and score jitter.
// *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Observer receives notifications that never surface as errors.
type Observer interface {
	// SelectionMiss is called when no eligible recipe exists for a dish type.
	SelectionMiss(slot SlotID, dt recipe.DishType)
}

// Constraints are the dietary filters applied to every selection.
type Constraints struct {
	Diet         recipe.DietType
	Restrictions []recipe.Restriction
}

func (c Constraints) key() string {
	parts := make([]string, 0, len(c.Restrictions)+1)
	parts = append(parts, string(c.Diet))
	for _, r := range c.Restrictions {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, "|")
}

// Thresholds are the remaining-macro gaps that trigger balancing dishes.
type Thresholds struct {
	MealMinCalories float64 // per-meal balancing runs above this remaining budget
	MealProteinGap  float64
	MealFatGap      float64
	MealCarbsGap    float64

	DayMinCalories float64 // day balancing runs at or above this shortfall
	DayProteinGap  float64
	DayFatGap      float64

	FillMinCalories float64
	FillCarbsGap    float64
}

// DefaultThresholds returns the stock balancing thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MealMinCalories: 50,
		MealProteinGap:  8,
		MealFatGap:      5,
		MealCarbsGap:    15,
		DayMinCalories:  100,
		DayProteinGap:   10,
		DayFatGap:       5,
		FillMinCalories: 50,
		FillCarbsGap:    20,
	}
}

// DefaultMaxDishesPerMeal bounds how many dishes balancing may accumulate in one meal.
const DefaultMaxDishesPerMeal = 5

// dishTiers lists primary, secondary and tertiary dish types per slot kind.
var dishTiers = map[SlotID][3][]recipe.DishType{
	SlotBreakfast: {
		{recipe.Breakfast, recipe.Porridge, recipe.Cereal},
		{recipe.Dairy, recipe.Eggs, recipe.Yogurt},
		{recipe.Fruit, recipe.Smoothie, recipe.Pancakes},
	},
	SlotLunch: {
		{recipe.Soup, recipe.Main, recipe.Poultry},
		{recipe.Salad, recipe.SideDish, recipe.Vegetables},
		{recipe.Fish, recipe.Seafood, recipe.Legumes},
	},
	SlotDinner: {
		{recipe.Main, recipe.Fish, recipe.Poultry},
		{recipe.Salad, recipe.Vegetables, recipe.Light},
		{recipe.Soup, recipe.Eggs, recipe.Dairy},
	},
	SlotSnack: {
		{recipe.Fruit, recipe.Nuts, recipe.Yogurt},
		{recipe.ProteinBar, recipe.Dairy, recipe.Vegetables},
		{recipe.Snack, recipe.Baking, recipe.Seeds},
	},
}

const (
	secondaryTierChance = 0.7
	tertiaryTierChance  = 0.3
)

// Score weights.
const (
	fitCaloriesWeight = 300.0
	fitProteinWeight  = 200.0

	categoryUnseenBonus  = 400.0
	categorySeenOnce     = 200.0
	sameWeekPenalty      = 100.0
	recentPenalty        = 150.0
	recentDays           = 2
	overusePenaltyPerUse = 200.0

	descriptionBonus  = 100.0
	instructionsBonus = 50.0
	ingredientsBonus  = 50.0

	jitterFraction = 0.15
)

var usageBonus = []float64{1000, 600, 300, 100}

var proteinDishes = map[recipe.DishType]bool{
	recipe.Main:      true,
	recipe.Breakfast: true,
	recipe.Poultry:   true,
	recipe.Fish:      true,
	recipe.Eggs:      true,
}

// Composer builds individual meals against a shared DiversityTracker.
type Composer struct {
	corpus     *recipe.Corpus
	tracker    *DiversityTracker
	rng        Rand
	thresholds Thresholds
	maxDishes  int
	observer   Observer
	logger     *zap.Logger

	pools map[string]*candidatePool
}

type candidatePool struct {
	allowed []recipe.Recipe
	byType  map[recipe.DishType][]recipe.Recipe
}

// NewComposer creates a Composer. All dependencies are required except observer.
func NewComposer(corpus *recipe.Corpus, tracker *DiversityTracker, rng Rand, th Thresholds, maxDishes int, observer Observer, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxDishes <= 0 {
		maxDishes = DefaultMaxDishesPerMeal
	}
	return &Composer{
		corpus:     corpus,
		tracker:    tracker,
		rng:        rng,
		thresholds: th,
		maxDishes:  maxDishes,
		observer:   observer,
		logger:     logger,
		pools:      make(map[string]*candidatePool),
	}
}

// pool returns the eligible recipes for the constraints, computed once per constraint set.
func (c *Composer) pool(cons Constraints) *candidatePool {
	k := cons.key()
	if p, ok := c.pools[k]; ok {
		return p
	}
	p := &candidatePool{byType: make(map[recipe.DishType][]recipe.Recipe)}
	for _, r := range c.corpus.All() {
		if !recipe.IsAllowed(r, cons.Restrictions, cons.Diet) {
			continue
		}
		p.allowed = append(p.allowed, r)
		dt := c.corpus.TypeOf(r.Name)
		p.byType[dt] = append(p.byType[dt], r)
	}
	c.pools[k] = p
	return p
}

// SelectDishTypes picks the dish-type mix for a slot. The primary tier is
// always used; the secondary and tertiary tiers are included at random.
// Within a tier the type used least this week wins.
func (c *Composer) SelectDishTypes(slot SlotID, diet recipe.DietType, week int) []recipe.DishType {
	tiers := dishTiers[slot.Kind()]
	include := [3]bool{
		true,
		c.rng.Float64() < secondaryTierChance,
		c.rng.Float64() < tertiaryTierChance,
	}

	var out []recipe.DishType
	seen := make(map[recipe.DishType]bool)
	for i, tier := range tiers {
		if !include[i] {
			continue
		}
		dt, ok := c.leastUsedType(allowedTypes(tier, diet), week)
		if !ok || seen[dt] {
			continue
		}
		seen[dt] = true
		out = append(out, dt)
	}
	return out
}

func allowedTypes(types []recipe.DishType, diet recipe.DietType) []recipe.DishType {
	var out []recipe.DishType
	for _, t := range types {
		if recipe.IsDishTypeAllowed(t, diet) {
			out = append(out, t)
		}
	}
	return out
}

// leastUsedType returns the type with the fewest uses this week; ties go to the earlier type.
func (c *Composer) leastUsedType(types []recipe.DishType, week int) (recipe.DishType, bool) {
	if len(types) == 0 {
		return "", false
	}
	counts := make(map[recipe.DishType]int)
	for _, name := range c.tracker.NamesInWeek(week) {
		counts[c.corpus.TypeOf(name)]++
	}
	best := types[0]
	for _, t := range types[1:] {
		if counts[t] < counts[best] {
			best = t
		}
	}
	return best, true
}

// ScoreRecipe ranks a candidate for a slot. Higher is better.
func (c *Composer) ScoreRecipe(r recipe.Recipe, dt recipe.DishType, sub, running recipe.Nutrition, week, day int) float64 {
	score := c.baseScore(r, dt, sub, running, week, day)
	return score + (2*c.rng.Float64()-1)*jitterFraction*math.Abs(score)
}

func (c *Composer) baseScore(r recipe.Recipe, dt recipe.DishType, sub, running recipe.Nutrition, week, day int) float64 {
	rem := sub.Sub(running)
	var score float64

	cal := r.Nutrition.Calories
	if cal == 0 {
		cal = 100
	}
	score += fitCaloriesWeight / (math.Abs(cal-rem.Calories/2) + 1)
	if proteinDishes[dt] {
		score += fitProteinWeight / (math.Abs(r.Nutrition.Protein-rem.Protein/3) + 1)
	}

	uses := c.tracker.UsageCount(r.Name)
	if uses < len(usageBonus) {
		score += usageBonus[uses]
	} else {
		score -= float64(uses-len(usageBonus)+1) * overusePenaltyPerUse
	}

	switch c.tracker.CategoryUsageSize(r.Category) {
	case 0:
		score += categoryUnseenBonus
	case 1:
		score += categorySeenOnce
	}
	if c.tracker.UsedInWeek(r.Name, week) {
		score -= sameWeekPenalty
	}
	if c.tracker.UsedRecently(r.Name, week, day, recentDays) {
		score -= recentPenalty
	}

	if len([]rune(r.Description)) > 10 {
		score += descriptionBonus
	}
	if len(r.Instructions) >= 3 {
		score += instructionsBonus
	}
	if len(r.Ingredients) >= 3 {
		score += ingredientsBonus
	}
	return score
}

// SelectRecipe returns the best-scoring eligible recipe of a dish type. When
// no recipe of that type is eligible, any eligible recipe may be chosen.
func (c *Composer) SelectRecipe(dt recipe.DishType, sub, running recipe.Nutrition, cons Constraints, week, day int) (recipe.Recipe, bool) {
	p := c.pool(cons)
	candidates := p.byType[dt]
	if len(candidates) == 0 {
		candidates = p.allowed
	}
	if len(candidates) == 0 {
		return recipe.Recipe{}, false
	}

	best, bestScore := 0, math.Inf(-1)
	for i, r := range candidates {
		if s := c.ScoreRecipe(r, dt, sub, running, week, day); s > bestScore {
			best, bestScore = i, s
		}
	}
	return candidates[best], true
}

// ComposeMeal builds a meal for a slot, recording every chosen recipe.
func (c *Composer) ComposeMeal(slot Slot, sub recipe.Nutrition, cons Constraints, week, day int) *Meal {
	m := &Meal{
		Name:  slot.Name,
		Time:  slot.Time,
		Type:  slot.ID,
		Goals: sub,
	}

	for _, dt := range c.SelectDishTypes(slot.ID, cons.Diet, week) {
		r, ok := c.SelectRecipe(dt, m.Goals, m.Actual, cons, week, day)
		if !ok {
			c.miss(slot.ID, dt)
			continue
		}
		grams := c.ComputePortion(r, dt, m.Goals, m.Actual, cons.Diet)
		c.addDish(m, r, dt, grams, week, day)
	}

	c.balanceMeal(m, cons, week, day)
	return m
}

func (c *Composer) miss(slot SlotID, dt recipe.DishType) {
	c.logger.Debug("no eligible recipe", zap.String("slot", string(slot)), zap.String("dish_type", string(dt)))
	if c.observer != nil {
		c.observer.SelectionMiss(slot, dt)
	}
}

// addDish appends a scaled recipe, recomputes totals and records usage.
func (c *Composer) addDish(m *Meal, r recipe.Recipe, dt recipe.DishType, grams float64, week, day int) {
	m.Recipes = append(m.Recipes, NewScaledRecipe(r, dt, grams))
	m.Recalculate()
	c.tracker.Record(r.Name, week, day)
}

var (
	proteinBalancers = []recipe.DishType{recipe.ProteinBar, recipe.Eggs, recipe.Dairy, recipe.Poultry}
	fatBalancers     = []recipe.DishType{recipe.Nuts, recipe.Avocado, recipe.FattyFish}
	carbBalancers    = []recipe.DishType{recipe.Fruit, recipe.Vegetables, recipe.SideDish}
)

func slotBalancer(slot SlotID) recipe.DishType {
	switch slot.Kind() {
	case SlotBreakfast:
		return recipe.Fruit
	case SlotLunch:
		return recipe.Vegetables
	case SlotDinner:
		return recipe.Salad
	}
	return recipe.Yogurt
}

type macro int

const (
	macroNone macro = iota
	macroProtein
	macroFat
	macroCarbs
)

func (m macro) of(n recipe.Nutrition) float64 {
	switch m {
	case macroProtein:
		return n.Protein
	case macroFat:
		return n.Fat
	case macroCarbs:
		return n.Carbs
	}
	return 0
}

// balanceMeal adds one dish aimed at the largest remaining macro gap, in
// protein, fat, carbs priority.
func (c *Composer) balanceMeal(m *Meal, cons Constraints, week, day int) {
	if len(m.Recipes) >= c.maxDishes {
		return
	}
	rem := m.Remaining()
	if rem.Calories <= c.thresholds.MealMinCalories {
		return
	}

	var candidates []recipe.DishType
	target := macroNone
	switch {
	case rem.Protein > c.thresholds.MealProteinGap:
		candidates, target = proteinBalancers, macroProtein
	case rem.Fat > c.thresholds.MealFatGap:
		candidates, target = fatBalancers, macroFat
	case rem.Carbs > c.thresholds.MealCarbsGap:
		candidates, target = carbBalancers, macroCarbs
	}

	dt, ok := c.leastUsedType(allowedTypes(candidates, cons.Diet), week)
	if !ok {
		dt = slotBalancer(m.Type)
	}

	r, ok := c.SelectRecipe(dt, m.Goals, m.Actual, cons, week, day)
	if !ok {
		c.miss(m.Type, dt)
		return
	}

	grams := c.portion(r, dt, rem, cons.Diet, target)
	c.addDish(m, r, dt, grams, week, day)
}
