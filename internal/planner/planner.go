package planner

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nutrition-planner/internal/recipe"
)

// Builder orchestrates meal composition across a whole plan and owns the
// DiversityTracker used for every selection.
type Builder struct {
	corpus     *recipe.Corpus
	tracker    *DiversityTracker
	composer   *Composer
	thresholds Thresholds
	maxDishes  int
	logger     *zap.Logger
	now        func() time.Time
}

type builderOptions struct {
	rng        Rand
	thresholds Thresholds
	maxDishes  int
	observer   Observer
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a Builder.
type Option func(*builderOptions)

// WithRand injects the random source. Tests pass a fixed-seed source.
func WithRand(r Rand) Option { return func(o *builderOptions) { o.rng = r } }

// WithThresholds overrides the balancing thresholds.
func WithThresholds(th Thresholds) Option { return func(o *builderOptions) { o.thresholds = th } }

// WithMaxDishesPerMeal caps dishes added by balancing passes.
func WithMaxDishesPerMeal(n int) Option { return func(o *builderOptions) { o.maxDishes = n } }

// WithObserver registers an Observer for selection misses.
func WithObserver(obs Observer) Option { return func(o *builderOptions) { o.observer = obs } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(o *builderOptions) { o.logger = l } }

// WithClock overrides time.Now for plan timestamps.
func WithClock(now func() time.Time) Option { return func(o *builderOptions) { o.now = now } }

// NewBuilder creates a Builder over a loaded corpus.
func NewBuilder(corpus *recipe.Corpus, opts ...Option) *Builder {
	o := builderOptions{
		thresholds: DefaultThresholds(),
		maxDishes:  DefaultMaxDishesPerMeal,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	tracker := NewDiversityTracker(corpus.CategoryOf)
	return &Builder{
		corpus:     corpus,
		tracker:    tracker,
		composer:   NewComposer(corpus, tracker, o.rng, o.thresholds, o.maxDishes, o.observer, o.logger),
		thresholds: o.thresholds,
		maxDishes:  o.maxDishes,
		logger:     o.logger,
		now:        o.now,
	}
}

// Tracker exposes the builder's usage history.
func (b *Builder) Tracker() *DiversityTracker { return b.tracker }

// Composer exposes the meal composer.
func (b *Builder) Composer() *Composer { return b.composer }

// Corpus returns the recipe corpus.
func (b *Builder) Corpus() *recipe.Corpus { return b.corpus }

func constraintsOf(s Settings) Constraints {
	diet := s.DietType
	if diet == "" {
		diet = recipe.DietBalanced
	}
	return Constraints{Diet: diet, Restrictions: s.Restrictions}
}

// GeneratePlan validates the inputs and builds a fresh plan. Invalid input
// fails with *ValidationError before any state is touched.
func (b *Builder) GeneratePlan(goals Goals, settings Settings) (*Plan, error) {
	if err := Validate(goals, settings); err != nil {
		return nil, err
	}
	if settings.DietType == "" {
		settings.DietType = recipe.DietBalanced
	}

	now := b.now()
	plan := &Plan{
		ID:          uuid.NewString(),
		Goals:       goals,
		Settings:    settings,
		GeneratedAt: now,
		UpdatedAt:   now,
	}
	b.build(plan)

	b.logger.Info("meal plan generated",
		zap.String("plan_id", plan.ID),
		zap.String("diet", string(settings.DietType)),
		zap.Int("meal_count", settings.MealCount),
		zap.Int("weeks", settings.WeekCount()),
		zap.Int("unique_recipes", len(b.tracker.usage)))
	return plan, nil
}

// RegenerateWithVariety discards all usage history and rebuilds every week
// of the plan with the same goals and settings.
func (b *Builder) RegenerateWithVariety(plan *Plan) error {
	if plan == nil {
		return ErrNoPlan
	}
	if err := Validate(plan.Goals, plan.Settings); err != nil {
		return err
	}
	b.build(plan)
	plan.UpdatedAt = b.now()
	b.logger.Info("meal plan regenerated", zap.String("plan_id", plan.ID))
	return nil
}

func (b *Builder) build(plan *Plan) {
	b.tracker.Reset()
	cons := constraintsOf(plan.Settings)
	layout := Layout(plan.Settings.MealCount)

	plan.Weeks = make(map[int]*Week, plan.Settings.WeekCount())
	for wn := 1; wn <= plan.Settings.WeekCount(); wn++ {
		week := &Week{Number: wn, Days: make(map[int]*Day, DaysPerWeek)}
		for dn := 1; dn <= DaysPerWeek; dn++ {
			day := &Day{DayNumber: dn, Meals: make(map[SlotID]*Meal, len(layout))}
			for _, slot := range layout {
				day.Meals[slot.ID] = b.composer.ComposeMeal(slot, slot.SubGoals(plan.Goals), cons, wn, dn)
			}
			b.balanceDay(day, layout, cons, wn, dn)
			week.Days[dn] = day
		}
		plan.Weeks[wn] = week
	}
}

// balanceDay appends one dish to the meal with the largest calorie shortfall
// when the day as a whole is under target.
func (b *Builder) balanceDay(day *Day, layout []Slot, cons Constraints, week, dn int) {
	var goals, actual recipe.Nutrition
	for _, m := range day.Meals {
		goals = goals.Add(m.Goals)
		actual = actual.Add(m.Actual)
	}
	rem := goals.Sub(actual)
	if rem.Calories < b.thresholds.DayMinCalories {
		return
	}

	var target *Meal
	deficit := 0.0
	for _, slot := range layout {
		m := day.Meals[slot.ID]
		if m == nil || len(m.Recipes) >= b.maxDishes {
			continue
		}
		if d := m.Goals.Calories - m.Actual.Calories; d > deficit {
			target, deficit = m, d
		}
	}
	if target == nil {
		return
	}

	dt := b.topUpType(rem, cons.Diet, b.thresholds.DayProteinGap, math.Inf(1))
	r, ok := b.composer.SelectRecipe(dt, target.Goals, target.Actual, cons, week, dn)
	if !ok {
		b.composer.miss(target.Type, dt)
		return
	}
	grams := b.composer.ComputePortion(r, dt, target.Goals, target.Actual, cons.Diet)
	b.composer.addDish(target, r, dt, grams, week, dn)
}

// topUpType chooses a dish type for closing a remaining gap: a protein bar
// for protein, nuts for fat, fruit otherwise. Types the diet forbids fall
// through to the next choice.
func (b *Builder) topUpType(rem recipe.Nutrition, diet recipe.DietType, proteinGap, carbsGap float64) recipe.DishType {
	var order []recipe.DishType
	if rem.Protein > proteinGap {
		order = append(order, recipe.ProteinBar)
	}
	if rem.Fat > b.thresholds.DayFatGap {
		order = append(order, recipe.Nuts)
	}
	if rem.Carbs > carbsGap || len(order) == 0 {
		order = append(order, recipe.Fruit)
	}
	order = append(order, recipe.Vegetables)

	for _, dt := range order {
		if recipe.IsDishTypeAllowed(dt, diet) {
			return dt
		}
	}
	return recipe.Vegetables
}

// RebuildTracker replays every dish of a loaded plan into a fresh usage
// history so later edits see the plan's existing repetition.
func (b *Builder) RebuildTracker(plan *Plan) {
	b.tracker.Reset()
	if plan == nil {
		return
	}
	plan.Visit(func(week, day int, m *Meal) {
		for _, r := range m.Recipes {
			b.tracker.Record(r.Name, week, day)
		}
	})
}
