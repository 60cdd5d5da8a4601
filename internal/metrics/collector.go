package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"nutrition-planner/internal/planner"
	"nutrition-planner/internal/recipe"
)

const namespace = "nutrition_planner"

// Collector exports planner and shopping activity to Prometheus. It
// satisfies both planner.Observer and shopping.Observer.
type Collector struct {
	plansTotal      *prometheus.CounterVec
	selectionMisses *prometheus.CounterVec
	skippedLines    *prometheus.CounterVec
	buildDuration   *prometheus.HistogramVec
	saveFailures    *prometheus.CounterVec
	dishesPerPlan   prometheus.Histogram
}

// NewCollector registers the collectors on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		plansTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_total",
			Help:      "Plans built, by operation and diet type.",
		}, []string{"operation", "diet"}),
		selectionMisses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selection_misses_total",
			Help:      "Dish types skipped because no eligible recipe existed.",
		}, []string{"slot", "dish_type"}),
		skippedLines: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "shopping",
			Name:      "skipped_lines_total",
			Help:      "Ingredient lines left out of shopping lists, by reason.",
		}, []string{"reason"}),
		buildDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_build_duration_seconds",
			Help:      "Time spent building a plan.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"operation"}),
		saveFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Failed plan loads and saves.",
		}, []string{"op"}),
		dishesPerPlan: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dishes_per_plan",
			Help:      "Total dishes in a built plan.",
			Buckets:   prometheus.LinearBuckets(0, 50, 10),
		}),
	}
}

// SelectionMiss implements planner.Observer.
func (c *Collector) SelectionMiss(slot planner.SlotID, dt recipe.DishType) {
	c.selectionMisses.WithLabelValues(string(slot), string(dt)).Inc()
}

// LineSkipped implements shopping.Observer.
func (c *Collector) LineSkipped(reason string) {
	c.skippedLines.WithLabelValues(reason).Inc()
}

// PlanBuilt records a finished build.
func (c *Collector) PlanBuilt(m GenerationMetric) {
	c.plansTotal.WithLabelValues(m.Operation, m.DietType).Inc()
	c.buildDuration.WithLabelValues(m.Operation).Observe((time.Duration(m.LatencyMS) * time.Millisecond).Seconds())
	c.dishesPerPlan.Observe(float64(m.Dishes))
}

// PersistenceFailed counts a failed load or save.
func (c *Collector) PersistenceFailed(op string) {
	c.saveFailures.WithLabelValues(op).Inc()
}
