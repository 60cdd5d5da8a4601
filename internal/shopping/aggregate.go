package shopping

import (
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"nutrition-planner/internal/planner"
)

// Item is one merged shopping-list entry. Amount is in Unit, which is a
// base unit (г, мл, шт) whenever the source unit was convertible.
type Item struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// Observer is notified about ingredient lines that do not reach the list.
type Observer interface {
	LineSkipped(reason string)
}

// Reasons passed to Observer.LineSkipped.
const (
	SkipToTaste   = "to_taste"
	SkipZero      = "zero_amount"
	SkipShortName = "short_name"
)

// skipMarkers exclude a raw line before parsing: garnish, serving and
// sub-component notes that are bought elsewhere in the recipe.
var skipMarkers = []string{
	"которую потом выбросим",
	"для украшения",
	"для подачи",
	"по вкусу",
	"для смазывания",
	"для начинки",
	"для коржей",
	"для карамели",
	"для теста",
	"для соуса",
	"щепотка",
}

type staple struct {
	stem      string
	canonical string
	excludes  []string
}

// staples collide under many spellings that per-name normalization keeps apart.
var staples = []staple{
	{stem: "яйц", canonical: "яйца"},
	{stem: "вода", canonical: "вода", excludes: []string{"томат", "апельсин"}},
	{stem: "молоко", canonical: "молоко", excludes: []string{"миндальн", "кокосов", "сух", "сгущ"}},
	{stem: "яблок", canonical: "яблоки"},
	{stem: "помидор", canonical: "помидоры"},
	{stem: "огур", canonical: "огурцы"},
}

func stapleFor(name string) (string, bool) {
	for _, s := range staples {
		if !strings.Contains(name, s.stem) || containsAny(name, s.excludes) {
			continue
		}
		return s.canonical, true
	}
	return "", false
}

// Aggregator turns a plan into a merged shopping list.
type Aggregator struct {
	logger   *zap.Logger
	observer Observer
}

// NewAggregator creates an Aggregator. Both arguments may be nil.
func NewAggregator(logger *zap.Logger, observer Observer) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{logger: logger, observer: observer}
}

// Aggregate walks every recipe of every meal in the plan and returns the
// merged list sorted by Russian collation. A nil plan yields an empty list.
func (a *Aggregator) Aggregate(plan *planner.Plan) []Item {
	if plan == nil {
		return nil
	}

	merged := make(map[string]*Item)
	var order []string

	plan.Visit(func(week, day int, m *planner.Meal) {
		for _, r := range m.Recipes {
			scale := r.PortionGrams / 100
			for _, line := range r.Ingredients {
				item, ok := a.lineItem(line, scale)
				if !ok {
					continue
				}
				if _, seen := merged[item.Name]; !seen {
					order = append(order, item.Name)
				}
				mergeInto(merged, item)
			}
		}
	})

	items := make([]Item, 0, len(order))
	for _, name := range order {
		items = append(items, *merged[name])
	}
	items = mergeStaples(items)
	sortItems(items)

	a.logger.Debug("Aggregated shopping list", zap.String("plan_id", plan.ID), zap.Int("items", len(items)))
	return items
}

func (a *Aggregator) lineItem(line string, scale float64) (Item, bool) {
	lower := strings.ToLower(line)
	if containsAny(lower, skipMarkers) {
		a.skip(line, SkipToTaste)
		return Item{}, false
	}

	ing := ParseLine(line)
	if ing.Unit == ToTaste {
		a.skip(line, SkipToTaste)
		return Item{}, false
	}
	if ing.Amount == 0 {
		a.skip(line, SkipZero)
		return Item{}, false
	}

	name := NormalizeName(ing.Name)
	if utf8.RuneCountInString(name) < 2 {
		a.skip(line, SkipShortName)
		return Item{}, false
	}

	amount, unit := Convert(ing.Amount*scale, ing.Unit)
	return Item{Name: name, Amount: amount, Unit: unit}, true
}

func (a *Aggregator) skip(line, reason string) {
	a.logger.Debug("Skipping ingredient line", zap.String("line", line), zap.String("reason", reason))
	if a.observer != nil {
		a.observer.LineSkipped(reason)
	}
}

// mergeInto sums compatible units and otherwise keeps the last seen amount and unit.
func mergeInto(merged map[string]*Item, item Item) {
	cur, ok := merged[item.Name]
	if !ok {
		merged[item.Name] = &item
		return
	}
	if cur.Unit == item.Unit || baseUnit(cur.Unit) == baseUnit(item.Unit) {
		amount, unit := Convert(item.Amount, item.Unit)
		curAmount, _ := Convert(cur.Amount, cur.Unit)
		cur.Amount = curAmount + amount
		cur.Unit = unit
		return
	}
	cur.Amount = item.Amount
	cur.Unit = item.Unit
}

// mergeStaples folds staple spellings into their canonical name. Entries
// whose units cannot be summed stay separate.
func mergeStaples(items []Item) []Item {
	type key struct{ name, unit string }
	groups := make(map[key]int)
	out := make([]Item, 0, len(items))

	for _, it := range items {
		canonical, ok := stapleFor(it.Name)
		if !ok {
			out = append(out, it)
			continue
		}
		amount, unit := Convert(it.Amount, it.Unit)
		k := key{canonical, unit}
		if i, seen := groups[k]; seen {
			out[i].Amount += amount
			continue
		}
		groups[k] = len(out)
		out = append(out, Item{Name: canonical, Amount: amount, Unit: unit})
	}
	return out
}

func sortItems(items []Item) {
	c := collate.New(language.Russian, collate.IgnoreCase)
	sort.SliceStable(items, func(i, j int) bool {
		if cmp := c.CompareString(items[i].Name, items[j].Name); cmp != 0 {
			return cmp < 0
		}
		return items[i].Unit < items[j].Unit
	})
}
