package planner

import "strings"

type dayKey struct {
	week, day int
}

// DiversityTracker records recipe and category usage for one plan. It is
// owned by a Builder and reset at the start of every generation.
type DiversityTracker struct {
	categoryOf func(name string) (string, bool)

	days          map[dayKey][]string       // names used per day, first-use order
	dayCounts     map[dayKey]map[string]int // multiplicity per day
	usage         map[string]int
	categoryUsage map[string]map[string]struct{}
	lastUsedWeek  map[string]int
}

// NewDiversityTracker creates an empty tracker. categoryOf resolves a recipe
// name to its category; it may be nil.
func NewDiversityTracker(categoryOf func(name string) (string, bool)) *DiversityTracker {
	t := &DiversityTracker{categoryOf: categoryOf}
	t.Reset()
	return t
}

// Reset clears all state.
func (t *DiversityTracker) Reset() {
	t.days = make(map[dayKey][]string)
	t.dayCounts = make(map[dayKey]map[string]int)
	t.usage = make(map[string]int)
	t.categoryUsage = make(map[string]map[string]struct{})
	t.lastUsedWeek = make(map[string]int)
}

func (t *DiversityTracker) category(name string) string {
	if t.categoryOf == nil {
		return ""
	}
	c, ok := t.categoryOf(name)
	if !ok {
		return ""
	}
	return strings.ToLower(c)
}

// Record notes that name was used on the given week and day.
func (t *DiversityTracker) Record(name string, week, day int) {
	k := dayKey{week, day}
	counts := t.dayCounts[k]
	if counts == nil {
		counts = make(map[string]int)
		t.dayCounts[k] = counts
	}
	if counts[name] == 0 {
		t.days[k] = append(t.days[k], name)
	}
	counts[name]++

	t.usage[name]++

	if c := t.category(name); c != "" {
		set := t.categoryUsage[c]
		if set == nil {
			set = make(map[string]struct{})
			t.categoryUsage[c] = set
		}
		set[name] = struct{}{}
	}
	t.lastUsedWeek[name] = week
}

// Unrecord reverses one Record call. Counts never drop below zero.
func (t *DiversityTracker) Unrecord(name string, week, day int) {
	k := dayKey{week, day}
	if counts := t.dayCounts[k]; counts[name] > 0 {
		counts[name]--
		if counts[name] == 0 {
			delete(counts, name)
			t.days[k] = removeName(t.days[k], name)
		}
	}

	if t.usage[name] <= 1 {
		delete(t.usage, name)
		delete(t.lastUsedWeek, name)
		if c := t.category(name); c != "" {
			delete(t.categoryUsage[c], name)
		}
		return
	}
	t.usage[name]--
}

func removeName(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

// UsageCount returns how many times name has been recorded.
func (t *DiversityTracker) UsageCount(name string) int {
	return t.usage[name]
}

// CategoryUsageSize returns how many distinct recipes of a category were used.
func (t *DiversityTracker) CategoryUsageSize(category string) int {
	return len(t.categoryUsage[strings.ToLower(category)])
}

// UsedInWeek reports whether name was used on any day of week.
func (t *DiversityTracker) UsedInWeek(name string, week int) bool {
	for day := 1; day <= DaysPerWeek; day++ {
		if t.dayCounts[dayKey{week, day}][name] > 0 {
			return true
		}
	}
	return false
}

// UsedRecently reports whether name was used in the daysBack days preceding day.
func (t *DiversityTracker) UsedRecently(name string, week, day, daysBack int) bool {
	for d := max(1, day-daysBack); d < day; d++ {
		if t.dayCounts[dayKey{week, d}][name] > 0 {
			return true
		}
	}
	return false
}

// LastUsedWeek returns the last week name was used in.
func (t *DiversityTracker) LastUsedWeek(name string) (int, bool) {
	w, ok := t.lastUsedWeek[name]
	return w, ok
}

// NamesInWeek returns every recorded use in week, one entry per day it was used.
func (t *DiversityTracker) NamesInWeek(week int) []string {
	var out []string
	for day := 1; day <= DaysPerWeek; day++ {
		out = append(out, t.days[dayKey{week, day}]...)
	}
	return out
}

// NamesOn returns the recipes used on a given day in first-use order.
func (t *DiversityTracker) NamesOn(week, day int) []string {
	return append([]string(nil), t.days[dayKey{week, day}]...)
}
