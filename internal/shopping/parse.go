package shopping

import (
	"regexp"
	"strconv"
	"strings"
)

// Ingredient is one parsed ingredient line.
type Ingredient struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

const unknownIngredient = "неизвестный ингредиент"

// toTasteMarkers flag lines that carry no purchasable quantity.
var toTasteMarkers = []string{
	"по вкусу",
	"для украшения",
	"для подачи",
	"для смазывания",
	"для начинки",
	"для коржей",
	"для карамели",
}

const (
	qtyExpr  = `(\d+(?:[.,]\d+)?(?:/\d+)?)`
	unitExpr = `(килограмм\p{L}*|кг|граммов|грамма|грамм|гр|г|миллилитр\p{L}*|мл|литр\p{L}*|л|штук\p{L}*|шт|` +
		`столов\p{L}*\s+лож\p{L}*|ст\.?\s?л|чайн\p{L}*\s+лож\p{L}*|ч\.?\s?л|стакан\p{L}*|зубчик\p{L}*|зуб|` +
		`пучок|пучк\p{L}*|банок|банк\p{L}*|пакет\p{L}*|бутыл\p{L}*|упаков\p{L}*|пачек|пачк\p{L}*|` +
		`кусоч\p{L}*|кусок|куска|стебель|стебл\p{L}*|щепот\p{L}*|щепоть)`
)

var (
	// "300 гр. куриное филе"
	qtyUnitNamePattern = regexp.MustCompile(`^` + qtyExpr + `\s*` + unitExpr + `\.?\s+(.+)$`)
	// "куриное филе 300 гр."
	nameQtyUnitPattern = regexp.MustCompile(`^(.+?)\s+` + qtyExpr + `\s*` + unitExpr + `\.?$`)
	// "куриное филе-300г"
	nameDashQtyUnitPattern = regexp.MustCompile(`^(.+?)\s*[-–—]\s*` + qtyExpr + `\s*` + unitExpr + `\.?$`)
	// "куриное филе 300"
	nameQtyPattern = regexp.MustCompile(`^(.+?)\s*[-–—]?\s+` + qtyExpr + `$`)
	// "2 яйца"
	qtyNamePattern = regexp.MustCompile(`^` + qtyExpr + `\s+(.+)$`)

	parenPattern = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	spacePattern = regexp.MustCompile(`\s+`)
)

var (
	weightKeywords = []string{
		"мясо", "филе", "фарш", "рыба", "творог", "сыр", "мука", "сахар", "соль", "орех", "семя",
		"крупа", "боб", "фрукт", "овощ", "гриб", "хлеб", "тесто", "шоколад", "паста", "масло",
		"йогурт", "молоко", "сливки", "кефир",
	}
	liquidKeywords = []string{
		"вода", "молоко", "сок", "масло", "уксус", "соус", "бульон", "кефир", "йогурт", "сливки",
		"ликер", "вино", "пиво", "чай", "кофе",
	}
	countableKeywords = []string{
		"яйцо", "яйца", "яблоко", "помидор", "огурец", "перец", "картофелина", "морковь", "луковица",
		"голень", "крыло", "филе", "стейк", "котлета", "колбаса", "сосиска", "булка", "лепешка", "лаваш",
	}
)

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// ParseLine splits a free-text ingredient line into name, amount and unit.
// It never fails: unrecognized shapes degrade to a default amount.
func ParseLine(raw string) Ingredient {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return Ingredient{Name: unknownIngredient, Amount: 1, Unit: Piece}
	}

	if containsAny(s, toTasteMarkers) {
		name := s
		for _, m := range toTasteMarkers {
			name = strings.ReplaceAll(name, m, " ")
		}
		return Ingredient{Name: cleanParsedName(name), Amount: 1, Unit: ToTaste}
	}

	// "Куриное филе 300 гр.: 2 шт" describes the same item twice.
	if i := strings.Index(s, ":"); i > 0 {
		s = s[:i]
	}
	s = parenPattern.ReplaceAllString(s, " ")
	s = strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
	if s == "" {
		return Ingredient{Name: unknownIngredient, Amount: 1, Unit: Piece}
	}

	ing := matchLine(s)
	ing.Name = cleanParsedName(ing.Name)
	if ing.Name == "" {
		ing.Name = unknownIngredient
	}
	return ing
}

func matchLine(s string) Ingredient {
	if m := qtyUnitNamePattern.FindStringSubmatch(s); m != nil {
		return Ingredient{Name: m[3], Amount: parseQuantity(m[1]), Unit: NormalizeUnit(m[2])}
	}
	if m := nameQtyUnitPattern.FindStringSubmatch(s); m != nil {
		return Ingredient{Name: m[1], Amount: parseQuantity(m[2]), Unit: NormalizeUnit(m[3])}
	}
	if m := nameDashQtyUnitPattern.FindStringSubmatch(s); m != nil {
		return Ingredient{Name: m[1], Amount: parseQuantity(m[2]), Unit: NormalizeUnit(m[3])}
	}
	if m := nameQtyPattern.FindStringSubmatch(s); m != nil {
		return Ingredient{Name: m[1], Amount: parseQuantity(m[2]), Unit: guessUnit(m[1])}
	}
	if m := qtyNamePattern.FindStringSubmatch(s); m != nil {
		return Ingredient{Name: m[2], Amount: parseQuantity(m[1]), Unit: guessUnit(m[2])}
	}

	switch {
	case containsAny(s, weightKeywords):
		return Ingredient{Name: s, Amount: 100, Unit: Gram}
	case containsAny(s, liquidKeywords):
		return Ingredient{Name: s, Amount: 100, Unit: Milliliter}
	case containsAny(s, countableKeywords):
		return Ingredient{Name: s, Amount: 1, Unit: Piece}
	}
	return Ingredient{Name: s, Amount: 1, Unit: ToTaste}
}

// guessUnit infers a unit for a bare number from what the ingredient is.
func guessUnit(name string) string {
	switch {
	case containsAny(name, weightKeywords):
		return Gram
	case containsAny(name, liquidKeywords):
		return Milliliter
	}
	return Piece
}

// parseQuantity reads "300", "1,5" or "1/2". Unreadable input yields 1.
func parseQuantity(q string) float64 {
	q = strings.ReplaceAll(q, ",", ".")
	if num, den, ok := strings.Cut(q, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 1
		}
		return n / d
	}
	v, err := strconv.ParseFloat(q, 64)
	if err != nil {
		return 1
	}
	return v
}

func cleanParsedName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '(', ')', '[', ']':
			return ' '
		}
		return r
	}, name)
	name = spacePattern.ReplaceAllString(name, " ")
	return strings.Trim(name, " -–—:;,.")
}
