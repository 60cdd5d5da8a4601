package shopping

import "strings"

// Category is a grocery-store section.
type Category string

const (
	CategoryMeat    Category = "🥩 Мясо и рыба"
	CategoryDairy   Category = "🥛 Молочные продукты и яйца"
	CategoryProduce Category = "🥬 Овощи и фрукты"
	CategoryGrocery Category = "🌾 Бакалея"
	CategorySpices  Category = "🧂 Специи и соусы"
	CategoryOther   Category = "🛒 Прочее"
)

// Categories lists sections in store-walk order.
var Categories = []Category{CategoryMeat, CategoryDairy, CategoryProduce, CategoryGrocery, CategorySpices, CategoryOther}

// categoryRules are evaluated in order; the first rule with a matching stem wins.
var categoryRules = []struct {
	category Category
	stems    []string
}{
	// Spices first so "перец черный" is not produce and "масло" sauces are not dairy.
	{CategorySpices, []string{"соль", "черный перец", "молотый", "паприка", "корица", "куркума", "ванил", "соус", "уксус", "горчиц", "кетчуп", "майонез", "специ", "приправ", "лавров", "имбир"}},
	{CategoryMeat, []string{"куриц", "курин", "индейк", "говя", "свин", "фарш", "мясо", "бекон", "колбас", "сосиск", "ветчин", "рыб", "лосос", "семг", "тунец", "треск", "минта", "креветк", "кальмар", "филе"}},
	{CategoryDairy, []string{"молок", "кефир", "йогурт", "творог", "сыр", "сливк", "сметан", "ряженк", "яйц", "яичн", "сливочное масло"}},
	{CategoryProduce, []string{"яблок", "банан", "апельсин", "лимон", "груш", "ягод", "клубник", "черник", "малин", "виноград", "помидор", "огур", "морков", "лук", "чеснок", "картоф", "капуст", "кабач", "перец", "брокколи", "шпинат", "салат", "зелень", "укроп", "петрушк", "гриб", "шампиньон", "авокадо", "свекл", "тыкв", "баклажан"}},
	{CategoryGrocery, []string{"мука", "крупа", "рис", "гречк", "овсян", "хлопья", "макарон", "паста", "хлеб", "сахар", "мед", "масло", "орех", "миндаль", "кешью", "семечк", "фасоль", "чечевиц", "нут", "горох", "шоколад", "какао", "разрыхлит", "дрожж", "сода"}},
}

// Categorize assigns an aggregated item name to a store section.
func Categorize(name string) Category {
	n := strings.ToLower(name)
	for _, rule := range categoryRules {
		if containsAny(n, rule.stems) {
			return rule.category
		}
	}
	return CategoryOther
}

// FormatGrouped renders the list under category headings. Empty sections
// are omitted; items keep their relative order within a section.
func FormatGrouped(items []Item) string {
	groups := make(map[Category][]Item)
	for _, it := range items {
		c := Categorize(it.Name)
		groups[c] = append(groups[c], it)
	}

	var sb strings.Builder
	sb.WriteString(Header)
	sb.WriteString("\n")
	for _, c := range Categories {
		group := groups[c]
		if len(group) == 0 {
			continue
		}
		sb.WriteString("\n")
		sb.WriteString(string(c))
		sb.WriteString("\n")
		for _, it := range group {
			sb.WriteString(FormatItem(it))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
