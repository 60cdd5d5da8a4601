package recipe

import "strings"

// DishType is a coarse category tag used to vary a meal's composition.
type DishType string

const (
	Breakfast  DishType = "breakfast"
	Porridge   DishType = "porridge"
	Cereal     DishType = "cereal"
	Smoothie   DishType = "smoothie"
	Pancakes   DishType = "pancakes"
	Dairy      DishType = "dairy"
	Eggs       DishType = "eggs"
	Soup       DishType = "soup"
	Main       DishType = "main"
	Salad      DishType = "salad"
	Snack      DishType = "snack"
	Fruit      DishType = "fruit"
	Yogurt     DishType = "yogurt"
	Nuts       DishType = "nuts"
	Seeds      DishType = "seeds"
	ProteinBar DishType = "protein_bar"
	Dessert    DishType = "dessert"
	Baking     DishType = "baking"
	Light      DishType = "light"
	SideDish   DishType = "side_dish"
	Poultry    DishType = "poultry"
	Fish       DishType = "fish"
	Seafood    DishType = "seafood"
	Legumes    DishType = "legumes"
	Vegetables DishType = "vegetables"
	Avocado    DishType = "avocado"
	FattyFish  DishType = "fatty_fish"
	Pasta      DishType = "pasta"
	Rice       DishType = "rice"
)

// ClassificationRule maps a recipe to a dish type when any keyword occurs in
// its lowercased name or category.
type ClassificationRule struct {
	Type     DishType
	Keywords []string
}

func (r ClassificationRule) matches(text string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// ClassificationRules is evaluated in order; the first matching rule wins.
var ClassificationRules = []ClassificationRule{
	{Breakfast, []string{"завтрак", "утренн"}},
	{Porridge, []string{"каша", "овсян", "гречнев", "рисовая каша"}},
	{Smoothie, []string{"смузи", "коктейль"}},
	{Pancakes, []string{"блин", "оладь"}},
	{Dairy, []string{"творог", "сырник"}},
	{Eggs, []string{"яйц", "яичн", "омлет"}},
	{Soup, []string{"суп", "борщ", "щи"}},
	{Main, []string{"котлет", "стейк", "жаркое", "рагу"}},
	{Salad, []string{"салат"}},
	{Snack, []string{"перекус", "сэндвич", "бутерброд"}},
	{Fruit, []string{"фрукт", "яблоко", "банан", "апельсин"}},
	{Yogurt, []string{"йогурт", "кефир", "ряженк"}},
	{Nuts, []string{"орех", "миндаль", "грецкий", "арахис"}},
	{ProteinBar, []string{"протеин", "батончик белков"}},
	{Dessert, []string{"десерт", "торт", "пирожное"}},
	{Light, []string{"легк", "диетическ", "постн"}},
	{SideDish, []string{"гарнир", "паста", "макарон", "рис ", "греч ", "картофель"}},
	{Poultry, []string{"куриц", "индейк", "утк"}},
	{Fish, []string{"рыб", "лосос", "тунец", "треск"}},
	{Vegetables, []string{"овощ", "брокколи", "цветная", "морковь", "капуст"}},
	{Cereal, []string{"мюсли", "гранол", "хлопь"}},
	{Baking, []string{"выпечк", "пирог", "кекс", "булоч", "маффин"}},
	{Seafood, []string{"кревет", "кальмар", "мидии"}},
	{Legumes, []string{"фасол", "чечевиц", "нут ", "горох"}},
	{Seeds, []string{"семечк", "семена", "чиа"}},
}

// Classify returns the dish type of a recipe. Recipes matching no rule fall
// back to their category, then to Main.
func Classify(r Recipe) DishType {
	// Trailing space lets word-final keywords such as "рис " match.
	name := strings.ToLower(r.Name) + " "
	category := strings.ToLower(r.Category) + " "
	for _, rule := range ClassificationRules {
		if rule.matches(name) || rule.matches(category) {
			return rule.Type
		}
	}

	switch {
	case strings.Contains(category, "breakfast"):
		return Breakfast
	case strings.Contains(category, "soup"):
		return Soup
	default:
		return Main
	}
}
