package recipe

import "strings"

// DietType is a named macro/ingredient policy filtering eligible recipes.
type DietType string

const (
	DietBalanced    DietType = "balanced"
	DietKeto        DietType = "keto"
	DietVegetarian  DietType = "vegetarian"
	DietVegan       DietType = "vegan"
	DietHighProtein DietType = "high_protein"
	DietLowFat      DietType = "low_fat"
	DietLowCarb     DietType = "low_carb"
)

var dietNames = map[DietType]string{
	DietBalanced:    "Сбалансированное",
	DietKeto:        "Кето",
	DietVegetarian:  "Вегетарианское",
	DietVegan:       "Веганское",
	DietHighProtein: "Высокобелковое",
	DietLowFat:      "Низкожировое",
	DietLowCarb:     "Низкоуглеводное",
}

// DisplayName returns the human-readable (Russian) diet name.
func (d DietType) DisplayName() string {
	if name, ok := dietNames[d]; ok {
		return name
	}
	return dietNames[DietBalanced]
}

// Valid reports whether d is a known diet.
func (d DietType) Valid() bool {
	_, ok := dietNames[d]
	return ok
}

// Restriction names an ingredient group the user must avoid.
type Restriction string

const (
	NoPork   Restriction = "pork"
	NoFish   Restriction = "fish"
	NoMilk   Restriction = "milk"
	NoGluten Restriction = "gluten"
	NoNuts   Restriction = "nuts"
	NoEggs   Restriction = "eggs"
	NoSoy    Restriction = "soy"
	NoHoney  Restriction = "honey"
)

// RestrictionKeywords lists ingredient stems that violate each restriction.
var RestrictionKeywords = map[Restriction][]string{
	NoPork:   {"свинин", "бекон", "ветчин", "сало", "карбонад"},
	NoFish:   {"рыб", "лосос", "тунец", "сельд", "скумбр", "креветк", "кальмар", "миди", "икра"},
	NoMilk:   {"молок", "сыр", "творог", "сметан", "йогурт", "кефир", "сливк", "ряженк"},
	NoGluten: {"пшениц", "рожь", "ячмен", "хлеб", "макарон", "паст", "лапш", "мука", "булгур"},
	NoNuts:   {"орех", "миндаль", "грецкий", "арахис", "кешью", "фундук", "фисташк"},
	NoEggs:   {"яйц", "яичн", "желток", "белок"},
	NoSoy:    {"соев", "тофу"},
	NoHoney:  {"мед", "медов"},
}

var (
	meatKeywords   = []string{"мяс", "говядин", "свинин", "куриц", "индейк", "утк", "баран", "телятин", "конин"}
	fishKeywords   = []string{"рыб", "лосос", "тунец", "сельд", "скумбр", "окун", "карп", "щук"}
	animalKeywords = []string{"мяс", "рыб", "яйц", "молок", "сыр", "творог", "сметан", "мед"}
)

// Per-100g limits applied by diet rules. A recipe is only rejected when it
// also exceeds the calorie floor, so near-zero-calorie items pass.
const (
	KetoMaxCarbs         = 10.0
	KetoCalorieFloor     = 100.0
	HighProteinMinimum   = 15.0
	HighProteinCalFloor  = 150.0
	LowFatMaxFat         = 10.0
	LowFatCalorieFloor   = 150.0
	BreakfastMaxCalories = 400.0
	BreakfastMaxFat      = 25.0
	BreakfastMaxCarbs    = 60.0
	BreakfastMinProtein  = 10.0
)

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// ingredientText is the lowercased concatenation of a recipe's ingredient lines.
func ingredientText(r Recipe) string {
	return strings.ToLower(strings.Join(r.Ingredients, " "))
}

// IsAllowed reports whether a recipe satisfies the restrictions and diet.
// Unknown restrictions are matched as literal keywords.
func IsAllowed(r Recipe, restrictions []Restriction, diet DietType) bool {
	text := ingredientText(r)

	for _, res := range restrictions {
		keywords, ok := RestrictionKeywords[res]
		if !ok {
			keywords = []string{strings.ToLower(string(res))}
		}
		if containsAny(text, keywords) {
			return false
		}
	}

	n := r.Nutrition
	switch diet {
	case DietVegetarian:
		return !containsAny(text, meatKeywords) && !containsAny(text, fishKeywords)
	case DietVegan:
		return !containsAny(text, animalKeywords)
	case DietKeto:
		return !(n.Carbs > KetoMaxCarbs && n.Calories > KetoCalorieFloor)
	case DietHighProtein:
		return !(n.Protein < HighProteinMinimum && n.Calories > HighProteinCalFloor)
	case DietLowFat:
		return !(n.Fat > LowFatMaxFat && n.Calories > LowFatCalorieFloor)
	}
	return true
}

// dietDishRestrictions lists the restriction groups each diet places on dish types.
var dietDishRestrictions = map[DietType][]string{
	DietVegetarian:  {"meat", "fish", "poultry"},
	DietVegan:       {"meat", "fish", "poultry", "dairy", "eggs"},
	DietKeto:        {"cereal", "fruit", "baking", "dessert", "pasta", "rice"},
	DietLowFat:      {"fatty_meat", "nuts", "oils", "avocado"},
	DietHighProtein: {"fruit", "dessert", "sweets"},
}

// restrictionDishTypes expands a restriction group into the dish types it
// blocks. Groups without an entry block nothing.
var restrictionDishTypes = map[string][]DishType{
	"meat":       {"meat", Poultry, Fish},
	"dairy":      {Dairy, Yogurt, "cheese"},
	"cereal":     {Cereal, Baking, Pasta, Rice},
	"fruit":      {Fruit, "sweet"},
	"nuts":       {Nuts, Seeds},
	"fatty_meat": {"pork", "beef", "lamb"},
}

// IsDishTypeAllowed reports whether a diet permits a dish type.
func IsDishTypeAllowed(dt DishType, diet DietType) bool {
	for _, group := range dietDishRestrictions[diet] {
		for _, blocked := range restrictionDishTypes[group] {
			if blocked == dt {
				return false
			}
		}
	}
	return true
}

var unhealthyBreakfastKeywords = []string{
	"торт", "пирожное", "печенье", "шоколад", "конфеты",
	"сладкий", "сахар", "варенье", "джем", "мороженое",
}

// IsHealthyForBreakfast rejects sweets and calorie-dense or low-protein
// high-carb recipes for the morning slot.
func IsHealthyForBreakfast(r Recipe) bool {
	name := strings.ToLower(r.Name)
	text := ingredientText(r)
	for _, kw := range unhealthyBreakfastKeywords {
		if strings.Contains(name, kw) || strings.Contains(text, kw) {
			return false
		}
	}

	n := r.Nutrition
	if n.Calories > BreakfastMaxCalories || n.Fat > BreakfastMaxFat {
		return false
	}
	if n.Carbs > BreakfastMaxCarbs && n.Protein < BreakfastMinProtein {
		return false
	}
	return true
}
