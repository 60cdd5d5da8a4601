package planner

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"nutrition-planner/internal/recipe"
)

// Goals are the user's daily calorie and macro targets.
type Goals struct {
	Calories float64 `json:"calories" validate:"gte=1000,lte=5000"`
	Protein  float64 `json:"protein" validate:"gte=30,lte=300"`
	Fat      float64 `json:"fat" validate:"gte=20,lte=150"`
	Carbs    float64 `json:"carbs" validate:"gte=100,lte=500"`
}

// Nutrition returns the goals as a nutrition value.
func (g Goals) Nutrition() recipe.Nutrition {
	return recipe.Nutrition{Calories: g.Calories, Protein: g.Protein, Fat: g.Fat, Carbs: g.Carbs}
}

// FieldViolation describes one rejected input field.
type FieldViolation struct {
	Field string
	Rule  string
	Param string
	Value any
}

// ValidationError reports user-correctable input outside sane bounds.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		if v.Param != "" {
			parts[i] = fmt.Sprintf("%s=%v violates %s=%s", v.Field, v.Value, v.Rule, v.Param)
		} else {
			parts[i] = fmt.Sprintf("%s=%v violates %s", v.Field, v.Value, v.Rule)
		}
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

var validate = validator.New()

// Validate checks goals and settings against their bounds.
func Validate(g Goals, s Settings) error {
	var violations []FieldViolation
	for _, v := range []any{g, s} {
		err := validate.Struct(v)
		if err == nil {
			continue
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("failed to validate input: %w", err)
		}
		for _, fe := range verrs {
			violations = append(violations, FieldViolation{
				Field: fe.StructNamespace(),
				Rule:  fe.Tag(),
				Param: fe.Param(),
				Value: fe.Value(),
			})
		}
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// Energy density of macros in kcal per gram.
const (
	kcalPerProtein = 4
	kcalPerFat     = 9
	kcalPerCarb    = 4

	macroTolerance = 0.05
)

// CorrectMacros rescales protein, fat and carbs proportionally when the
// calories they imply deviate from the calorie target by more than 5%.
// The calorie target itself is never changed.
func CorrectMacros(g Goals) Goals {
	implied := g.Protein*kcalPerProtein + g.Fat*kcalPerFat + g.Carbs*kcalPerCarb
	if implied == 0 || g.Calories == 0 {
		return g
	}
	if math.Abs(implied-g.Calories)/g.Calories <= macroTolerance {
		return g
	}
	f := g.Calories / implied
	return Goals{
		Calories: g.Calories,
		Protein:  math.Round(g.Protein * f),
		Fat:      math.Round(g.Fat * f),
		Carbs:    math.Round(g.Carbs * f),
	}
}
