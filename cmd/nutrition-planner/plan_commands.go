package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"nutrition-planner/internal/app"
	"nutrition-planner/internal/planner"
	"nutrition-planner/internal/recipe"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var goals planner.Goals
	var settings planner.Settings
	var diet string
	var restrictions []string
	var correct bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new meal plan and store it for --week",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if correct {
				fixed := planner.CorrectMacros(goals)
				if fixed != goals {
					fmt.Fprintf(out, "Macros adjusted to match %.0f kcal: protein %.0f g, fat %.0f g, carbs %.0f g\n",
						fixed.Calories, fixed.Protein, fixed.Fat, fixed.Carbs)
				}
				goals = fixed
			}
			settings.DietType = recipe.DietType(diet)
			for _, r := range restrictions {
				settings.Restrictions = append(settings.Restrictions, recipe.Restriction(r))
			}

			return ctx.withSession(cmd.Context(), func(s *app.Session) error {
				plan, err := s.Generate(cmd.Context(), goals, settings)
				if err != nil {
					return err
				}
				printSummary(out, plan, s.Week())
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&goals.Calories, "calories", 2000, "Daily calorie target (1000-5000)")
	flags.Float64Var(&goals.Protein, "protein", 100, "Daily protein in grams (30-300)")
	flags.Float64Var(&goals.Fat, "fat", 70, "Daily fat in grams (20-150)")
	flags.Float64Var(&goals.Carbs, "carbs", 250, "Daily carbs in grams (100-500)")
	flags.IntVar(&settings.MealCount, "meals", 3, "Meals per day (3, 4 or 5)")
	flags.IntVar(&settings.DurationDays, "days", 7, "Plan duration in days")
	flags.StringVar(&diet, "diet", string(recipe.DietBalanced), "Diet type (balanced, keto, vegetarian, vegan, high_protein, low_fat, low_carb)")
	flags.StringSliceVar(&restrictions, "restrict", nil, "Ingredient groups to avoid (pork, fish, milk, gluten, nuts, eggs, soy, honey)")
	flags.StringVar(&settings.Favorites, "favorites", "", "Free-text favorite foods")
	flags.BoolVar(&correct, "correct-macros", true, "Rescale macros that disagree with the calorie target")
	return cmd
}

func newRegenerateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate",
		Short: "Rebuild every meal of the stored plan with fresh recipes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd.Context(), func(s *app.Session) error {
				if _, err := ctx.requirePlan(s); err != nil {
					return err
				}
				plan, err := s.Regenerate(cmd.Context())
				if err != nil {
					return err
				}
				printSummary(cmd.OutOrStdout(), plan, s.Week())
				return nil
			})
		},
	}
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var planWeek int
	var day int

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the menu of the stored plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd.Context(), func(s *app.Session) error {
				plan, err := ctx.requirePlan(s)
				if err != nil {
					return err
				}
				days := []int{day}
				if day == 0 {
					days = []int{1, 2, 3, 4, 5, 6, 7}
				}
				out := cmd.OutOrStdout()
				for i, d := range days {
					if i > 0 {
						fmt.Fprintln(out)
					}
					if err := printDay(out, plan, planWeek, d); err != nil {
						return fmt.Errorf("week %d, day %d: %w", planWeek, d, err)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&planWeek, "plan-week", 1, "Week within the plan")
	cmd.Flags().IntVar(&day, "day", 0, "Day of the week (1-7); all days when 0")
	return cmd
}

func printSummary(out io.Writer, plan *planner.Plan, week int) {
	stats := planner.Stats(plan)
	fmt.Fprintf(out, "Plan %s saved as week %d\n", plan.ID, week)
	fmt.Fprintf(out, "Diet:     %s\n", plan.Settings.DietType.DisplayName())
	fmt.Fprintf(out, "Goal:     %s\n", formatNutrition(plan.Goals.Nutrition()))
	fmt.Fprintf(out, "Weeks:    %d, %d meals per day\n", len(plan.Weeks), plan.Settings.MealCount)
	fmt.Fprintf(out, "Dishes:   %d, %d unique (%d%%)\n", stats.TotalDishes, stats.UniqueRecipes, stats.VarietyPct)
}

func printDay(out io.Writer, plan *planner.Plan, week, day int) error {
	d, err := plan.Day(week, day)
	if err != nil {
		return err
	}

	var rows [][]string
	for _, m := range d.OrderedMeals() {
		label := fmt.Sprintf("%s (%s)", m.Name, m.Type)
		if len(m.Recipes) == 0 {
			rows = append(rows, []string{label, m.Time, "-", "", "", "", "", ""})
			continue
		}
		for i, r := range m.Recipes {
			row := []string{"", "", fmt.Sprintf("%d. %s", i+1, r.Name), grams(r.PortionGrams)}
			if i == 0 {
				row[0], row[1] = label, m.Time
			}
			rows = append(rows, append(row, nutritionCells(r.ScaledNutrition)...))
		}
	}

	fmt.Fprintf(out, "Week %d, day %d\n", week, day)
	headers := []string{"Meal", "Time", "Dish", "Portion", "kcal", "Protein", "Fat", "Carbs"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight}
	footer := append([]string{"Total", "", "", ""}, nutritionCells(d.Totals())...)
	fmt.Fprintln(out, renderTable(headers, rows, aligns, footer))
	return nil
}

func nutritionCells(n recipe.Nutrition) []string {
	return []string{
		fmt.Sprintf("%.0f", n.Calories),
		grams(n.Protein),
		grams(n.Fat),
		grams(n.Carbs),
	}
}

func grams(v float64) string { return fmt.Sprintf("%.0f g", v) }

func formatNutrition(n recipe.Nutrition) string {
	return fmt.Sprintf("%.0f kcal, protein %.0f g, fat %.0f g, carbs %.0f g", n.Calories, n.Protein, n.Fat, n.Carbs)
}
