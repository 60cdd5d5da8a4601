package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nutrition-planner/internal/app"
	"nutrition-planner/internal/database"
	"nutrition-planner/internal/metrics"
	"nutrition-planner/internal/recipe"
	"nutrition-planner/internal/shopping"
)

func newShoppingListCommand(ctx *commandContext) *cobra.Command {
	var grouped bool
	var output string

	cmd := &cobra.Command{
		Use:   "shopping-list",
		Short: "Aggregate the stored plan into a shopping list file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd.Context(), func(s *app.Session) error {
				if _, err := ctx.requirePlan(s); err != nil {
					return err
				}
				list, err := s.ShoppingList(cmd.Context())
				if err != nil {
					return err
				}

				body := list.Text()
				if grouped {
					body = shopping.FormatGrouped(list.Items)
				}
				if output == "-" {
					_, err := io.WriteString(cmd.OutOrStdout(), body)
					return err
				}
				path := output
				if path == "" {
					path = shopping.FileName(time.Now())
				}
				if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
					return fmt.Errorf("write shopping list: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d items to %s\n", len(list.Items), path)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&grouped, "grouped", false, "Group items by store section")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, - for stdout (default Список_покупок_YYYYMMDD.txt)")
	return cmd
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY...",
		Short: "Search recipes by name, ingredient or description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return ctx.withSession(cmd.Context(), func(s *app.Session) error {
				printRecipes(cmd.OutOrStdout(), s.Search(query), fmt.Sprintf("No recipes match %q", query))
				return nil
			})
		},
	}
}

func newBrowseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "browse DISH_TYPE",
		Short: "List recipes of one dish type, least used in the plan first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dt := recipe.DishType(strings.ToLower(args[0]))
			return ctx.withSession(cmd.Context(), func(s *app.Session) error {
				printRecipes(cmd.OutOrStdout(), s.Browse(dt), fmt.Sprintf("No %s recipes fit the plan", dt))
				return nil
			})
		},
	}
}

func printRecipes(out io.Writer, recipes []recipe.Recipe, empty string) {
	if len(recipes) == 0 {
		fmt.Fprintln(out, empty)
		return
	}
	rows := make([][]string, 0, len(recipes))
	for _, r := range recipes {
		rows = append(rows, append([]string{r.Name, r.Category, string(recipe.Classify(r))}, nutritionCells(r.Nutrition)...))
	}
	headers := []string{"Recipe", "Category", "Type", "kcal/100g", "Protein", "Fat", "Carbs"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight}
	fmt.Fprintln(out, renderTable(headers, rows, aligns, nil))
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show recipe variety of the stored plan and recent generation usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			err := ctx.withSession(cmd.Context(), func(s *app.Session) error {
				if _, err := ctx.requirePlan(s); err != nil {
					return err
				}
				st := s.Stats()
				fmt.Fprintf(out, "Unique recipes: %d of %d dishes (%d%% variety)\n", st.UniqueRecipes, st.TotalDishes, st.VarietyPct)
				rows := make([][]string, 0, len(st.MostUsed))
				for _, f := range st.MostUsed {
					rows = append(rows, []string{f.Name, strconv.Itoa(f.Count)})
				}
				fmt.Fprintln(out, renderTable([]string{"Most used", "Times"}, rows, []columnAlignment{alignLeft, alignRight}, nil))
				return nil
			})
			if err != nil {
				return err
			}

			return ctx.withDB(func(db *database.DB, _ *zap.Logger) error {
				usage, err := metrics.NewStore(db.SQL).GetDailyUsage(cmd.Context(), days)
				if err != nil {
					return err
				}
				if len(usage) == 0 {
					fmt.Fprintf(out, "No generations in the last %d days\n", days)
					return nil
				}
				rows := make([][]string, 0, len(usage))
				for _, d := range usage {
					rows = append(rows, []string{
						d.Date,
						strconv.Itoa(d.Generations),
						strconv.Itoa(d.TotalDishes),
						strconv.Itoa(d.SelectionMisses),
						fmt.Sprintf("%.0f ms", d.AvgLatencyMS),
					})
				}
				headers := []string{"Date", "Plans", "Dishes", "Misses", "Avg latency"}
				aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight}
				fmt.Fprintln(out, renderTable(headers, rows, aligns, nil))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "Days of generation history to show")
	return cmd
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recent plan saves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd.Context(), func(s *app.Session) error {
				entries, err := s.History(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No saved plans")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						e.SavedAt.Local().Format("2006-01-02 15:04"),
						strconv.Itoa(e.WeekNumber),
						recipe.DietType(e.DietType).DisplayName(),
						strconv.Itoa(e.MealCount),
						strconv.Itoa(e.DurationDays),
						e.PlanID,
					})
				}
				headers := []string{"Saved", "Week", "Diet", "Meals", "Days", "Plan"}
				aligns := []columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignRight, alignLeft}
				fmt.Fprintln(out, renderTable(headers, rows, aligns, nil))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of saves to list")
	return cmd
}
