package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"nutrition-planner/internal/app"
	"nutrition-planner/internal/planner"
)

// mealTarget addresses one meal of the stored plan: --plan-week plus the
// DAY and MEAL positional arguments shared by the edit commands.
type mealTarget struct {
	week int
	day  int
	slot planner.SlotID
}

func (t *mealTarget) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&t.week, "plan-week", 1, "Week within the plan")
}

func (t *mealTarget) parse(args []string) error {
	day, err := strconv.Atoi(args[0])
	if err != nil || day < 1 || day > planner.DaysPerWeek {
		return fmt.Errorf("day must be 1-%d, got %q", planner.DaysPerWeek, args[0])
	}
	t.day = day
	t.slot = planner.SlotID(strings.ToLower(args[1]))
	return nil
}

func parseIndex(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("dish number must be a positive integer, got %q", raw)
	}
	return n - 1, nil
}

// editSession runs fn against the stored plan and prints the edited day.
func editSession(cmd *cobra.Command, ctx *commandContext, t *mealTarget, fn func(*app.Session) error) error {
	return ctx.withSession(cmd.Context(), func(s *app.Session) error {
		if _, err := ctx.requirePlan(s); err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		return printDay(cmd.OutOrStdout(), s.Plan(), t.week, t.day)
	})
}

func newFillCommand(ctx *commandContext) *cobra.Command {
	var t mealTarget
	cmd := &cobra.Command{
		Use:   "fill DAY MEAL",
		Short: "Top a meal up with one dish that closes its largest gap",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := t.parse(args); err != nil {
				return err
			}
			return editSession(cmd, ctx, &t, func(s *app.Session) error {
				added, err := s.FillMeal(t.week, t.day, t.slot)
				if err != nil {
					return err
				}
				if added == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "Meal already meets its target")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s, %s\n", added.Name, grams(added.PortionGrams))
				return nil
			})
		},
	}
	t.bind(cmd)
	return cmd
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	var t mealTarget
	cmd := &cobra.Command{
		Use:   "add DAY MEAL RECIPE...",
		Short: "Add a recipe to a meal at its default portion",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := t.parse(args); err != nil {
				return err
			}
			name := strings.Join(args[2:], " ")
			return editSession(cmd, ctx, &t, func(s *app.Session) error {
				added, err := s.AddRecipe(t.week, t.day, t.slot, name)
				if err != nil {
					return fmt.Errorf("add %q: %w", name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s, %s\n", added.Name, grams(added.PortionGrams))
				return nil
			})
		},
	}
	t.bind(cmd)
	return cmd
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	var t mealTarget
	var all bool
	cmd := &cobra.Command{
		Use:   "remove DAY MEAL [DISH]",
		Short: "Remove a dish, or every dish with --all, from a meal",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := t.parse(args); err != nil {
				return err
			}
			if all {
				return editSession(cmd, ctx, &t, func(s *app.Session) error {
					return s.ClearMeal(t.week, t.day, t.slot)
				})
			}
			if len(args) < 3 {
				return fmt.Errorf("pass the dish number or --all")
			}
			index, err := parseIndex(args[2])
			if err != nil {
				return err
			}
			return editSession(cmd, ctx, &t, func(s *app.Session) error {
				return s.RemoveRecipe(t.week, t.day, t.slot, index)
			})
		},
	}
	t.bind(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "Remove every dish of the meal")
	return cmd
}

func newPortionCommand(ctx *commandContext) *cobra.Command {
	var t mealTarget
	cmd := &cobra.Command{
		Use:   "portion DAY MEAL DISH GRAMS",
		Short: "Change the portion of a dish",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := t.parse(args); err != nil {
				return err
			}
			index, err := parseIndex(args[2])
			if err != nil {
				return err
			}
			g, err := strconv.ParseFloat(args[3], 64)
			if err != nil {
				return fmt.Errorf("grams must be a number, got %q", args[3])
			}
			return editSession(cmd, ctx, &t, func(s *app.Session) error {
				return s.AdjustPortion(t.week, t.day, t.slot, index, g)
			})
		},
	}
	t.bind(cmd)
	return cmd
}
