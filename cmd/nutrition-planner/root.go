package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var userFlag string
	var weekFlag int
	var logLevelFlag string

	ctx := newCommandContext(&userFlag, &weekFlag, &logLevelFlag)

	rootCmd := &cobra.Command{
		Use:           "nutrition-planner",
		Short:         "Generate meal plans and shopping lists from a recipe corpus",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx.logOutput = cmd.ErrOrStderr()
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "User the plan is stored for (defaults to AUTH_USER_ID)")
	rootCmd.PersistentFlags().IntVarP(&weekFlag, "week", "w", 1, "Week number the plan is stored under")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newGenerateCommand(ctx))
	rootCmd.AddCommand(newRegenerateCommand(ctx))
	rootCmd.AddCommand(newShowCommand(ctx))
	rootCmd.AddCommand(newFillCommand(ctx))
	rootCmd.AddCommand(newAddCommand(ctx))
	rootCmd.AddCommand(newRemoveCommand(ctx))
	rootCmd.AddCommand(newPortionCommand(ctx))
	rootCmd.AddCommand(newShoppingListCommand(ctx))
	rootCmd.AddCommand(newSearchCommand(ctx))
	rootCmd.AddCommand(newBrowseCommand(ctx))
	rootCmd.AddCommand(newStatsCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newScrapeCommand(ctx))
	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newMetricsCleanupCommand(ctx))
	rootCmd.AddCommand(newTokenCommand(ctx))

	return rootCmd
}
