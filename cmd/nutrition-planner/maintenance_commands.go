package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nutrition-planner/internal/app"
	"nutrition-planner/internal/auth"
	"nutrition-planner/internal/database"
	"nutrition-planner/internal/metrics"
	"nutrition-planner/internal/recipe"
	"nutrition-planner/internal/scraper"
	"nutrition-planner/internal/storage"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var dir string
	var export string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import scraped recipe records into the recipe cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = ctx.config.ScrapeDir
			}
			records, err := storage.NewRecordStore(dir)
			if err != nil {
				return err
			}

			return ctx.withDB(func(db *database.DB, logger *zap.Logger) error {
				repo := recipe.NewRepository(db.SQL)
				res, err := app.ImportRecords(cmd.Context(), records, repo, logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Found %d records: %d imported, %d skipped\n", res.Found, res.Imported, res.Skipped)

				if export == "" {
					return nil
				}
				return writeFile(export, func(w io.Writer) error {
					return app.ExportCorpus(cmd.Context(), repo, w)
				})
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Directory of scraped records (default SCRAPE_DIR)")
	cmd.Flags().StringVar(&export, "export", "", "Also write the whole recipe cache to this corpus file")
	return cmd
}

func newScrapeCommand(ctx *commandContext) *cobra.Command {
	var listFile string
	var export string
	cfg := scraper.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "scrape [URL...]",
		Short: "Fetch recipe pages into the scraped record store",
		RunE: func(cmd *cobra.Command, args []string) error {
			urls := args
			if listFile != "" {
				more, err := readURLList(listFile)
				if err != nil {
					return err
				}
				urls = append(urls, more...)
			}
			if len(urls) == 0 && export == "" {
				return fmt.Errorf("pass recipe URLs or --file")
			}

			records, err := storage.NewRecordStore(ctx.config.ScrapeDir)
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(urls) > 0 {
				res, err := scraper.New(cfg, records, logger.Named("scraper")).Scrape(cmd.Context(), urls)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Scraped %d pages: %d saved, %d unchanged, %d failed\n", len(urls), res.Saved, res.Skipped, res.Failed)
			}
			if export == "" {
				return nil
			}
			return writeFile(export, func(w io.Writer) error {
				n, err := records.Export(w)
				if err == nil {
					fmt.Fprintf(out, "Exported %d records to %s\n", n, export)
				}
				return err
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&listFile, "file", "f", "", "File with one URL per line")
	flags.StringVar(&export, "export", "", "Write every scraped record to this corpus file")
	flags.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Pages fetched in parallel")
	flags.Float64Var(&cfg.RequestsPerSecond, "rps", cfg.RequestsPerSecond, "Requests per second per host")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout")
	return cmd
}

// readURLList reads one URL per line, skipping blanks and # comments.
func readURLList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, sc.Err()
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(func(db *database.DB, _ *zap.Logger) error {
				fmt.Fprintf(cmd.OutOrStdout(), "Database %s is up to date\n", ctx.config.DatabasePath)
				return nil
			})
		},
	}
}

func newMetricsCleanupCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "metrics-cleanup",
		Short: "Delete generation metrics older than --days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}
			return ctx.withDB(func(db *database.DB, _ *zap.Logger) error {
				n, err := metrics.NewStore(db.SQL).Cleanup(cmd.Context(), days)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d metric rows older than %d days\n", n, days)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "Keep metrics from the last N days")
	return cmd
}

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var name string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token USER_ID",
		Short: "Issue an AUTH_TOKEN for a user, signed with AUTH_JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ctx.config.AuthJWTSecret == "" {
				return fmt.Errorf("AUTH_JWT_SECRET is not set")
			}
			token, err := auth.IssueToken([]byte(ctx.config.AuthJWTSecret), args[0], name, ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name stored in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "Token lifetime")
	return cmd
}
