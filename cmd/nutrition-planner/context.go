package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"nutrition-planner/internal/app"
	"nutrition-planner/internal/auth"
	"nutrition-planner/internal/config"
	"nutrition-planner/internal/database"
	"nutrition-planner/internal/logging"
	"nutrition-planner/internal/metrics"
	"nutrition-planner/internal/planner"
	"nutrition-planner/internal/recipe"
	"nutrition-planner/internal/shopping"
)

type commandContext struct {
	userFlag     *string
	weekFlag     *int
	logLevelFlag *string
	logOutput    io.Writer

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *zap.Logger
	loggerErr  error
}

func newCommandContext(userFlag *string, weekFlag *int, logLevelFlag *string) *commandContext {
	return &commandContext{
		userFlag:     userFlag,
		weekFlag:     weekFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.NewFromEnv()
		if err != nil {
			c.configErr = err
			return
		}
		if c.userFlag != nil && strings.TrimSpace(*c.userFlag) != "" {
			cfg.AuthUserID = strings.TrimSpace(*c.userFlag)
		}
		if c.logLevelFlag != nil && *c.logLevelFlag != "" {
			cfg.LogLevel = *c.logLevelFlag
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureLogger builds a console logger writing to logOutput, stderr by
// default, so command output stays clean.
func (c *commandContext) ensureLogger() (*zap.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.New(logging.Config{Level: cfg.LogLevel, Format: "console", Output: c.logOutput})
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) week() int {
	if c.weekFlag == nil || *c.weekFlag < 1 {
		return 1
	}
	return *c.weekFlag
}

// authenticator signs in with AUTH_TOKEN when a JWT secret is configured and
// falls back to the fixed local user otherwise.
func (c *commandContext) authenticator(cfg *config.Config) (auth.Authenticator, error) {
	if cfg.AuthJWTSecret == "" || cfg.AuthToken == "" {
		return auth.NewStatic(cfg.AuthUserID), nil
	}
	s := auth.NewTokenSession(auth.NewTokenVerifier([]byte(cfg.AuthJWTSecret)))
	if _, err := s.SignIn(cfg.AuthToken); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return s, nil
}

func (c *commandContext) withDB(fn func(*database.DB, *zap.Logger) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	db, err := database.NewDB(cfg.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db, logger)
}

// withSession opens the database, loads the corpus and the plan stored for
// the selected week, then runs fn. Pending edits are saved before returning.
func (c *commandContext) withSession(ctx context.Context, fn func(*app.Session) error) error {
	return c.withDB(func(db *database.DB, logger *zap.Logger) error {
		cfg := c.config
		corpus, err := app.LoadCorpus(ctx, cfg, recipe.NewRepository(db.SQL), logger)
		if err != nil {
			return err
		}
		authn, err := c.authenticator(cfg)
		if err != nil {
			return err
		}

		a := app.NewApp(cfg, corpus, planner.NewPlanRepository(db.SQL), shopping.NewRepository(db.SQL),
			metrics.NewStore(db.SQL), nil, logger)
		s := a.NewSession(authn)
		s.UseWeek(c.week())
		if _, err := s.Load(ctx, c.week()); err != nil && !errors.Is(err, auth.ErrUnauthenticated) {
			return err
		}

		runErr := fn(s)
		if err := s.Close(ctx); err != nil {
			return errors.Join(runErr, fmt.Errorf("save plan: %w", err))
		}
		return runErr
	})
}

// requirePlan returns the loaded plan or an error pointing at generate.
func (c *commandContext) requirePlan(s *app.Session) (*planner.Plan, error) {
	plan := s.Plan()
	if plan == nil {
		return nil, fmt.Errorf("no plan stored for week %d; run `nutrition-planner generate` first", c.week())
	}
	return plan, nil
}
