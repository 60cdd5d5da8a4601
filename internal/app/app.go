package app

import (
	"context"
	"fmt"
	"io"
	"math/rand"

	"go.uber.org/zap"

	"nutrition-planner/internal/auth"
	"nutrition-planner/internal/config"
	"nutrition-planner/internal/metrics"
	"nutrition-planner/internal/planner"
	"nutrition-planner/internal/recipe"
	"nutrition-planner/internal/shopping"
	"nutrition-planner/internal/storage"
)

// PlanStore persists plans and lists past saves.
type PlanStore interface {
	planner.Store
	ListRecentByUserID(ctx context.Context, userID string, limit int) ([]planner.HistoryEntry, error)
}

// App holds the application's long-lived dependencies. Sessions created
// from it share the corpus and the stores.
type App struct {
	cfg        *config.Config
	corpus     *recipe.Corpus
	plans      PlanStore
	lists      *shopping.Repository
	runs       *metrics.Store
	collector  *metrics.Collector
	aggregator *shopping.Aggregator
	logger     *zap.Logger
}

// NewApp creates and initializes a new App instance. lists, runs and
// collector are optional.
func NewApp(
	cfg *config.Config,
	corpus *recipe.Corpus,
	plans PlanStore,
	lists *shopping.Repository,
	runs *metrics.Store,
	collector *metrics.Collector,
	logger *zap.Logger,
) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		cfg:       cfg,
		corpus:    corpus,
		plans:     plans,
		lists:     lists,
		runs:      runs,
		collector: collector,
		logger:    logger,
	}
	var obs shopping.Observer
	if collector != nil {
		obs = collector
	}
	a.aggregator = shopping.NewAggregator(logger.Named("shopping"), obs)
	return a
}

// Corpus returns the loaded recipe corpus.
func (a *App) Corpus() *recipe.Corpus { return a.corpus }

func (a *App) newBuilder(obs planner.Observer) *planner.Builder {
	opts := []planner.Option{
		planner.WithThresholds(a.cfg.Thresholds()),
		planner.WithMaxDishesPerMeal(a.cfg.MaxDishesPerMeal),
		planner.WithObserver(obs),
		planner.WithLogger(a.logger.Named("planner")),
	}
	if a.cfg.PlannerSeed != 0 {
		opts = append(opts, planner.WithRand(rand.New(rand.NewSource(a.cfg.PlannerSeed))))
	}
	return planner.NewBuilder(a.corpus, opts...)
}

// NewSession starts a session for whoever a signs in.
func (a *App) NewSession(authn auth.Authenticator) *Session {
	s := &Session{app: a, auth: authn, week: 1, logger: a.logger.Named("session")}
	s.misses = &missCounter{collector: a.collector}
	s.builder = a.newBuilder(s.misses)
	s.saver = NewAutoSaver(a.cfg.AutosaveDelay, s.Save, s.logger)
	return s
}

// ImportResult summarizes a record import.
type ImportResult struct {
	Found    int
	Imported int
	Skipped  int
}

// ImportRecords copies scraped records from the file store into the sqlite
// recipe cache. Records without a name or already cached are skipped.
func ImportRecords(ctx context.Context, records *storage.RecordStore, repo *recipe.Repository, logger *zap.Logger) (ImportResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var res ImportResult

	existing, err := repo.List(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list existing recipes in DB: %w", err)
	}
	cached := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		cached[r.Name] = struct{}{}
	}

	stored, err := records.List()
	if err != nil {
		return res, fmt.Errorf("failed to list scraped records: %w", err)
	}
	res.Found = len(stored)
	logger.Info("Importing scraped records", zap.Int("found", len(stored)), zap.Int("cached", len(cached)))

	var batch []recipe.Recipe
	for _, rec := range stored {
		r := rec.Normalize()
		if r.Name == "" {
			res.Skipped++
			continue
		}
		if _, ok := cached[r.Name]; ok {
			logger.Debug("Recipe already cached", zap.String("name", r.Name))
			res.Skipped++
			continue
		}
		cached[r.Name] = struct{}{}
		batch = append(batch, r)
	}

	if len(batch) > 0 {
		if err := repo.SaveAll(ctx, batch); err != nil {
			return res, fmt.Errorf("failed to save imported recipes: %w", err)
		}
	}
	res.Imported = len(batch)
	logger.Info("Import complete", zap.Int("imported", res.Imported), zap.Int("skipped", res.Skipped))
	return res, nil
}

// ExportCorpus writes the cached recipes as a corpus JSON file, the same
// format recipe.FileSource reads.
func ExportCorpus(ctx context.Context, repo *recipe.Repository, w io.Writer) error {
	rc, err := repo.Open(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()
	if _, err := io.Copy(w, rc); err != nil {
		return fmt.Errorf("failed to write corpus: %w", err)
	}
	return nil
}

// recordRun stores and exports the outcome of a build. Failures are logged only.
func (a *App) recordRun(ctx context.Context, m metrics.GenerationMetric) {
	if a.collector != nil {
		a.collector.PlanBuilt(m)
	}
	if a.runs == nil {
		return
	}
	if err := a.runs.Record(ctx, m); err != nil {
		a.logger.Warn("Failed to record generation metric", zap.String("operation", m.Operation), zap.Error(err))
	}
}

func (a *App) persistenceFailed(op string) {
	if a.collector != nil {
		a.collector.PersistenceFailed(op)
	}
}
