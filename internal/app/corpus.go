package app

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"nutrition-planner/internal/config"
	"nutrition-planner/internal/recipe"
)

// CorpusSource picks where recipes come from: CORPUS_URL when set, then
// CORPUS_PATH when the file exists, then the sqlite recipe cache.
func CorpusSource(cfg *config.Config, cache *recipe.Repository) recipe.Source {
	if cfg.CorpusURL != "" {
		return recipe.NewHTTPSource(cfg.CorpusURL, cfg.AuthToken)
	}
	if cfg.CorpusPath != "" {
		if _, err := os.Stat(cfg.CorpusPath); !errors.Is(err, fs.ErrNotExist) {
			return recipe.FileSource{Path: cfg.CorpusPath}
		}
	}
	return cache
}

// LoadCorpus loads the corpus from CorpusSource. Recipes loaded from a file
// or URL are written to the cache so later runs work without the source.
// A cache write failure is logged and does not fail the load.
func LoadCorpus(ctx context.Context, cfg *config.Config, cache *recipe.Repository, logger *zap.Logger) (*recipe.Corpus, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	src := CorpusSource(cfg, cache)
	corpus, err := recipe.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	logger.Info("Recipe corpus loaded", zap.String("source", src.String()), zap.Int("recipes", corpus.Len()))

	if src != recipe.Source(cache) {
		if err := cache.SaveAll(ctx, corpus.All()); err != nil {
			logger.Warn("Failed to refresh recipe cache", zap.Error(err))
		}
	}
	return corpus, nil
}
