// Package scraper imports recipe pages into corpus records.
package scraper

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"nutrition-planner/internal/recipe"
	"nutrition-planner/internal/storage"
)

// Sink stores scraped records. *storage.RecordStore implements it.
type Sink interface {
	Exists(id, version string) bool
	Save(id, version string, rec recipe.Record) error
}

// Config controls politeness and parallelism.
type Config struct {
	Concurrency       int
	RequestsPerSecond float64 // per host
	Burst             int
	Timeout           time.Duration
	UserAgent         string
}

// DefaultConfig returns conservative scraping settings.
func DefaultConfig() Config {
	return Config{
		Concurrency:       4,
		RequestsPerSecond: 1,
		Burst:             1,
		Timeout:           15 * time.Second,
		UserAgent:         "nutrition-planner/1.0 (+recipe import)",
	}
}

// Result counts what happened to each URL.
type Result struct {
	Saved   int
	Skipped int
	Failed  int
}

// Scraper fetches recipe pages and writes them to a Sink.
type Scraper struct {
	cfg    Config
	client *http.Client
	sink   Sink
	logger *zap.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a Scraper. A nil logger disables logging.
func New(cfg Config, sink Sink, logger *zap.Logger) *Scraper {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		sink:     sink,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (s *Scraper) limiter(host string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[host]
	if !ok {
		limit := rate.Inf
		if s.cfg.RequestsPerSecond > 0 {
			limit = rate.Limit(s.cfg.RequestsPerSecond)
		}
		l = rate.NewLimiter(limit, s.cfg.Burst)
		s.limiters[host] = l
	}
	return l
}

// Scrape imports every URL. A failing page is logged and counted, never
// fatal; only context cancellation aborts the run.
func (s *Scraper) Scrape(ctx context.Context, urls []string) (Result, error) {
	var saved, skipped, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, u := range urls {
		g.Go(func() error {
			outcome, err := s.importPage(gctx, u)
			switch {
			case err != nil && gctx.Err() != nil:
				return gctx.Err()
			case err != nil:
				failed.Add(1)
				s.logger.Warn("Failed to import recipe page", zap.String("url", u), zap.Error(err))
			case outcome == outcomeSkipped:
				skipped.Add(1)
			default:
				saved.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()

	res := Result{Saved: int(saved.Load()), Skipped: int(skipped.Load()), Failed: int(failed.Load())}
	s.logger.Info("Scrape finished",
		zap.Int("saved", res.Saved), zap.Int("skipped", res.Skipped), zap.Int("failed", res.Failed))
	return res, err
}

type outcome int

const (
	outcomeSaved outcome = iota
	outcomeSkipped
)

func (s *Scraper) importPage(ctx context.Context, pageURL string) (outcome, error) {
	body, err := s.fetch(ctx, pageURL)
	if err != nil {
		return 0, err
	}

	id := storage.RecordID(pageURL)
	version := contentVersion(body)
	if s.sink.Exists(id, version) {
		return outcomeSkipped, nil
	}

	rec, err := ParsePage(bytes.NewReader(body), pageURL)
	if err != nil {
		return 0, err
	}
	if err := s.sink.Save(id, version, rec); err != nil {
		return 0, err
	}
	s.logger.Debug("Imported recipe", zap.String("name", rec.Name), zap.String("url", pageURL))
	return outcomeSaved, nil
}

// maxPageBytes bounds how much of a page is read.
const maxPageBytes = 4 << 20

func (s *Scraper) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q", pageURL)
	}
	if err := s.limiter(u.Host).Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	return body, nil
}

func contentVersion(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:6])
}

// ErrNotARecipe is returned for pages without a title or ingredients.
var ErrNotARecipe = errors.New("page does not look like a recipe")
