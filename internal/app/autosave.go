package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// saveTimeout bounds a save started by the debounce timer.
const saveTimeout = 30 * time.Second

// AutoSaver coalesces bursts of Schedule calls into one save after delay of
// quiet. A zero delay disables the timer and saves happen only on Flush.
type AutoSaver struct {
	delay  time.Duration
	save   func(ctx context.Context) error
	logger *zap.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	stopped bool
}

// NewAutoSaver creates an AutoSaver calling save.
func NewAutoSaver(delay time.Duration, save func(ctx context.Context) error, logger *zap.Logger) *AutoSaver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutoSaver{delay: delay, save: save, logger: logger}
}

// Schedule marks the plan dirty and restarts the idle window.
func (a *AutoSaver) Schedule() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return
	}
	a.pending = true
	if a.delay <= 0 {
		return
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, a.fire)
}

// Pending reports whether a save is waiting.
func (a *AutoSaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

func (a *AutoSaver) fire() {
	if !a.take() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := a.save(ctx); err != nil {
		a.logger.Warn("Auto-save failed", zap.Error(err))
	}
}

// take clears the pending flag and reports whether there was anything to save.
func (a *AutoSaver) take() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if !a.pending || a.stopped {
		return false
	}
	a.pending = false
	return true
}

// Flush saves immediately if a save is pending.
func (a *AutoSaver) Flush(ctx context.Context) error {
	if !a.take() {
		return nil
	}
	return a.save(ctx)
}

// Stop cancels the timer and drops any pending save.
func (a *AutoSaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	a.pending = false
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}
