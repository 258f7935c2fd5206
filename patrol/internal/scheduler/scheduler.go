// Package scheduler selects due sources per check-frequency tier and hands
// them to a fetch sink.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/docpatrol/docpatrol/patrol/internal/store"
)

// Intervals maps each check frequency to its minimum age between scrapes.
var Intervals = map[string]time.Duration{
	"hourly": time.Hour,
	"daily":  24 * time.Hour,
	"weekly": 7 * 24 * time.Hour,
}

// Config configures the scheduler.
type Config struct {
	// CheckInterval is how often the ticker loop polls. Default: 1 minute.
	CheckInterval time.Duration
	// BatchLimit caps how many sources one pass claims per tier. Default: 10.
	BatchLimit int
}

func (c *Config) defaults() {
	if c.CheckInterval <= 0 {
		c.CheckInterval = time.Minute
	}
	if c.BatchLimit <= 0 {
		c.BatchLimit = 10
	}
}

// Sink processes one claimed source (fetch + change detection). Errors are
// logged, not propagated: one failing source never aborts the batch.
type Sink func(ctx context.Context, src *store.Source) error

// Scheduler periodically claims due sources and feeds them to the sink.
type Scheduler struct {
	store  *store.Store
	sink   Sink
	config Config
	logger *slog.Logger
}

// New creates a Scheduler.
func New(st *store.Store, sink Sink, cfg Config, logger *slog.Logger) *Scheduler {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{store: st, sink: sink, config: cfg, logger: logger}
}

// Run polls for due sources on a ticker. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler: started",
		"check_interval", s.config.CheckInterval, "batch_limit", s.config.BatchLimit)

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	// Run once immediately on start.
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler: stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce claims due sources across all tiers and processes them. Returns how
// many sources were dispatched.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	total := 0
	for _, tier := range []string{"hourly", "daily", "weekly"} {
		total += s.runTier(ctx, tier)
	}
	return total
}

// RunTier claims and processes due sources of one frequency tier.
func (s *Scheduler) RunTier(ctx context.Context, tier string) int {
	if _, ok := Intervals[tier]; !ok {
		s.logger.Warn("scheduler: unknown frequency tier", "tier", tier)
		return 0
	}
	return s.runTier(ctx, tier)
}

func (s *Scheduler) runTier(ctx context.Context, tier string) int {
	due, err := s.store.ClaimDueSources(ctx, tier, Intervals[tier], s.config.BatchLimit)
	if err != nil {
		s.logger.Error("scheduler: claim due sources", "tier", tier, "error", err)
		return 0
	}
	if len(due) == 0 {
		return 0
	}
	s.logger.Info("scheduler: dispatching due sources", "tier", tier, "count", len(due))

	for _, src := range due {
		if err := s.sink(ctx, src); err != nil {
			s.logger.Warn("scheduler: source failed",
				"source_id", src.ID, "url", src.URL, "error", err)
		}
	}
	return len(due)
}
