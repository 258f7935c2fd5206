// Package patrol orchestrates documentation-source monitoring: fetching,
// change detection, AI pattern extraction, review workflow, usage tracking
// and export.
package patrol

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/docpatrol/docpatrol/idgen"
	"github.com/docpatrol/docpatrol/llm"
	"github.com/docpatrol/docpatrol/patrol/internal/extractor"
	"github.com/docpatrol/docpatrol/patrol/internal/fetch"
	"github.com/docpatrol/docpatrol/patrol/internal/scheduler"
	"github.com/docpatrol/docpatrol/patrol/internal/store"
)

// Service is the main docpatrol orchestrator.
type Service struct {
	store     *store.Store
	fetcher   *fetch.Fetcher
	extractor *extractor.Extractor
	scheduler *scheduler.Scheduler
	logger    *slog.Logger
	config    *Config
	newID     func() string
}

// New creates a patrol Service on an already-opened database. The schema is
// applied idempotently.
func New(db *sql.DB, cfg *Config, logger *slog.Logger, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		cfg = defaultConfig()
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	if err := store.ApplySchema(db); err != nil {
		return nil, err
	}

	svc := &Service{
		store:   store.NewStore(db),
		fetcher: fetch.New(cfg.Fetch),
		logger:  logger,
		config:  cfg,
		newID:   idgen.New,
	}

	for _, opt := range opts {
		opt(svc)
	}

	// The collaborator can be injected (tests, alternative backends);
	// otherwise build the HTTP client from config.
	if svc.extractor == nil {
		var completer llm.Completer
		if cfg.LLM.BaseURL != "" {
			completer = llm.NewClient(cfg.LLM, llm.WithLogger(logger))
		}
		if completer != nil {
			svc.extractor = extractor.New(completer, cfg.Extractor, logger)
		}
	}

	sink := func(ctx context.Context, src *store.Source) error {
		return svc.processSource(ctx, src)
	}
	svc.scheduler = scheduler.New(svc.store, sink, cfg.Scheduler, logger)

	return svc, nil
}

// ServiceOption configures a Service during creation.
type ServiceOption func(*Service)

// WithIDGenerator overrides the ID generator (deterministic IDs in tests).
func WithIDGenerator(gen idgen.Generator) ServiceOption {
	return func(s *Service) { s.newID = gen }
}

// WithCompleter injects the AI collaborator.
func WithCompleter(c llm.Completer) ServiceOption {
	return func(s *Service) {
		s.extractor = extractor.New(c, s.config.Extractor, s.logger)
	}
}

// WithFetcher overrides the content fetcher.
func WithFetcher(f *fetch.Fetcher) ServiceOption {
	return func(s *Service) { s.fetcher = f }
}

// RunScheduler starts the ticker loop that dispatches due sources. Blocks
// until ctx is cancelled.
func (s *Service) RunScheduler(ctx context.Context) {
	s.scheduler.Run(ctx)
}

// Stats returns aggregate counters.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.store.GetStats(ctx)
}
