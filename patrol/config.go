package patrol

import (
	"time"

	"github.com/docpatrol/docpatrol/llm"
	"github.com/docpatrol/docpatrol/patrol/internal/extractor"
	fetchpkg "github.com/docpatrol/docpatrol/patrol/internal/fetch"
	"github.com/docpatrol/docpatrol/patrol/internal/scheduler"
)

// Config configures the patrol service.
type Config struct {
	// Fetch settings
	Fetch fetchpkg.Config

	// Scheduler settings
	Scheduler scheduler.Config

	// Extractor settings
	Extractor extractor.Config

	// LLM is the AI collaborator endpoint configuration.
	LLM llm.Config

	// QueueVisibility is how long a claimed extraction job stays invisible
	// before a crashed worker's claim lapses. Default: 5 minutes.
	QueueVisibility time.Duration

	// WorkerPoll is the delay between queue polls in the worker loop.
	// Default: 5 seconds.
	WorkerPoll time.Duration

	// FastPathPriority makes sources at or above this priority extract
	// inline during the run, right after their job is queued. The queue
	// entry stays behind until the inline attempt succeeds, so a fast-path
	// failure costs nothing. Zero disables the fast path.
	FastPathPriority int

	// MaxSources caps the registry size. Default: 1000.
	MaxSources int
}

func (c *Config) defaults() {
	if c.QueueVisibility <= 0 {
		c.QueueVisibility = 5 * time.Minute
	}
	if c.WorkerPoll <= 0 {
		c.WorkerPoll = 5 * time.Second
	}
	if c.MaxSources <= 0 {
		c.MaxSources = 1000
	}
}

func defaultConfig() *Config {
	return &Config{}
}

// Reliability feedback deltas. Applied on every run outcome, clamped to
// [0,1] at the store.
const (
	reliabilityChanged   = 0.01
	reliabilityUnchanged = -0.001
	reliabilityFailure   = -0.05
)
