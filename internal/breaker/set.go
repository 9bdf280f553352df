package breaker

import (
	"time"

	"go.uber.org/zap"
)

// Dependency names
const (
	Search = "search"
	LLM    = "llm"
	Fetch  = "fetch"
)

// Config is the threshold and timeout of one breaker
type Config struct {
	Threshold    int           `mapstructure:"threshold" validate:"gte=1"`
	ResetTimeout time.Duration `mapstructure:"reset_timeout" validate:"gt=0"`
}

// DefaultConfigs returns the per-dependency defaults.
func DefaultConfigs() map[string]Config {
	return map[string]Config{
		Search: {Threshold: 3, ResetTimeout: 60 * time.Second},
		LLM:    {Threshold: 5, ResetTimeout: 30 * time.Second},
		Fetch:  {Threshold: 10, ResetTimeout: 120 * time.Second},
	}
}

// Set holds the process-wide breakers, one per dependency.
type Set struct {
	Search *Breaker
	LLM    *Breaker
	Fetch  *Breaker
}

// NewSet builds the three breakers. Missing entries in cfgs fall back to defaults.
func NewSet(cfgs map[string]Config, clock Clock, logger *zap.Logger) *Set {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfigs()

	build := func(name string) *Breaker {
		cfg, ok := cfgs[name]
		if !ok || cfg.Threshold == 0 {
			cfg = defaults[name]
		}
		return New(Settings{
			Name:         name,
			Threshold:    cfg.Threshold,
			ResetTimeout: cfg.ResetTimeout,
			Clock:        clock,
			OnStateChange: func(name string, from, to State) {
				logger.Warn("circuit state change",
					zap.String("breaker", name),
					zap.Stringer("from", from),
					zap.Stringer("to", to),
				)
			},
		})
	}

	return &Set{
		Search: build(Search),
		LLM:    build(LLM),
		Fetch:  build(Fetch),
	}
}

// Snapshots returns a view of every breaker in a stable order
func (s *Set) Snapshots() []Snapshot {
	return []Snapshot{s.Search.Snapshot(), s.LLM.Snapshot(), s.Fetch.Snapshot()}
}
