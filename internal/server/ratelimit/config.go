package ratelimit

import (
	"time"
)

// EndpointConfig overrides the default budget for one endpoint.
type EndpointConfig struct {
	Path              string // exact path, or a prefix when it ends with "/"
	Method            string
	RequestsPerMinute int
	Burst             int // defaults to RequestsPerMinute if 0
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled           bool
	RequestsPerMinute int
	Burst             int
	ExemptPaths       []string
	Whitelist         map[string]bool
	Endpoints         []EndpointConfig

	// Limiters idle longer than IdleTTL are dropped every CleanupInterval.
	CleanupInterval time.Duration
	IdleTTL         time.Duration

	// Now is the clock; nil uses time.Now.
	Now func() time.Time
}

// DefaultConfig returns the stock settings
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		RequestsPerMinute: 30,
		Burst:             10,
		ExemptPaths:       []string{"/health"},
		Endpoints:         DefaultEndpointConfigs(),
		CleanupInterval:   5 * time.Minute,
		IdleTTL:           time.Hour,
	}
}

// DefaultEndpointConfigs returns the endpoint overrides applied on top of
// the default budget.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// token issuance is a credential check; keep guessing slow
		{Path: "/token", Method: "POST", RequestsPerMinute: 10, Burst: 3},
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = d.RequestsPerMinute
	}
	if c.Burst <= 0 {
		c.Burst = c.RequestsPerMinute
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = d.IdleTTL
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
