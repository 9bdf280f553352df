// Package ratelimit provides per-client token bucket rate limiting for the HTTP API.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Info contains information about rate limit status.
type Info struct {
	Allowed    bool
	Limit      int // requests per minute; 0 when unlimited
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

type entry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Limiter manages one token bucket per client and endpoint budget.
type Limiter struct {
	config Config

	mu      sync.Mutex
	entries map[string]*entry

	stopOnce sync.Once
	stop     chan struct{}
}

// NewLimiter creates a limiter and starts its cleanup loop when enabled.
func NewLimiter(cfg Config) *Limiter {
	cfg = cfg.withDefaults()
	l := &Limiter{
		config:  cfg,
		entries: make(map[string]*entry),
		stop:    make(chan struct{}),
	}
	if cfg.Enabled && cfg.CleanupInterval > 0 {
		go l.cleanup(cfg.CleanupInterval)
	}
	return l
}

// Allow checks and consumes the budget for one request.
func (l *Limiter) Allow(clientID, path, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] || IsExempt(path, l.config.ExemptPaths) {
		return true, Info{Allowed: true}
	}

	perMinute, burst, scope := l.config.RequestsPerMinute, l.config.Burst, "*"
	if ep := MatchEndpoint(path, method, l.config.Endpoints); ep != nil {
		perMinute, burst, scope = ep.RequestsPerMinute, ep.Burst, method+" "+ep.Path
		if burst <= 0 {
			burst = perMinute
		}
	}
	if perMinute <= 0 {
		return true, Info{Allowed: true}
	}

	now := l.config.Now()
	e := l.entry(clientID+"|"+scope, perMinute, burst, now)

	allowed := e.limiter.AllowN(now, 1)
	tokens := e.limiter.TokensAt(now)
	info := Info{
		Allowed:   allowed,
		Limit:     perMinute,
		Remaining: max(0, int(tokens)),
		ResetTime: now.Add(refillTime(float64(burst)-tokens, perMinute)),
	}
	if !allowed {
		info.RetryAfter = refillTime(1-tokens, perMinute)
	}
	return allowed, info
}

func (l *Limiter) entry(key string, perMinute, burst int, now time.Time) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		every := time.Minute / time.Duration(perMinute)
		e = &entry{limiter: rate.NewLimiter(rate.Every(every), burst)}
		l.entries[key] = e
	}
	e.lastAccess = now
	return e
}

// refillTime is how long perMinute takes to restore tokens
func refillTime(tokens float64, perMinute int) time.Duration {
	if tokens <= 0 {
		return 0
	}
	return time.Duration(tokens * float64(time.Minute) / float64(perMinute))
}

// Len returns the number of tracked client buckets
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Limiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Prune()
		case <-l.stop:
			return
		}
	}
}

// Prune drops buckets idle for longer than the configured TTL.
func (l *Limiter) Prune() {
	cutoff := l.config.Now().Add(-l.config.IdleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.entries {
		if e.lastAccess.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}

// Stop ends the cleanup loop. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}
