// Package search queries a web search provider for candidate sources.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/fit-agent/internal/breaker"
)

// MaxResultsPerQuery is the provider's page size limit
const MaxResultsPerQuery = 10

// Result is one raw search hit
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Query   string `json:"query,omitempty"`
}

// Provider runs a single search query
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Guarded gates a Provider with the search circuit breaker.
type Guarded struct {
	next    Provider
	breaker *breaker.Breaker
}

// NewGuarded wraps next with b
func NewGuarded(next Provider, b *breaker.Breaker) *Guarded {
	return &Guarded{next: next, breaker: b}
}

// Search implements Provider
func (g *Guarded) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	var out []Result
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.next.Search(ctx, query, limit)
		return err
	})
	return out, err
}

// Batch is the merged outcome of several queries
type Batch struct {
	Results []Result
	Failed  []string
	// Unavailable is set when the breaker rejected at least one query.
	Unavailable bool
}

// Run executes queries in order and merges hits, dropping duplicate URLs.
// Individual failures are recorded in the batch rather than returned.
func Run(ctx context.Context, p Provider, queries []string, limit int) (*Batch, error) {
	b := &Batch{}
	seen := make(map[string]bool)

	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return b, err
		}

		results, err := p.Search(ctx, q, limit)
		if err != nil {
			if ctx.Err() != nil {
				return b, ctx.Err()
			}
			if errors.Is(err, breaker.ErrOpen) {
				b.Unavailable = true
			}
			b.Failed = append(b.Failed, fmt.Sprintf("%s: %v", q, err))
			continue
		}

		for _, r := range results {
			key := normalizeURL(r.URL)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			r.Query = q
			b.Results = append(b.Results, r)
		}
	}
	return b, nil
}

func normalizeURL(u string) string {
	u = strings.TrimSpace(u)
	u = strings.TrimSuffix(u, "/")
	if i := strings.Index(u, "#"); i >= 0 {
		u = u[:i]
	}
	return strings.ToLower(u)
}
