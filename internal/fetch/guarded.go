package fetch

import (
	"context"
	"errors"

	"github.com/jonathan/fit-agent/internal/breaker"
)

// Guarded gates a Fetcher with the fetch circuit breaker. Failures that
// belong to the page itself (bad URL, 4xx) do not count against the breaker.
type Guarded struct {
	next    Fetcher
	breaker *breaker.Breaker
}

// NewGuarded wraps next with b
func NewGuarded(next Fetcher, b *breaker.Breaker) *Guarded {
	return &Guarded{next: next, breaker: b}
}

// Fetch implements Fetcher
func (g *Guarded) Fetch(ctx context.Context, url string) (*Page, error) {
	permit, err := g.breaker.Allow()
	if err != nil {
		return nil, err
	}

	page, err := g.next.Fetch(ctx, url)

	var fe *Error
	switch {
	case err == nil:
		permit.Success()
	case ctx.Err() != nil:
		permit.Release()
	case errors.As(err, &fe) && fe.PageFault():
		permit.Release()
	default:
		permit.Failure()
	}
	return page, err
}
