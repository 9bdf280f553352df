package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleProvider queries the Programmable Search Engine API
type GoogleProvider struct {
	svc     *customsearch.Service
	cx      string
	limiter *RateLimiter
}

// NewGoogleProvider creates a provider for engine cx. Extra options are passed
// to the API client.
func NewGoogleProvider(ctx context.Context, apiKey, cx string, limit RateLimitConfig, opts ...option.ClientOption) (*GoogleProvider, error) {
	if cx == "" {
		return nil, errors.New("search engine ID is required")
	}
	if apiKey != "" {
		opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	}

	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}

	return &GoogleProvider{svc: svc, cx: cx, limiter: NewRateLimiter(limit)}, nil
}

// Search implements Provider
func (p *GoogleProvider) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 || limit > MaxResultsPerQuery {
		limit = MaxResultsPerQuery
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := p.svc.Cse.List().Cx(p.cx).Q(query).Num(int64(limit)).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
			p.limiter.Backoff(0)
		}
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	results := make([]Result, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil || item.Link == "" {
			continue
		}
		results = append(results, Result{
			URL:     item.Link,
			Title:   item.Title,
			Snippet: item.Snippet,
		})
	}
	return results, nil
}
