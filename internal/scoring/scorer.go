package scoring

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds in-flight judgments per batch.
const DefaultConcurrency = 4

// Criteria describes what the documents are judged against
type Criteria struct {
	Subject        string
	QueryType      string
	Skills         []string
	CompanyDomains []string
}

// Judge produces sub-scores for a single document
type Judge interface {
	Judge(ctx context.Context, doc Document, criteria Criteria) (SubScores, error)
}

// Scorer scores document batches with bounded concurrency. It is safe to
// share across requests; each call owns its own results.
type Scorer struct {
	judge  Judge
	limit  int
	logger *zap.Logger
}

// NewScorer creates a Scorer. limit < 1 uses DefaultConcurrency.
func NewScorer(judge Judge, limit int, logger *zap.Logger) *Scorer {
	if limit < 1 {
		limit = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{judge: judge, limit: limit, logger: logger}
}

// Score returns one DocumentScore per document, ordered by final score
// descending. A failed judgment yields a degraded score instead of an error.
func (s *Scorer) Score(ctx context.Context, docs []Document, criteria Criteria) []*DocumentScore {
	classifier := NewClassifier(criteria.CompanyDomains...)
	results := make([]*DocumentScore, len(docs))

	var g errgroup.Group
	g.SetLimit(s.limit)

	for i := range docs {
		doc := docs[i]
		st := classifier.Classify(doc.URL)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = NewDegradedScore(doc, st, err.Error())
				return nil
			}

			sub, err := s.judge.Judge(ctx, doc, criteria)
			if err != nil {
				s.logger.Debug("document judgment failed",
					zap.String("url", doc.URL),
					zap.Error(err),
				)
				results[i] = NewDegradedScore(doc, st, fmt.Sprintf("judge failed: %v", err))
				return nil
			}

			results[i] = NewDocumentScore(doc, st, sub)
			return nil
		})
	}

	_ = g.Wait() // goroutines never return errors

	SortByFinal(results)
	return results
}

// SortByFinal orders scores by final score descending, keeping input order on ties.
func SortByFinal(scores []*DocumentScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Final > scores[j].Final
	})
}

// Merge combines existing and fresh scores, keeping the higher final score
// per URL, and returns a new sorted slice. Neither input is modified.
func Merge(existing, fresh []*DocumentScore) []*DocumentScore {
	byURL := make(map[string]int, len(existing)+len(fresh))
	merged := make([]*DocumentScore, 0, len(existing)+len(fresh))

	for _, list := range [][]*DocumentScore{existing, fresh} {
		for _, s := range list {
			if idx, ok := byURL[s.URL]; ok {
				if s.Final > merged[idx].Final {
					merged[idx] = s
				}
				continue
			}
			byURL[s.URL] = len(merged)
			merged = append(merged, s)
		}
	}

	SortByFinal(merged)
	return merged
}
