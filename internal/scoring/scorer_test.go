package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type judgeFunc func(ctx context.Context, doc Document, criteria Criteria) (SubScores, error)

func (f judgeFunc) Judge(ctx context.Context, doc Document, criteria Criteria) (SubScores, error) {
	return f(ctx, doc, criteria)
}

func docs(n int) []Document {
	out := make([]Document, n)
	for i := range out {
		out[i] = Document{ID: fmt.Sprintf("d%d", i), URL: fmt.Sprintf("https://news.test/%d", i)}
	}
	return out
}

func TestScorer_OnePerInputSortedDescending(t *testing.T) {
	judge := judgeFunc(func(_ context.Context, doc Document, _ Criteria) (SubScores, error) {
		var i int
		_, _ = fmt.Sscanf(doc.ID, "d%d", &i)
		v := float64(i) / 10
		return SubScores{Relevance: v, Quality: v, Usefulness: v}, nil
	})
	s := NewScorer(judge, 3, nil)

	out := s.Score(context.Background(), docs(8), Criteria{Subject: "Acme"})

	require.Len(t, out, 8)
	assert.Equal(t, "d7", out[0].ID)
	assert.Equal(t, "d0", out[7].ID)
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i-1].Final, out[i].Final)
	}
}

func TestScorer_BoundedConcurrency(t *testing.T) {
	const limit = 2
	var inFlight, peak atomic.Int32
	judge := judgeFunc(func(context.Context, Document, Criteria) (SubScores, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(3 * time.Millisecond)
		inFlight.Add(-1)
		return SubScores{Relevance: 0.5}, nil
	})

	out := NewScorer(judge, limit, nil).Score(context.Background(), docs(12), Criteria{})

	assert.Len(t, out, 12)
	assert.LessOrEqual(t, peak.Load(), int32(limit))
}

func TestScorer_FailureDegradesOnlyThatDocument(t *testing.T) {
	judge := judgeFunc(func(_ context.Context, doc Document, _ Criteria) (SubScores, error) {
		if doc.ID == "d1" {
			return SubScores{}, errors.New("circuit llm open")
		}
		return SubScores{Relevance: 0.9, Quality: 0.9, Usefulness: 0.9}, nil
	})

	out := NewScorer(judge, 2, nil).Score(context.Background(), docs(3), Criteria{})

	require.Len(t, out, 3)
	last := out[2]
	assert.Equal(t, "d1", last.ID)
	assert.True(t, last.Degraded)
	assert.True(t, strings.Contains(last.Reason, "circuit llm open"))
	assert.False(t, out[0].Degraded)
}

func TestScorer_CancelledContextDegradesAll(t *testing.T) {
	var calls atomic.Int32
	judge := judgeFunc(func(context.Context, Document, Criteria) (SubScores, error) {
		calls.Add(1)
		return SubScores{Relevance: 1}, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := NewScorer(judge, 2, nil).Score(ctx, docs(4), Criteria{})

	require.Len(t, out, 4)
	for _, s := range out {
		assert.True(t, s.Degraded)
	}
	assert.Equal(t, int32(0), calls.Load())
}

func TestScorer_CompanyDomainIsOfficial(t *testing.T) {
	judge := judgeFunc(func(context.Context, Document, Criteria) (SubScores, error) {
		return SubScores{Relevance: 1, Quality: 1, Usefulness: 1}, nil
	})
	in := []Document{{ID: "a", URL: "https://acme.com/jobs"}, {ID: "b", URL: "https://youtube.com/watch"}}

	out := NewScorer(judge, 0, nil).Score(context.Background(), in, Criteria{CompanyDomains: []string{"acme.com"}})

	assert.Equal(t, SourceOfficial, out[0].SourceType)
	assert.Equal(t, SourceVideo, out[1].SourceType)
}

func TestScorer_EmptyInput(t *testing.T) {
	out := NewScorer(judgeFunc(nil), 1, nil).Score(context.Background(), nil, Criteria{})
	assert.Empty(t, out)
}

func TestMerge_KeepsHigherPerURL(t *testing.T) {
	low := &DocumentScore{URL: "u1", Final: 0.2}
	high := &DocumentScore{URL: "u1", Final: 0.7}
	other := &DocumentScore{URL: "u2", Final: 0.5}

	merged := Merge([]*DocumentScore{low, other}, []*DocumentScore{high})

	require.Len(t, merged, 2)
	assert.Same(t, high, merged[0])
	assert.Same(t, other, merged[1])
}

func TestMerge_DoesNotModifyInputs(t *testing.T) {
	existing := []*DocumentScore{{URL: "a", Final: 0.1}, {URL: "b", Final: 0.9}}
	_ = Merge(existing, nil)
	assert.Equal(t, "a", existing[0].URL)
}
