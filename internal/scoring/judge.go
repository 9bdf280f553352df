package scoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/fit-agent/internal/llm"
	"github.com/jonathan/fit-agent/internal/prompts"
	"github.com/jonathan/fit-agent/internal/schemas"
	"github.com/jonathan/fit-agent/internal/validation"
)

// maxSnippetChars bounds the text sent per document
const maxSnippetChars = 1500

// LLMJudge scores a document with a single lite-tier JSON call.
type LLMJudge struct {
	client llm.Client
}

// NewLLMJudge creates a judge on client
func NewLLMJudge(client llm.Client) *LLMJudge {
	return &LLMJudge{client: client}
}

type judgeResponse struct {
	Relevance  float64 `json:"relevance"`
	Quality    float64 `json:"quality"`
	Usefulness float64 `json:"usefulness"`
	Reason     string  `json:"reason"`
}

// Judge implements Judge
func (j *LLMJudge) Judge(ctx context.Context, doc Document, criteria Criteria) (SubScores, error) {
	snippet := doc.Snippet
	if len(snippet) > maxSnippetChars {
		snippet = snippet[:maxSnippetChars]
	}
	body := fmt.Sprintf("Title: %s\nURL: %s\n\n%s", doc.Title, doc.URL, snippet)

	prompt := prompts.Format(prompts.MustGet(prompts.Pipeline, prompts.KeyScoreDocument), map[string]string{
		"Subject":   criteria.Subject,
		"QueryType": criteria.QueryType,
		"Skills":    strings.Join(criteria.Skills, ", "),
		"Document":  validation.SanitizeExternal(body, "search result"),
	})

	raw, err := j.client.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		return SubScores{}, fmt.Errorf("judge %s: %w", doc.URL, err)
	}

	var resp judgeResponse
	if err := schemas.Decode(schemas.DocumentScore, raw, &resp); err != nil {
		return SubScores{}, fmt.Errorf("judge %s: %w", doc.URL, err)
	}

	return SubScores{
		Relevance:  clamp01(resp.Relevance),
		Quality:    clamp01(resp.Quality),
		Usefulness: clamp01(resp.Usefulness),
	}, nil
}
