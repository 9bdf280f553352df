package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/fit-agent/internal/llm"
	"github.com/jonathan/fit-agent/internal/llm/llmtest"
	"github.com/jonathan/fit-agent/internal/schemas"
)

func TestLLMJudge_ParsesScores(t *testing.T) {
	stub := llmtest.New(func(_ context.Context, _ string, tier llm.ModelTier) (string, error) {
		assert.Equal(t, llm.TierLite, tier)
		return "```json\n{\"relevance\":0.9,\"quality\":0.7,\"usefulness\":0.4,\"reason\":\"about acme\"}\n```", nil
	})

	sub, err := NewLLMJudge(stub).Judge(context.Background(),
		Document{URL: "https://acme.com", Title: "About", Snippet: "We build rockets"},
		Criteria{Subject: "Acme", QueryType: "company", Skills: []string{"go"}})

	require.NoError(t, err)
	assert.Equal(t, SubScores{Relevance: 0.9, Quality: 0.7, Usefulness: 0.4}, sub)

	prompt := stub.Prompts()[0]
	assert.Contains(t, prompt, "Acme")
	assert.Contains(t, prompt, "We build rockets")
	assert.Contains(t, prompt, "--- BEGIN SEARCH RESULT")
}

func TestLLMJudge_InvalidOutput(t *testing.T) {
	stub := llmtest.New(func(context.Context, string, llm.ModelTier) (string, error) {
		return `{"relevance": 4}`, nil
	})

	_, err := NewLLMJudge(stub).Judge(context.Background(), Document{URL: "u"}, Criteria{})
	var ve *schemas.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestLLMJudge_ClientError(t *testing.T) {
	boom := errors.New("boom")
	stub := llmtest.New(func(context.Context, string, llm.ModelTier) (string, error) {
		return "", boom
	})

	_, err := NewLLMJudge(stub).Judge(context.Background(), Document{URL: "u"}, Criteria{})
	assert.ErrorIs(t, err, boom)
}

func TestLLMJudge_TruncatesSnippet(t *testing.T) {
	stub := llmtest.New(func(context.Context, string, llm.ModelTier) (string, error) {
		return `{"relevance":0.1,"quality":0.1,"usefulness":0.1}`, nil
	})
	long := make([]byte, maxSnippetChars*3)
	for i := range long {
		long[i] = 'z'
	}

	_, err := NewLLMJudge(stub).Judge(context.Background(), Document{Snippet: string(long)}, Criteria{})
	require.NoError(t, err)
	assert.Less(t, len(stub.Prompts()[0]), maxSnippetChars*2)
}
