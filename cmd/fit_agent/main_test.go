package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/fit-agent/internal/config"
	"github.com/jonathan/fit-agent/internal/events"
	"github.com/jonathan/fit-agent/internal/llm"
	"github.com/jonathan/fit-agent/internal/pipeline"
)

func TestReadQuery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jd.txt")
	require.NoError(t, os.WriteFile(path, []byte("Senior Go engineer"), 0o600))

	tests := []struct {
		name    string
		stdin   string
		args    []string
		file    string
		want    string
		wantErr bool
	}{
		{name: "argument", args: []string{"Acme Corp"}, want: "Acme Corp"},
		{name: "file", file: path, want: "Senior Go engineer"},
		{name: "stdin", file: "-", stdin: "from stdin", want: "from stdin"},
		{name: "both", args: []string{"Acme"}, file: path, wantErr: true},
		{name: "none", wantErr: true},
		{name: "blank argument", args: []string{"  "}, wantErr: true},
		{name: "missing file", file: filepath.Join(dir, "nope.txt"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readQuery(strings.NewReader(tt.stdin), tt.args, tt.file)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLLMConfig(t *testing.T) {
	cfg := llmConfig(config.LLMConfig{
		Provider:    "genai",
		Models:      map[string]string{"advanced": "gemini-exp", "lite": ""},
		Temperature: 0.4,
	})

	assert.Equal(t, llm.ProviderGenAI, cfg.Provider)
	assert.Equal(t, "gemini-exp", cfg.GetModel(llm.TierAdvanced))
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.GetModel(llm.TierLite), "empty entries keep the default")
	assert.InDelta(t, 0.4, cfg.Temperature, 1e-6)
}

func TestPipelineOptions(t *testing.T) {
	cfg := &config.Config{
		Search: config.SearchConfig{ResultsPerQuery: 7},
		Pipeline: config.PipelineConfig{
			RequestTimeout:    time.Minute,
			MaxRetries:        1,
			ScorerConcurrency: 2,
			EnrichLimit:       4,
			EnrichConcurrency: 2,
			Precedence:        "garbage",
		},
	}

	opts := pipelineOptions(cfg)
	assert.Equal(t, time.Minute, opts.RequestTimeout)
	assert.Equal(t, 1, opts.Policy.MaxRetries)
	assert.Equal(t, pipeline.PrecedenceGarbage, opts.Policy.Precedence)
	assert.Equal(t, pipeline.DefaultPolicy().MinOverrideSkills, opts.Policy.MinOverrideSkills)
	assert.Equal(t, 7, opts.ResultsPerQuery)
	assert.Equal(t, 4, opts.EnrichLimit)
}

func TestEventPrinter_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	emit := eventPrinter(&buf, true, false)

	require.NoError(t, emit(events.Event{Seq: 1, Kind: events.KindResponse, Payload: events.Response{Text: "hi"}}))
	require.NoError(t, emit(events.Event{Seq: 2, Kind: events.KindError, Payload: events.Error{Code: "timeout", Message: "late"}}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var ev struct {
		Seq     uint64          `json:"seq"`
		Kind    string          `json:"kind"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &ev))
	assert.Equal(t, uint64(2), ev.Seq)
	assert.Equal(t, "error", ev.Kind)
	assert.JSONEq(t, `{"code":"timeout","message":"late"}`, string(ev.Payload))
}

func TestHashSecretCommand(t *testing.T) {
	t.Setenv("FIT_AGENT_AUTH_BCRYPT_COST", "10")
	t.Setenv("FIT_AGENT_AUTH_PEPPER", "pepper")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"token", "hash-secret", "s3cret"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	hash := strings.TrimSpace(out.String())
	h := &config.SecretHasher{Cost: 10, Pepper: "pepper"}
	assert.True(t, h.Verify("s3cret", hash))
	assert.False(t, h.Verify("other", hash))
}
