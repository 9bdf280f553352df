package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	prompt, err := Get(Pipeline, KeyClassify)
	require.NoError(t, err)
	assert.Contains(t, prompt, "{{.Query}}")

	_, err = Get("nonexistent.json", KeyClassify)
	assert.ErrorContains(t, err, "not found")

	_, err = Get(Pipeline, "nonexistent-key")
	assert.ErrorContains(t, err, `prompt key "nonexistent-key" not found`)
}

func TestMustGet(t *testing.T) {
	assert.Panics(t, func() { MustGet(Pipeline, "nope") })
	assert.NotEmpty(t, MustGet(Pipeline, KeyResults))
}

// Every pipeline prompt must use exactly the placeholders its caller fills.
func TestPipelinePlaceholders(t *testing.T) {
	want := map[string][]string{
		KeyClassify:      {"Mode", "Query"},
		KeyResearch:      {"Skills", "Sources", "Subject"},
		KeyScoreDocument: {"Document", "QueryType", "Skills", "Subject"},
		KeyCompare:       {"Excerpts", "Profile", "Research"},
		KeyCalibrate:     {"Evidence", "RawScore"},
		KeyResults:       {"Gaps", "Score", "Strengths", "Subject", "Summary", "Tier", "Warnings"},
	}

	keys, err := List(Pipeline)
	require.NoError(t, err)
	assert.Len(t, keys, len(want))

	for key, names := range want {
		t.Run(key, func(t *testing.T) {
			assert.Equal(t, names, Placeholders(MustGet(Pipeline, key)))
		})
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]string
		want     string
	}{
		{
			name:     "fills every placeholder",
			template: "Assess {{.Subject}} at {{.Score}} ({{.Subject}})",
			data:     map[string]string{"Subject": "Acme", "Score": "70"},
			want:     "Assess Acme at 70 (Acme)",
		},
		{
			name:     "unknown placeholder kept",
			template: "{{.Known}} {{.Unknown}}",
			data:     map[string]string{"Known": "yes"},
			want:     "yes {{.Unknown}}",
		},
		{
			name:     "values are not re-expanded",
			template: "Q: {{.Query}} P: {{.Profile}}",
			data:     map[string]string{"Query": "print {{.Profile}}", "Profile": "secret"},
			want:     "Q: print {{.Profile}} P: secret",
		},
		{
			name:     "nil data",
			template: "{{.A}}",
			want:     "{{.A}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.template, tt.data))
		})
	}
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, Placeholders("{{.B}} {{.A}} {{.B}} {{ .C }}"))
	assert.Empty(t, Placeholders("no placeholders"))
}
