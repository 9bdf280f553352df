package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain object", `{"a":1}`, `{"a":1}`},
		{"surrounding whitespace", "\n  {\"a\":1}  \n", `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"other language tag", "```javascript\n{\"a\":1}\n```", `{"a":1}`},
		{"single line fence", "```json {\"a\":1}```", `{"a":1}`},
		{"fence after prose", "Here you go:\n```json\n{\"a\":1}\n```\nLet me know!", `{"a":1}`},
		{"prose without fence", `Sure! {"in_scope": true} Hope that helps.`, `{"in_scope": true}`},
		{"array", "Result: [1, 2, 3].", `[1, 2, 3]`},
		{"array of objects", "```\n[{\"a\":1},{\"b\":2}]\n```", `[{"a":1},{"b":2}]`},
		{"nested braces", `x {"a":{"b":[1]}} y`, `{"a":{"b":[1]}}`},
		{"truncated", `{"a": [1, 2`, `{"a": [1, 2`},
		{"no json", "  not json at all ", "not json at all"},
		{"empty", "", ""},
		{"unterminated fence", "```json\n{\"a\":1}", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSONBlock(tt.input))
		})
	}
}
