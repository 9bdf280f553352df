package llm

import "strings"

// CleanJSONBlock extracts the JSON payload from a model reply. It unwraps a
// markdown fence, then trims any prose before the first brace or bracket and
// after the matching closer. Text without JSON is returned trimmed.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if body, ok := unfence(text); ok {
		text = body
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return text
	}
	closer := byte('}')
	if text[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(text, closer)
	if end < start {
		// truncated reply; let the decoder report it
		return text[start:]
	}
	return text[start : end+1]
}

// unfence returns the body of the first ``` fence, without its info string.
func unfence(text string) (string, bool) {
	i := strings.Index(text, "```")
	if i < 0 {
		return "", false
	}
	body := text[i+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	}
	if j := strings.Index(body, "```"); j >= 0 {
		body = body[:j]
	}
	return strings.TrimSpace(body), true
}
