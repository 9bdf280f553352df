// Package prompts holds the LLM prompt templates used by the assessment
// phases. Templates live in embedded JSON files keyed by prompt name.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// Pipeline is the prompt file used by the assessment phases
const Pipeline = "pipeline.json"

// Keys in Pipeline
const (
	KeyClassify      = "classify-query"
	KeyResearch      = "synthesize-research"
	KeyScoreDocument = "score-document"
	KeyCompare       = "skeptical-comparison"
	KeyCalibrate     = "calibrate-confidence"
	KeyResults       = "generate-results"
)

// placeholder matches {{.Name}}
var placeholder = regexp.MustCompile(`\{\{\.(\w+)\}\}`)

// loadAll parses every embedded file once.
var loadAll = sync.OnceValues(func() (map[string]map[string]string, error) {
	names, err := fs.Glob(promptFiles, "*.json")
	if err != nil {
		return nil, err
	}
	files := make(map[string]map[string]string, len(names))
	for _, name := range names {
		data, err := promptFiles.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt file %s: %w", name, err)
		}
		var set map[string]string
		if err := json.Unmarshal(data, &set); err != nil {
			return nil, fmt.Errorf("failed to parse prompt file %s: %w", name, err)
		}
		files[name] = set
	}
	return files, nil
})

func file(filename string) (map[string]string, error) {
	files, err := loadAll()
	if err != nil {
		return nil, err
	}
	set, ok := files[filename]
	if !ok {
		return nil, fmt.Errorf("prompt file %s not found", filename)
	}
	return set, nil
}

// Get returns the template stored under key in filename.
func Get(filename, key string) (string, error) {
	set, err := file(filename)
	if err != nil {
		return "", err
	}
	prompt, ok := set[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return prompt, nil
}

// MustGet is Get for prompts the binary cannot run without.
func MustGet(filename, key string) string {
	prompt, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return prompt
}

// Format fills {{.Key}} placeholders from data in a single pass, so text
// inside a value is never expanded. Unknown placeholders are left as is.
func Format(template string, data map[string]string) string {
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		if v, ok := data[m[3:len(m)-2]]; ok {
			return v
		}
		return m
	})
}

// Placeholders lists the distinct placeholder names in template, sorted.
func Placeholders(template string) []string {
	var names []string
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		names = append(names, m[1])
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// List returns the keys in filename, sorted.
func List(filename string) ([]string, error) {
	set, err := file(filename)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys, nil
}
