// Package parsing normalizes skill names and requirement lists produced by
// classification, research synthesis and the candidate profile.
package parsing

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jonathan/fit-agent/internal/types"
)

// skillNormalizations maps common skill name variants to canonical names
var skillNormalizations = map[string]string{
	"golang":        "Go",
	"go lang":       "Go",
	"javascript":    "JavaScript",
	"js":            "JavaScript",
	"typescript":    "TypeScript",
	"ts":            "TypeScript",
	"k8s":           "Kubernetes",
	"kubernetes":    "Kubernetes",
	"react.js":      "React",
	"reactjs":       "React",
	"vue.js":        "Vue",
	"vuejs":         "Vue",
	"node.js":       "Node.js",
	"nodejs":        "Node.js",
	"node":          "Node.js",
	"postgres":      "PostgreSQL",
	"postgresql":    "PostgreSQL",
	"psql":          "PostgreSQL",
	"aws":           "AWS",
	"gcp":           "GCP",
	"google cloud":  "GCP",
	"ci/cd":         "CI/CD",
	"cicd":          "CI/CD",
	"ml":            "Machine Learning",
	"llm":           "LLMs",
	"llms":          "LLMs",
	"sql":           "SQL",
	"grpc":          "gRPC",
	"graphql":       "GraphQL",
	"terraform":     "Terraform",
	"docker":        "Docker",
	"c++":           "C++",
	"cpp":           "C++",
	"c#":            "C#",
	"csharp":        "C#",
	"rest":          "REST",
	"restful":       "REST",
	"rest apis":     "REST",
	"microservices": "Microservices",
	"api":           "API",
	"apis":          "APIs",
}

// NormalizeSkillName maps a skill to its canonical spelling. Known aliases
// use the table above; unknown single words are capitalized unless their
// mixed case looks deliberate ("gRPC", "iOS"). Phrases keep their casing.
func NormalizeSkillName(skillName string) string {
	name := strings.Join(strings.Fields(skillName), " ")
	if name == "" {
		return ""
	}

	lower := strings.ToLower(name)
	if canonical, ok := skillNormalizations[lower]; ok {
		return canonical
	}
	if strings.Contains(name, " ") {
		return name
	}

	switch name {
	case lower:
		return capitalize(name)
	case strings.ToUpper(name):
		return capitalize(lower)
	default:
		return name
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// SkillKey returns the comparison key for a skill name.
func SkillKey(skillName string) string {
	return strings.ToLower(NormalizeSkillName(skillName))
}

// NormalizeSkills normalizes and deduplicates a skill list, keeping first occurrences.
func NormalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]bool, len(skills))
	for _, s := range skills {
		name := NormalizeSkillName(s)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}

// NormalizeRequirements normalizes skill names and deduplicates requirements
func NormalizeRequirements(reqs []types.Requirement) []types.Requirement {
	if len(reqs) == 0 {
		return reqs
	}

	normalized := make([]types.Requirement, 0, len(reqs))
	seen := make(map[string]int) // skill key -> index in normalized

	for _, req := range reqs {
		skill := NormalizeSkillName(req.Skill)
		if skill == "" {
			continue
		}

		key := strings.ToLower(skill)
		if idx, exists := seen[key]; exists {
			if normalized[idx].Level == "" && req.Level != "" {
				normalized[idx].Level = req.Level
			}
			if normalized[idx].Evidence == "" && req.Evidence != "" {
				normalized[idx].Evidence = req.Evidence
			}
			continue
		}

		normalized = append(normalized, types.Requirement{
			Skill:    skill,
			Level:    req.Level,
			Evidence: req.Evidence,
		})
		seen[key] = len(normalized) - 1
	}

	return normalized
}
