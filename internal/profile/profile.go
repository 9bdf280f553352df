// Package profile loads the candidate profile and matches it against
// employer requirements.
package profile

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/fit-agent/internal/parsing"
	"github.com/jonathan/fit-agent/internal/types"
)

// Load reads, validates and normalizes the profile at path. Unknown YAML
// fields are rejected.
func Load(path string) (*types.CandidateProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML profile
func Parse(data []byte) (*types.CandidateProfile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p types.CandidateProfile
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	for i := range p.Skills {
		p.Skills[i].Name = parsing.NormalizeSkillName(p.Skills[i].Name)
	}
	for i := range p.Experience {
		p.Experience[i].Skills = parsing.NormalizeSkills(p.Experience[i].Skills)
	}
	return &p, nil
}

// Match weights
const (
	coverageWeight = 0.7
	strengthWeight = 0.3
)

// Match compares requirements against the profile. Coverage is the share
// of requirements the candidate holds; the strength ratio comes from the
// comparison analysis. raw = 100 * (0.7*coverage + 0.3*strength_ratio).
func Match(p *types.CandidateProfile, reqs []types.Requirement, analysis *types.GapAnalysis) types.SkillMatch {
	held := Keys(p)

	m := types.SkillMatch{Matched: []string{}, Missing: []string{}}
	seen := make(map[string]bool, len(reqs))
	for _, r := range reqs {
		key := parsing.SkillKey(r.Skill)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		if held[key] {
			m.Matched = append(m.Matched, parsing.NormalizeSkillName(r.Skill))
		} else {
			m.Missing = append(m.Missing, parsing.NormalizeSkillName(r.Skill))
		}
	}

	if total := len(m.Matched) + len(m.Missing); total > 0 {
		m.Coverage = float64(len(m.Matched)) / float64(total)
	}
	if analysis != nil {
		if n := len(analysis.Strengths) + len(analysis.Gaps); n > 0 {
			m.StrengthRatio = float64(len(analysis.Strengths)) / float64(n)
		}
	}

	m.RawScore = math.Round(1000*(coverageWeight*m.Coverage+strengthWeight*m.StrengthRatio)) / 10
	return m
}

// Keys returns the comparison keys of every skill the candidate holds,
// including skills listed under experience.
func Keys(p *types.CandidateProfile) map[string]bool {
	keys := make(map[string]bool)
	if p == nil {
		return keys
	}
	for _, s := range p.Skills {
		keys[parsing.SkillKey(s.Name)] = true
	}
	for _, pos := range p.Experience {
		for _, s := range pos.Skills {
			keys[parsing.SkillKey(s)] = true
		}
	}
	delete(keys, "")
	return keys
}

// Summary renders the profile as plain text for prompts
func Summary(p *types.CandidateProfile) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(p.Name)
	if p.Headline != "" {
		b.WriteString(": " + p.Headline)
	}
	b.WriteString("\nSkills:")
	for _, s := range p.Skills {
		b.WriteString("\n- " + s.Name)
		var detail []string
		if s.Level != "" {
			detail = append(detail, s.Level)
		}
		if s.Years > 0 {
			detail = append(detail, fmt.Sprintf("%gy", s.Years))
		}
		if len(detail) > 0 {
			b.WriteString(" (" + strings.Join(detail, ", ") + ")")
		}
	}
	if len(p.Experience) > 0 {
		b.WriteString("\nExperience:")
		for _, pos := range p.Experience {
			fmt.Fprintf(&b, "\n- %s at %s", pos.Title, pos.Company)
			if pos.Years > 0 {
				fmt.Fprintf(&b, ", %g years", pos.Years)
			}
			if len(pos.Skills) > 0 {
				b.WriteString(" [" + strings.Join(pos.Skills, ", ") + "]")
			}
		}
	}
	prefs := p.Preferences
	if prefs.Remote || len(prefs.Locations) > 0 || len(prefs.Values) > 0 {
		b.WriteString("\nPreferences:")
		if prefs.Remote {
			b.WriteString(" remote;")
		}
		if len(prefs.Locations) > 0 {
			b.WriteString(" locations " + strings.Join(prefs.Locations, ", ") + ";")
		}
		if len(prefs.Values) > 0 {
			b.WriteString(" values " + strings.Join(prefs.Values, ", ") + ";")
		}
	}
	return b.String()
}
