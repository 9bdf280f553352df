package types

// Requirement represents a skill requirement with evidence
type Requirement struct {
	Skill    string `json:"skill"`
	Level    string `json:"level,omitempty"`
	Evidence string `json:"evidence,omitempty"`
}

// ResearchArtifacts is the synthesized output of the deep_research phase
type ResearchArtifacts struct {
	EmployerSummary string        `json:"employer_summary"`
	TechStack       []string      `json:"tech_stack"`
	CultureSignals  []string      `json:"culture_signals"`
	Requirements    []Requirement `json:"requirements"`
}

// Gap is a requirement the candidate does not clearly meet
type Gap struct {
	Requirement string `json:"requirement"`
	Severity    string `json:"severity"` // high, medium, low
	Note        string `json:"note,omitempty"`
}

// GapAnalysis is the output of the skeptical_comparison phase
type GapAnalysis struct {
	Strengths []string `json:"strengths"`
	Gaps      []Gap    `json:"gaps"`
	RedFlags  []string `json:"red_flags,omitempty"`
}

// SkillMatch is the deterministic comparison of requirements to the profile
type SkillMatch struct {
	Matched       []string `json:"matched"`
	Missing       []string `json:"missing"`
	Coverage      float64  `json:"coverage"`
	StrengthRatio float64  `json:"strength_ratio"`
	RawScore      float64  `json:"raw_score"`
}

// Assessment is the final result carried by the completion event
type Assessment struct {
	Subject         string   `json:"subject"`
	QueryType       string   `json:"query_type"`
	RawScore        float64  `json:"raw_score"`
	CalibratedScore float64  `json:"calibrated_score"`
	ConfidenceTier  string   `json:"confidence_tier"`
	Justification   string   `json:"justification,omitempty"`
	QualityTier     string   `json:"quality_tier"`
	Flags           []string `json:"flags,omitempty"`
	Strengths       []string `json:"strengths,omitempty"`
	Gaps            []Gap    `json:"gaps,omitempty"`
	Sources         []string `json:"sources,omitempty"`
	Summary         string   `json:"summary,omitempty"`
}
