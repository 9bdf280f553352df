// Package calibration reconciles a raw fit score with the evidence behind it.
// The judge can lower confidence but never raise it above what the evidence supports.
package calibration

import (
	"fmt"
	"math"
	"strings"

	"github.com/jonathan/fit-agent/internal/scoring"
)

// Tier is a confidence level
type Tier string

const (
	TierHigh             Tier = "HIGH"
	TierMedium           Tier = "MEDIUM"
	TierLow              Tier = "LOW"
	TierInsufficientData Tier = "INSUFFICIENT_DATA"
)

func (t Tier) rank() int {
	switch t {
	case TierHigh:
		return 3
	case TierMedium:
		return 2
	case TierLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether t is one of the four tiers
func (t Tier) Valid() bool {
	switch t {
	case TierHigh, TierMedium, TierLow, TierInsufficientData:
		return true
	}
	return false
}

func minTier(a, b Tier) Tier {
	if b.rank() < a.rank() {
		return b
	}
	return a
}

// Flag is a quality flag from a fixed vocabulary
type Flag string

const (
	FlagSparseTech       Flag = "sparse_tech_evidence"
	FlagNoCulture        Flag = "no_culture_signals"
	FlagScoreMismatch    Flag = "evidence_score_mismatch"
	FlagFewRequirements  Flag = "few_requirements"
	FlagLowSourceQuality Flag = "low_source_quality"
	FlagDegradedSources  Flag = "degraded_sources"
)

// Evidence summarizes what the pipeline actually gathered
type Evidence struct {
	RawScore        float64
	Sources         int
	DegradedSources int
	Requirements    int
	MatchedSkills   int
	Gaps            int
	TechStack       int
	CultureSignals  int
	Quality         scoring.QualityTier
}

// Judgment is the judge's proposal
type Judgment struct {
	Delta         float64 `json:"delta"`
	Tier          Tier    `json:"tier"`
	Justification string  `json:"justification"`
}

// Result is the calibrated outcome
type Result struct {
	RawScore        float64 `json:"raw_score"`
	Delta           float64 `json:"delta"`
	CalibratedScore float64 `json:"calibrated_score"`
	Tier            Tier    `json:"tier"`
	Justification   string  `json:"justification"`
	Flags           []Flag  `json:"flags,omitempty"`
}

// Policy holds the calibration limits
type Policy struct {
	MinSources        int     `mapstructure:"min_sources"`
	MinRequirements   int     `mapstructure:"min_requirements"`
	MinTechStack      int     `mapstructure:"min_tech_stack"`
	MaxDelta          float64 `mapstructure:"max_delta"`
	MismatchScore     float64 `mapstructure:"mismatch_score"`
	MismatchMatched   int     `mapstructure:"mismatch_matched"`
	MismatchPenalty   float64 `mapstructure:"mismatch_penalty"`
	LowConfidenceFlag int     `mapstructure:"low_confidence_flags"`
}

// DefaultPolicy returns the standard limits
func DefaultPolicy() Policy {
	return Policy{
		MinSources:        3,
		MinRequirements:   3,
		MinTechStack:      2,
		MaxDelta:          15,
		MismatchScore:     80,
		MismatchMatched:   3,
		MismatchPenalty:   10,
		LowConfidenceFlag: 3,
	}
}

// Flags returns the quality flags raised by ev, in vocabulary order.
func (p Policy) Flags(ev Evidence) []Flag {
	var flags []Flag
	if ev.TechStack < p.MinTechStack {
		flags = append(flags, FlagSparseTech)
	}
	if ev.CultureSignals == 0 {
		flags = append(flags, FlagNoCulture)
	}
	if p.mismatch(ev) {
		flags = append(flags, FlagScoreMismatch)
	}
	if ev.Requirements < p.MinRequirements {
		flags = append(flags, FlagFewRequirements)
	}
	if ev.Quality == scoring.QualitySparse || ev.Quality == scoring.QualityGarbage {
		flags = append(flags, FlagLowSourceQuality)
	}
	if ev.DegradedSources > 0 {
		flags = append(flags, FlagDegradedSources)
	}
	return flags
}

func (p Policy) mismatch(ev Evidence) bool {
	return ev.RawScore >= p.MismatchScore && ev.MatchedSkills < p.MismatchMatched
}

// Ceiling returns the highest tier the evidence supports and the reasons it is capped.
func (p Policy) Ceiling(ev Evidence, flags []Flag) (Tier, []string) {
	if ev.Sources == 0 {
		return TierInsufficientData, []string{"no usable sources"}
	}
	if ev.Quality == scoring.QualityGarbage {
		return TierInsufficientData, []string{"sources were mostly irrelevant"}
	}

	tier := TierHigh
	var reasons []string
	switch ev.Quality {
	case scoring.QualityPartial:
		tier = TierMedium
		reasons = append(reasons, "partial source quality")
	case scoring.QualitySparse:
		tier = TierLow
		reasons = append(reasons, "sparse sources")
	}
	if ev.Sources < p.MinSources {
		tier = minTier(tier, TierMedium)
		reasons = append(reasons, fmt.Sprintf("only %d usable source(s)", ev.Sources))
	}
	if ev.Requirements < p.MinRequirements {
		tier = minTier(tier, TierMedium)
		reasons = append(reasons, fmt.Sprintf("only %d requirement(s) identified", ev.Requirements))
	}
	if len(flags) >= p.LowConfidenceFlag {
		tier = minTier(tier, TierLow)
		reasons = append(reasons, fmt.Sprintf("%d quality flags raised", len(flags)))
	}
	return tier, reasons
}

// Calibrate applies the policy to ev and the judge's proposal j. A nil j
// keeps the raw score and takes the evidence ceiling as the tier.
func (p Policy) Calibrate(ev Evidence, j *Judgment) Result {
	flags := p.Flags(ev)
	ceiling, reasons := p.Ceiling(ev, flags)

	var delta float64
	tier := ceiling
	justification := ""
	if j != nil {
		delta = clamp(j.Delta, -p.MaxDelta, p.MaxDelta)
		if j.Tier.Valid() {
			tier = minTier(ceiling, j.Tier)
		}
		justification = strings.TrimSpace(j.Justification)
	}
	if p.mismatch(ev) && delta > -p.MismatchPenalty {
		delta = -p.MismatchPenalty
	}

	if len(reasons) > 0 && (j == nil || ceiling.rank() < j.Tier.rank()) {
		note := fmt.Sprintf("Confidence capped at %s: %s.", ceiling, strings.Join(reasons, ", "))
		justification = strings.TrimSpace(justification + " " + note)
	}
	if justification == "" {
		justification = fmt.Sprintf("Evidence supports %s confidence.", tier)
	}

	return Result{
		RawScore:        ev.RawScore,
		Delta:           delta,
		CalibratedScore: round1(clamp(ev.RawScore+delta, 0, 100)),
		Tier:            tier,
		Justification:   justification,
		Flags:           flags,
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// FlagStrings converts flags for payloads
func FlagStrings(flags []Flag) []string {
	out := make([]string, len(flags))
	for i, f := range flags {
		out[i] = string(f)
	}
	return out
}
