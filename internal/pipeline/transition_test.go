package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/fit-agent/internal/scoring"
)

func TestTransition_Linear(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		from Phase
		want Phase
	}{
		{PhaseDeepResearch, PhaseResearchReranker},
		{PhaseContentEnrich, PhaseSkepticalComparison},
		{PhaseSkepticalComparison, PhaseSkillsMatching},
		{PhaseSkillsMatching, PhaseConfidenceReranker},
		{PhaseConfidenceReranker, PhaseGenerateResults},
		{PhaseGenerateResults, PhaseDone},
		{PhaseDone, PhaseDone},
	}
	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			assert.Equal(t, tt.want, Transition(tt.from, Signal{}, p))
		})
	}
}

func TestTransition_Connecting(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, PhaseDone, Transition(PhaseConnecting, Signal{InScope: false}, p))
	assert.Equal(t, PhaseDeepResearch, Transition(PhaseConnecting, Signal{InScope: true}, p))
}

func TestTransition_ResearchReranker(t *testing.T) {
	override := DefaultPolicy()
	garbageFirst := DefaultPolicy()
	garbageFirst.Precedence = PrecedenceGarbage

	tests := []struct {
		name   string
		sig    Signal
		policy Policy
		want   Phase
	}{
		{"clean proceeds", Signal{Quality: scoring.QualityClean}, override, PhaseContentEnrich},
		{"partial proceeds", Signal{Quality: scoring.QualityPartial}, override, PhaseContentEnrich},
		{"garbage exits early", Signal{Quality: scoring.QualityGarbage}, override, PhaseGenerateResults},
		{"sparse retries", Signal{Quality: scoring.QualitySparse, Iteration: 0}, override, PhaseDeepResearch},
		{"sparse retries at two", Signal{Quality: scoring.QualitySparse, Iteration: 2}, override, PhaseDeepResearch},
		{"sparse exhausted", Signal{Quality: scoring.QualitySparse, Iteration: 3}, override, PhaseGenerateResults},
		{"override skips sparse retry", Signal{Quality: scoring.QualitySparse, Override: true}, override, PhaseContentEnrich},
		{"override beats garbage", Signal{Quality: scoring.QualityGarbage, Override: true}, override, PhaseContentEnrich},
		{"garbage beats override", Signal{Quality: scoring.QualityGarbage, Override: true}, garbageFirst, PhaseGenerateResults},
		{"override still skips sparse under garbage precedence", Signal{Quality: scoring.QualitySparse, Override: true}, garbageFirst, PhaseContentEnrich},
		{"no retries allowed", Signal{Quality: scoring.QualitySparse}, Policy{MaxRetries: 0, Precedence: PrecedenceOverride}, PhaseGenerateResults},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Transition(PhaseResearchReranker, tt.sig, tt.policy))
		})
	}
}

func TestTransition_AlwaysAllowed(t *testing.T) {
	qualities := []scoring.QualityTier{scoring.QualityClean, scoring.QualityPartial, scoring.QualitySparse, scoring.QualityGarbage}
	policies := []Policy{DefaultPolicy(), {MaxRetries: 3, Precedence: PrecedenceGarbage}}

	for _, def := range Registry {
		for _, p := range policies {
			for _, q := range qualities {
				for _, flags := range []Signal{{}, {InScope: true}, {Override: true}, {InScope: true, Iteration: 5}} {
					sig := flags
					sig.Quality = q
					next := Transition(def.Name, sig, p)
					assert.True(t, Allowed(def.Name, next), "%s -> %s", def.Name, next)
				}
			}
		}
	}
}

func TestAllowed_RejectsUnlisted(t *testing.T) {
	assert.False(t, Allowed(PhaseConnecting, PhaseGenerateResults))
	assert.False(t, Allowed(PhaseContentEnrich, PhaseDeepResearch))
	assert.False(t, Allowed(PhaseDone, PhaseConnecting))
}

func TestPhase_Message(t *testing.T) {
	for _, def := range Registry {
		assert.NotEmpty(t, def.Name.Message())
	}
	assert.Empty(t, Phase("bogus").Message())
}

func TestAllowed_UnknownPhases(t *testing.T) {
	assert.False(t, Allowed(Phase("bogus"), PhaseDone))
	assert.False(t, Allowed(PhaseConnecting, Phase("bogus")))
	assert.Equal(t, PhaseDone, Transition(Phase("bogus"), Signal{InScope: true}, DefaultPolicy()))
}
