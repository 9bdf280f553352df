package pipeline

import (
	"github.com/jonathan/fit-agent/internal/scoring"
)

// Precedence decides which research_reranker rule wins when a job
// description override meets GARBAGE evidence.
type Precedence string

const (
	PrecedenceOverride Precedence = "override"
	PrecedenceGarbage  Precedence = "garbage"
)

// Policy holds the routing knobs
type Policy struct {
	MaxRetries        int
	Precedence        Precedence
	MinOverrideSkills int
}

// DefaultPolicy retries SPARSE research three times and lets the job
// description override win over a GARBAGE early exit.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:        3,
		Precedence:        PrecedenceOverride,
		MinOverrideSkills: 2,
	}
}

// Signal is the routing-relevant outcome of a phase.
type Signal struct {
	// InScope is set by connecting.
	InScope bool
	// Quality, Override and Iteration are read by research_reranker.
	Quality   scoring.QualityTier
	Override  bool
	Iteration int
}

// Transition returns the phase that follows from given sig. It is pure.
func Transition(from Phase, sig Signal, p Policy) Phase {
	switch from {
	case PhaseConnecting:
		if !sig.InScope {
			return PhaseDone
		}
		return PhaseDeepResearch
	case PhaseDeepResearch:
		return PhaseResearchReranker
	case PhaseResearchReranker:
		return rerank(sig, p)
	case PhaseContentEnrich:
		return PhaseSkepticalComparison
	case PhaseSkepticalComparison:
		return PhaseSkillsMatching
	case PhaseSkillsMatching:
		return PhaseConfidenceReranker
	case PhaseConfidenceReranker:
		return PhaseGenerateResults
	default:
		return PhaseDone
	}
}

func rerank(sig Signal, p Policy) Phase {
	garbage := sig.Quality == scoring.QualityGarbage

	if sig.Override && (!garbage || p.Precedence != PrecedenceGarbage) {
		return PhaseContentEnrich
	}
	switch sig.Quality {
	case scoring.QualityGarbage:
		return PhaseGenerateResults
	case scoring.QualitySparse:
		if sig.Iteration < p.MaxRetries {
			return PhaseDeepResearch
		}
		return PhaseGenerateResults
	default:
		return PhaseContentEnrich
	}
}
