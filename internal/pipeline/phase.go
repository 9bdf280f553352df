// Package pipeline drives one fit assessment through its fixed phase graph,
// streaming progress onto a per-request events.Channel.
package pipeline

// Phase names one stage of the pipeline
type Phase string

const (
	PhaseConnecting          Phase = "connecting"
	PhaseDeepResearch        Phase = "deep_research"
	PhaseResearchReranker    Phase = "research_reranker"
	PhaseContentEnrich       Phase = "content_enrich"
	PhaseSkepticalComparison Phase = "skeptical_comparison"
	PhaseSkillsMatching      Phase = "skills_matching"
	PhaseConfidenceReranker  Phase = "confidence_reranker"
	PhaseGenerateResults     Phase = "generate_results"
	PhaseDone                Phase = "done"
)

// PhaseDefinition describes a phase for events and listings
type PhaseDefinition struct {
	Name    Phase
	Message string
	// Next lists every phase this one may hand over to.
	Next []Phase
}

// Registry holds every phase in nominal order.
var Registry = []PhaseDefinition{
	{
		Name:    PhaseConnecting,
		Message: "Understanding the query",
		Next:    []Phase{PhaseDeepResearch, PhaseDone},
	},
	{
		Name:    PhaseDeepResearch,
		Message: "Searching for evidence",
		Next:    []Phase{PhaseResearchReranker},
	},
	{
		Name:    PhaseResearchReranker,
		Message: "Scoring sources",
		Next:    []Phase{PhaseDeepResearch, PhaseContentEnrich, PhaseGenerateResults},
	},
	{
		Name:    PhaseContentEnrich,
		Message: "Reading the best sources",
		Next:    []Phase{PhaseSkepticalComparison},
	},
	{
		Name:    PhaseSkepticalComparison,
		Message: "Comparing the profile against the employer",
		Next:    []Phase{PhaseSkillsMatching},
	},
	{
		Name:    PhaseSkillsMatching,
		Message: "Matching skills to requirements",
		Next:    []Phase{PhaseConfidenceReranker},
	},
	{
		Name:    PhaseConfidenceReranker,
		Message: "Calibrating confidence",
		Next:    []Phase{PhaseGenerateResults},
	},
	{
		Name:    PhaseGenerateResults,
		Message: "Writing the assessment",
		Next:    []Phase{PhaseDone},
	},
}

var definitions = func() map[Phase]PhaseDefinition {
	m := make(map[Phase]PhaseDefinition, len(Registry))
	for _, d := range Registry {
		m[d.Name] = d
	}
	return m
}()

// Message returns the phase_start message
func (p Phase) Message() string {
	return definitions[p].Message
}

// Allowed reports whether the registry permits moving from one phase to another.
func Allowed(from, to Phase) bool {
	for _, n := range definitions[from].Next {
		if n == to {
			return true
		}
	}
	return false
}
