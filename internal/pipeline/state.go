package pipeline

import (
	"sort"

	"github.com/jonathan/fit-agent/internal/calibration"
	"github.com/jonathan/fit-agent/internal/events"
	"github.com/jonathan/fit-agent/internal/scoring"
	"github.com/jonathan/fit-agent/internal/types"
)

// Degraded flags recorded on State
const (
	FlagSearchUnavailable = "search_unavailable"
	FlagFetchFailedPrefix = "fetch_failed:"
	FlagDegradedScores    = "degraded_scores"
	FlagStaleContent      = "stale_content"
)

// State is the mutable context of a single request. It is created by Run,
// owned by one goroutine and never shared.
type State struct {
	RequestID string
	Query     string
	Mode      types.Mode

	// connecting
	Classification types.Classification

	// deep_research
	Candidates []scoring.Document

	// research_reranker
	Sources []*scoring.DocumentScore
	Quality scoring.QualityTier

	// content_enrich
	Enriched       map[string]string
	EnrichFailures map[string]string
	Research       types.ResearchArtifacts

	// skeptical_comparison
	Analysis *types.GapAnalysis

	// skills_matching
	Match    types.SkillMatch
	RawScore float64

	// confidence_reranker
	Calibration *calibration.Result

	// generate_results
	Assessment *types.Assessment
	Summary    string

	Warnings []string
	Degraded []string

	// Control fields, written only by the orchestrator.
	Phase     Phase
	Iteration int
	Aborted   bool

	seen   map[string]bool // candidate URLs
	scored map[string]bool
}

func newState(requestID string, req types.AssessRequest) *State {
	return &State{
		RequestID:      requestID,
		Query:          req.Query,
		Mode:           req.EffectiveMode(),
		Enriched:       make(map[string]string),
		EnrichFailures: make(map[string]string),
		Phase:          PhaseConnecting,
		seen:           make(map[string]bool),
		scored:         make(map[string]bool),
	}
}

func (s *State) warn(msg string) {
	for _, w := range s.Warnings {
		if w == msg {
			return
		}
	}
	s.Warnings = append(s.Warnings, msg)
}

func (s *State) degrade(flag string) {
	for _, f := range s.Degraded {
		if f == flag {
			return
		}
	}
	s.Degraded = append(s.Degraded, flag)
}

// RelevantSources returns scored sources that count as evidence
func (s *State) RelevantSources() []*scoring.DocumentScore {
	var out []*scoring.DocumentScore
	for _, d := range s.Sources {
		if !d.Degraded && d.Final >= scoring.RelevantThreshold {
			out = append(out, d)
		}
	}
	return out
}

// Evidence summarizes what the assessment rests on. A pasted job
// description counts as one source of its own.
func (s *State) Evidence() calibration.Evidence {
	sources := len(s.RelevantSources())
	if s.Classification.Type == types.QueryJobDescription {
		sources++
	}
	degraded := len(s.Sources) - scoring.CountUsable(s.Sources)

	ev := calibration.Evidence{
		RawScore:        s.RawScore,
		Sources:         sources,
		DegradedSources: degraded,
		Requirements:    len(s.Research.Requirements),
		MatchedSkills:   len(s.Match.Matched),
		TechStack:       len(s.Research.TechStack),
		CultureSignals:  len(s.Research.CultureSignals),
		Quality:         s.Quality,
	}
	if s.Analysis != nil {
		ev.Gaps = len(s.Analysis.Gaps)
	}
	return ev
}

// Status is the completion status implied by the state
func (s *State) Status() string {
	if !s.Classification.InScope {
		return events.StatusIrrelevant
	}
	if len(s.Warnings) > 0 || len(s.Degraded) > 0 {
		return events.StatusDegraded
	}
	return events.StatusSuccess
}

func (s *State) buildAssessment(cal calibration.Result) *types.Assessment {
	a := &types.Assessment{
		Subject:         s.Classification.Subject(),
		QueryType:       string(s.Classification.Type),
		RawScore:        s.RawScore,
		CalibratedScore: cal.CalibratedScore,
		ConfidenceTier:  string(cal.Tier),
		Justification:   cal.Justification,
		QualityTier:     string(s.Quality),
		Flags:           calibration.FlagStrings(cal.Flags),
	}
	if s.Analysis != nil {
		a.Strengths = append([]string(nil), s.Analysis.Strengths...)
		a.Gaps = append([]types.Gap(nil), s.Analysis.Gaps...)
	}
	for _, d := range s.RelevantSources() {
		a.Sources = append(a.Sources, d.URL)
	}
	return a
}

// enrichedURLs returns enriched source URLs in a stable order
func (s *State) enrichedURLs() []string {
	urls := make([]string, 0, len(s.Enriched))
	for u := range s.Enriched {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}
