package pipeline

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/fit-agent/internal/calibration"
	"github.com/jonathan/fit-agent/internal/events"
	"github.com/jonathan/fit-agent/internal/fetch"
	"github.com/jonathan/fit-agent/internal/llm"
	"github.com/jonathan/fit-agent/internal/parsing"
	"github.com/jonathan/fit-agent/internal/profile"
	"github.com/jonathan/fit-agent/internal/prompts"
	"github.com/jonathan/fit-agent/internal/query"
	"github.com/jonathan/fit-agent/internal/schemas"
	"github.com/jonathan/fit-agent/internal/scoring"
	"github.com/jonathan/fit-agent/internal/search"
	"github.com/jonathan/fit-agent/internal/types"
	"github.com/jonathan/fit-agent/internal/validation"
)

// Content limits for prompts
const (
	maxEnrichedChars = 8000
	maxExcerptChars  = 1500
	maxDigestSources = 8
	topSourcesShown  = 5
)

// ResearchOutput is the phase_complete output of deep_research
type ResearchOutput struct {
	Attempt    int                 `json:"attempt"`
	Queries    []query.SearchQuery `json:"queries"`
	NewSources int                 `json:"new_sources"`
	Failed     []string            `json:"failed,omitempty"`
}

// RerankOutput is the phase_complete output of research_reranker
type RerankOutput struct {
	Quality  scoring.QualityTier      `json:"quality"`
	Relevant int                      `json:"relevant"`
	Total    int                      `json:"total"`
	Top      []*scoring.DocumentScore `json:"top"`
}

// EnrichOutput is the phase_complete output of content_enrich
type EnrichOutput struct {
	Read     []string                `json:"read"`
	Failed   map[string]string       `json:"failed,omitempty"`
	Research types.ResearchArtifacts `json:"research"`
}

func (r *run) connecting(ctx context.Context) (phaseResult, error) {
	st := r.st
	r.thought(events.ThoughtToolCall, "Classifying the query")

	prompt := prompts.Format(prompts.MustGet(prompts.Pipeline, prompts.KeyClassify), map[string]string{
		"Mode":  string(st.Mode),
		"Query": validation.Quote("query", st.Query),
	})
	raw, err := r.o.deps.LLM.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		return phaseResult{}, llmFatal(PhaseConnecting, err)
	}
	var c types.Classification
	if err := schemas.Decode(schemas.Classification, raw, &c); err != nil {
		return phaseResult{}, llmFatal(PhaseConnecting, err)
	}
	st.Classification = normalizeClassification(c, st.Mode)
	c = st.Classification

	if !c.InScope {
		r.thought(events.ThoughtObservation, "Query is out of scope: "+c.Reason)
		return phaseResult{
			signal:  Signal{InScope: false},
			summary: "Out of scope: " + c.Reason,
			output:  c,
		}, nil
	}

	r.thought(events.ThoughtObservation, fmt.Sprintf("%s query about %s with %d skills", c.Type, c.Subject(), len(c.Skills)))
	return phaseResult{
		signal:  Signal{InScope: true},
		summary: fmt.Sprintf("Classified as %s: %s", c.Type, describe(c)),
		output:  c,
	}, nil
}

// normalizeClassification applies the request mode and cleans entities.
func normalizeClassification(c types.Classification, mode types.Mode) types.Classification {
	c.Company = strings.TrimSpace(c.Company)
	c.JobTitle = strings.TrimSpace(c.JobTitle)
	c.Skills = parsing.NormalizeSkills(c.Skills)

	if c.Type == types.QueryIrrelevant {
		c.InScope = false
	}
	if !c.InScope {
		c.Type = types.QueryIrrelevant
		if c.Reason == "" {
			c.Reason = "the query does not describe an employer or a job"
		}
		return c
	}

	switch {
	case mode == types.ModeJobDescription:
		c.Type = types.QueryJobDescription
	case mode == types.ModeCompany && c.Company != "":
		c.Type = types.QueryCompany
	}

	if c.Subject() == "" && len(c.Skills) == 0 {
		c.InScope = false
		c.Type = types.QueryIrrelevant
		c.Reason = "no employer, role or skills could be identified"
	}
	return c
}

func describe(c types.Classification) string {
	if s := c.Subject(); s != "" {
		return s
	}
	return strings.Join(c.Skills, ", ")
}

func (r *run) deepResearch(ctx context.Context) (phaseResult, error) {
	st := r.st
	queries := r.o.expander.Expand(st.Classification, st.Iteration)
	out := ResearchOutput{Attempt: st.Iteration + 1, Queries: queries}

	if len(queries) == 0 {
		return phaseResult{summary: "Nothing to search for", output: out}, nil
	}
	if r.o.deps.Search == nil {
		st.degrade(FlagSearchUnavailable)
		st.warn("Web search is not configured; the assessment uses the query alone")
		return phaseResult{summary: "Web search is not configured", output: out}, nil
	}

	texts := make([]string, len(queries))
	for i, q := range queries {
		texts[i] = q.Text
		r.thought(events.ThoughtToolCall, fmt.Sprintf("Searching %q for %s", q.Text, q.Purpose))
	}

	batch, err := search.Run(ctx, r.o.deps.Search, texts, r.o.opts.ResultsPerQuery)
	if err != nil {
		return phaseResult{}, err
	}
	if batch.Unavailable {
		st.degrade(FlagSearchUnavailable)
		st.warn("Web search was unavailable; evidence may be incomplete")
	}
	for _, f := range batch.Failed {
		r.thought(events.ThoughtObservation, "Search failed: "+f)
	}
	out.Failed = batch.Failed

	for _, res := range batch.Results {
		if st.seen[res.URL] {
			continue
		}
		st.seen[res.URL] = true
		st.Candidates = append(st.Candidates, scoring.Document{
			ID:      fmt.Sprintf("src-%d", len(st.Candidates)+1),
			URL:     res.URL,
			Title:   res.Title,
			Snippet: res.Snippet,
		})
		out.NewSources++
	}
	r.thought(events.ThoughtObservation, fmt.Sprintf("Found %d new sources", out.NewSources))

	return phaseResult{
		summary: fmt.Sprintf("Ran %d searches (attempt %d) and found %d new sources", len(queries), out.Attempt, out.NewSources),
		output:  out,
	}, nil
}

func (r *run) researchReranker(ctx context.Context) (phaseResult, error) {
	st := r.st
	c := st.Classification

	var fresh []scoring.Document
	for _, d := range st.Candidates {
		if !st.scored[d.URL] {
			st.scored[d.URL] = true
			fresh = append(fresh, d)
		}
	}

	criteria := scoring.Criteria{
		Subject:   c.Subject(),
		QueryType: string(c.Type),
		Skills:    c.Skills,
	}
	if domain := query.GuessDomain(c.Company); domain != "" {
		criteria.CompanyDomains = []string{domain}
	}

	if len(fresh) > 0 {
		r.thought(events.ThoughtToolCall, fmt.Sprintf("Scoring %d sources", len(fresh)))
		scores := r.o.scorer.Score(ctx, fresh, criteria)
		if err := ctx.Err(); err != nil {
			return phaseResult{}, err
		}
		st.Sources = scoring.Merge(st.Sources, scores)
	}
	st.Quality = scoring.AssessQuality(st.Sources)
	if scoring.CountUsable(st.Sources) < len(st.Sources) {
		st.degrade(FlagDegradedScores)
	}

	relevant := len(st.RelevantSources())
	r.thought(events.ThoughtObservation, fmt.Sprintf("%d of %d sources are relevant; evidence quality is %s", relevant, len(st.Sources), st.Quality))

	top := st.Sources
	if len(top) > topSourcesShown {
		top = top[:topSourcesShown]
	}
	return phaseResult{
		signal: Signal{
			InScope:   true,
			Quality:   st.Quality,
			Override:  c.IsJobDescriptionWithSkills(r.o.opts.Policy.MinOverrideSkills),
			Iteration: st.Iteration,
		},
		summary: fmt.Sprintf("Scored %d sources: %d relevant, quality %s", len(st.Sources), relevant, st.Quality),
		output: RerankOutput{
			Quality:  st.Quality,
			Relevant: relevant,
			Total:    len(st.Sources),
			Top:      append([]*scoring.DocumentScore(nil), top...),
		},
	}, nil
}

// enrichTargets picks the best non-degraded sources to read in full.
func (r *run) enrichTargets() []*scoring.DocumentScore {
	var out []*scoring.DocumentScore
	for _, d := range r.st.Sources {
		if len(out) >= r.o.opts.EnrichLimit {
			break
		}
		if !d.Degraded {
			out = append(out, d)
		}
	}
	return out
}

func (r *run) contentEnrich(ctx context.Context) (phaseResult, error) {
	st := r.st
	targets := r.enrichTargets()

	if r.o.deps.Fetcher != nil && len(targets) > 0 {
		r.thought(events.ThoughtToolCall, fmt.Sprintf("Reading %d sources", len(targets)))
		pages := make([]*fetch.Page, len(targets))
		errs := make([]error, len(targets))

		var g errgroup.Group
		g.SetLimit(r.o.opts.EnrichConcurrency)
		for i, t := range targets {
			g.Go(func() error {
				pages[i], errs[i] = r.o.deps.Fetcher.Fetch(ctx, t.URL)
				return nil
			})
		}
		_ = g.Wait() // failures are per source

		if err := ctx.Err(); err != nil {
			return phaseResult{}, err
		}
		for i, t := range targets {
			if errs[i] != nil {
				st.EnrichFailures[t.URL] = errs[i].Error()
				st.degrade(FlagFetchFailedPrefix + t.URL)
				r.thought(events.ThoughtObservation, fmt.Sprintf("Could not read %s: %v", t.URL, errs[i]))
				continue
			}
			st.Enriched[t.URL] = truncate(pages[i].Text, maxEnrichedChars)
			if pages[i].Stale {
				st.degrade(FlagStaleContent)
				r.thought(events.ThoughtObservation, "Using a cached copy of "+t.URL)
			}
		}
	}

	r.thought(events.ThoughtToolCall, "Synthesizing employer research")
	c := st.Classification
	prompt := prompts.Format(prompts.MustGet(prompts.Pipeline, prompts.KeyResearch), map[string]string{
		"Subject": describe(c),
		"Skills":  listOrNone(c.Skills),
		"Sources": r.sourceDigest(),
	})
	raw, err := r.o.deps.LLM.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return phaseResult{}, llmFatal(PhaseContentEnrich, err)
	}
	var art types.ResearchArtifacts
	if err := schemas.Decode(schemas.Research, raw, &art); err != nil {
		return phaseResult{}, llmFatal(PhaseContentEnrich, err)
	}

	art.TechStack = parsing.NormalizeSkills(art.TechStack)
	if c.Type == types.QueryJobDescription {
		for _, s := range c.Skills {
			art.Requirements = append(art.Requirements, types.Requirement{Skill: s, Evidence: "listed in the job description"})
		}
	}
	art.Requirements = parsing.NormalizeRequirements(art.Requirements)
	st.Research = art

	failed := make(map[string]string, len(st.EnrichFailures))
	for u, e := range st.EnrichFailures {
		failed[u] = e
	}
	return phaseResult{
		summary: fmt.Sprintf("Read %d of %d sources; found %d requirements and %d technologies",
			len(st.Enriched), len(targets), len(art.Requirements), len(art.TechStack)),
		output: EnrichOutput{Read: st.enrichedURLs(), Failed: failed, Research: art},
	}, nil
}

// sourceDigest renders the evidence for research synthesis. Full text is
// used where a page was read, the search snippet otherwise.
func (r *run) sourceDigest() string {
	st := r.st
	var blocks []string
	if st.Classification.Type == types.QueryJobDescription {
		blocks = append(blocks, validation.SanitizeExternal(st.Query, "job description"))
	}

	sources := st.RelevantSources()
	if len(sources) == 0 {
		sources = r.enrichTargets()
	}
	for i, d := range sources {
		if i >= maxDigestSources {
			break
		}
		text, ok := st.Enriched[d.URL]
		if !ok {
			text = d.Snippet
		}
		blocks = append(blocks, validation.SanitizeExternal(d.Title+"\n"+text, "source "+d.URL))
	}

	if len(blocks) == 0 {
		return "No sources were found."
	}
	return strings.Join(blocks, "\n\n")
}

func (r *run) skepticalComparison(ctx context.Context) (phaseResult, error) {
	st := r.st
	r.thought(events.ThoughtToolCall, "Comparing the candidate profile with the research")

	prompt := prompts.Format(prompts.MustGet(prompts.Pipeline, prompts.KeyCompare), map[string]string{
		"Profile":  profile.Summary(r.o.deps.Profile),
		"Research": renderResearch(st.Research),
		"Excerpts": r.excerpts(),
	})
	raw, err := r.o.deps.LLM.GenerateJSON(ctx, prompt, llm.TierAdvanced)
	if err != nil {
		return phaseResult{}, llmFatal(PhaseSkepticalComparison, err)
	}
	var analysis types.GapAnalysis
	if err := schemas.Decode(schemas.Comparison, raw, &analysis); err != nil {
		return phaseResult{}, llmFatal(PhaseSkepticalComparison, err)
	}
	st.Analysis = &analysis

	for _, f := range analysis.RedFlags {
		r.thought(events.ThoughtObservation, "Red flag: "+f)
	}
	return phaseResult{
		summary: fmt.Sprintf("%d strengths, %d gaps, %d red flags", len(analysis.Strengths), len(analysis.Gaps), len(analysis.RedFlags)),
		output:  analysis,
	}, nil
}

func (r *run) excerpts() string {
	st := r.st
	var blocks []string
	for _, d := range st.Sources {
		text, ok := st.Enriched[d.URL]
		if !ok {
			continue
		}
		blocks = append(blocks, validation.SanitizeExternal(truncate(text, maxExcerptChars), "excerpt "+d.URL))
	}
	if len(blocks) == 0 {
		return "No excerpts available."
	}
	return strings.Join(blocks, "\n\n")
}

func renderResearch(a types.ResearchArtifacts) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summary: %s\n", orNone(a.EmployerSummary))
	fmt.Fprintf(&b, "Tech stack: %s\n", listOrNone(a.TechStack))
	fmt.Fprintf(&b, "Culture: %s\n", listOrNone(a.CultureSignals))
	b.WriteString("Requirements:")
	if len(a.Requirements) == 0 {
		b.WriteString(" none identified")
	}
	for _, req := range a.Requirements {
		b.WriteString("\n- " + req.Skill)
		if req.Level != "" {
			b.WriteString(" (" + req.Level + ")")
		}
	}
	return b.String()
}

func (r *run) skillsMatching(_ context.Context) (phaseResult, error) {
	st := r.st
	m := profile.Match(r.o.deps.Profile, st.Research.Requirements, st.Analysis)
	st.Match = m
	st.RawScore = m.RawScore

	r.thought(events.ThoughtReasoning, fmt.Sprintf(
		"Coverage %.0f%%, strength ratio %.2f, raw score %.1f",
		m.Coverage*100, m.StrengthRatio, m.RawScore,
	))
	return phaseResult{
		summary: fmt.Sprintf("Matched %d of %d requirements; raw score %.1f",
			len(m.Matched), len(m.Matched)+len(m.Missing), m.RawScore),
		output: m,
	}, nil
}

func (r *run) confidenceReranker(ctx context.Context) (phaseResult, error) {
	st := r.st
	r.thought(events.ThoughtToolCall, "Auditing the raw score against the evidence")

	res, err := r.o.calibrator.Calibrate(ctx, st.Evidence())
	if err != nil {
		return phaseResult{}, llmFatal(PhaseConfidenceReranker, err)
	}
	st.Calibration = &res

	if len(res.Flags) > 0 {
		r.thought(events.ThoughtObservation, "Quality flags: "+strings.Join(calibration.FlagStrings(res.Flags), ", "))
	}
	return phaseResult{
		summary: fmt.Sprintf("Calibrated %.1f to %.1f (%s)", res.RawScore, res.CalibratedScore, res.Tier),
		output:  res,
	}, nil
}

func (r *run) generateResults(ctx context.Context) (phaseResult, error) {
	st := r.st

	cal := st.Calibration
	if cal == nil {
		// early exit: no judge, the evidence ceiling decides
		res := r.o.opts.Calibration.Calibrate(st.Evidence(), nil)
		cal = &res
	}
	a := st.buildAssessment(*cal)

	prompt := prompts.Format(prompts.MustGet(prompts.Pipeline, prompts.KeyResults), map[string]string{
		"Subject":   describe(st.Classification),
		"Score":     fmt.Sprintf("%.1f", a.CalibratedScore),
		"Tier":      a.ConfidenceTier,
		"Warnings":  listOrNone(st.Warnings),
		"Strengths": listOrNone(a.Strengths),
		"Gaps":      renderGaps(a.Gaps),
		"Summary":   orNone(st.Research.EmployerSummary),
	})

	var text strings.Builder
	err := r.o.deps.LLM.StreamContent(ctx, prompt, llm.TierStandard, func(chunk string) error {
		text.WriteString(chunk)
		return r.push(events.KindResponse, events.Response{Text: chunk})
	})
	if err != nil {
		return phaseResult{}, llmFatal(PhaseGenerateResults, err)
	}

	a.Summary = strings.TrimSpace(text.String())
	st.Summary = a.Summary
	st.Assessment = a
	return phaseResult{
		summary: fmt.Sprintf("Assessment ready: %.1f (%s)", a.CalibratedScore, a.ConfidenceTier),
		output:  a,
	}, nil
}

func renderGaps(gaps []types.Gap) string {
	if len(gaps) == 0 {
		return "none"
	}
	parts := make([]string, len(gaps))
	for i, g := range gaps {
		parts[i] = fmt.Sprintf("%s (%s)", g.Requirement, g.Severity)
	}
	return strings.Join(parts, "; ")
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "not available"
	}
	return s
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := s[:limit]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
