package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/fit-agent/internal/calibration"
	"github.com/jonathan/fit-agent/internal/events"
	"github.com/jonathan/fit-agent/internal/fetch"
	"github.com/jonathan/fit-agent/internal/llm"
	"github.com/jonathan/fit-agent/internal/logger"
	"github.com/jonathan/fit-agent/internal/query"
	"github.com/jonathan/fit-agent/internal/scoring"
	"github.com/jonathan/fit-agent/internal/search"
	"github.com/jonathan/fit-agent/internal/types"
)

// Dependencies are the collaborators shared by every run. LLM and Profile
// are required; a nil Search or Fetcher degrades the affected phases.
type Dependencies struct {
	LLM     llm.Client
	Search  search.Provider
	Fetcher fetch.Fetcher
	Profile *types.CandidateProfile

	// Optional overrides, built from LLM when nil.
	Scorer     *scoring.Scorer
	Calibrator *calibration.Calibrator

	Logger *zap.Logger
}

// Options tune a run
type Options struct {
	RequestTimeout    time.Duration
	Policy            Policy
	ResultsPerQuery   int
	ScorerConcurrency int
	EnrichLimit       int
	EnrichConcurrency int
	Calibration       calibration.Policy
}

// DefaultOptions returns the stock settings
func DefaultOptions() Options {
	return Options{
		RequestTimeout:    3 * time.Minute,
		Policy:            DefaultPolicy(),
		ResultsPerQuery:   5,
		ScorerConcurrency: scoring.DefaultConcurrency,
		EnrichLimit:       5,
		EnrichConcurrency: 3,
		Calibration:       calibration.DefaultPolicy(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = d.RequestTimeout
	}
	if o.Policy == (Policy{}) {
		o.Policy = d.Policy
	}
	if o.Policy.Precedence == "" {
		o.Policy.Precedence = d.Policy.Precedence
	}
	if o.Policy.MinOverrideSkills <= 0 {
		o.Policy.MinOverrideSkills = d.Policy.MinOverrideSkills
	}
	if o.Policy.MaxRetries < 0 {
		o.Policy.MaxRetries = 0
	}
	if o.ResultsPerQuery <= 0 {
		o.ResultsPerQuery = d.ResultsPerQuery
	}
	if o.ScorerConcurrency <= 0 {
		o.ScorerConcurrency = d.ScorerConcurrency
	}
	if o.EnrichLimit < 0 {
		o.EnrichLimit = 0
	}
	if o.EnrichConcurrency <= 0 {
		o.EnrichConcurrency = d.EnrichConcurrency
	}
	if o.Calibration == (calibration.Policy{}) {
		o.Calibration = d.Calibration
	}
	return o
}

// Orchestrator runs assessments. It holds no per-request state and is safe
// for concurrent use.
type Orchestrator struct {
	deps       Dependencies
	opts       Options
	expander   *query.Expander
	scorer     *scoring.Scorer
	calibrator *calibration.Calibrator
	logger     *zap.Logger
	now        func() time.Time
}

// New validates deps and builds an Orchestrator
func New(deps Dependencies, opts Options) (*Orchestrator, error) {
	if deps.LLM == nil {
		return nil, errors.New("pipeline: LLM client is required")
	}
	if deps.Profile == nil {
		return nil, errors.New("pipeline: candidate profile is required")
	}
	opts = opts.withDefaults()
	log := logger.OrNop(deps.Logger)

	scorer := deps.Scorer
	if scorer == nil {
		scorer = scoring.NewScorer(scoring.NewLLMJudge(deps.LLM), opts.ScorerConcurrency, log)
	}
	calibrator := deps.Calibrator
	if calibrator == nil {
		calibrator = calibration.New(opts.Calibration, calibration.NewLLMJudge(deps.LLM))
	}

	return &Orchestrator{
		deps:       deps,
		opts:       opts,
		expander:   query.NewExpander(),
		scorer:     scorer,
		calibrator: calibrator,
		logger:     log,
		now:        time.Now,
	}, nil
}

// Options returns the effective options
func (o *Orchestrator) Options() Options {
	return o.opts
}

// Run executes one assessment, pushing every event onto ch. The request
// must already be validated. Run returns the final state and, for aborted
// runs, a *FatalError. The caller owns ch and closes it afterwards.
func (o *Orchestrator) Run(ctx context.Context, req types.AssessRequest, ch *events.Channel) (*State, error) {
	requestID := uuid.NewString()
	st := newState(requestID, req)

	ctx, cancel := context.WithTimeout(ctx, o.opts.RequestTimeout)
	defer cancel()
	go func() {
		select {
		case <-ch.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	r := &run{
		o:     o,
		st:    st,
		ch:    ch,
		log:   logger.WithRequest(o.logger, requestID),
		start: o.now(),
	}
	r.log.Info("assessment started",
		zap.String("mode", string(st.Mode)),
		zap.String("query", logger.TruncateForLog(st.Query, 120)),
	)
	return st, r.execute(ctx)
}

// run is the per-request execution context
type run struct {
	o     *Orchestrator
	st    *State
	ch    *events.Channel
	log   *zap.Logger
	start time.Time
	step  int
}

type phaseResult struct {
	signal  Signal
	summary string
	output  any
}

func (r *run) execute(ctx context.Context) error {
	for r.st.Phase != PhaseDone {
		if err := r.interrupted(ctx); err != nil {
			return r.abort(err)
		}

		phase := r.st.Phase
		began := r.o.now()
		r.emit(events.KindPhaseStart, events.PhaseStart{Phase: string(phase), Message: phase.Message()})

		res, err := r.runPhase(ctx, phase)
		if ierr := r.interrupted(ctx); ierr != nil {
			return r.abort(ierr)
		}
		if err != nil {
			return r.fail(phase, err)
		}

		next := Transition(phase, res.signal, r.o.opts.Policy)
		if !Allowed(phase, next) {
			return r.fail(phase, fmt.Errorf("transition %s -> %s is not allowed", phase, next))
		}
		r.route(phase, next, res.signal)

		r.emit(events.KindPhaseComplete, events.PhaseComplete{
			Phase:   string(phase),
			Summary: res.summary,
			Output:  res.output,
		})
		r.log.Info("phase complete",
			zap.String(logger.FieldPhase, string(phase)),
			zap.String("next", string(next)),
			zap.Int("iteration", r.st.Iteration),
			zap.Duration("elapsed", r.o.now().Sub(began)),
		)
		r.st.Phase = next
	}
	return r.complete()
}

func (r *run) runPhase(ctx context.Context, phase Phase) (phaseResult, error) {
	switch phase {
	case PhaseConnecting:
		return r.connecting(ctx)
	case PhaseDeepResearch:
		return r.deepResearch(ctx)
	case PhaseResearchReranker:
		return r.researchReranker(ctx)
	case PhaseContentEnrich:
		return r.contentEnrich(ctx)
	case PhaseSkepticalComparison:
		return r.skepticalComparison(ctx)
	case PhaseSkillsMatching:
		return r.skillsMatching(ctx)
	case PhaseConfidenceReranker:
		return r.confidenceReranker(ctx)
	case PhaseGenerateResults:
		return r.generateResults(ctx)
	default:
		return phaseResult{}, fmt.Errorf("unknown phase %q", phase)
	}
}

// route applies the side effects of a research_reranker decision.
func (r *run) route(from, next Phase, sig Signal) {
	if from != PhaseResearchReranker {
		return
	}
	st := r.st
	garbageOrSparse := sig.Quality == scoring.QualityGarbage || sig.Quality == scoring.QualitySparse

	switch {
	case next == PhaseDeepResearch:
		st.Iteration++
		r.thought(events.ThoughtReasoning, fmt.Sprintf(
			"Evidence is %s; broadening the search (retry %d of %d)",
			sig.Quality, st.Iteration, r.o.opts.Policy.MaxRetries,
		))
	case next == PhaseGenerateResults && sig.Quality == scoring.QualityGarbage:
		st.warn("Research sources were mostly irrelevant; the detailed analysis was skipped")
		r.thought(events.ThoughtReasoning, "Evidence is unusable; skipping straight to results")
	case next == PhaseGenerateResults:
		st.warn(fmt.Sprintf("Research evidence stayed sparse after %d search attempts; the assessment has low confidence", st.Iteration+1))
		r.thought(events.ThoughtReasoning, "Retries exhausted; skipping straight to results")
	case sig.Override && garbageOrSparse:
		st.warn(fmt.Sprintf("Web evidence was %s; the assessment relies mostly on the job description", sig.Quality))
		r.thought(events.ThoughtReasoning, fmt.Sprintf(
			"The job description lists %d skills; continuing despite %s evidence",
			len(st.Classification.Skills), sig.Quality,
		))
	}
}

func (r *run) complete() error {
	st := r.st
	if !st.Classification.InScope && st.Assessment == nil {
		st.Assessment = &types.Assessment{
			Subject:        st.Classification.Subject(),
			QueryType:      string(types.QueryIrrelevant),
			ConfidenceTier: string(calibration.TierInsufficientData),
			Summary:        st.Classification.Reason,
		}
	}

	elapsed := r.o.now().Sub(r.start)
	r.emit(events.KindComplete, events.Complete{
		RequestID:  st.RequestID,
		DurationMS: elapsed.Milliseconds(),
		Status:     st.Status(),
		Warnings:   append([]string(nil), st.Warnings...),
		Assessment: st.Assessment,
	})
	r.log.Info("assessment complete",
		zap.String("status", st.Status()),
		zap.Strings("degraded", st.Degraded),
		zap.Duration("elapsed", elapsed),
	)
	return nil
}

// fail ends the run after a dependency-fatal or internal error.
func (r *run) fail(phase Phase, err error) error {
	var fe *FatalError
	if !errors.As(err, &fe) {
		fe = &FatalError{Phase: phase, Code: CodeInternal, Err: err}
	}
	r.st.Aborted = true
	r.st.Phase = PhaseDone

	r.emit(events.KindError, events.Error{
		Code:    fe.Code,
		Message: fe.Err.Error(),
		Phase:   string(fe.Phase),
	})
	r.log.Error("assessment failed",
		zap.String(logger.FieldPhase, string(fe.Phase)),
		zap.String("code", fe.Code),
		zap.Error(fe.Err),
	)
	return fe
}

// abort ends the run after a timeout or cancellation. The error event is
// best effort: a cancelled channel accepts nothing.
func (r *run) abort(cause error) error {
	phase := r.st.Phase
	code := abortCode(cause)
	r.st.Aborted = true
	r.st.Phase = PhaseDone

	msg := "request cancelled"
	if code == CodeTimeout {
		msg = fmt.Sprintf("request timed out after %s", r.o.opts.RequestTimeout)
	}
	r.emit(events.KindError, events.Error{Code: code, Message: msg, Phase: string(phase)})
	r.log.Warn("assessment aborted",
		zap.String(logger.FieldPhase, string(phase)),
		zap.String("code", code),
	)
	return &FatalError{Phase: phase, Code: code, Err: cause}
}

// interrupted reports a timeout, a cancelled parent context or a departed subscriber.
func (r *run) interrupted(ctx context.Context) error {
	if r.ch.Cancelled() {
		return context.Canceled
	}
	return ctx.Err()
}

func (r *run) push(kind events.Kind, payload any) error {
	err := r.ch.Push(kind, payload)
	if err != nil && !errors.Is(err, events.ErrCancelled) {
		r.log.Debug("event dropped", zap.String("kind", string(kind)), zap.Error(err))
	}
	return err
}

func (r *run) emit(kind events.Kind, payload any) {
	_ = r.push(kind, payload)
}

func (r *run) thought(kind events.ThoughtKind, content string) {
	r.step++
	r.emit(events.KindThought, events.Thought{Step: r.step, Kind: kind, Content: content})
}
