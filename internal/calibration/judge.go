package calibration

import (
	"context"
	"fmt"

	"github.com/jonathan/fit-agent/internal/llm"
	"github.com/jonathan/fit-agent/internal/prompts"
	"github.com/jonathan/fit-agent/internal/schemas"
)

// Judge proposes a score adjustment and tier
type Judge interface {
	Judge(ctx context.Context, ev Evidence) (*Judgment, error)
}

// LLMJudge asks the standard-tier model for a judgment
type LLMJudge struct {
	client llm.Client
}

// NewLLMJudge creates a judge on client
func NewLLMJudge(client llm.Client) *LLMJudge {
	return &LLMJudge{client: client}
}

// Judge implements Judge
func (j *LLMJudge) Judge(ctx context.Context, ev Evidence) (*Judgment, error) {
	summary := fmt.Sprintf(
		"%d usable sources (%d degraded), source quality %s, %d requirements, %d matched skills, %d gaps, %d technologies, %d culture signals",
		ev.Sources, ev.DegradedSources, ev.Quality, ev.Requirements, ev.MatchedSkills, ev.Gaps, ev.TechStack, ev.CultureSignals,
	)
	prompt := prompts.Format(prompts.MustGet(prompts.Pipeline, prompts.KeyCalibrate), map[string]string{
		"RawScore": fmt.Sprintf("%.0f", ev.RawScore),
		"Evidence": summary,
	})

	raw, err := j.client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, fmt.Errorf("calibration judge: %w", err)
	}

	var out Judgment
	if err := schemas.Decode(schemas.Calibration, raw, &out); err != nil {
		return nil, fmt.Errorf("calibration judge: %w", err)
	}
	return &out, nil
}

// Calibrator combines a Judge with a Policy
type Calibrator struct {
	policy Policy
	judge  Judge
}

// New creates a Calibrator
func New(policy Policy, judge Judge) *Calibrator {
	return &Calibrator{policy: policy, judge: judge}
}

// Calibrate asks the judge and applies the policy. With no usable sources
// the judge is skipped.
func (c *Calibrator) Calibrate(ctx context.Context, ev Evidence) (Result, error) {
	if ev.Sources == 0 || c.judge == nil {
		return c.policy.Calibrate(ev, nil), nil
	}

	j, err := c.judge.Judge(ctx, ev)
	if err != nil {
		return Result{}, err
	}
	return c.policy.Calibrate(ev, j), nil
}
