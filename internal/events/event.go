// Package events provides the per-request stream of pipeline progress events.
package events

import (
	"time"

	"github.com/jonathan/fit-agent/internal/types"
)

// Kind tags the payload carried by an Event
type Kind string

const (
	KindPhaseStart    Kind = "phase_start"
	KindPhaseComplete Kind = "phase_complete"
	KindThought       Kind = "thought"
	KindResponse      Kind = "response"
	KindComplete      Kind = "complete"
	KindError         Kind = "error"
)

// Terminal reports whether the kind ends a stream
func (k Kind) Terminal() bool {
	return k == KindComplete || k == KindError
}

// ThoughtKind classifies a thought event
type ThoughtKind string

const (
	ThoughtToolCall    ThoughtKind = "tool_call"
	ThoughtObservation ThoughtKind = "observation"
	ThoughtReasoning   ThoughtKind = "reasoning"
)

// Completion statuses
const (
	StatusSuccess    = "success"
	StatusDegraded   = "degraded"
	StatusIrrelevant = "irrelevant"
)

// Event is one immutable unit of progress. Seq is assigned by the Channel.
type Event struct {
	Seq     uint64    `json:"seq"`
	Kind    Kind      `json:"kind"`
	Time    time.Time `json:"time"`
	Payload any       `json:"payload"`
}

// PhaseStart is the payload of KindPhaseStart
type PhaseStart struct {
	Phase   string `json:"phase"`
	Message string `json:"message"`
}

// PhaseComplete is the payload of KindPhaseComplete
type PhaseComplete struct {
	Phase   string `json:"phase"`
	Summary string `json:"summary"`
	Output  any    `json:"output,omitempty"`
}

// Thought is the payload of KindThought
type Thought struct {
	Step    int         `json:"step"`
	Kind    ThoughtKind `json:"kind"`
	Content string      `json:"content"`
}

// Response is the payload of KindResponse
type Response struct {
	Text string `json:"text"`
}

// Complete is the payload of KindComplete
type Complete struct {
	RequestID  string            `json:"request_id"`
	DurationMS int64             `json:"duration_ms"`
	Status     string            `json:"status"`
	Warnings   []string          `json:"warnings,omitempty"`
	Assessment *types.Assessment `json:"assessment,omitempty"`
}

// Error is the payload of KindError
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Phase   string `json:"phase,omitempty"`
}
