package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonathan/fit-agent/internal/breaker"
	"github.com/jonathan/fit-agent/internal/llm"
	"github.com/jonathan/fit-agent/internal/schemas"
)

// Error codes carried by error events
const (
	CodeInvalidInput     = "invalid_input"
	CodeLLMUnavailable   = "llm_unavailable"
	CodeLLMFailed        = "llm_failed"
	CodeLLMInvalidOutput = "llm_invalid_output"
	CodeTimeout          = "timeout"
	CodeCancelled        = "cancelled"
	CodeInternal         = "internal"
)

// FatalError aborts the current request
type FatalError struct {
	Phase Phase
	Code  string
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Phase, e.Code, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// llmFatal classifies an error from a language-model call made in phase.
func llmFatal(phase Phase, err error) *FatalError {
	code := CodeLLMFailed

	var ve *schemas.ValidationError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, breaker.ErrOpen):
		code = CodeLLMUnavailable
	case errors.Is(err, llm.ErrNoContent), errors.As(err, &ve), errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		code = CodeLLMInvalidOutput
	}
	return &FatalError{Phase: phase, Code: code, Err: err}
}

// abortCode maps a context error to its event code.
func abortCode(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	return CodeCancelled
}
