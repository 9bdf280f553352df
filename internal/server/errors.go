package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/fit-agent/internal/pipeline"
	"github.com/jonathan/fit-agent/internal/validation"
)

// ErrInvalidCredentials indicates an unknown client or a wrong secret
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid client ID or secret"
}

// ErrAuthDisabled is returned by token issuance when auth is off
type ErrAuthDisabled struct{}

func (e *ErrAuthDisabled) Error() string {
	return "authentication is disabled"
}

// ErrBadRequest indicates an unreadable request body
type ErrBadRequest struct {
	Message string
}

func (e *ErrBadRequest) Error() string {
	return e.Message
}

// ErrorResponse is the JSON body of every error reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Phase   string `json:"phase,omitempty"`
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var inv *validation.InvalidInputError
	var bad *ErrBadRequest
	var creds *ErrInvalidCredentials
	var disabled *ErrAuthDisabled
	var fatal *pipeline.FatalError

	switch {
	case errors.As(err, &inv), errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.As(err, &creds):
		return http.StatusUnauthorized
	case errors.As(err, &disabled):
		return http.StatusNotFound
	case errors.As(err, &fatal):
		return fatalStatus(fatal.Code)
	default:
		return http.StatusInternalServerError
	}
}

func fatalStatus(code string) int {
	switch code {
	case pipeline.CodeInvalidInput:
		return http.StatusBadRequest
	case pipeline.CodeLLMUnavailable:
		return http.StatusServiceUnavailable
	case pipeline.CodeLLMFailed, pipeline.CodeLLMInvalidOutput:
		return http.StatusBadGateway
	case pipeline.CodeTimeout:
		return http.StatusGatewayTimeout
	case pipeline.CodeCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// toErrorResponse builds the reply body for err.
func toErrorResponse(err error) ErrorResponse {
	var inv *validation.InvalidInputError
	var fatal *pipeline.FatalError

	switch {
	case errors.As(err, &inv):
		return ErrorResponse{Error: pipeline.CodeInvalidInput, Message: err.Error()}
	case errors.As(err, &fatal):
		return ErrorResponse{Error: fatal.Code, Message: fatal.Err.Error(), Phase: string(fatal.Phase)}
	}

	switch HTTPStatus(err) {
	case http.StatusBadRequest:
		return ErrorResponse{Error: "bad_request", Message: err.Error()}
	case http.StatusUnauthorized:
		return ErrorResponse{Error: "unauthorized", Message: err.Error()}
	case http.StatusNotFound:
		return ErrorResponse{Error: "not_found", Message: err.Error()}
	default:
		return ErrorResponse{Error: pipeline.CodeInternal, Message: "internal server error"}
	}
}
