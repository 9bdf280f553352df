package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/jonathan/fit-agent/internal/breaker"
	"github.com/jonathan/fit-agent/internal/events"
	"github.com/jonathan/fit-agent/internal/pipeline"
	"github.com/jonathan/fit-agent/internal/types"
	"github.com/jonathan/fit-agent/internal/validation"
)

// maxBodyBytes caps an assessment request body
const maxBodyBytes = 64 << 10

// AssessResponse is the reply of POST /assess
type AssessResponse struct {
	RequestID  string            `json:"request_id"`
	Status     string            `json:"status"`
	Warnings   []string          `json:"warnings,omitempty"`
	Assessment *types.Assessment `json:"assessment,omitempty"`
	Events     []events.Event    `json:"events"`
}

// HealthResponse is the reply of GET /health
type HealthResponse struct {
	Status   string            `json:"status"`
	Breakers map[string]string `json:"breakers,omitempty"`
}

type runResult struct {
	state *pipeline.State
	err   error
}

// decodeAssessRequest reads and validates the request body.
func decodeAssessRequest(w http.ResponseWriter, r *http.Request) (types.AssessRequest, error) {
	var req types.AssessRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, &ErrBadRequest{Message: "invalid request body: " + err.Error()}
	}
	if err := validation.ValidateRequest(&req); err != nil {
		return req, err
	}
	return req, nil
}

// start runs the assessment in the background. Client disconnects reach
// the run through the channel, so the run context ignores request cancellation.
func (s *Server) start(r *http.Request, req types.AssessRequest) (*events.Channel, <-chan runResult) {
	ch := events.NewChannel()
	done := make(chan runResult, 1)
	ctx := context.WithoutCancel(r.Context())

	go func() {
		st, err := s.runner.Run(ctx, req, ch)
		ch.Close()
		done <- runResult{state: st, err: err}
	}()
	return ch, done
}

// handleAssessStream runs an assessment and streams its events via SSE
func (s *Server) handleAssessStream(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAssessRequest(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.writeError(w, err)
		return
	}

	ch, done := s.start(r, req)
	sent, gone := s.stream(r.Context(), ch, sse)
	if gone {
		ch.Cancel()
	}
	res := <-done

	fields := []zap.Field{zap.Int("events", sent), zap.Bool("client_gone", gone)}
	if res.state != nil {
		fields = append(fields, zap.String("request_id", res.state.RequestID), zap.String("status", res.state.Status()))
	}
	if res.err != nil {
		fields = append(fields, zap.Error(res.err))
	}
	s.logger.Info("assessment stream finished", fields...)
}

// stream forwards events until the stream ends. gone is set when the
// client disconnected or a write failed.
func (s *Server) stream(ctx context.Context, ch *events.Channel, sse *SSEWriter) (sent int, gone bool) {
	for {
		waitCtx, cancel := ctx, context.CancelFunc(func() {})
		if s.keepAlive > 0 {
			waitCtx, cancel = context.WithTimeout(ctx, s.keepAlive)
		}
		ev, err := ch.Next(waitCtx)
		cancel()

		switch {
		case errors.Is(err, io.EOF):
			return sent, false
		case ctx.Err() != nil:
			return sent, true
		case errors.Is(err, context.DeadlineExceeded):
			if werr := sse.WriteComment("keep-alive"); werr != nil {
				return sent, true
			}
			continue
		case err != nil:
			return sent, true
		}

		if err := sse.WriteEvent(ev); err != nil {
			s.logger.Debug("failed to write event", zap.Error(err))
			return sent, true
		}
		sent++
	}
}

// handleAssess runs an assessment and returns every event at once
func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAssessRequest(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	ch, done := s.start(r, req)
	var collected []events.Event
	if err := ch.Drain(r.Context(), func(ev events.Event) error {
		collected = append(collected, ev)
		return nil
	}); err != nil {
		ch.Cancel()
	}
	res := <-done

	if res.err != nil {
		s.writeError(w, res.err)
		return
	}
	st := res.state
	s.jsonResponse(w, http.StatusOK, AssessResponse{
		RequestID:  st.RequestID,
		Status:     st.Status(),
		Warnings:   st.Warnings,
		Assessment: st.Assessment,
		Events:     collected,
	})
}

// handleBreakers returns the state of every dependency breaker
func (s *Server) handleBreakers(w http.ResponseWriter, _ *http.Request) {
	snapshots := []breaker.Snapshot{}
	if s.breakers != nil {
		snapshots = s.breakers.Snapshots()
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"breakers": snapshots})
}

// handleHealth reports liveness. An open breaker degrades but never fails it.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if s.breakers != nil {
		resp.Breakers = make(map[string]string)
		for _, snap := range s.breakers.Snapshots() {
			resp.Breakers[snap.Name] = snap.State.String()
			if snap.State != breaker.Closed {
				resp.Status = "degraded"
			}
		}
	}
	s.jsonResponse(w, http.StatusOK, resp)
}
