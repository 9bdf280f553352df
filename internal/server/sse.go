package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/jonathan/fit-agent/internal/events"
)

var errNoFlush = errors.New("response writer cannot stream")

// SSEWriter frames pipeline events as Server-Sent Events. It is not safe for
// concurrent use; one handler goroutine owns it.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	buf     strings.Builder
}

// NewSSEWriter commits a 200 with the event-stream headers. It fails, without
// writing anything, when w cannot flush.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errNoFlush
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	// nginx buffers proxied responses unless told otherwise
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends one event. The SSE id is the event sequence number.
func (s *SSEWriter) WriteEvent(ev events.Event) error {
	data, err := json.Marshal(ev.Payload)
	if err != nil {
		return err
	}
	s.buf.Reset()
	s.field("id", strconv.FormatUint(ev.Seq, 10))
	s.field("event", string(ev.Kind))
	s.data(string(data))
	return s.flush()
}

// WriteComment sends a comment frame, used as a keep-alive.
func (s *SSEWriter) WriteComment(text string) error {
	s.buf.Reset()
	for _, line := range strings.Split(text, "\n") {
		s.buf.WriteString(": ")
		s.buf.WriteString(line)
		s.buf.WriteByte('\n')
	}
	return s.flush()
}

func (s *SSEWriter) field(name, value string) {
	s.buf.WriteString(name)
	s.buf.WriteString(": ")
	s.buf.WriteString(value)
	s.buf.WriteByte('\n')
}

// data splits multi-line payloads into one data field per line.
func (s *SSEWriter) data(payload string) {
	for _, line := range strings.Split(payload, "\n") {
		s.field("data", line)
	}
}

func (s *SSEWriter) flush() error {
	s.buf.WriteByte('\n')
	if _, err := s.w.Write([]byte(s.buf.String())); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
