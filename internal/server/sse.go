package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Event names a pipeline stream event.
type Event string

// Stream events. A stream sends any number of EventState followed by
// exactly one of the other three.
const (
	EventState      Event = "state"
	EventComplete   Event = "complete"
	EventSuperseded Event = "superseded"
	EventError      Event = "error"
)

// Final reports whether e ends a stream.
func (e Event) Final() bool {
	return e == EventComplete || e == EventSuperseded || e == EventError
}

// ErrorEvent is the payload of an "error" event.
type ErrorEvent struct {
	RequestID string `json:"requestId"`
	Error     string `json:"error"`
}

// SSEWriter writes pipeline events as Server-Sent Events. Every event
// carries an increasing id so clients can tell missed events apart from
// coalesced ones. Nothing is written after a final event.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	seq     uint64
	closed  bool
}

// NewSSEWriter prepares w for streaming.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported by %T", w)
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	// Reverse proxies must not hold progress events back.
	h.Set("X-Accel-Buffering", "no")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends one event with data encoded as JSON.
func (s *SSEWriter) WriteEvent(event Event, data any) error {
	if s.closed {
		return fmt.Errorf("stream already ended, dropping %q event", event)
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %q event: %w", event, err)
	}

	s.seq++
	if _, err := fmt.Fprintf(s.w, "id: %d\nevent: %s\ndata: %s\n\n", s.seq, event, payload); err != nil {
		return err
	}
	s.flusher.Flush()

	if event.Final() {
		s.closed = true
	}
	return nil
}

// WriteError ends the stream with an error event.
func (s *SSEWriter) WriteError(requestID, message string) error {
	return s.WriteEvent(EventError, ErrorEvent{RequestID: requestID, Error: message})
}
