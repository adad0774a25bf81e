package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/meepleai/gateway/answercache"
	"github.com/meepleai/gateway/auth"
	"github.com/meepleai/gateway/observe"
	"github.com/meepleai/gateway/ratelimit"
	"github.com/meepleai/gateway/stream"
)

// questionRequest is the streaming endpoint's body.
type questionRequest struct {
	Question string `json:"question"`
}

// handleStream serves one answer as a server-sent event stream.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	gameID := r.PathValue("gameID")

	if err := answercache.ValidateTarget(gameID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_game_id", "game identifier is malformed")
		return
	}

	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON with a question field")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "empty_question", "question must not be empty")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming")
		return
	}

	if err := s.bulkhead.Acquire(); err != nil {
		writeError(w, http.StatusServiceUnavailable, "at_capacity", "too many concurrent streams, try again shortly")
		return
	}
	defer s.bulkhead.Release()

	events, decision, err := s.controller.Stream(r.Context(), principal, gameID, req.Question)
	setRateHeaders(w, decision)
	if errors.Is(err, ratelimit.ErrRateLimitExceeded) {
		setRetryAfter(w, decision)
		writeError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "request rate limit exceeded")
		return
	}
	if err != nil {
		s.logger.Error(r.Context(), "stream start failed",
			observe.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "stream_failed", "could not start answer stream")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		if err := writeEvent(w, ev); err != nil {
			// Client went away; the controller sees the same context
			// cancellation and stops on its own.
			return
		}
		flusher.Flush()
	}
}

// writeEvent encodes one frame in SSE named-event form.
func writeEvent(w http.ResponseWriter, ev stream.Event) error {
	payload, err := json.Marshal(ev.Payload())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
	return err
}
