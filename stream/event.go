package stream

import "github.com/meepleai/gateway/answercache"

// EventType identifies one variant of the stream event union. The value
// doubles as the SSE event name on the wire.
type EventType string

const (
	// EventState signals that generation has started.
	EventState EventType = "state"

	// EventCitations carries the full citation list, always before any
	// answer content.
	EventCitations EventType = "citations"

	// EventToken carries one incremental fragment of the answer.
	EventToken EventType = "token"

	// EventComplete terminates a successful stream.
	EventComplete EventType = "complete"

	// EventError terminates a failed stream. Mutually exclusive with
	// EventComplete.
	EventError EventType = "error"
)

// Error codes carried by EventError payloads.
const (
	// CodeGenerationTimeout is reported when the engine call exceeds its
	// deadline. Distinct from client cancellation, which emits nothing.
	CodeGenerationTimeout = "generation_timeout"

	// CodeGenerationFailed is reported for any other engine failure.
	CodeGenerationFailed = "generation_failed"
)

// StatePayload is the body of an EventState event.
type StatePayload struct {
	Status string `json:"status"`
}

// CitationsPayload is the body of an EventCitations event.
type CitationsPayload struct {
	Citations []answercache.Citation `json:"citations"`
}

// TokenPayload is the body of an EventToken event. Index counts tokens
// from zero within the stream.
type TokenPayload struct {
	Text  string `json:"text"`
	Index int    `json:"index"`
}

// CompletePayload is the body of an EventComplete event. Cached reports
// whether the answer was replayed from the cache rather than generated.
type CompletePayload struct {
	Answer    string                 `json:"answer"`
	Citations []answercache.Citation `json:"citations"`
	Cached    bool                   `json:"cached"`
}

// ErrorPayload is the body of an EventError event.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Event is one frame of a stream. Exactly one payload field is non-nil,
// matching Type. Produced only by the Controller and consumed exactly
// once per stream by the transport.
type Event struct {
	Type EventType

	State     *StatePayload
	Citations *CitationsPayload
	Token     *TokenPayload
	Complete  *CompletePayload
	Error     *ErrorPayload
}

// Payload returns the populated variant body for wire encoding.
func (e Event) Payload() any {
	switch e.Type {
	case EventState:
		return e.State
	case EventCitations:
		return e.Citations
	case EventToken:
		return e.Token
	case EventComplete:
		return e.Complete
	case EventError:
		return e.Error
	}
	return nil
}

func stateEvent(status string) Event {
	return Event{Type: EventState, State: &StatePayload{Status: status}}
}

func citationsEvent(citations []answercache.Citation) Event {
	return Event{Type: EventCitations, Citations: &CitationsPayload{Citations: citations}}
}

func tokenEvent(text string, index int) Event {
	return Event{Type: EventToken, Token: &TokenPayload{Text: text, Index: index}}
}

func completeEvent(answer string, citations []answercache.Citation, cached bool) Event {
	return Event{Type: EventComplete, Complete: &CompletePayload{
		Answer:    answer,
		Citations: citations,
		Cached:    cached,
	}}
}

func errorEvent(code, message string) Event {
	return Event{Type: EventError, Error: &ErrorPayload{Code: code, Message: message}}
}
