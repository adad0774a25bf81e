package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/meepleai/gateway/answercache"
	"github.com/meepleai/gateway/auth"
	"github.com/meepleai/gateway/ratelimit"
)

// fakeEngine replays a canned generation. With block set it produces no
// chunks until the context is cancelled.
type fakeEngine struct {
	citations []answercache.Citation
	chunks    []Chunk
	err       error
	block     bool
	calls     int
}

func (f *fakeEngine) Generate(ctx context.Context, req Request) (*Generation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan Chunk)
	go func() {
		defer close(ch)
		if f.block {
			<-ctx.Done()
			return
		}
		for _, c := range f.chunks {
			select {
			case <-ctx.Done():
				return
			case ch <- c:
			}
		}
	}()
	return &Generation{Citations: f.citations, Chunks: ch}, nil
}

func newTestController(t *testing.T, engine Engine, timeout time.Duration) (*Controller, *answercache.Cache) {
	t.Helper()
	cache := answercache.New()
	ctrl, err := NewController(ControllerConfig{
		Limiter:           ratelimit.New(ratelimit.DefaultConfig()),
		Cache:             cache,
		Engine:            engine,
		GenerationTimeout: timeout,
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return ctrl, cache
}

func testPrincipal() *auth.Principal {
	return &auth.Principal{ID: "user:alice", UserID: "alice", Tier: auth.TierAuthenticated}
}

// collect drains the event channel until it closes.
func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var got []Event
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-deadline:
			t.Fatalf("stream did not terminate; events so far: %d", len(got))
		}
	}
}

func eventTypes(events []Event) []EventType {
	types := make([]EventType, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func sameTypes(got []Event, want ...EventType) bool {
	if len(got) != len(want) {
		return false
	}
	for i, ev := range got {
		if ev.Type != want[i] {
			return false
		}
	}
	return true
}

func TestController_FullPathOrdering(t *testing.T) {
	engine := &fakeEngine{
		citations: []answercache.Citation{{Title: "Rulebook", Page: 12}},
		chunks:    []Chunk{{Text: "A pawn "}, {Text: "moves "}, {Text: "forward."}},
	}
	ctrl, _ := newTestController(t, engine, time.Second)

	events, decision, err := ctrl.Stream(context.Background(), testPrincipal(), "chess", "How do pawns move?")
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected admission")
	}

	got := collect(t, events)
	if !sameTypes(got, EventState, EventCitations, EventToken, EventToken, EventToken, EventComplete) {
		t.Fatalf("unexpected sequence: %v", eventTypes(got))
	}

	if got[1].Citations == nil || len(got[1].Citations.Citations) != 1 {
		t.Fatalf("citations payload = %+v", got[1].Citations)
	}
	for i, ev := range got[2:5] {
		if ev.Token.Index != i {
			t.Errorf("token %d has index %d", i, ev.Token.Index)
		}
	}
	complete := got[len(got)-1].Complete
	if complete.Answer != "A pawn moves forward." {
		t.Errorf("assembled answer = %q", complete.Answer)
	}
	if complete.Cached {
		t.Error("live generation reported as cached")
	}
}

func TestController_CompletionStoresAnswer(t *testing.T) {
	engine := &fakeEngine{chunks: []Chunk{{Text: "Yes."}}}
	ctrl, cache := newTestController(t, engine, time.Second)

	collect(t, mustStream(t, ctrl, "chess", "Can pawns capture diagonally?"))

	answer, hit := cache.Lookup("chess", "Can pawns capture diagonally?")
	if !hit {
		t.Fatal("completed answer was not stored")
	}
	if answer.Text != "Yes." {
		t.Errorf("stored answer = %q", answer.Text)
	}
}

func TestController_CacheHitCollapsesToComplete(t *testing.T) {
	engine := &fakeEngine{chunks: []Chunk{{Text: "Twice per game."}}}
	ctrl, _ := newTestController(t, engine, time.Second)

	collect(t, mustStream(t, ctrl, "chess", "How often can I castle?"))
	got := collect(t, mustStream(t, ctrl, "chess", "How often can I castle?"))

	if !sameTypes(got, EventComplete) {
		t.Fatalf("cache hit sequence: %v", eventTypes(got))
	}
	if !got[0].Complete.Cached {
		t.Error("replayed answer not marked cached")
	}
	if got[0].Complete.Answer != "Twice per game." {
		t.Errorf("replayed answer = %q", got[0].Complete.Answer)
	}
	if engine.calls != 1 {
		t.Errorf("engine called %d times, want 1", engine.calls)
	}
}

func TestController_RateLimitRejection(t *testing.T) {
	tiers := ratelimit.Config{
		auth.TierAnonymous: {MaxTokens: 1, RefillPerSecond: 0.001},
	}
	cache := answercache.New()
	ctrl, err := NewController(ControllerConfig{
		Limiter: ratelimit.New(tiers),
		Cache:   cache,
		Engine:  &fakeEngine{},
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}

	principal := auth.AnonymousPrincipal("10.0.0.1")
	if _, _, err := ctrl.Stream(context.Background(), principal, "chess", "q"); err != nil {
		t.Fatalf("first call rejected: %v", err)
	}

	events, decision, err := ctrl.Stream(context.Background(), principal, "chess", "q")
	if !errors.Is(err, ratelimit.ErrRateLimitExceeded) {
		t.Fatalf("err = %v, want ErrRateLimitExceeded", err)
	}
	if events != nil {
		t.Error("rejected stream produced an event channel")
	}
	if decision.RetryAfter <= 0 {
		t.Error("rejection decision missing retry delay")
	}
}

func TestController_EngineFailureEmitsError(t *testing.T) {
	engine := &fakeEngine{err: errors.New("upstream unavailable")}
	ctrl, cache := newTestController(t, engine, time.Second)

	got := collect(t, mustStream(t, ctrl, "chess", "q"))
	if !sameTypes(got, EventState, EventError) {
		t.Fatalf("sequence: %v", eventTypes(got))
	}
	if got[1].Error.Code != CodeGenerationFailed {
		t.Errorf("error code = %q", got[1].Error.Code)
	}
	if cache.Len() != 0 {
		t.Error("failed stream stored an answer")
	}
}

func TestController_ChunkErrorEmitsErrorWithoutStore(t *testing.T) {
	engine := &fakeEngine{chunks: []Chunk{
		{Text: "Partial "},
		{Err: errors.New("engine reset")},
	}}
	ctrl, cache := newTestController(t, engine, time.Second)

	got := collect(t, mustStream(t, ctrl, "chess", "q"))
	if !sameTypes(got, EventState, EventCitations, EventToken, EventError) {
		t.Fatalf("sequence: %v", eventTypes(got))
	}
	if got[3].Error.Code != CodeGenerationFailed {
		t.Errorf("error code = %q", got[3].Error.Code)
	}
	if cache.Len() != 0 {
		t.Error("partial answer was stored")
	}
}

func TestController_DeadlineEmitsTimeoutError(t *testing.T) {
	engine := &fakeEngine{block: true}
	ctrl, cache := newTestController(t, engine, 25*time.Millisecond)

	got := collect(t, mustStream(t, ctrl, "chess", "q"))
	last := got[len(got)-1]
	if last.Type != EventError {
		t.Fatalf("sequence: %v", eventTypes(got))
	}
	if last.Error.Code != CodeGenerationTimeout {
		t.Errorf("error code = %q, want %q", last.Error.Code, CodeGenerationTimeout)
	}
	if cache.Len() != 0 {
		t.Error("timed-out stream stored an answer")
	}
}

func TestController_CancelAfterCitationsIsSilent(t *testing.T) {
	engine := &fakeEngine{
		citations: []answercache.Citation{{Title: "Rulebook"}},
		block:     true,
	}
	ctrl, cache := newTestController(t, engine, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	events, _, err := ctrl.Stream(ctx, testPrincipal(), "chess", "q")
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	if ev := <-events; ev.Type != EventState {
		t.Fatalf("first event = %q", ev.Type)
	}
	if ev := <-events; ev.Type != EventCitations {
		t.Fatalf("second event = %q", ev.Type)
	}

	cancel()

	if rest := collect(t, events); len(rest) != 0 {
		t.Fatalf("events after cancellation: %v", eventTypes(rest))
	}
	if _, hit := cache.Lookup("chess", "q"); hit {
		t.Error("cancelled stream stored an answer")
	}
}

func TestController_CancelBeforeFirstEventIsSilent(t *testing.T) {
	ctrl, _ := newTestController(t, &fakeEngine{block: true}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events, _, err := ctrl.Stream(ctx, testPrincipal(), "chess", "q")
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if got := collect(t, events); len(got) != 0 {
		t.Fatalf("events on pre-cancelled stream: %v", eventTypes(got))
	}
}

func TestNewController_Validation(t *testing.T) {
	limiter := ratelimit.New(ratelimit.DefaultConfig())
	cache := answercache.New()
	engine := &fakeEngine{}

	cases := []struct {
		name string
		cfg  ControllerConfig
	}{
		{"missing limiter", ControllerConfig{Cache: cache, Engine: engine}},
		{"missing cache", ControllerConfig{Limiter: limiter, Engine: engine}},
		{"missing engine", ControllerConfig{Limiter: limiter, Cache: cache}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewController(tc.cfg); err == nil {
				t.Error("expected config error")
			}
		})
	}
}

func TestEvent_PayloadMatchesType(t *testing.T) {
	ev := tokenEvent("fragment", 3)
	payload, ok := ev.Payload().(*TokenPayload)
	if !ok {
		t.Fatalf("payload type = %T", ev.Payload())
	}
	if payload.Index != 3 || payload.Text != "fragment" {
		t.Errorf("payload = %+v", payload)
	}
}

func mustStream(t *testing.T, ctrl *Controller, gameID, question string) <-chan Event {
	t.Helper()
	events, _, err := ctrl.Stream(context.Background(), testPrincipal(), gameID, question)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	return events
}
