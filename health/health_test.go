package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func healthyChecker(msg string) Checker {
	return CheckerFunc(func(ctx context.Context) Result {
		return Result{Status: StatusHealthy, Message: msg}
	})
}

func unhealthyChecker(err error) Checker {
	return CheckerFunc(func(ctx context.Context) Result {
		return Result{Status: StatusUnhealthy, Message: "down", Err: err}
	})
}

func TestRegistry_CheckAll(t *testing.T) {
	reg := NewRegistry(time.Second)
	reg.Register("sessions", healthyChecker("reachable"))
	reg.Register("redis", healthyChecker("reachable"))

	results := reg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if Overall(results) != StatusHealthy {
		t.Errorf("overall = %v, want healthy", Overall(results))
	}
}

func TestRegistry_CheckNamed(t *testing.T) {
	reg := NewRegistry(time.Second)
	reg.Register("engine", healthyChecker("circuit closed"))

	res, err := reg.Check(context.Background(), "engine")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Status != StatusHealthy {
		t.Errorf("status = %v", res.Status)
	}

	if _, err := reg.Check(context.Background(), "missing"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("err = %v, want ErrCheckerNotFound", err)
	}
}

func TestRegistry_StuckCheckerTimesOut(t *testing.T) {
	reg := NewRegistry(50 * time.Millisecond)
	reg.Register("stuck", CheckerFunc(func(ctx context.Context) Result {
		<-ctx.Done()
		time.Sleep(time.Second)
		return Result{Status: StatusHealthy}
	}))

	results := reg.CheckAll(context.Background())
	res := results["stuck"]
	if res.Status != StatusUnhealthy {
		t.Fatalf("status = %v, want unhealthy", res.Status)
	}
	if !errors.Is(res.Err, ErrCheckTimeout) {
		t.Errorf("err = %v, want ErrCheckTimeout", res.Err)
	}
}

func TestOverall(t *testing.T) {
	cases := []struct {
		name    string
		results map[string]Result
		want    Status
	}{
		{"empty", map[string]Result{}, StatusHealthy},
		{"all healthy", map[string]Result{
			"a": {Status: StatusHealthy},
			"b": {Status: StatusHealthy},
		}, StatusHealthy},
		{"one degraded", map[string]Result{
			"a": {Status: StatusHealthy},
			"b": {Status: StatusDegraded},
		}, StatusDegraded},
		{"one unhealthy", map[string]Result{
			"a": {Status: StatusDegraded},
			"b": {Status: StatusUnhealthy},
		}, StatusUnhealthy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overall(tc.results); got != tc.want {
				t.Errorf("Overall = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPingChecker(t *testing.T) {
	ok := PingChecker(pingFunc(func(ctx context.Context) error { return nil }))
	if res := ok.Check(context.Background()); res.Status != StatusHealthy {
		t.Errorf("status = %v, want healthy", res.Status)
	}

	bad := PingChecker(pingFunc(func(ctx context.Context) error {
		return errors.New("connection refused")
	}))
	res := bad.Check(context.Background())
	if res.Status != StatusUnhealthy {
		t.Errorf("status = %v, want unhealthy", res.Status)
	}
	if res.Err == nil {
		t.Error("expected error on result")
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestBreakerChecker(t *testing.T) {
	cases := []struct {
		state string
		want  Status
	}{
		{"closed", StatusHealthy},
		{"half-open", StatusDegraded},
		{"open", StatusUnhealthy},
	}
	for _, tc := range cases {
		checker := BreakerChecker(func() string { return tc.state })
		if got := checker.Check(context.Background()).Status; got != tc.want {
			t.Errorf("state %q: status = %v, want %v", tc.state, got, tc.want)
		}
	}
}

func TestHandler_ReportsComponents(t *testing.T) {
	reg := NewRegistry(time.Second)
	reg.Register("sessions", healthyChecker("reachable"))
	reg.Register("redis", unhealthyChecker(errors.New("connection refused")))

	rec := httptest.NewRecorder()
	Handler(reg)(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != 503 {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Status != "unhealthy" {
		t.Errorf("overall status = %q", resp.Status)
	}
	if resp.Checks["redis"].Error == "" {
		t.Error("redis check missing error detail")
	}
	if resp.Checks["sessions"].Status != "healthy" {
		t.Errorf("sessions status = %q", resp.Checks["sessions"].Status)
	}
}

func TestHandler_DegradedStaysRoutable(t *testing.T) {
	reg := NewRegistry(time.Second)
	reg.Register("engine", CheckerFunc(func(ctx context.Context) Result {
		return Result{Status: StatusDegraded, Message: "circuit probing"}
	}))

	rec := httptest.NewRecorder()
	Handler(reg)(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
