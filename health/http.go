package health

import (
	"encoding/json"
	"net/http"
	"time"
)

// Response is the /healthz body.
type Response struct {
	Status    string                  `json:"status"`
	Timestamp string                  `json:"timestamp"`
	Checks    map[string]CheckSummary `json:"checks,omitempty"`
}

// CheckSummary is one component's entry in the /healthz body.
type CheckSummary struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Handler serves the aggregated health report. Healthy and degraded
// report 200 so a probing load balancer keeps routing while a cache
// backend flaps; only an unhealthy gateway gets 503.
func Handler(registry *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := registry.CheckAll(r.Context())
		status := Overall(results)

		resp := Response{
			Status:    status.String(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    make(map[string]CheckSummary, len(results)),
		}
		for name, res := range results {
			summary := CheckSummary{
				Status:   res.Status.String(),
				Message:  res.Message,
				Duration: res.Duration.String(),
			}
			if res.Err != nil {
				summary.Error = res.Err.Error()
			}
			resp.Checks[name] = summary
		}

		w.Header().Set("Content-Type", "application/json")
		if status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
