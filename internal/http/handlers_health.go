package http

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"savings/internal/log"
)

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	}).Write(w)
}

// handleReady runs every dependency check; any failure makes the service not ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{}
	for name, check := range s.ready {
		if err := check(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", "check", name, log.FieldError, err)
			checks[name] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.Metrics().ClientCount}
	checks["workspaces"] = map[string]any{"active": s.workspaces.active.Size()}

	NewResponse().Status(code).JSON(map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	tm := s.tracer.Metrics()
	rl := s.limiter.Metrics()

	type metric struct {
		name, kind, help string
		value            any
	}
	ms := []metric{
		{"http_requests_total", "counter", "Total number of HTTP requests", tm.TotalRequests},
		{"http_client_errors_total", "counter", "Responses with a 4xx status", tm.ClientErrors},
		{"http_server_errors_total", "counter", "Responses with a 5xx status", tm.ServerErrors},
		{"http_request_duration_avg_seconds", "gauge", "Mean request handling time", tm.AverageDuration.Seconds()},
		{"ledger_transactions_added_total", "counter", "Transactions added", s.metrics.added.Load()},
		{"ledger_transactions_updated_total", "counter", "Transactions updated", s.metrics.updated.Load()},
		{"ledger_transactions_removed_total", "counter", "Transactions removed", s.metrics.removed.Load()},
		{"ledger_remote_failures_total", "counter", "Remote store operations that failed", s.metrics.remoteFailures.Load()},
		{"session_logins_total", "counter", "Successful sign ins", s.metrics.logins.Load()},
		{"active_workspaces", "gauge", "Workspaces held in memory", s.workspaces.active.Size()},
		{"rate_limit_rejected_total", "counter", "Requests rejected by the rate limiter", rl.Rejected},
		{"active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rl.ClientCount},
		{"uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.startedAt).Seconds())},
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].name < ms[j].name })
	for _, m := range ms {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n", m.name, m.help, m.name, m.kind, m.name, m.value)
	}
}
