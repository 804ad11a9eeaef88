package http

import (
	"fmt"
	"io"
	"net/http"
)

type metric struct {
	name, help, kind string
	value            any
}

// handleMetrics writes request, security and ledger counters in the
// Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traffic := s.tracer.GetMetrics()
	limits := s.limiter.GetMetrics()
	detection := s.detector.GetMetrics()
	loaded := s.ledger.LastLoad()

	metrics := []metric{
		{"http_requests_total", "Total number of HTTP requests", "counter", traffic.TotalRequests},
		{"http_request_duration_avg_microseconds", "Mean response time", "gauge", traffic.AverageResponseTime},
		{"rate_limit_hits_total", "Requests rejected by the rate limiter", "counter", limits.TotalHits},
		{"active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", limits.ClientCount},
		{"suspicious_requests_total", "Total suspicious requests detected", "counter", detection.SuspiciousRequests},
		{"blocked_requests_total", "Total requests blocked by the detector", "counter", detection.BlockedRequests},
		{"ledger_version", "Committed ledger version", "counter", s.ledger.Version()},
		{"ledger_transactions", "Transactions currently in the ledger", "gauge", len(s.ledger.Transactions())},
		{"ledger_dropped_rows", "Malformed rows skipped at load", "gauge", loaded.Dropped},
		{"summary_cache_entries", "Cached summary reports", "gauge", s.ledger.SummaryCacheSize()},
		{"uptime_seconds", "Application uptime in seconds", "gauge", int64(s.opts.Now().Sub(s.started).Seconds())},
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	writeMetrics(w, metrics)
}

func writeMetrics(w io.Writer, metrics []metric) {
	for _, m := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", m.name, m.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", m.name, m.kind)
		fmt.Fprintf(w, "%s %v\n\n", m.name, m.value)
	}
}
