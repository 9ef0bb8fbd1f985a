package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// metrics owns its registry so several servers can coexist in one process (tests).
type metrics struct {
	registry   *prometheus.Registry
	valuations prometheus.Counter
	events     *prometheus.CounterVec
	rounds     prometheus.Counter
	scores     prometheus.Counter
	duration   *prometheus.HistogramVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		valuations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "holdco_valuations_total",
			Help: "Exit valuations computed.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "holdco_events_total",
			Help: "Events generated, by type.",
		}, []string{"type"}),
		rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "holdco_rounds_advanced_total",
			Help: "Rounds advanced through the API.",
		}),
		scores: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "holdco_scores_submitted_total",
			Help: "Scores accepted onto the leaderboard.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "holdco_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.valuations, m.events, m.rounds, m.scores, m.duration,
	)
	return m
}

func (m *metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.duration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
