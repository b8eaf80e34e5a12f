package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MarksCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flyers_marks_created_total",
		Help: "Total number of completion marks created",
	})
	MarksRemovedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flyers_marks_removed_total",
		Help: "Total number of completion marks removed",
	}, []string{"source"}) // unmark | delete
	UnmarkMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flyers_unmark_misses_total",
		Help: "Total unmark requests with no mark in range",
	})
	TransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flyers_assignment_transitions_total",
		Help: "Assignment status transitions by from/to status",
	}, []string{"from", "to"})
	ProgressCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flyers_progress_cache_hits_total",
		Help: "Total progress cache hits",
	})
	ProgressCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flyers_progress_cache_misses_total",
		Help: "Total progress cache misses",
	})
	ProgressComputeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "flyers_progress_compute_duration_ms",
		Help:    "Progress computation duration in milliseconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 50, 100, 200, 500},
	})
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flyers_http_requests_total",
		Help: "Total HTTP requests by route and status class",
	}, []string{"method", "route", "status"})
)

func init() {
	prometheus.MustRegister(MarksCreatedTotal)
	prometheus.MustRegister(MarksRemovedTotal)
	prometheus.MustRegister(UnmarkMissesTotal)
	prometheus.MustRegister(TransitionsTotal)
	prometheus.MustRegister(ProgressCacheHitsTotal)
	prometheus.MustRegister(ProgressCacheMissesTotal)
	prometheus.MustRegister(ProgressComputeDurationMs)
	prometheus.MustRegister(HTTPRequestsTotal)
}

// Handler 暴露 /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
