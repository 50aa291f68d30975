/*
metrics.go - Prometheus instrumentation

Counters cover the business events operators actually page on: clock
activity, declaration outcomes, and shift churn. Request latency is a
single histogram labelled by method and status class.
*/
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flexi_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})

	shiftEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flexi_shift_events_total",
		Help: "Shift lifecycle events by kind.",
	}, []string{"kind"})

	clockEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flexi_clock_events_total",
		Help: "Clock-in/out attempts by kind and outcome.",
	}, []string{"kind", "outcome"})

	declarationPushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flexi_dimona_pushes_total",
		Help: "Declaration push attempts by resulting status.",
	}, []string{"status"})
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func instrumentRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		requestDuration.WithLabelValues(r.Method, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}

func countClock(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	clockEvents.WithLabelValues(kind, outcome).Inc()
}
