package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	clientsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clients_created_total",
			Help: "Total number of client records created",
		},
	)

	assessmentsComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_assessments_total",
			Help: "Total number of risk assessments computed",
		},
		[]string{"tier"},
	)

	matchesServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resource_matches_total",
			Help: "Total number of resource match requests served",
		},
		[]string{"category", "degraded"},
	)

	matchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resource_match_duration_seconds",
			Help:    "Resource matching pipeline duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of notifications sent",
		},
		[]string{"type", "status"},
	)

	surveysProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "survey_responses_processed_total",
			Help: "Total number of needs-assessment responses processed",
		},
	)
)

// RecordClientCreated increments the client creation counter
func RecordClientCreated() {
	clientsCreated.Inc()
}

// RecordAssessment records a computed risk assessment by tier
func RecordAssessment(tier string) {
	assessmentsComputed.WithLabelValues(tier).Inc()
}

// RecordMatch records a served match request
func RecordMatch(category string, degraded bool, duration time.Duration) {
	matchesServed.WithLabelValues(category, strconv.FormatBool(degraded)).Inc()
	matchDuration.Observe(duration.Seconds())
}

// RecordNotification records a notification delivery attempt
func RecordNotification(notifType, status string) {
	notificationsSent.WithLabelValues(notifType, status).Inc()
}

// RecordSurveyProcessed increments the survey response counter
func RecordSurveyProcessed() {
	surveysProcessed.Inc()
}

// Middleware instruments HTTP handlers
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(wrapped.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

// Handler returns the /metrics endpoint handler
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
