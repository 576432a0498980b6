// Prometheus metrics for the HTTP server and the question pipeline outcomes,
// plus the helpers used by handlers and middleware to record them.
package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Question outcome label values.
const (
	// outcomeAnswered marks questions answered from retrieved transcriptions.
	outcomeAnswered = "answered"
	// outcomeNoContext marks questions persisted with a null answer because
	// no transcription chunk cleared the similarity threshold.
	outcomeNoContext = "no_context"
	// outcomeError marks questions that failed before a record was persisted.
	outcomeError = "error"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// questionsTotal counts completed question requests, partitioned by
	// outcome: "answered", "no_context", or "error".
	questionsTotal *prometheus.CounterVec

	// questionDurationSeconds records the wall-clock duration of each
	// question request from receipt to persisted record.
	questionDurationSeconds *prometheus.HistogramVec

	// audioChunksIndexed counts transcription chunks indexed via uploads.
	audioChunksIndexed prometheus.Counter

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, route pattern, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) registers into the provided
// registry rather than the global default, which keeps unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		questionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agents",
			Subsystem: "questions",
			Name:      "requests_total",
			Help:      "Total number of question requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		questionDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agents",
			Subsystem: "questions",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of question requests from receipt to persisted record.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),

		audioChunksIndexed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "agents",
			Subsystem: "audio",
			Name:      "chunks_indexed_total",
			Help:      "Total number of transcription chunks indexed from audio uploads.",
		}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agents",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", "handler", "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agents",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "handler"}),
	}
}

// observeQuestion records one completed question request.
func (m *serverMetrics) observeQuestion(outcome string, elapsed time.Duration) {
	m.questionsTotal.WithLabelValues(outcome).Inc()
	m.questionDurationSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// observeHTTP records one handled HTTP request.
func (m *serverMetrics) observeHTTP(method, handler string, status int, elapsed time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, handler, strconv.Itoa(status)).Inc()
	m.httpDurationSeconds.WithLabelValues(method, handler).Observe(elapsed.Seconds())
}
