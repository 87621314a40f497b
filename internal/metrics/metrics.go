package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 5, 10, 30},
}, []string{"service"})

var embeddingCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "embedding_cache_lookups_total",
	Help: "Embedding cache lookups labelled by result (hit or miss).",
}, []string{"result"})

var searchStrategyChunks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "search_strategy_chunks_total",
	Help: "Chunks contributed to the result pool, labelled by retrieval strategy.",
}, []string{"strategy"})

// CaptureExecutionMetrics records how long a call to an external dependency took.
func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

// RecordCacheLookup counts an embedding cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		embeddingCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	embeddingCacheLookups.WithLabelValues("miss").Inc()
}

// RecordStrategyChunks counts chunks a search strategy added to the pool.
func RecordStrategyChunks(strategy string, n int) {
	searchStrategyChunks.WithLabelValues(strategy).Add(float64(n))
}

// HttpStatusRecorder captures the status code written by a handler.
type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

// WriteHeader records code before delegating.
func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the recorder.
func (r *HttpStatusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// RecordRequest counts a finished HTTP request.
func RecordRequest(path string, status int) {
	httpRequestsTotal.WithLabelValues(path, strconv.Itoa(status)).Inc()
}
