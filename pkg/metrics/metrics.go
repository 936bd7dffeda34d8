package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "siteqa"

const (
	OutcomeLLM      = "llm"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// Metrics is nil-safe: every method on a nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	pagesCrawled    prometheus.Counter
	docsDropped     prometheus.Counter
	chunksIndexed   prometheus.Counter
	indexTotal      *prometheus.CounterVec
	indexDuration   *prometheus.HistogramVec
	answerTotal     *prometheus.CounterVec
	answerDuration  *prometheus.HistogramVec
	retrievedChunks prometheus.Histogram
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	pagesCrawled := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "index",
		Name:      "pages_crawled_total",
		Help:      "Pages fetched by the crawler.",
	})
	docsDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "index",
		Name:      "documents_dropped_total",
		Help:      "Cleaned documents discarded as too short.",
	})
	chunksIndexed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "index",
		Name:      "chunks_total",
		Help:      "Chunks embedded and saved.",
	})
	indexTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "runs_total",
			Help:      "Indexing runs by status.",
		},
		[]string{"status"},
	)
	indexDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "duration_seconds",
			Help:      "Indexing duration in seconds by status.",
			Buckets:   []float64{1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"status"},
	)
	answerTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "answer",
			Name:      "requests_total",
			Help:      "Answers by outcome.",
		},
		[]string{"outcome"},
	)
	answerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "answer",
			Name:      "duration_seconds",
			Help:      "Answer duration in seconds by outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	retrievedChunks := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "answer",
		Name:      "retrieved_chunks",
		Help:      "Matches kept per question.",
		Buckets:   []float64{0, 1, 2, 3, 5, 10, 20},
	})
	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests processed.",
		},
		[]string{"method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	registry.MustRegister(
		pagesCrawled, docsDropped, chunksIndexed, indexTotal, indexDuration,
		answerTotal, answerDuration, retrievedChunks, requestTotal, requestDuration,
	)

	return &Metrics{
		registry:        registry,
		pagesCrawled:    pagesCrawled,
		docsDropped:     docsDropped,
		chunksIndexed:   chunksIndexed,
		indexTotal:      indexTotal,
		indexDuration:   indexDuration,
		answerTotal:     answerTotal,
		answerDuration:  answerDuration,
		retrievedChunks: retrievedChunks,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveIndexing(pages, dropped, chunks int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.pagesCrawled.Add(float64(pages))
	m.docsDropped.Add(float64(dropped))
	if err == nil {
		m.chunksIndexed.Add(float64(chunks))
	}
	m.indexTotal.WithLabelValues(status).Inc()
	m.indexDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *Metrics) ObserveAnswer(outcome string, matches int, duration time.Duration) {
	if m == nil {
		return
	}
	m.answerTotal.WithLabelValues(outcome).Inc()
	m.answerDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if outcome != OutcomeError {
		m.retrievedChunks.Observe(float64(matches))
	}
}

// Middleware records request counts and latency. pattern is the route
// pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(pattern string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		m.requestTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
