package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var countJobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "count_jobs_in_queue",
	Help: "Number of jobs in queue",
})

var dispatcherSignalCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "dispatcher_signal_count",
	Help: "How often the dispatcher has signaled to start worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active workers",
})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer to flush streamed replies.
func (r *HttpStatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func IncrementJobsInQueue() {
	countJobsInQueue.Inc()
}

func DecrementJobsInQueue() {
	countJobsInQueue.Dec()
}

func StartDispatcherSignalCount() {
	dispatcherSignalCount.Inc()
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}
func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "process_request_duration_seconds",
	Help:    "Total time spent in ProcessRequest.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30},
}, []string{"status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureJobMetrics(label string, timeElapsed time.Duration) {
	requestDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

var guardrailDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardrail_decisions_total",
	Help: "Guardrail outcomes by decision.",
}, []string{"decision"})

var providerFailovers = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "provider_failovers_total",
	Help: "Completion attempts that failed and moved on, by provider.",
}, []string{"provider"})

var retrievalFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "retrieval_fallbacks_total",
	Help: "Chat requests answered from keyword retrieval, by reason.",
}, []string{"reason"})

var rateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Name: "rate_limited_total",
	Help: "Requests rejected by the rate limiter.",
})

func IncrementGuardrailDecision(decision string) {
	guardrailDecisions.WithLabelValues(decision).Inc()
}

func IncrementProviderFailover(provider string) {
	providerFailovers.WithLabelValues(provider).Inc()
}

func IncrementRetrievalFallback(reason string) {
	retrievalFallbacks.WithLabelValues(reason).Inc()
}

func IncrementRateLimited() {
	rateLimited.Inc()
}
