package metrics

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BillingMetrics manages Prometheus instrumentation for subscription sync.
type BillingMetrics struct {
	webhookOutcome    *prometheus.CounterVec
	unmappedCustomer  prometheus.Counter
	unknownEventType  *prometheus.CounterVec
	providerFailure   *prometheus.CounterVec
	querySync         *prometheus.CounterVec
	signatureRejected prometheus.Counter
}

var (
	billingMetricsInstance *BillingMetrics
	billingMetricsOnce     sync.Once
)

// GetBillingMetrics returns the singleton billing metrics instance.
func GetBillingMetrics() *BillingMetrics {
	billingMetricsOnce.Do(func() {
		billingMetricsInstance = newBillingMetrics()
	})
	return billingMetricsInstance
}

func newBillingMetrics() *BillingMetrics {
	m := &BillingMetrics{
		webhookOutcome: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "thrivewithai",
				Subsystem: "billing",
				Name:      "webhook_outcome_total",
				Help:      "Total webhook deliveries by event class and outcome",
			},
			[]string{"class", "outcome"},
		),
		unmappedCustomer: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "thrivewithai",
				Subsystem: "billing",
				Name:      "webhook_unmapped_customer_total",
				Help:      "Total state-changing webhooks whose customer id has no local subscriber",
			},
		),
		unknownEventType: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "thrivewithai",
				Subsystem: "billing",
				Name:      "webhook_unknown_event_type_total",
				Help:      "Total webhooks with an event type that is not recognised",
			},
			[]string{"type"},
		),
		providerFailure: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "thrivewithai",
				Subsystem: "billing",
				Name:      "provider_failure_total",
				Help:      "Total failed billing provider calls by operation",
			},
			[]string{"operation"},
		),
		querySync: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "thrivewithai",
				Subsystem: "billing",
				Name:      "query_sync_total",
				Help:      "Total client-initiated subscription syncs by result",
			},
			[]string{"result"},
		),
		signatureRejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "thrivewithai",
				Subsystem: "billing",
				Name:      "webhook_signature_rejected_total",
				Help:      "Total webhooks rejected for a missing or invalid signature",
			},
		),
	}

	prometheus.MustRegister(
		m.webhookOutcome,
		m.unmappedCustomer,
		m.unknownEventType,
		m.providerFailure,
		m.querySync,
		m.signatureRejected,
	)
	return m
}

func (m *BillingMetrics) RecordWebhookOutcome(class, outcome string) {
	m.webhookOutcome.WithLabelValues(class, outcome).Inc()
}

func (m *BillingMetrics) RecordUnmappedCustomer() {
	m.unmappedCustomer.Inc()
}

func (m *BillingMetrics) RecordUnknownEventType(eventType string) {
	m.unknownEventType.WithLabelValues(eventType).Inc()
}

func (m *BillingMetrics) RecordProviderFailure(operation string) {
	m.providerFailure.WithLabelValues(operation).Inc()
}

func (m *BillingMetrics) RecordQuerySync(result string) {
	m.querySync.WithLabelValues(result).Inc()
}

func (m *BillingMetrics) RecordSignatureRejected() {
	m.signatureRejected.Inc()
}

// Handler exposes the default Prometheus registry on a fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

// JobMetrics counts background job results and run time.
type JobMetrics struct {
	results  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var (
	jobMetricsInstance *JobMetrics
	jobMetricsOnce     sync.Once
)

func GetJobMetrics() *JobMetrics {
	jobMetricsOnce.Do(func() {
		jobMetricsInstance = &JobMetrics{
			results: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "thrivewithai",
					Subsystem: "jobs",
					Name:      "results_total",
					Help:      "Total job runs by type and result (completed, retried, failed)",
				},
				[]string{"type", "result"},
			),
			duration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "thrivewithai",
					Subsystem: "jobs",
					Name:      "run_duration_seconds",
					Help:      "Time spent in a job handler",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"type"},
			),
		}
		prometheus.MustRegister(jobMetricsInstance.results, jobMetricsInstance.duration)
	})
	return jobMetricsInstance
}

func (m *JobMetrics) RecordRun(jobType, result string, elapsed time.Duration) {
	m.results.WithLabelValues(jobType, result).Inc()
	m.duration.WithLabelValues(jobType).Observe(elapsed.Seconds())
}
