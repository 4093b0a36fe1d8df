// Package metrics exposes Prometheus instrumentation for webhook handling and
// device configuration calls.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "netbox_restconf"

var (
	// webhookEvents counts handled webhooks.
	// Labels: kind (interface, address), event (created, updated, deleted), status (journal status)
	webhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "webhook",
		Name:      "events_total",
		Help:      "Webhook events handled, by outcome",
	}, []string{"kind", "event", "status"})

	// webhookDuration measures end-to-end handling time of a webhook.
	// Labels: kind
	webhookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "webhook",
		Name:      "duration_seconds",
		Help:      "Time spent reconciling one webhook event",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"kind"})

	// deviceRequests counts RESTCONF requests by final HTTP status.
	// Labels: method, code ("error" for transport failures)
	deviceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "restconf",
		Name:      "requests_total",
		Help:      "RESTCONF requests sent to devices",
	}, []string{"method", "code"})

	// deviceRetries counts retries caused by a locked datastore (HTTP 409).
	// Labels: method
	deviceRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "restconf",
		Name:      "retries_total",
		Help:      "RESTCONF requests retried because the datastore was locked",
	}, []string{"method"})

	// journalPruned counts journal rows removed by retention.
	journalPruned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "journal",
		Name:      "pruned_total",
		Help:      "Event journal rows removed by the retention loop",
	})
)

// RecordEvent records one handled webhook.
func RecordEvent(kind, event, status string, elapsed time.Duration) {
	webhookEvents.WithLabelValues(kind, event, status).Inc()
	webhookDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// RecordDeviceRequest records the final status of a RESTCONF request. A zero
// code means the request never got an HTTP response.
func RecordDeviceRequest(method string, code int) {
	label := "error"
	if code != 0 {
		label = strconv.Itoa(code)
	}
	deviceRequests.WithLabelValues(method, label).Inc()
}

// RecordDeviceRetry records one retry of a RESTCONF request.
func RecordDeviceRetry(method string) {
	deviceRetries.WithLabelValues(method).Inc()
}

// RecordPruned records journal rows removed by retention.
func RecordPruned(n int) {
	journalPruned.Add(float64(n))
}
