// Package metrics defines the Prometheus collectors for the gateway.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts API requests by endpoint group and outcome.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contractiq_requests_total",
		Help: "API requests by endpoint and status.",
	}, []string{"endpoint", "status"})

	// RequestDuration observes wall time per endpoint group.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "contractiq_request_duration_seconds",
		Help:    "Request duration in seconds by endpoint.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	// DocumentsIngested counts successfully stored documents.
	DocumentsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contractiq_documents_ingested_total",
		Help: "Documents successfully ingested.",
	})

	// Extractions counts completed extractions by source.
	Extractions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contractiq_extractions_total",
		Help: "Completed extractions by source (llm, fallback, empty).",
	}, []string{"source"})

	// WebhookDeliveries counts webhook delivery attempts by outcome.
	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contractiq_webhook_deliveries_total",
		Help: "Webhook delivery attempts by status.",
	}, []string{"status"})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
