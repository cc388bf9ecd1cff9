package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Messages handed to the pipeline
	MessagesObserved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netcodigo_messages_observed_total",
			Help: "Total number of inbound messages submitted to the pipeline",
		},
		[]string{"source"}, // source: imap, mailgun
	)

	// Messages that carried no code or link
	MessagesWithoutPayload = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netcodigo_messages_without_payload_total",
			Help: "Total number of messages without a code or verification link",
		},
		[]string{"source"},
	)

	ResultsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netcodigo_results_emitted_total",
			Help: "Total number of extraction results broadcast",
		},
		[]string{"category"},
	)

	WebhookRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netcodigo_webhook_rejected_total",
			Help: "Total number of rejected inbound webhooks",
		},
		[]string{"reason"}, // reason: missing_signature, invalid_signature, malformed
	)

	IMAPErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netcodigo_imap_errors_total",
			Help: "Total number of IMAP connection and fetch errors",
		},
		[]string{"stage"}, // stage: connect, select, idle, fetch, logout
	)

	ConnectedAccounts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netcodigo_imap_watched_accounts",
			Help: "Number of IMAP accounts being watched",
		},
	)
)

// IncrementMessageObserved counts a submitted message
func IncrementMessageObserved(source string) {
	MessagesObserved.WithLabelValues(source).Inc()
}

// IncrementNoPayload counts a message with nothing to report
func IncrementNoPayload(source string) {
	MessagesWithoutPayload.WithLabelValues(source).Inc()
}

// IncrementResultEmitted counts a broadcast result
func IncrementResultEmitted(category string) {
	ResultsEmitted.WithLabelValues(category).Inc()
}

// IncrementWebhookRejected counts a rejected webhook
func IncrementWebhookRejected(reason string) {
	WebhookRejected.WithLabelValues(reason).Inc()
}

// IncrementIMAPError counts an IMAP failure
func IncrementIMAPError(stage string) {
	IMAPErrors.WithLabelValues(stage).Inc()
}
