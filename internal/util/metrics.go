package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PurchasesStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "purchases_started_total",
		Help: "Total number of purchase sagas started",
	})

	PurchasesSucceededTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "purchases_succeeded_total",
		Help: "Total number of purchases completed successfully",
	})

	PurchasesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purchases_failed_total",
		Help: "Total number of failed purchases",
	}, []string{"reason"})

	RefundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refunds_total",
		Help: "Total number of balance refunds after failed purchases",
	})

	RefundFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refund_failures_total",
		Help: "Total number of failed credit-backs after a failed purchase",
	})

	BalanceAdjustmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "balance_adjustments_total",
		Help: "Total number of ledger balance adjustments",
	}, []string{"mode"})

	GatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hesda_request_duration_seconds",
		Help:    "Latency of reseller API calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	GatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hesda_requests_total",
		Help: "Total number of reseller API calls",
	}, []string{"endpoint", "outcome"})

	MessagesReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messages_received_total",
		Help: "Total number of inbound chat messages",
	})

	MessagesSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messages_sent_total",
		Help: "Total number of outbound chat messages",
	}, []string{"status"})

	OtpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otp_requests_total",
		Help: "Total number of OTP dispatches",
	}, []string{"outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
