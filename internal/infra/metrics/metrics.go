package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tgapp"

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)
)

// Entitlement metrics
var (
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Messages accepted by the quota, by tier",
		},
		[]string{"tier"},
	)

	MessagesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_rejected_total",
			Help:      "Messages rejected before delivery, by reason",
		},
		[]string{"reason"},
	)

	GateDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Feature gate decisions, by feature and presentation",
		},
		[]string{"feature", "presentation"},
	)

	TierChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_changes_total",
			Help:      "Subscription tier changes, by target tier",
		},
		[]string{"tier"},
	)

	StatePersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entitlement_state_persist_failures_total",
			Help:      "Failed writes of entitlement state to the session store",
		},
	)

	CachedAccounts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entitlement_cached_accounts",
			Help:      "Entitlement accounts currently held in memory",
		},
	)

	SubscriptionsExpired = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions_expired",
			Help:      "Paid subscriptions past their expiry date at the last audit",
		},
	)
)
