// Package metrics defines and registers all custom Prometheus metrics for the auth
// service. It is the single source of truth for metric names, labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package init through
// promauto and exposed by the router at GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "auth"

// ── Token metrics ─────────────────────────────────────────────────────────────

// TokensIssuedTotal counts token pairs handed to clients.
// Label:
//   - kind: "login", "register" or "refresh"
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of token pairs issued, by issuing operation.",
	},
	[]string{"kind"},
)

// AuthFailuresTotal counts rejected authentication attempts.
// Label:
//   - reason: "missing_token", "invalid_token", "revoked", "bad_credentials" or "forbidden"
var AuthFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_failures_total",
		Help:      "Total number of rejected authentication or authorization attempts.",
	},
	[]string{"reason"},
)

// RefreshTokensRevokedTotal counts refresh token records removed.
// Label:
//   - reason: "logout", "rotation" or "expired"
var RefreshTokensRevokedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_tokens_revoked_total",
		Help:      "Total number of refresh token records removed.",
	},
	[]string{"reason"},
)

// JWKSFetchesTotal counts key set downloads by the JWKS client.
// Label:
//   - result: "ok" or "error"
var JWKSFetchesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jwks_fetches_total",
		Help:      "Total number of JWKS document fetches.",
	},
	[]string{"result"},
)

// ── Event metrics ─────────────────────────────────────────────────────────────

// EventsPublishedTotal counts auth event delivery outcomes.
// Label:
//   - result: "ok", "error" or "dropped"
var EventsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Total number of auth events handed to the broker, by outcome.",
	},
	[]string{"result"},
)

// EventsQueueDepth tracks the current number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var EventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "events_queue_depth",
		Help:      "Current number of events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ── HTTP metrics ──────────────────────────────────────────────────────────────

// HTTPRequestDuration measures request latency.
// Labels:
//   - method, route (the echo route pattern), status
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests by method, route and status.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"method", "route", "status"},
)

// RateLimitedTotal counts requests rejected by the rate limiter.
var RateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected with 429.",
	},
	[]string{"route"},
)

// EventObserver feeds dispatcher outcomes into the event metrics.
type EventObserver struct{}

func (EventObserver) EventPublished(result string) {
	EventsPublishedTotal.WithLabelValues(result).Inc()
}

func (EventObserver) QueueDepth(workerID string, depth int) {
	EventsQueueDepth.WithLabelValues(workerID).Set(float64(depth))
}

// ObserveJWKSFetch is the JWKS client's fetch hook.
func ObserveJWKSFetch(err error) {
	if err != nil {
		JWKSFetchesTotal.WithLabelValues("error").Inc()
		return
	}
	JWKSFetchesTotal.WithLabelValues("ok").Inc()
}
