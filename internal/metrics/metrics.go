// Package metrics owns the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts handled requests by method, route and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "socialhub",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration observes request latency by method and route.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "socialhub",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	// LikeToggles counts like toggles by outcome ("liked" / "unliked").
	LikeToggles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "socialhub",
			Subsystem: "posts",
			Name:      "like_toggles_total",
			Help:      "Total number of like toggles.",
		},
		[]string{"result"},
	)

	// MessagesSent counts persisted direct messages.
	MessagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "socialhub",
			Subsystem: "messages",
			Name:      "sent_total",
			Help:      "Total number of direct messages sent.",
		},
	)

	// AuthAttempts counts login/register attempts by action and outcome.
	AuthAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "socialhub",
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Login and registration attempts.",
		},
		[]string{"action", "outcome"},
	)
)

func init() {
	Registry.MustRegister(
		HTTPRequests,
		HTTPDuration,
		LikeToggles,
		MessagesSent,
		AuthAttempts,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
