// Package metrics holds the Prometheus collectors shared across the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FeedRequests counts feed compositions by outcome.
	FeedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bubble",
		Name:      "feed_requests_total",
		Help:      "total feed requests by status",
	}, []string{"status"})

	// Uploads counts upload attempts by post kind and outcome.
	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bubble",
		Name:      "uploads_total",
		Help:      "total upload attempts by kind and status",
	}, []string{"kind", "status"})

	// Impressions counts received view events. These are accepted as
	// fire-and-forget telemetry, so the counter is the only durable trace.
	Impressions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bubble",
		Name:      "impressions_total",
		Help:      "total impression events received",
	})

	// ReapedPosts counts posts deleted by the expiry reaper.
	ReapedPosts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bubble",
		Name:      "reaped_posts_total",
		Help:      "total expired posts deleted by the reaper",
	})

	// ReaperRuns counts reaper passes by outcome.
	ReaperRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bubble",
		Name:      "reaper_runs_total",
		Help:      "total reaper runs by status",
	}, []string{"status"})
)
