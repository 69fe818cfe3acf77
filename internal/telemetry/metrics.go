// Package telemetry exposes Prometheus metrics for the backend.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection pool metrics
	PooledConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pool_connections_active",
		Help: "The current number of pooled connections to target deployments.",
	})
	ConnectAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pool_connect_attempts_total",
		Help: "The total number of connection attempts to target deployments.",
	})
	ConnectFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pool_connect_failures_total",
		Help: "The total number of failed connection attempts.",
	})
	ProbeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pool_probe_failures_total",
		Help: "The total number of liveness probe failures on pooled connections.",
	})
	IdleEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pool_idle_evictions_total",
		Help: "The total number of pooled connections evicted for idleness.",
	})

	// Session store metrics
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sessions_active",
		Help: "The current number of sessions known to the store.",
	})
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessions_created_total",
		Help: "The total number of sessions created.",
	})
	SessionResolves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_resolves_total",
		Help: "The total number of session token resolutions.",
	}, []string{"outcome"}) // hit | miss | expired
	SessionEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_evictions_total",
		Help: "The total number of sessions evicted.",
	}, []string{"reason"}) // expired | capacity
	FallbackActivations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_fallback_activations_total",
		Help: "The total number of per-call fallbacks to the in-memory session map.",
	})
)
