package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// InviteActivations counts invite acceptance attempts and their outcome
	// (accepted|not_found|self_accept|error).
	InviteActivations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_invite_activations_total",
			Help: "Total number of invite activation attempts",
		},
		[]string{"result"},
	)

	// ChatMessages counts persisted chat messages.
	ChatMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyhall_chat_messages_total",
			Help: "Total number of chat messages posted",
		},
	)

	// ConnectedClients tracks realtime WebSocket connections.
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "studyhall_realtime_clients",
			Help: "Number of connected realtime clients",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studyhall_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
