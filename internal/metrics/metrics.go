package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Live event outcomes recorded by the connection registry.
const (
	ResultDelivered = "delivered"
	ResultOffline   = "offline"
	ResultDropped   = "dropped"
)

var (
	// WebSocket Metrics
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gamecall_ws_active_sessions",
			Help: "Number of users with a registered live session",
		},
	)

	SessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamecall_ws_sessions_total",
			Help: "Total number of live sessions by how they ended",
		},
		[]string{"outcome"}, // "closed", "superseded"
	)

	LiveEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamecall_ws_events_total",
			Help: "Live events offered to sessions, by event type and result",
		},
		[]string{"event", "result"},
	)

	InboundFrames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamecall_ws_inbound_frames_total",
			Help: "Frames read from clients, by command type",
		},
		[]string{"type"},
	)

	// Message Metrics
	MessagesPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gamecall_messages_persisted_total",
			Help: "Total number of messages written to the message store",
		},
	)

	MessagesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamecall_messages_rejected_total",
			Help: "Send attempts rejected before persistence",
		},
		[]string{"reason"}, // "validation", "forbidden", "storage"
	)

	// API Metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gamecall_http_request_duration_seconds",
			Help:    "HTTP request latency by route template and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
