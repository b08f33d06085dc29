// Package metrics exposes Prometheus instrumentation for the relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveSessions tracks currently connected client sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_relay_active_sessions",
		Help: "Number of currently active client sessions",
	})

	// SessionsTotal counts sessions created since start.
	SessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_relay_sessions_total",
		Help: "Total number of client sessions created",
	})

	// SessionsRejected counts sessions refused (missing credential, capacity).
	SessionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_relay_sessions_rejected_total",
		Help: "Total number of client sessions rejected",
	}, []string{"reason"})

	// AudioBytesForwarded counts audio payload bytes relayed upstream.
	AudioBytesForwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_relay_audio_bytes_forwarded_total",
		Help: "Total audio bytes forwarded to the speech provider",
	})

	// UpstreamEvents counts provider events by kind.
	UpstreamEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_relay_upstream_events_total",
		Help: "Total events received from the speech provider",
	}, []string{"kind"})

	// UpstreamReconnects counts automatic reconnect attempts.
	UpstreamReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_relay_upstream_reconnects_total",
		Help: "Total automatic reconnect attempts to the speech provider",
	})

	// ActionsDecoded counts decoded document actions by type.
	ActionsDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_relay_actions_decoded_total",
		Help: "Total document actions decoded from assistant output",
	}, []string{"type"})
)
