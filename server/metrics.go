package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the Prometheus registry for the chat core, exposed by the
// admin endpoint.
var Metrics = prometheus.NewRegistry()

var (
	connectedClients = promauto.With(Metrics).NewGauge(prometheus.GaugeOpts{
		Name: "crowd_connected_clients",
		Help: "Number of currently connected clients",
	})

	channelsGauge = promauto.With(Metrics).NewGauge(prometheus.GaugeOpts{
		Name: "crowd_channels",
		Help: "Number of live channels",
	})

	joinsTotal = promauto.With(Metrics).NewCounter(prometheus.CounterOpts{
		Name: "crowd_channel_joins_total",
		Help: "Total successful channel joins",
	})

	partsTotal = promauto.With(Metrics).NewCounter(prometheus.CounterOpts{
		Name: "crowd_channel_parts_total",
		Help: "Total channel removals, any quit reason",
	})

	nickCollisionsTotal = promauto.With(Metrics).NewCounter(prometheus.CounterOpts{
		Name: "crowd_nickname_collisions_total",
		Help: "Total nickname negotiations that hit an in-use nickname",
	})

	generatedNicksTotal = promauto.With(Metrics).NewCounter(prometheus.CounterOpts{
		Name: "crowd_generated_nicknames_total",
		Help: "Total fallback nicknames synthesized after exhausted attempts",
	})
)
