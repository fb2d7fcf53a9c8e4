package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Poll Cycle Metrics
var (
	// CyclesTotal tracks completed poll cycles by outcome (published/quiet/fault)
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_cycles_total",
			Help: "Total poll cycles by outcome",
		},
		[]string{"outcome"},
	)

	// CycleDuration tracks poll cycle duration in seconds, cooldown excluded
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bridge_cycle_duration_seconds",
			Help:    "Poll cycle duration in seconds (excluding the post-fault cooldown)",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// CycleFaults tracks cycle-level faults by kind
	CycleFaults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_cycle_faults_total",
			Help: "Cycle-level faults by fault kind",
		},
		[]string{"kind"},
	)
)

// RCON Metrics
var (
	// RCONConnectsTotal tracks RCON connection attempts by status
	RCONConnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rcon_connects_total",
			Help: "RCON connection attempts by status (ok/fault/benign_closed)",
		},
		[]string{"status"},
	)

	// RCONQueryDuration tracks RCON request/response latency in seconds
	RCONQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rcon_query_duration_seconds",
			Help:    "RCON query duration in seconds by command",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 5},
		},
		[]string{"command"},
	)
)

// Discord Publish Metrics
var (
	// ChunksPublished tracks event text chunks sent to the channel
	ChunksPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discord_chunks_published_total",
			Help: "Total event text chunks published to the channel",
		},
	)

	// PublishErrors tracks failed Discord writes by operation
	PublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discord_publish_errors_total",
			Help: "Failed Discord writes by operation (send/topic/presence)",
		},
		[]string{"operation"},
	)

	// TopicUpdates tracks successful channel topic writes
	TopicUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discord_topic_updates_total",
			Help: "Total successful channel topic updates",
		},
	)

	// PlayersOnline tracks the last observed player count
	PlayersOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_players_online",
			Help: "Last observed connected player count",
		},
	)
)
