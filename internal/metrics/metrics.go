// Package metrics exposes replay and queue health as prometheus collectors.
// A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/fekuna/omnipos-stock-verifier/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSynced   = "synced"
	OutcomeConflict = "conflict"
	OutcomeRetry    = "retry"
)

type Collector struct {
	gatherer prometheus.Gatherer

	queueDepth     *prometheus.GaugeVec
	replays        *prometheus.CounterVec
	replayDuration *prometheus.HistogramVec
	online         prometheus.Gauge
	jitFailures    prometheus.Counter
}

// New registers the collectors on reg. Pass a fresh registry in tests.
func New(reg *prometheus.Registry) *Collector {
	f := promauto.With(reg)
	return &Collector{
		gatherer: reg,
		queueDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stockagent_queue_depth",
			Help: "Mutations in the local queue by status",
		}, []string{"status"}),
		replays: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stockagent_replays_total",
			Help: "Replay attempts by mutation type and outcome",
		}, []string{"type", "outcome"}),
		replayDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stockagent_replay_duration_seconds",
			Help:    "Duration of a single remote replay",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
		}, []string{"type"}),
		online: f.NewGauge(prometheus.GaugeOpts{
			Name: "stockagent_online",
			Help: "1 while the device is marked online",
		}),
		jitFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "stockagent_jit_refresh_failures_total",
			Help: "Failed live system quantity refreshes",
		}),
	}
}

// ReplayTimer starts timing one replay of type t.
func (c *Collector) ReplayTimer(t model.MutationType) *prometheus.Timer {
	if c == nil {
		return prometheus.NewTimer(prometheus.ObserverFunc(func(float64) {}))
	}
	return prometheus.NewTimer(c.replayDuration.WithLabelValues(string(t)))
}

func (c *Collector) Replayed(t model.MutationType, outcome string) {
	if c == nil {
		return
	}
	c.replays.WithLabelValues(string(t), outcome).Inc()
}

// SetQueue publishes the per-status depth. Statuses absent from counts read 0.
func (c *Collector) SetQueue(counts map[model.MutationStatus]int) {
	if c == nil {
		return
	}
	for _, s := range []model.MutationStatus{model.MutationPending, model.MutationSyncing, model.MutationFailed} {
		c.queueDepth.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
}

func (c *Collector) SetOnline(online bool) {
	if c == nil {
		return
	}
	if online {
		c.online.Set(1)
	} else {
		c.online.Set(0)
	}
}

func (c *Collector) JitFailed() {
	if c == nil {
		return
	}
	c.jitFailures.Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
