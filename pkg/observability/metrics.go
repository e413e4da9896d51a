package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/tableau/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of one server.
type Metrics struct {
	registry *prometheus.Registry

	Commits      prometheus.Counter
	Rollbacks    prometheus.Counter
	BatchSize    prometheus.Histogram
	TxDuration   prometheus.Histogram
	Seq          prometheus.Gauge
	Transitions  prometheus.Counter
	CurrentFrame prometheus.Gauge
	Ticks        prometheus.Counter
	Viewers      *prometheus.GaugeVec
	Evictions    *prometheus.CounterVec
}

// NewMetrics creates the collectors on a fresh registry, together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Commits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tableau_transactions_committed_total",
			Help: "Total number of committed scene transactions",
		}),
		Rollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tableau_transactions_rolled_back_total",
			Help: "Total number of rolled back scene transactions",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tableau_batch_mutations",
			Help:    "Mutations per committed batch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		TxDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tableau_transaction_duration_seconds",
			Help:    "Time from opening a transaction to commit or rollback",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		Seq: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tableau_scene_seq",
			Help: "Sequence number of the last committed batch",
		}),
		Transitions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tableau_playback_transitions_total",
			Help: "Total number of committed frame changes",
		}),
		CurrentFrame: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tableau_playback_current_frame",
			Help: "Index of the visible frame",
		}),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tableau_playback_ticks_total",
			Help: "Total number of playback ticks",
		}),
		Viewers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tableau_viewers",
			Help: "Connected viewers",
		}, []string{"transport"}),
		Evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tableau_viewer_evictions_total",
			Help: "Viewers dropped for falling behind",
		}, []string{"transport"}),
	}
	m.registry.MustRegister(
		m.Commits, m.Rollbacks, m.BatchSize, m.TxDuration, m.Seq,
		m.Transitions, m.CurrentFrame, m.Ticks, m.Viewers, m.Evictions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks records lifecycle events.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCommit: func(_ context.Context, e *domain.TransactionEvent) {
			m.Commits.Inc()
			m.BatchSize.Observe(float64(e.Mutations))
			m.TxDuration.Observe(e.Duration.Seconds())
			m.Seq.Set(float64(e.Seq))
		},
		OnRollback: func(_ context.Context, e *domain.TransactionEvent) {
			m.Rollbacks.Inc()
			m.TxDuration.Observe(e.Duration.Seconds())
		},
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.Transitions.Inc()
			m.CurrentFrame.Set(float64(e.To))
		},
		OnTick: func(context.Context) {
			m.Ticks.Inc()
		},
		OnViewerJoin: func(_ context.Context, e *domain.ViewerEvent) {
			m.Viewers.WithLabelValues(e.Transport).Inc()
		},
		OnViewerLeave: func(_ context.Context, e *domain.ViewerEvent) {
			m.Viewers.WithLabelValues(e.Transport).Dec()
			if e.Evicted {
				m.Evictions.WithLabelValues(e.Transport).Inc()
			}
		},
	}
}
