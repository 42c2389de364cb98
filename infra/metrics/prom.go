package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/coparent/rota/core/events"
	coremetrics "github.com/coparent/rota/core/metrics"
)

// PromSink records rebalance and proposal events in Prometheus metrics.
type PromSink struct {
	runs      *prometheus.CounterVec
	changed   prometheus.Histogram
	duration  prometheus.Histogram
	proposals *prometheus.CounterVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The /metrics server is started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rebalance_runs_total",
		Help: "Total number of rebalancing runs",
	}, []string{"optimizer_used", "fallback"})
	changed := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rebalance_changed_nights",
		Help:    "Number of nights changed per rebalancing run",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rebalance_duration_seconds",
		Help:    "Wall time of a rebalancing run",
		Buckets: prometheus.DefBuckets,
	})
	proposals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "proposal_events_total",
		Help: "Total number of proposal state changes",
	}, []string{"status"})

	if err := reg.Register(runs); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			runs = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(changed); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			changed = are.ExistingCollector.(prometheus.Histogram)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(duration); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			duration = are.ExistingCollector.(prometheus.Histogram)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(proposals); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			proposals = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{runs: runs, changed: changed, duration: duration, proposals: proposals}, nil
}

// RecordRebalance increments the run counter and observes the change counts.
func (s *PromSink) RecordRebalance(ev events.RebalanceEvent) error {
	fallback := strconv.FormatBool(ev.Fallback != "")
	s.runs.WithLabelValues(strconv.FormatBool(ev.OptimizerUsed), fallback).Inc()
	s.changed.Observe(float64(ev.ChangedCount))
	s.duration.Observe(ev.Duration.Seconds())
	return nil
}

// RecordProposal counts proposal state changes by status.
func (s *PromSink) RecordProposal(ev events.ProposalEvent) error {
	s.proposals.WithLabelValues(ev.Status).Inc()
	return nil
}
