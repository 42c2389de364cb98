// Package metrics defines the observability boundary of the scheduling core.
// Sinks receive rebalance and proposal events; the core never talks to a
// metrics backend directly.
package metrics

import "github.com/coparent/rota/core/events"

// Config selects which sinks to build.
type Config struct {
	PrometheusEnabled bool   `json:"prometheusEnabled"`
	PrometheusPort    int    `json:"prometheusPort"`
	InfluxEnabled     bool   `json:"influxEnabled"`
	InfluxURL         string `json:"influxUrl"`
	InfluxToken       string `json:"influxToken"`
	InfluxOrg         string `json:"influxOrg"`
	InfluxBucket      string `json:"influxBucket"`
}

// MetricsSink records rebalance runs for observability purposes.
type MetricsSink interface {
	RecordRebalance(ev events.RebalanceEvent) error
}

// ProposalRecorder records proposal state changes.
type ProposalRecorder interface {
	RecordProposal(ev events.ProposalEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordRebalance(events.RebalanceEvent) error { return nil }

func (NopSink) RecordProposal(events.ProposalEvent) error { return nil }
