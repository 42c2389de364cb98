package metrics

import (
	"github.com/coparent/rota/core/events"
	coremetrics "github.com/coparent/rota/core/metrics"
)

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRebalance forwards the event to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordRebalance(ev events.RebalanceEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordRebalance(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordProposal forwards proposal events to sinks that support them.
func (m *MultiSink) RecordProposal(ev events.ProposalEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.ProposalRecorder); ok {
			if err := rec.RecordProposal(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
