package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/coparent/rota/core/events"
	coremetrics "github.com/coparent/rota/core/metrics"
	"github.com/coparent/rota/infra/logger"
)

// InfluxSink writes rebalance and proposal events to an InfluxDB instance
// using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// if the health check fails, so metrics trouble never blocks scheduling.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRebalance writes the run as a line protocol point.
func (s *InfluxSink) RecordRebalance(ev events.RebalanceEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("rebalance_run").
		AddTag("optimizer_used", strconv.FormatBool(ev.OptimizerUsed)).
		AddTag("component", "rebalancer").
		AddField("changed_nights", ev.ChangedCount).
		AddField("transition_delta", ev.TransitionDelta).
		AddField("disrupted_dates", len(ev.DisruptedDates)).
		AddField("duration_ms", ev.Duration.Milliseconds()).
		SetTime(ev.At)
	if ev.Fallback != "" {
		p.AddTag("fallback", "true")
		p = p.AddField("fallback_reason", ev.Fallback)
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordProposal writes a proposal state change.
func (s *InfluxSink) RecordProposal(ev events.ProposalEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("proposal_event").
		AddTag("status", ev.Status).
		AddTag("component", "proposal_workflow").
		AddField("proposal_id", ev.ProposalID).
		AddField("actor", string(ev.Actor)).
		SetTime(ev.At)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}
