// Package app wires the scheduling core, storage, metrics, and HTTP surface
// into a runnable service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apipreview "github.com/coparent/rota/api/preview"
	apiproposals "github.com/coparent/rota/api/proposals"
	apischedule "github.com/coparent/rota/api/schedule"
	"github.com/coparent/rota/config"
	"github.com/coparent/rota/core/events"
	coremetrics "github.com/coparent/rota/core/metrics"
	"github.com/coparent/rota/core/optimize"
	"github.com/coparent/rota/core/preview"
	"github.com/coparent/rota/core/proposal"
	"github.com/coparent/rota/core/rebalance"
	coreschedule "github.com/coparent/rota/core/schedule"
	"github.com/coparent/rota/infra/logger"
	"github.com/coparent/rota/infra/metrics"
	"github.com/coparent/rota/infra/optimizer"
	"github.com/coparent/rota/infra/storage"
	"github.com/coparent/rota/internal/eventbus"
)

// Service orchestrates the scheduling core behind the HTTP API.
type Service struct {
	store        *storage.SQLiteStore
	rebalanceBus *eventbus.Bus[events.RebalanceEvent]
	proposalBus  *eventbus.Bus[events.ProposalEvent]
	sink         coremetrics.MetricsSink
	mux          *http.ServeMux
	log          logger.Logger
	apiAddr      string
	promEnabled  bool
	promAddr     string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	var sinks []coremetrics.MetricsSink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket))
	}
	var sink coremetrics.MetricsSink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	store, err := storage.New(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	reb := rebalance.New(cfg.Rebalance, logger.New("rebalancer"))
	var refiner *optimize.Refiner
	optimizerEnabled := cfg.Optimizer.Enabled
	if optimizerEnabled {
		client := optimizer.New(optimizer.Config{
			URL:            cfg.Optimizer.URL,
			APIKey:         cfg.Optimizer.APIKey,
			TimeoutSeconds: cfg.Optimizer.TimeoutSeconds,
		}, logger.New("optimizer"))
		refiner = optimize.NewRefiner(client, cfg.Rebalance,
			time.Duration(cfg.Optimizer.TimeoutSeconds)*time.Second, logger.New("refiner"))
	}
	stage := preview.NewStage(reb, refiner, logger.New("preview"))

	workflow := proposal.NewWorkflow(store,
		time.Duration(cfg.Proposals.TTLDays)*24*time.Hour, logger.New("proposals"))

	rebalanceBus := eventbus.New[events.RebalanceEvent]()
	proposalBus := eventbus.New[events.ProposalEvent]()

	gen := coreschedule.Generator{
		GuardianA:   cfg.Rebalance.GuardianA,
		GuardianB:   cfg.Rebalance.GuardianB,
		BlockLength: cfg.Schedule.BlockLength,
	}

	mux := http.NewServeMux()
	mux.Handle("/api/schedule/generate", apischedule.NewGenerateHandler(gen))
	mux.Handle("/api/schedule/rebalance", apischedule.NewRebalanceHandler(stage, cfg.Rebalance,
		func(ev events.RebalanceEvent) {
			ev.OptimizerUsed = optimizerEnabled && ev.Fallback == ""
			rebalanceBus.Publish(ev)
		}))
	mux.Handle("/api/calendar", apischedule.NewCalendarHandler(store, cfg.Rebalance))
	mux.Handle("/api/settings", apischedule.NewSettingsHandler(store))
	mux.Handle("/api/preview/diff", apipreview.NewDiffHandler(cfg.Rebalance))
	apiproposals.NewHandler(workflow, stage, cfg.Rebalance, proposalBus.Publish).Register(mux)

	return &Service{
		store:        store,
		rebalanceBus: rebalanceBus,
		proposalBus:  proposalBus,
		sink:         sink,
		mux:          mux,
		log:          logg,
		apiAddr:      cfg.API.Addr,
		promEnabled:  cfg.Metrics.PrometheusEnabled,
		promAddr:     fmt.Sprintf(":%d", cfg.Metrics.PrometheusPort),
	}, nil
}

// Handler exposes the HTTP mux, mainly for tests.
func (s *Service) Handler() http.Handler { return s.mux }

// Run serves the API and forwards bus events to the metrics sink until the
// context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	rebalanceCh := s.rebalanceBus.Subscribe()
	proposalCh := s.proposalBus.Subscribe()
	go func() {
		for ev := range rebalanceCh {
			if err := s.sink.RecordRebalance(ev); err != nil {
				s.log.Warnf("record rebalance: %v", err)
			}
		}
	}()
	go func() {
		rec, ok := s.sink.(coremetrics.ProposalRecorder)
		for ev := range proposalCh {
			if !ok {
				continue
			}
			if err := rec.RecordProposal(ev); err != nil {
				s.log.Warnf("record proposal: %v", err)
			}
		}
	}()

	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promAddr, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	srv := &http.Server{Addr: s.apiAddr, Handler: s.mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api shutdown: %v", err)
		}
	}()
	s.log.Infof("serving API on %s", s.apiAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.rebalanceBus.Close()
	s.proposalBus.Close()
	return s.store.Close()
}
