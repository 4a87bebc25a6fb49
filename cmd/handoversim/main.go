// Command handoversim wires the handover decision core (spec C1-C11) into
// a runnable process: it loads configuration, bootstraps a demo antenna
// topology and UE population, spawns one simulation worker per UE, and
// serves the §6 external interface surface over HTTP until interrupted.
//
// This replaces the teacher's cmd/orchestrator entrypoint; the flag
// parsing, signal handling, and graceful-shutdown shape follow it
// directly (cmd/orchestrator/main.go), adapted from a single generic
// Server+Monitor pair to this domain's HTTP surface, Prometheus exporter,
// and per-UE worker pool.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/nephio-oran-claude-agents/internal/a3"
	"github.com/nephio-oran-claude-agents/internal/channel"
	"github.com/nephio-oran-claude-agents/internal/config"
	"github.com/nephio-oran-claude-agents/internal/domain"
	"github.com/nephio-oran-claude-agents/internal/engine"
	"github.com/nephio-oran-claude-agents/internal/httpapi"
	"github.com/nephio-oran-claude-agents/internal/network"
	"github.com/nephio-oran-claude-agents/internal/pingpong"
	"github.com/nephio-oran-claude-agents/internal/predictor"
	"github.com/nephio-oran-claude-agents/internal/qosadapt"
	"github.com/nephio-oran-claude-agents/internal/rng"
	"github.com/nephio-oran-claude-agents/internal/simulation"
	"github.com/nephio-oran-claude-agents/internal/telemetry"
)

const (
	appName = "handoversim"

	gracefulShutdownTimeout = 30 * time.Second
	workerStopDeadline      = 10 * time.Second // spec §5 hard deadline
)

var (
	configFile   = flag.String("config", "", "Path to configuration file (optional; defaults applied if omitted)")
	globalSeed   = flag.String("seed", "handoversim-default-seed", "Global reproducibility seed (spec C1)")
	predictorURL = flag.String("predictor-endpoint", "", "Remote predictor HTTP endpoint (empty uses the local fallback predictor only)")
)

func newLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo, AddSource: true}
	if os.Getenv("LOG_FORMAT") == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func main() {
	flag.Parse()
	logger := newLogger()
	runID := uuid.NewString()
	logger = logger.With(slog.String("component", appName), slog.String("run_id", runID))

	cfg, err := loadConfig(*configFile)
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if !rng.Verify() {
		// spec §7: RNG/channel reproducibility failures are fatal for the
		// run and must not be silently swallowed.
		logger.Error("RNG registry reproducibility self-test failed")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := build(cfg, *globalSeed, *predictorURL, logger)
	app.bootstrapDemoTopology()

	runner := simulation.NewRunner(logger)
	for _, ueID := range app.ueIDs {
		w := app.newWorker(ueID)
		runner.Spawn(ctx, w)
	}

	httpSrv := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        app.httpServer.Router(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErrCh:
		logger.Error("http server failed", slog.String("error", err.Error()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown did not complete cleanly", slog.String("error", err.Error()))
	}

	runner.StopAll(workerStopDeadline)
	logger.Info("handoversim stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// application bundles every wired collaborator C1-C11 needs, the way
// spec §9's "Global state -> explicit context" design note recommends:
// one Runtime-shaped value passed to every worker and handler, rather
// than module-level singletons.
type application struct {
	cfg *config.Config
	log *slog.Logger

	rngRegistry *rng.Registry
	channelMgr  *channel.Manager
	stateMgr    *network.Manager
	pingpongTr  *pingpong.Tracker
	qosMgr      *qosadapt.Manager
	a3Eval      *a3.Evaluator
	pred        predictor.Predictor
	fallback    predictor.Predictor
	eng         *engine.Engine
	collector   *telemetry.Collector
	metrics     *telemetry.Metrics
	httpServer  *httpapi.Server

	ueIDs []string
}

func build(cfg *config.Config, seed, predictorEndpoint string, logger *slog.Logger) *application {
	rngRegistry := rng.NewRegistry()
	rngRegistry.Seed(seed)

	var pathLoss channel.PathLossModel
	if cfg.Channel.PathLossModel == "close_in" {
		pathLoss = channel.CloseInPathLoss{N: cfg.Channel.CloseIn.N}
	} else {
		pathLoss = channel.ABGPathLoss{Alpha: cfg.Channel.ABG.Alpha, Beta: cfg.Channel.ABG.Beta, Gamma: cfg.Channel.ABG.Gamma}
	}
	model := channel.NewModel(cfg.Channel.SigmaSFDB, cfg.Channel.DecorrDistanceM, cfg.Channel.CarrierFrequencyGHz, pathLoss)
	channelMgr := channel.NewManager(model)

	stateMgr := network.NewManager(channelMgr, cfg.Channel.ResourceBlocks, cfg.Channel.NoiseFloorDBm, 5000)
	pingpongTr := pingpong.NewTracker(cfg.PingPong.HistoryLength)
	stateMgr.SetPingPongProvider(pingpongTr)

	qosMgr := qosadapt.NewManager(qosadapt.Config{
		Alpha: cfg.QoS.Alpha, BoostFactor: cfg.QoS.BoostFactor, RelaxFactor: cfg.QoS.RelaxFactor,
		MaxBoost: cfg.QoS.MaxBoost, MaxRelax: cfg.QoS.MaxRelax,
		HighThreshold: cfg.QoS.HighThreshold, LowThreshold: cfg.QoS.LowThreshold,
	})

	a3Eval, err := a3.NewEvaluator(cfg.Engine.HysteresisDB, a3.EventType(cfg.Engine.EventType), cfg.Engine.RSRQFloorDB)
	if err != nil {
		logger.Error("invalid A3 evaluator configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fallback := predictor.NewLocalFallback()
	var pred predictor.Predictor = fallback
	if predictorEndpoint != "" {
		pred = predictor.NewHTTPPredictor(predictorEndpoint, &http.Client{Timeout: cfg.Predictor.RequestTimeout}, logger.With(slog.String("component", "predictor")))
	}

	metrics := telemetry.NewMetrics(appName)
	collector := telemetry.NewCollector(
		telemetry.RLFConfig{ThresholdDB: cfg.RLF.RLFThresholdDB, DurationS: cfg.RLF.RLFDurationS},
		telemetry.ThroughputConfig{
			MinDecodableSINRDB: cfg.RLF.MinDecodableSINRDB, RLFThresholdDB: cfg.RLF.RLFThresholdDB,
			RLFZoneEfficiency: cfg.RLF.RLFZoneEfficiency, MaxEfficiency: cfg.RLF.MaxEfficiency, BandwidthHz: cfg.RLF.BandwidthHz,
		},
		telemetry.InterruptionConfig{DurationS: cfg.RLF.InterruptionDurationS.Seconds(), QueueCap: cfg.RLF.InterruptionQueueCap},
		logger.With(slog.String("component", "telemetry")),
	)

	eng := engine.New(engine.Config{
		Mode:                      engine.Mode(cfg.Engine.Mode),
		MinAntennasML:             cfg.Engine.MinAntennasML,
		MinHandoverIntervalS:      cfg.PingPong.MinHandoverIntervalS,
		MaxHandoversPerMinute:     cfg.PingPong.MaxHandoversPerMinute,
		PingPongWindowS:           cfg.PingPong.PingPongWindowS,
		PingPongConfidenceBoost:   cfg.PingPong.PingPongConfidenceBoost,
		ImmediateReturnConfidence: cfg.PingPong.DefaultImmediateReturnConfidence,
		PredictorMaxFailures:      cfg.Predictor.MaxConsecutiveFailures,
	}, stateMgr, a3Eval, pred, fallback, pingpongTr, qosMgr, collector, logger.With(slog.String("component", "engine")))
	eng.SetSuppressionNotifier(metrics)

	httpServer := httpapi.NewServer(eng, stateMgr, pred, metrics, nil, cfg.Engine.TTTSeconds, logger.With(slog.String("component", "httpapi")))

	return &application{
		cfg: cfg, log: logger,
		rngRegistry: rngRegistry, channelMgr: channelMgr, stateMgr: stateMgr,
		pingpongTr: pingpongTr, qosMgr: qosMgr, a3Eval: a3Eval,
		pred: pred, fallback: fallback, eng: eng, collector: collector, metrics: metrics,
		httpServer: httpServer,
	}
}

// bootstrapDemoTopology registers a small two-antenna topology and a
// handful of UEs on a straight-line trajectory, matching the literal
// scenario shape used throughout spec §8's worked examples. A production
// deployment would load topology and trajectories from the external
// mobility-model/topology store (spec §1's excluded "path planning"
// collaborator); this process only consumes already-generated points.
func (a *application) bootstrapDemoTopology() {
	a.stateMgr.RegisterAntenna(network.AntennaMeta{
		ID: "antenna-1", Position: domain.Position{X: 0, Y: 0, Z: 30},
		TXPowerDBm: 43, CarrierFrequencyHz: a.cfg.Channel.CarrierFrequencyGHz * 1e9, CoverageRadiusM: 600,
	})
	a.stateMgr.RegisterAntenna(network.AntennaMeta{
		ID: "antenna-2", Position: domain.Position{X: 1000, Y: 0, Z: 30},
		TXPowerDBm: 43, CarrierFrequencyHz: a.cfg.Channel.CarrierFrequencyGHz * 1e9, CoverageRadiusM: 600,
	})
	a.stateMgr.RegisterAlias("1", "antenna-1")
	a.stateMgr.RegisterAlias("2", "antenna-2")

	ueIDs := []string{"ue-1", "ue-2", "ue-3"}
	for i, ueID := range ueIDs {
		start := domain.Position{X: float64(100 + i*50), Y: 0, Z: 1.5}
		traj := []network.TrajectoryPoint{
			{TimeS: 0, Position: start},
			{TimeS: 600, Position: domain.Position{X: 900 - float64(i*50), Y: 0, Z: 1.5}},
		}
		a.stateMgr.RegisterUE(ueID, start, traj)
	}
	a.ueIDs = ueIDs
}

// newWorker builds a simulation.Worker for ueID, wiring the per-UE RNG
// stream and this application's shared collaborators (spec C1 "rng_for"
// feeding C2/QoS noise reproducibly).
func (a *application) newWorker(ueID string) *simulation.Worker {
	traj, _ := a.stateMgr.Trajectory(ueID)
	simTraj := make([]simulation.TrajectoryPoint, len(traj))
	for i, p := range traj {
		simTraj[i] = simulation.TrajectoryPoint{TimeS: p.TimeS, Position: p.Position}
	}

	return simulation.NewWorker(
		ueID,
		simulation.Config{TickIntervalS: 1.0, HandoverReevaluationIntervalS: a.cfg.Engine.HandoverReevaluationIntervalS.Seconds(), TTTSeconds: a.cfg.Engine.TTTSeconds},
		simTraj,
		simulation.SpeedMedium,
		a.stateMgr,
		a.eng,
		a.collector,
		finalStatePersister{log: a.log},
		a.log.With(slog.String("component", "simulation"), slog.String("ue_id", ueID)),
		a.channelMgr,
		a.rngRegistry,
	)
}

// finalStatePersister logs a UE's terminal position on worker exit, the
// stand-in for the external store spec §3's UE lifecycle rule hands off
// to ("last known position is persisted to the external store").
type finalStatePersister struct {
	log *slog.Logger
}

func (p finalStatePersister) PersistFinalState(ueID string, pos domain.Position, connectedTo string) {
	p.log.Info("persisting final UE state",
		slog.String("ue_id", ueID), slog.String("connected_to", connectedTo),
		slog.Float64("x", pos.X), slog.Float64("y", pos.Y))
}
