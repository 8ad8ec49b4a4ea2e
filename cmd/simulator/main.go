package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/signalsfoundry/cleanup-simulator/core"
	"github.com/signalsfoundry/cleanup-simulator/internal/logging"
	"github.com/signalsfoundry/cleanup-simulator/internal/observability"
	"github.com/signalsfoundry/cleanup-simulator/internal/telemetry"
	"github.com/signalsfoundry/cleanup-simulator/runlog"
	"github.com/signalsfoundry/cleanup-simulator/strategy"
)

// progressEverySteps spaces the periodic progress log lines.
const progressEverySteps = 50

func main() {
	scenarioPath := flag.String("scenario", "", "Path to a JSON scenario file (flags below override its values)")
	pattern := flag.String("pattern", "", "Scan pattern: lawnmower, circular or adaptive (default lawnmower)")
	strategyName := flag.String("strategy", "", "Lawnmower scan strategy name, e.g. \"1:5 Ratio\"")
	seed := flag.Int64("seed", 0, "Random seed (0 keeps the scenario's seed)")
	steps := flag.Int("steps", 0, "Number of simulation steps (0 keeps the scenario's value)")
	drones := flag.Int("drones", 0, "Drone count (0 keeps the pattern default)")
	outDir := flag.String("out", "output", "Directory for trajectories.csv, steps.csv and run.yaml (empty disables export)")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics (empty disables the endpoint)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn or error (default SIM_LOG_LEVEL or info)")
	logFormat := flag.String("log-format", "", "Log format: text or json (default SIM_LOG_FORMAT or text)")
	trace := flag.Bool("trace", false, "Force-enable tracing regardless of SIM_TRACING_ENABLED")
	flag.Parse()

	log := newLogger(*logLevel, *logFormat)

	// SIGINT cancels the run between steps; the partial log is still exported.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, log = logging.WithRunLogger(ctx, log)

	tracingCfg := observability.TracingConfigFromEnv()
	if *trace {
		tracingCfg.Enabled = true
	}
	shutdownTracing, err := observability.InitTracing(ctx, tracingCfg, log)
	if err != nil {
		log.Warn(ctx, "continuing without tracing", logging.String("error", err.Error()))
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	cfg, err := buildConfig(*scenarioPath, *pattern, *strategyName, *seed, *steps, *drones)
	if err != nil {
		log.Error(ctx, "invalid configuration", logging.String("error", err.Error()))
		os.Exit(1)
	}

	collector, err := observability.NewSimCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}
	exportMetrics, err := observability.NewExportCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise export metrics", logging.String("error", err.Error()))
		os.Exit(1)
	}

	metricsSrv := serveMetrics(*metricsAddr, collector, log)

	engine, err := core.NewSimulationEngine(cfg, strategy.Builtin(), log)
	if err != nil {
		log.Error(ctx, "failed to build simulation engine", logging.String("error", err.Error()))
		os.Exit(1)
	}
	// Pick up resolved values (defaulted strategy name, echoed seed).
	cfg = engine.Config()

	engine.RegisterStepListener(func(s core.StepSnapshot) {
		collector.ObserveStep(observability.StepObservation{
			Pattern:           string(cfg.Pattern),
			Step:              s.Stats.Step,
			Detected:          s.Stats.ParticlesDetected,
			Processed:         s.Stats.ParticlesProcessed,
			FieldMass:         s.FieldMass,
			BoundsClamps:      s.BoundsClamps,
			DensityUnderflows: s.DensityUnderflows,
			Duration:          s.Duration,
		})
	})

	// Long runs report progress through the run log.
	unsubscribe := engine.RunLog().Subscribe(func(ev runlog.Event) {
		if ev.Type != runlog.EventStepCompleted || ev.Stats.Step%progressEverySteps != 0 {
			return
		}
		log.Info(ctx, "run progress",
			logging.Int("step", ev.Stats.Step),
			logging.Float64("detected", ev.Stats.ParticlesDetected),
			logging.Float64("cumulative_processed", ev.Stats.CumulativeProcessed),
		)
	})
	defer unsubscribe()

	result, runErr := engine.Run(ctx)
	outcome := "completed"
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		outcome = "cancelled"
		log.Warn(ctx, "run cancelled; exporting partial log",
			logging.Int("steps_completed", result.StepsCompleted))
	default:
		collector.MarkRun("failed")
		log.Error(ctx, "simulation failed", logging.String("error", runErr.Error()))
		os.Exit(1)
	}
	collector.MarkRun(outcome)

	if err := exportRun(ctx, *outDir, cfg, result, exportMetrics, log); err != nil {
		log.Error(ctx, "failed to export run", logging.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Printf("Run %s: pattern=%s strategy=%q seed=%d\n",
		outcome, cfg.Pattern, cfg.StrategyName, result.Seed)
	fmt.Printf("Steps: %d  Detected: %.3f  Processed: %.3f  Efficiency: %.3f\n",
		result.Stats.TotalSteps,
		result.Stats.ParticlesDetected,
		result.Stats.ParticlesProcessed,
		result.Stats.Efficiency,
	)
	fmt.Printf("Field mass: %.3f -> %.3f  Bounds clamps: %d  Density underflows: %d\n",
		result.InitialMass, result.FinalMass, result.BoundsClamps, result.DensityUnderflows)
	if *outDir != "" {
		fmt.Printf("Artifacts written to %s\n", *outDir)
	}

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

// newLogger prefers explicit flags and falls back to the environment.
func newLogger(level, format string) logging.Logger {
	if level == "" && format == "" {
		return logging.NewFromEnv()
	}
	return logging.New(logging.Config{
		Level:     level,
		Format:    format,
		AddSource: true,
	})
}

// buildConfig resolves the run configuration: scenario file when given,
// pattern defaults otherwise, with CLI flags overriding either.
func buildConfig(scenarioPath, pattern, strategyName string, seed int64, steps, drones int) (core.Config, error) {
	var cfg core.Config

	if scenarioPath != "" {
		loaded, err := core.LoadScenarioFile(scenarioPath)
		if err != nil {
			return core.Config{}, err
		}
		cfg = loaded
	} else {
		p := core.PatternLawnmower
		if pattern != "" {
			parsed, err := core.ParsePattern(pattern)
			if err != nil {
				return core.Config{}, err
			}
			p = parsed
		}
		cfg = core.DefaultScenario(p)
	}

	if pattern != "" && scenarioPath != "" {
		parsed, err := core.ParsePattern(pattern)
		if err != nil {
			return core.Config{}, err
		}
		if parsed != cfg.Pattern {
			cfg.Pattern = parsed
			cfg.DroneCount = parsed.DefaultDroneCount()
		}
	}
	if strategyName != "" {
		cfg.StrategyName = strategyName
	}
	if seed != 0 {
		cfg.Seed = seed
	}
	if steps > 0 {
		cfg.Steps = steps
	}
	if drones > 0 {
		cfg.DroneCount = drones
	}
	return cfg, nil
}

func exportRun(ctx context.Context, dir string, cfg core.Config, result *core.RunResult, metrics *observability.ExportCollector, log logging.Logger) error {
	om, err := telemetry.NewOutputManager(dir)
	if err != nil {
		return err
	}
	if om == nil {
		return nil
	}

	begin := time.Now()
	rows, err := om.ExportRun(cfg, result)
	if err != nil {
		om.Close()
		return err
	}
	metrics.ObserveExport(rows, time.Since(begin))
	log.Info(ctx, "run artifacts exported",
		logging.String("dir", om.Dir()),
		logging.Int("rows", rows),
	)
	return om.Close()
}

func serveMetrics(addr string, collector *observability.SimCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
