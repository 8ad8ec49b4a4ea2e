package core

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/cleanup-simulator/internal/logging"
	"github.com/signalsfoundry/cleanup-simulator/model"
	"github.com/signalsfoundry/cleanup-simulator/runlog"
	"github.com/signalsfoundry/cleanup-simulator/strategy"
	"github.com/signalsfoundry/cleanup-simulator/timectrl"
)

const tracerName = "github.com/signalsfoundry/cleanup-simulator/core"

// ErrConfiguration marks errors raised before a run enters Running: unknown
// strategy or pattern names, non-positive bounds or step counts. Always fatal
// to the run, never retried.
var ErrConfiguration = errors.New("configuration error")

// EngineState tracks the run lifecycle.
type EngineState int32

const (
	StateInitialized EngineState = iota
	StateRunning
	StateCompleted
)

func (s EngineState) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// Config is the validated input of one simulation run.
type Config struct {
	Pattern      Pattern
	StrategyName string
	Seed         int64
	Steps        int
	Bounds       Bounds
	DroneCount   int
	DtHours      float64

	// Field construction and drift.
	Field    FieldConfig
	WindXKmh float64
	WindYKmh float64
	CellKm   float64
}

// validate rejects anything that would break the run before it starts.
func (c Config) validate() error {
	if c.Pattern == "" {
		return fmt.Errorf("%w: pattern is required", ErrConfiguration)
	}
	if _, err := ParsePattern(string(c.Pattern)); err != nil {
		return err
	}
	if c.Steps <= 0 {
		return fmt.Errorf("%w: steps must be positive, got %d", ErrConfiguration, c.Steps)
	}
	if c.Bounds.WidthKm <= 0 || c.Bounds.HeightKm <= 0 {
		return fmt.Errorf("%w: map bounds must be positive, got %gx%g km",
			ErrConfiguration, c.Bounds.WidthKm, c.Bounds.HeightKm)
	}
	if c.DroneCount <= 0 {
		return fmt.Errorf("%w: drone count must be positive, got %d", ErrConfiguration, c.DroneCount)
	}
	if c.DtHours <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %g h", ErrConfiguration, c.DtHours)
	}
	if c.CellKm <= 0 {
		return fmt.Errorf("%w: cell size must be positive, got %g km", ErrConfiguration, c.CellKm)
	}
	if c.Field.ClusterCount < 0 || c.Field.ClusterPeak < 0 || c.Field.BaseNoise < 0 {
		return fmt.Errorf("%w: particle density settings must be non-negative", ErrConfiguration)
	}
	return nil
}

// tick returns the simulated duration of one step.
func (c Config) tick() time.Duration {
	return time.Duration(c.DtHours * float64(time.Hour))
}

// StepSnapshot is handed to step listeners after each completed step.
// Duration is wall time and feeds metrics only; nothing derived from it may
// enter the run log.
type StepSnapshot struct {
	Stats             model.StepStats
	FieldMass         float64
	BoundsClamps      int // cumulative over the run
	DensityUnderflows int // cumulative over the run
	Duration          time.Duration
}

// RunResult is the artifact of a completed or cancelled run. The trajectory
// log it carries is the only output that outlives the engine.
type RunResult struct {
	Seed           int64
	StepsCompleted int
	Stats          model.RunStats
	Log            *runlog.Log

	InitialMass       float64
	FinalMass         float64
	BoundsClamps      int
	DensityUnderflows int
}

// SimulationEngine orchestrates one run: it seeds the shared random source,
// builds the field and the actor fleet, then drives the synchronous step
// loop. The engine is single-use; construct a new one per run.
type SimulationEngine struct {
	cfg    Config
	strat  model.Strategy
	log    logging.Logger
	state  atomic.Int32
	tracer trace.Tracer

	runLog *runlog.Log
	clock  *timectrl.Clock

	stepListeners []func(StepSnapshot)

	// Run-owned state, built once Running.
	field  *OceanField
	drones []Drone
	system *CatchingSystem

	detected   float64
	processed  float64
	clamps     int
	underflows int
}

// NewSimulationEngine validates cfg against the catalog and returns an engine
// in the Initialized state. Any supplied strategy name must exist in the
// catalog even for patterns that ignore it; a lawnmower run without a name
// uses the catalog default. A nil logger disables logging.
func NewSimulationEngine(cfg Config, catalog *strategy.Catalog, log logging.Logger) (*SimulationEngine, error) {
	if log == nil {
		log = logging.Noop()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if catalog == nil {
		return nil, fmt.Errorf("%w: strategy catalog is required", ErrConfiguration)
	}

	var strat model.Strategy
	if cfg.StrategyName != "" {
		s, err := catalog.Lookup(cfg.StrategyName)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		strat = s
	} else if cfg.Pattern == PatternLawnmower {
		strat = catalog.Default()
		cfg.StrategyName = strat.Name
	}

	return &SimulationEngine{
		cfg:    cfg,
		strat:  strat,
		log:    log,
		tracer: otel.Tracer(tracerName),
		runLog: runlog.New(),
		clock:  timectrl.New(timectrl.DefaultEpoch, cfg.tick()),
	}, nil
}

// Config returns the engine's resolved configuration.
func (e *SimulationEngine) Config() Config { return e.cfg }

// Strategy returns the resolved scan strategy. It is the zero value for runs
// whose pattern does not use one and no name was supplied.
func (e *SimulationEngine) Strategy() model.Strategy { return e.strat }

// State returns the engine's lifecycle state. Safe to call from any
// goroutine.
func (e *SimulationEngine) State() EngineState {
	return EngineState(e.state.Load())
}

// RunLog returns the run log. It is safe for concurrent readers while the run
// is in flight.
func (e *SimulationEngine) RunLog() *runlog.Log { return e.runLog }

// Clock exposes the engine's simulation clock.
func (e *SimulationEngine) Clock() timectrl.SimClock { return e.clock }

// RegisterStepListener adds a callback observing every completed step. Must
// be called before Run.
func (e *SimulationEngine) RegisterStepListener(fn func(StepSnapshot)) {
	e.stepListeners = append(e.stepListeners, fn)
}

// Run transitions the engine to Running, executes the step loop and returns
// the finished result in the Completed state. Cancellation is step-granular:
// when ctx is done the loop stops between steps and Run returns the valid
// partial result alongside ctx's error.
func (e *SimulationEngine) Run(ctx context.Context) (*RunResult, error) {
	if !e.state.CompareAndSwap(int32(StateInitialized), int32(StateRunning)) {
		return nil, fmt.Errorf("engine is %s, runs are single-use", e.State())
	}

	ctx, span := e.tracer.Start(ctx, "SimulationEngine.Run", trace.WithAttributes(
		attribute.String("sim.pattern", string(e.cfg.Pattern)),
		attribute.String("sim.strategy", e.cfg.StrategyName),
		attribute.Int64("sim.seed", e.cfg.Seed),
		attribute.Int("sim.steps", e.cfg.Steps),
		attribute.Int("sim.drones", e.cfg.DroneCount),
	))
	defer span.End()

	// One shared source seeds everything randomized: field clusters, noise
	// and drone placement. Identical config and seed reproduce the run
	// bit for bit.
	rng := rand.New(rand.NewSource(e.cfg.Seed))
	e.field = NewOceanField(e.cfg.Bounds, e.cfg.CellKm, e.cfg.Field, rng)

	start := e.cfg.Bounds.Center()
	e.system = NewCatchingSystem(start)
	e.drones = NewDroneFleet(e.cfg.Pattern, e.cfg.DroneCount, start, e.strat, e.cfg.Bounds, rng)

	for _, d := range e.drones {
		if err := e.runLog.RegisterActor(d.ID()); err != nil {
			return nil, err
		}
	}
	if err := e.runLog.RegisterActor(e.system.ID()); err != nil {
		return nil, err
	}

	initialMass := e.field.TotalMass()
	e.log.Info(ctx, "simulation started",
		logging.String("pattern", string(e.cfg.Pattern)),
		logging.String("strategy", e.cfg.StrategyName),
		logging.Int64("seed", e.cfg.Seed),
		logging.Int("steps", e.cfg.Steps),
		logging.Int("drones", e.cfg.DroneCount),
		logging.Float64("initial_mass", initialMass),
	)

	env := &Environment{
		Bounds: e.cfg.Bounds,
		OnClamp: func(actorID string, raw, clamped Vec2) {
			e.clamps++
			e.log.Debug(ctx, "position clamped to map bounds",
				logging.String("actor", actorID),
				logging.Float64("raw_x", raw.X), logging.Float64("raw_y", raw.Y),
				logging.Float64("x", clamped.X), logging.Float64("y", clamped.Y),
			)
		},
	}

	completed := 0
	for step := 1; step <= e.cfg.Steps; step++ {
		select {
		case <-ctx.Done():
			span.AddEvent("run cancelled", trace.WithAttributes(
				attribute.Int("sim.completed_steps", completed),
			))
			e.state.Store(int32(StateCompleted))
			e.log.Warn(ctx, "simulation cancelled",
				logging.Int("completed_steps", completed),
				logging.Int("requested_steps", e.cfg.Steps),
			)
			return e.result(completed, initialMass), ctx.Err()
		default:
		}

		e.runStep(ctx, env, step)
		completed = step
	}

	e.state.Store(int32(StateCompleted))
	res := e.result(completed, initialMass)
	span.SetAttributes(
		attribute.Float64("sim.particles_detected", res.Stats.ParticlesDetected),
		attribute.Float64("sim.particles_processed", res.Stats.ParticlesProcessed),
	)
	e.log.Info(ctx, "simulation completed",
		logging.Int("steps", completed),
		logging.Float64("particles_detected", res.Stats.ParticlesDetected),
		logging.Float64("particles_processed", res.Stats.ParticlesProcessed),
		logging.Float64("efficiency", res.Stats.Efficiency),
	)
	return res, nil
}

// runStep executes one step: reports against the pre-step field snapshot,
// drone motion, collector steering and removal, drift, then bookkeeping. The
// step boundary is the unit of consistency; nothing here blocks.
func (e *SimulationEngine) runStep(ctx context.Context, env *Environment, step int) {
	begin := time.Now()
	at := e.clock.Advance()

	// The collector pose drones see is the one from the start of the step.
	env.System = e.system.Pose()

	reports := make([]model.DensityReport, 0, len(e.drones))
	var detected float64
	for _, d := range e.drones {
		rep := d.Report(e.field, step, at)
		reports = append(reports, rep)
		detected += rep.Density
	}

	for _, d := range e.drones {
		d.Step(env, e.cfg.DtHours)
	}

	removed, requested := e.system.Step(env, e.field, e.cfg.DtHours, reports)
	if removed < requested {
		e.underflows++
		e.log.Debug(ctx, "removal clamped to available density",
			logging.Int("step", step),
			logging.Float64("requested", requested),
			logging.Float64("removed", removed),
		)
	}

	systemDensity := e.field.SampleDensity(e.system.Pose().Position, SystemSpanKm/2)

	e.field.Drift(e.cfg.WindXKmh, e.cfg.WindYKmh, e.cfg.DtHours)

	for _, d := range e.drones {
		e.appendTrack(ctx, step, d.ID(), d.Pose())
	}
	e.appendTrack(ctx, step, e.system.ID(), e.system.Pose())

	e.detected += detected
	e.processed += removed
	stats := model.StepStats{
		Step:                step,
		ParticlesDetected:   detected,
		ParticlesProcessed:  removed,
		CumulativeProcessed: e.processed,
		SystemDensity:       systemDensity,
	}
	e.runLog.AppendStep(stats)

	if len(e.stepListeners) == 0 {
		return
	}
	snap := StepSnapshot{
		Stats:             stats,
		FieldMass:         e.field.TotalMass(),
		BoundsClamps:      e.clamps,
		DensityUnderflows: e.underflows,
		Duration:          time.Since(begin),
	}
	for _, fn := range e.stepListeners {
		fn(snap)
	}
}

func (e *SimulationEngine) appendTrack(ctx context.Context, step int, actorID string, pose Pose) {
	err := e.runLog.AppendTrack(model.TrackPoint{
		StepIndex:  step,
		ActorID:    actorID,
		XKm:        pose.Position.X,
		YKm:        pose.Position.Y,
		HeadingDeg: pose.HeadingDeg,
	})
	if err != nil {
		// Actors are registered before the loop; this indicates a bug, not a
		// run-time condition.
		e.log.Error(ctx, "trajectory append failed",
			logging.String("actor", actorID), logging.Any("error", err))
	}
}

func (e *SimulationEngine) result(completed int, initialMass float64) *RunResult {
	efficiency := 0.0
	if e.detected > 0 {
		efficiency = e.processed / e.detected
	}
	return &RunResult{
		Seed:           e.cfg.Seed,
		StepsCompleted: completed,
		Stats: model.RunStats{
			TotalSteps:         completed,
			ParticlesDetected:  e.detected,
			ParticlesProcessed: e.processed,
			Efficiency:         efficiency,
		},
		Log:               e.runLog,
		InitialMass:       initialMass,
		FinalMass:         e.field.TotalMass(),
		BoundsClamps:      e.clamps,
		DensityUnderflows: e.underflows,
	}
}
