package core

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/signalsfoundry/cleanup-simulator/strategy"
)

func testConfig(pattern Pattern) Config {
	return Config{
		Pattern:      pattern,
		StrategyName: "1:5 Ratio",
		Seed:         12345,
		Steps:        10,
		Bounds:       Bounds{WidthKm: 100, HeightKm: 100},
		DroneCount:   2,
		DtHours:      0.1,
		Field: FieldConfig{
			ClusterCount:    8,
			ClusterPeak:     1.0,
			ClusterRadiusKm: 5.0,
			BaseNoise:       0.05,
		},
		WindXKmh: 0.93,
		WindYKmh: 0,
		CellKm:   1,
	}
}

func mustRun(t *testing.T, cfg Config) *RunResult {
	t.Helper()
	engine, err := NewSimulationEngine(cfg, strategy.Builtin(), nil)
	if err != nil {
		t.Fatalf("NewSimulationEngine: %v", err)
	}
	res, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func TestEngineLawnmowerRun(t *testing.T) {
	cfg := testConfig(PatternLawnmower)
	engine, err := NewSimulationEngine(cfg, strategy.Builtin(), nil)
	if err != nil {
		t.Fatalf("NewSimulationEngine: %v", err)
	}

	strat := engine.Strategy()
	if strat.HKm != 1732 || strat.VKm != 866 || strat.SpeedKmh != 100 {
		t.Fatalf("resolved strategy = %+v, want 1:5 Ratio geometry", strat)
	}

	res, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if engine.State() != StateCompleted {
		t.Fatalf("state = %v after Run, want %v", engine.State(), StateCompleted)
	}
	if res.StepsCompleted != cfg.Steps {
		t.Fatalf("StepsCompleted = %d, want %d", res.StepsCompleted, cfg.Steps)
	}
	if res.Seed != cfg.Seed {
		t.Fatalf("Seed = %d, want %d", res.Seed, cfg.Seed)
	}

	wantActors := []string{"drone_0", "drone_1", SystemActorID}
	if got := res.Log.ActorIDs(); !reflect.DeepEqual(got, wantActors) {
		t.Fatalf("ActorIDs = %v, want %v", got, wantActors)
	}
	for _, id := range wantActors {
		track, err := res.Log.Track(id)
		if err != nil {
			t.Fatalf("Track(%q): %v", id, err)
		}
		if len(track) != cfg.Steps {
			t.Fatalf("track %q has %d points, want %d", id, len(track), cfg.Steps)
		}
		for i, p := range track {
			if p.StepIndex != i+1 {
				t.Fatalf("track %q point %d has StepIndex %d, want %d", id, i, p.StepIndex, i+1)
			}
			if p.ActorID != id {
				t.Fatalf("track %q point %d labeled %q", id, i, p.ActorID)
			}
		}
	}

	steps := res.Log.Steps()
	if len(steps) != cfg.Steps {
		t.Fatalf("got %d step records, want %d", len(steps), cfg.Steps)
	}
	if res.Stats.TotalSteps != cfg.Steps {
		t.Fatalf("Stats.TotalSteps = %d, want %d", res.Stats.TotalSteps, cfg.Steps)
	}
}

func TestEngineUnknownStrategyRejectedForAllPatterns(t *testing.T) {
	for _, pattern := range []Pattern{PatternLawnmower, PatternCircular, PatternAdaptive} {
		cfg := testConfig(pattern)
		cfg.StrategyName = "9:1 Ratio"

		engine, err := NewSimulationEngine(cfg, strategy.Builtin(), nil)
		if err == nil {
			t.Fatalf("pattern %s accepted unknown strategy", pattern)
		}
		if !errors.Is(err, ErrConfiguration) {
			t.Fatalf("pattern %s error = %v, want ErrConfiguration", pattern, err)
		}
		if !strings.Contains(err.Error(), "9:1 Ratio") {
			t.Fatalf("error %q does not name the offending strategy", err)
		}
		if engine != nil {
			t.Fatalf("pattern %s returned an engine alongside the error", pattern)
		}
	}
}

// Circular fleets do not consume the strategy geometry, so a run with a valid
// strategy name and one with none must be indistinguishable at equal seeds.
func TestEngineCircularIgnoresStrategy(t *testing.T) {
	named := testConfig(PatternCircular)
	named.DroneCount = 5

	unnamed := named
	unnamed.StrategyName = ""

	a := mustRun(t, named)
	b := mustRun(t, unnamed)

	if !reflect.DeepEqual(a.Log.ActorIDs(), b.Log.ActorIDs()) {
		t.Fatalf("actor sets differ: %v vs %v", a.Log.ActorIDs(), b.Log.ActorIDs())
	}
	for _, id := range a.Log.ActorIDs() {
		ta, _ := a.Log.Track(id)
		tb, _ := b.Log.Track(id)
		if !reflect.DeepEqual(ta, tb) {
			t.Fatalf("track %q differs between named and unnamed strategy runs", id)
		}
	}
	if !reflect.DeepEqual(a.Log.Steps(), b.Log.Steps()) {
		t.Fatalf("step statistics differ between named and unnamed strategy runs")
	}
}

func TestEngineEmptyStrategyDefaultsForLawnmower(t *testing.T) {
	cfg := testConfig(PatternLawnmower)
	cfg.StrategyName = ""

	engine, err := NewSimulationEngine(cfg, strategy.Builtin(), nil)
	if err != nil {
		t.Fatalf("NewSimulationEngine: %v", err)
	}
	if got := engine.Config().StrategyName; got != strategy.DefaultName {
		t.Fatalf("resolved StrategyName = %q, want %q", got, strategy.DefaultName)
	}
	if got := engine.Strategy().Name; got != strategy.DefaultName {
		t.Fatalf("resolved strategy = %q, want %q", got, strategy.DefaultName)
	}
}

func TestEngineDeterministicAcrossRuns(t *testing.T) {
	for _, pattern := range []Pattern{PatternLawnmower, PatternCircular, PatternAdaptive} {
		cfg := testConfig(pattern)
		cfg.DroneCount = pattern.DefaultDroneCount()

		a := mustRun(t, cfg)
		b := mustRun(t, cfg)

		if a.Stats != b.Stats {
			t.Fatalf("pattern %s: run stats differ: %+v vs %+v", pattern, a.Stats, b.Stats)
		}
		if a.InitialMass != b.InitialMass || a.FinalMass != b.FinalMass {
			t.Fatalf("pattern %s: mass accounting differs across identical runs", pattern)
		}
		if !reflect.DeepEqual(a.Log.ActorIDs(), b.Log.ActorIDs()) {
			t.Fatalf("pattern %s: actor sets differ", pattern)
		}
		for _, id := range a.Log.ActorIDs() {
			ta, _ := a.Log.Track(id)
			tb, _ := b.Log.Track(id)
			if !reflect.DeepEqual(ta, tb) {
				t.Fatalf("pattern %s: track %q differs across identical runs", pattern, id)
			}
		}
		if !reflect.DeepEqual(a.Log.Steps(), b.Log.Steps()) {
			t.Fatalf("pattern %s: step statistics differ across identical runs", pattern)
		}
	}
}

func TestEngineStepStatisticsInvariants(t *testing.T) {
	cfg := testConfig(PatternLawnmower)
	cfg.Steps = 50
	res := mustRun(t, cfg)

	prevCumulative := 0.0
	for i, s := range res.Log.Steps() {
		if s.Step != i+1 {
			t.Fatalf("step record %d has Step %d, want %d", i, s.Step, i+1)
		}
		if s.ParticlesDetected < 0 || s.ParticlesProcessed < 0 || s.SystemDensity < 0 {
			t.Fatalf("step %d has negative statistics: %+v", s.Step, s)
		}
		if s.ParticlesProcessed > s.ParticlesDetected+1e-12 {
			t.Fatalf("step %d processed %v > detected %v", s.Step, s.ParticlesProcessed, s.ParticlesDetected)
		}
		if s.CumulativeProcessed < prevCumulative {
			t.Fatalf("step %d cumulative processed decreased: %v -> %v",
				s.Step, prevCumulative, s.CumulativeProcessed)
		}
		prevCumulative = s.CumulativeProcessed
	}

	if res.Stats.Efficiency < 0 || res.Stats.Efficiency > 1+1e-12 {
		t.Fatalf("efficiency = %v, want within [0, 1]", res.Stats.Efficiency)
	}
	if math.Abs(res.Stats.ParticlesProcessed-prevCumulative) > 1e-12 {
		t.Fatalf("run total processed %v != final cumulative %v",
			res.Stats.ParticlesProcessed, prevCumulative)
	}
}

// Drift conserves mass, so whatever left the field must equal what the
// collector removed.
func TestEngineMassAccounting(t *testing.T) {
	cfg := testConfig(PatternLawnmower)
	cfg.Steps = 50
	res := mustRun(t, cfg)

	if res.InitialMass <= 0 {
		t.Fatalf("InitialMass = %v, want positive", res.InitialMass)
	}
	removedFromField := res.InitialMass - res.FinalMass
	if math.Abs(removedFromField-res.Stats.ParticlesProcessed) > 1e-6 {
		t.Fatalf("field lost %v mass but run processed %v", removedFromField, res.Stats.ParticlesProcessed)
	}
}

func TestEngineSystemHonorsTurnRate(t *testing.T) {
	cfg := testConfig(PatternLawnmower)
	cfg.Steps = 100
	res := mustRun(t, cfg)

	track, err := res.Log.Track(SystemActorID)
	if err != nil {
		t.Fatalf("Track(%q): %v", SystemActorID, err)
	}

	maxTurn := SystemMaxTurnDegH*cfg.DtHours + 1e-9
	prev := 0.0 // launch heading
	for _, p := range track {
		if turn := math.Abs(HeadingDiff(prev, p.HeadingDeg)); turn > maxTurn {
			t.Fatalf("step %d: system turned %v degrees, want <= %v", p.StepIndex, turn, maxTurn)
		}
		prev = p.HeadingDeg
	}
}

func TestEngineCancellationReturnsPartialResult(t *testing.T) {
	cfg := testConfig(PatternLawnmower)
	cfg.Steps = 100

	engine, err := NewSimulationEngine(cfg, strategy.Builtin(), nil)
	if err != nil {
		t.Fatalf("NewSimulationEngine: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine.RegisterStepListener(func(s StepSnapshot) {
		if s.Stats.Step == 3 {
			cancel()
		}
	})

	res, err := engine.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if res == nil {
		t.Fatal("cancelled Run returned nil result")
	}
	if res.StepsCompleted != 3 {
		t.Fatalf("StepsCompleted = %d, want 3", res.StepsCompleted)
	}
	if engine.State() != StateCompleted {
		t.Fatalf("state = %v after cancellation, want %v", engine.State(), StateCompleted)
	}
	for _, id := range res.Log.ActorIDs() {
		track, _ := res.Log.Track(id)
		if len(track) != 3 {
			t.Fatalf("track %q has %d points after cancellation, want 3", id, len(track))
		}
	}
	if got := res.Log.StepCount(); got != 3 {
		t.Fatalf("StepCount = %d after cancellation, want 3", got)
	}
}

func TestEngineRunIsSingleUse(t *testing.T) {
	cfg := testConfig(PatternLawnmower)
	engine, err := NewSimulationEngine(cfg, strategy.Builtin(), nil)
	if err != nil {
		t.Fatalf("NewSimulationEngine: %v", err)
	}
	if _, err := engine.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	res, err := engine.Run(context.Background())
	if err == nil {
		t.Fatal("second Run succeeded, want error")
	}
	if res != nil {
		t.Fatalf("second Run returned a result: %+v", res)
	}
	if !strings.Contains(err.Error(), "single-use") {
		t.Fatalf("second Run error = %q, want single-use notice", err)
	}
}

func TestEngineConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty pattern", func(c *Config) { c.Pattern = "" }},
		{"unknown pattern", func(c *Config) { c.Pattern = "spiral" }},
		{"zero steps", func(c *Config) { c.Steps = 0 }},
		{"negative steps", func(c *Config) { c.Steps = -5 }},
		{"zero width", func(c *Config) { c.Bounds.WidthKm = 0 }},
		{"negative height", func(c *Config) { c.Bounds.HeightKm = -10 }},
		{"zero drones", func(c *Config) { c.DroneCount = 0 }},
		{"zero dt", func(c *Config) { c.DtHours = 0 }},
		{"zero cell", func(c *Config) { c.CellKm = 0 }},
		{"negative cluster peak", func(c *Config) { c.Field.ClusterPeak = -1 }},
	}

	for _, tc := range cases {
		cfg := testConfig(PatternLawnmower)
		tc.mutate(&cfg)

		if _, err := NewSimulationEngine(cfg, strategy.Builtin(), nil); !errors.Is(err, ErrConfiguration) {
			t.Fatalf("%s: error = %v, want ErrConfiguration", tc.name, err)
		}
	}

	if _, err := NewSimulationEngine(testConfig(PatternLawnmower), nil, nil); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("nil catalog: error = %v, want ErrConfiguration", err)
	}
}

func TestEngineStepListenerObservesEveryStep(t *testing.T) {
	cfg := testConfig(PatternLawnmower)
	engine, err := NewSimulationEngine(cfg, strategy.Builtin(), nil)
	if err != nil {
		t.Fatalf("NewSimulationEngine: %v", err)
	}

	var snaps []StepSnapshot
	engine.RegisterStepListener(func(s StepSnapshot) { snaps = append(snaps, s) })

	if _, err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(snaps) != cfg.Steps {
		t.Fatalf("listener saw %d steps, want %d", len(snaps), cfg.Steps)
	}
	prevClamps, prevUnderflows := 0, 0
	for i, s := range snaps {
		if s.Stats.Step != i+1 {
			t.Fatalf("snapshot %d has Step %d, want %d", i, s.Stats.Step, i+1)
		}
		if s.FieldMass <= 0 {
			t.Fatalf("snapshot %d has FieldMass %v, want positive", i, s.FieldMass)
		}
		if s.BoundsClamps < prevClamps || s.DensityUnderflows < prevUnderflows {
			t.Fatalf("snapshot %d cumulative counters decreased", i)
		}
		if s.Duration < 0 {
			t.Fatalf("snapshot %d has negative duration %v", i, s.Duration)
		}
		prevClamps, prevUnderflows = s.BoundsClamps, s.DensityUnderflows
	}
}
