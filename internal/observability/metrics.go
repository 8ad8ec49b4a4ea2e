package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StepObservation carries one completed simulation step into the collector.
// Clamp and underflow counts are cumulative over the run; the collector
// converts them to counter increments.
type StepObservation struct {
	Pattern           string
	Step              int
	Detected          float64
	Processed         float64
	FieldMass         float64
	BoundsClamps      int
	DensityUnderflows int
	Duration          time.Duration
}

// SimCollector bundles Prometheus metrics for the simulation loop and
// provides a ready-to-serve /metrics handler.
type SimCollector struct {
	gatherer prometheus.Gatherer

	ParticlesDetected  prometheus.Counter
	ParticlesProcessed prometheus.Counter
	BoundsClamps       prometheus.Counter
	DensityUnderflows  prometheus.Counter

	FieldMass      prometheus.Gauge
	StepsCompleted prometheus.Gauge

	StepDurations *prometheus.HistogramVec
	Runs          *prometheus.CounterVec

	lastClamps     int
	lastUnderflows int
}

// NewSimCollector registers simulation Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	detected, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_particles_detected_total",
		Help: "Total particle density reported by drones across all steps.",
	}), "sim_particles_detected_total")
	if err != nil {
		return nil, err
	}
	processed, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_particles_processed_total",
		Help: "Total particle density removed by the catching system.",
	}), "sim_particles_processed_total")
	if err != nil {
		return nil, err
	}
	clamps, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_bounds_clamps_total",
		Help: "Positions pulled back inside the map bounds.",
	}), "sim_bounds_clamps_total")
	if err != nil {
		return nil, err
	}
	underflows, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_density_underflows_total",
		Help: "Removal requests clamped to the available density.",
	}), "sim_density_underflows_total")
	if err != nil {
		return nil, err
	}

	mass, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_field_mass",
		Help: "Total particle mass currently in the ocean field.",
	}), "sim_field_mass")
	if err != nil {
		return nil, err
	}
	steps, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_steps_completed",
		Help: "Steps completed by the current run.",
	}), "sim_steps_completed")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sim_step_duration_seconds",
		Help:    "Wall-clock duration of one simulation step.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	}, []string{"pattern"})
	durations, err = registerHistogramVec(reg, durations, "sim_step_duration_seconds")
	if err != nil {
		return nil, err
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_runs_total",
		Help: "Finished simulation runs, labeled by outcome (completed or cancelled).",
	}, []string{"outcome"})
	runs, err = registerCounterVec(reg, runs, "sim_runs_total")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:           gatherer,
		ParticlesDetected:  detected,
		ParticlesProcessed: processed,
		BoundsClamps:       clamps,
		DensityUnderflows:  underflows,
		FieldMass:          mass,
		StepsCompleted:     steps,
		StepDurations:      durations,
		Runs:               runs,
	}, nil
}

// ObserveStep records a completed step.
func (c *SimCollector) ObserveStep(o StepObservation) {
	if c == nil {
		return
	}
	if c.ParticlesDetected != nil {
		c.ParticlesDetected.Add(o.Detected)
	}
	if c.ParticlesProcessed != nil {
		c.ParticlesProcessed.Add(o.Processed)
	}
	if c.BoundsClamps != nil {
		c.BoundsClamps.Add(float64(counterDelta(&c.lastClamps, o.BoundsClamps)))
	}
	if c.DensityUnderflows != nil {
		c.DensityUnderflows.Add(float64(counterDelta(&c.lastUnderflows, o.DensityUnderflows)))
	}
	if c.FieldMass != nil {
		c.FieldMass.Set(o.FieldMass)
	}
	if c.StepsCompleted != nil {
		c.StepsCompleted.Set(float64(o.Step))
	}
	if c.StepDurations != nil {
		c.StepDurations.WithLabelValues(o.Pattern).Observe(o.Duration.Seconds())
	}
}

// MarkRun counts a finished run by outcome and resets the per-run cumulative
// trackers.
func (c *SimCollector) MarkRun(outcome string) {
	if c == nil {
		return
	}
	if c.Runs != nil {
		c.Runs.WithLabelValues(outcome).Inc()
	}
	c.lastClamps = 0
	c.lastUnderflows = 0
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// counterDelta converts a cumulative reading into an increment, treating a
// smaller reading as a restart.
func counterDelta(last *int, current int) int {
	delta := current - *last
	if delta < 0 {
		delta = current
	}
	*last = current
	return delta
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
