// Package telemetry exports finished run artifacts: the trajectory and
// per-step CSV files consumed by the rendering collaborator plus a YAML run
// manifest echoing the resolved configuration and aggregates.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/cleanup-simulator/core"
	"github.com/signalsfoundry/cleanup-simulator/model"
)

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir       string
	trackFile *os.File
	stepsFile *os.File

	// Track if headers have been written
	trackHeaderWritten bool
	stepsHeaderWritten bool
}

// NewOutputManager creates a new output manager and initializes the output
// directory. Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	trackPath := filepath.Join(dir, "trajectories.csv")
	f, err := os.Create(trackPath)
	if err != nil {
		return nil, fmt.Errorf("creating trajectories.csv: %w", err)
	}
	om.trackFile = f

	stepsPath := filepath.Join(dir, "steps.csv")
	f, err = os.Create(stepsPath)
	if err != nil {
		om.trackFile.Close()
		return nil, fmt.Errorf("creating steps.csv: %w", err)
	}
	om.stepsFile = f

	return om, nil
}

// WriteTrackPoints appends trajectory records to trajectories.csv.
func (om *OutputManager) WriteTrackPoints(points []model.TrackPoint) error {
	if om == nil || len(points) == 0 {
		return nil
	}

	if !om.trackHeaderWritten {
		// First write includes headers
		if err := gocsv.Marshal(points, om.trackFile); err != nil {
			return fmt.Errorf("writing trajectories: %w", err)
		}
		om.trackHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(points, om.trackFile); err != nil {
		return fmt.Errorf("writing trajectories: %w", err)
	}
	return nil
}

// WriteSteps appends per-step statistics records to steps.csv.
func (om *OutputManager) WriteSteps(stats []model.StepStats) error {
	if om == nil || len(stats) == 0 {
		return nil
	}

	if !om.stepsHeaderWritten {
		if err := gocsv.Marshal(stats, om.stepsFile); err != nil {
			return fmt.Errorf("writing steps: %w", err)
		}
		om.stepsHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(stats, om.stepsFile); err != nil {
		return fmt.Errorf("writing steps: %w", err)
	}
	return nil
}

// RunManifest is the YAML run summary written next to the CSV files. It
// echoes the resolved configuration (seed included, so the run can be
// reproduced) plus the run aggregates.
type RunManifest struct {
	GeneratedAt time.Time `yaml:"generated_at"`

	Pattern     string  `yaml:"pattern"`
	Strategy    string  `yaml:"strategy,omitempty"`
	Seed        int64   `yaml:"seed"`
	Steps       int     `yaml:"steps"`
	MapWidthKm  float64 `yaml:"map_width_km"`
	MapHeightKm float64 `yaml:"map_height_km"`
	DroneCount  int     `yaml:"drone_count"`
	DtHours     float64 `yaml:"dt_hours"`

	Stats             model.RunStats `yaml:"stats"`
	InitialMass       float64        `yaml:"initial_mass"`
	FinalMass         float64        `yaml:"final_mass"`
	BoundsClamps      int            `yaml:"bounds_clamps"`
	DensityUnderflows int            `yaml:"density_underflows"`

	// Per-step detection summary.
	DetectedMeanPerStep   float64 `yaml:"detected_mean_per_step"`
	DetectedStdDevPerStep float64 `yaml:"detected_stddev_per_step"`
}

// WriteManifest saves the run manifest as run.yaml.
func (om *OutputManager) WriteManifest(m RunManifest) error {
	if om == nil {
		return nil
	}

	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("marshaling run manifest: %w", err)
	}

	manifestPath := filepath.Join(om.dir, "run.yaml")
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return fmt.Errorf("writing run.yaml: %w", err)
	}
	return nil
}

// ExportRun writes a finished run's full artifact set: every actor's
// trajectory in registration order, the per-step series and the manifest.
// It returns the number of CSV rows written.
func (om *OutputManager) ExportRun(cfg core.Config, result *core.RunResult) (int, error) {
	if om == nil || result == nil {
		return 0, nil
	}

	rows := 0
	for _, actorID := range result.Log.ActorIDs() {
		track, err := result.Log.Track(actorID)
		if err != nil {
			return rows, fmt.Errorf("reading trajectory of %s: %w", actorID, err)
		}
		if err := om.WriteTrackPoints(track); err != nil {
			return rows, err
		}
		rows += len(track)
	}

	steps := result.Log.Steps()
	if err := om.WriteSteps(steps); err != nil {
		return rows, err
	}
	rows += len(steps)

	detected := make([]float64, len(steps))
	for i, s := range steps {
		detected[i] = s.ParticlesDetected
	}
	manifest := RunManifest{
		GeneratedAt: time.Now().UTC(),
		Pattern:     string(cfg.Pattern),
		Strategy:    cfg.StrategyName,
		Seed:        result.Seed,
		Steps:       result.StepsCompleted,
		MapWidthKm:  cfg.Bounds.WidthKm,
		MapHeightKm: cfg.Bounds.HeightKm,
		DroneCount:  cfg.DroneCount,
		DtHours:     cfg.DtHours,

		Stats:             result.Stats,
		InitialMass:       result.InitialMass,
		FinalMass:         result.FinalMass,
		BoundsClamps:      result.BoundsClamps,
		DensityUnderflows: result.DensityUnderflows,
	}
	if len(detected) > 0 {
		manifest.DetectedMeanPerStep = stat.Mean(detected, nil)
		manifest.DetectedStdDevPerStep = stat.StdDev(detected, nil)
	}
	if err := om.WriteManifest(manifest); err != nil {
		return rows, err
	}
	return rows, nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error

	if om.trackFile != nil {
		if err := om.trackFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if om.stepsFile != nil {
		if err := om.stepsFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
