// core/scenario_loader.go
package core

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
)

// Default scenario values. Anything a scenario file leaves out falls back to
// the standard 100x100 km run: 1 km cells, a 0.5-knot easterly drift and a
// fleet size chosen by pattern.
const (
	DefaultSteps           = 200
	DefaultMapKm           = 100.0
	DefaultDtHours         = 0.1
	DefaultCellKm          = 1.0
	DefaultClusterCount    = 8
	DefaultClusterPeak     = 1.0
	DefaultClusterRadiusKm = 5.0
	DefaultBaseNoise       = 0.05
	DefaultWindXKmh        = 0.93
	DefaultWindYKmh        = 0.0
)

// internal JSON shapes - kept unexported so we're free to evolve them.
// Pointer fields distinguish "absent, use the default" from explicit zeros,
// which the engine then rejects as configuration errors.
type scenarioJSON struct {
	Pattern         string               `json:"pattern"`
	StrategyName    string               `json:"strategy_name"`
	Seed            *int64               `json:"seed"`
	Steps           *int                 `json:"steps"`
	MapWidthKm      *float64             `json:"map_width_km"`
	MapHeightKm     *float64             `json:"map_height_km"`
	DroneCount      *int                 `json:"drone_count"`
	DtHours         *float64             `json:"dt_hours"`
	ParticleDensity *particleDensityJSON `json:"particle_density"`
}

type particleDensityJSON struct {
	ClusterCount    *int     `json:"cluster_count"`
	BaseNoise       *float64 `json:"base_noise"`
	ClusterPeak     *float64 `json:"cluster_peak"`
	ClusterRadiusKm *float64 `json:"cluster_radius_km"`
	WindXKmh        *float64 `json:"wind_x_kmh"`
	WindYKmh        *float64 `json:"wind_y_kmh"`
	CellKm          *float64 `json:"cell_km"`
}

// DefaultScenario returns the fully defaulted configuration for a pattern
// with a freshly generated seed.
func DefaultScenario(pattern Pattern) Config {
	return Config{
		Pattern:    pattern,
		Seed:       rand.Int63(),
		Steps:      DefaultSteps,
		Bounds:     Bounds{WidthKm: DefaultMapKm, HeightKm: DefaultMapKm},
		DroneCount: pattern.DefaultDroneCount(),
		DtHours:    DefaultDtHours,
		Field: FieldConfig{
			ClusterCount:    DefaultClusterCount,
			ClusterPeak:     DefaultClusterPeak,
			ClusterRadiusKm: DefaultClusterRadiusKm,
			BaseNoise:       DefaultBaseNoise,
		},
		WindXKmh: DefaultWindXKmh,
		WindYKmh: DefaultWindYKmh,
		CellKm:   DefaultCellKm,
	}
}

// LoadScenario reads a JSON scenario from r and resolves defaults. A missing
// seed is generated here and echoed back through the returned Config so the
// run can be reproduced. Value validation stays with NewSimulationEngine;
// this fails only on JSON and pattern errors.
func LoadScenario(r io.Reader) (Config, error) {
	var payload scenarioJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return Config{}, fmt.Errorf("%w: decoding scenario: %v", ErrConfiguration, err)
	}

	pattern := PatternLawnmower
	if payload.Pattern != "" {
		p, err := ParsePattern(payload.Pattern)
		if err != nil {
			return Config{}, err
		}
		pattern = p
	}

	cfg := DefaultScenario(pattern)
	cfg.StrategyName = payload.StrategyName

	if payload.Seed != nil {
		cfg.Seed = *payload.Seed
	}
	if payload.Steps != nil {
		cfg.Steps = *payload.Steps
	}
	if payload.MapWidthKm != nil {
		cfg.Bounds.WidthKm = *payload.MapWidthKm
	}
	if payload.MapHeightKm != nil {
		cfg.Bounds.HeightKm = *payload.MapHeightKm
	}
	if payload.DroneCount != nil {
		cfg.DroneCount = *payload.DroneCount
	}
	if payload.DtHours != nil {
		cfg.DtHours = *payload.DtHours
	}

	if pd := payload.ParticleDensity; pd != nil {
		if pd.ClusterCount != nil {
			cfg.Field.ClusterCount = *pd.ClusterCount
		}
		if pd.BaseNoise != nil {
			cfg.Field.BaseNoise = *pd.BaseNoise
		}
		if pd.ClusterPeak != nil {
			cfg.Field.ClusterPeak = *pd.ClusterPeak
		}
		if pd.ClusterRadiusKm != nil {
			cfg.Field.ClusterRadiusKm = *pd.ClusterRadiusKm
		}
		if pd.WindXKmh != nil {
			cfg.WindXKmh = *pd.WindXKmh
		}
		if pd.WindYKmh != nil {
			cfg.WindYKmh = *pd.WindYKmh
		}
		if pd.CellKm != nil {
			cfg.CellKm = *pd.CellKm
		}
	}

	return cfg, nil
}

// LoadScenarioFile opens path and delegates to LoadScenario.
func LoadScenarioFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: opening scenario file: %v", ErrConfiguration, err)
	}
	defer f.Close()
	return LoadScenario(f)
}
