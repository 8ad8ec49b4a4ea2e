package model

// TrackPoint is one per-step trajectory record for one actor. The CSV tags
// define the exported column layout consumed by the rendering collaborator.
type TrackPoint struct {
	StepIndex  int     `csv:"step_index" json:"step_index"`
	ActorID    string  `csv:"actor_id" json:"actor_id"`
	XKm        float64 `csv:"x_km" json:"x_km"`
	YKm        float64 `csv:"y_km" json:"y_km"`
	HeadingDeg float64 `csv:"heading_deg" json:"heading_deg"`
}

// StepStats is the per-step slice of the run's time series.
type StepStats struct {
	Step                int     `csv:"step" json:"step"`
	ParticlesDetected   float64 `csv:"particles_detected" json:"particles_detected"`
	ParticlesProcessed  float64 `csv:"particles_processed" json:"particles_processed"`
	CumulativeProcessed float64 `csv:"cumulative_processed" json:"cumulative_processed"`
	SystemDensity       float64 `csv:"system_density" json:"system_density"`
}

// RunStats aggregates a finished (or cancelled) run.
// Efficiency is processed/detected, zero when nothing was detected.
type RunStats struct {
	TotalSteps         int     `json:"total_steps" yaml:"total_steps"`
	ParticlesDetected  float64 `json:"particles_detected" yaml:"particles_detected"`
	ParticlesProcessed float64 `json:"particles_processed" yaml:"particles_processed"`
	Efficiency         float64 `json:"efficiency" yaml:"efficiency"`
}
