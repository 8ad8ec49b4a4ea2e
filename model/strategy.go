package model

// Strategy is one published scan-geometry parameter set for lawnmower
// sweeps. The field names and units are a stable external contract:
// presentation layers display them verbatim, so the struct tags must
// round-trip unchanged through JSON and YAML.
type Strategy struct {
	Name string `json:"name" yaml:"name"`

	AreaKm2         float64 `json:"Area (km²)" yaml:"Area (km²)"`
	KwPct           float64 `json:"Kw (%)" yaml:"Kw (%)"`
	KpPct           float64 `json:"Kp (%)" yaml:"Kp (%)"`
	HKm             float64 `json:"H (km)" yaml:"H (km)"`
	VKm             float64 `json:"V (km)" yaml:"V (km)"`
	TotalDistanceKm float64 `json:"Total distance traveled (km)" yaml:"Total distance traveled (km)"`
	SpeedKmh        float64 `json:"Drone speed (km/h)" yaml:"Drone speed (km/h)"`
	ScanTime        string  `json:"Time needed for the scan (h/days/min)" yaml:"Time needed for the scan (h/days/min)"`
}
