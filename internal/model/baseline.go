package model

import "time"

// BehaviorBaseline is the learned normal behavioral envelope for a single
// device. Owned 1:1 by its Device. All confidence fields stay in [0,1];
// volume is unbounded but never negative.
type BehaviorBaseline struct {
	AvgDailyVolumeMB float64 `json:"avg_daily_volume_mb"`
	// PeakHourStart/PeakHourEnd bound the expected activity window (0-23).
	// PeakHourEnd == 0 means "runs to midnight": no upper bound is applied.
	PeakHourStart     int       `json:"peak_hour_start"`
	PeakHourEnd       int       `json:"peak_hour_end"`
	AllowedDomains    []string  `json:"allowed_domains"`
	TypicalProtocols  []string  `json:"typical_protocols"`
	AllowedPorts      []int     `json:"allowed_ports"`
	LearningProgress  float64   `json:"learning_progress"`
	NeuralConsistency float64   `json:"neural_consistency"`
	LastDriftUpdate   time.Time `json:"last_drift_update"`
}
