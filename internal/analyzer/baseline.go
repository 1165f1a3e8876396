package analyzer

import (
	"time"

	"iot-shield/internal/model"
)

// Drift parameters. Convergence is deliberately slow so that one noisy
// sample can never snap the baseline in a single step.
const (
	calmScoreThreshold   = 0.2
	volumeDriftWeight    = 0.005
	learningIncrement    = 0.0001
	consistencyIncrement = 0.001
	consistencyDecay     = 0.01
	consistencyFloor     = 0.70
	consistencyCeiling   = 0.99
)

// InitialBaseline returns the seeded behavioral envelope for a device type,
// used when a device is provisioned before any learning has happened.
func InitialBaseline(t model.DeviceType) *model.BehaviorBaseline {
	base := model.BehaviorBaseline{
		LearningProgress:  0.85,
		NeuralConsistency: 0.98,
		LastDriftUpdate:   time.Now(),
	}

	switch t {
	case model.DeviceCamera:
		base.AvgDailyVolumeMB = 1200
		base.PeakHourStart = 7
		base.PeakHourEnd = 22
		base.AllowedDomains = []string{"cloud.cam-vendor.com", "ntp.pool.org"}
		base.TypicalProtocols = []string{"RTSP", "HTTPS", "UDP"}
		base.AllowedPorts = []int{554, 443, 123, 80}
	case model.DeviceLight:
		base.AvgDailyVolumeMB = 5
		base.PeakHourStart = 18
		base.PeakHourEnd = 23
		base.AllowedDomains = []string{"iot.tuya.com"}
		base.TypicalProtocols = []string{"MQTT", "TLS"}
		base.AllowedPorts = []int{8883, 443}
	case model.DeviceTV:
		base.AvgDailyVolumeMB = 5000
		base.PeakHourStart = 17
		base.PeakHourEnd = 0 // runs to midnight
		base.AllowedDomains = []string{"netflix.com", "youtube.com", "samsung.com", "internal-mesh.local"}
		base.TypicalProtocols = []string{"HTTPS", "SSDP", "mDNS"}
		base.AllowedPorts = []int{443, 80, 1900, 5353}
	default:
		base.AvgDailyVolumeMB = 100
		base.PeakHourStart = 9
		base.PeakHourEnd = 17
		base.AllowedDomains = []string{"google.com"}
		base.TypicalProtocols = []string{"HTTP", "HTTPS"}
		base.AllowedPorts = []int{80, 443}
	}

	return &base
}

// UpdateDrift adjusts a device's baseline using the score the analyzer just
// produced for ev. Calm traffic nudges the volume average toward the sample
// and reinforces confidence; anomalous traffic decays consistency toward its
// floor. The drift timestamp is always refreshed.
func UpdateDrift(device *model.Device, ev model.TelemetryEvent, score float64) *model.BehaviorBaseline {
	if device.BehaviorBaseline == nil {
		return InitialBaseline(device.Type)
	}

	updated := *device.BehaviorBaseline
	if score < calmScoreThreshold {
		updated.AvgDailyVolumeMB = updated.AvgDailyVolumeMB*(1-volumeDriftWeight) + ev.VolumeMB*volumeDriftWeight
		updated.LearningProgress = min(1.0, updated.LearningProgress+learningIncrement)
		updated.NeuralConsistency = min(consistencyCeiling, updated.NeuralConsistency+consistencyIncrement)
	} else {
		updated.NeuralConsistency = max(consistencyFloor, updated.NeuralConsistency-consistencyDecay)
	}
	updated.LastDriftUpdate = time.Now()
	return &updated
}
