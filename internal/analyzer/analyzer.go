package analyzer

import (
	"fmt"
	"strings"

	"iot-shield/internal/model"

	"github.com/sirupsen/logrus"
)

// Heuristic weights. Each rule adds to the running reconstruction error
// independently; the final score saturates at 1.0.
const (
	portScanWeight    = 0.8
	bruteForceWeight  = 0.7
	egressWeight      = 0.4
	beaconWeight      = 0.5
	temporalWeight    = 0.35
	nightBonus        = 0.2
	minScanEvents     = 5
	minScanPorts      = 5
	minAuthAttempts   = 10
	minBeaconSamples  = 3
	beaconVarianceMax = 5000 // squared milliseconds
	offPeakVolumeFrac = 0.05
)

// authProtocols are the protocols counted toward the brute-force heuristic
var authProtocols = map[string]bool{
	"SSH":    true,
	"Telnet": true,
	"HTTP":   true,
	"HTTPS":  true,
}

// Verdict is the analyzer's judgement of a single telemetry event
type Verdict struct {
	Score        float64          `json:"score"`
	Reasons      []string         `json:"reasons"`
	DetectedType model.ThreatType `json:"detected_type,omitempty"`
}

// Analyzer scores telemetry events against each device's behavioral baseline.
// It is a rule-based approximation of a learned anomaly detector: four
// heuristics accumulate into a reconstruction error, capped at 1.0.
type Analyzer struct {
	windows *windowSet
	logger  *logrus.Logger
}

// New creates an analyzer keeping windowSize recent events per device
func New(windowSize int, logger *logrus.Logger) *Analyzer {
	return &Analyzer{
		windows: newWindowSet(windowSize),
		logger:  logger,
	}
}

// Analyze appends the event to the device's sliding window and scores it.
// Devices without a baseline yield a zero verdict: no detection happens until
// a baseline exists.
func (a *Analyzer) Analyze(device *model.Device, ev model.TelemetryEvent) Verdict {
	if device.BehaviorBaseline == nil {
		return Verdict{Score: 0, Reasons: []string{}}
	}

	baseline := device.BehaviorBaseline
	window := a.windows.get(device.ID)
	window.Append(ev)
	recent := window.Events()

	var err float64
	reasons := []string{}
	var detected model.ThreatType

	// 1. Port probing: many distinct ports touched in a short window
	uniquePorts := distinctPorts(recent)
	if uniquePorts >= minScanPorts && len(recent) >= minScanEvents {
		err += portScanWeight
		detected = model.ThreatPortScan
		reasons = append(reasons, fmt.Sprintf("Port Probing: Source contacted %d unique ports in short order.", uniquePorts))
	}

	// 2. Auth flood: high-frequency traffic on authentication protocols
	authAttempts := 0
	for _, e := range recent {
		if authProtocols[e.Protocol] {
			authAttempts++
		}
	}
	if authAttempts >= minAuthAttempts {
		err += bruteForceWeight
		detected = model.ThreatBruteForce
		reasons = append(reasons, fmt.Sprintf("Auth Flood: %d high-frequency authentication attempts detected.", authAttempts))
	}

	// 3. Egress violation plus C2 heartbeat periodicity
	if ev.IsOutbound && !destinationAllowed(baseline.AllowedDomains, ev.Destination) {
		err += egressWeight
		reasons = append(reasons, fmt.Sprintf("Egress Violation: Attempted connection to unauthorized domain [%s].", ev.Destination))

		var timestamps []int64
		for _, e := range recent {
			if e.IsOutbound && e.Destination == ev.Destination {
				timestamps = append(timestamps, e.Timestamp.UnixMilli())
			}
		}
		if len(timestamps) >= minBeaconSamples {
			mean, variance := intervalStats(timestamps)
			if variance < beaconVarianceMax {
				err += beaconWeight
				// last writer wins when an earlier heuristic also labeled
				detected = model.ThreatBotnetC2
				reasons = append(reasons, fmt.Sprintf("C2 Pattern: Periodic heartbeat signature detected (%.1fs interval).", mean/1000))
			}
		}
	}

	// 4. Temporal drift: meaningful volume outside the learned peak window.
	// PeakHourEnd == 0 means the window runs to midnight, so only the lower
	// bound applies.
	hour := ev.Timestamp.Hour()
	isNight := hour >= 0 && hour < 6
	outsidePeak := hour < baseline.PeakHourStart || (baseline.PeakHourEnd != 0 && hour > baseline.PeakHourEnd)
	if outsidePeak && ev.VolumeMB > baseline.AvgDailyVolumeMB*offPeakVolumeFrac {
		err += temporalWeight
		if isNight {
			err += nightBonus
		}
		reasons = append(reasons, "Temporal Drift: Unexpected activity during off-peak window.")
	}

	score := err
	if score > 1.0 {
		score = 1.0
	}

	if detected != "" {
		a.logger.Debugf("[Analyzer] %s scored %.2f (%s)", device.Name, score, detected)
	}

	return Verdict{Score: score, Reasons: reasons, DetectedType: detected}
}

func distinctPorts(events []model.TelemetryEvent) int {
	seen := make(map[int]bool, len(events))
	for _, e := range events {
		seen[e.Port] = true
	}
	return len(seen)
}

// destinationAllowed uses substring containment: "cloud.cam-vendor.com"
// covers any host under it
func destinationAllowed(allowed []string, destination string) bool {
	for _, d := range allowed {
		if strings.Contains(destination, d) {
			return true
		}
	}
	return false
}

// intervalStats computes the mean and variance of consecutive inter-arrival
// deltas, in milliseconds and squared milliseconds
func intervalStats(timestamps []int64) (float64, float64) {
	diffs := make([]float64, 0, len(timestamps)-1)
	for i := 1; i < len(timestamps); i++ {
		diffs = append(diffs, float64(timestamps[i]-timestamps[i-1]))
	}
	var sum float64
	for _, d := range diffs {
		sum += d
	}
	mean := sum / float64(len(diffs))
	var variance float64
	for _, d := range diffs {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(len(diffs))
	return mean, variance
}
