package correlation

import (
	"sync"
	"time"

	"iot-shield/internal/model"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultLookback groups threats by shared source into one campaign
	DefaultLookback = 10 * time.Minute

	baseConfidence       = 0.6
	multiTargetBonus     = 0.15
	multiVectorBonus     = 0.1
	scanExploitBonus     = 0.1
	exploitMovementBonus = 0.1
	confidenceCeiling    = 0.99
)

// Engine correlates freshly detected threats against recent history to find
// multi-stage, multi-target campaigns. History lives under a read-write lock:
// the pipeline is the single writer, readers filter by time, and every write
// prunes entries that fell out of the lookback so the list stays bounded.
type Engine struct {
	mu       sync.RWMutex
	lookback time.Duration
	history  []model.ThreatEvent
	logger   *logrus.Logger
}

// NewEngine creates a correlation engine, optionally hydrated with persisted
// threat history. A non-positive lookback selects the default.
func NewEngine(lookback time.Duration, history []model.ThreatEvent, logger *logrus.Logger) *Engine {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	e := &Engine{
		lookback: lookback,
		history:  append([]model.ThreatEvent(nil), history...),
		logger:   logger,
	}
	e.pruneLocked(time.Now())
	return e
}

// Record appends a threat to the correlation history and evicts entries
// older than the lookback
func (e *Engine) Record(threat model.ThreatEvent) {
	e.mu.Lock()
	e.history = append(e.history, threat)
	e.pruneLocked(time.Now())
	e.mu.Unlock()
}

func (e *Engine) pruneLocked(now time.Time) {
	cutoff := now.Add(-e.lookback)
	kept := e.history[:0]
	for _, t := range e.history {
		if t.Timestamp.After(cutoff) {
			kept = append(kept, t)
		}
	}
	e.history = kept
}

// Correlate enriches a new threat in place. Related history entries share the
// threat's source IP within the lookback window. An uncorroborated threat
// keeps the base confidence of 0.6; campaign evidence adds bonuses up to the
// 0.99 ceiling, and a movement-plus-exploit path relabels the threat as
// Lateral Movement since the campaign is named by its most advanced stage.
func (e *Engine) Correlate(threat *model.ThreatEvent) {
	cutoff := time.Now().Add(-e.lookback)

	e.mu.RLock()
	var related []model.ThreatEvent
	for _, t := range e.history {
		if t.SourceIP == threat.SourceIP && t.Timestamp.After(cutoff) {
			related = append(related, t)
		}
	}
	e.mu.RUnlock()

	if len(related) == 0 {
		threat.Confidence = baseConfidence
		threat.IsCorrelated = false
		return
	}

	all := append(append([]model.ThreatEvent(nil), related...), *threat)

	targets := make(map[string]bool)
	vectors := make(map[model.ThreatType]bool)
	var hasScan, hasExploit, hasMovement bool
	for _, t := range all {
		targets[t.TargetDeviceID] = true
		vectors[t.Type] = true
		switch t.Type {
		case model.ThreatPortScan:
			hasScan = true
		case model.ThreatBruteForce, model.ThreatUnauthorizedAccess:
			hasExploit = true
		case model.ThreatLateralMovement:
			hasMovement = true
		}
	}

	confidence := baseConfidence
	if len(targets) > 1 {
		confidence += multiTargetBonus
	}
	if len(vectors) > 1 {
		confidence += multiVectorBonus
	}
	if hasScan && hasExploit {
		confidence += scanExploitBonus
	}
	if hasExploit && hasMovement {
		confidence += exploitMovementBonus
	}
	if confidence > confidenceCeiling {
		confidence = confidenceCeiling
	}

	ids := make([]string, 0, len(related))
	for _, t := range related {
		ids = append(ids, t.ID)
	}

	threat.Confidence = confidence
	threat.IsCorrelated = true
	threat.CorrelatedThreatIDs = ids
	if hasMovement && hasExploit {
		threat.Type = model.ThreatLateralMovement
	}

	e.logger.Infof("[Correlation] %s campaign from %s: %d related threats, %d targets, %d vectors, confidence %.2f",
		threat.Type, threat.SourceIP, len(related), len(targets), len(vectors), confidence)
}
