package mitigation

import (
	"fmt"
	"sync"
	"time"

	"iot-shield/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Containment thresholds
const (
	isolateConfidence  = 0.9
	containConfidence  = 0.8
	criticalityCutoff  = 7
	criticalStrictness = 0.95
	defaultStrictness  = 0.6
)

// ErrAlreadyRolledBack rejects a second rollback of the same record
var ErrAlreadyRolledBack = fmt.Errorf("mitigation record already rolled back")

// ErrUnknownDevice reports a rollback whose device no longer exists
var ErrUnknownDevice = fmt.Errorf("unknown device")

// ModeSource reads the operating mode synchronously before every decision
type ModeSource func() model.OperatingMode

// Engine is the graduated-response state machine. It maps threat severity,
// confidence, device criticality and operating mode to a containment action,
// and keeps a rollback-capable history of every transition it applies.
type Engine struct {
	mu      sync.Mutex
	mode    ModeSource
	history []*model.MitigationRecord
	byID    map[string]*model.MitigationRecord
	rules   []model.FirewallRule
	logger  *logrus.Logger
}

// NewEngine creates a mitigation engine, optionally hydrated with persisted
// history so earlier transitions stay rollback-capable across restarts
func NewEngine(mode ModeSource, history []model.MitigationRecord, logger *logrus.Logger) *Engine {
	e := &Engine{
		mode:   mode,
		byID:   make(map[string]*model.MitigationRecord),
		logger: logger,
	}
	for i := range history {
		rec := history[i]
		e.history = append(e.history, &rec)
		e.byID[rec.ID] = &rec
	}
	return e
}

// DetermineAction is the pure transition function. Same inputs always yield
// the same status:
//
//	Critical, or correlated with confidence > 0.9  -> Isolating
//	High, or confidence > 0.8                      -> RateLimited when the
//	     device is critical infrastructure (criticality > 7), Quarantined
//	     otherwise; essential services get throttled, not walled off
//	Medium                                         -> DeceptionActive
//	anything else                                  -> Monitoring
func DetermineAction(threat *model.ThreatEvent, device *model.Device) model.SecurityStatus {
	if threat.Severity == model.SeverityCritical || (threat.IsCorrelated && threat.Confidence > isolateConfidence) {
		return model.StatusIsolating
	}
	if threat.Severity == model.SeverityHigh || threat.Confidence > containConfidence {
		if device.Criticality > criticalityCutoff {
			return model.StatusRateLimited
		}
		return model.StatusQuarantined
	}
	if threat.Severity == model.SeverityMedium {
		return model.StatusDeceptionActive
	}
	return model.StatusMonitoring
}

// Apply runs one mitigation decision. In Learning mode nothing is touched:
// the skip is logged distinctly so audits can tell "suppressed by policy"
// from "nothing warranted". On a real transition the device status changes,
// a record is kept and a tightened firewall rule is appended. Returns the
// record, or nil when no transition was applied.
func (e *Engine) Apply(threat *model.ThreatEvent, device *model.Device) *model.MitigationRecord {
	if e.mode() == model.ModeLearning {
		e.logger.Infof("[Mitigation] LEARNING mode: observing only, skipping automated mitigation for %s (%s)",
			device.Name, threat.Type)
		return nil
	}

	previous := device.Status
	action := DetermineAction(threat, device)
	if action == previous {
		e.logger.Debugf("[Mitigation] %s already at %s, nothing warranted", device.Name, action)
		return nil
	}

	record := &model.MitigationRecord{
		ID:             "mit-" + uuid.NewString(),
		DeviceID:       device.ID,
		DeviceName:     device.Name,
		Timestamp:      time.Now(),
		Action:         action,
		PreviousStatus: previous,
		Reason:         threat.Type,
	}

	device.Status = action
	threat.MitigationAction = ExplainAction(action, threat.Type)

	strictness := defaultStrictness
	if threat.Severity == model.SeverityCritical {
		strictness = criticalStrictness
	}
	rule := TightenPolicy(device, strictness)

	e.mu.Lock()
	e.history = append(e.history, record)
	e.byID[record.ID] = record
	e.rules = append(e.rules, rule)
	e.mu.Unlock()

	e.logger.Warnf("[Mitigation] %s: %s -> %s (%s, confidence %.2f)",
		device.Name, previous, action, threat.Type, threat.Confidence)
	return record
}

// Rollback restores the device to the record's previous status. A record can
// be rolled back exactly once; rollback never cascades into firewall rule
// recomputation.
func (e *Engine) Rollback(recordID string, device *model.Device) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	record, ok := e.byID[recordID]
	if !ok {
		return fmt.Errorf("unknown mitigation record %s", recordID)
	}
	if record.WasRolledBack {
		return ErrAlreadyRolledBack
	}
	if record.DeviceID != device.ID {
		return fmt.Errorf("record %s does not belong to device %s", recordID, device.ID)
	}

	device.Status = record.PreviousStatus
	record.WasRolledBack = true
	e.logger.Infof("[Mitigation] rolled back %s: %s restored to %s", recordID, device.Name, record.PreviousStatus)
	return nil
}

// History returns a snapshot of the mitigation records, newest last
func (e *Engine) History() []model.MitigationRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.MitigationRecord, 0, len(e.history))
	for _, r := range e.history {
		out = append(out, *r)
	}
	return out
}

// Record looks up one record by id
func (e *Engine) Record(id string) (model.MitigationRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.byID[id]
	if !ok {
		return model.MitigationRecord{}, false
	}
	return *r, true
}

// ExplainAction returns the operator-facing description for a containment
// action
func ExplainAction(status model.SecurityStatus, threatType model.ThreatType) string {
	switch status {
	case model.StatusRateLimited:
		return fmt.Sprintf("Autonomous Mitigation: Traffic throttled to 64Kbps for %s signature. Egress filtered.", threatType)
	case model.StatusQuarantined:
		return "Autonomous Mitigation: Device isolated to Segment-Z. All peer-to-peer frames rejected."
	case model.StatusIsolating:
		return "Autonomous Mitigation: Node completely severed from mesh. Hardware reset required for re-entry."
	case model.StatusDeceptionActive:
		return "Autonomous Mitigation: Topology rotation initiated. Attacker diverted to shadow proxy."
	default:
		return "Monitoring phase initiated. No active disruption applied."
	}
}
