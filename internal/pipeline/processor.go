package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"iot-shield/internal/alert"
	"iot-shield/internal/analyzer"
	"iot-shield/internal/correlation"
	"iot-shield/internal/deception"
	"iot-shield/internal/intel"
	"iot-shield/internal/metrics"
	"iot-shield/internal/mitigation"
	"iot-shield/internal/model"
	"iot-shield/internal/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultThreatThreshold is the anomaly score above which a verdict becomes
// a threat event
const DefaultThreatThreshold = 0.5

// Severity cutoffs applied to the anomaly score
const (
	criticalScore = 0.9
	highScore     = 0.65
)

// Processor runs one telemetry event through the full defense chain:
// analyze, drift-update, correlate, mitigate, persist, notify, explain.
// Events for the same device are serialized; different devices proceed in
// parallel.
type Processor struct {
	analyzer   *analyzer.Analyzer
	correlator *correlation.Engine
	mitigator  *mitigation.Engine
	deception  *deception.Subsystem
	explainer  *intel.Explainer
	store      *store.Store
	dispatcher *alert.Dispatcher
	metrics    *metrics.Metrics
	mode       mitigation.ModeSource
	threshold  float64
	logger     *logrus.Logger

	lockMu      sync.Mutex
	deviceLocks map[string]*sync.Mutex

	wg sync.WaitGroup
}

// Config wires the processor's collaborators
type Config struct {
	Analyzer   *analyzer.Analyzer
	Correlator *correlation.Engine
	Mitigator  *mitigation.Engine
	Deception  *deception.Subsystem
	Explainer  *intel.Explainer
	Store      *store.Store
	Dispatcher *alert.Dispatcher
	Metrics    *metrics.Metrics
	Mode       mitigation.ModeSource
	Threshold  float64
	Logger     *logrus.Logger
}

func NewProcessor(cfg Config) *Processor {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreatThreshold
	}
	return &Processor{
		analyzer:    cfg.Analyzer,
		correlator:  cfg.Correlator,
		mitigator:   cfg.Mitigator,
		deception:   cfg.Deception,
		explainer:   cfg.Explainer,
		store:       cfg.Store,
		dispatcher:  cfg.Dispatcher,
		metrics:     cfg.Metrics,
		mode:        cfg.Mode,
		threshold:   cfg.Threshold,
		logger:      cfg.Logger,
		deviceLocks: make(map[string]*sync.Mutex),
	}
}

// Process runs one event end to end. It returns the confirmed threat, or nil
// when the event stayed below the detection threshold.
func (p *Processor) Process(ctx context.Context, ev model.TelemetryEvent) *model.ThreatEvent {
	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.ProcessingTime.Observe(time.Since(start).Seconds())
		}
	}()

	lock := p.lockFor(ev.DeviceID)
	lock.Lock()
	defer lock.Unlock()

	device, ok := p.store.Device(ev.DeviceID)
	if !ok {
		p.logger.Debugf("[Pipeline] dropping event for unknown device %s", ev.DeviceID)
		return nil
	}

	if p.metrics != nil {
		p.metrics.TelemetryTotal.Inc()
		p.metrics.TelemetryByDevice.WithLabelValues(device.ID).Inc()
	}

	verdict := p.analyzer.Analyze(&device, ev)
	device.BehaviorBaseline = analyzer.UpdateDrift(&device, ev, verdict.Score)
	device.AnomalyScore = verdict.Score
	device.LastSeen = ev.Timestamp

	if p.metrics != nil {
		p.metrics.AnomalyScore.WithLabelValues(device.ID).Set(verdict.Score)
	}

	if verdict.Score < p.threshold {
		p.store.PutDevice(device)
		return nil
	}

	threat := p.buildThreat(&device, ev, verdict)
	p.logger.Warnf("[Pipeline] anomaly on %s scored %.2f: %s",
		device.Name, verdict.Score, strings.Join(verdict.Reasons, " | "))

	p.correlator.Correlate(threat)
	if threat.IsCorrelated && p.metrics != nil {
		p.metrics.CorrelatedThreats.Inc()
	}

	if device.IsDecoy && p.deception != nil {
		p.handleDecoyHit(threat, &device)
	}

	record := p.mitigator.Apply(threat, &device)
	if record != nil {
		threat.Status = model.ThreatNeutralized
		if p.metrics != nil {
			p.metrics.MitigationsByAction.WithLabelValues(string(record.Action)).Inc()
		}
		p.store.SaveMitigations(p.mitigator.History())
	} else if p.mode() == model.ModeLearning && p.metrics != nil {
		p.metrics.MitigationSkips.Inc()
	}

	p.correlator.Record(*threat)
	p.store.AppendThreat(*threat)
	p.store.PutDevice(device)

	if p.metrics != nil {
		p.metrics.ThreatsByType.WithLabelValues(string(threat.Type)).Inc()
		p.metrics.ThreatsBySeverity.WithLabelValues(string(threat.Severity)).Inc()
	}

	if p.dispatcher != nil {
		p.dispatcher.Emit(*threat)
	}

	p.explainAsync(ctx, *threat, device)
	return threat
}

// ProcessBatch runs a burst of events in order
func (p *Processor) ProcessBatch(ctx context.Context, events []model.TelemetryEvent) []*model.ThreatEvent {
	var threats []*model.ThreatEvent
	for _, ev := range events {
		if t := p.Process(ctx, ev); t != nil {
			threats = append(threats, t)
		}
	}
	return threats
}

// Rollback restores a device to the state it held before one mitigation
// record, and persists the result
func (p *Processor) Rollback(recordID string) error {
	record, ok := p.mitigator.Record(recordID)
	if !ok {
		// let the engine produce its canonical error
		return p.mitigator.Rollback(recordID, &model.Device{})
	}

	lock := p.lockFor(record.DeviceID)
	lock.Lock()
	defer lock.Unlock()

	device, ok := p.store.Device(record.DeviceID)
	if !ok {
		return mitigation.ErrUnknownDevice
	}

	if err := p.mitigator.Rollback(recordID, &device); err != nil {
		return err
	}

	if p.metrics != nil {
		p.metrics.Rollbacks.Inc()
	}
	p.store.PutDevice(device)
	p.store.SaveMitigations(p.mitigator.History())
	return nil
}

// Wait blocks until in-flight explanation goroutines finish. Used by tests
// and shutdown.
func (p *Processor) Wait() {
	p.wg.Wait()
}

func (p *Processor) buildThreat(device *model.Device, ev model.TelemetryEvent, verdict analyzer.Verdict) *model.ThreatEvent {
	threatType := verdict.DetectedType
	if threatType == "" {
		threatType = model.ThreatBehavioralAnomaly
	}

	severity := model.SeverityMedium
	switch {
	case verdict.Score >= criticalScore:
		severity = model.SeverityCritical
	case verdict.Score >= highScore:
		severity = model.SeverityHigh
	}

	sourceIP := ev.Destination
	if sourceIP == "" {
		sourceIP = "unattributed"
	}

	return &model.ThreatEvent{
		ID:             "threat-" + uuid.NewString(),
		Timestamp:      ev.Timestamp,
		SourceIP:       sourceIP,
		TargetDeviceID: device.ID,
		Type:           threatType,
		Severity:       severity,
		Status:         model.ThreatDetected,
		Confidence:     verdict.Score,
	}
}

// handleDecoyHit feeds a decoy interaction back into the defense posture.
// Intelligence extracted from the decoy can escalate the threat so the
// mitigation engine severs the attacker immediately.
func (p *Processor) handleDecoyHit(threat *model.ThreatEvent, device *model.Device) {
	if p.metrics != nil {
		p.metrics.DecoyHits.Inc()
	}
	if device.ParentID != "" {
		p.deception.RecordDecoyHit(device.ParentID)
	}

	intel := p.deception.ExtractIntelligence(threat)
	if intel.BlockImmediate && threat.Severity != model.SeverityCritical {
		p.logger.Warnf("[Pipeline] decoy intelligence escalates %s to Critical", threat.ID)
		threat.Severity = model.SeverityCritical
	}
}

func (p *Processor) explainAsync(ctx context.Context, threat model.ThreatEvent, device model.Device) {
	if p.explainer == nil {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		reasoning := p.explainer.Explain(ctx, &threat, &device)
		if strings.HasPrefix(reasoning, intel.FallbackPrefix) && p.metrics != nil {
			p.metrics.ExplainerFallbacks.Inc()
		}
		p.store.UpdateThreat(threat.ID, func(t *model.ThreatEvent) {
			t.AIReasoning = reasoning
		})
	}()
}

func (p *Processor) lockFor(deviceID string) *sync.Mutex {
	p.lockMu.Lock()
	defer p.lockMu.Unlock()
	lock, ok := p.deviceLocks[deviceID]
	if !ok {
		lock = &sync.Mutex{}
		p.deviceLocks[deviceID] = lock
	}
	return lock
}
