package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"iot-shield/internal/model"

	"github.com/sirupsen/logrus"
)

// Retention caps applied on append, newest first
const (
	MaxThreats     = 500
	MaxMitigations = 100
)

// Record kinds map to JSON files under the data directory
const (
	KindDevices     = "devices"
	KindThreats     = "threats"
	KindMitigations = "mitigations"
)

// Store is the local record store: an in-memory view of devices, threats and
// mitigation history, persisted best-effort to JSON files after each
// mutation. Durability beyond "best effort local record" is explicitly not
// promised.
type Store struct {
	mu          sync.RWMutex
	dataDir     string
	devices     map[string]*model.Device
	order       []string            // device insertion order
	threats     []model.ThreatEvent // newest first
	mitigations []model.MitigationRecord

	threatSubs map[chan model.ThreatEvent]bool
	deviceSubs map[chan model.Device]bool

	logger *logrus.Logger
}

// New opens a store rooted at dataDir and hydrates any persisted records.
// An empty dataDir keeps the store memory-only.
func New(dataDir string, logger *logrus.Logger) (*Store, error) {
	s := &Store{
		dataDir:    dataDir,
		devices:    make(map[string]*model.Device),
		threatSubs: make(map[chan model.ThreatEvent]bool),
		deviceSubs: make(map[chan model.Device]bool),
		logger:     logger,
	}

	if dataDir != "" {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir %s: %v", dataDir, err)
		}
		var devices []model.Device
		if s.load(KindDevices, &devices) {
			for i := range devices {
				d := devices[i]
				s.devices[d.ID] = &d
				s.order = append(s.order, d.ID)
			}
		}
		s.load(KindThreats, &s.threats)
		s.load(KindMitigations, &s.mitigations)
		logger.Infof("[Store] hydrated %d devices, %d threats, %d mitigation records from %s",
			len(s.devices), len(s.threats), len(s.mitigations), dataDir)
	}
	return s, nil
}

// PutDevice inserts or replaces a device record
func (s *Store) PutDevice(d model.Device) {
	s.mu.Lock()
	if _, exists := s.devices[d.ID]; !exists {
		s.order = append(s.order, d.ID)
	}
	s.devices[d.ID] = &d
	s.persistDevicesLocked()
	s.mu.Unlock()
	s.notifyDevice(d)
}

// Device returns a copy of one device record
func (s *Store) Device(id string) (model.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[id]
	if !ok {
		return model.Device{}, false
	}
	return *d, true
}

// UpdateDevice applies a mutation to one device under the store lock and
// persists the result. Returns false if the device is unknown.
func (s *Store) UpdateDevice(id string, mutate func(*model.Device)) bool {
	s.mu.Lock()
	d, ok := s.devices[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	mutate(d)
	snapshot := *d
	s.persistDevicesLocked()
	s.mu.Unlock()
	s.notifyDevice(snapshot)
	return true
}

// Devices returns copies of all device records in insertion order
func (s *Store) Devices() []model.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Device, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.devices[id])
	}
	return out
}

// AppendThreat logs a threat, newest first, trimming to the retention cap
func (s *Store) AppendThreat(t model.ThreatEvent) {
	s.mu.Lock()
	s.threats = append([]model.ThreatEvent{t}, s.threats...)
	if len(s.threats) > MaxThreats {
		s.threats = s.threats[:MaxThreats]
	}
	s.persistLocked(KindThreats, s.threats)
	s.mu.Unlock()
	s.notifyThreat(t)
}

// UpdateThreat applies a mutation to one threat record by id
func (s *Store) UpdateThreat(id string, mutate func(*model.ThreatEvent)) bool {
	s.mu.Lock()
	for i := range s.threats {
		if s.threats[i].ID == id {
			mutate(&s.threats[i])
			snapshot := s.threats[i]
			s.persistLocked(KindThreats, s.threats)
			s.mu.Unlock()
			s.notifyThreat(snapshot)
			return true
		}
	}
	s.mu.Unlock()
	return false
}

// Threats returns up to limit threats, newest first. limit <= 0 returns all.
func (s *Store) Threats(limit int) []model.ThreatEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.threats) {
		limit = len(s.threats)
	}
	return append([]model.ThreatEvent(nil), s.threats[:limit]...)
}

// Threat looks up one threat by id
func (s *Store) Threat(id string) (model.ThreatEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.threats {
		if t.ID == id {
			return t, true
		}
	}
	return model.ThreatEvent{}, false
}

// PurgeThreats clears the threat log
func (s *Store) PurgeThreats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threats = nil
	s.persistLocked(KindThreats, s.threats)
}

// SaveMitigations replaces the persisted mitigation history, newest first,
// trimmed to the retention cap. Retention filtering happens here, before the
// write, not in the mitigation engine.
func (s *Store) SaveMitigations(records []model.MitigationRecord) {
	sorted := append([]model.MitigationRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.After(sorted[j].Timestamp) })
	if len(sorted) > MaxMitigations {
		sorted = sorted[:MaxMitigations]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mitigations = sorted
	s.persistLocked(KindMitigations, s.mitigations)
}

// Mitigations returns the persisted mitigation history, newest first
func (s *Store) Mitigations() []model.MitigationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.MitigationRecord(nil), s.mitigations...)
}

// SubscribeThreats registers a live threat feed. The returned cancel func
// must be called to release the subscription.
func (s *Store) SubscribeThreats() (<-chan model.ThreatEvent, func()) {
	ch := make(chan model.ThreatEvent, 64)
	s.mu.Lock()
	s.threatSubs[ch] = true
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		delete(s.threatSubs, ch)
		s.mu.Unlock()
	}
}

// SubscribeDevices registers a live device-update feed
func (s *Store) SubscribeDevices() (<-chan model.Device, func()) {
	ch := make(chan model.Device, 64)
	s.mu.Lock()
	s.deviceSubs[ch] = true
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		delete(s.deviceSubs, ch)
		s.mu.Unlock()
	}
}

func (s *Store) notifyThreat(t model.ThreatEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.threatSubs {
		select {
		case ch <- t:
		default:
			s.logger.Warn("[Store] threat subscriber is slow, dropping event")
		}
	}
}

func (s *Store) notifyDevice(d model.Device) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.deviceSubs {
		select {
		case ch <- d:
		default:
		}
	}
}

func (s *Store) persistDevicesLocked() {
	devices := make([]model.Device, 0, len(s.order))
	for _, id := range s.order {
		devices = append(devices, *s.devices[id])
	}
	s.persistLocked(KindDevices, devices)
}

// persistLocked writes one record kind to disk, best effort. Callers hold
// the store lock.
func (s *Store) persistLocked(kind string, records interface{}) {
	if s.dataDir == "" {
		return
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		s.logger.Errorf("[Store] failed to marshal %s: %v", kind, err)
		return
	}
	path := filepath.Join(s.dataDir, kind+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Errorf("[Store] failed to write %s: %v", path, err)
	}
}

// load reads one record kind from disk. Missing files are a fresh start,
// not an error.
func (s *Store) load(kind string, into interface{}) bool {
	path := filepath.Join(s.dataDir, kind+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Errorf("[Store] failed to read %s: %v", path, err)
		}
		return false
	}
	if err := json.Unmarshal(data, into); err != nil {
		s.logger.Errorf("[Store] failed to parse %s: %v", path, err)
		return false
	}
	return true
}
