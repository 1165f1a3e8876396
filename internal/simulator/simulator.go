package simulator

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"iot-shield/internal/model"

	"github.com/sirupsen/logrus"
)

// Scenario names one traffic pattern the simulator can emit
type Scenario string

const (
	ScenarioNormal    Scenario = "normal"
	ScenarioPortSweep Scenario = "port_sweep"
	ScenarioAuthFlood Scenario = "auth_flood"
	ScenarioBeacon    Scenario = "c2_beacon"
)

// DefaultAttackProbability is the chance a single Emit call produces an
// attack burst instead of one normal event
const DefaultAttackProbability = 0.08

// Simulator synthesizes telemetry in place of a live capture layer. Normal
// traffic tracks a device's learned baseline; attack scenarios produce bursts
// shaped like the patterns the analyzer watches for.
type Simulator struct {
	mu          sync.Mutex
	rng         *rand.Rand
	attackProb  float64
	logger      *logrus.Logger
	beaconDests []string
}

func New(seed int64, attackProb float64, logger *logrus.Logger) *Simulator {
	if attackProb <= 0 {
		attackProb = DefaultAttackProbability
	}
	return &Simulator{
		rng:        rand.New(rand.NewSource(seed)),
		attackProb: attackProb,
		logger:     logger,
		beaconDests: []string{
			"198.51.100.23",
			"203.0.113.77",
			"192.0.2.146",
		},
	}
}

// Emit produces the next batch of events for one device. Most calls return a
// single in-profile event; occasionally an attack burst is substituted.
func (s *Simulator) Emit(device *model.Device, now time.Time) []model.TelemetryEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.Float64() < s.attackProb {
		scenario := []Scenario{ScenarioPortSweep, ScenarioAuthFlood, ScenarioBeacon}[s.rng.Intn(3)]
		s.logger.Debugf("[Simulator] injecting %s burst against %s", scenario, device.ID)
		return s.burstLocked(device, scenario, now)
	}
	return []model.TelemetryEvent{s.normalLocked(device, now)}
}

// Generate produces a specific scenario on demand, for drills and tests
func (s *Simulator) Generate(device *model.Device, scenario Scenario, now time.Time) []model.TelemetryEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	if scenario == ScenarioNormal {
		return []model.TelemetryEvent{s.normalLocked(device, now)}
	}
	return s.burstLocked(device, scenario, now)
}

func (s *Simulator) normalLocked(device *model.Device, now time.Time) model.TelemetryEvent {
	ev := model.TelemetryEvent{
		Timestamp:  now,
		DeviceID:   device.ID,
		Protocol:   "HTTPS",
		Port:       443,
		IsOutbound: s.rng.Float64() > 0.5,
		VolumeMB:   0.5 + s.rng.Float64()*2,
	}

	if b := device.BehaviorBaseline; b != nil {
		if len(b.TypicalProtocols) > 0 {
			ev.Protocol = b.TypicalProtocols[s.rng.Intn(len(b.TypicalProtocols))]
		}
		if len(b.AllowedPorts) > 0 {
			ev.Port = b.AllowedPorts[s.rng.Intn(len(b.AllowedPorts))]
		}
		if len(b.AllowedDomains) > 0 && ev.IsOutbound {
			ev.Destination = b.AllowedDomains[s.rng.Intn(len(b.AllowedDomains))]
		}
		// hover near the learned daily volume so drift stays calm
		ev.VolumeMB = b.AvgDailyVolumeMB * (0.001 + s.rng.Float64()*0.04)
	}
	return ev
}

// burstLocked shapes a multi-event attack window. Timestamps are backdated so
// the whole burst lands inside the analyzer's recent-event window.
func (s *Simulator) burstLocked(device *model.Device, scenario Scenario, now time.Time) []model.TelemetryEvent {
	attacker := fmt.Sprintf("103.14.%d.%d", s.rng.Intn(255), s.rng.Intn(255))

	switch scenario {
	case ScenarioPortSweep:
		events := make([]model.TelemetryEvent, 8)
		for i := range events {
			events[i] = model.TelemetryEvent{
				Timestamp:   now.Add(time.Duration(i-len(events)) * 200 * time.Millisecond),
				DeviceID:    device.ID,
				Protocol:    "TCP",
				Port:        1000 + s.rng.Intn(60000),
				Destination: attacker,
				IsOutbound:  false,
				VolumeMB:    0.01,
			}
		}
		return events

	case ScenarioAuthFlood:
		protocols := []string{"SSH", "Telnet"}
		events := make([]model.TelemetryEvent, 12)
		for i := range events {
			proto := protocols[s.rng.Intn(len(protocols))]
			port := 22
			if proto == "Telnet" {
				port = 23
			}
			events[i] = model.TelemetryEvent{
				Timestamp:   now.Add(time.Duration(i-len(events)) * 500 * time.Millisecond),
				DeviceID:    device.ID,
				Protocol:    proto,
				Port:        port,
				Destination: attacker,
				IsOutbound:  false,
				VolumeMB:    0.005,
			}
		}
		return events

	case ScenarioBeacon:
		dest := s.beaconDests[s.rng.Intn(len(s.beaconDests))]
		events := make([]model.TelemetryEvent, 4)
		for i := range events {
			// fixed one-second cadence, near-zero interval variance
			events[i] = model.TelemetryEvent{
				Timestamp:   now.Add(time.Duration(i-len(events)) * time.Second),
				DeviceID:    device.ID,
				Protocol:    "HTTPS",
				Port:        8443,
				Destination: dest,
				IsOutbound:  true,
				VolumeMB:    0.1,
			}
		}
		return events
	}

	return []model.TelemetryEvent{s.normalLocked(device, now)}
}
