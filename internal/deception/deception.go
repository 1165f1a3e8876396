package deception

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"iot-shield/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// decoyVulnerabilityScore makes fabricated nodes look attractive to an
// attacker scanning for soft targets
const decoyVulnerabilityScore = 0.9

// Subsystem fabricates decoy devices and honeytokens, and converts decoy
// interactions into intelligence feedback for the correlation engine.
type Subsystem struct {
	mu         sync.Mutex
	rng        *rand.Rand
	decoys     []*model.DecoyConfig
	tokens     []*model.Honeytoken
	signatures map[string]time.Time
	logger     *logrus.Logger
}

// New creates the deception subsystem with its static decoy and honeytoken
// catalogs
func New(seed int64, logger *logrus.Logger) *Subsystem {
	s := &Subsystem{
		rng:        rand.New(rand.NewSource(seed)),
		signatures: make(map[string]time.Time),
		logger:     logger,
	}
	s.decoys = []*model.DecoyConfig{
		{ID: "dc1", Name: "Telnet Decoy", Type: model.DeviceRouter, VulnerabilityTarget: "Weak Credentials", Active: true, InteractionLevel: "High"},
		{ID: "dc2", Name: "RTSP Decoy", Type: model.DeviceCamera, VulnerabilityTarget: "Unauthenticated Stream", Active: true, InteractionLevel: "Low"},
		{ID: "dc3", Name: "Samba Decoy", Type: model.DeviceNAS, VulnerabilityTarget: "Directory Traversal", Active: false, InteractionLevel: "High"},
	}
	s.tokens = []*model.Honeytoken{
		{ID: "ht1", Type: "Credential", Name: "Admin SSH Key", Value: "ssh-rsa AAAAB3Nza...", Location: "/etc/shield/agent.key"},
		{ID: "ht2", Type: "API-Key", Name: "Cloud-Sync-Secret", Value: "AKIA_PROD_9921_SECRET", Location: "Environment Variable"},
		{ID: "ht3", Type: "DB-Record", Name: "Vault-Metadata", Value: "root:shield_admin_pass", Location: "Fake-SQL-Decoy"},
	}
	return s
}

// GenerateDecoy fabricates an intentionally vulnerable-looking device record.
// Decoys carry zero operational weight: criticality 1, status
// DeceptionActive, a virtualized vendor string and a high vulnerability
// score.
func (s *Subsystem) GenerateDecoy(t model.DeviceType) *model.Device {
	s.mu.Lock()
	ip := fmt.Sprintf("192.168.1.%d", s.rng.Intn(50)+200)
	mac := s.randomMAC()
	s.mu.Unlock()

	name := "Legacy-IoT-Node"
	switch t {
	case model.DeviceCamera:
		name = "Legacy-Security-Cam"
	case model.DeviceNAS:
		name = "Old-Storage-Server"
	case model.DeviceRouter:
		name = "Wrt-Gateway-Dev"
	case model.DeviceDecoy:
		name = "Vulnerable-Node-Alpha"
	}

	decoy := &model.Device{
		ID:                    "decoy-" + uuid.NewString()[:8],
		Name:                  name,
		Type:                  model.DeviceDecoy,
		IP:                    ip,
		MAC:                   mac,
		Vendor:                "Virtualized-Deception-Stack",
		Criticality:           1,
		VulnerabilityScore:    decoyVulnerabilityScore,
		Status:                model.StatusDeceptionActive,
		LastSeen:              time.Now(),
		IsAuthorized:          true,
		IsDecoy:               true,
		FingerprintConfidence: 1.0,
		DetectedProtocols:     []string{"Telnet", "HTTP", "FTP"},
		TrafficSignature:      "Deceptive-Beacon",
	}
	s.logger.Infof("[Deception] deployed decoy %s (%s) at %s", decoy.Name, decoy.ID, decoy.IP)
	return decoy
}

// ExtractIntelligence converts a decoy interaction into a signature and an
// immediate-block verdict. The signature registry is the hook for future
// correlation lookups; it is not persisted across sessions.
func (s *Subsystem) ExtractIntelligence(threat *model.ThreatEvent) model.DecoyIntel {
	intel := model.DecoyIntel{
		Signature:      fmt.Sprintf("DECEPTION_FEEDBACK_%s_%s", strings.ToUpper(string(threat.Type)), threat.SourceIP),
		BlockImmediate: threat.Severity == model.SeverityCritical || threat.Type == model.ThreatBotnetC2,
	}

	s.mu.Lock()
	s.signatures[intel.Signature] = time.Now()
	s.mu.Unlock()

	s.logger.Infof("[Deception] extracted intelligence %s (block=%v)", intel.Signature, intel.BlockImmediate)
	return intel
}

// KnownSignature reports whether a signature has been seen this session
func (s *Subsystem) KnownSignature(signature string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.signatures[signature]
	return ok
}

// DecoyConfigs returns the decoy catalog. Counters on the returned entries
// are shared and atomically incremented.
func (s *Subsystem) DecoyConfigs() []*model.DecoyConfig {
	return s.decoys
}

// Honeytokens returns the honeytoken catalog
func (s *Subsystem) Honeytokens() []*model.Honeytoken {
	return s.tokens
}

// RecordDecoyHit bumps the hit counter of one decoy config
func (s *Subsystem) RecordDecoyHit(id string) bool {
	for _, d := range s.decoys {
		if d.ID == id {
			d.Hits.Add(1)
			return true
		}
	}
	return false
}

// TriggerHoneytoken bumps the trigger counter of one honeytoken. Any trigger
// means the token's location was compromised.
func (s *Subsystem) TriggerHoneytoken(id string) bool {
	for _, t := range s.tokens {
		if t.ID == id {
			t.TriggeredCount.Add(1)
			s.logger.Warnf("[Deception] honeytoken %s (%s) triggered", t.Name, t.Location)
			return true
		}
	}
	return false
}

func (s *Subsystem) randomMAC() string {
	parts := make([]string, 6)
	for i := range parts {
		parts[i] = fmt.Sprintf("%02X", s.rng.Intn(256))
	}
	return strings.Join(parts, ":")
}
