package deception

import (
	"encoding/json"
	"sync"
	"testing"

	"iot-shield/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDecoyLooksAttractive(t *testing.T) {
	s := New(11, logrus.New())

	decoy := s.GenerateDecoy(model.DeviceNAS)

	assert.True(t, decoy.IsDecoy)
	assert.Equal(t, model.DeviceDecoy, decoy.Type)
	assert.Equal(t, model.StatusDeceptionActive, decoy.Status)
	assert.Equal(t, 0.9, decoy.VulnerabilityScore)
	assert.Equal(t, 1, decoy.Criticality)
	assert.Equal(t, "Old-Storage-Server", decoy.Name)
	assert.Contains(t, decoy.Vendor, "Virtualized")
	assert.Regexp(t, `^192\.168\.1\.2[0-4][0-9]$`, decoy.IP)
	assert.Regexp(t, `^([0-9A-F]{2}:){5}[0-9A-F]{2}$`, decoy.MAC)
}

func TestExtractIntelligence(t *testing.T) {
	s := New(11, logrus.New())

	critical := &model.ThreatEvent{Type: model.ThreatBruteForce, Severity: model.SeverityCritical, SourceIP: "203.0.113.9"}
	intel := s.ExtractIntelligence(critical)
	assert.True(t, intel.BlockImmediate)
	assert.Equal(t, "DECEPTION_FEEDBACK_BRUTE FORCE_203.0.113.9", intel.Signature)
	assert.True(t, s.KnownSignature(intel.Signature))

	c2 := &model.ThreatEvent{Type: model.ThreatBotnetC2, Severity: model.SeverityMedium, SourceIP: "203.0.113.9"}
	assert.True(t, s.ExtractIntelligence(c2).BlockImmediate)

	scan := &model.ThreatEvent{Type: model.ThreatPortScan, Severity: model.SeverityMedium, SourceIP: "203.0.113.9"}
	assert.False(t, s.ExtractIntelligence(scan).BlockImmediate)
}

func TestCountersAreConcurrencySafe(t *testing.T) {
	s := New(11, logrus.New())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.RecordDecoyHit("dc1")
			s.TriggerHoneytoken("ht2")
		}()
	}
	wg.Wait()

	decoys := s.DecoyConfigs()
	require.NotEmpty(t, decoys)
	assert.Equal(t, int64(50), decoys[0].Hits.Load())

	tokens := s.Honeytokens()
	require.Len(t, tokens, 3)
	assert.Equal(t, int64(50), tokens[1].TriggeredCount.Load())
}

func TestCatalogJSONCarriesCounters(t *testing.T) {
	s := New(11, logrus.New())
	require.True(t, s.RecordDecoyHit("dc1"))
	require.True(t, s.TriggerHoneytoken("ht2"))

	decoys, err := json.Marshal(s.DecoyConfigs())
	require.NoError(t, err)
	assert.Contains(t, string(decoys), `"hits":1`)
	assert.Contains(t, string(decoys), `"hits":0`)

	tokens, err := json.Marshal(s.Honeytokens())
	require.NoError(t, err)
	assert.Contains(t, string(tokens), `"triggered_count":1`)
	assert.Contains(t, string(tokens), `"triggered_count":0`)
}

func TestUnknownCatalogIDs(t *testing.T) {
	s := New(11, logrus.New())
	assert.False(t, s.RecordDecoyHit("missing"))
	assert.False(t, s.TriggerHoneytoken("missing"))
}
