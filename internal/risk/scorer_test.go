package risk

import (
	"testing"
	"time"

	"iot-shield/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratedProfileBounds(t *testing.T) {
	s := NewScorer(42, logrus.New())

	types := []model.DeviceType{
		model.DeviceRouter, model.DeviceCamera, model.DeviceNAS,
		model.DeviceSmartLock, model.DeviceLight, model.DeviceTV,
		model.DeviceThermostat, model.DeviceUnknown,
	}
	for _, typ := range types {
		for i := 0; i < 50; i++ {
			profile := s.GenerateProfile(&model.Device{Type: typ})

			assert.GreaterOrEqual(t, profile.PredictiveRiskScore, 0.1)
			assert.LessOrEqual(t, profile.PredictiveRiskScore, 1.0)
			assert.GreaterOrEqual(t, profile.FirmwareAgeDays, 0)
			assert.Less(t, profile.FirmwareAgeDays, 800)

			score := NormalizedScore(profile)
			assert.GreaterOrEqual(t, score, 0.01)
			assert.LessOrEqual(t, score, 1.0)
		}
	}
}

func TestUnknownTypeHasNoCVEs(t *testing.T) {
	s := NewScorer(1, logrus.New())

	profile := s.GenerateProfile(&model.Device{Type: model.DeviceUnknown})
	assert.Empty(t, profile.KnownCVEs)

	// CVE-absent profiles contribute exactly zero from the CVE component
	flat := &model.VulnerabilityProfile{
		KnownCVEs:        nil,
		WeakAuthDetected: false,
		InternetExposure: 0,
		FirmwareAgeDays:  0,
	}
	assert.InDelta(t, 0.01, NormalizedScore(flat), 1e-9) // clamped floor
}

func TestNormalizedScoreIsDeterministic(t *testing.T) {
	profile := &model.VulnerabilityProfile{
		FirmwareAgeDays:  365,
		KnownCVEs:        KnownCVEs(model.DeviceRouter),
		WeakAuthDetected: true,
		InternetExposure: 1.0,
		LastAuditDate:    time.Now(),
	}

	first := NormalizedScore(profile)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, NormalizedScore(profile))
	}

	// mean((9.8+9.3)/2)/10 = 0.955; 0.35*0.955 + 0.25 + 0.25 + 0.15
	assert.InDelta(t, 0.98425, first, 1e-9)
}

func TestWeakAuthOnlyOnWeakClasses(t *testing.T) {
	s := NewScorer(7, logrus.New())

	for i := 0; i < 100; i++ {
		profile := s.GenerateProfile(&model.Device{Type: model.DeviceRouter})
		assert.False(t, profile.WeakAuthDetected)
	}
}

func TestExposurePerType(t *testing.T) {
	assert.Equal(t, 1.0, ExposureFor(model.DeviceRouter))
	assert.Equal(t, 0.7, ExposureFor(model.DeviceCamera))
	assert.Equal(t, 0.3, ExposureFor(model.DeviceNAS))
	assert.Equal(t, 0.05, ExposureFor(model.DeviceTV))
	assert.Equal(t, 0.05, ExposureFor(model.DeviceUnknown))
}

func TestAuditCachesScoreOnDevice(t *testing.T) {
	s := NewScorer(3, logrus.New())
	device := &model.Device{Name: "Gateway", Type: model.DeviceRouter}

	s.Audit(device)

	require.NotNil(t, device.VulnerabilityProfile)
	assert.Equal(t, NormalizedScore(device.VulnerabilityProfile), device.VulnerabilityScore)
	assert.Len(t, device.VulnerabilityProfile.KnownCVEs, 2)
	assert.False(t, device.VulnerabilityProfile.LastAuditDate.IsZero())
}
