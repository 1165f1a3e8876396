package analyzer

import (
	"testing"
	"time"

	"iot-shield/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalmTrafficReinforcesBaseline(t *testing.T) {
	device := testDevice(model.DeviceUnknown)
	device.BehaviorBaseline.AvgDailyVolumeMB = 100
	before := device.BehaviorBaseline.LastDriftUpdate

	ev := model.TelemetryEvent{Timestamp: time.Now(), VolumeMB: 200}
	updated := UpdateDrift(device, ev, 0.1)

	assert.InDelta(t, 100.5, updated.AvgDailyVolumeMB, 1e-9) // 0.995*100 + 0.005*200
	assert.InDelta(t, 0.8501, updated.LearningProgress, 1e-9)
	assert.InDelta(t, 0.981, updated.NeuralConsistency, 1e-9)
	assert.True(t, !updated.LastDriftUpdate.Before(before))
	// no snapping: original baseline untouched
	assert.InDelta(t, 100, device.BehaviorBaseline.AvgDailyVolumeMB, 1e-9)
}

func TestAnomalousTrafficDecaysConsistency(t *testing.T) {
	device := testDevice(model.DeviceUnknown)
	ev := model.TelemetryEvent{Timestamp: time.Now(), VolumeMB: 5000}

	updated := UpdateDrift(device, ev, 0.9)

	assert.InDelta(t, 0.97, updated.NeuralConsistency, 1e-9)
	assert.InDelta(t, device.BehaviorBaseline.AvgDailyVolumeMB, updated.AvgDailyVolumeMB, 1e-9)
}

func TestConsistencyNeverFallsBelowFloor(t *testing.T) {
	device := testDevice(model.DeviceUnknown)
	device.BehaviorBaseline.NeuralConsistency = 0.705

	updated := UpdateDrift(device, model.TelemetryEvent{Timestamp: time.Now()}, 0.9)
	assert.InDelta(t, 0.70, updated.NeuralConsistency, 1e-9)

	device.BehaviorBaseline = updated
	updated = UpdateDrift(device, model.TelemetryEvent{Timestamp: time.Now()}, 0.9)
	assert.InDelta(t, 0.70, updated.NeuralConsistency, 1e-9)
}

func TestConsistencyCapsAtCeiling(t *testing.T) {
	device := testDevice(model.DeviceUnknown)
	device.BehaviorBaseline.NeuralConsistency = 0.99
	device.BehaviorBaseline.LearningProgress = 1.0

	updated := UpdateDrift(device, model.TelemetryEvent{Timestamp: time.Now(), VolumeMB: 1}, 0.0)

	assert.InDelta(t, 0.99, updated.NeuralConsistency, 1e-9)
	assert.InDelta(t, 1.0, updated.LearningProgress, 1e-9)
}

func TestDriftWithoutBaselineSeedsOne(t *testing.T) {
	device := &model.Device{ID: "bare", Type: model.DeviceCamera}

	updated := UpdateDrift(device, model.TelemetryEvent{Timestamp: time.Now()}, 0.0)

	require.NotNil(t, updated)
	assert.InDelta(t, 1200, updated.AvgDailyVolumeMB, 1e-9)
	assert.Equal(t, 7, updated.PeakHourStart)
}

func TestInitialBaselinePerType(t *testing.T) {
	tv := InitialBaseline(model.DeviceTV)
	assert.Equal(t, 0, tv.PeakHourEnd)
	assert.Contains(t, tv.AllowedDomains, "netflix.com")

	light := InitialBaseline(model.DeviceLight)
	assert.InDelta(t, 5, light.AvgDailyVolumeMB, 1e-9)

	fallback := InitialBaseline(model.DeviceThermostat)
	assert.Equal(t, 9, fallback.PeakHourStart)
	assert.Equal(t, 17, fallback.PeakHourEnd)
}

func TestWindowEvictsOldest(t *testing.T) {
	w := NewWindow(3)
	for i := 0; i < 5; i++ {
		w.Append(model.TelemetryEvent{Port: i})
	}

	events := w.Events()
	require.Len(t, events, 3)
	assert.Equal(t, 2, events[0].Port)
	assert.Equal(t, 4, events[2].Port)
}
