package store

import (
	"fmt"
	"testing"
	"time"

	"iot-shield/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memStore(t *testing.T) *Store {
	t.Helper()
	s, err := New("", logrus.New())
	require.NoError(t, err)
	return s
}

func TestDeviceRoundTrip(t *testing.T) {
	s := memStore(t)
	s.PutDevice(model.Device{ID: "d1", Name: "Gateway", Status: model.StatusSecure})

	got, ok := s.Device("d1")
	require.True(t, ok)
	assert.Equal(t, "Gateway", got.Name)

	ok = s.UpdateDevice("d1", func(d *model.Device) { d.Status = model.StatusQuarantined })
	require.True(t, ok)
	got, _ = s.Device("d1")
	assert.Equal(t, model.StatusQuarantined, got.Status)

	assert.False(t, s.UpdateDevice("missing", func(*model.Device) {}))
}

func TestDevicesKeepInsertionOrder(t *testing.T) {
	s := memStore(t)
	for i := 0; i < 5; i++ {
		s.PutDevice(model.Device{ID: fmt.Sprintf("d%d", i)})
	}
	devices := s.Devices()
	require.Len(t, devices, 5)
	assert.Equal(t, "d0", devices[0].ID)
	assert.Equal(t, "d4", devices[4].ID)
}

func TestThreatRetentionCap(t *testing.T) {
	s := memStore(t)
	for i := 0; i < MaxThreats+25; i++ {
		s.AppendThreat(model.ThreatEvent{ID: fmt.Sprintf("t%d", i), Timestamp: time.Now()})
	}

	threats := s.Threats(0)
	require.Len(t, threats, MaxThreats)
	// newest first
	assert.Equal(t, fmt.Sprintf("t%d", MaxThreats+24), threats[0].ID)
}

func TestUpdateThreatAttachesReasoning(t *testing.T) {
	s := memStore(t)
	s.AppendThreat(model.ThreatEvent{ID: "t1"})

	ok := s.UpdateThreat("t1", func(th *model.ThreatEvent) { th.AIReasoning = "explained" })
	require.True(t, ok)

	got, ok := s.Threat("t1")
	require.True(t, ok)
	assert.Equal(t, "explained", got.AIReasoning)
}

func TestMitigationRetention(t *testing.T) {
	s := memStore(t)
	var records []model.MitigationRecord
	for i := 0; i < MaxMitigations+10; i++ {
		records = append(records, model.MitigationRecord{
			ID:        fmt.Sprintf("m%d", i),
			Timestamp: time.Now().Add(time.Duration(i) * time.Second),
		})
	}
	s.SaveMitigations(records)

	got := s.Mitigations()
	require.Len(t, got, MaxMitigations)
	assert.Equal(t, fmt.Sprintf("m%d", MaxMitigations+9), got[0].ID)
}

func TestThreatSubscription(t *testing.T) {
	s := memStore(t)
	ch, cancel := s.SubscribeThreats()
	defer cancel()

	s.AppendThreat(model.ThreatEvent{ID: "t1"})

	select {
	case got := <-ch:
		assert.Equal(t, "t1", got.ID)
	case <-time.After(time.Second):
		t.Fatal("no threat delivered to subscriber")
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := New(dir, logrus.New())
	require.NoError(t, err)
	s.PutDevice(model.Device{ID: "d1", Name: "Gateway", Type: model.DeviceRouter})
	s.AppendThreat(model.ThreatEvent{ID: "t1", Type: model.ThreatPortScan, Timestamp: time.Now()})
	s.SaveMitigations([]model.MitigationRecord{{ID: "m1", Timestamp: time.Now()}})

	reopened, err := New(dir, logrus.New())
	require.NoError(t, err)

	device, ok := reopened.Device("d1")
	require.True(t, ok)
	assert.Equal(t, model.DeviceRouter, device.Type)

	threats := reopened.Threats(0)
	require.Len(t, threats, 1)
	assert.Equal(t, model.ThreatPortScan, threats[0].Type)

	assert.Len(t, reopened.Mitigations(), 1)
}

func TestPurgeThreats(t *testing.T) {
	s := memStore(t)
	s.AppendThreat(model.ThreatEvent{ID: "t1"})
	s.PurgeThreats()
	assert.Empty(t, s.Threats(0))
}
