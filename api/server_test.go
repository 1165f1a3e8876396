package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"iot-shield/internal/alert"
	"iot-shield/internal/analyzer"
	"iot-shield/internal/correlation"
	"iot-shield/internal/deception"
	"iot-shield/internal/discovery"
	"iot-shield/internal/intel"
	"iot-shield/internal/metrics"
	"iot-shield/internal/mitigation"
	"iot-shield/internal/model"
	"iot-shield/internal/pipeline"
	"iot-shield/internal/risk"
	"iot-shield/internal/store"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	srv, st, _ := newTestServerWithMetrics(t)
	return srv, st
}

func newTestServerWithMetrics(t *testing.T) (*Server, *store.Store, *metrics.Metrics) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	st, err := store.New(t.TempDir(), logger)
	require.NoError(t, err)

	mode := mitigation.NewModeSwitch(model.ModeProtection)
	mitigator := mitigation.NewEngine(mode.Source(), nil, logger)
	dec := deception.New(1, logger)
	explainer := intel.NewExplainer("", "", 0, logger)
	m := metrics.New()

	processor := pipeline.NewProcessor(pipeline.Config{
		Analyzer:   analyzer.New(analyzer.DefaultWindowSize, logger),
		Correlator: correlation.NewEngine(0, nil, logger),
		Mitigator:  mitigator,
		Deception:  dec,
		Explainer:  explainer,
		Store:      st,
		Dispatcher: alert.NewDispatcher(logger),
		Mode:       mode.Source(),
		Logger:     logger,
	})

	srv := NewServer("0", Deps{
		Store:     st,
		Processor: processor,
		Mitigator: mitigator,
		Deception: dec,
		Discovery: discovery.NewScanner(1, logger),
		Scorer:    risk.NewScorer(1, logger),
		Explainer: explainer,
		Mode:      mode,
		Metrics:   m,
		Logger:    logger,
	})
	return srv, st, m
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestDeviceEndpoints(t *testing.T) {
	srv, st := newTestServer(t)
	st.PutDevice(model.Device{
		ID:     "router-1",
		Name:   "Core Gateway",
		Type:   model.DeviceRouter,
		Status: model.StatusSecure,
	})

	rec := doRequest(t, srv, "GET", "/api/v1/devices", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Items []model.Device `json:"items"`
		Total int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, "router-1", list.Items[0].ID)

	rec = doRequest(t, srv, "GET", "/api/v1/devices/router-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, "GET", "/api/v1/devices/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFingerprintEndpoint(t *testing.T) {
	srv, st := newTestServer(t)
	st.PutDevice(model.Device{
		ID:     "shadow-1",
		Name:   "Shadow Node [77]",
		Type:   model.DeviceUnknown,
		Status: model.StatusUnauthorized,
	})

	rec := doRequest(t, srv, "POST", "/api/v1/devices/shadow-1/fingerprint", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var device model.Device
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &device))
	assert.True(t, device.IsAuthorized)
	assert.Equal(t, model.StatusSecure, device.Status)
	assert.NotNil(t, device.VulnerabilityProfile)

	// a second fingerprint attempt conflicts
	rec = doRequest(t, srv, "POST", "/api/v1/devices/shadow-1/fingerprint", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestThreatEndpoints(t *testing.T) {
	srv, st := newTestServer(t)
	st.AppendThreat(model.ThreatEvent{
		ID:       "threat-1",
		Type:     model.ThreatPortScan,
		Severity: model.SeverityMedium,
		Status:   model.ThreatDetected,
	})

	rec := doRequest(t, srv, "GET", "/api/v1/threats", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, "GET", "/api/v1/threats/threat-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, "DELETE", "/api/v1/threats", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, "GET", "/api/v1/threats/threat-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestModeEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "GET", "/api/v1/mode", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Protection")

	rec = doRequest(t, srv, "PUT", "/api/v1/mode", `{"mode":"Learning"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, "GET", "/api/v1/mode", "")
	assert.Contains(t, rec.Body.String(), "Learning")

	rec = doRequest(t, srv, "PUT", "/api/v1/mode", `{"mode":"Panic"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeceptionEndpoints(t *testing.T) {
	srv, st := newTestServer(t)

	rec := doRequest(t, srv, "GET", "/api/v1/deception/decoys", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, "POST", "/api/v1/deception/decoys", `{"type":"NAS"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var decoy model.Device
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoy))
	assert.True(t, decoy.IsDecoy)
	_, ok := st.Device(decoy.ID)
	assert.True(t, ok)

	rec = doRequest(t, srv, "POST", "/api/v1/deception/honeytokens/ht1/trigger", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, "POST", "/api/v1/deception/honeytokens/nope/trigger", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHoneytokenTriggerBumpsCounter(t *testing.T) {
	srv, _, m := newTestServerWithMetrics(t)

	rec := doRequest(t, srv, "POST", "/api/v1/deception/honeytokens/ht1/trigger", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.HoneytokenTriggers))

	// a missing token does not count as a trigger
	rec = doRequest(t, srv, "POST", "/api/v1/deception/honeytokens/nope/trigger", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HoneytokenTriggers))
}

func TestDecoyCatalogExposesHits(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "GET", "/api/v1/deception/decoys", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"hits":0`)

	rec = doRequest(t, srv, "GET", "/api/v1/deception/honeytokens", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"triggered_count":0`)
}

func TestDeceptionDisabledEndpoints(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	st, err := store.New(t.TempDir(), logger)
	require.NoError(t, err)

	mode := mitigation.NewModeSwitch(model.ModeProtection)
	srv := NewServer("0", Deps{
		Store:     st,
		Mitigator: mitigation.NewEngine(mode.Source(), nil, logger),
		Discovery: discovery.NewScanner(1, logger),
		Scorer:    risk.NewScorer(1, logger),
		Explainer: intel.NewExplainer("", "", 0, logger),
		Mode:      mode,
		Logger:    logger,
	})

	for _, tc := range []struct{ method, path string }{
		{"GET", "/api/v1/deception/decoys"},
		{"POST", "/api/v1/deception/decoys"},
		{"GET", "/api/v1/deception/honeytokens"},
		{"POST", "/api/v1/deception/honeytokens/ht1/trigger"},
	} {
		rec := doRequest(t, srv, tc.method, tc.path, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, tc.path)
	}
}

func TestRollbackEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "POST", "/api/v1/mitigations/mit-nope/rollback", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportAndStats(t *testing.T) {
	srv, st := newTestServer(t)

	rec := doRequest(t, srv, "GET", "/api/v1/report", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Network is secure")

	st.AppendThreat(model.ThreatEvent{ID: "t1", Severity: model.SeverityCritical})
	rec = doRequest(t, srv, "GET", "/api/v1/stats", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, float64(1), stats["totalThreats"])
	assert.Equal(t, float64(1), stats["criticalThreats"])
}
