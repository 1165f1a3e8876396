package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"iot-shield/internal/deception"
	"iot-shield/internal/discovery"
	"iot-shield/internal/intel"
	"iot-shield/internal/metrics"
	"iot-shield/internal/mitigation"
	"iot-shield/internal/model"
	"iot-shield/internal/pipeline"
	"iot-shield/internal/risk"
	"iot-shield/internal/store"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type Handlers struct {
	store     *store.Store
	processor *pipeline.Processor
	mitigator *mitigation.Engine
	deception *deception.Subsystem
	discovery *discovery.Scanner
	scorer    *risk.Scorer
	explainer *intel.Explainer
	mode      *mitigation.ModeSwitch
	metrics   *metrics.Metrics
	logger    *logrus.Logger
	upgrader  websocket.Upgrader
}

func NewHandlers(
	st *store.Store,
	processor *pipeline.Processor,
	mitigator *mitigation.Engine,
	dec *deception.Subsystem,
	disc *discovery.Scanner,
	scorer *risk.Scorer,
	explainer *intel.Explainer,
	mode *mitigation.ModeSwitch,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *Handlers {
	return &Handlers{
		store:     st,
		processor: processor,
		mitigator: mitigator,
		deception: dec,
		discovery: disc,
		scorer:    scorer,
		explainer: explainer,
		mode:      mode,
		metrics:   m,
		logger:    logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				logger.Debugf("WebSocket origin check: %s", origin)
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Device handlers
func (h *Handlers) GetDevices(w http.ResponseWriter, r *http.Request) {
	devices := h.store.Devices()

	response := map[string]interface{}{
		"items": devices,
		"total": len(devices),
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) GetDevice(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	device, ok := h.store.Device(vars["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "Device not found")
		return
	}
	writeJSON(w, http.StatusOK, device)
}

// FingerprintDevice promotes a shadow device to a known type
func (h *Handlers) FingerprintDevice(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	device, ok := h.store.Device(vars["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "Device not found")
		return
	}
	if device.IsAuthorized {
		writeError(w, http.StatusConflict, "Device is already authorized")
		return
	}

	h.discovery.Fingerprint(&device)
	h.scorer.Audit(&device)
	h.store.PutDevice(device)
	writeJSON(w, http.StatusOK, device)
}

// AuditDevice refreshes a device's vulnerability profile on demand
func (h *Handlers) AuditDevice(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	device, ok := h.store.Device(vars["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "Device not found")
		return
	}

	h.scorer.Audit(&device)
	h.store.PutDevice(device)
	writeJSON(w, http.StatusOK, device.VulnerabilityProfile)
}

// Threat handlers
func (h *Handlers) GetThreats(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 0 {
		limit = 0
	}
	if limit > store.MaxThreats {
		limit = store.MaxThreats
	}

	threats := h.store.Threats(limit)

	response := map[string]interface{}{
		"items": threats,
		"total": len(threats),
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) GetThreat(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	threat, ok := h.store.Threat(vars["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "Threat not found")
		return
	}
	writeJSON(w, http.StatusOK, threat)
}

func (h *Handlers) PurgeThreats(w http.ResponseWriter, r *http.Request) {
	h.store.PurgeThreats()
	writeJSON(w, http.StatusOK, map[string]string{"status": "purged"})
}

// Mitigation handlers
func (h *Handlers) GetMitigations(w http.ResponseWriter, r *http.Request) {
	records := h.store.Mitigations()

	response := map[string]interface{}{
		"items": records,
		"total": len(records),
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) RollbackMitigation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	if err := h.processor.Rollback(id); err != nil {
		if errors.Is(err, mitigation.ErrAlreadyRolledBack) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	record, _ := h.mitigator.Record(id)
	writeJSON(w, http.StatusOK, record)
}

func (h *Handlers) GetFirewallRules(w http.ResponseWriter, r *http.Request) {
	rules := h.mitigator.FirewallRules()

	response := map[string]interface{}{
		"items": rules,
		"total": len(rules),
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) DeleteFirewallRule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if !h.mitigator.RemoveRule(vars["id"]) {
		writeError(w, http.StatusNotFound, "Firewall rule not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// Operating mode handlers
func (h *Handlers) GetMode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"mode": string(h.mode.Get())})
}

func (h *Handlers) SetMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode model.OperatingMode `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.mode.Set(body.Mode); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Infof("Operating mode switched to %s", body.Mode)
	writeJSON(w, http.StatusOK, map[string]string{"mode": string(body.Mode)})
}

// Deception handlers
func (h *Handlers) GetDecoys(w http.ResponseWriter, r *http.Request) {
	if h.deception == nil {
		writeError(w, http.StatusServiceUnavailable, "Deception subsystem is disabled")
		return
	}
	writeJSON(w, http.StatusOK, h.deception.DecoyConfigs())
}

func (h *Handlers) GetHoneytokens(w http.ResponseWriter, r *http.Request) {
	if h.deception == nil {
		writeError(w, http.StatusServiceUnavailable, "Deception subsystem is disabled")
		return
	}
	writeJSON(w, http.StatusOK, h.deception.Honeytokens())
}

// DeployDecoy fabricates and enrolls a new decoy device
func (h *Handlers) DeployDecoy(w http.ResponseWriter, r *http.Request) {
	if h.deception == nil {
		writeError(w, http.StatusServiceUnavailable, "Deception subsystem is disabled")
		return
	}

	var body struct {
		Type model.DeviceType `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Type == "" {
		body.Type = model.DeviceDecoy
	}

	decoy := h.deception.GenerateDecoy(body.Type)
	h.store.PutDevice(*decoy)
	writeJSON(w, http.StatusCreated, decoy)
}

func (h *Handlers) TriggerHoneytoken(w http.ResponseWriter, r *http.Request) {
	if h.deception == nil {
		writeError(w, http.StatusServiceUnavailable, "Deception subsystem is disabled")
		return
	}

	vars := mux.Vars(r)
	if !h.deception.TriggerHoneytoken(vars["id"]) {
		writeError(w, http.StatusNotFound, "Honeytoken not found")
		return
	}
	if h.metrics != nil {
		h.metrics.HoneytokenTriggers.Inc()
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "triggered"})
}

// GetReport summarizes recent threat handling
func (h *Handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 25
	}

	threats := h.store.Threats(limit)
	summary := h.explainer.Summarize(r.Context(), threats)

	response := map[string]interface{}{
		"summary":      summary,
		"threat_count": len(threats),
		"generated_at": time.Now(),
	}
	writeJSON(w, http.StatusOK, response)
}

// GetStats aggregates headline counters for dashboards
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	devices := h.store.Devices()
	threats := h.store.Threats(0)

	var decoys, unauthorized, contained int
	for _, d := range devices {
		if d.IsDecoy {
			decoys++
		}
		if !d.IsAuthorized {
			unauthorized++
		}
		switch d.Status {
		case model.StatusRateLimited, model.StatusQuarantined, model.StatusIsolating:
			contained++
		}
	}

	var critical int
	for _, t := range threats {
		if t.Severity == model.SeverityCritical {
			critical++
		}
	}

	stats := map[string]interface{}{
		"totalDevices":        len(devices),
		"totalThreats":        len(threats),
		"criticalThreats":     critical,
		"activeDecoys":        decoys,
		"unauthorizedDevices": unauthorized,
		"containedDevices":    contained,
		"firewallRules":       len(h.mitigator.FirewallRules()),
		"mode":                h.mode.Get(),
	}
	writeJSON(w, http.StatusOK, stats)
}

// StreamThreats pushes confirmed threats over a WebSocket
func (h *Handlers) StreamThreats(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	threats, cancel := h.store.SubscribeThreats()
	defer cancel()

	h.streamLoop(conn, func() (interface{}, bool) {
		t, ok := <-threats
		return t, ok
	})
}

// StreamDevices pushes device state changes over a WebSocket
func (h *Handlers) StreamDevices(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	devices, cancel := h.store.SubscribeDevices()
	defer cancel()

	h.streamLoop(conn, func() (interface{}, bool) {
		d, ok := <-devices
		return d, ok
	})
}

// streamLoop pumps subscription items to one WebSocket client, keeping the
// connection alive with pings and exiting when the client goes away
func (h *Handlers) streamLoop(conn *websocket.Conn, next func() (interface{}, bool)) {
	done := make(chan struct{})

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	go func() {
		for range ticker.C {
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}()

	// Read messages in background to detect connection close
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	items := make(chan interface{})
	go func() {
		defer close(items)
		for {
			item, ok := next()
			if !ok {
				return
			}
			select {
			case items <- item:
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case item, ok := <-items:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(item); err != nil {
				h.logger.Debugf("WebSocket write error: %v", err)
				return
			}
		}
	}
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
