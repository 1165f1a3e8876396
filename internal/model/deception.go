package model

import (
	"encoding/json"
	"sync/atomic"
)

// DecoyConfig describes one deployed decoy service. Hits is incremented
// concurrently by interaction handlers, so it is atomic and serialized via a
// snapshot in MarshalJSON.
type DecoyConfig struct {
	ID                  string       `json:"id"`
	Name                string       `json:"name"`
	Type                DeviceType   `json:"type"`
	VulnerabilityTarget string       `json:"vulnerability_target"`
	Active              bool         `json:"active"`
	InteractionLevel    string       `json:"interaction_level"`
	Hits                atomic.Int64 `json:"-"`
}

func (d *DecoyConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID                  string     `json:"id"`
		Name                string     `json:"name"`
		Type                DeviceType `json:"type"`
		VulnerabilityTarget string     `json:"vulnerability_target"`
		Active              bool       `json:"active"`
		InteractionLevel    string     `json:"interaction_level"`
		Hits                int64      `json:"hits"`
	}{d.ID, d.Name, d.Type, d.VulnerabilityTarget, d.Active, d.InteractionLevel, d.Hits.Load()})
}

// Honeytoken is a planted fake credential or secret. Any use signals
// compromise of the location it was planted in.
type Honeytoken struct {
	ID             string       `json:"id"`
	Type           string       `json:"type"`
	Name           string       `json:"name"`
	Value          string       `json:"value"`
	Location       string       `json:"location"`
	TriggeredCount atomic.Int64 `json:"-"`
}

func (h *Honeytoken) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID             string `json:"id"`
		Type           string `json:"type"`
		Name           string `json:"name"`
		Value          string `json:"value"`
		Location       string `json:"location"`
		TriggeredCount int64  `json:"triggered_count"`
	}{h.ID, h.Type, h.Name, h.Value, h.Location, h.TriggeredCount.Load()})
}

// DecoyIntel is the intelligence extracted from one decoy interaction
type DecoyIntel struct {
	Signature      string `json:"signature"`
	BlockImmediate bool   `json:"block_immediate"`
}
