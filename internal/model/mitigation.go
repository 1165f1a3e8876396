package model

import "time"

// OperatingMode gates autonomous mitigation. In Learning mode the engine
// observes and scores but never applies a containment transition.
type OperatingMode string

const (
	ModeLearning   OperatingMode = "Learning"
	ModeProtection OperatingMode = "Protection"
)

// MitigationRecord is an immutable audit entry for one applied containment
// transition. WasRolledBack is the only field that ever changes after the
// record is written, and it flips to true at most once.
type MitigationRecord struct {
	ID             string         `json:"id"`
	DeviceID       string         `json:"device_id"`
	DeviceName     string         `json:"device_name"`
	Timestamp      time.Time      `json:"timestamp"`
	Action         SecurityStatus `json:"action"`
	PreviousStatus SecurityStatus `json:"previous_status"`
	Reason         ThreatType     `json:"reason"`
	WasRolledBack  bool           `json:"was_rolled_back"`
}

// FirewallRule is a temporary tightened policy appended alongside a
// containment transition. Strictness scales the rule's lifetime.
type FirewallRule struct {
	ID         string    `json:"id"`
	DeviceID   string    `json:"device_id"`
	DeviceName string    `json:"device_name"`
	Policy     string    `json:"policy"`
	Strictness float64   `json:"strictness"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}
