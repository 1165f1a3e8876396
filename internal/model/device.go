package model

import (
	"time"
)

// DeviceType classifies a device on the home network
type DeviceType string

const (
	DeviceRouter     DeviceType = "Router"
	DeviceSmartLock  DeviceType = "Smart Lock"
	DeviceCamera     DeviceType = "Camera"
	DeviceNAS        DeviceType = "NAS"
	DeviceThermostat DeviceType = "Thermostat"
	DeviceTV         DeviceType = "TV"
	DeviceLight      DeviceType = "Light"
	DeviceDecoy      DeviceType = "Decoy"
	DeviceUnknown    DeviceType = "Unknown"
)

// SecurityStatus is the containment state of a device.
// Graduated response ladder: Secure -> Monitoring -> DeceptionActive ->
// {RateLimited | Quarantined} -> Isolating. Blocked, Unauthorized and Decoy
// sit outside the ladder.
type SecurityStatus string

const (
	StatusSecure          SecurityStatus = "Secure"
	StatusMonitoring      SecurityStatus = "Monitoring"
	StatusDeceptionActive SecurityStatus = "Deception Active"
	StatusRateLimited     SecurityStatus = "Rate Limited"
	StatusQuarantined     SecurityStatus = "Quarantined"
	StatusIsolating       SecurityStatus = "Isolating"
	StatusBlocked         SecurityStatus = "Blocked"
	StatusUnauthorized    SecurityStatus = "Unauthorized"
	StatusDecoy           SecurityStatus = "Decoy"
)

// Device represents one node on the monitored network
type Device struct {
	ID                    string                `json:"id"`
	Name                  string                `json:"name"`
	Type                  DeviceType            `json:"type"`
	IP                    string                `json:"ip"`
	MAC                   string                `json:"mac"`
	Vendor                string                `json:"vendor"`
	Criticality           int                   `json:"criticality"`
	AnomalyScore          float64               `json:"anomaly_score"`
	VulnerabilityScore    float64               `json:"vulnerability_score"`
	Status                SecurityStatus        `json:"status"`
	LastSeen              time.Time             `json:"last_seen"`
	IsAuthorized          bool                  `json:"is_authorized"`
	IsDecoy               bool                  `json:"is_decoy"`
	ParentID              string                `json:"parent_id,omitempty"`
	FingerprintConfidence float64               `json:"fingerprint_confidence"`
	DetectedProtocols     []string              `json:"detected_protocols,omitempty"`
	TrafficSignature      string                `json:"traffic_signature,omitempty"`
	BehaviorBaseline      *BehaviorBaseline     `json:"behavior_baseline,omitempty"`
	VulnerabilityProfile  *VulnerabilityProfile `json:"vulnerability_profile,omitempty"`
}

// CriticalityFor returns the default importance weight for a device type.
// Core infrastructure ranks highest so the mitigation engine throttles it
// instead of walling it off.
func CriticalityFor(t DeviceType) int {
	switch t {
	case DeviceRouter:
		return 10
	case DeviceSmartLock:
		return 9
	case DeviceCamera:
		return 8
	case DeviceNAS:
		return 7
	case DeviceThermostat:
		return 5
	case DeviceTV:
		return 4
	case DeviceLight:
		return 2
	default:
		return 1
	}
}
