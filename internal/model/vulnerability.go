package model

import "time"

// CVE is one known vulnerability affecting a device class
type CVE struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	CVSS        float64 `json:"cvss"`
}

// VulnerabilityProfile captures a device's static exposure surface. Owned
// 1:1 by its Device; regenerated on audit, not on every telemetry event.
type VulnerabilityProfile struct {
	FirmwareVersion     string    `json:"firmware_version"`
	FirmwareAgeDays     int       `json:"firmware_age_days"`
	KnownCVEs           []CVE     `json:"known_cves"`
	WeakAuthDetected    bool      `json:"weak_auth_detected"`
	InternetExposure    float64   `json:"internet_exposure"`
	PredictiveRiskScore float64   `json:"predictive_risk_score"`
	LastAuditDate       time.Time `json:"last_audit_date"`
}
