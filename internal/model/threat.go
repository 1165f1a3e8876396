package model

import "time"

// ThreatType labels the attack vector behind a threat event
type ThreatType string

const (
	ThreatPortScan           ThreatType = "Port Scan"
	ThreatBruteForce         ThreatType = "Brute Force"
	ThreatLateralMovement    ThreatType = "Lateral Movement"
	ThreatBotnetC2           ThreatType = "Botnet C2"
	ThreatDDoS               ThreatType = "DDoS"
	ThreatUnauthorizedAccess ThreatType = "Unauthorized Access"
	ThreatBehavioralAnomaly  ThreatType = "Behavioral Anomaly"
)

// Severity ranks how dangerous a threat is
type Severity string

const (
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// ThreatStatus tracks the handling state of a threat
type ThreatStatus string

const (
	ThreatDetected    ThreatStatus = "Detected"
	ThreatNeutralized ThreatStatus = "Neutralized"
)

// ThreatEvent records one detected attack against a device. Immutable once
// logged except for the enrichment fields written by the correlation engine
// (Confidence, IsCorrelated, CorrelatedThreatIDs, Type upgrade) and the
// AIReasoning text attached after the mitigation decision has been committed.
type ThreatEvent struct {
	ID                  string       `json:"id"`
	Timestamp           time.Time    `json:"timestamp"`
	SourceIP            string       `json:"source_ip"`
	TargetDeviceID      string       `json:"target_device_id"`
	Type                ThreatType   `json:"type"`
	Severity            Severity     `json:"severity"`
	Status              ThreatStatus `json:"status"`
	Confidence          float64      `json:"confidence"`
	IsCorrelated        bool         `json:"is_correlated"`
	CorrelatedThreatIDs []string     `json:"correlated_threat_ids,omitempty"`
	MitigationAction    string       `json:"mitigation_action,omitempty"`
	AIReasoning         string       `json:"ai_reasoning,omitempty"`
}
