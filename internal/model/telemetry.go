package model

import "time"

// TelemetryEvent is one observed network interaction attributed to a device.
// Destination is the remote endpoint: where the traffic goes for outbound
// events, where it came from for inbound ones. Events are ephemeral: only a
// bounded per-device window of recent events is retained by the analyzer,
// nothing is persisted long-term.
type TelemetryEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	DeviceID    string    `json:"device_id"`
	Protocol    string    `json:"protocol"`
	Port        int       `json:"port"`
	Destination string    `json:"destination"`
	IsOutbound  bool      `json:"is_outbound"`
	VolumeMB    float64   `json:"volume_mb"`
}
