package risk

import "iot-shield/internal/model"

// cveDatabase is the offline signature set keyed by device type. Unknown
// types resolve to an empty set, never an error.
var cveDatabase = map[model.DeviceType][]model.CVE{
	model.DeviceCamera: {
		{ID: "CVE-2023-1209", Description: "RTSP Buffer Overflow in Hikvision firmware", CVSS: 8.8},
		{ID: "CVE-2024-0012", Description: "Hardcoded credentials in cloud sync module", CVSS: 9.1},
	},
	model.DeviceNAS: {
		{ID: "CVE-2023-4421", Description: "Unauthenticated File Access in Samba implementation", CVSS: 7.5},
		{ID: "CVE-2024-1102", Description: "Directory traversal in web management interface", CVSS: 8.2},
	},
	model.DeviceRouter: {
		{ID: "CVE-2022-3001", Description: "UPnP vulnerability allowing remote code execution", CVSS: 9.8},
		{ID: "CVE-2024-5501", Description: "Stack-based buffer overflow in DNS relay", CVSS: 9.3},
	},
	model.DeviceSmartLock: {
		{ID: "CVE-2023-8890", Description: "Replay attack susceptibility in BLE handshake", CVSS: 6.2},
	},
}

// KnownCVEs returns the signature set for a device type
func KnownCVEs(t model.DeviceType) []model.CVE {
	return cveDatabase[t]
}
