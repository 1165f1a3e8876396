package discovery

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"iot-shield/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	shadowVendors   = []string{"Unknown", "Espressif", "Tuya", "Xiaomi", "Broadlink"}
	commonProtocols = []string{"MQTT", "CoAP", "HTTP", "mDNS", "UPnP", "SSDP", "Telnet"}

	// fingerprinting can only promote an unknown node to a low-stakes type
	fingerprintTypes = []model.DeviceType{model.DeviceLight, model.DeviceTV, model.DeviceThermostat}
)

// Scanner surfaces shadow devices: nodes that appear on the network segment
// without ever being enrolled. Until fingerprinted they are treated as
// unauthorized.
type Scanner struct {
	mu     sync.Mutex
	rng    *rand.Rand
	logger *logrus.Logger
}

func NewScanner(seed int64, logger *logrus.Logger) *Scanner {
	return &Scanner{
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger,
	}
}

// DiscoverShadowDevice fabricates one unenrolled node. Shadow devices start
// unauthorized with a low fingerprint confidence and an elevated
// vulnerability score, since nothing is known about their patch state.
func (s *Scanner) DiscoverShadowDevice() *model.Device {
	s.mu.Lock()
	defer s.mu.Unlock()

	ip := fmt.Sprintf("192.168.1.%d", s.rng.Intn(200)+50)
	octet := ip[strings.LastIndex(ip, ".")+1:]

	count := s.rng.Intn(3) + 1
	seen := make(map[string]struct{}, count)
	protocols := make([]string, 0, count)
	for i := 0; i < count; i++ {
		p := commonProtocols[s.rng.Intn(len(commonProtocols))]
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		protocols = append(protocols, p)
	}

	signature := "Quiet-Listener"
	if s.rng.Float64() > 0.5 {
		signature = "Suspicious-Beacon"
	}

	device := &model.Device{
		ID:                    "shadow-" + uuid.NewString()[:5],
		Name:                  fmt.Sprintf("Shadow Node [%s]", octet),
		Type:                  model.DeviceUnknown,
		IP:                    ip,
		MAC:                   s.randomMAC(),
		Vendor:                shadowVendors[s.rng.Intn(len(shadowVendors))],
		Criticality:           1,
		VulnerabilityScore:    0.7 + s.rng.Float64()*0.3,
		AnomalyScore:          0.4,
		Status:                model.StatusUnauthorized,
		LastSeen:              time.Now(),
		IsAuthorized:          false,
		FingerprintConfidence: 0.4 + s.rng.Float64()*0.4,
		DetectedProtocols:     protocols,
		TrafficSignature:      signature,
	}

	s.logger.Infof("[Discovery] shadow device %s (%s) surfaced at %s via %s",
		device.Name, device.ID, device.IP, strings.Join(protocols, ","))
	return device
}

// Fingerprint promotes an analyzed shadow device to a known low-stakes type
// and authorizes it. The device is mutated in place.
func (s *Scanner) Fingerprint(device *model.Device) {
	s.mu.Lock()
	t := fingerprintTypes[s.rng.Intn(len(fingerprintTypes))]
	s.mu.Unlock()

	device.Type = t
	device.FingerprintConfidence = 0.92
	device.IsAuthorized = true
	device.Status = model.StatusSecure
	device.Criticality = model.CriticalityFor(t)

	s.logger.Infof("[Discovery] fingerprinted %s as %s (confidence 0.92)", device.ID, t)
}

func (s *Scanner) randomMAC() string {
	parts := make([]string, 6)
	for i := range parts {
		parts[i] = fmt.Sprintf("%02X", s.rng.Intn(256))
	}
	return strings.Join(parts, ":")
}
