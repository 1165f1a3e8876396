package mitigation

import (
	"fmt"
	"time"

	"iot-shield/internal/model"

	"github.com/google/uuid"
)

// TightenPolicy builds a temporary firewall rule for a device. Strictness
// scales the rule's lifetime: a critical-severity clamp lives longer than an
// ordinary one.
func TightenPolicy(device *model.Device, strictness float64) model.FirewallRule {
	now := time.Now()
	return model.FirewallRule{
		ID:         "fw-" + uuid.NewString(),
		DeviceID:   device.ID,
		DeviceName: device.Name,
		Policy:     fmt.Sprintf("DENY-UNLISTED egress for %s", device.IP),
		Strictness: strictness,
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Duration(strictness * float64(time.Hour))),
	}
}

// FirewallRules returns a snapshot of the active rules
func (e *Engine) FirewallRules() []model.FirewallRule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.FirewallRule(nil), e.rules...)
}

// ExpireRules drops rules whose lifetime has passed and reports how many
// were removed
func (e *Engine) ExpireRules(now time.Time) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	kept := e.rules[:0]
	removed := 0
	for _, r := range e.rules {
		if r.ExpiresAt.After(now) {
			kept = append(kept, r)
		} else {
			removed++
		}
	}
	e.rules = kept
	if removed > 0 {
		e.logger.Debugf("[Firewall] expired %d tightened rules", removed)
	}
	return removed
}

// RemoveRule deletes one rule by id
func (e *Engine) RemoveRule(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, r := range e.rules {
		if r.ID == id {
			e.rules = append(e.rules[:i], e.rules[i+1:]...)
			return true
		}
	}
	return false
}
