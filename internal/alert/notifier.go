package alert

import (
	"sync"

	"iot-shield/internal/model"

	"github.com/sirupsen/logrus"
)

// Notifier delivers one confirmed threat to an alert channel
type Notifier interface {
	SendAlert(threat model.ThreatEvent) error
}

// Dispatcher fans detected threats out to the registered notifiers
type Dispatcher struct {
	mu        sync.RWMutex
	notifiers []Notifier
	logger    *logrus.Logger
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher(logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// RegisterNotifier adds an alert channel
func (d *Dispatcher) RegisterNotifier(n Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiers = append(d.notifiers, n)
}

// Emit delivers a threat to every registered channel. Delivery failures are
// logged, never propagated: alerting must not stall the pipeline.
func (d *Dispatcher) Emit(threat model.ThreatEvent) {
	d.mu.RLock()
	notifiers := make([]Notifier, len(d.notifiers))
	copy(notifiers, d.notifiers)
	d.mu.RUnlock()

	for _, n := range notifiers {
		if err := n.SendAlert(threat); err != nil {
			d.logger.Errorf("Failed to send alert: %v", err)
		}
	}
}
