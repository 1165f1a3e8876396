package alert

import (
	"iot-shield/internal/model"

	"github.com/sirupsen/logrus"
)

// LogAlertNotifier sends alerts to local logs
type LogAlertNotifier struct {
	logger *logrus.Logger
}

// NewLogAlertNotifier creates a new log alert notifier
func NewLogAlertNotifier(logger *logrus.Logger) *LogAlertNotifier {
	return &LogAlertNotifier{
		logger: logger,
	}
}

// SendAlert implements Notifier - sends the threat to logs
func (ln *LogAlertNotifier) SendAlert(threat model.ThreatEvent) error {
	ln.logger.Warnf("ALERT [%s] %s from %s targeting %s (confidence %.2f): %s",
		threat.Severity, threat.Type, threat.SourceIP, threat.TargetDeviceID,
		threat.Confidence, threat.MitigationAction)
	return nil
}
