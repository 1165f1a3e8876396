package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"iot-shield/internal/model"

	"github.com/sirupsen/logrus"
)

// TelegramNotifier pushes threat alerts to a Telegram chat
type TelegramNotifier struct {
	botToken string
	chatID   string
	enabled  bool
	client   *http.Client
	logger   *logrus.Logger
}

type telegramMessage struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// NewTelegramNotifier creates a Telegram alert channel
func NewTelegramNotifier(botToken, chatID string, enabled bool, logger *logrus.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		enabled:  enabled,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// SendAlert implements Notifier with bounded retries
func (tn *TelegramNotifier) SendAlert(threat model.ThreatEvent) error {
	if !tn.enabled {
		tn.logger.Debug("Telegram notifier is disabled, skipping alert")
		return nil
	}

	message := tn.formatThreatMessage(threat)

	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		err := tn.sendMessage(message)
		if err == nil {
			return nil
		}

		tn.logger.Warnf("Failed to send alert (attempt %d/%d): %v", i+1, maxRetries, err)

		if i < maxRetries-1 {
			time.Sleep(time.Duration(i+1) * time.Second)
		}
	}

	return fmt.Errorf("failed to send alert after %d attempts", maxRetries)
}

func (tn *TelegramNotifier) formatThreatMessage(threat model.ThreatEvent) string {
	return fmt.Sprintf("THREAT DETECTED: Network Defense\n\n"+
		"type: %s\n"+
		"time: %s\n"+
		"severity: %s\n"+
		"source: %s\n"+
		"target: %s\n"+
		"confidence: %.2f\n"+
		"action: %s",
		threat.Type,
		threat.Timestamp.Format("2006-01-02 15:04:05"),
		threat.Severity,
		threat.SourceIP,
		threat.TargetDeviceID,
		threat.Confidence,
		threat.MitigationAction)
}

func (tn *TelegramNotifier) sendMessage(text string) error {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", tn.botToken)

	message := telegramMessage{
		ChatID: tn.chatID,
		Text:   text,
	}

	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %v", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := tn.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	var tgResp telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&tgResp); err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}

	if !tgResp.OK {
		return fmt.Errorf("telegram API error: %s", tgResp.Description)
	}

	return nil
}

// IsEnabled reports whether this channel is active
func (tn *TelegramNotifier) IsEnabled() bool {
	return tn.enabled
}
