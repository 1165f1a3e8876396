package intel

import (
	"context"
	"errors"
	"testing"

	"iot-shield/internal/model"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type stubClient struct {
	calls     int
	failUntil int
	failWith  error
	reply     string
}

func (s *stubClient) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.calls++
	if s.calls <= s.failUntil {
		return openai.ChatCompletionResponse{}, s.failWith
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: s.reply}},
		},
	}, nil
}

func rateLimitErr() error {
	return &openai.APIError{HTTPStatusCode: 429, Message: "quota exceeded"}
}

func threatAndDevice() (*model.ThreatEvent, *model.Device) {
	return &model.ThreatEvent{Type: model.ThreatBruteForce, MitigationAction: "Quarantined"},
		&model.Device{Name: "Backyard Cam", Type: model.DeviceCamera}
}

func TestExplainUsesServiceReply(t *testing.T) {
	stub := &stubClient{reply: "Blocked a credential stuffing attempt."}
	e := NewExplainerWithClient(stub, "gpt-4o-mini", logrus.New())

	threat, device := threatAndDevice()
	text := e.Explain(context.Background(), threat, device)

	assert.Equal(t, "Blocked a credential stuffing attempt.", text)
	assert.Equal(t, 1, stub.calls)
}

func TestExplainCachesPerTypePair(t *testing.T) {
	stub := &stubClient{reply: "cached reply"}
	e := NewExplainerWithClient(stub, "gpt-4o-mini", logrus.New())

	threat, device := threatAndDevice()
	e.Explain(context.Background(), threat, device)
	e.Explain(context.Background(), threat, device)

	assert.Equal(t, 1, stub.calls)
}

func TestExplainRetriesOnRateLimit(t *testing.T) {
	stub := &stubClient{failUntil: 2, failWith: rateLimitErr(), reply: "recovered"}
	e := NewExplainerWithClient(stub, "gpt-4o-mini", logrus.New())

	threat, device := threatAndDevice()
	text := e.Explain(context.Background(), threat, device)

	assert.Equal(t, "recovered", text)
	assert.Equal(t, 3, stub.calls)
}

func TestExplainFallsBackAfterRetryBudget(t *testing.T) {
	stub := &stubClient{failUntil: 10, failWith: rateLimitErr()}
	e := NewExplainerWithClient(stub, "gpt-4o-mini", logrus.New())

	threat, device := threatAndDevice()
	text := e.Explain(context.Background(), threat, device)

	assert.Contains(t, text, "[Agent Intelligence Backup]")
	assert.Contains(t, text, "credential stuffing")
	assert.Equal(t, 3, stub.calls) // initial attempt plus two retries
}

func TestConfiguredRetryCountCapsAttempts(t *testing.T) {
	stub := &stubClient{failUntil: 10, failWith: rateLimitErr()}
	e := NewExplainer("", "gpt-4o-mini", 4, logrus.New())
	e.client = stub
	e.baseDelay = 0

	threat, device := threatAndDevice()
	text := e.Explain(context.Background(), threat, device)

	assert.Contains(t, text, "[Agent Intelligence Backup]")
	assert.Equal(t, 5, stub.calls) // initial attempt plus four retries
}

func TestNonRetryableErrorFailsFast(t *testing.T) {
	stub := &stubClient{failUntil: 10, failWith: errors.New("invalid request")}
	e := NewExplainerWithClient(stub, "gpt-4o-mini", logrus.New())

	threat, device := threatAndDevice()
	text := e.Explain(context.Background(), threat, device)

	assert.Contains(t, text, "[Agent Intelligence Backup]")
	assert.Equal(t, 1, stub.calls)
}

func TestOfflineExplainerServesHeuristics(t *testing.T) {
	e := NewExplainer("", "gpt-4o-mini", 2, logrus.New())

	threat, device := threatAndDevice()
	assert.Contains(t, e.Explain(context.Background(), threat, device), "credential stuffing")

	unknown := &model.ThreatEvent{Type: model.ThreatBotnetC2}
	assert.Equal(t, genericFallback, e.Explain(context.Background(), unknown, device))
}

func TestSummarize(t *testing.T) {
	e := NewExplainer("", "gpt-4o-mini", 2, logrus.New())

	assert.Contains(t, e.Summarize(context.Background(), nil), "Network is secure")

	threats := []model.ThreatEvent{{Type: model.ThreatPortScan}}
	assert.Contains(t, e.Summarize(context.Background(), threats), "Post-Attack Audit")

	stub := &stubClient{reply: "All clear."}
	online := NewExplainerWithClient(stub, "gpt-4o-mini", logrus.New())
	assert.Equal(t, "All clear.", online.Summarize(context.Background(), threats))
}
