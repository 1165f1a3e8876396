package utils

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefenseConfig is the top-level configuration for the defense engine
type DefenseConfig struct {
	Application ApplicationConfig `yaml:"application"`
	Detection   DetectionConfig   `yaml:"detection"`
	Correlation CorrelationConfig `yaml:"correlation"`
	Mitigation  MitigationConfig  `yaml:"mitigation"`
	Deception   DeceptionConfig   `yaml:"deception"`
	Intel       IntelConfig       `yaml:"intel"`
	Alerting    AlertingConfig    `yaml:"alerting"`
	API         APIConfig         `yaml:"api"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ApplicationConfig struct {
	Name          string `yaml:"name"`
	OperatingMode string `yaml:"operating_mode"`
	DataDir       string `yaml:"data_dir"`
}

type DetectionConfig struct {
	ThreatThreshold      float64 `yaml:"threat_threshold"`
	WindowSize           int     `yaml:"window_size"`
	SimulateTraffic      bool    `yaml:"simulate_traffic"`
	SimIntervalSeconds   int     `yaml:"sim_interval_seconds"`
	DiscoveryIntervalMin int     `yaml:"discovery_interval_minutes"`
}

type CorrelationConfig struct {
	LookbackMinutes int `yaml:"lookback_minutes"`
}

type MitigationConfig struct {
	FirewallSweepSeconds int `yaml:"firewall_sweep_seconds"`
}

type DeceptionConfig struct {
	Enabled bool `yaml:"enabled"`
}

type IntelConfig struct {
	APIKey        string `yaml:"api_key"`
	Model         string `yaml:"model"`
	RetryAttempts int    `yaml:"retry_attempts"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	Enabled  bool   `yaml:"enabled"`
}

type AlertChannelsConfig struct {
	Log      bool `yaml:"log"`
	Telegram bool `yaml:"telegram"`
}

type AlertingConfig struct {
	Enabled  bool                `yaml:"enabled"`
	Channels AlertChannelsConfig `yaml:"channels"`
	Telegram TelegramConfig      `yaml:"telegram"`
}

type APIConfig struct {
	Port string `yaml:"port"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    string `yaml:"port"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadDefenseConfig loads configuration from a YAML file
func LoadDefenseConfig(filename string) (*DefenseConfig, error) {
	if filename == "" {
		filename = "configs/defense.yaml"
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %v", filename, err)
	}

	var config DefenseConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config file %s: %v", filename, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %v", err)
	}

	return &config, nil
}

// Validate checks the configuration and back-fills defaults
func (c *DefenseConfig) Validate() error {
	if c.Application.Name == "" {
		c.Application.Name = "iot-shield"
	}
	if c.Application.OperatingMode == "" {
		c.Application.OperatingMode = "Learning"
	}
	switch strings.ToLower(c.Application.OperatingMode) {
	case "learning":
		c.Application.OperatingMode = "Learning"
	case "protection":
		c.Application.OperatingMode = "Protection"
	default:
		return fmt.Errorf("operating_mode must be Learning or Protection, got %q", c.Application.OperatingMode)
	}
	if c.Application.DataDir == "" {
		c.Application.DataDir = "data"
	}

	if c.Detection.ThreatThreshold <= 0 {
		c.Detection.ThreatThreshold = 0.5
	}
	if c.Detection.ThreatThreshold > 1.0 {
		return fmt.Errorf("threat_threshold must not exceed 1.0")
	}
	if c.Detection.WindowSize <= 0 {
		c.Detection.WindowSize = 20
	}
	if c.Detection.SimIntervalSeconds <= 0 {
		c.Detection.SimIntervalSeconds = 3
	}
	if c.Detection.DiscoveryIntervalMin <= 0 {
		c.Detection.DiscoveryIntervalMin = 5
	}

	if c.Correlation.LookbackMinutes <= 0 {
		c.Correlation.LookbackMinutes = 10
	}

	if c.Mitigation.FirewallSweepSeconds <= 0 {
		c.Mitigation.FirewallSweepSeconds = 60
	}

	if c.Intel.Model == "" {
		c.Intel.Model = "gpt-4o-mini"
	}
	if c.Intel.RetryAttempts <= 0 {
		c.Intel.RetryAttempts = 2
	}
	if c.Intel.APIKey == "" {
		c.Intel.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if c.API.Port == "" {
		c.API.Port = "8081"
	}
	if c.Metrics.Port == "" {
		c.Metrics.Port = "8080"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	return nil
}

// GetDefaultConfig returns a configuration with every default applied
func GetDefaultConfig() *DefenseConfig {
	config := &DefenseConfig{
		Deception: DeceptionConfig{Enabled: true},
		Detection: DetectionConfig{SimulateTraffic: true},
		Alerting: AlertingConfig{
			Enabled: true,
			Channels: AlertChannelsConfig{
				Log:      true,
				Telegram: false,
			},
		},
		Metrics: MetricsConfig{Enabled: true},
	}
	_ = config.Validate()
	return config
}

// SaveConfig writes the configuration back to a YAML file
func (c *DefenseConfig) SaveConfig(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %v", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %v", filename, err)
	}

	return nil
}
