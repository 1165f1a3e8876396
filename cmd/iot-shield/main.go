package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"iot-shield/api"
	"iot-shield/internal/alert"
	"iot-shield/internal/analyzer"
	"iot-shield/internal/correlation"
	"iot-shield/internal/deception"
	"iot-shield/internal/discovery"
	"iot-shield/internal/intel"
	"iot-shield/internal/metrics"
	"iot-shield/internal/mitigation"
	"iot-shield/internal/model"
	"iot-shield/internal/pipeline"
	"iot-shield/internal/risk"
	"iot-shield/internal/simulator"
	"iot-shield/internal/store"
	"iot-shield/internal/utils"

	"github.com/sirupsen/logrus"
)

// maxShadowDevices caps how many unenrolled nodes the scanner keeps visible
// at once
const maxShadowDevices = 3

func main() {
	var (
		configFile = flag.String("config", "configs/defense.yaml", "Configuration file path (YAML)")
	)
	flag.Parse()

	config, err := utils.LoadDefenseConfig(*configFile)
	if err != nil {
		fmt.Printf("Failed to load YAML config %s: %v\n", *configFile, err)
		fmt.Println("Using default configuration...")
		config = utils.GetDefaultConfig()
	} else {
		fmt.Printf("Loaded configuration from %s\n", *configFile)
	}

	fmt.Printf("%s starting in %s mode\n", config.Application.Name, config.Application.OperatingMode)
	fmt.Printf("API port: %s, metrics port: %s\n", config.API.Port, config.Metrics.Port)
	fmt.Println("")

	logger := utils.NewLogger(config.Logging.Level)
	if config.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var engineMetrics *metrics.Metrics
	if config.Metrics.Enabled {
		exporter, err := alert.StartPrometheusExporterWithCustomRegistry(config.Metrics.Port, logger)
		if err != nil {
			fmt.Printf("Failed to create Prometheus exporter: %v\n", err)
			os.Exit(1)
		}
		engineMetrics = exporter.GetMetrics()
		go func() {
			if err := exporter.Start(rootCtx); err != nil {
				logger.Errorf("Prometheus exporter error: %v", err)
			}
		}()
	}

	st, err := store.New(config.Application.DataDir, logger)
	if err != nil {
		fmt.Printf("Failed to open store: %v\n", err)
		os.Exit(1)
	}

	scorer := risk.NewScorer(time.Now().UnixNano(), logger)
	if len(st.Devices()) == 0 {
		seedDevices(st, scorer, logger)
	}

	mode := mitigation.NewModeSwitch(model.OperatingMode(config.Application.OperatingMode))
	mitigator := mitigation.NewEngine(mode.Source(), st.Mitigations(), logger)
	correlator := correlation.NewEngine(time.Duration(config.Correlation.LookbackMinutes)*time.Minute, st.Threats(0), logger)

	var dec *deception.Subsystem
	if config.Deception.Enabled {
		dec = deception.New(time.Now().UnixNano(), logger)
	} else {
		logger.Info("[Deception] subsystem disabled by configuration")
	}

	scanner := discovery.NewScanner(time.Now().UnixNano(), logger)
	explainer := intel.NewExplainer(config.Intel.APIKey, config.Intel.Model, config.Intel.RetryAttempts, logger)

	dispatcher := alert.NewDispatcher(logger)
	if config.Alerting.Enabled {
		registerAlertNotifiers(dispatcher, config, logger)
	}

	processor := pipeline.NewProcessor(pipeline.Config{
		Analyzer:   analyzer.New(config.Detection.WindowSize, logger),
		Correlator: correlator,
		Mitigator:  mitigator,
		Deception:  dec,
		Explainer:  explainer,
		Store:      st,
		Dispatcher: dispatcher,
		Metrics:    engineMetrics,
		Mode:       mode.Source(),
		Threshold:  config.Detection.ThreatThreshold,
		Logger:     logger,
	})

	server := api.NewServer(config.API.Port, api.Deps{
		Store:     st,
		Processor: processor,
		Mitigator: mitigator,
		Deception: dec,
		Discovery: scanner,
		Scorer:    scorer,
		Explainer: explainer,
		Mode:      mode,
		Metrics:   engineMetrics,
		Logger:    logger,
	})
	go func() {
		if err := server.Start(rootCtx); err != nil {
			logger.Errorf("API server error: %v", err)
		}
	}()

	if config.Detection.SimulateTraffic {
		sim := simulator.New(time.Now().UnixNano(), simulator.DefaultAttackProbability, logger)
		go runTrafficLoop(rootCtx, sim, processor, st, time.Duration(config.Detection.SimIntervalSeconds)*time.Second)
	}
	go runDiscoveryLoop(rootCtx, scanner, scorer, st, time.Duration(config.Detection.DiscoveryIntervalMin)*time.Minute, logger)
	go runFirewallSweep(rootCtx, mitigator, time.Duration(config.Mitigation.FirewallSweepSeconds)*time.Second)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	processor.Wait()
}

// seedDevices provisions the initial authorized inventory with learned
// baselines and a first vulnerability audit
func seedDevices(st *store.Store, scorer *risk.Scorer, logger *logrus.Logger) {
	devices := []model.Device{
		{
			ID:                    "d1",
			Name:                  "Core Gateway",
			Type:                  model.DeviceRouter,
			IP:                    "192.168.1.1",
			MAC:                   "00:14:22:01:23:45",
			Vendor:                "Ubiquiti",
			Criticality:           10,
			AnomalyScore:          0.02,
			Status:                model.StatusSecure,
			IsAuthorized:          true,
			FingerprintConfidence: 0.99,
			DetectedProtocols:     []string{"DHCP", "DNS", "HTTP/S", "SSH"},
			TrafficSignature:      "Core-Infrastructure",
		},
		{
			ID:                    "d2",
			Name:                  "Front Door Lock",
			Type:                  model.DeviceSmartLock,
			IP:                    "192.168.1.42",
			MAC:                   "AA:BB:CC:DD:EE:FF",
			Vendor:                "August",
			Criticality:           9,
			AnomalyScore:          0.05,
			Status:                model.StatusSecure,
			IsAuthorized:          true,
			FingerprintConfidence: 0.95,
			DetectedProtocols:     []string{"Z-Wave", "MQTT"},
			TrafficSignature:      "Burst-Intermittent",
		},
		{
			ID:                    "d3",
			Name:                  "Backyard Cam",
			Type:                  model.DeviceCamera,
			IP:                    "192.168.1.55",
			MAC:                   "11:22:33:44:55:66",
			Vendor:                "Hikvision",
			Criticality:           8,
			AnomalyScore:          0.08,
			Status:                model.StatusSecure,
			IsAuthorized:          true,
			FingerprintConfidence: 0.88,
			DetectedProtocols:     []string{"RTSP", "ONVIF", "HTTP"},
			TrafficSignature:      "Constant-Bitrate-Stream",
		},
	}

	for _, d := range devices {
		d.LastSeen = time.Now()
		d.BehaviorBaseline = analyzer.InitialBaseline(d.Type)
		scorer.Audit(&d)
		st.PutDevice(d)
	}
	logger.Infof("Seeded %d devices", len(devices))
}

func registerAlertNotifiers(dispatcher *alert.Dispatcher, config *utils.DefenseConfig, logger *logrus.Logger) {
	if config.Alerting.Channels.Log {
		dispatcher.RegisterNotifier(alert.NewLogAlertNotifier(logger))
		logger.Info("Log alert notifier registered")
	}
	if config.Alerting.Channels.Telegram && config.Alerting.Telegram.Enabled {
		tn := alert.NewTelegramNotifier(
			config.Alerting.Telegram.BotToken,
			config.Alerting.Telegram.ChatID,
			true,
			logger,
		)
		if tn.IsEnabled() {
			dispatcher.RegisterNotifier(tn)
			logger.Info("Telegram alert notifier registered")
		}
	}
}

func runTrafficLoop(ctx context.Context, sim *simulator.Simulator, processor *pipeline.Processor, st *store.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			for _, d := range st.Devices() {
				device := d
				processor.ProcessBatch(ctx, sim.Emit(&device, now))
			}
		}
	}
}

func runDiscoveryLoop(ctx context.Context, scanner *discovery.Scanner, scorer *risk.Scorer, st *store.Store, interval time.Duration, logger *logrus.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			shadows := 0
			for _, d := range st.Devices() {
				if !d.IsAuthorized {
					shadows++
				}
			}
			if shadows >= maxShadowDevices {
				continue
			}

			device := scanner.DiscoverShadowDevice()
			device.BehaviorBaseline = analyzer.InitialBaseline(device.Type)
			scorer.Audit(device)
			st.PutDevice(*device)
			logger.Warnf("Unauthorized device on network: %s (%s)", device.Name, device.IP)
		}
	}
}

func runFirewallSweep(ctx context.Context, mitigator *mitigation.Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mitigator.ExpireRules(time.Now())
		}
	}
}
