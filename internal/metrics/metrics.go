package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus instruments
type Metrics struct {
	TelemetryTotal      prometheus.Counter
	TelemetryByDevice   *prometheus.CounterVec
	AnomalyScore        *prometheus.GaugeVec
	ThreatsByType       *prometheus.CounterVec
	ThreatsBySeverity   *prometheus.CounterVec
	CorrelatedThreats   prometheus.Counter
	MitigationsByAction *prometheus.CounterVec
	MitigationSkips     prometheus.Counter
	Rollbacks           prometheus.Counter
	DecoyHits           prometheus.Counter
	HoneytokenTriggers  prometheus.Counter
	ExplainerFallbacks  prometheus.Counter
	ProcessingTime      prometheus.Histogram
}

// New creates the metric instruments
func New() *Metrics {
	return &Metrics{
		TelemetryTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iotshield_telemetry_events_total",
			Help: "Total telemetry events processed",
		}),
		TelemetryByDevice: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iotshield_telemetry_events_by_device_total",
			Help: "Telemetry events processed per device",
		}, []string{"device"}),
		AnomalyScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "iotshield_device_anomaly_score",
			Help: "Most recent anomaly score per device",
		}, []string{"device"}),
		ThreatsByType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iotshield_threats_total",
			Help: "Detected threats by type",
		}, []string{"type"}),
		ThreatsBySeverity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iotshield_threats_by_severity_total",
			Help: "Detected threats by severity",
		}, []string{"severity"}),
		CorrelatedThreats: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iotshield_correlated_threats_total",
			Help: "Threats enriched into a multi-stage campaign",
		}),
		MitigationsByAction: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iotshield_mitigations_total",
			Help: "Applied containment transitions by action",
		}, []string{"action"}),
		MitigationSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iotshield_mitigation_learning_skips_total",
			Help: "Mitigations suppressed by Learning mode",
		}),
		Rollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iotshield_mitigation_rollbacks_total",
			Help: "Mitigation records rolled back",
		}),
		DecoyHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iotshield_decoy_hits_total",
			Help: "Interactions recorded against decoy devices",
		}),
		HoneytokenTriggers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iotshield_honeytoken_triggers_total",
			Help: "Honeytoken uses observed",
		}),
		ExplainerFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iotshield_explainer_fallbacks_total",
			Help: "Threat explanations served from local heuristics",
		}),
		ProcessingTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "iotshield_event_processing_seconds",
			Help:    "Time spent processing one telemetry event end to end",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Describe implements prometheus.Collector
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.TelemetryTotal.Describe(ch)
	m.TelemetryByDevice.Describe(ch)
	m.AnomalyScore.Describe(ch)
	m.ThreatsByType.Describe(ch)
	m.ThreatsBySeverity.Describe(ch)
	m.CorrelatedThreats.Describe(ch)
	m.MitigationsByAction.Describe(ch)
	m.MitigationSkips.Describe(ch)
	m.Rollbacks.Describe(ch)
	m.DecoyHits.Describe(ch)
	m.HoneytokenTriggers.Describe(ch)
	m.ExplainerFallbacks.Describe(ch)
	m.ProcessingTime.Describe(ch)
}

// Collect implements prometheus.Collector
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.TelemetryTotal.Collect(ch)
	m.TelemetryByDevice.Collect(ch)
	m.AnomalyScore.Collect(ch)
	m.ThreatsByType.Collect(ch)
	m.ThreatsBySeverity.Collect(ch)
	m.CorrelatedThreats.Collect(ch)
	m.MitigationsByAction.Collect(ch)
	m.MitigationSkips.Collect(ch)
	m.Rollbacks.Collect(ch)
	m.DecoyHits.Collect(ch)
	m.HoneytokenTriggers.Collect(ch)
	m.ExplainerFallbacks.Collect(ch)
	m.ProcessingTime.Collect(ch)
}
