package namer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/localrivet/neurogalaxy/internal/telemetry"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	// StatusHealthy indicates a component is fully operational
	StatusHealthy HealthStatus = "healthy"

	// StatusDegraded indicates a component is operational but with reduced capability
	StatusDegraded HealthStatus = "degraded"

	// StatusUnhealthy indicates a component is not operational
	StatusUnhealthy HealthStatus = "unhealthy"
)

// Version is reported in health reports.
var Version = "dev"

// HealthReport describes naming availability and recent pipeline timings.
type HealthReport struct {
	Status        HealthStatus       `json:"status" yaml:"status"`
	Timestamp     time.Time          `json:"timestamp" yaml:"timestamp"`
	Provider      string             `json:"provider,omitempty" yaml:"provider,omitempty"`
	Available     bool               `json:"available" yaml:"available"`
	SuccessRate   float64            `json:"success_rate" yaml:"success_rate"`
	TotalRequests int64              `json:"total_requests" yaml:"total_requests"`
	Fallbacks     int64              `json:"fallbacks" yaml:"fallbacks"`
	StageTimes    map[string]float64 `json:"stage_times_ms" yaml:"stage_times_ms"`
	Runs          int64              `json:"runs" yaml:"runs"`
	Failures      int64              `json:"failures" yaml:"failures"`
	Version       string             `json:"version" yaml:"version"`
}

// CreateHealthReport summarises the namer and the pipeline metrics it shares.
// An unavailable provider is degraded, since placeholder names still work;
// a provider failing every call is unhealthy.
func CreateHealthReport(n *Namer) (*HealthReport, error) {
	if n == nil {
		return nil, fmt.Errorf("namer is nil")
	}
	m := n.GetMetrics()
	if m == nil {
		return nil, fmt.Errorf("metrics collector is nil")
	}

	success := m.GetCounter(telemetry.MetricNamerSuccess)
	failure := m.GetCounter(telemetry.MetricNamerFailure)
	total := success + failure

	var successRate float64
	if total > 0 {
		successRate = float64(success) / float64(total) * 100.0
	}

	status := StatusHealthy
	switch {
	case !n.Available():
		status = StatusDegraded
	case total > 0 && success == 0:
		status = StatusUnhealthy
	case failure > 0:
		status = StatusDegraded
	}

	ms := func(name string) float64 {
		return float64(m.GetTimerAverage(name)) / float64(time.Millisecond)
	}

	return &HealthReport{
		Status:        status,
		Timestamp:     time.Now(),
		Provider:      n.ProviderName(),
		Available:     n.Available(),
		SuccessRate:   successRate,
		TotalRequests: total,
		Fallbacks:     m.GetCounter(telemetry.MetricNamerFallbacks),
		StageTimes: map[string]float64{
			"embed":   ms(telemetry.MetricEmbedTime),
			"cluster": ms(telemetry.MetricClusterTime),
			"project": ms(telemetry.MetricProjectTime),
			"name":    ms(telemetry.MetricNameTime),
			"total":   ms(telemetry.MetricTotalTime),
			"namer":   ms(telemetry.MetricNamerResponseTime),
		},
		Runs:     m.GetCounter(telemetry.MetricRuns),
		Failures: m.GetCounter(telemetry.MetricFailures),
		Version:  Version,
	}, nil
}

// CreateHealthReportJSON generates a JSON health report
func CreateHealthReportJSON(n *Namer) (string, error) {
	report, err := CreateHealthReport(n)
	if err != nil {
		return "", err
	}

	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal health report: %w", err)
	}

	return string(reportJSON), nil
}

// ResetMetrics resets all metrics shared with the namer
func ResetMetrics(n *Namer) error {
	if n == nil {
		return fmt.Errorf("namer is nil")
	}
	m := n.GetMetrics()
	if m == nil {
		return fmt.Errorf("metrics collector is nil")
	}
	m.Reset()
	return nil
}
