package namer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/localrivet/neurogalaxy/internal/namer/providers"
	"github.com/localrivet/neurogalaxy/internal/telemetry"
)

func TestCreateHealthReport(t *testing.T) {
	metrics := telemetry.NewMetricsCollector()
	n := NewWithGenerator(providers.NewTestProvider("test", "Title", nil), Config{}, metrics, nil)

	metrics.IncrementCounter(telemetry.MetricNamerSuccess, 80)
	metrics.IncrementCounter(telemetry.MetricNamerFailure, 20)
	metrics.IncrementCounter(telemetry.MetricNamerFallbacks, 20)
	metrics.IncrementCounter(telemetry.MetricRuns, 5)
	metrics.RecordTimer(telemetry.MetricEmbedTime, 500*time.Millisecond)

	report, err := CreateHealthReport(n)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if report.Status != StatusDegraded {
		t.Errorf("Expected status to be degraded, got %s", report.Status)
	}
	if report.TotalRequests != 100 {
		t.Errorf("Expected 100 total requests, got %d", report.TotalRequests)
	}
	if report.SuccessRate != 80.0 {
		t.Errorf("Expected 80%% success rate, got %.1f%%", report.SuccessRate)
	}
	if report.StageTimes["embed"] != 500 {
		t.Errorf("Expected 500ms embed time, got %f", report.StageTimes["embed"])
	}
	if report.Provider != "test" || !report.Available || report.Runs != 5 {
		t.Errorf("Unexpected report fields: %+v", report)
	}

	jsonReport, err := CreateHealthReportJSON(n)
	if err != nil {
		t.Fatalf("Unexpected JSON error: %v", err)
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(jsonReport), &parsed); err != nil {
		t.Fatalf("Failed to parse JSON report: %v", err)
	}
	if parsed["status"] != string(StatusDegraded) {
		t.Errorf("Expected status in JSON, got %v", parsed["status"])
	}

	if err := ResetMetrics(n); err != nil {
		t.Fatalf("Unexpected error resetting metrics: %v", err)
	}
	if metrics.GetCounter(telemetry.MetricNamerSuccess) != 0 {
		t.Errorf("Expected metrics to be reset")
	}
}

func TestHealthReportStatus(t *testing.T) {
	tests := []struct {
		name      string
		generator providers.TextGenerator
		success   int64
		failure   int64
		want      HealthStatus
	}{
		{"unavailable", nil, 0, 0, StatusDegraded},
		{"fresh", providers.NewTestProvider("p", "x", nil), 0, 0, StatusHealthy},
		{"all succeed", providers.NewTestProvider("p", "x", nil), 3, 0, StatusHealthy},
		{"all fail", providers.NewTestProvider("p", "x", nil), 0, 3, StatusUnhealthy},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			metrics := telemetry.NewMetricsCollector()
			n := NewWithGenerator(test.generator, Config{}, metrics, nil)
			metrics.IncrementCounter(telemetry.MetricNamerSuccess, test.success)
			metrics.IncrementCounter(telemetry.MetricNamerFailure, test.failure)

			report, err := CreateHealthReport(n)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if report.Status != test.want {
				t.Errorf("Expected %s, got %s", test.want, report.Status)
			}
		})
	}

	if _, err := CreateHealthReport(nil); err == nil {
		t.Errorf("Expected error for nil namer")
	}
}
