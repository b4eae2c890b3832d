package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"careercoach/internal/config"
)

func TestDisabledManager(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{ServiceName: "test"}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	called := false
	h := om.HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("Disabled middleware must pass requests through")
	}

	boom := errors.New("boom")
	err = om.GetMetrics().TrackAIOperationWithTokens(context.Background(), "mentor",
		func(context.Context) *AIOperationResult { return &AIOperationResult{Error: boom} }, om)
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped result error, got %v", err)
	}

	// Must not panic without instruments
	om.GetMetrics().RecordBusinessMetric(context.Background(), MetricSessionStarted, true, om)
	if err := om.Shutdown(context.Background()); err != nil {
		t.Error(err)
	}
}

func TestEnabledManagerRecords(t *testing.T) {
	cfg := &config.Config{}
	cfg.Observability.Metrics.Enabled = true
	om, err := NewObservabilityManager(ObservabilityConfig{
		ServiceName:    "careercoach-test",
		ServiceVersion: "test",
		Enabled:        true,
		SampleRate:     1,
	}, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = om.Shutdown(context.Background()) }()

	m := om.GetMetrics()
	if m.AIProcessingTime == nil || m.SessionsStarted == nil {
		t.Fatal("Instruments should be created")
	}

	err = m.TrackAIOperationWithTokens(context.Background(), "resumeAnalysis", func(context.Context) *AIOperationResult {
		return &AIOperationResult{TokenUsage: &TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}}
	}, om)
	if err != nil {
		t.Errorf("Unexpected error %v", err)
	}
	m.RecordBusinessMetric(context.Background(), MetricCacheHit, true, om)
	m.RecordBusinessMetric(context.Background(), "unknown", true, om)
}

func TestGetObservabilityConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Observability.Enabled = true
	cfg.Observability.ServiceName = "careercoach"
	cfg.Observability.Tracing.SampleRate = 0.5
	cfg.Observability.Console.Enabled = true

	got := GetObservabilityConfig(cfg, "1.2.3")
	if got.ServiceVersion != "1.2.3" {
		t.Errorf("Expected version fallback, got %q", got.ServiceVersion)
	}
	if got.SampleRate != 0 {
		t.Errorf("Disabled tracing should sample nothing, got %v", got.SampleRate)
	}
	if !got.ConsoleOutput {
		t.Error("Expected console output")
	}

	cfg.Observability.Tracing.Enabled = true
	if got := GetObservabilityConfig(cfg, "x"); got.SampleRate != 0.5 {
		t.Errorf("Expected sample rate 0.5, got %v", got.SampleRate)
	}
}
