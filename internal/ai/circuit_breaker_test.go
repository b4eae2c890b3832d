package ai

import (
	"errors"
	"testing"
	"time"

	"careercoach/internal/config"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

func TestIndependentCircuitBreakerConfigurations(t *testing.T) {
	questionCB := NewAICircuitBreaker(config.OpInterviewQuestion, config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          60 * time.Second,
		MinRequests:      3,
		FailureThreshold: 0.6,
	}, nil)
	critiqueCB := NewAICircuitBreaker(config.OpAnswerCritique, config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          45 * time.Second,
		MinRequests:      2,
		FailureThreshold: 0.7,
	}, nil)

	tests := []struct {
		name     string
		cb       *AICircuitBreaker
		expected string
	}{
		{"question", questionCB, "AI-interviewQuestion"},
		{"critique", critiqueCB, "AI-answerCritique"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := tt.cb.GetStats()
			if name, _ := stats["name"].(string); name != tt.expected {
				t.Errorf("Expected circuit breaker name '%s', got '%s'", tt.expected, name)
			}
			if state, _ := stats["state"].(string); state != "closed" {
				t.Errorf("Expected initial state 'closed', got '%s'", state)
			}
			if enabled, _ := stats["enabled"].(bool); !enabled {
				t.Error("Circuit breaker should be enabled")
			}
			if !tt.cb.IsHealthy() {
				t.Error("Circuit breaker should be healthy initially")
			}
		})
	}

	if questionCB == critiqueCB {
		t.Error("Breakers should be different instances")
	}
}

func TestCircuitBreakerTripsAfterFailures(t *testing.T) {
	cb := NewAICircuitBreaker(config.OpJobTrends, config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      2,
		FailureThreshold: 0.5,
	}, nil)

	boom := errors.New("boom")
	fail := func() (*genai.GenerateContentResponse, error) { return nil, boom }

	for range 2 {
		if _, err := cb.Execute(fail); !errors.Is(err, boom) {
			t.Fatalf("Expected underlying error, got %v", err)
		}
	}

	if cb.IsHealthy() {
		t.Fatal("Breaker should be open after failures")
	}

	called := false
	_, err := cb.Execute(func() (*genai.GenerateContentResponse, error) {
		called = true
		return &genai.GenerateContentResponse{}, nil
	})
	if called {
		t.Error("Open breaker must not run the call")
	}
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Expected open state error, got %v", err)
	}

	invErr := transportError(string(config.OpJobTrends), err)
	if !errors.Is(invErr, ErrCircuitOpen) {
		t.Errorf("Expected circuit_open classification, got %v", invErr.Kind)
	}
}

func TestCircuitBreakerDisabled(t *testing.T) {
	cb := NewAICircuitBreaker(config.OpMentor, config.CircuitBreakerConfig{Enabled: false}, nil)
	if cb != nil {
		t.Fatal("Circuit breaker should be nil when disabled")
	}

	// A nil breaker still runs calls
	resp := &genai.GenerateContentResponse{}
	got, err := cb.Execute(func() (*genai.GenerateContentResponse, error) { return resp, nil })
	if err != nil || got != resp {
		t.Errorf("Disabled breaker should pass through, got %v, %v", got, err)
	}
	if !cb.IsHealthy() {
		t.Error("Disabled breaker should report healthy")
	}
	if enabled, _ := cb.GetStats()["enabled"].(bool); enabled {
		t.Error("Disabled breaker should report enabled=false")
	}
}

func TestModelCircuitBreakerName(t *testing.T) {
	cb := NewModelCircuitBreaker(config.OpMentor, config.CircuitBreakerConfig{Enabled: true, MaxRequests: 1}, nil)
	if name, _ := cb.GetModelStats()["name"].(string); name != "AI-Model-mentor" {
		t.Errorf("Unexpected model breaker name %q", name)
	}
	if !cb.IsModelHealthy() {
		t.Error("Model breaker should be healthy initially")
	}
}
