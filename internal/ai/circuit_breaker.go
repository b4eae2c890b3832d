package ai

import (
	"fmt"

	"careercoach/internal/config"
	"careercoach/internal/errors"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

// AICircuitBreaker guards the generate calls of one operation.
// A nil breaker is disabled and runs calls directly.
type AICircuitBreaker struct {
	cb *gobreaker.CircuitBreaker[*genai.GenerateContentResponse]
}

// ModelCircuitBreaker guards model availability checks
type ModelCircuitBreaker struct {
	cb *gobreaker.CircuitBreaker[*genai.Model]
}

func breakerSettings(name string, op config.Operation, cfg config.CircuitBreakerConfig, logger *errors.Logger) gobreaker.Settings {
	if logger == nil {
		logger = errors.Discard()
	}
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"operation", string(op),
				"from", from.String(),
				"to", to.String(),
				"failure_threshold", cfg.FailureThreshold)
		},
	}
}

// NewAICircuitBreaker creates the breaker for one operation, or nil when disabled
func NewAICircuitBreaker(op config.Operation, cfg config.CircuitBreakerConfig, logger *errors.Logger) *AICircuitBreaker {
	if !cfg.Enabled {
		return nil
	}
	settings := breakerSettings(fmt.Sprintf("AI-%s", op), op, cfg, logger)
	return &AICircuitBreaker{
		cb: gobreaker.NewCircuitBreaker[*genai.GenerateContentResponse](settings),
	}
}

// NewModelCircuitBreaker creates the model check breaker. It trips more
// leniently than the operation breakers.
func NewModelCircuitBreaker(op config.Operation, cfg config.CircuitBreakerConfig, logger *errors.Logger) *ModelCircuitBreaker {
	if !cfg.Enabled {
		return nil
	}
	settings := breakerSettings(fmt.Sprintf("AI-Model-%s", op), op, cfg, logger)
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		if counts.Requests == 0 {
			return false
		}
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= 5 && failureRatio >= 0.8
	}
	return &ModelCircuitBreaker{
		cb: gobreaker.NewCircuitBreaker[*genai.Model](settings),
	}
}

// Execute runs fn through the breaker
func (cb *AICircuitBreaker) Execute(fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	if cb == nil || cb.cb == nil {
		return fn()
	}
	return cb.cb.Execute(fn)
}

// ExecuteModel runs fn through the model breaker
func (cb *ModelCircuitBreaker) ExecuteModel(fn func() (*genai.Model, error)) (*genai.Model, error) {
	if cb == nil || cb.cb == nil {
		return fn()
	}
	return cb.cb.Execute(fn)
}

// GetStats returns circuit breaker statistics
func (cb *AICircuitBreaker) GetStats() map[string]any {
	if cb == nil || cb.cb == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"name":    cb.cb.Name(),
		"state":   cb.cb.State().String(),
		"counts":  cb.cb.Counts(),
		"enabled": true,
	}
}

// GetModelStats returns model circuit breaker statistics
func (cb *ModelCircuitBreaker) GetModelStats() map[string]any {
	if cb == nil || cb.cb == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"name":    cb.cb.Name(),
		"state":   cb.cb.State().String(),
		"counts":  cb.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy reports whether the breaker is closed. A disabled breaker is healthy.
func (cb *AICircuitBreaker) IsHealthy() bool {
	if cb == nil || cb.cb == nil {
		return true
	}
	return cb.cb.State() == gobreaker.StateClosed
}

// IsModelHealthy reports whether the model breaker is closed
func (cb *ModelCircuitBreaker) IsModelHealthy() bool {
	if cb == nil || cb.cb == nil {
		return true
	}
	return cb.cb.State() == gobreaker.StateClosed
}
