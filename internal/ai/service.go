package ai

import (
	"context"
	"fmt"

	"careercoach/internal/config"
	"careercoach/internal/errors"
)

// Service holds the AI provider shared by the server and the CLI
type Service struct {
	Provider AIProvider
	logger   *errors.Logger
}

// NewService creates the provider selected by ai.provider
func NewService(cfg *config.Config, logger *errors.Logger) (*Service, error) {
	var provider AIProvider
	var err error

	logger.Debug("Initializing AI service",
		"provider", cfg.AI.Provider,
		"model", cfg.AI.Model)

	switch cfg.AI.Provider {
	case "gemini", "":
		provider, err = NewGeminiProvider(cfg, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.AI.Provider), nil)
	}

	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to create AI provider", err)
	}

	return NewServiceWith(provider, logger), nil
}

// NewServiceWith wraps an existing provider
func NewServiceWith(provider AIProvider, logger *errors.Logger) *Service {
	return &Service{Provider: provider, logger: logger}
}

// GetModelInfo returns information about the AI model for health checks
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	return s.Provider.GetModelInfo(ctx)
}

// BreakerStats returns breaker state when the provider exposes it
func (s *Service) BreakerStats() map[string]any {
	if r, ok := s.Provider.(BreakerReporter); ok {
		return r.GetCircuitBreakerStats()
	}
	return map[string]any{"enabled": false}
}

// Close releases the provider
func (s *Service) Close() error {
	return s.Provider.Close()
}
