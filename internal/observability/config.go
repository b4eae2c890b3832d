package observability

import (
	"careercoach/internal/config"
)

// GetObservabilityConfig derives the manager settings from the application config
func GetObservabilityConfig(cfg *config.Config, version string) ObservabilityConfig {
	if cfg == nil {
		return ObservabilityConfig{
			ServiceName:    "careercoach",
			ServiceVersion: version,
			Enabled:        true,
			ConsoleOutput:  true,
			PrettyPrint:    true,
			SampleRate:     1.0,
			Prometheus:     GetPrometheusConfig(nil),
		}
	}

	obs := cfg.Observability
	serviceVersion := obs.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}

	sampleRate := obs.Tracing.SampleRate
	if !obs.Tracing.Enabled {
		sampleRate = 0
	}

	return ObservabilityConfig{
		ServiceName:    obs.ServiceName,
		ServiceVersion: serviceVersion,
		Enabled:        obs.Enabled,
		ConsoleOutput:  obs.Console.Enabled,
		PrettyPrint:    obs.Console.PrettyPrint,
		SampleRate:     sampleRate,
		Prometheus:     GetPrometheusConfig(cfg),
	}
}
