package config

import (
	"time"

	"github.com/spf13/viper"
)

type operationDefaults struct {
	timeout     time.Duration
	maxRetries  int
	temperature float32
}

// Interview operations sit behind a user waiting for the next state; the
// session controller never retries, so the transport does not either.
var defaultOperationSettings = map[Operation]operationDefaults{
	OpInterviewQuestion: {timeout: 45 * time.Second, maxRetries: 0, temperature: 0.8},
	OpAnswerCritique:    {timeout: 60 * time.Second, maxRetries: 0, temperature: 0.2},
	OpResumeAnalysis:    {timeout: 90 * time.Second, maxRetries: 2, temperature: 0.2},
	OpCareerPaths:       {timeout: 60 * time.Second, maxRetries: 2, temperature: 0.4},
	OpJobTrends:         {timeout: 60 * time.Second, maxRetries: 2, temperature: 0.6},
	OpChannels:          {timeout: 60 * time.Second, maxRetries: 2, temperature: 0.5},
	OpMentor:            {timeout: 75 * time.Second, maxRetries: 1, temperature: 0.7},
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// AI Configuration - Global defaults
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.maxRetries", 3)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.useSystemPrompts", true)

	for op, d := range defaultOperationSettings {
		prefix := "ai." + string(op)
		v.SetDefault(prefix+".provider", "gemini")
		v.SetDefault(prefix+".model", "")
		v.SetDefault(prefix+".timeout", d.timeout)
		v.SetDefault(prefix+".apiKey", "")
		v.SetDefault(prefix+".maxRetries", d.maxRetries)
		v.SetDefault(prefix+".temperature", d.temperature)
		v.SetDefault(prefix+".useSystemPrompts", true)

		v.SetDefault(prefix+".circuitBreaker.enabled", true)
		v.SetDefault(prefix+".circuitBreaker.maxRequests", 3)
		v.SetDefault(prefix+".circuitBreaker.interval", 60*time.Second)
		v.SetDefault(prefix+".circuitBreaker.timeout", 60*time.Second)
		v.SetDefault(prefix+".circuitBreaker.minRequests", 3)
		v.SetDefault(prefix+".circuitBreaker.failureThreshold", 0.6)
	}

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 120*time.Second) // AI calls are slow
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.maxRequestSize", 5*1024*1024)
	v.SetDefault("server.tls.mode", "disabled")
	v.SetDefault("server.tls.minVersion", "1.2")
	v.SetDefault("server.tls.clientAuthPolicy", "require")
	v.SetDefault("server.tls.autoReload", true)
	v.SetDefault("server.tls.debounceDelay", time.Second)
	v.SetDefault("server.apiKeys", []string{})
	v.SetDefault("server.keyRotation.enabled", false)
	v.SetDefault("server.keyRotation.pollInterval", 5*time.Minute)
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.rateLimit.window", time.Minute)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 5*1024*1024)
	v.SetDefault("app.watchPrompts", false)

	// Interview
	v.SetDefault("interview.catalogFile", "")
	v.SetDefault("interview.strictDomains", false)
	v.SetDefault("interview.defaultLevel", "mid")
	v.SetDefault("interview.defaultMode", "text")
	v.SetDefault("interview.idleTimeout", 30*time.Minute)
	v.SetDefault("interview.maxSessions", 1000)

	// Storage, blobs, events, cache
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", "careercoach.db")
	v.SetDefault("blob.backend", "none")
	v.SetDefault("blob.dir", "")
	v.SetDefault("blob.bucket", "")
	v.SetDefault("blob.region", "auto")
	v.SetDefault("blob.endpoint", "")
	v.SetDefault("blob.prefix", "resumes")
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.url", "")
	v.SetDefault("events.exchange", "session_updates")
	v.SetDefault("cache.maxEntries", 512)
	v.SetDefault("cache.ttl", 6*time.Hour)

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.geminiKey", "")
	v.SetDefault("vault.secrets.tlsCerts", "")
	v.SetDefault("vault.secrets.storage", "")
	v.SetDefault("vault.secrets.blob", "")
	v.SetDefault("vault.secrets.events", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "careercoach")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)
	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
	v.SetDefault("observability.healthCheck.timeout", 15*time.Second)
	v.SetDefault("observability.healthCheck.aiModelCheckTimeout", 10*time.Second)
}
