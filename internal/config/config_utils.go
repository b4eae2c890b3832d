package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyGeminiKeyFallback()
	c.applyServerAPIKeyFallbacks()
	c.applyTLSDefaults()
	c.applyObservabilityDefaults()
}

// applyGeminiKeyFallback honours the variable the Gemini tooling uses
func (c *Config) applyGeminiKeyFallback() {
	if c.AI.APIKey == "" {
		c.AI.APIKey = os.Getenv("GEMINI_API_KEY")
	}
}

// applyServerAPIKeyFallbacks reads the comma separated key list from the
// environment when nothing else set it, and normalizes the list whatever its
// source. viper splits env lists without trimming.
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("CAREERCOACH_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitAndTrim(apiKeysEnv)
		}
	}
	c.Server.APIKeys = splitAndTrim(strings.Join(c.Server.APIKeys, ","))
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

// applyTLSDefaults applies default TLS configuration values
func (c *Config) applyTLSDefaults() {
	if c.Server.TLS.Mode == "" {
		c.Server.TLS.Mode = "disabled"
	}
	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"CAREERCOACH_AI_APIKEY",
		"CAREERCOACH_AI_MODEL",
		"CAREERCOACH_SERVER_PORT",
		"CAREERCOACH_SERVER_HOST",
		"CAREERCOACH_APP_LOGLEVEL",
		"CAREERCOACH_STORAGE_DRIVER",
		"CAREERCOACH_STORAGE_DSN",
		"CAREERCOACH_VAULT_ENABLED",
		"GEMINI_API_KEY",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			lower := strings.ToLower(envVar)
			if strings.Contains(lower, "key") || strings.Contains(lower, "dsn") {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] AI Provider: %s", c.AI.Provider)
	log.Printf("[CONFIG] AI Model: %s", c.AI.Model)
	if c.AI.APIKey != "" {
		log.Println("[CONFIG] AI API Key: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] AI API Key: ***NOT SET***")
	}
	log.Printf("[CONFIG] Server: %s:%s (TLS %s)", c.Server.Host, c.Server.Port, c.Server.TLS.Mode)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Storage Driver: %s", c.Storage.Driver)
	log.Printf("[CONFIG] Blob Backend: %s", c.Blob.Backend)
	log.Printf("[CONFIG] Events Enabled: %t", c.Events.Enabled)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)

	log.Println("[CONFIG] === Operation-Specific AI Configurations ===")
	for _, op := range Operations {
		opCfg := c.GetOperationConfig(op)
		log.Printf("[CONFIG] %s - Model: %s, MaxRetries: %d", op, opCfg.Model, *opCfg.MaxRetries)
	}

	log.Println("[CONFIG] =====================================")
}
