package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
// API Key Precedence Order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (CAREERCOACH_AI_APIKEY, etc.)
// 4. GEMINI_API_KEY
// 5. Default values - Lowest priority
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Interview     InterviewConfig     `mapstructure:"interview"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Blob          BlobConfig          `mapstructure:"blob"`
	Events        EventsConfig        `mapstructure:"events"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`

	prompts *PromptSet
}

// AIConfig holds AI service configuration
type AIConfig struct {
	// Global/fallback configuration
	Provider         string        `mapstructure:"provider"`
	Model            string        `mapstructure:"model"`
	Timeout          time.Duration `mapstructure:"timeout"`
	APIKey           string        `mapstructure:"apiKey"`
	MaxRetries       int           `mapstructure:"maxRetries"`
	Temperature      float32       `mapstructure:"temperature"`
	UseSystemPrompts bool          `mapstructure:"useSystemPrompts"`

	// Operation-specific configurations
	InterviewQuestion OperationAIConfig `mapstructure:"interviewQuestion"`
	AnswerCritique    OperationAIConfig `mapstructure:"answerCritique"`
	ResumeAnalysis    OperationAIConfig `mapstructure:"resumeAnalysis"`
	CareerPaths       OperationAIConfig `mapstructure:"careerPaths"`
	JobTrends         OperationAIConfig `mapstructure:"jobTrends"`
	Channels          OperationAIConfig `mapstructure:"channels"`
	Mentor            OperationAIConfig `mapstructure:"mentor"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// OperationAIConfig holds AI configuration for specific operations
type OperationAIConfig struct {
	Provider         string               `mapstructure:"provider"`
	Model            string               `mapstructure:"model"`
	Timeout          *time.Duration       `mapstructure:"timeout"`
	APIKey           string               `mapstructure:"apiKey"`
	MaxRetries       *int                 `mapstructure:"maxRetries"`
	Temperature      *float32             `mapstructure:"temperature"`
	UseSystemPrompts *bool                `mapstructure:"useSystemPrompts"`
	Prompts          PromptConfig         `mapstructure:"prompts"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// PromptConfig holds the customizable prompts of one operation. Inline text wins
// over the built-in default; a file wins over inline text.
type PromptConfig struct {
	System     string `mapstructure:"system"`
	SystemFile string `mapstructure:"systemFile"`
	User       string `mapstructure:"user"`
	UserFile   string `mapstructure:"userFile"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout    time.Duration `mapstructure:"idleTimeout"`
	MaxRequestSize int64         `mapstructure:"maxRequestSize"`

	TLS TLSConfig `mapstructure:"tls"`

	// API Authentication
	APIKeys     []string          `mapstructure:"apiKeys"`
	KeyRotation KeyRotationConfig `mapstructure:"keyRotation"`

	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TLSConfig holds TLS/mTLS configuration
type TLSConfig struct {
	Mode     string `mapstructure:"mode"` // "disabled", "server", "mutual"
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
	CAFile   string `mapstructure:"caFile"`

	// Certificate content (used when loaded from Vault instead of files)
	CertContent string `mapstructure:"certContent"`
	KeyContent  string `mapstructure:"keyContent"`
	CAContent   string `mapstructure:"caContent"`

	MinVersion       string `mapstructure:"minVersion"`       // "1.2", "1.3"
	ClientAuthPolicy string `mapstructure:"clientAuthPolicy"` // "require", "request", "verify"

	// Reload certificate files when they change on disk
	AutoReload    bool          `mapstructure:"autoReload"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`
}

// KeyRotationConfig controls polling Vault for new server API keys
type KeyRotationConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`        // Enable/disable rate limiting
	RequestsPerMin int           `mapstructure:"requestsPerMin"` // Requests allowed per minute
	BurstCapacity  int           `mapstructure:"burstCapacity"`  // Burst capacity for token bucket
	ByIP           bool          `mapstructure:"byIP"`           // Enable per-IP rate limiting
	ByAPIKey       bool          `mapstructure:"byAPIKey"`       // Enable per-API-key rate limiting
	Window         time.Duration `mapstructure:"window"`         // Rate limiting window duration
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
	// WatchPrompts reloads prompt files when they change
	WatchPrompts bool `mapstructure:"watchPrompts"`
}

// InterviewConfig holds mock interview settings
type InterviewConfig struct {
	CatalogFile   string        `mapstructure:"catalogFile"`
	StrictDomains bool          `mapstructure:"strictDomains"`
	DefaultLevel  string        `mapstructure:"defaultLevel"`
	DefaultMode   string        `mapstructure:"defaultMode"`
	IdleTimeout   time.Duration `mapstructure:"idleTimeout"`
	MaxSessions   int           `mapstructure:"maxSessions"`
}

// StorageConfig selects the profile database
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "postgres"
	DSN    string `mapstructure:"dsn"`
}

// BlobConfig selects where uploaded résumé documents are kept
type BlobConfig struct {
	Backend         string `mapstructure:"backend"` // "none", "filesystem", "s3"
	Dir             string `mapstructure:"dir"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"` // for R2/MinIO
	AccessKeyID     string `mapstructure:"accessKeyId"`
	SecretAccessKey string `mapstructure:"secretAccessKey"`
	Prefix          string `mapstructure:"prefix"`
}

// EventsConfig configures publishing of interview session events
type EventsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

// CacheConfig bounds the fingerprint-keyed result cache
type CacheConfig struct {
	MaxEntries int           `mapstructure:"maxEntries"`
	TTL        time.Duration `mapstructure:"ttl"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool              `mapstructure:"enabled"`
	ServiceName     string            `mapstructure:"serviceName"`
	ServiceVersion  string            `mapstructure:"serviceVersion"`
	ServiceInstance string            `mapstructure:"serviceInstance"`
	Tracing         TracingConfig     `mapstructure:"tracing"`
	Metrics         MetricsConfig     `mapstructure:"metrics"`
	Console         ConsoleConfig     `mapstructure:"console"`
	Prometheus      PrometheusConfig  `mapstructure:"prometheus"`
	OTLP            OTLPConfig        `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig `mapstructure:"healthCheck"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// HealthCheckConfig holds health check configuration
type HealthCheckConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	AIModelCheckTimeout time.Duration `mapstructure:"aiModelCheckTimeout"`
}

// LoadConfig loads configuration from environment variables and a config file.
// CAREERCOACH_CONFIG_FILE points at an explicit file and skips the search paths.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(os.Getenv("CAREERCOACH_CONFIG_FILE"))
}

// LoadConfigFrom loads configuration using configFile when it is non-empty.
func LoadConfigFrom(configFile string) (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	v := viper.New()

	setDefaults(v)
	log.Println("[CONFIG] Applied default configuration values")

	v.SetEnvPrefix("CAREERCOACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	log.Println("[CONFIG] Configured environment variable handling with prefix 'CAREERCOACH'")

	if configFile != "" {
		v.SetConfigFile(configFile)
		log.Printf("[CONFIG] Using explicit config file: %s", configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/careercoach/")
		v.AddConfigPath("$HOME/.config/careercoach")
		v.AddConfigPath(".")
		log.Println("[CONFIG] Configured config file search paths: /etc/careercoach/, $HOME/.config/careercoach, .")
	}

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	log.Println("[CONFIG] Successfully unmarshaled configuration")

	config.applyFallbacks()
	log.Println("[CONFIG] Applied configuration fallbacks and environment variable overrides")

	config.logConfigurationSources(configFileUsed)

	if err := config.validatePromptFiles(); err != nil {
		return nil, fmt.Errorf("prompt file validation failed: %w", err)
	}

	if err := config.LoadPrompts(); err != nil {
		return nil, fmt.Errorf("failed to load custom prompts from files: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	vaultSuppliesKey := c.Vault.Enabled && c.Vault.Secrets.GeminiKey != ""
	if c.AI.APIKey == "" && !vaultSuppliesKey {
		return fmt.Errorf("AI API key is required (set CAREERCOACH_AI_APIKEY or GEMINI_API_KEY)")
	}

	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid storage driver: %s (must be 'sqlite' or 'postgres')", c.Storage.Driver)
	}
	if c.Storage.DSN == "" {
		return fmt.Errorf("storage dsn is required")
	}

	switch c.Blob.Backend {
	case "none", "":
	case "filesystem":
		if c.Blob.Dir == "" {
			return fmt.Errorf("blob dir is required for the filesystem backend")
		}
	case "s3":
		if c.Blob.Bucket == "" {
			return fmt.Errorf("blob bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("invalid blob backend: %s (must be 'none', 'filesystem' or 's3')", c.Blob.Backend)
	}

	if c.Events.Enabled && c.Events.URL == "" {
		return fmt.Errorf("events url is required when events are enabled")
	}

	switch c.Interview.DefaultLevel {
	case "entry", "mid", "senior":
	default:
		return fmt.Errorf("invalid interview defaultLevel: %s", c.Interview.DefaultLevel)
	}
	switch c.Interview.DefaultMode {
	case "video", "audio", "text":
	default:
		return fmt.Errorf("invalid interview defaultMode: %s", c.Interview.DefaultMode)
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}
