package server

import (
	"sync"
	"time"

	"careercoach/internal/ai"
	"careercoach/internal/blob"
	"careercoach/internal/cache"
	"careercoach/internal/catalog"
	"careercoach/internal/config"
	"careercoach/internal/errors"
	"careercoach/internal/interview"
	"careercoach/internal/observability"
	"careercoach/internal/profile"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Deps are the services the HTTP API is built on. AI, Sessions, Profiles and
// Catalog are required; the rest may be nil.
type Deps struct {
	AI            *ai.Service
	Sessions      *interview.Registry
	Profiles      profile.Store
	Blobs         blob.Store
	Cache         *cache.Cache
	Catalog       *catalog.Catalog
	Observability *observability.ObservabilityManager
	// Vault enables API key rotation when server.keyRotation is on
	Vault config.SecretReader
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	AppConfig *config.Config
	TLSConfig config.TLSConfig

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MaxRequestSize int64

	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Logger *errors.Logger

	deps       Deps
	om         *observability.ObservabilityManager
	keys       *KeySet
	certs      *certReloader
	keyWatcher *KeyWatcher
	closeOnce  sync.Once
}

// NewServer creates a Server from the application configuration
func NewServer(appCfg *config.Config, version string, deps Deps, logger *errors.Logger) *Server {
	if logger == nil {
		logger = errors.Discard()
	}
	sc := appCfg.Server

	var rateLimiter *RateLimiter
	if sc.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(sc.RateLimit.RequestsPerMin, sc.RateLimit.BurstCapacity, logger)
	}

	om := deps.Observability
	if om == nil {
		// A disabled manager cannot fail
		om, _ = observability.NewObservabilityManager(observability.ObservabilityConfig{}, appCfg, logger)
	}

	return &Server{
		Host:           sc.Host,
		Port:           sc.Port,
		Version:        version,
		AppConfig:      appCfg,
		TLSConfig:      sc.TLS,
		ReadTimeout:    sc.ReadTimeout,
		WriteTimeout:   sc.WriteTimeout,
		IdleTimeout:    sc.IdleTimeout,
		MaxRequestSize: sc.MaxRequestSize,
		RateLimit:      &sc.RateLimit,
		RateLimiter:    rateLimiter,
		Logger:         logger,
		deps:           deps,
		om:             om,
		keys:           NewKeySet(sc.APIKeys),
	}
}
