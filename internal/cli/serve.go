package cli

import (
	"context"
	"fmt"
	"time"

	"careercoach/internal/blob"
	"careercoach/internal/cache"
	"careercoach/internal/catalog"
	"careercoach/internal/config"
	"careercoach/internal/errors"
	"careercoach/internal/events"
	"careercoach/internal/interview"
	"careercoach/internal/observability"
	"careercoach/internal/profile"
	"careercoach/internal/server"
	"careercoach/internal/types"
	"careercoach/internal/watch"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API that backs the careercoach web app.

Available endpoints (under /api/v1):
- GET/PUT /profiles/{userID}: Read or save profile fields
- POST /profiles/{userID}/resume: Upload the résumé (multipart or JSON)
- POST /profiles/{userID}/analysis: Résumé analysis, cached per résumé
- POST /career-paths, GET /trends, POST /channels, POST /mentor
- GET /interview/domains, POST /interview/sessions and the session transitions
- GET /interview/sessions/{id}/speech: WebSocket speech stream
- GET /health, GET /stats (outside /api/v1)

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
}

// applyServeFlags copies flags the user set over the loaded configuration
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	overrides := map[string]*string{
		"port":      &cfg.Server.Port,
		"host":      &cfg.Server.Host,
		"tls-mode":  &cfg.Server.TLS.Mode,
		"cert-file": &cfg.Server.TLS.CertFile,
		"key-file":  &cfg.Server.TLS.KeyFile,
		"ca-file":   &cfg.Server.TLS.CAFile,
	}
	for name, target := range overrides {
		if cmd.Flags().Changed(name) {
			*target, _ = cmd.Flags().GetString(name)
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	applyServeFlags(cmd, cfg)
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	vaultClient, err := config.ApplyVaultSecrets(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to apply Vault secrets: %w", err)
	}

	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version), cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := om.Shutdown(shutdownCtx); err != nil {
			logger.LogError(err, "Failed to shut down observability")
		}
	}()

	aiService, err := newAIService(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}
	defer aiService.Close()

	store, err := profile.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	blobs, err := blob.New(ctx, cfg.Blob)
	if err != nil {
		return fmt.Errorf("failed to open blob store: %w", err)
	}

	cat, err := catalog.Load(cfg.Interview.CatalogFile, cfg.Interview.StrictDomains)
	if err != nil {
		return err
	}

	publisher, err := newPublisher(cfg.Events, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	registry := interview.NewRegistry(aiService.Provider, store, interview.RegistryOptions{
		IdleTimeout: cfg.Interview.IdleTimeout,
		MaxSessions: cfg.Interview.MaxSessions,
		Session: interview.Options{
			Domains:      cat,
			OnInvocation: server.InvocationRecorder(om),
			Logger:       logger,
			DefaultLevel: types.ExperienceLevel(cfg.Interview.DefaultLevel),
			DefaultMode:  interview.Mode(cfg.Interview.DefaultMode),
		},
		Observer: events.Observer(publisher, logger),
	})

	if cfg.App.WatchPrompts {
		if stop := watchPrompts(cfg, logger); stop != nil {
			defer stop()
		}
	}

	deps := server.Deps{
		AI:            aiService,
		Sessions:      registry,
		Profiles:      store,
		Blobs:         blobs,
		Cache:         cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL),
		Catalog:       cat,
		Observability: om,
	}
	if vaultClient != nil {
		deps.Vault = vaultClient
	}

	return server.NewServer(cfg, Version, deps, logger).Run(ctx)
}

// newPublisher connects to the broker when session events are enabled
func newPublisher(cfg config.EventsConfig, logger *errors.Logger) (events.Publisher, error) {
	if !cfg.Enabled {
		return events.Noop{}, nil
	}
	p, err := events.NewAMQPPublisher(cfg.URL, cfg.Exchange, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect session event publisher: %w", err)
	}
	return p, nil
}

// watchPrompts reloads prompt files on change and returns the stop function
func watchPrompts(cfg *config.Config, logger *errors.Logger) func() {
	files := cfg.PromptFiles()
	if len(files) == 0 {
		logger.Info("Prompt watching enabled but no prompt files are configured")
		return nil
	}
	w := watch.New(files, 0, func(changed []string) {
		if err := cfg.LoadPrompts(); err != nil {
			logger.LogError(err, "Failed to reload prompts, keeping previous set", "files", changed)
			return
		}
		logger.Info("Prompts reloaded", "files", changed)
	}, logger)
	if err := w.Start(); err != nil {
		logger.LogError(err, "Failed to watch prompt files")
		return nil
	}
	return func() { _ = w.Stop() }
}
