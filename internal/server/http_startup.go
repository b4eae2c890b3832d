package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

const shutdownTimeout = 30 * time.Second

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	httpServer, err := s.setupHTTPServer()
	if err != nil {
		return err
	}
	if err := s.startKeyRotation(); err != nil {
		s.stopBackground()
		return err
	}

	ln, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		s.stopBackground()
		return fmt.Errorf("failed to listen on %s: %w", httpServer.Addr, err)
	}

	s.displayServerInfo(ln.Addr().String())
	return s.serve(ctx, httpServer, ln)
}

// setupHTTPServer creates the HTTP server and, unless TLS is disabled, its
// certificate reloader
func (s *Server) setupHTTPServer() (*http.Server, error) {
	httpServer := &http.Server{
		Addr:         net.JoinHostPort(s.Host, s.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}

	switch s.TLSConfig.Mode {
	case "", "disabled":
		return httpServer, nil
	case "server", "mutual":
	default:
		return nil, fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", s.TLSConfig.Mode)
	}

	certs, err := newCertReloader(s.TLSConfig, s.om, s.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up TLS: %w", err)
	}
	if s.TLSConfig.AutoReload {
		if err := certs.startWatching(); err != nil {
			return nil, fmt.Errorf("failed to watch certificates: %w", err)
		}
	}
	s.certs = certs
	httpServer.TLSConfig = certs.tlsConfig()
	return httpServer, nil
}

// startKeyRotation polls Vault for new API keys when rotation is configured
func (s *Server) startKeyRotation() error {
	if !s.AppConfig.Server.KeyRotation.Enabled {
		return nil
	}
	path := s.AppConfig.Vault.Secrets.APIKeys
	if s.deps.Vault == nil || path == "" {
		s.Logger.Warn("Key rotation is enabled but Vault or the API key secret path is not configured")
		return nil
	}

	kw := NewKeyWatcher(s.deps.Vault, path, s.AppConfig.Server.KeyRotation.PollInterval, s.keys, s.Logger)
	if err := kw.Start(); err != nil {
		return fmt.Errorf("failed to start key rotation: %w", err)
	}
	s.keyWatcher = kw
	return nil
}

func (s *Server) serve(ctx context.Context, httpServer *http.Server, ln net.Listener) error {
	serverErrors := make(chan error, 1)
	go func() {
		s.Logger.Info("Starting HTTP server",
			"address", ln.Addr().String(),
			"tls_enabled", httpServer.TLSConfig != nil)

		var err error
		if httpServer.TLSConfig != nil {
			// Certificates come from GetCertificate
			err = httpServer.ServeTLS(ln, "", "")
		} else {
			err = httpServer.Serve(ln)
		}
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err, ok := <-serverErrors:
		s.Close(context.Background())
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.Logger.Info("Received shutdown signal, starting graceful shutdown")
		return s.performGracefulShutdown(httpServer)
	}
}

func (s *Server) performGracefulShutdown(httpServer *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.Logger.Info("Shutting down HTTP server...")
	var err error
	if err = httpServer.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		err = httpServer.Close()
	}

	s.Close(shutdownCtx)
	s.Logger.Info("Server shutdown completed")
	return err
}

// Close ends every interview session and stops the background workers. It
// is safe to call more than once.
func (s *Server) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		if s.deps.Sessions != nil {
			if err := s.deps.Sessions.Close(ctx); err != nil {
				s.Logger.LogError(err, "Failed to close interview sessions")
			}
		}
		s.stopBackground()
	})
}

func (s *Server) stopBackground() {
	if s.keyWatcher != nil {
		if err := s.keyWatcher.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop key watcher")
		}
	}
	if s.certs != nil {
		if err := s.certs.stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop certificate watcher")
		}
	}
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Info("Rate limiter cleaned up")
	}
}
