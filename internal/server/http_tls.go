package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	"careercoach/internal/config"
	"careercoach/internal/errors"
	"careercoach/internal/observability"
	"careercoach/internal/watch"

	"go.opentelemetry.io/otel/attribute"
)

// certExpiryWarning marks certificates as unhealthy before they expire
const certExpiryWarning = 24 * time.Hour

// certReloader serves the current server certificate and, in mutual mode,
// the client CA pool. With auto reload on, certificate files are watched and
// swapped in without restarting the listener. A failed reload keeps the
// previous certificate.
type certReloader struct {
	mu sync.RWMutex

	cfg    config.TLSConfig
	logger *errors.Logger
	om     *observability.ObservabilityManager

	cert     *tls.Certificate
	leaf     *x509.Certificate
	caPool   *x509.CertPool
	loadedAt time.Time

	reloads   int
	failures  int
	lastError error

	watcher *watch.FileWatcher
}

func newCertReloader(cfg config.TLSConfig, om *observability.ObservabilityManager, logger *errors.Logger) (*certReloader, error) {
	if logger == nil {
		logger = errors.Discard()
	}
	c := &certReloader{cfg: cfg, logger: logger, om: om}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

// load reads certificate, key and CA and swaps them in on success
func (c *certReloader) load() error {
	cert, err := c.loadServerCertificate()
	if err != nil {
		return err
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return fmt.Errorf("failed to parse server certificate: %w", err)
	}

	var pool *x509.CertPool
	if c.cfg.Mode == "mutual" {
		if pool, err = c.loadCACertificatePool(); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.cert = &cert
	c.leaf = leaf
	c.caPool = pool
	c.loadedAt = time.Now()
	c.mu.Unlock()
	return nil
}

func (c *certReloader) loadServerCertificate() (tls.Certificate, error) {
	if c.cfg.CertContent != "" && c.cfg.KeyContent != "" {
		cert, err := tls.X509KeyPair([]byte(c.cfg.CertContent), []byte(c.cfg.KeyContent))
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("failed to load server cert/key from content: %w", err)
		}
		return cert, nil
	}

	if c.cfg.CertFile != "" && c.cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(c.cfg.CertFile, c.cfg.KeyFile)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("failed to load server cert/key from files: %w", err)
		}
		return cert, nil
	}

	return tls.Certificate{}, fmt.Errorf("TLS certificate and key are required (provide either files or content)")
}

func (c *certReloader) loadCACertificatePool() (*x509.CertPool, error) {
	var caCert []byte
	switch {
	case c.cfg.CAContent != "":
		caCert = []byte(c.cfg.CAContent)
	case c.cfg.CAFile != "":
		data, err := os.ReadFile(c.cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		caCert = data
	default:
		return nil, fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
	}

	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(caCert); !ok {
		return nil, fmt.Errorf("failed to append CA cert")
	}
	return pool, nil
}

// reload is the file watcher callback
func (c *certReloader) reload(changed []string) {
	err := c.load()

	c.mu.Lock()
	if err != nil {
		c.failures++
		c.lastError = err
	} else {
		c.reloads++
		c.lastError = nil
	}
	c.mu.Unlock()

	c.om.GetMetrics().RecordBusinessMetric(context.Background(), observability.MetricCertReload, err == nil, c.om,
		attribute.Int("files", len(changed)))
	if err != nil {
		c.logger.LogError(err, "Failed to reload TLS certificates, keeping the previous ones", "files", changed)
		return
	}
	c.logger.Info("TLS certificates reloaded", "files", changed, "not_after", c.expiry())
}

// startWatching watches the certificate files. Content-based certificates
// have nothing to watch.
func (c *certReloader) startWatching() error {
	files := c.cfg.CertFiles()
	if len(files) == 0 {
		return nil
	}
	w := watch.New(files, c.cfg.DebounceDelay, c.reload, c.logger)
	if err := w.Start(); err != nil {
		return err
	}
	c.mu.Lock()
	c.watcher = w
	c.mu.Unlock()
	return nil
}

func (c *certReloader) stop() error {
	c.mu.Lock()
	w := c.watcher
	c.watcher = nil
	c.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Stop()
}

func (c *certReloader) getCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cert, nil
}

// tlsConfig builds the listener configuration. The client CA pool is read
// per handshake so a reloaded CA applies to new connections.
func (c *certReloader) tlsConfig() *tls.Config {
	base := &tls.Config{
		MinVersion:     minTLSVersion(c.cfg.MinVersion),
		NextProtos:     []string{"h2", "http/1.1"},
		GetCertificate: c.getCertificate,
		ClientAuth:     tls.NoClientCert,
	}
	if c.cfg.Mode != "mutual" {
		return base
	}

	base.ClientAuth = clientAuthPolicy(c.cfg.ClientAuthPolicy)
	base.GetConfigForClient = func(*tls.ClientHelloInfo) (*tls.Config, error) {
		cfg := base.Clone()
		cfg.GetConfigForClient = nil
		c.mu.RLock()
		cfg.ClientCAs = c.caPool
		c.mu.RUnlock()
		return cfg, nil
	}
	return base
}

func (c *certReloader) expiry() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.leaf == nil {
		return time.Time{}
	}
	return c.leaf.NotAfter
}

// Status reports certificate health for /health and /stats
func (c *certReloader) Status() map[string]any {
	if c == nil {
		return map[string]any{"enabled": false, "healthy": true}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	notAfter := c.leaf.NotAfter
	remaining := time.Until(notAfter)
	status := map[string]any{
		"enabled":     true,
		"mode":        c.cfg.Mode,
		"subject":     c.leaf.Subject.CommonName,
		"not_after":   notAfter.UTC().Format(time.RFC3339),
		"loaded_at":   c.loadedAt.UTC().Format(time.RFC3339),
		"auto_reload": c.watcher != nil,
		"reloads":     c.reloads,
		"failures":    c.failures,
		"healthy":     remaining > certExpiryWarning,
	}
	if c.lastError != nil {
		status["last_error"] = c.lastError.Error()
	}
	return status
}

func minTLSVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

func clientAuthPolicy(policy string) tls.ClientAuthType {
	switch policy {
	case "request":
		return tls.RequestClientCert
	case "verify":
		return tls.VerifyClientCertIfGiven
	default:
		return tls.RequireAndVerifyClientCert
	}
}
