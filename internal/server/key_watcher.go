package server

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"careercoach/internal/config"
	"careercoach/internal/errors"
)

// KeyWatcher polls the Vault secret holding the server API keys and swaps
// them into a KeySet when the secret version changes.
type KeyWatcher struct {
	mu sync.RWMutex

	client       config.SecretReader
	secretPath   string
	pollInterval time.Duration
	keys         *KeySet
	logger       *errors.Logger

	stop        chan struct{}
	done        chan struct{}
	running     bool
	lastVersion int64
	rotations   int
	lastError   string
}

// NewKeyWatcher creates a watcher for the "keys" entry of secretPath
func NewKeyWatcher(client config.SecretReader, secretPath string, pollInterval time.Duration, keys *KeySet, logger *errors.Logger) *KeyWatcher {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Minute
	}
	if logger == nil {
		logger = errors.Discard()
	}
	return &KeyWatcher{
		client:       client,
		secretPath:   secretPath,
		pollInterval: pollInterval,
		keys:         keys,
		logger:       logger,
	}
}

// Start records the current version and begins polling
func (kw *KeyWatcher) Start() error {
	kw.mu.Lock()
	defer kw.mu.Unlock()
	if kw.running {
		return fmt.Errorf("key watcher is already running")
	}

	// Keys were applied at startup; only later versions rotate
	if secret, err := kw.client.GetSecretV2(kw.secretPath); err == nil && secret != nil {
		kw.lastVersion = secret.Version
	}

	kw.stop = make(chan struct{})
	kw.done = make(chan struct{})
	kw.running = true
	go kw.pollLoop(kw.stop, kw.done)

	kw.logger.Info("API key watcher started",
		"secret_path", kw.secretPath,
		"poll_interval", kw.pollInterval.String(),
		"version", kw.lastVersion)
	return nil
}

// Stop ends polling and waits for the loop to exit
func (kw *KeyWatcher) Stop() error {
	kw.mu.Lock()
	if !kw.running {
		kw.mu.Unlock()
		return nil
	}
	kw.running = false
	close(kw.stop)
	done := kw.done
	kw.mu.Unlock()

	<-done
	kw.logger.Info("API key watcher stopped")
	return nil
}

func (kw *KeyWatcher) pollLoop(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(kw.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := kw.poll(); err != nil {
				kw.logger.LogError(err, "Failed to check Vault for rotated API keys")
			}
		case <-stop:
			return
		}
	}
}

// poll applies the keys when the secret has a newer version. It reports
// whether the keys were replaced.
func (kw *KeyWatcher) poll() (bool, error) {
	secret, err := kw.client.GetSecretV2(kw.secretPath)
	if err != nil {
		kw.setError(err)
		return false, fmt.Errorf("failed to read secret: %w", err)
	}
	if secret == nil {
		err := fmt.Errorf("secret %s not found", kw.secretPath)
		kw.setError(err)
		return false, err
	}

	kw.mu.Lock()
	defer kw.mu.Unlock()
	if secret.Version <= kw.lastVersion {
		return false, nil
	}

	keys := parseKeys(secret.Data["keys"])
	if len(keys) == 0 {
		// An empty list would disable authentication
		kw.lastError = "rotated secret holds no keys"
		return false, fmt.Errorf("secret %s version %d holds no keys", kw.secretPath, secret.Version)
	}

	kw.keys.Replace(keys)
	kw.lastVersion = secret.Version
	kw.rotations++
	kw.lastError = ""
	kw.logger.Info("API keys rotated from Vault", "version", secret.Version, "count", len(keys))
	return true, nil
}

func (kw *KeyWatcher) setError(err error) {
	kw.mu.Lock()
	kw.lastError = err.Error()
	kw.mu.Unlock()
}

func parseKeys(raw any) []string {
	switch v := raw.(type) {
	case string:
		var keys []string
		for k := range strings.SplitSeq(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
		return keys
	case []string:
		return v
	case []any:
		keys := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				keys = append(keys, s)
			}
		}
		return keys
	}
	return nil
}

// Status returns the watcher state for the stats endpoint
func (kw *KeyWatcher) Status() map[string]any {
	kw.mu.RLock()
	defer kw.mu.RUnlock()
	return map[string]any{
		"running":       kw.running,
		"poll_interval": kw.pollInterval.String(),
		"secret_path":   kw.secretPath,
		"last_version":  kw.lastVersion,
		"rotations":     kw.rotations,
		"last_error":    kw.lastError,
	}
}
