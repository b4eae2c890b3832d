package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
)

// KeySet is the set of accepted API keys. It can be replaced while the
// server runs.
type KeySet struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

// NewKeySet creates a set from keys, ignoring empty ones
func NewKeySet(keys []string) *KeySet {
	ks := &KeySet{}
	ks.Replace(keys)
	return ks
}

// Replace swaps in a new key list
func (ks *KeySet) Replace(keys []string) {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			m[k] = struct{}{}
		}
	}
	ks.mu.Lock()
	ks.keys = m
	ks.mu.Unlock()
}

// Len returns the number of keys
func (ks *KeySet) Len() int {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return len(ks.keys)
}

// Valid reports whether key is in the set
func (ks *KeySet) Valid(key string) bool {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	for k := range ks.keys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			return true
		}
	}
	return false
}

// extractAPIKey reads X-API-Key, then a Bearer token. Browsers cannot set
// headers on WebSocket upgrades, so those may pass api_key in the query.
func extractAPIKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return after
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("api_key")
	}
	return ""
}

// authMiddleware provides API key authentication. With no keys configured
// every request passes.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.keys.Len() == 0 {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := extractAPIKey(r)
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			writeErrorResponse(w, "Missing API key", "X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
			return
		}

		if !s.keys.Valid(apiKey) {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r),
				"api_key_prefix", maskAPIKey(apiKey))
			writeErrorResponse(w, "Invalid API key", "Unauthorized access", http.StatusUnauthorized)
			return
		}

		s.Logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"api_key_prefix", maskAPIKey(apiKey))
		next.ServeHTTP(w, r)
	})
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
