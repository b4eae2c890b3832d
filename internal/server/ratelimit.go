package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"careercoach/internal/errors"
	"careercoach/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

const limiterEvictionAge = 10 * time.Minute

// LimiterManager keeps one token bucket per client key (IP or API key)
type LimiterManager struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	rate     rate.Limit
	burst    int
	now      func() time.Time
	done     chan struct{}
	stopOnce sync.Once
	logger   *errors.Logger
}

// RateLimiter is the limiter the server uses
type RateLimiter = LimiterManager

// NewRateLimiter allows requestsPerMin per key with bursts of burstCapacity.
// Idle keys are evicted in the background until Close.
func NewRateLimiter(requestsPerMin, burstCapacity int, logger *errors.Logger) *LimiterManager {
	if requestsPerMin <= 0 {
		requestsPerMin = 60
	}
	if burstCapacity <= 0 {
		burstCapacity = 1
	}
	if logger == nil {
		logger = errors.Discard()
	}

	m := &LimiterManager{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		rate:     rate.Limit(float64(requestsPerMin) / 60.0),
		burst:    burstCapacity,
		now:      time.Now,
		done:     make(chan struct{}),
		logger:   logger,
	}

	go m.cleanupRoutine(limiterEvictionAge)
	return m
}

// GetLimiter retrieves or creates the limiter for key
func (m *LimiterManager) GetLimiter(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	limiter, ok := m.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(m.rate, m.burst)
		m.limiters[key] = limiter
	}
	m.lastSeen[key] = m.now()
	return limiter
}

// Allow reports whether a request for key may proceed now
func (m *LimiterManager) Allow(key string) bool {
	return m.GetLimiter(key).Allow()
}

// GetStats returns current rate limiter statistics
func (m *LimiterManager) GetStats() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	return map[string]any{
		"active_limiters": len(m.limiters),
		"rate_per_second": float64(m.rate),
		"rate_per_minute": float64(m.rate) * 60.0,
		"burst_capacity":  m.burst,
	}
}

func (m *LimiterManager) cleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup(interval)
		case <-m.done:
			return
		}
	}
}

// cleanup removes limiters idle for longer than evictionAge
func (m *LimiterManager) cleanup(evictionAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, seen := range m.lastSeen {
		if now.Sub(seen) > evictionAge {
			delete(m.limiters, key)
			delete(m.lastSeen, key)
			removed++
		}
	}

	m.logger.Debug("Rate limiter cleanup completed",
		"removed", removed,
		"remaining_limiters", len(m.limiters))
	return removed
}

// Close stops the cleanup goroutine
func (m *LimiterManager) Close() {
	m.stopOnce.Do(func() { close(m.done) })
}

// rateLimitMiddleware rejects requests over the per-key budget with 429
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	if s.RateLimiter == nil || s.RateLimit == nil || !s.RateLimit.Enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := getRateLimitKey(r, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		if !s.RateLimiter.Allow(key) {
			s.Logger.Info("Rate limit exceeded",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			s.om.GetMetrics().RecordBusinessMetric(r.Context(), observability.MetricRateLimitHit, false, s.om,
				attribute.String("endpoint", r.URL.Path))
			w.Header().Set("Retry-After", "60")
			writeErrorResponse(w, "Rate limit exceeded", "Too many requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// getRateLimitKey prefers the API key when byAPIKey is set and one is sent
func getRateLimitKey(r *http.Request, byAPIKey, byIP bool) string {
	if byAPIKey {
		if apiKey := extractAPIKey(r); apiKey != "" {
			return "api:" + apiKey
		}
	}
	if byIP {
		return "ip:" + getClientIP(r)
	}
	return ""
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := parseFirstIP(xff); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// parseFirstIP returns the first valid IP of a comma-separated list
func parseFirstIP(ips string) string {
	for ip := range strings.SplitSeq(ips, ",") {
		ip = strings.TrimSpace(ip)
		if net.ParseIP(ip) != nil {
			return ip
		}
	}
	return ""
}
