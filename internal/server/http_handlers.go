package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"time"

	"careercoach/internal/ai"
	"careercoach/internal/errors"
)

// healthHandler reports model availability, breaker state, storage and
// certificate health
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	timeout := s.AppConfig.Observability.HealthCheck.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	response := map[string]any{
		"status":  "healthy",
		"service": "careercoach",
		"version": s.Version,
	}
	healthy := true

	modelInfo := s.checkAIModelHealth(ctx)
	response["ai_model"] = modelInfo
	if !modelInfo.Available {
		healthy = false
	}

	response["circuit_breakers"] = s.deps.AI.BreakerStats()

	storage := map[string]any{"healthy": true}
	if err := s.deps.Profiles.Ping(ctx); err != nil {
		storage["healthy"] = false
		storage["error"] = err.Error()
		healthy = false
	}
	response["storage"] = storage

	if s.certs != nil {
		certStatus := s.certs.Status()
		response["certificates"] = certStatus
		if ok, _ := certStatus["healthy"].(bool); !ok {
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

func (s *Server) checkAIModelHealth(ctx context.Context) *ai.ModelInfo {
	timeout := s.AppConfig.Observability.HealthCheck.AIModelCheckTimeout
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	info := s.deps.AI.GetModelInfo(ctx)
	if info == nil {
		return &ai.ModelInfo{Available: false, Error: "model info unavailable"}
	}
	return info
}

// statsHandler reports rate limiting, sessions, cache and key rotation state
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "careercoach",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"api_keys_configured":    s.keys.Len(),
		},
		"interview_sessions": s.deps.Sessions.Len(),
		"circuit_breakers":   s.deps.AI.BreakerStats(),
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}
	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	if s.deps.Cache != nil {
		response["cache"] = s.deps.Cache.Stats()
	} else {
		response["cache"] = map[string]any{"enabled": false}
	}

	if s.keyWatcher != nil {
		response["key_rotation"] = s.keyWatcher.Status()
	}

	writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest decodes a JSON request body into v
func parseJSONRequest(r *http.Request, v any) error {
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}
	defer func() { _ = r.Body.Close() }()

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

// writeJSON writes v with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: error, Message: message})
}

// writeError maps err to a status code and writes it. Unexpected errors are
// logged with their full chain.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, title := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, "Request failed", "endpoint", r.URL.Path, "status", status)
	} else {
		s.Logger.Debug("Request rejected", "endpoint", r.URL.Path, "status", status, "error", err.Error())
	}
	writeErrorResponse(w, title, messageFor(err), status)
}

// statusFor maps application and AI errors onto HTTP statuses
func statusFor(err error) (int, string) {
	switch {
	case errors.HasCode(err, errors.ErrCodeMissingResume):
		return http.StatusPreconditionFailed, "Missing résumé"
	case errors.HasCode(err, errors.ErrCodeQuestionFetch):
		return http.StatusBadGateway, "Question generation failed"
	case errors.HasCode(err, errors.ErrCodeCritique):
		return http.StatusBadGateway, "Answer critique failed"
	case errors.HasCode(err, errors.ErrCodeEmptyAnswer):
		return http.StatusUnprocessableEntity, "Empty answer"
	case errors.HasCode(err, errors.ErrCodeSessionBusy):
		return http.StatusConflict, "Session busy"
	case errors.HasCode(err, errors.ErrCodeInvalidTransition):
		return http.StatusConflict, "Invalid session state"
	case errors.HasCode(err, errors.ErrCodeSessionClosed):
		return http.StatusGone, "Session closed"
	case errors.HasCode(err, errors.ErrCodeNotFound):
		return http.StatusNotFound, "Not found"
	case errors.HasCode(err, errors.ErrCodeUnsupportedMedia):
		return http.StatusUnsupportedMediaType, "Unsupported document type"
	case errors.HasCode(err, errors.ErrCodeInvalidFormat):
		return http.StatusUnprocessableEntity, "Unreadable document"
	case errors.HasCode(err, errors.ErrCodeCapabilityUnavailable):
		return http.StatusConflict, "Capability unavailable"
	}

	if invErr, ok := ai.AsInvocationError(err); ok {
		switch invErr.Kind {
		case ai.CauseInvalidInput:
			return http.StatusBadRequest, "Invalid request"
		case ai.CauseCircuitOpen:
			return http.StatusServiceUnavailable, "AI service unavailable"
		case ai.CauseCanceled:
			return http.StatusServiceUnavailable, "Request canceled"
		default:
			return http.StatusBadGateway, "AI request failed"
		}
	}

	switch errors.TypeOf(err) {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest, "Invalid request"
	case errors.ErrorTypeAI, errors.ErrorTypeNetwork:
		return http.StatusBadGateway, "Upstream failure"
	}
	return http.StatusInternalServerError, "Internal error"
}

// messageFor returns the user-facing message of err
func messageFor(err error) string {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
