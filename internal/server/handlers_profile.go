package server

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"careercoach/internal/ai"
	"careercoach/internal/blob"
	"careercoach/internal/cache"
	"careercoach/internal/config"
	"careercoach/internal/document"
	"careercoach/internal/errors"
	"careercoach/internal/observability"
	"careercoach/internal/profile"
	"careercoach/internal/types"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
)

// ProfileRequest is the body of PUT /profiles/{userID}
type ProfileRequest struct {
	Name       string `json:"name"`
	AvatarURL  string `json:"avatarUrl"`
	CareerPath string `json:"careerPath"`
}

// ResumeUploadRequest is the JSON form of a résumé upload. Content is base64
// in JSON.
type ResumeUploadRequest struct {
	Filename  string `json:"filename"`
	MediaType string `json:"mediaType"`
	Content   []byte `json:"content"`
}

// ResumeUploadResponse describes a stored résumé
type ResumeUploadResponse struct {
	Fingerprint string `json:"fingerprint"`
	MediaType   string `json:"mediaType"`
	Filename    string `json:"filename,omitempty"`
	BlobKey     string `json:"blobKey,omitempty"`
	TextLength  int    `json:"textLength"`
	Unchanged   bool   `json:"unchanged"`
}

// trackAI runs one provider call under the AI operation metrics
func trackAI[T any](ctx context.Context, s *Server, op config.Operation, call func(context.Context) (T, *ai.TokenUsage, error)) (T, error) {
	var out T
	err := s.om.GetMetrics().TrackAIOperationWithTokens(ctx, string(op), func(ctx context.Context) *observability.AIOperationResult {
		res, usage, err := call(ctx)
		out = res
		return &observability.AIOperationResult{Error: err, TokenUsage: (*observability.TokenUsage)(usage)}
	}, s.om)
	return out, err
}

func userIDParam(r *http.Request) (string, error) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest, "user id is required", nil)
	}
	return userID, nil
}

func (s *Server) getProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.deps.Profiles.GetProfile(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, errors.NewIOError(errors.ErrCodeStorageFailed, "failed to load profile", err))
		return
	}
	if p == nil {
		s.writeError(w, r, errors.NewValidationError(errors.ErrCodeNotFound, "profile not found", nil))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) saveProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req ProfileRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	p := &profile.Profile{
		UserID:     userID,
		Name:       strings.TrimSpace(req.Name),
		AvatarURL:  strings.TrimSpace(req.AvatarURL),
		CareerPath: strings.TrimSpace(req.CareerPath),
	}
	if err := s.deps.Profiles.SaveProfile(r.Context(), p); err != nil {
		s.writeError(w, r, errors.NewIOError(errors.ErrCodeStorageFailed, "failed to save profile", err))
		return
	}

	saved, err := s.deps.Profiles.GetProfile(r.Context(), userID)
	if err != nil || saved == nil {
		s.writeError(w, r, errors.NewIOError(errors.ErrCodeStorageFailed, "failed to reload profile", err))
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// readUpload accepts multipart/form-data with a "resume" file field, or JSON
func (s *Server) readUpload(r *http.Request) (ResumeUploadRequest, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt != "multipart/form-data" {
		var req ResumeUploadRequest
		if err := parseJSONRequest(r, &req); err != nil {
			return req, errors.NewValidationError(errors.ErrCodeInvalidRequest, err.Error(), err)
		}
		return req, nil
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return ResumeUploadRequest{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"failed to parse multipart form", err)
	}
	file, header, err := r.FormFile("resume")
	if err != nil {
		return ResumeUploadRequest{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"form field \"resume\" is required", err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return ResumeUploadRequest{}, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read upload", err)
	}
	return ResumeUploadRequest{
		Filename:  header.Filename,
		MediaType: header.Header.Get("Content-Type"),
		Content:   data,
	}, nil
}

// uploadResumeHandler extracts the text of an uploaded résumé, stores the
// original and the reference, and drops cached results of the old résumé.
func (s *Server) uploadResumeHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	req, err := s.readUpload(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Content) == 0 {
		s.writeError(w, r, errors.NewValidationError(errors.ErrCodeInvalidRequest, "résumé content is empty", nil))
		return
	}
	if limit := s.AppConfig.App.MaxFileSize; limit > 0 && int64(len(req.Content)) > limit {
		s.writeError(w, r, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("résumé exceeds the %d byte limit", limit), nil))
		return
	}

	mediaType, err := document.Resolve(req.MediaType, req.Filename, req.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	text, err := document.Extract(mediaType, req.Content)
	if err != nil {
		s.om.GetMetrics().RecordBusinessMetric(ctx, observability.MetricResumeUploaded, false, s.om,
			attribute.String("media_type", mediaType))
		s.writeError(w, r, err)
		return
	}

	fingerprint := document.Fingerprint(req.Content)
	previous, err := s.deps.Profiles.GetResumeReference(ctx, userID)
	if err != nil {
		s.writeError(w, r, errors.NewIOError(errors.ErrCodeStorageFailed, "failed to load profile", err))
		return
	}

	ref := &types.ResumeRef{
		Content:     req.Content,
		MediaType:   mediaType,
		Fingerprint: fingerprint,
		Text:        text,
		Filename:    req.Filename,
	}
	if s.deps.Blobs != nil {
		ref.BlobKey = blob.ResumeKey(s.AppConfig.Blob.Prefix, userID, fingerprint)
		if err := s.deps.Blobs.Put(ctx, ref.BlobKey, req.Content, mediaType); err != nil {
			s.writeError(w, r, errors.NewIOError(errors.ErrCodeStorageFailed, "failed to store résumé", err))
			return
		}
	}

	if err := s.deps.Profiles.SaveResume(ctx, userID, ref); err != nil {
		s.writeError(w, r, errors.NewIOError(errors.ErrCodeStorageFailed, "failed to save résumé", err))
		return
	}

	unchanged := previous != nil && previous.Fingerprint == fingerprint
	if !unchanged {
		if s.deps.Cache != nil {
			dropped := s.deps.Cache.Invalidate(userID)
			s.Logger.Debug("Invalidated cached results", "user_id", userID, "entries", dropped)
		}
		if previous != nil && previous.BlobKey != "" && previous.BlobKey != ref.BlobKey && s.deps.Blobs != nil {
			if err := s.deps.Blobs.Delete(ctx, previous.BlobKey); err != nil {
				s.Logger.LogError(err, "Failed to delete replaced résumé", "blob_key", previous.BlobKey)
			}
		}
	}

	s.om.GetMetrics().RecordBusinessMetric(ctx, observability.MetricResumeUploaded, true, s.om,
		attribute.String("media_type", mediaType))
	s.Logger.Info("Résumé uploaded",
		"user_id", userID,
		"media_type", mediaType,
		"bytes", len(req.Content),
		"unchanged", unchanged)

	writeJSON(w, http.StatusCreated, ResumeUploadResponse{
		Fingerprint: fingerprint,
		MediaType:   mediaType,
		Filename:    req.Filename,
		BlobKey:     ref.BlobKey,
		TextLength:  len(text),
		Unchanged:   unchanged,
	})
}

// analysisFor returns the analysis of the résumé on file for userID, from
// the cache when the same upload was analyzed before.
func (s *Server) analysisFor(ctx context.Context, userID string) (types.ResumeAnalysis, bool, error) {
	ref, err := s.deps.Profiles.GetResumeReference(ctx, userID)
	if err != nil {
		return types.ResumeAnalysis{}, false, errors.NewIOError(errors.ErrCodeStorageFailed, "failed to load profile", err)
	}
	if ref == nil || strings.TrimSpace(ref.Text) == "" {
		return types.ResumeAnalysis{}, false, errors.NewSessionError(errors.ErrCodeMissingResume,
			"upload a résumé first", nil)
	}

	key := cache.Key{Fingerprint: ref.Fingerprint, Operation: config.OpResumeAnalysis}
	if cached, ok := cache.Lookup[types.ResumeAnalysis](s.deps.Cache, key); ok {
		s.om.GetMetrics().RecordBusinessMetric(ctx, observability.MetricCacheHit, true, s.om,
			attribute.String("operation", string(config.OpResumeAnalysis)))
		return cached, true, nil
	}

	analysis, err := trackAI(ctx, s, config.OpResumeAnalysis, func(ctx context.Context) (types.ResumeAnalysis, *ai.TokenUsage, error) {
		return s.deps.AI.Provider.AnalyzeResume(ctx, types.ResumeAnalysisInput{ResumeText: ref.Text})
	})
	if err != nil {
		return types.ResumeAnalysis{}, false, err
	}
	if s.deps.Cache != nil {
		s.deps.Cache.Put(userID, key, analysis)
	}
	return analysis, false, nil
}

func (s *Server) analyzeResumeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer("careercoach.api").Start(r.Context(), "api.resume_analysis")
	defer span.End()

	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	analysis, hit, err := s.analysisFor(ctx, userID)
	s.om.GetMetrics().RecordBusinessMetric(ctx, observability.MetricResumeAnalyzed, err == nil, s.om,
		attribute.Bool("cached", hit))
	if err != nil {
		span.RecordError(err)
		s.writeError(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.Bool("cached", hit),
		attribute.Int("skills", len(analysis.ExtractedSkills)),
	)
	w.Header().Set("X-Cache", cacheHeader(hit))
	writeJSON(w, http.StatusOK, analysis)
}

func cacheHeader(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}
