package server

import (
	"context"
	"net/http"
	"strings"

	"careercoach/internal/ai"
	"careercoach/internal/cache"
	"careercoach/internal/config"
	"careercoach/internal/errors"
	"careercoach/internal/observability"
	"careercoach/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// CareerPathsRequest names skills directly, or a user whose résumé analysis
// supplies them
type CareerPathsRequest struct {
	Skills []string `json:"skills"`
	UserID string   `json:"userId"`
}

// ChannelsRequest is the body of POST /channels
type ChannelsRequest struct {
	Topic string `json:"topic"`
}

// MentorRequest is the body of POST /mentor. When UserID is set and Resume
// is empty the résumé on file is used as context.
type MentorRequest struct {
	Query   string              `json:"query"`
	UserID  string              `json:"userId,omitempty"`
	Resume  string              `json:"resume,omitempty"`
	History []types.ChatMessage `json:"history,omitempty"`
}

func (s *Server) careerPathsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CareerPathsRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	skills := compact(req.Skills)
	if len(skills) == 0 && strings.TrimSpace(req.UserID) != "" {
		analysis, _, err := s.analysisFor(ctx, strings.TrimSpace(req.UserID))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		skills = analysis.SkillNames()
	}
	if len(skills) == 0 {
		writeErrorResponse(w, "Missing skills", "skills or userId is required", http.StatusBadRequest)
		return
	}

	paths, err := trackAI(ctx, s, config.OpCareerPaths, func(ctx context.Context) (types.CareerPaths, *ai.TokenUsage, error) {
		return s.deps.AI.Provider.RecommendCareerPaths(ctx, types.CareerPathsInput{Skills: skills})
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paths)
}

// trendsOwner owns cache entries that belong to no user
const trendsOwner = ""

func (s *Server) jobTrendsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := cache.Key{Operation: config.OpJobTrends}

	if cached, ok := cache.Lookup[types.JobTrends](s.deps.Cache, key); ok {
		s.om.GetMetrics().RecordBusinessMetric(ctx, observability.MetricCacheHit, true, s.om,
			attribute.String("operation", string(config.OpJobTrends)))
		w.Header().Set("X-Cache", cacheHeader(true))
		writeJSON(w, http.StatusOK, cached)
		return
	}

	trends, err := trackAI(ctx, s, config.OpJobTrends, func(ctx context.Context) (types.JobTrends, *ai.TokenUsage, error) {
		return s.deps.AI.Provider.GetJobTrends(ctx)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.deps.Cache != nil {
		s.deps.Cache.Put(trendsOwner, key, trends)
	}
	w.Header().Set("X-Cache", cacheHeader(false))
	writeJSON(w, http.StatusOK, trends)
}

func (s *Server) channelsHandler(w http.ResponseWriter, r *http.Request) {
	var req ChannelsRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		writeErrorResponse(w, "Missing topic", "topic field is required", http.StatusBadRequest)
		return
	}

	recs, err := trackAI(r.Context(), s, config.OpChannels, func(ctx context.Context) (types.ChannelRecommendations, *ai.TokenUsage, error) {
		return s.deps.AI.Provider.RecommendChannels(ctx, types.ChannelsInput{Topic: topic})
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) mentorHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req MentorRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeErrorResponse(w, "Missing query", "query field is required", http.StatusBadRequest)
		return
	}

	resume := req.Resume
	if resume == "" && req.UserID != "" {
		ref, err := s.deps.Profiles.GetResumeReference(ctx, req.UserID)
		if err != nil {
			s.writeError(w, r, errors.NewIOError(errors.ErrCodeStorageFailed, "failed to load profile", err))
			return
		}
		if ref != nil {
			resume = ref.Text
		}
	}

	input := types.MentorInput{Query: req.Query, Resume: resume, History: req.History}
	reply, err := trackAI(ctx, s, config.OpMentor, func(ctx context.Context) (types.MentorReply, *ai.TokenUsage, error) {
		return s.deps.AI.Provider.MentorGuidance(ctx, input)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// compact trims items and drops empty ones
func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
