package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"careercoach/internal/ai"
	"careercoach/internal/config"
	"careercoach/internal/interview"
	"careercoach/internal/observability"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
)

// CreateSessionRequest is the body of POST /interview/sessions
type CreateSessionRequest struct {
	UserID string `json:"userId"`
}

// DraftRequest replaces the answer draft
type DraftRequest struct {
	Text string `json:"text"`
}

// AnswerRequest optionally carries the final answer text
type AnswerRequest struct {
	Answer string `json:"answer"`
}

// SessionResponse is a session snapshot with the last score
type SessionResponse struct {
	interview.Snapshot
	LastScore int `json:"lastScore"`
}

func sessionResponse(s interview.Snapshot) SessionResponse {
	return SessionResponse{Snapshot: s, LastScore: s.LastScore()}
}

// InvocationRecorder feeds the AI calls of interview sessions into the
// operation metrics
func InvocationRecorder(om *observability.ObservabilityManager) interview.InvocationHook {
	return func(op config.Operation, d time.Duration, usage *ai.TokenUsage, err error) {
		ctx := context.Background()
		m := om.GetMetrics()
		m.RecordAIOperation(ctx, string(op), d, (*observability.TokenUsage)(usage), err, om)

		switch op {
		case config.OpInterviewQuestion:
			m.RecordBusinessMetric(ctx, observability.MetricQuestionAsked, err == nil, om)
		case config.OpAnswerCritique:
			m.RecordBusinessMetric(ctx, observability.MetricAnswerCritiqued, err == nil, om)
		}
	}
}

// sessionContext detaches a transition from the request, so a client that
// disconnects mid-call still finds the finished state when it polls
func sessionContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (s *Server) session(r *http.Request) (*interview.Session, error) {
	return s.deps.Sessions.Get(chi.URLParam(r, "sessionID"))
}

func (s *Server) domainsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Catalog)
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		writeErrorResponse(w, "Missing user id", "userId field is required", http.StatusBadRequest)
		return
	}

	sess, err := s.deps.Sessions.Create(userID)
	s.om.GetMetrics().RecordBusinessMetric(r.Context(), observability.MetricSessionStarted, err == nil, s.om)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/interview/sessions/"+sess.ID())
	writeJSON(w, http.StatusCreated, sessionResponse(sess.Snapshot()))
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess.Snapshot()))
}

func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.Remove(chi.URLParam(r, "sessionID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) configureSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var settings interview.Settings
	if err := parseJSONRequest(r, &settings); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	ctx, span := s.om.Tracer("careercoach.api").Start(sessionContext(r), "api.interview.configure")
	defer span.End()
	span.SetAttributes(
		attribute.String("domain", settings.Domain),
		attribute.String("mode", string(settings.Mode)),
	)

	if err := sess.Configure(ctx, settings); err != nil {
		span.RecordError(err)
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess.Snapshot()))
}

func (s *Server) draftHandler(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req DraftRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if err := sess.SetDraft(req.Text); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess.Snapshot()))
}

func (s *Server) answerHandler(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// The body is optional; without it the current draft is submitted
	var req AnswerRequest
	if r.ContentLength != 0 {
		if err := parseJSONRequest(r, &req); err != nil {
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}
	}

	ctx, span := s.om.Tracer("careercoach.api").Start(sessionContext(r), "api.interview.answer")
	defer span.End()

	submit := sess.Submit
	if req.Answer != "" {
		submit = func(ctx context.Context) error { return sess.SubmitText(ctx, req.Answer) }
	}
	if err := submit(ctx); err != nil {
		span.RecordError(err)
		s.writeError(w, r, err)
		return
	}

	snap := sess.Snapshot()
	span.SetAttributes(attribute.Int("score", snap.LastScore()))
	writeJSON(w, http.StatusOK, sessionResponse(snap))
}

func (s *Server) nextQuestionHandler(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, span := s.om.Tracer("careercoach.api").Start(sessionContext(r), "api.interview.next")
	defer span.End()

	if err := sess.Next(ctx); err != nil {
		span.RecordError(err)
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess.Snapshot()))
}
