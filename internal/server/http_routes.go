package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// setupRoutes configures all HTTP routes and middleware. Health and stats
// are open; everything under /api/v1 goes through rate limiting, API key
// authentication and the request size limit, in that order.
func (s *Server) setupRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.healthHandler)
	r.Get("/stats", s.statsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.rateLimitMiddleware)
		r.Use(s.authMiddleware)
		r.Use(s.requestSizeLimitMiddleware)

		r.Route("/profiles/{userID}", func(r chi.Router) {
			r.Get("/", s.getProfileHandler)
			r.Put("/", s.saveProfileHandler)
			r.Post("/resume", s.uploadResumeHandler)
			r.Post("/analysis", s.analyzeResumeHandler)
		})

		r.Post("/career-paths", s.careerPathsHandler)
		r.Get("/trends", s.jobTrendsHandler)
		r.Post("/channels", s.channelsHandler)
		r.Post("/mentor", s.mentorHandler)

		r.Route("/interview", func(r chi.Router) {
			r.Get("/domains", s.domainsHandler)
			r.Post("/sessions", s.createSessionHandler)
			r.Route("/sessions/{sessionID}", func(r chi.Router) {
				r.Get("/", s.getSessionHandler)
				r.Delete("/", s.deleteSessionHandler)
				r.Post("/configure", s.configureSessionHandler)
				r.Put("/draft", s.draftHandler)
				r.Post("/answer", s.answerHandler)
				r.Post("/next", s.nextQuestionHandler)
				r.Get("/speech", s.speechHandler)
			})
		})
	})

	return r
}

// Handler returns the complete HTTP handler including tracing
func (s *Server) Handler() http.Handler {
	return s.om.HTTPMiddleware()(s.setupRoutes())
}

// requestSizeLimitMiddleware limits the size of incoming request bodies
func (s *Server) requestSizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.MaxRequestSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
		}
		next.ServeHTTP(w, r)
	})
}
