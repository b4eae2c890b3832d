package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo(addr string) {
	s.displayListenInfo(addr)
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

func (s *Server) displayListenInfo(addr string) {
	switch s.TLSConfig.Mode {
	case "server":
		fmt.Printf("Starting server with HTTPS (server-only TLS) on https://%s\n", addr)
	case "mutual":
		fmt.Printf("Starting server with mTLS (mutual TLS) on https://%s\n", addr)
		fmt.Println("TLS mode: Mutual (client certificates required)")
	default:
		fmt.Printf("Starting server on http://%s\n", addr)
		fmt.Println("TLS mode: Disabled (HTTP only)")
	}
	if s.certs != nil && s.TLSConfig.AutoReload {
		fmt.Println("TLS auto-reload: ENABLED")
	}
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET    /health                                  - Health check")
	fmt.Println("  GET    /stats                                   - Server statistics")
	fmt.Println("  GET    /api/v1/profiles/{userID}                - Get profile")
	fmt.Println("  PUT    /api/v1/profiles/{userID}                - Save profile")
	fmt.Println("  POST   /api/v1/profiles/{userID}/resume         - Upload résumé")
	fmt.Println("  POST   /api/v1/profiles/{userID}/analysis       - Analyze résumé")
	fmt.Println("  POST   /api/v1/career-paths                     - Recommend career paths")
	fmt.Println("  GET    /api/v1/trends                           - Job market trends")
	fmt.Println("  POST   /api/v1/channels                         - Recommend learning channels")
	fmt.Println("  POST   /api/v1/mentor                           - Ask the mentor")
	fmt.Println("  GET    /api/v1/interview/domains                - Interview domains")
	fmt.Println("  POST   /api/v1/interview/sessions               - Start an interview session")
	fmt.Println("  GET    /api/v1/interview/sessions/{id}          - Session state")
	fmt.Println("  POST   /api/v1/interview/sessions/{id}/configure - Choose domain, level and mode")
	fmt.Println("  PUT    /api/v1/interview/sessions/{id}/draft    - Edit the answer")
	fmt.Println("  POST   /api/v1/interview/sessions/{id}/answer   - Submit the answer")
	fmt.Println("  POST   /api/v1/interview/sessions/{id}/next     - Next question")
	fmt.Println("  GET    /api/v1/interview/sessions/{id}/speech   - Speech stream (WebSocket)")
	fmt.Println("  DELETE /api/v1/interview/sessions/{id}          - End the session")
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo() {
	if n := s.keys.Len(); n > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", n)
		fmt.Println("Include 'X-API-Key: <your-key>' header in requests to /api/v1")
		if s.keyWatcher != nil {
			fmt.Println("  - Keys rotate from Vault")
		}
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: API endpoints are publicly accessible!")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			fmt.Println("  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
	}
}
