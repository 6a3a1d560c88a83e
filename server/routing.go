package server

import "net/http"

// setupRoutes configures all HTTP handlers
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/ws", s.corsMiddleware(s.HandleWebSocket))
	s.mux.HandleFunc("/health", s.corsMiddleware(s.HandleHealth))
	s.mux.HandleFunc("/api/version", s.corsMiddleware(s.HandleVersion))
	s.mux.HandleFunc("/api/days", s.corsMiddleware(s.HandleDays))
	s.mux.HandleFunc("/api/matrix", s.corsMiddleware(s.HandleMatrix))
	s.mux.HandleFunc("/api/occupancy", s.corsMiddleware(s.HandleOccupancy))
	s.mux.HandleFunc("/api/totals", s.corsMiddleware(s.HandleTotals))
	s.mux.HandleFunc("/api/time-in-store", s.corsMiddleware(s.HandleTimeInStore))
	s.mux.HandleFunc("/api/jobs/", s.corsMiddleware(s.HandleJob))
	s.mux.HandleFunc("/api/jobs", s.corsMiddleware(s.HandleJobs))
	s.mux.HandleFunc("/api/simulate", s.corsMiddleware(s.HandleSimulate))
}

// corsMiddleware adds CORS headers using the configured allowed origins,
// sharing origin validation with the WebSocket upgrader.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.checkOrigin(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}
