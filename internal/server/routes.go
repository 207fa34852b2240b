package server

import "net/http"

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// Auth
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/reset-password", s.handleResetPassword)

	// Categories
	mux.Handle("GET /categories", s.authed(s.handleListCategories))
	mux.Handle("POST /categories", s.authed(s.handleCreateCategory))
	mux.Handle("DELETE /categories/{id}", s.authed(s.handleDeleteCategory))

	// Projects
	mux.Handle("POST /projects", s.authed(s.handleCreateProject))
	mux.Handle("GET /projects", s.authed(s.handleListProjects))
	mux.Handle("GET /projects/{id}", s.authed(s.handleGetProject))
	mux.Handle("GET /projects/{id}/timers", s.authed(s.handleGetProjectTimers))
	mux.Handle("PUT /projects/{id}", s.authed(s.handleUpdateProject))
	mux.Handle("DELETE /projects/{id}", s.authed(s.handleDeleteProject))

	// Timers
	mux.Handle("POST /timers", s.authed(s.handleCreateTimer))
	mux.Handle("GET /timers", s.authed(s.handleListTimers))
	mux.Handle("GET /timers/statistics/{period}", s.authed(s.handleStatistics))
	mux.Handle("GET /timers/{id}", s.authed(s.handleGetTimer))
	mux.Handle("PATCH /timers/{id}", s.authed(s.handleUpdateTimer))
	mux.Handle("DELETE /timers/{id}", s.authed(s.handleDeleteTimer))
	mux.Handle("POST /timers/{id}/pause", s.authed(s.handlePauseTimer))
	mux.Handle("POST /timers/{id}/resume", s.authed(s.handleResumeTimer))
	mux.Handle("POST /timers/{id}/stop", s.authed(s.handleStopTimer))
	mux.Handle("POST /timers/project/{projectId}/mark-all-paid", s.authed(s.handleMarkAllPaid))

	// System
	mux.HandleFunc("GET /health", s.handleHealth)
}
