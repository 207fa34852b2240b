package server

import (
	"net/http"

	"github.com/Tiliavir/time-tracker-server/internal/model"
	"github.com/Tiliavir/time-tracker-server/internal/service"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// ============================================================================
// Auth
// ============================================================================

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	session, err := s.svc.Auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	session, err := s.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	user, err := s.svc.Auth.ResetPassword(r.Context(), req.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

// ============================================================================
// Categories
// ============================================================================

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, userID string) {
	cats, err := s.svc.Categories.List(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, userID string) {
	var req service.CreateCategory
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	cat, err := s.svc.Categories.Create(r.Context(), userID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, cat)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, userID string) {
	cat, err := s.svc.Categories.Delete(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cat)
}

// ============================================================================
// Projects
// ============================================================================

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request, userID string) {
	var req service.CreateProject
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.svc.Projects.Create(r.Context(), userID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request, userID string) {
	projects, err := s.svc.Projects.List(r.Context(), userID, r.URL.Query().Get("categoryId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request, userID string) {
	p, err := s.svc.Projects.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleGetProjectTimers(w http.ResponseWriter, r *http.Request, userID string) {
	p, err := s.svc.Projects.GetWithTimers(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request, userID string) {
	var req service.UpdateProject
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.svc.Projects.Update(r.Context(), userID, r.PathValue("id"), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request, userID string) {
	p, err := s.svc.Projects.Delete(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

// ============================================================================
// Timers
// ============================================================================

func (s *Server) handleCreateTimer(w http.ResponseWriter, r *http.Request, userID string) {
	var req service.CreateTimer
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.svc.Timers.Start(r.Context(), userID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleListTimers(w http.ResponseWriter, r *http.Request, userID string) {
	timers, err := s.svc.Timers.List(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, timers)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request, userID string) {
	period := model.Period(r.PathValue("period"))
	stats, err := s.svc.Timers.Statistics(r.Context(), userID, period, r.URL.Query().Get("paidFilter"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetTimer(w http.ResponseWriter, r *http.Request, userID string) {
	t, err := s.svc.Timers.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTimer(w http.ResponseWriter, r *http.Request, userID string) {
	var req service.UpdateTimer
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.svc.Timers.Update(r.Context(), userID, r.PathValue("id"), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTimer(w http.ResponseWriter, r *http.Request, userID string) {
	t, err := s.svc.Timers.Delete(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

func (s *Server) handlePauseTimer(w http.ResponseWriter, r *http.Request, userID string) {
	s.respondTimer(w, r)(s.svc.Timers.Pause(r.Context(), userID, r.PathValue("id")))
}

func (s *Server) handleResumeTimer(w http.ResponseWriter, r *http.Request, userID string) {
	s.respondTimer(w, r)(s.svc.Timers.Resume(r.Context(), userID, r.PathValue("id")))
}

func (s *Server) handleStopTimer(w http.ResponseWriter, r *http.Request, userID string) {
	s.respondTimer(w, r)(s.svc.Timers.Stop(r.Context(), userID, r.PathValue("id")))
}

// respondTimer writes the result of a timer transition.
func (s *Server) respondTimer(w http.ResponseWriter, r *http.Request) func(model.Timer, error) {
	return func(t model.Timer, err error) {
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, t)
	}
}

func (s *Server) handleMarkAllPaid(w http.ResponseWriter, r *http.Request, userID string) {
	if err := s.svc.Timers.MarkAllPaid(r.Context(), userID, r.PathValue("projectId")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// ============================================================================
// System
// ============================================================================

// handleHealth reports whether the store is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("health check failed")
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
