package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Tiliavir/time-tracker-server/internal/service"
	"github.com/Tiliavir/time-tracker-server/internal/storage"
	"github.com/Tiliavir/time-tracker-server/internal/timecalc"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
}

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var stateErr *timecalc.InvalidStateError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &stateErr):
		return http.StatusConflict
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("json encode error")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		msg = http.StatusText(status)
	}
	s.writeJSON(w, status, errorResponse{StatusCode: status, Error: msg})
}

// decode reads a JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", service.ErrValidation, err)
	}
	return nil
}
