package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"transfertrack/pkg/types"
)

func (s *Service) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

// respondError maps the error taxonomy onto status codes. Denials and
// missing records are expected outcomes; only genuinely unexpected failures
// reach the error log.
func (s *Service) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrNotAuthenticated):
		s.respondJSON(w, http.StatusUnauthorized, errBody("Not authenticated"))
	case errors.Is(err, types.ErrInvalidLogin):
		s.respondJSON(w, http.StatusUnauthorized, errBody("Invalid credentials"))
	case errors.Is(err, types.ErrAccessDenied):
		s.respondJSON(w, http.StatusForbidden, errBody(deniedReason(err)))
	case errors.Is(err, types.ErrTransferNotFound):
		s.respondJSON(w, http.StatusNotFound, errBody("Transfer not found"))
	case errors.Is(err, types.ErrUserNotFound):
		s.respondJSON(w, http.StatusNotFound, errBody("User not found"))
	case types.IsValidation(err):
		s.respondJSON(w, http.StatusBadRequest, errBody(err.Error()))
	default:
		s.logger.WithError(err).Error("request failed")
		s.respondJSON(w, http.StatusInternalServerError, errBody("Internal server error"))
	}
}

func errBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// deniedReason surfaces the reason attached by the permission evaluator
// without the sentinel prefix.
func deniedReason(err error) string {
	msg := err.Error()
	prefix := types.ErrAccessDenied.Error() + ": "
	if strings.HasPrefix(msg, prefix) {
		return strings.TrimPrefix(msg, prefix)
	}
	return "Access denied"
}
