package server

import "net/http"

func (s *Service) handleGetLocations(w http.ResponseWriter, r *http.Request) {
	principal, err := s.principalFromContext(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}

	locations, err := s.transfers.ListLocations(r.Context(), principal.ID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"users": locations})
}
