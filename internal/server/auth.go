package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"transfertrack/pkg/types"
)

type loginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

func (s *Service) handlePostLogin(w http.ResponseWriter, r *http.Request) {
	// 5 attempts per 15 minutes per client
	if !s.allowRate(w, r, 15*time.Minute, 5) {
		return
	}

	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, types.NewValidationError("body", "malformed request"))
		return
	}

	if req.Username == "" || req.Password == "" {
		s.respondError(w, types.NewValidationError("credentials", "username and password are required"))
		return
	}

	if len(req.Username) > 100 || len(req.Password) > 200 {
		s.respondError(w, types.ErrInvalidLogin)
		return
	}

	user, err := s.auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, types.ErrInvalidLogin) {
			s.logger.WithError(err).Error("login failed")
		}
		s.respondError(w, types.ErrInvalidLogin)
		return
	}

	session := types.Session{
		UserID:  user.ID,
		Expires: time.Now().Add(time.Duration(s.config.SessionMaxAgeSec) * time.Second),
	}

	encoded, err := s.cookie.Encode(s.config.CookieName, session)
	if err != nil {
		s.logger.WithError(err).Error("failed to encode session cookie")
		s.respondError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    encoded,
		HttpOnly: true,
		Secure:   s.config.Environment != "development",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   s.config.SessionMaxAgeSec,
		Path:     "/",
	})

	s.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user": types.UserRef{
			ID:       user.ID,
			Username: user.Username,
			Location: user.Location,
		},
	})
}

func (s *Service) handlePostLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   s.config.Environment != "development",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Path:     "/",
	})

	s.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleGetMe returns the session user, re-read from the database so clients
// see location renames and admin-flag changes without re-logging in.
func (s *Service) handleGetMe(w http.ResponseWriter, r *http.Request) {
	principal, err := s.principalFromContext(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}

	user, err := s.users.User(r.Context(), principal.ID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"user": user})
}

// decodeBody accepts either a JSON payload or a form post.
func decodeBody(r *http.Request, dst any) error {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		return json.NewDecoder(r.Body).Decode(dst)
	}

	if err := r.ParseForm(); err != nil {
		return err
	}
	return decoder.Decode(dst, r.PostForm)
}
