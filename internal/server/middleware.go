package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"transfertrack/pkg/types"
)

// Context key types to avoid collisions
type contextKey string

const contextKeyPrincipal contextKey = "principal"

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("http request")
	})
}

// RequireAuth decodes the session cookie and loads the user fresh from the
// database so the admin flag is always current, then stashes the principal
// in the request context.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(s.config.CookieName)
		if err != nil {
			s.respondError(w, types.ErrNotAuthenticated)
			return
		}

		var session types.Session
		if err := s.cookie.Decode(s.config.CookieName, cookie.Value, &session); err != nil {
			s.logger.WithError(err).Debug("failed to decode session cookie")
			s.respondError(w, types.ErrNotAuthenticated)
			return
		}

		if session.Expires.Before(time.Now()) {
			s.respondError(w, types.ErrNotAuthenticated)
			return
		}

		user, err := s.users.User(r.Context(), session.UserID)
		if err != nil {
			if errors.Is(err, types.ErrUserNotFound) {
				s.respondError(w, types.ErrNotAuthenticated)
				return
			}
			s.logger.WithError(err).Error("failed to load session user")
			s.respondError(w, err)
			return
		}

		principal := types.Principal{ID: user.ID, IsAdmin: user.IsAdmin}
		ctx := context.WithValue(r.Context(), contextKeyPrincipal, principal)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Only strip if path is not root and has trailing slash
		if path != "/" && strings.HasSuffix(path, "/") {
			newPath := strings.TrimSuffix(path, "/")
			newURL := *r.URL
			newURL.Path = newPath

			http.Redirect(w, r, newURL.String(), http.StatusMovedPermanently)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Service) principalFromContext(ctx context.Context) (types.Principal, error) {
	principal, ok := ctx.Value(contextKeyPrincipal).(types.Principal)
	if !ok {
		return types.Principal{}, types.ErrNotAuthenticated
	}
	return principal, nil
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.IndexByte(forwarded, ','); idx >= 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return strings.TrimSpace(forwarded)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// allowRate counts the request against a fixed window keyed by path+client
// and writes the 429 itself when the window is exhausted.
func (s *Service) allowRate(w http.ResponseWriter, r *http.Request, window time.Duration, max int) bool {
	key := r.URL.Path + "-" + clientIP(r)
	res := s.limiter.Allow(key, window, max)

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	w.Header().Set("X-RateLimit-Reset", res.Reset.UTC().Format(time.RFC3339))

	if !res.Allowed {
		s.respondJSON(w, http.StatusTooManyRequests, map[string]string{
			"error": "Too many requests. Please try again later.",
		})
		return false
	}

	return true
}
