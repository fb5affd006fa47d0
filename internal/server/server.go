package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/securecookie"
	"github.com/sirupsen/logrus"

	"transfertrack/internal/auth"
	"transfertrack/internal/ratelimit"
	"transfertrack/internal/store"
	"transfertrack/internal/transfers"
	"transfertrack/pkg/types"
)

var decoder = form.NewDecoder()

type Service struct {
	logger    *logrus.Logger
	config    *types.Config
	auth      *auth.Service
	transfers *transfers.Service
	users     *store.UserRepository
	limiter   *ratelimit.Limiter

	cookie *securecookie.SecureCookie

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	authSvc *auth.Service,
	transferSvc *transfers.Service,
	users *store.UserRepository,
	limiter *ratelimit.Limiter,
) (*Service, error) {
	mux := flow.New()

	hashKey, err := base64.StdEncoding.DecodeString(config.CookieHashKey)
	if err != nil {
		return nil, fmt.Errorf("decode cookie hash key: %w", err)
	}
	blockKey, err := base64.StdEncoding.DecodeString(config.CookieBlockKey)
	if err != nil {
		return nil, fmt.Errorf("decode cookie block key: %w", err)
	}

	s := &Service{
		logger:    logger,
		config:    config,
		auth:      authSvc,
		transfers: transferSvc,
		users:     users,
		limiter:   limiter,
		cookie:    securecookie.New(hashKey, blockKey),
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	s.buildRouter(mux)

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/api/auth/login", s.handlePostLogin, http.MethodPost)
	r.HandleFunc("/api/auth/logout", s.handlePostLogout, http.MethodPost)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/api/auth/me", s.handleGetMe, http.MethodGet)
		r.HandleFunc("/api/users", s.handleGetLocations, http.MethodGet)

		r.HandleFunc("/api/transfers", s.handleListTransfers, http.MethodGet)
		r.HandleFunc("/api/transfers/upload", s.handleUploadTransfer, http.MethodPost)
		r.HandleFunc("/api/transfers/:id", s.handleGetTransfer, http.MethodGet)
		r.HandleFunc("/api/transfers/:id", s.handlePatchTransfer, http.MethodPatch)
		r.HandleFunc("/api/transfers/:id", s.handleDeleteTransfer, http.MethodDelete)

		r.HandleFunc("/api/uploads/:name", s.handleGetUpload, http.MethodGet)
	})
}
