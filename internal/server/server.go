package server

import (
	"context"
	"net/http"
	"time"

	"github.com/thiagolins/pixbank-be/internal/auth"
	"github.com/thiagolins/pixbank-be/internal/config"
	"github.com/thiagolins/pixbank-be/internal/dashboard"
	"github.com/thiagolins/pixbank-be/internal/http/handlers"
	"github.com/thiagolins/pixbank-be/internal/logging"
	"github.com/thiagolins/pixbank-be/internal/middleware"
	"github.com/thiagolins/pixbank-be/internal/onboarding"
	"github.com/thiagolins/pixbank-be/internal/storage"
	"github.com/thiagolins/pixbank-be/internal/transfers"
	"github.com/thiagolins/pixbank-be/internal/upstream"
)

// Store is the persistence surface the server needs.
type Store interface {
	storage.CredentialStore
	storage.AccountStore
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires services, middleware, and routes into a ready server.
func New(cfg config.Config, store Store, log *logging.Logger) *Server {
	bank := upstream.NewClient(cfg.BankBaseURL, cfg.BankAPIKey, cfg.BankAPISecret, log)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	loc := cfg.Location()

	onboardingSvc := onboarding.NewService(store, store, bank, tokens, cfg.MasterAccount, log)
	dashboardSvc := dashboard.NewService(bank, dashboard.NewAggregator(loc, log), loc, log)
	transferSvc := transfers.NewService(bank, log)

	public := http.NewServeMux()
	handlers.NewHealthHandler(time.Now()).Register(public)
	handlers.NewAuthHandler(onboardingSvc, log).Register(public)

	protected := http.NewServeMux()
	handlers.NewDashboardHandler(dashboardSvc, log).Register(protected)
	handlers.NewTransferHandler(transferSvc, log).Register(protected)

	strategy := authStrategy(cfg, tokens)
	public.Handle("/dashboard/", middleware.Authenticate(strategy, protected))
	public.Handle("/pix/", middleware.Authenticate(strategy, protected))
	public.Handle("/ted/", middleware.Authenticate(strategy, protected))
	public.Handle("/deposits/", middleware.Authenticate(strategy, protected))

	handler := middleware.CORS(cfg.CORSOrigins, middleware.Logging(log, public))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// authStrategy picks the request authentication variant once at startup.
func authStrategy(cfg config.Config, tokens *auth.TokenManager) auth.Strategy {
	if cfg.AuthMode == config.AuthModeFixed {
		return auth.NewFixedIdentityStrategy(auth.Identity{
			UserID:        cfg.FixedUserID,
			Document:      cfg.FixedDocument,
			AccountNumber: cfg.FixedAccountNumber,
		})
	}
	return auth.NewRealStrategy(tokens)
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
