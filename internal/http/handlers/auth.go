package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/thiagolins/pixbank-be/internal/http/respond"
	"github.com/thiagolins/pixbank-be/internal/logging"
	"github.com/thiagolins/pixbank-be/internal/models/dto"
	"github.com/thiagolins/pixbank-be/internal/onboarding"
	"github.com/thiagolins/pixbank-be/internal/storage"
)

// AuthHandler owns the register and login endpoints.
type AuthHandler struct {
	onboarding *onboarding.Service
	log        *logging.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(svc *onboarding.Service, log *logging.Logger) *AuthHandler {
	return &AuthHandler{onboarding: svc, log: log.With("handler", "auth")}
}

// Register attaches auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/auth/register", h.handleRegister)
	mux.HandleFunc("/auth/login", h.handleLogin)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	user, err := h.onboarding.Register(r.Context(), onboarding.RegisterInput{
		Name:     req.Name,
		Document: req.Document,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, onboarding.ErrInvalidDocument):
			respond.Error(w, http.StatusBadRequest, "document is not a valid CPF or CNPJ")
		case errors.Is(err, storage.ErrAlreadyExists):
			respond.Error(w, http.StatusConflict, "user already exists")
		case errors.Is(err, onboarding.ErrUpstreamRejected):
			respond.Error(w, http.StatusBadGateway, err.Error())
		case errors.Is(err, onboarding.ErrAccountLookupUnavailable):
			respond.Error(w, http.StatusServiceUnavailable, "account provisioning temporarily unavailable")
		default:
			respond.Error(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	respond.JSON(w, http.StatusCreated, "user created successfully", user)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.Document == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "document and password are required")
		return
	}

	result, err := h.onboarding.Login(r.Context(), req.Document, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, onboarding.ErrInvalidDocument):
			respond.Error(w, http.StatusBadRequest, "document is not a valid CPF or CNPJ")
		case errors.Is(err, onboarding.ErrUserNotFound), errors.Is(err, onboarding.ErrInvalidCredentials):
			// Same answer for both so login probes can't enumerate documents.
			respond.Error(w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, onboarding.ErrAccountLookupUnavailable):
			respond.Error(w, http.StatusServiceUnavailable, "account lookup temporarily unavailable, try again")
		case errors.Is(err, onboarding.ErrUpstreamRejected):
			respond.Error(w, http.StatusBadGateway, err.Error())
		default:
			h.log.Error("login failed", "error", err)
			respond.Error(w, http.StatusInternalServerError, "login failed")
		}
		return
	}

	respond.JSON(w, http.StatusOK, loginMessage(result.Status), dto.LoginResponse{
		Status:  string(result.Status),
		Token:   result.Token,
		User:    &result.User,
		Account: result.Account,
	})
}

func loginMessage(status onboarding.Status) string {
	switch status {
	case onboarding.StatusPendingKyc:
		return "account approval is still pending, try again later"
	case onboarding.StatusLinked:
		return "account linked, log in again to start a session"
	default:
		return "login successful"
	}
}
