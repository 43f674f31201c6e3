package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thiagolins/pixbank-be/internal/http/respond"
	"github.com/thiagolins/pixbank-be/internal/logging"
	"github.com/thiagolins/pixbank-be/internal/middleware"
	"github.com/thiagolins/pixbank-be/internal/transfers"
	"github.com/thiagolins/pixbank-be/internal/upstream"
)

type sendPixRequest struct {
	Key         string          `json:"key"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

type sendTedRequest struct {
	Destination upstream.TedDestination `json:"destination"`
	Amount      decimal.Decimal         `json:"amount"`
}

type pixKeyRequest struct {
	KeyType string `json:"keyType"`
	Key     string `json:"key,omitempty"`
}

type depositRequest struct {
	Amount decimal.Decimal `json:"amount"`
	ID     string          `json:"id,omitempty"`
}

// TransferHandler owns the authenticated money-movement endpoints.
type TransferHandler struct {
	transfers *transfers.Service
	log       *logging.Logger
}

// NewTransferHandler constructs the handler.
func NewTransferHandler(svc *transfers.Service, log *logging.Logger) *TransferHandler {
	return &TransferHandler{transfers: svc, log: log.With("handler", "transfers")}
}

// Register attaches transfer routes to the mux.
func (h *TransferHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/pix/send", h.handleSendPix)
	mux.HandleFunc("/pix/keys", h.handlePixKeys)
	mux.HandleFunc("/ted/send", h.handleSendTed)
	mux.HandleFunc("/deposits/qrcode", h.handleDepositQrCode)
}

func (h *TransferHandler) handleSendPix(w http.ResponseWriter, r *http.Request) {
	account, ok := requirePostAccount(w, r)
	if !ok {
		return
	}
	var req sendPixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	resp, err := h.transfers.SendPix(r.Context(), account, req.Key, req.Amount, req.Description)
	if err != nil {
		h.transferError(w, "send pix", err)
		return
	}
	respond.JSON(w, http.StatusOK, "pix sent", resp)
}

func (h *TransferHandler) handleSendTed(w http.ResponseWriter, r *http.Request) {
	account, ok := requirePostAccount(w, r)
	if !ok {
		return
	}
	var req sendTedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	resp, err := h.transfers.SendTed(r.Context(), account, transfers.TedInput{
		Destination: req.Destination,
		Amount:      req.Amount,
	})
	if err != nil {
		h.transferError(w, "send ted", err)
		return
	}
	respond.JSON(w, http.StatusOK, "ted sent", resp)
}

func (h *TransferHandler) handlePixKeys(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listPixKeys(w, r)
	case http.MethodPost:
		h.generatePixKey(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *TransferHandler) listPixKeys(w http.ResponseWriter, r *http.Request) {
	account, ok := identityAccount(w, r)
	if !ok {
		return
	}
	keys, err := h.transfers.ListPixKeys(r.Context(), account)
	if err != nil {
		h.transferError(w, "list pix keys", err)
		return
	}
	respond.JSON(w, http.StatusOK, "pix keys", keys)
}

func (h *TransferHandler) generatePixKey(w http.ResponseWriter, r *http.Request) {
	account, ok := identityAccount(w, r)
	if !ok {
		return
	}
	var req pixKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	resp, err := h.transfers.GeneratePixKey(r.Context(), account, transfers.PixKeyInput{
		KeyType: req.KeyType,
		Key:     req.Key,
	})
	if err != nil {
		h.transferError(w, "generate pix key", err)
		return
	}
	respond.JSON(w, http.StatusCreated, "pix key requested", resp)
}

func (h *TransferHandler) handleDepositQrCode(w http.ResponseWriter, r *http.Request) {
	account, ok := requirePostAccount(w, r)
	if !ok {
		return
	}
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	qr, err := h.transfers.DepositQrCode(r.Context(), account, req.Amount, req.ID)
	if err != nil {
		h.transferError(w, "deposit qrcode", err)
		return
	}
	respond.JSON(w, http.StatusOK, "deposit qrcode generated", qr)
}

// transferError maps service errors onto HTTP statuses. Validation failures
// are the caller's fault; everything upstream-shaped is a gateway problem.
func (h *TransferHandler) transferError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, transfers.ErrInvalidAmount),
		errors.Is(err, transfers.ErrMissingKey),
		errors.Is(err, transfers.ErrInvalidKeyType),
		errors.Is(err, transfers.ErrKeyValueRequired),
		errors.Is(err, transfers.ErrInvalidDestination):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, transfers.ErrNoDepositKey):
		respond.Error(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, transfers.ErrUpstreamRejected):
		respond.Error(w, http.StatusBadGateway, err.Error())
	default:
		h.log.Warn("transfer failed", "op", op, "error", err)
		respond.Error(w, http.StatusBadGateway, "bank temporarily unavailable")
	}
}

func requirePostAccount(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return "", false
	}
	return identityAccount(w, r)
}

func identityAccount(w http.ResponseWriter, r *http.Request) (string, bool) {
	if identity, ok := middleware.IdentityFrom(r.Context()); ok && identity.AccountNumber != "" {
		return identity.AccountNumber, true
	}
	respond.Error(w, http.StatusUnauthorized, "no linked account for this session")
	return "", false
}
