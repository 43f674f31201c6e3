package transfers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/thiagolins/pixbank-be/internal/logging"
	"github.com/thiagolins/pixbank-be/internal/upstream"
)

// Validation and upstream outcome errors.
var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrMissingKey         = errors.New("destination pix key is required")
	ErrInvalidKeyType     = errors.New("unsupported pix key type")
	ErrKeyValueRequired   = errors.New("key value is required for this key type")
	ErrInvalidDestination = errors.New("incomplete ted destination")
	ErrNoDepositKey       = errors.New("account has no active pix key for deposits")
	ErrUpstreamRejected   = errors.New("upstream rejected the request")
)

// keyTypes the bank accepts for generatePixKey. The random ("aleatoria")
// kind is the only one whose value the bank invents.
var validKeyTypes = map[string]bool{
	"cpf":       true,
	"cnpj":      true,
	"email":     true,
	"celular":   true,
	"aleatoria": true,
}

// PixKeyInput carries a key registration request.
type PixKeyInput struct {
	KeyType string
	Key     string
}

// TedInput carries a TED submission.
type TedInput struct {
	Destination upstream.TedDestination
	Amount      decimal.Decimal
}

// DepositQrCode is a generated dynamic deposit charge.
type DepositQrCode struct {
	Key     string         `json:"key"`
	Payload map[string]any `json:"payload"`
}

// Gateway is the slice of the upstream client the transfer flows depend on.
type Gateway interface {
	SendPix(ctx context.Context, accountNumber, destinationKey string, amount decimal.Decimal, description string) (upstream.TransferResponse, error)
	SendTed(ctx context.Context, accountNumber string, dest upstream.TedDestination, amount decimal.Decimal) (upstream.TransferResponse, error)
	GeneratePixKey(ctx context.Context, accountNumber, keyType, key string) (upstream.GenericResponse, error)
	GetAccountPixKeys(ctx context.Context, accountNumber string) (upstream.PixKeysResponse, error)
	GenerateDepositQrCode(ctx context.Context, accountNumber, key string, amount decimal.Decimal, id string) (upstream.GenericResponse, error)
}

// Service validates money-movement requests and forwards them upstream. It
// holds no state of its own; the bank's ledger is the source of truth.
type Service struct {
	gateway Gateway
	log     *logging.Logger
}

// NewService wires the transfer service.
func NewService(gateway Gateway, log *logging.Logger) *Service {
	return &Service{gateway: gateway, log: log.With("service", "transfers")}
}

// SendPix submits an instant payment to a pix key.
func (s *Service) SendPix(ctx context.Context, accountNumber, destinationKey string, amount decimal.Decimal, description string) (upstream.TransferResponse, error) {
	if !amount.IsPositive() {
		return upstream.TransferResponse{}, ErrInvalidAmount
	}
	if strings.TrimSpace(destinationKey) == "" {
		return upstream.TransferResponse{}, ErrMissingKey
	}

	resp, err := s.gateway.SendPix(ctx, accountNumber, strings.TrimSpace(destinationKey), amount, description)
	if err != nil {
		return upstream.TransferResponse{}, fmt.Errorf("send pix: %w", err)
	}
	if !resp.Success {
		return upstream.TransferResponse{}, fmt.Errorf("%w: %s", ErrUpstreamRejected, resp.Message)
	}

	s.log.Info("pix sent", "account", accountNumber, "transfer_id", resp.ID)
	return resp, nil
}

// SendTed submits a wire transfer to full routing coordinates.
func (s *Service) SendTed(ctx context.Context, accountNumber string, in TedInput) (upstream.TransferResponse, error) {
	if !in.Amount.IsPositive() {
		return upstream.TransferResponse{}, ErrInvalidAmount
	}
	if err := validateTedDestination(in.Destination); err != nil {
		return upstream.TransferResponse{}, err
	}

	resp, err := s.gateway.SendTed(ctx, accountNumber, in.Destination, in.Amount)
	if err != nil {
		return upstream.TransferResponse{}, fmt.Errorf("send ted: %w", err)
	}
	if !resp.Success {
		return upstream.TransferResponse{}, fmt.Errorf("%w: %s", ErrUpstreamRejected, resp.Message)
	}

	s.log.Info("ted sent", "account", accountNumber, "transfer_id", resp.ID)
	return resp, nil
}

// GeneratePixKey registers a new pix key on the account. Random keys carry
// no value; every other type requires one.
func (s *Service) GeneratePixKey(ctx context.Context, accountNumber string, in PixKeyInput) (upstream.GenericResponse, error) {
	keyType := strings.ToLower(strings.TrimSpace(in.KeyType))
	if !validKeyTypes[keyType] {
		return upstream.GenericResponse{}, ErrInvalidKeyType
	}
	key := strings.TrimSpace(in.Key)
	if keyType != "aleatoria" && key == "" {
		return upstream.GenericResponse{}, ErrKeyValueRequired
	}

	resp, err := s.gateway.GeneratePixKey(ctx, accountNumber, keyType, key)
	if err != nil {
		return upstream.GenericResponse{}, fmt.Errorf("generate pix key: %w", err)
	}
	if !resp.Success {
		return upstream.GenericResponse{}, fmt.Errorf("%w: %s", ErrUpstreamRejected, resp.Message)
	}

	s.log.Info("pix key generated", "account", accountNumber, "key_type", keyType)
	return resp, nil
}

// ListPixKeys returns the account's registered pix keys.
func (s *Service) ListPixKeys(ctx context.Context, accountNumber string) ([]upstream.PixKey, error) {
	resp, err := s.gateway.GetAccountPixKeys(ctx, accountNumber)
	if err != nil {
		return nil, fmt.Errorf("list pix keys: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", ErrUpstreamRejected, resp.Message)
	}
	return resp.Data, nil
}

// DepositQrCode generates a dynamic charge against one of the account's own
// pix keys. Random keys are preferred because they never expose personal
// data in the QR payload.
func (s *Service) DepositQrCode(ctx context.Context, accountNumber string, amount decimal.Decimal, id string) (DepositQrCode, error) {
	if !amount.IsPositive() {
		return DepositQrCode{}, ErrInvalidAmount
	}

	keys, err := s.ListPixKeys(ctx, accountNumber)
	if err != nil {
		return DepositQrCode{}, err
	}
	key, ok := pickDepositKey(keys)
	if !ok {
		return DepositQrCode{}, ErrNoDepositKey
	}

	resp, err := s.gateway.GenerateDepositQrCode(ctx, accountNumber, key, amount, id)
	if err != nil {
		return DepositQrCode{}, fmt.Errorf("generate deposit qrcode: %w", err)
	}
	if !resp.Success {
		return DepositQrCode{}, fmt.Errorf("%w: %s", ErrUpstreamRejected, resp.Message)
	}

	s.log.Info("deposit qrcode generated", "account", accountNumber)
	return DepositQrCode{Key: key, Payload: resp.Data}, nil
}

func pickDepositKey(keys []upstream.PixKey) (string, bool) {
	var fallback string
	for _, k := range keys {
		if !strings.EqualFold(k.Status, "active") {
			continue
		}
		if k.KeyType == "evp" {
			return k.Key, true
		}
		if fallback == "" {
			fallback = k.Key
		}
	}
	return fallback, fallback != ""
}

func validateTedDestination(dest upstream.TedDestination) error {
	missing := func(field string) error {
		return fmt.Errorf("%w: %s is required", ErrInvalidDestination, field)
	}
	switch {
	case strings.TrimSpace(dest.Document) == "":
		return missing("document")
	case strings.TrimSpace(dest.Name) == "":
		return missing("name")
	case strings.TrimSpace(dest.BankNumber) == "":
		return missing("bank number")
	case strings.TrimSpace(dest.AgencyNumber) == "":
		return missing("agency number")
	case strings.TrimSpace(dest.AccountNumber) == "":
		return missing("account number")
	}
	return nil
}
