package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thiagolins/pixbank-be/internal/logging"
	"github.com/thiagolins/pixbank-be/internal/signing"
)

const (
	headerAPIKey        = "B8-API-KEY"
	headerAccountNumber = "ACCOUNT-NUMBER"
)

// Client issues signed calls to the banking API. Every request carries a
// fresh epoch timestamp inside the signed parameter set and an HMAC-SHA512
// signature computed over the canonical serialization.
type Client struct {
	baseURL    string
	apiKey     string
	signer     *signing.Signer
	httpClient *http.Client
	now        func() time.Time
	log        *logging.Logger
}

// NewClient builds an upstream client. The API secret feeds the request
// signer and is never sent on the wire.
func NewClient(baseURL, apiKey, apiSecret string, log *logging.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		signer:     signing.NewSigner(apiSecret),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
		log:        log.With("component", "upstream"),
	}
}

// CreateUserAccount registers a new end user with the bank, starting its KYC
// process. This is one of the two calls issued without an account header.
func (c *Client) CreateUserAccount(ctx context.Context, document, email, name, phone string) (GenericResponse, error) {
	body := signing.Params{
		"document":  document,
		"email":     email,
		"name":      name,
		"phone":     phone,
		"timestamp": c.now().Unix(),
	}
	var out GenericResponse
	if err := c.post(ctx, "/createUserAccount", "", body, &out); err != nil {
		return GenericResponse{}, err
	}
	return out, nil
}

// GetAccountData looks up provisioned accounts, optionally filtered by
// document. The signature covers the merged body and query trees; this is
// the one call that exercises both.
func (c *Client) GetAccountData(ctx context.Context, accountNumber, document string) (AccountDataResponse, error) {
	const op = "getAccountData"

	body := signing.Params{"timestamp": c.now().Unix()}
	query := signing.Params{}
	if document != "" {
		query["document"] = document
	}
	sig, err := c.signer.Sign(body, query)
	if err != nil {
		return AccountDataResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	body["signature"] = sig

	target := c.baseURL + "/getAccountData"
	if document != "" {
		target += "?document=" + url.QueryEscape(document)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return AccountDataResponse{}, fmt.Errorf("%s: marshal body: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, bytes.NewReader(payload))
	if err != nil {
		return AccountDataResponse{}, fmt.Errorf("%s: build request: %w", op, err)
	}
	c.setHeaders(req, accountNumber)

	var out AccountDataResponse
	if err := c.execute(req, op, &out); err != nil {
		return AccountDataResponse{}, err
	}
	return out, nil
}

// GetTransactions fetches the account's ledger. The signed parameter set is
// serialized into the URL together with its signature, so the wire form and
// the signed form are byte-identical.
func (c *Client) GetTransactions(ctx context.Context, accountNumber string, filter TransactionFilter) (TransactionsResponse, error) {
	const op = "getTransactions"

	params := signing.Params{"timestamp": c.now().Unix()}
	if filter.StartDate > 0 {
		params["startDate"] = filter.StartDate
	}
	if filter.EndDate > 0 {
		params["endDate"] = filter.EndDate
	}
	if filter.Limit > 0 {
		params["limit"] = filter.Limit
	}
	if filter.Order != "" {
		params["order"] = filter.Order
	}
	if filter.UserDocument != "" {
		params["userDocument"] = filter.UserDocument
	}
	if filter.Side != "" {
		params["side"] = filter.Side
	}

	sig, err := c.signer.Sign(params, nil)
	if err != nil {
		return TransactionsResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	serialized, err := signing.Encode(params)
	if err != nil {
		return TransactionsResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	target := fmt.Sprintf("%s/getTransactions?%s&signature=%s", c.baseURL, serialized, sig)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return TransactionsResponse{}, fmt.Errorf("%s: build request: %w", op, err)
	}
	c.setHeaders(req, accountNumber)

	var out TransactionsResponse
	if err := c.execute(req, op, &out); err != nil {
		return TransactionsResponse{}, err
	}
	c.log.Debug("transactions fetched", "account", accountNumber, "count", len(out.Transactions))
	return out, nil
}

// GetAccountBalance fetches current balance figures.
func (c *Client) GetAccountBalance(ctx context.Context, accountNumber string) (BalanceResponse, error) {
	body := signing.Params{"timestamp": c.now().Unix()}
	var out BalanceResponse
	if err := c.get(ctx, "/getAccountBalance", accountNumber, body, &out); err != nil {
		return BalanceResponse{}, err
	}
	return out, nil
}

// GetAccountPixKeys lists the PIX keys registered on the account.
func (c *Client) GetAccountPixKeys(ctx context.Context, accountNumber string) (PixKeysResponse, error) {
	body := signing.Params{"timestamp": c.now().Unix()}
	var out PixKeysResponse
	if err := c.get(ctx, "/getAccountPixKeys", accountNumber, body, &out); err != nil {
		return PixKeysResponse{}, err
	}
	return out, nil
}

// SendPix submits an outbound PIX transfer to the given key. The uniqueId
// makes retried submissions idempotent on the upstream side.
func (c *Client) SendPix(ctx context.Context, accountNumber, destinationKey string, amount decimal.Decimal, description string) (TransferResponse, error) {
	body := signing.Params{
		"destination": signing.Params{"key": destinationKey},
		"amount":      amount,
		"uniqueId":    shortUniqueID(),
		"timestamp":   c.now().Unix(),
	}
	if description != "" {
		body["description"] = description
	}
	var out TransferResponse
	if err := c.post(ctx, "/sendPix", accountNumber, body, &out); err != nil {
		return TransferResponse{}, err
	}
	return out, nil
}

// SendTed submits an outbound TED transfer to a full routing destination.
func (c *Client) SendTed(ctx context.Context, accountNumber string, dest TedDestination, amount decimal.Decimal) (TransferResponse, error) {
	body := signing.Params{
		"destination": signing.Params{
			"document":      dest.Document,
			"name":          dest.Name,
			"bankNumber":    dest.BankNumber,
			"agencyNumber":  dest.AgencyNumber,
			"agencyDigit":   dest.AgencyDigit,
			"accountNumber": dest.AccountNumber,
			"accountDigit":  dest.AccountDigit,
			"accountType":   dest.AccountType,
		},
		"amount":    amount,
		"uniqueId":  shortUniqueID(),
		"timestamp": c.now().Unix(),
	}
	var out TransferResponse
	if err := c.post(ctx, "/sendTed", accountNumber, body, &out); err != nil {
		return TransferResponse{}, err
	}
	return out, nil
}

// GeneratePixKey registers a new PIX key. Front-end key types are mapped to
// the upstream vocabulary; random (evp) keys carry no key value.
func (c *Client) GeneratePixKey(ctx context.Context, accountNumber, keyType, key string) (GenericResponse, error) {
	apiKeyType := mapKeyType(keyType)
	body := signing.Params{
		"keyType":   apiKeyType,
		"timestamp": c.now().Unix(),
	}
	if key != "" && apiKeyType != "evp" {
		body["key"] = key
	}
	var out GenericResponse
	if err := c.post(ctx, "/generatePixKey", accountNumber, body, &out); err != nil {
		return GenericResponse{}, err
	}
	return out, nil
}

// GenerateDepositQrCode creates a PIX QR code crediting the given key.
func (c *Client) GenerateDepositQrCode(ctx context.Context, accountNumber, key string, amount decimal.Decimal, id string) (GenericResponse, error) {
	body := signing.Params{
		"key":       key,
		"amount":    amount,
		"uniqueId":  id,
		"timestamp": c.now().Unix(),
	}
	var out GenericResponse
	if err := c.post(ctx, "/generateDepositQrCode", accountNumber, body, &out); err != nil {
		return GenericResponse{}, err
	}
	return out, nil
}

// post signs the body, attaches the signature, and issues a POST.
func (c *Client) post(ctx context.Context, path, accountNumber string, body signing.Params, out any) error {
	op := strings.TrimPrefix(path, "/")

	sig, err := c.signer.Sign(body, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	body["signature"] = sig

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: marshal body: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	c.setHeaders(req, accountNumber)

	return c.execute(req, op, out)
}

// get issues a signed GET whose parameters travel in a JSON body, the way
// the upstream's read endpoints expect them.
func (c *Client) get(ctx context.Context, path, accountNumber string, body signing.Params, out any) error {
	op := strings.TrimPrefix(path, "/")

	sig, err := c.signer.Sign(body, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	body["signature"] = sig

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: marshal body: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	c.setHeaders(req, accountNumber)

	return c.execute(req, op, out)
}

func (c *Client) setHeaders(req *http.Request, accountNumber string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerAPIKey, c.apiKey)
	if accountNumber != "" {
		req.Header.Set(headerAccountNumber, accountNumber)
	}
}

// execute runs the request and normalizes the three failure kinds: network
// errors and unparseable bodies become TransportError, non-200 statuses
// become APIError. A success:false body passes through untouched; it is a
// business answer, not a failure.
func (c *Client) execute(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("request failed", "op", op, "error", err)
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		msg := extractMessage(raw)
		c.log.Warn("upstream rejected request", "op", op, "status", resp.StatusCode, "message", msg)
		return &APIError{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func extractMessage(raw []byte) string {
	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Message != "" {
		return envelope.Message
	}
	return strings.TrimSpace(string(raw))
}

func mapKeyType(keyType string) string {
	switch strings.ToLower(keyType) {
	case "celular":
		return "phone"
	case "aleatoria":
		return "evp"
	case "cpf", "cnpj", "email", "phone", "evp":
		return strings.ToLower(keyType)
	default:
		return keyType
	}
}

// The upstream limits uniqueId to 30 characters.
func shortUniqueID() string {
	id := uuid.NewString()
	if len(id) > 30 {
		id = id[:30]
	}
	return id
}
