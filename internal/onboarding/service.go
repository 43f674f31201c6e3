package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/thiagolins/pixbank-be/internal/auth"
	"github.com/thiagolins/pixbank-be/internal/document"
	"github.com/thiagolins/pixbank-be/internal/logging"
	"github.com/thiagolins/pixbank-be/internal/models"
	"github.com/thiagolins/pixbank-be/internal/storage"
	"github.com/thiagolins/pixbank-be/internal/upstream"
)

// Login outcome errors. All four are local or upstream conditions the
// handler maps onto HTTP statuses; none of them carries a session.
var (
	ErrInvalidDocument          = errors.New("document is not a valid CPF or CNPJ")
	ErrUserNotFound             = errors.New("user not found")
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrAccountLookupUnavailable = errors.New("account lookup temporarily unavailable")
	ErrUpstreamRejected         = errors.New("upstream rejected the request")
)

// Status classifies a successful login resolution.
type Status string

const (
	// StatusActive is the terminal returning-user state: a linked account
	// exists locally and a session token was issued.
	StatusActive Status = "active"
	// StatusPendingKyc means the upstream has no provisioned account for
	// this document yet. Not an error; the user retries after KYC completes.
	StatusPendingKyc Status = "pending_kyc"
	// StatusLinked means the account was linked just now. No token is
	// issued; the next login reads the freshly persisted routing data.
	StatusLinked Status = "linked"
)

// LoginResult is the outcome of a resolved login.
type LoginResult struct {
	Status  Status
	Token   string
	User    models.User
	Account *models.LinkedAccount
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Name     string
	Document string
	Email    string
	Phone    string
	Password string
}

// Gateway is the slice of the upstream client onboarding depends on.
type Gateway interface {
	GetAccountData(ctx context.Context, accountNumber, doc string) (upstream.AccountDataResponse, error)
	CreateUserAccount(ctx context.Context, doc, email, name, phone string) (upstream.GenericResponse, error)
}

// Service resolves logins against the local stores and the upstream account
// provisioning state, and registers new users.
type Service struct {
	credentials   storage.CredentialStore
	accounts      storage.AccountStore
	gateway       Gateway
	tokens        *auth.TokenManager
	masterAccount string
	log           *logging.Logger
}

// NewService wires the onboarding service. masterAccount is the aggregator
// account whose data lookup lists every provisioned end-user account.
func NewService(
	credentials storage.CredentialStore,
	accounts storage.AccountStore,
	gateway Gateway,
	tokens *auth.TokenManager,
	masterAccount string,
	log *logging.Logger,
) *Service {
	return &Service{
		credentials:   credentials,
		accounts:      accounts,
		gateway:       gateway,
		tokens:        tokens,
		masterAccount: masterAccount,
		log:           log.With("service", "onboarding"),
	}
}

// Login resolves a document/password pair into one of the three terminal
// onboarding states. The password check always happens before any upstream
// call; a rejected password must never cost a network round trip.
func (s *Service) Login(ctx context.Context, doc, password string) (LoginResult, error) {
	canonical := document.Canonicalize(doc)
	if !document.IsValid(canonical) {
		return LoginResult{}, ErrInvalidDocument
	}

	user, err := s.credentials.FindByDocument(ctx, canonical)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return LoginResult{}, ErrUserNotFound
		}
		return LoginResult{}, fmt.Errorf("find credential: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	account, err := s.accounts.FindAccountByUser(ctx, user.ID)
	switch {
	case err == nil:
		// Returning user: issue a session from persisted state, no upstream
		// call on this path.
		token, err := s.tokens.Generate(user, account)
		if err != nil {
			return LoginResult{}, fmt.Errorf("issue session token: %w", err)
		}
		return LoginResult{Status: StatusActive, Token: token, User: user, Account: &account}, nil
	case errors.Is(err, storage.ErrNotFound):
		return s.linkAccount(ctx, user)
	default:
		return LoginResult{}, fmt.Errorf("find linked account: %w", err)
	}
}

// linkAccount handles the no-local-account path: query the master account's
// data filtered by this user's document and either link the match or report
// KYC as still pending.
func (s *Service) linkAccount(ctx context.Context, user models.User) (LoginResult, error) {
	resp, err := s.gateway.GetAccountData(ctx, s.masterAccount, user.Document)
	if err != nil {
		s.log.Warn("account lookup failed", "user_id", user.ID, "error", err)
		return LoginResult{}, fmt.Errorf("%w: %v", classifyUpstreamError(err), err)
	}

	if !resp.Success {
		s.log.Warn("account lookup rejected", "user_id", user.ID, "message", resp.Message)
		return LoginResult{}, fmt.Errorf("%w: %s", ErrUpstreamRejected, resp.Message)
	}

	record, ok := matchByDocument(resp.Data, user.Document)
	if !ok {
		// KYC has not completed upstream. Legitimate wait-and-retry state:
		// no token, no linked account row.
		s.log.Info("kyc still pending", "user_id", user.ID)
		return LoginResult{Status: StatusPendingKyc, User: user}, nil
	}

	account := models.LinkedAccount{
		UserID:        user.ID,
		BankNumber:    record.BankNumber,
		AgencyNumber:  record.AgencyNumber,
		AgencyDigit:   record.AgencyDigit,
		AccountNumber: record.AccountNumber,
		AccountDigit:  record.AccountDigit,
		Status:        record.Status,
	}
	persisted, err := s.accounts.UpsertAccount(ctx, account)
	if err != nil {
		return LoginResult{}, fmt.Errorf("persist linked account: %w", err)
	}

	// No token on first link: the next login re-reads persisted state, so
	// issued tokens always reflect committed routing data.
	s.log.Info("account linked", "user_id", user.ID, "account_number", persisted.AccountNumber)
	return LoginResult{Status: StatusLinked, User: user, Account: &persisted}, nil
}

// classifyUpstreamError separates definitive upstream rejections from
// transient failures. Transport errors and 5xx answers are retryable; a 4xx
// answer is a definitive business rejection and retrying won't change it.
func classifyUpstreamError(err error) error {
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
		return ErrUpstreamRejected
	}
	return ErrAccountLookupUnavailable
}

func matchByDocument(records []upstream.AccountRecord, canonicalDoc string) (upstream.AccountRecord, bool) {
	for _, record := range records {
		if document.Canonicalize(record.UserDocument) == canonicalDoc {
			return record, true
		}
	}
	return upstream.AccountRecord{}, false
}

// Register validates the input, stores the credential, and asks the bank to
// provision an account (which starts the KYC process). If the upstream call
// fails the local credential is rolled back so a retry starts clean.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	canonical := document.Canonicalize(in.Document)
	if !document.IsValid(canonical) {
		return models.User{}, ErrInvalidDocument
	}
	if err := validateRegistration(in); err != nil {
		return models.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.credentials.CreateUser(ctx, models.User{
		Name:         strings.TrimSpace(in.Name),
		Document:     canonical,
		Email:        strings.TrimSpace(in.Email),
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: string(hash),
	})
	if err != nil {
		return models.User{}, err
	}

	resp, err := s.gateway.CreateUserAccount(ctx, canonical, user.Email, user.Name, user.Phone)
	if err != nil {
		s.rollbackCredential(ctx, user.ID)
		return models.User{}, fmt.Errorf("%w: %v", classifyUpstreamError(err), err)
	}
	if !resp.Success {
		s.rollbackCredential(ctx, user.ID)
		return models.User{}, fmt.Errorf("%w: %s", ErrUpstreamRejected, resp.Message)
	}

	s.log.Info("user registered", "user_id", user.ID)
	return user, nil
}

func (s *Service) rollbackCredential(ctx context.Context, userID int64) {
	if err := s.credentials.DeleteUser(ctx, userID); err != nil {
		s.log.Error("rollback of credential failed", "user_id", userID, "error", err)
	}
}

func validateRegistration(in RegisterInput) error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" || strings.TrimSpace(in.Phone) == "" {
		return errors.New("name, email, and phone are required")
	}
	if len(strings.TrimSpace(in.Password)) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}
