package onboarding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/thiagolins/pixbank-be/internal/auth"
	"github.com/thiagolins/pixbank-be/internal/logging"
	"github.com/thiagolins/pixbank-be/internal/models"
	"github.com/thiagolins/pixbank-be/internal/storage/memory"
	"github.com/thiagolins/pixbank-be/internal/upstream"
)

const (
	validCPF     = "52998224725"
	testPassword = "correct-horse"
)

type stubGateway struct {
	mu sync.Mutex

	accountData    upstream.AccountDataResponse
	accountDataErr error
	createResp     upstream.GenericResponse
	createErr      error

	lookupCalls int
	createCalls int
}

func (g *stubGateway) GetAccountData(_ context.Context, _, _ string) (upstream.AccountDataResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lookupCalls++
	return g.accountData, g.accountDataErr
}

func (g *stubGateway) CreateUserAccount(_ context.Context, _, _, _, _ string) (upstream.GenericResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	return g.createResp, g.createErr
}

func (g *stubGateway) lookups() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lookupCalls
}

func newTestService(t *testing.T, gw *stubGateway) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	tokens := auth.NewTokenManager("test-secret", "pixbank", time.Hour)
	svc := NewService(store, store, gw, tokens, "master-0001", logging.NewNop())
	return svc, store
}

func seedUser(t *testing.T, store *memory.Store) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	user, err := store.CreateUser(context.Background(), models.User{
		Name:         "Ana Souza",
		Document:     validCPF,
		Email:        "ana@example.com",
		Phone:        "+5511999990000",
		PasswordHash: string(hash),
	})
	require.NoError(t, err)
	return user
}

func matchingRecord() upstream.AccountRecord {
	return upstream.AccountRecord{
		UserDocument:  "529.982.247-25",
		BankNumber:    "341",
		AgencyNumber:  "0001",
		AgencyDigit:   "9",
		AccountNumber: "123456",
		AccountDigit:  "7",
		Status:        "active",
	}
}

func TestLoginInvalidDocument(t *testing.T) {
	svc, _ := newTestService(t, &stubGateway{})

	_, err := svc.Login(context.Background(), "11111111111", "whatever")
	assert.ErrorIs(t, err, ErrInvalidDocument)

	_, err = svc.Login(context.Background(), "123", "whatever")
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestLoginUserNotFound(t *testing.T) {
	svc, _ := newTestService(t, &stubGateway{})
	_, err := svc.Login(context.Background(), validCPF, "whatever")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLoginWrongPasswordSkipsUpstream(t *testing.T) {
	gw := &stubGateway{}
	svc, store := newTestService(t, gw)
	seedUser(t, store)

	_, err := svc.Login(context.Background(), validCPF, "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Zero(t, gw.lookups(), "no network round trip for a rejected password")
}

func TestLoginReturningUserSkipsUpstream(t *testing.T) {
	gw := &stubGateway{}
	svc, store := newTestService(t, gw)
	user := seedUser(t, store)
	_, err := store.UpsertAccount(context.Background(), models.LinkedAccount{
		UserID:        user.ID,
		BankNumber:    "341",
		AccountNumber: "123456",
		Status:        "active",
	})
	require.NoError(t, err)

	result, err := svc.Login(context.Background(), "529.982.247-25", testPassword)
	require.NoError(t, err)

	assert.Equal(t, StatusActive, result.Status)
	assert.NotEmpty(t, result.Token)
	require.NotNil(t, result.Account)
	assert.Equal(t, "123456", result.Account.AccountNumber)
	assert.Zero(t, gw.lookups())

	tokens := auth.NewTokenManager("test-secret", "pixbank", time.Hour)
	identity, err := tokens.Parse(result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)
	assert.Equal(t, validCPF, identity.Document)
	assert.Equal(t, "123456", identity.AccountNumber)
}

func TestLoginKycPendingCreatesNoAccount(t *testing.T) {
	gw := &stubGateway{accountData: upstream.AccountDataResponse{Success: true}}
	svc, store := newTestService(t, gw)
	seedUser(t, store)

	result, err := svc.Login(context.Background(), validCPF, testPassword)
	require.NoError(t, err)

	assert.Equal(t, StatusPendingKyc, result.Status)
	assert.Empty(t, result.Token)
	assert.Nil(t, result.Account)
	assert.Zero(t, store.AccountCount())
}

func TestLoginKycPendingIgnoresForeignRecords(t *testing.T) {
	record := matchingRecord()
	record.UserDocument = "11222333000181"
	gw := &stubGateway{accountData: upstream.AccountDataResponse{
		Success: true,
		Data:    []upstream.AccountRecord{record},
	}}
	svc, store := newTestService(t, gw)
	seedUser(t, store)

	result, err := svc.Login(context.Background(), validCPF, testPassword)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingKyc, result.Status)
	assert.Zero(t, store.AccountCount())
}

func TestLoginFirstLinkPersistsWithoutToken(t *testing.T) {
	gw := &stubGateway{accountData: upstream.AccountDataResponse{
		Success: true,
		Data:    []upstream.AccountRecord{matchingRecord()},
	}}
	svc, store := newTestService(t, gw)
	user := seedUser(t, store)

	result, err := svc.Login(context.Background(), validCPF, testPassword)
	require.NoError(t, err)

	assert.Equal(t, StatusLinked, result.Status)
	assert.Empty(t, result.Token, "first link must not issue a usable session")
	require.NotNil(t, result.Account)
	assert.Equal(t, "123456", result.Account.AccountNumber)

	stored, err := store.FindAccountByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "341", stored.BankNumber)

	// The next login is the returning-user fast path.
	second, err := svc.Login(context.Background(), validCPF, testPassword)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, second.Status)
	assert.NotEmpty(t, second.Token)
	assert.Equal(t, 1, gw.lookups())
}

func TestLoginConcurrentFirstLinksConvergeOnOneRow(t *testing.T) {
	gw := &stubGateway{accountData: upstream.AccountDataResponse{
		Success: true,
		Data:    []upstream.AccountRecord{matchingRecord()},
	}}
	svc, store := newTestService(t, gw)
	seedUser(t, store)

	var wg sync.WaitGroup
	results := make([]LoginResult, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Login(context.Background(), validCPF, testPassword)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 2; i++ {
		require.NoError(t, errs[i])
		// Either both saw the first-link path, or one raced ahead and the
		// other got the returning-user fast path; both are valid outcomes.
		assert.Contains(t, []Status{StatusLinked, StatusActive}, results[i].Status)
	}
	assert.Equal(t, 1, store.AccountCount())
}

func TestLoginLookupUnavailable(t *testing.T) {
	gw := &stubGateway{accountDataErr: &upstream.TransportError{Op: "getAccountData", Err: errors.New("connection refused")}}
	svc, store := newTestService(t, gw)
	seedUser(t, store)

	_, err := svc.Login(context.Background(), validCPF, testPassword)
	assert.ErrorIs(t, err, ErrAccountLookupUnavailable)
	assert.Zero(t, store.AccountCount())
}

func TestLoginServerErrorIsRetryable(t *testing.T) {
	gw := &stubGateway{accountDataErr: &upstream.APIError{Op: "getAccountData", StatusCode: 502, Message: "bad gateway"}}
	svc, store := newTestService(t, gw)
	seedUser(t, store)

	_, err := svc.Login(context.Background(), validCPF, testPassword)
	assert.ErrorIs(t, err, ErrAccountLookupUnavailable)
}

func TestLoginUpstreamRejected(t *testing.T) {
	gw := &stubGateway{accountData: upstream.AccountDataResponse{Success: false, Message: "master account misconfigured"}}
	svc, store := newTestService(t, gw)
	seedUser(t, store)

	_, err := svc.Login(context.Background(), validCPF, testPassword)
	assert.ErrorIs(t, err, ErrUpstreamRejected)
	assert.Contains(t, err.Error(), "master account misconfigured")
	assert.Zero(t, store.AccountCount())
}

func TestRegisterCreatesCredential(t *testing.T) {
	gw := &stubGateway{createResp: upstream.GenericResponse{Success: true}}
	svc, store := newTestService(t, gw)

	user, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Ana Souza",
		Document: "529.982.247-25",
		Email:    "ana@example.com",
		Phone:    "+5511999990000",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, validCPF, user.Document, "document stored in canonical form")
	assert.Equal(t, 1, store.UserCount())
	assert.Equal(t, 1, gw.createCalls)
}

func TestRegisterRollsBackOnUpstreamFailure(t *testing.T) {
	gw := &stubGateway{createErr: &upstream.TransportError{Op: "createUserAccount", Err: errors.New("timeout")}}
	svc, store := newTestService(t, gw)

	_, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Ana Souza",
		Document: validCPF,
		Email:    "ana@example.com",
		Phone:    "+5511999990000",
		Password: "correct-horse",
	})
	require.Error(t, err)
	assert.Zero(t, store.UserCount(), "credential rolled back after upstream failure")
}

func TestRegisterRollsBackOnUpstreamRejection(t *testing.T) {
	gw := &stubGateway{createResp: upstream.GenericResponse{Success: false, Message: "document already registered"}}
	svc, store := newTestService(t, gw)

	_, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Ana Souza",
		Document: validCPF,
		Email:    "ana@example.com",
		Phone:    "+5511999990000",
		Password: "correct-horse",
	})
	assert.ErrorIs(t, err, ErrUpstreamRejected)
	assert.Zero(t, store.UserCount())
}

func TestRegisterRejectsInvalidDocumentBeforeAnyWork(t *testing.T) {
	gw := &stubGateway{}
	svc, store := newTestService(t, gw)

	_, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Ana",
		Document: "11111111111",
		Email:    "ana@example.com",
		Phone:    "+5511999990000",
		Password: "correct-horse",
	})
	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.Zero(t, store.UserCount())
	assert.Zero(t, gw.createCalls)
}
