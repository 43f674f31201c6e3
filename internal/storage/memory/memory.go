package memory

import (
	"context"
	"sync"
	"time"

	"github.com/thiagolins/pixbank-be/internal/models"
	"github.com/thiagolins/pixbank-be/internal/storage"
)

// Ensure Store satisfies both store interfaces at compile time.
var (
	_ storage.CredentialStore = (*Store)(nil)
	_ storage.AccountStore    = (*Store)(nil)
)

// Store is an in-memory implementation of the credential and account stores,
// used by unit tests in place of Postgres.
type Store struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]models.User
	accounts map[int64]models.LinkedAccount
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		nextID:   1,
		users:    make(map[int64]models.User),
		accounts: make(map[int64]models.LinkedAccount),
	}
}

func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Document == user.Document {
			return models.User{}, storage.ErrAlreadyExists
		}
	}
	user.ID = s.nextID
	s.nextID++
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) FindByDocument(_ context.Context, document string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Document == document {
			return user, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Store) FindAccountByUser(_ context.Context, userID int64) (models.LinkedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[userID]
	if !ok {
		return models.LinkedAccount{}, storage.ErrNotFound
	}
	return acc, nil
}

func (s *Store) UpsertAccount(_ context.Context, account models.LinkedAccount) (models.LinkedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.accounts[account.UserID]; ok && existing.AccountNumber == account.AccountNumber {
		account.CreatedAt = existing.CreatedAt
	} else if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	s.accounts[account.UserID] = account
	return account, nil
}

// AccountCount reports how many linked accounts exist. Test helper.
func (s *Store) AccountCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

// UserCount reports how many users exist. Test helper.
func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}
