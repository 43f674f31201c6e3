package storage

import (
	"context"
	"errors"

	"github.com/thiagolins/pixbank-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// CredentialStore captures persistence operations for registered users.
// Lookups take canonical (digits-only) documents.
type CredentialStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByDocument(ctx context.Context, document string) (models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// AccountStore persists upstream routing details linked to local users.
// UpsertAccount is keyed by (user_id, account_number) so two racing first
// logins resolve to a single row instead of a constraint violation.
type AccountStore interface {
	FindAccountByUser(ctx context.Context, userID int64) (models.LinkedAccount, error)
	UpsertAccount(ctx context.Context, account models.LinkedAccount) (models.LinkedAccount, error)
}
