package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thiagolins/pixbank-be/internal/models"
	"github.com/thiagolins/pixbank-be/internal/storage"
)

// Ensure Store satisfies both store interfaces at compile time.
var (
	_ storage.CredentialStore = (*Store)(nil)
	_ storage.AccountStore    = (*Store)(nil)
)

// Store provides Postgres-backed persistence for users and linked accounts.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a new Store and runs migrations.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			document TEXT UNIQUE NOT NULL,
			email TEXT NOT NULL,
			phone TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_document_unique_idx ON users (document);`,
		`CREATE TABLE IF NOT EXISTS linked_accounts (
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			bank_number TEXT NOT NULL,
			agency_number TEXT NOT NULL,
			agency_digit TEXT NOT NULL DEFAULT '',
			account_number TEXT NOT NULL,
			account_digit TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, account_number)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users (name, document, email, phone, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, document, email, phone, password_hash, created_at;
	`
	row := s.pool.QueryRow(ctx, query, user.Name, user.Document, user.Email, user.Phone, user.PasswordHash)
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, err
	}
	return created, nil
}

// FindByDocument fetches a user by canonical document number.
func (s *Store) FindByDocument(ctx context.Context, document string) (models.User, error) {
	const query = `
		SELECT id, name, document, email, phone, password_hash, created_at
		FROM users
		WHERE document = $1;
	`
	row := s.pool.QueryRow(ctx, query, document)
	return scanUser(row)
}

// DeleteUser removes a user row. Used by registration's compensating
// rollback when the upstream account creation fails after the local insert.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// FindAccountByUser fetches the linked account owned by the given user.
func (s *Store) FindAccountByUser(ctx context.Context, userID int64) (models.LinkedAccount, error) {
	const query = `
		SELECT user_id, bank_number, agency_number, agency_digit, account_number, account_digit, status, created_at
		FROM linked_accounts
		WHERE user_id = $1
		LIMIT 1;
	`
	row := s.pool.QueryRow(ctx, query, userID)
	return scanAccount(row)
}

// UpsertAccount inserts or refreshes the linked account for a user. The
// conflict target makes duplicate concurrent first logins converge on one row.
func (s *Store) UpsertAccount(ctx context.Context, account models.LinkedAccount) (models.LinkedAccount, error) {
	const query = `
		INSERT INTO linked_accounts (user_id, bank_number, agency_number, agency_digit, account_number, account_digit, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, account_number) DO UPDATE SET
			bank_number = EXCLUDED.bank_number,
			agency_number = EXCLUDED.agency_number,
			agency_digit = EXCLUDED.agency_digit,
			account_digit = EXCLUDED.account_digit,
			status = EXCLUDED.status
		RETURNING user_id, bank_number, agency_number, agency_digit, account_number, account_digit, status, created_at;
	`
	row := s.pool.QueryRow(ctx, query,
		account.UserID, account.BankNumber, account.AgencyNumber, account.AgencyDigit,
		account.AccountNumber, account.AccountDigit, account.Status)
	return scanAccount(row)
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Name, &user.Document, &user.Email, &user.Phone, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func scanAccount(row pgx.Row) (models.LinkedAccount, error) {
	var acc models.LinkedAccount
	if err := row.Scan(&acc.UserID, &acc.BankNumber, &acc.AgencyNumber, &acc.AgencyDigit, &acc.AccountNumber, &acc.AccountDigit, &acc.Status, &acc.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.LinkedAccount{}, storage.ErrNotFound
		}
		return models.LinkedAccount{}, err
	}
	return acc, nil
}
