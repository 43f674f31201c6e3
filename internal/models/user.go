package models

import "time"

// User is a locally registered credential. Document is always stored in
// canonical form (digits only) and is unique across users.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Document     string    `json:"document"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
