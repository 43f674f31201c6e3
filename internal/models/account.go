package models

import "time"

// LinkedAccount is the locally cached record of a user's upstream bank
// routing details. It is created exactly once, by the first login after the
// upstream KYC process completes, and read on every login thereafter.
type LinkedAccount struct {
	UserID        int64     `json:"user_id"`
	BankNumber    string    `json:"bank_number"`
	AgencyNumber  string    `json:"agency_number"`
	AgencyDigit   string    `json:"agency_digit"`
	AccountNumber string    `json:"account_number"`
	AccountDigit  string    `json:"account_digit"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}
