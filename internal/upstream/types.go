package upstream

import (
	"time"

	"github.com/shopspring/decimal"
)

// Counterparty identifies the other side of a transaction as reported by the
// upstream ledger.
type Counterparty struct {
	Name         string `json:"name,omitempty"`
	Key          string `json:"key,omitempty"`
	UserDocument string `json:"userDocument,omitempty"`
}

// Transaction is one upstream ledger record. Records are immutable once
// fetched; aggregation only ever derives from them.
type Transaction struct {
	ID               string           `json:"id"`
	Amount           decimal.Decimal  `json:"amount"`
	Side             string           `json:"side"`
	Type             string           `json:"type"`
	CreatedTimestamp int64            `json:"createdTimestamp"`
	BalanceAfter     *decimal.Decimal `json:"balanceAfter,omitempty"`
	From             *Counterparty    `json:"from,omitempty"`
	To               *Counterparty    `json:"to,omitempty"`
}

// CreatedAt converts the record's epoch-seconds timestamp.
func (t Transaction) CreatedAt() time.Time {
	return time.Unix(t.CreatedTimestamp, 0)
}

// AccountRecord is one provisioned bank account as returned by the account
// data lookup.
type AccountRecord struct {
	UserDocument  string `json:"userDocument"`
	Name          string `json:"name,omitempty"`
	BankNumber    string `json:"bankNumber"`
	AgencyNumber  string `json:"agencyNumber"`
	AgencyDigit   string `json:"agencyDigit"`
	AccountNumber string `json:"accountNumber"`
	AccountDigit  string `json:"accountDigit"`
	Status        string `json:"status"`
}

// AccountDataResponse is the getAccountData envelope. Success=false is a
// legitimate business answer, not a transport failure.
type AccountDataResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    []AccountRecord `json:"data"`
}

// TransactionsResponse is the getTransactions envelope.
type TransactionsResponse struct {
	Success      bool          `json:"success"`
	Message      string        `json:"message,omitempty"`
	Transactions []Transaction `json:"transactions"`
}

// Balance holds the balance figures returned by getAccountBalance.
type Balance struct {
	Available decimal.Decimal `json:"available"`
	Blocked   decimal.Decimal `json:"blocked,omitempty"`
}

// BalanceResponse is the getAccountBalance envelope.
type BalanceResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message,omitempty"`
	Data    Balance `json:"data"`
}

// PixKey is one registered key on an account.
type PixKey struct {
	Key     string `json:"key"`
	KeyType string `json:"keyType"`
	Status  string `json:"status"`
}

// PixKeysResponse is the getAccountPixKeys envelope.
type PixKeysResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    []PixKey `json:"data"`
}

// TransferResponse is the envelope for sendPix/sendTed submissions.
type TransferResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	ID      string `json:"id,omitempty"`
}

// GenericResponse covers calls whose payload the gateway forwards untouched
// (key generation, account creation, deposit QR codes).
type GenericResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// TransactionFilter narrows a getTransactions call. Zero-valued fields are
// left out of the signed parameter set entirely.
type TransactionFilter struct {
	StartDate    int64
	EndDate      int64
	Limit        int
	Order        string
	UserDocument string
	Side         string
}

// TedDestination is the routing tuple for an outbound TED transfer.
type TedDestination struct {
	Document      string `json:"document"`
	Name          string `json:"name"`
	BankNumber    string `json:"bankNumber"`
	AgencyNumber  string `json:"agencyNumber"`
	AgencyDigit   string `json:"agencyDigit"`
	AccountNumber string `json:"accountNumber"`
	AccountDigit  string `json:"accountDigit"`
	AccountType   string `json:"accountType"`
}
