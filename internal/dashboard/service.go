package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/thiagolins/pixbank-be/internal/logging"
	"github.com/thiagolins/pixbank-be/internal/upstream"
)

// Gateway is the slice of the upstream client the dashboard depends on.
type Gateway interface {
	GetTransactions(ctx context.Context, accountNumber string, filter upstream.TransactionFilter) (upstream.TransactionsResponse, error)
	GetAccountBalance(ctx context.Context, accountNumber string) (upstream.BalanceResponse, error)
}

// Summary is the period's inflow/outflow totals.
type Summary struct {
	Entradas          decimal.Decimal `json:"entradas"`
	Saidas            decimal.Decimal `json:"saidas"`
	FormattedEntradas string          `json:"formatted_entradas"`
	FormattedSaidas   string          `json:"formatted_saidas"`
}

// RecentTransaction is one ledger record formatted for the dashboard list.
type RecentTransaction struct {
	ID           string           `json:"id"`
	Date         string           `json:"date"`
	Amount       string           `json:"amount"`
	RawAmount    decimal.Decimal  `json:"raw_amount"`
	Type         string           `json:"type"`
	Icon         string           `json:"icon"`
	Status       string           `json:"status"`
	Counterparty string           `json:"counterparty"`
	Timestamp    int64            `json:"timestamp"`
	BalanceAfter *decimal.Decimal `json:"balance_after,omitempty"`
}

// BalanceResult is the account's available balance.
type BalanceResult struct {
	Saldo          decimal.Decimal `json:"saldo"`
	FormattedSaldo string          `json:"formatted_saldo"`
	AccountNumber  string          `json:"account_number"`
}

// Service answers dashboard queries by fetching the account ledger and
// deriving views from it. It never mutates fetched records.
type Service struct {
	gateway    Gateway
	aggregator *Aggregator
	loc        *time.Location
	log        *logging.Logger
}

// NewService wires the dashboard service.
func NewService(gateway Gateway, aggregator *Aggregator, loc *time.Location, log *logging.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		gateway:    gateway,
		aggregator: aggregator,
		loc:        loc,
		log:        log.With("service", "dashboard"),
	}
}

// CashFlow buckets the period's transactions into calendar intervals. An
// empty granularity auto-selects from the period length.
func (s *Service) CashFlow(ctx context.Context, accountNumber string, periodStart, periodEnd time.Time, granularity Granularity) (Aggregate, error) {
	resp, err := s.gateway.GetTransactions(ctx, accountNumber, upstream.TransactionFilter{
		StartDate: periodStart.Unix(),
		EndDate:   periodEnd.Unix(),
	})
	if err != nil {
		return Aggregate{}, fmt.Errorf("fetch transactions: %w", err)
	}
	if !resp.Success {
		// No data for the period is a common, valid dashboard state.
		s.log.Warn("transaction fetch unsuccessful", "account", accountNumber, "message", resp.Message)
		return s.aggregator.Aggregate(nil, periodStart, periodEnd, granularity), nil
	}
	return s.aggregator.Aggregate(resp.Transactions, periodStart, periodEnd, granularity), nil
}

// Summary totals the period's inflows and outflows.
func (s *Service) Summary(ctx context.Context, accountNumber string, periodStart, periodEnd time.Time) (Summary, error) {
	resp, err := s.gateway.GetTransactions(ctx, accountNumber, upstream.TransactionFilter{
		StartDate: periodStart.Unix(),
		EndDate:   periodEnd.Unix(),
	})
	if err != nil {
		return Summary{}, fmt.Errorf("fetch transactions: %w", err)
	}

	entradas := decimal.Zero
	saidas := decimal.Zero
	for _, tx := range resp.Transactions {
		switch tx.Side {
		case "in":
			entradas = entradas.Add(tx.Amount)
		case "out":
			saidas = saidas.Add(tx.Amount)
		}
	}

	return Summary{
		Entradas:          entradas,
		Saidas:            saidas,
		FormattedEntradas: FormatBRL(entradas),
		FormattedSaidas:   FormatBRL(saidas),
	}, nil
}

// RecentTransactions returns the newest records, formatted for display.
func (s *Service) RecentTransactions(ctx context.Context, accountNumber string, limit int) ([]RecentTransaction, error) {
	if limit <= 0 {
		limit = 5
	}
	resp, err := s.gateway.GetTransactions(ctx, accountNumber, upstream.TransactionFilter{Order: "desc"})
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}

	txs := make([]upstream.Transaction, len(resp.Transactions))
	copy(txs, resp.Transactions)
	sort.Slice(txs, func(i, j int) bool { return txs[i].CreatedTimestamp > txs[j].CreatedTimestamp })
	if len(txs) > limit {
		txs = txs[:limit]
	}

	out := make([]RecentTransaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, s.formatTransaction(tx))
	}
	return out, nil
}

// Balance fetches the available balance.
func (s *Service) Balance(ctx context.Context, accountNumber string) (BalanceResult, error) {
	resp, err := s.gateway.GetAccountBalance(ctx, accountNumber)
	if err != nil {
		return BalanceResult{}, fmt.Errorf("fetch balance: %w", err)
	}
	if !resp.Success {
		return BalanceResult{}, fmt.Errorf("balance unavailable: %s", resp.Message)
	}
	return BalanceResult{
		Saldo:          resp.Data.Available,
		FormattedSaldo: FormatBRL(resp.Data.Available),
		AccountNumber:  accountNumber,
	}, nil
}

func (s *Service) formatTransaction(tx upstream.Transaction) RecentTransaction {
	isInflow := tx.Side == "in"
	status := "enviado"
	if isInflow {
		status = "recebido"
	}

	when := time.Unix(tx.CreatedTimestamp, 0).In(s.loc)
	return RecentTransaction{
		ID:           tx.ID,
		Date:         fmt.Sprintf("%s às %s", when.Format("02/01/2006"), when.Format("15:04")),
		Amount:       FormatBRL(tx.Amount),
		RawAmount:    tx.Amount,
		Type:         tx.Type,
		Icon:         iconFor(tx, isInflow),
		Status:       status,
		Counterparty: counterpartyName(tx, isInflow),
		Timestamp:    tx.CreatedTimestamp,
		BalanceAfter: tx.BalanceAfter,
	}
}

func iconFor(tx upstream.Transaction, isInflow bool) string {
	switch tx.Type {
	case "pix":
		return "pix"
	case "transfer", "internal":
		return "transferencia"
	case "deposit":
		return "deposito"
	case "payment":
		return "pagamento"
	default:
		if isInflow {
			return "entrada"
		}
		return "saida"
	}
}

func counterpartyName(tx upstream.Transaction, isInflow bool) string {
	if isInflow {
		if tx.From != nil {
			if tx.From.Name != "" {
				return tx.From.Name
			}
			if tx.From.UserDocument != "" {
				return "CPF/CNPJ: " + tx.From.UserDocument
			}
		}
		return "Remetente não identificado"
	}

	if tx.To != nil {
		if tx.To.Name != "" {
			return tx.To.Name
		}
		if tx.To.Key != "" {
			return formatKey(tx.To.Key)
		}
		if tx.To.UserDocument != "" {
			return "CPF/CNPJ: " + tx.To.UserDocument
		}
	}
	return "Destinatário não identificado"
}

func formatKey(key string) string {
	if strings.Contains(key, "@") {
		return "E-mail: " + key
	}
	if len(key) > 10 {
		return "Chave: " + key[:8] + "..."
	}
	return "Chave: " + key
}

// FormatBRL renders a decimal as Brazilian currency: R$ 1.234,56.
func FormatBRL(d decimal.Decimal) string {
	negative := d.IsNegative()
	fixed := d.Abs().StringFixed(2)

	intPart := fixed[:len(fixed)-3]
	fracPart := fixed[len(fixed)-2:]

	var grouped strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}

	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%sR$ %s,%s", sign, grouped.String(), fracPart)
}
