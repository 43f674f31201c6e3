package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/thiagolins/pixbank-be/internal/dashboard"
	"github.com/thiagolins/pixbank-be/internal/http/respond"
	"github.com/thiagolins/pixbank-be/internal/logging"
	"github.com/thiagolins/pixbank-be/internal/middleware"
)

// DashboardHandler owns the authenticated account overview endpoints.
type DashboardHandler struct {
	dashboard *dashboard.Service
	now       func() time.Time
	log       *logging.Logger
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(svc *dashboard.Service, log *logging.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: svc, now: time.Now, log: log.With("handler", "dashboard")}
}

// Register attaches dashboard routes to the mux.
func (h *DashboardHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/dashboard/summary", h.handleSummary)
	mux.HandleFunc("/dashboard/cashflow", h.handleCashFlow)
	mux.HandleFunc("/dashboard/transactions", h.handleTransactions)
	mux.HandleFunc("/dashboard/balance", h.handleBalance)
}

func (h *DashboardHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}
	start, end := h.period(r)
	summary, err := h.dashboard.Summary(r.Context(), account, start, end)
	if err != nil {
		h.upstreamError(w, "summary", err)
		return
	}
	respond.JSON(w, http.StatusOK, "summary", summary)
}

func (h *DashboardHandler) handleCashFlow(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}
	start, end := h.period(r)

	granularity := dashboard.Granularity(r.URL.Query().Get("granularity"))
	switch granularity {
	case "", dashboard.GranularityDay, dashboard.GranularityWeek, dashboard.GranularityMonth:
	default:
		respond.Error(w, http.StatusBadRequest, "granularity must be day, week, or month")
		return
	}

	result, err := h.dashboard.CashFlow(r.Context(), account, start, end, granularity)
	if err != nil {
		h.upstreamError(w, "cashflow", err)
		return
	}
	respond.JSON(w, http.StatusOK, "cash flow", result)
}

func (h *DashboardHandler) handleTransactions(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}
	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			respond.Error(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	recent, err := h.dashboard.RecentTransactions(r.Context(), account, limit)
	if err != nil {
		h.upstreamError(w, "transactions", err)
		return
	}
	respond.JSON(w, http.StatusOK, "recent transactions", recent)
}

func (h *DashboardHandler) handleBalance(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}
	balance, err := h.dashboard.Balance(r.Context(), account)
	if err != nil {
		h.upstreamError(w, "balance", err)
		return
	}
	respond.JSON(w, http.StatusOK, "balance", balance)
}

// period reads the requested window: either explicit unix second bounds or a
// trailing number of days (default 30) ending now.
func (h *DashboardHandler) period(r *http.Request) (time.Time, time.Time) {
	q := r.URL.Query()
	if rawStart, rawEnd := q.Get("start"), q.Get("end"); rawStart != "" && rawEnd != "" {
		start, errStart := strconv.ParseInt(rawStart, 10, 64)
		end, errEnd := strconv.ParseInt(rawEnd, 10, 64)
		if errStart == nil && errEnd == nil && start < end {
			return time.Unix(start, 0), time.Unix(end, 0)
		}
	}

	days := 30
	if raw := q.Get("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 730 {
			days = parsed
		}
	}
	end := h.now()
	return end.AddDate(0, 0, -days), end
}

func (h *DashboardHandler) upstreamError(w http.ResponseWriter, op string, err error) {
	h.log.Warn("dashboard query failed", "op", op, "error", err)
	respond.Error(w, http.StatusBadGateway, "account data temporarily unavailable")
}

func requireAccount(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return "", false
	}
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok || identity.AccountNumber == "" {
		respond.Error(w, http.StatusUnauthorized, "no linked account for this session")
		return "", false
	}
	return identity.AccountNumber, true
}
