package handler

import (
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/mikanbako/pocketquest/internal/auth"
	"github.com/mikanbako/pocketquest/internal/ledger"
	"github.com/mikanbako/pocketquest/internal/model"
	"github.com/mikanbako/pocketquest/internal/store"
)

const defaultHistoryLimit = 50

type LedgerHandler struct {
	txStore   *store.TransactionStore
	userStore *store.UserStore
}

func NewLedgerHandler(ts *store.TransactionStore, us *store.UserStore) *LedgerHandler {
	return &LedgerHandler{txStore: ts, userStore: us}
}

type historyEntry struct {
	model.PointTransaction
	When string `json:"when"`
}

// History returns a user's transactions, newest first. ?type= filters by
// transaction type, ?limit= caps the page size.
func (h *LedgerHandler) History(w http.ResponseWriter, r *http.Request) {
	user, ok := h.visibleUser(w, r)
	if !ok {
		return
	}

	typeFilter := model.TransactionType(r.URL.Query().Get("type"))
	switch typeFilter {
	case "", model.TransactionEarned, model.TransactionExchanged, model.TransactionInvestment:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "type must be EARNED, EXCHANGED or INVESTMENT"})
		return
	}

	limit := defaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	txs, err := h.txStore.ListByUser(user.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list transactions"})
		return
	}

	entries := make([]historyEntry, 0, limit)
	for tx := range ledger.History(txs, user.ID, typeFilter) {
		entries = append(entries, historyEntry{
			PointTransaction: tx,
			When:             humanize.Time(tx.CreatedAt),
		})
		if len(entries) == limit {
			break
		}
	}

	writeJSON(w, http.StatusOK, entries)
}

// Balance returns a user's derived point totals.
func (h *LedgerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	user, ok := h.visibleUser(w, r)
	if !ok {
		return
	}

	txs, err := h.txStore.ListByUser(user.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load transactions"})
		return
	}

	totals := ledger.Sum(txs, user.ID)
	writeJSON(w, http.StatusOK, model.PointBalance{
		UserID:    user.ID,
		UserName:  user.Name,
		Earned:    totals.Earned,
		Exchanged: totals.Exchanged,
		Invested:  totals.Invested,
		Balance:   totals.Balance,
	})
}

// Leaderboard ranks the family's children by balance.
func (h *LedgerHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	balances, err := h.txStore.Balances(auth.FamilyID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get leaderboard"})
		return
	}
	if balances == nil {
		balances = []model.PointBalance{}
	}
	writeJSON(w, http.StatusOK, balances)
}

// visibleUser resolves the {id} path param to a user the caller may view:
// parents see anyone in their family, children only themselves.
func (h *LedgerHandler) visibleUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, false
	}

	if !auth.IsParent(r.Context()) && id != auth.UserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "cannot view another user's points"})
		return nil, false
	}

	user, err := h.userStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return nil, false
	}
	if user == nil || user.FamilyID != auth.FamilyID(r.Context()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return nil, false
	}
	return user, true
}
