// Package ledger derives balances and history views from the append-only
// point transaction log. All functions are pure: nothing here ever mutates
// a stored balance, the balance is recomputed from the log every time.
package ledger

import (
	"iter"
	"sort"

	"github.com/mikanbako/pocketquest/internal/model"
)

// Totals breaks down a user's ledger activity. Invested points are tracked
// for reporting but do not reduce the spendable balance.
type Totals struct {
	Earned    int `json:"earned"`
	Exchanged int `json:"exchanged"`
	Invested  int `json:"invested"`
	Balance   int `json:"balance"`
}

// Balance returns earned minus exchanged points for the user. An empty or
// unrelated log yields zero.
func Balance(txs []model.PointTransaction, userID int64) int {
	return Sum(txs, userID).Balance
}

// Sum walks the log once and totals each transaction type for the user.
func Sum(txs []model.PointTransaction, userID int64) Totals {
	var t Totals
	for _, tx := range txs {
		if tx.UserID != userID {
			continue
		}
		switch tx.Type {
		case model.TransactionEarned:
			t.Earned += tx.Amount
		case model.TransactionExchanged:
			t.Exchanged += tx.Amount
		case model.TransactionInvestment:
			t.Invested += tx.Amount
		}
	}
	t.Balance = t.Earned - t.Exchanged
	return t
}

// History yields the user's transactions newest-first, optionally filtered
// by type (empty typeFilter means all types). The sequence is restartable;
// iterating it does not consume it.
func History(txs []model.PointTransaction, userID int64, typeFilter model.TransactionType) iter.Seq[model.PointTransaction] {
	ordered := make([]model.PointTransaction, 0, len(txs))
	for _, tx := range txs {
		if tx.UserID != userID {
			continue
		}
		if typeFilter != "" && tx.Type != typeFilter {
			continue
		}
		ordered = append(ordered, tx)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})

	return func(yield func(model.PointTransaction) bool) {
		for _, tx := range ordered {
			if !yield(tx) {
				return
			}
		}
	}
}
