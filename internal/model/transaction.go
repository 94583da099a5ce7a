package model

import "time"

type TransactionType string

const (
	TransactionEarned     TransactionType = "EARNED"
	TransactionExchanged  TransactionType = "EXCHANGED"
	TransactionInvestment TransactionType = "INVESTMENT"
)

// PointTransaction is a single entry in the append-only point ledger.
// Entries are never updated or deleted; balances are always re-derived
// from the log.
type PointTransaction struct {
	ID          int64           `json:"id"`
	Reference   string          `json:"reference"`
	UserID      int64           `json:"user_id"`
	Type        TransactionType `json:"type"`
	Amount      int             `json:"amount"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

type PointBalance struct {
	UserID    int64  `json:"user_id"`
	UserName  string `json:"user_name"`
	Earned    int    `json:"earned"`
	Exchanged int    `json:"exchanged"`
	Invested  int    `json:"invested"`
	Balance   int    `json:"balance"`
}
