// Package exchange converts points into currency at the configured rate.
// Exchanges are one-directional: there is no refund operation, reversal
// requires a manual EARNED transaction.
package exchange

import (
	"errors"
	"fmt"

	"github.com/mikanbako/pocketquest/internal/model"
)

var (
	// ErrBelowMinimum is returned when the requested amount is under the
	// configured minimum exchange.
	ErrBelowMinimum = errors.New("requested points below minimum exchange")

	// ErrInsufficientBalance is returned when the requested amount exceeds
	// the child's current balance.
	ErrInsufficientBalance = errors.New("requested points exceed balance")
)

// Quote is a validated exchange before it is written to the ledger.
type Quote struct {
	Points         int    `json:"points"`
	CurrencyAmount int    `json:"currency_amount"`
	Description    string `json:"description"`
}

// Result is a completed exchange.
type Result struct {
	Transaction    model.PointTransaction `json:"transaction"`
	CurrencyAmount int                    `json:"currency_amount"`
	NewBalance     int                    `json:"new_balance"`
}

// Validate checks an exchange request against the rate and the current
// balance. The balance is never modified on failure.
func Validate(requested int, rate model.ExchangeRate, balance int) error {
	if requested < rate.MinimumExchange {
		return fmt.Errorf("%w: requested %d, minimum %d", ErrBelowMinimum, requested, rate.MinimumExchange)
	}
	if requested > balance {
		return fmt.Errorf("%w: requested %d, balance %d", ErrInsufficientBalance, requested, balance)
	}
	return nil
}

// NewQuote validates the request and computes the currency amount,
// truncating partial units.
func NewQuote(requested int, rate model.ExchangeRate, balance int) (Quote, error) {
	if err := Validate(requested, rate, balance); err != nil {
		return Quote{}, err
	}
	currency := requested / rate.PointsPerUnit
	return Quote{
		Points:         requested,
		CurrencyAmount: currency,
		Description:    fmt.Sprintf("Point exchange: %dpt -> ¥%d", requested, currency),
	}, nil
}
