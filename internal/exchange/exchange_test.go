package exchange

import (
	"errors"
	"testing"

	"github.com/mikanbako/pocketquest/internal/model"
)

var rate = model.ExchangeRate{PointsPerUnit: 10, MinimumExchange: 100}

func TestQuoteAtMinimum(t *testing.T) {
	q, err := NewQuote(100, rate, 500)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.CurrencyAmount != 10 {
		t.Errorf("currency = %d, want 10", q.CurrencyAmount)
	}
	if q.Points != 100 {
		t.Errorf("points = %d, want 100", q.Points)
	}
}

func TestQuoteTruncatesPartialUnits(t *testing.T) {
	q, err := NewQuote(105, rate, 500)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.CurrencyAmount != 10 {
		t.Errorf("currency = %d, want floor(105/10) = 10", q.CurrencyAmount)
	}
}

func TestQuoteBelowMinimum(t *testing.T) {
	_, err := NewQuote(50, rate, 500)
	if !errors.Is(err, ErrBelowMinimum) {
		t.Errorf("error = %v, want ErrBelowMinimum", err)
	}
}

func TestQuoteInsufficientBalance(t *testing.T) {
	_, err := NewQuote(150, rate, 100)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("error = %v, want ErrInsufficientBalance", err)
	}
}

func TestQuoteExactBalance(t *testing.T) {
	q, err := NewQuote(100, rate, 100)
	if err != nil {
		t.Fatalf("quote at exact balance: %v", err)
	}
	if q.CurrencyAmount != 10 {
		t.Errorf("currency = %d, want 10", q.CurrencyAmount)
	}
}

func TestMinimumCheckedBeforeBalance(t *testing.T) {
	// Both violated: the minimum failure is the one reported.
	_, err := NewQuote(50, rate, 10)
	if !errors.Is(err, ErrBelowMinimum) {
		t.Errorf("error = %v, want ErrBelowMinimum", err)
	}
}
