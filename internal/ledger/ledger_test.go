package ledger

import (
	"testing"
	"time"

	"github.com/mikanbako/pocketquest/internal/model"
)

func tx(userID int64, typ model.TransactionType, amount int, at time.Time) model.PointTransaction {
	return model.PointTransaction{UserID: userID, Type: typ, Amount: amount, CreatedAt: at}
}

func TestBalanceEmpty(t *testing.T) {
	if b := Balance(nil, 1); b != 0 {
		t.Errorf("balance = %d, want 0", b)
	}
}

func TestBalanceEarnedMinusExchanged(t *testing.T) {
	now := time.Now()
	txs := []model.PointTransaction{
		tx(1, model.TransactionEarned, 100, now),
		tx(1, model.TransactionEarned, 50, now),
		tx(1, model.TransactionExchanged, 30, now),
		tx(2, model.TransactionEarned, 999, now),
	}
	if b := Balance(txs, 1); b != 120 {
		t.Errorf("balance = %d, want 120", b)
	}
}

func TestBalanceOrderIndependent(t *testing.T) {
	now := time.Now()
	txs := []model.PointTransaction{
		tx(1, model.TransactionExchanged, 30, now),
		tx(1, model.TransactionEarned, 50, now.Add(time.Hour)),
		tx(1, model.TransactionEarned, 100, now.Add(-time.Hour)),
	}
	forward := Balance(txs, 1)

	reversed := []model.PointTransaction{txs[2], txs[1], txs[0]}
	if b := Balance(reversed, 1); b != forward {
		t.Errorf("balance order-dependent: %d vs %d", b, forward)
	}
	if forward != 120 {
		t.Errorf("balance = %d, want 120", forward)
	}
}

func TestInvestmentNotNetted(t *testing.T) {
	now := time.Now()
	txs := []model.PointTransaction{
		tx(1, model.TransactionEarned, 100, now),
		tx(1, model.TransactionInvestment, 40, now),
	}

	totals := Sum(txs, 1)
	if totals.Balance != 100 {
		t.Errorf("balance = %d, want 100 (investment must not reduce balance)", totals.Balance)
	}
	if totals.Invested != 40 {
		t.Errorf("invested = %d, want 40", totals.Invested)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	txs := []model.PointTransaction{
		tx(1, model.TransactionEarned, 10, base),
		tx(1, model.TransactionEarned, 20, base.Add(2*time.Hour)),
		tx(1, model.TransactionExchanged, 5, base.Add(time.Hour)),
	}

	var amounts []int
	for e := range History(txs, 1, "") {
		amounts = append(amounts, e.Amount)
	}
	want := []int{20, 5, 10}
	if len(amounts) != len(want) {
		t.Fatalf("got %d entries, want %d", len(amounts), len(want))
	}
	for i := range want {
		if amounts[i] != want[i] {
			t.Errorf("amounts[%d] = %d, want %d", i, amounts[i], want[i])
		}
	}
}

func TestHistoryTypeFilter(t *testing.T) {
	now := time.Now()
	txs := []model.PointTransaction{
		tx(1, model.TransactionEarned, 10, now),
		tx(1, model.TransactionExchanged, 5, now),
		tx(1, model.TransactionEarned, 20, now),
	}

	count := 0
	for e := range History(txs, 1, model.TransactionEarned) {
		if e.Type != model.TransactionEarned {
			t.Errorf("unexpected type %q in filtered history", e.Type)
		}
		count++
	}
	if count != 2 {
		t.Errorf("got %d earned entries, want 2", count)
	}
}

func TestHistoryRestartable(t *testing.T) {
	now := time.Now()
	txs := []model.PointTransaction{
		tx(1, model.TransactionEarned, 10, now),
		tx(1, model.TransactionEarned, 20, now),
	}

	seq := History(txs, 1, "")
	first, second := 0, 0
	for range seq {
		first++
	}
	for range seq {
		second++
	}
	if first != 2 || second != 2 {
		t.Errorf("iterations yielded %d then %d entries, want 2 and 2", first, second)
	}
}

func TestHistoryExcludesOtherUsers(t *testing.T) {
	now := time.Now()
	txs := []model.PointTransaction{
		tx(1, model.TransactionEarned, 10, now),
		tx(2, model.TransactionEarned, 20, now),
	}
	for e := range History(txs, 1, "") {
		if e.UserID != 1 {
			t.Errorf("history leaked user %d", e.UserID)
		}
	}
}
