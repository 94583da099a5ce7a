package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mikanbako/pocketquest/internal/auth"
	"github.com/mikanbako/pocketquest/internal/database"
	"github.com/mikanbako/pocketquest/internal/model"
	"github.com/mikanbako/pocketquest/internal/store"
)

func setupExchange(t *testing.T) (*ExchangeHandler, *store.TransactionStore, *model.User, *model.User) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	us := store.NewUserStore(db)
	family, parent, err := us.CreateFamily("Tanaka", "Yuko", "yuko@example.com", "hash")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	age := 8
	child, err := us.CreateChild(family.ID, "Kenta", "kenta@example.com", "hash", &age, nil)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}

	ss := store.NewSettingsStore(db)
	if err := ss.SetExchangeRate(family.ID, model.ExchangeRate{PointsPerUnit: 10, MinimumExchange: 50}); err != nil {
		t.Fatalf("set exchange rate: %v", err)
	}

	ts := store.NewTransactionStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewExchangeHandler(ss, ts, us, nil, nil, logger)
	return h, ts, parent, child
}

func exchangeRequest(user *model.User, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/exchange", bytes.NewBufferString(body))
	ctx := auth.WithAuth(r.Context(), auth.AuthContext{
		UserID:   user.ID,
		FamilyID: user.FamilyID,
		Role:     user.Role,
	})
	return r.WithContext(ctx)
}

func TestExchangeOwnPoints(t *testing.T) {
	h, ts, _, child := setupExchange(t)
	if _, err := ts.Append(child.ID, model.TransactionEarned, 100, "seed"); err != nil {
		t.Fatalf("append: %v", err)
	}

	w := httptest.NewRecorder()
	h.Exchange(w, exchangeRequest(child, `{"points": 60}`))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	balance, err := ts.Balance(child.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 40 {
		t.Errorf("balance = %d, want 40", balance)
	}
}

func TestExchangeOnBehalfOfChild(t *testing.T) {
	h, ts, parent, child := setupExchange(t)
	if _, err := ts.Append(child.ID, model.TransactionEarned, 100, "seed"); err != nil {
		t.Fatalf("append: %v", err)
	}

	w := httptest.NewRecorder()
	body := fmt.Sprintf(`{"points": 60, "child_id": %d}`, child.ID)
	h.Exchange(w, exchangeRequest(parent, body))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Transaction model.PointTransaction `json:"transaction"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Transaction.UserID != child.ID {
		t.Errorf("transaction user = %d, want child %d", resp.Transaction.UserID, child.ID)
	}

	childBalance, _ := ts.Balance(child.ID)
	if childBalance != 40 {
		t.Errorf("child balance = %d, want 40", childBalance)
	}
	parentBalance, _ := ts.Balance(parent.ID)
	if parentBalance != 0 {
		t.Errorf("parent balance = %d, want 0 (untouched)", parentBalance)
	}
}

func TestExchangeOnBehalfRequiresParent(t *testing.T) {
	h, ts, parent, child := setupExchange(t)
	if _, err := ts.Append(parent.ID, model.TransactionEarned, 100, "seed"); err != nil {
		t.Fatalf("append: %v", err)
	}

	w := httptest.NewRecorder()
	body := fmt.Sprintf(`{"points": 60, "child_id": %d}`, parent.ID)
	h.Exchange(w, exchangeRequest(child, body))

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
	balance, _ := ts.Balance(parent.ID)
	if balance != 100 {
		t.Errorf("parent balance = %d, want 100 (untouched)", balance)
	}
}

func TestExchangeOnBehalfOutsideFamily(t *testing.T) {
	h, _, parent, _ := setupExchange(t)

	w := httptest.NewRecorder()
	h.Exchange(w, exchangeRequest(parent, `{"points": 60, "child_id": 9999}`))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestExchangeOnBehalfBelowMinimum(t *testing.T) {
	h, ts, parent, child := setupExchange(t)
	if _, err := ts.Append(child.ID, model.TransactionEarned, 100, "seed"); err != nil {
		t.Fatalf("append: %v", err)
	}

	w := httptest.NewRecorder()
	body := fmt.Sprintf(`{"points": 30, "child_id": %d}`, child.ID)
	h.Exchange(w, exchangeRequest(parent, body))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	balance, _ := ts.Balance(child.ID)
	if balance != 100 {
		t.Errorf("child balance = %d, want 100 (untouched)", balance)
	}
}
