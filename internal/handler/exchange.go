package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mikanbako/pocketquest/internal/auth"
	"github.com/mikanbako/pocketquest/internal/exchange"
	"github.com/mikanbako/pocketquest/internal/model"
	"github.com/mikanbako/pocketquest/internal/push"
	"github.com/mikanbako/pocketquest/internal/store"
	"github.com/mikanbako/pocketquest/internal/websocket"
)

type ExchangeHandler struct {
	settingsStore *store.SettingsStore
	txStore       *store.TransactionStore
	userStore     *store.UserStore
	hub           *websocket.Hub
	notifier      *push.Notifier
	logger        *slog.Logger
}

func NewExchangeHandler(ss *store.SettingsStore, ts *store.TransactionStore, us *store.UserStore, hub *websocket.Hub, notifier *push.Notifier, logger *slog.Logger) *ExchangeHandler {
	return &ExchangeHandler{settingsStore: ss, txStore: ts, userStore: us, hub: hub, notifier: notifier, logger: logger}
}

func (h *ExchangeHandler) GetRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.settingsStore.ExchangeRate(auth.FamilyID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get exchange rate"})
		return
	}
	writeJSON(w, http.StatusOK, rate)
}

func (h *ExchangeHandler) SetRate(w http.ResponseWriter, r *http.Request) {
	var rate model.ExchangeRate
	if err := json.NewDecoder(r.Body).Decode(&rate); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	familyID := auth.FamilyID(r.Context())
	if err := h.settingsStore.SetExchangeRate(familyID, rate); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(familyID, websocket.NewMessage("exchange_rate", "updated", 0, nil))
	}

	writeJSON(w, http.StatusOK, rate)
}

// Quote computes what an exchange would pay out without performing it.
func (h *ExchangeHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Points int `json:"points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	userID := auth.UserID(r.Context())
	rate, err := h.settingsStore.ExchangeRate(auth.FamilyID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get exchange rate"})
		return
	}
	balance, err := h.txStore.Balance(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get balance"})
		return
	}

	quote, err := exchange.NewQuote(req.Points, rate, balance)
	if err != nil {
		writeExchangeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// Exchange converts points into currency. Children exchange their own
// points; a parent may pass child_id to exchange on a child's behalf.
// Validation and the ledger append happen in one storage transaction, so a
// failed exchange never moves points.
func (h *ExchangeHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Points  int    `json:"points"`
		ChildID *int64 `json:"child_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	userID := auth.UserID(r.Context())
	familyID := auth.FamilyID(r.Context())

	if req.ChildID != nil && *req.ChildID != userID {
		if !auth.IsParent(r.Context()) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "cannot exchange another user's points"})
			return
		}
		child, err := h.userStore.GetByID(*req.ChildID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		if child == nil || child.FamilyID != familyID || child.Role != model.RoleChild {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
			return
		}
		userID = child.ID
	}

	rate, err := h.settingsStore.ExchangeRate(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get exchange rate"})
		return
	}

	result, err := h.txStore.Exchange(userID, req.Points, rate)
	if err != nil {
		if errors.Is(err, exchange.ErrBelowMinimum) || errors.Is(err, exchange.ErrInsufficientBalance) {
			writeExchangeError(w, err)
			return
		}
		h.logger.Error("exchange", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to exchange points"})
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(familyID, websocket.NewMessage("exchange", "completed", result.Transaction.ID, map[string]any{"user_id": userID}))
	}
	if h.notifier != nil && userID != auth.UserID(r.Context()) {
		h.notifier.NotifyUser(r.Context(), userID, push.Payload{
			Title: "Points exchanged",
			Body:  fmt.Sprintf("%d points were exchanged for %d currency units", result.Transaction.Amount, result.CurrencyAmount),
			Tag:   fmt.Sprintf("exchange-%d", result.Transaction.ID),
		})
	}

	writeJSON(w, http.StatusCreated, result)
}

func writeExchangeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, exchange.ErrBelowMinimum):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, exchange.ErrInsufficientBalance):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
}
