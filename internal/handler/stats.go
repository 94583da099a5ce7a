package handler

import (
	"net/http"
	"time"

	"github.com/mikanbako/pocketquest/internal/auth"
	"github.com/mikanbako/pocketquest/internal/model"
	"github.com/mikanbako/pocketquest/internal/stats"
	"github.com/mikanbako/pocketquest/internal/store"
)

type StatsHandler struct {
	taskStore *store.TaskStore
	txStore   *store.TransactionStore
	userStore *store.UserStore
}

func NewStatsHandler(ts *store.TaskStore, txs *store.TransactionStore, us *store.UserStore) *StatsHandler {
	return &StatsHandler{taskStore: ts, txStore: txs, userStore: us}
}

// Report builds a child's progress report. ?window= selects the period
// (1month, 3months, 6months, all); the default is 1month.
func (h *StatsHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if !auth.IsParent(r.Context()) && id != auth.UserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "cannot view another user's stats"})
		return
	}

	familyID := auth.FamilyID(r.Context())
	child, err := h.userStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if child == nil || child.FamilyID != familyID || child.Role != model.RoleChild {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
		return
	}

	window := stats.Window(r.URL.Query().Get("window"))
	switch window {
	case "":
		window = stats.WindowMonth
	case stats.WindowMonth, stats.WindowThreeMonths, stats.WindowSixMonths, stats.WindowAll:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "window must be 1month, 3months, 6months or all"})
		return
	}

	tasks, err := h.taskStore.List(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load tasks"})
		return
	}
	completions, err := h.taskStore.ListCompletionsByChild(child.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load completions"})
		return
	}
	txs, err := h.txStore.ListByUser(child.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load transactions"})
		return
	}

	report := stats.Build(child.ID, time.Now(), window, tasks, completions, txs)
	writeJSON(w, http.StatusOK, report)
}
