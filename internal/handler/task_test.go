package handler

import (
	"bytes"
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

func setupTask(t *testing.T) (*TaskHandler, *store.TaskStore, *model.User, *model.User) {
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

	ts := store.NewTaskStore(db)
	rs := store.NewRateRuleStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewTaskHandler(ts, us, rs, nil, nil, logger)
	return h, ts, parent, child
}

func submitRequestFor(user *model.User, taskID int64) *http.Request {
	r := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/tasks/%d/submit", taskID),
		bytes.NewBufferString(`{"comments": ""}`))
	r.SetPathValue("id", fmt.Sprintf("%d", taskID))
	ctx := auth.WithAuth(r.Context(), auth.AuthContext{
		UserID:   user.ID,
		FamilyID: user.FamilyID,
		Role:     user.Role,
	})
	return r.WithContext(ctx)
}

func TestSubmitByChild(t *testing.T) {
	h, ts, parent, child := setupTask(t)
	task, err := ts.Create(parent.FamilyID, "Wash dishes", "", 10, "cleaning", model.DifficultyMedium, nil, parent.ID)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	w := httptest.NewRecorder()
	h.Submit(w, submitRequestFor(child, task.ID))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
}

func TestSubmitByParentForbidden(t *testing.T) {
	h, ts, parent, _ := setupTask(t)
	task, err := ts.Create(parent.FamilyID, "Wash dishes", "", 10, "cleaning", model.DifficultyMedium, nil, parent.ID)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	w := httptest.NewRecorder()
	h.Submit(w, submitRequestFor(parent, task.ID))

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}

	pending, err := ts.ListCompletions(parent.FamilyID, model.CompletionPending)
	if err != nil {
		t.Fatalf("list completions: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("completions = %d, want 0", len(pending))
	}
}
