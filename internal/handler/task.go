package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mikanbako/pocketquest/internal/approval"
	"github.com/mikanbako/pocketquest/internal/auth"
	"github.com/mikanbako/pocketquest/internal/model"
	"github.com/mikanbako/pocketquest/internal/push"
	"github.com/mikanbako/pocketquest/internal/rate"
	"github.com/mikanbako/pocketquest/internal/store"
	"github.com/mikanbako/pocketquest/internal/websocket"
)

type TaskHandler struct {
	taskStore *store.TaskStore
	userStore *store.UserStore
	ruleStore *store.RateRuleStore
	hub       *websocket.Hub
	notifier  *push.Notifier
	logger    *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, us *store.UserStore, rs *store.RateRuleStore, hub *websocket.Hub, notifier *push.Notifier, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		taskStore: ts,
		userStore: us,
		ruleStore: rs,
		hub:       hub,
		notifier:  notifier,
		logger:    logger,
	}
}

func (h *TaskHandler) broadcast(familyID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, msg)
	}
}

type taskRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Points      int              `json:"points"`
	Category    string           `json:"category"`
	Difficulty  model.Difficulty `json:"difficulty"`
	AssignedTo  *int64           `json:"assigned_to"`
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if req.Points <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "points must be > 0"})
		return
	}
	switch req.Difficulty {
	case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
	case "":
		req.Difficulty = model.DifficultyMedium
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "difficulty must be EASY, MEDIUM or HARD"})
		return
	}

	familyID := auth.FamilyID(r.Context())
	if req.AssignedTo != nil {
		child, err := h.userStore.GetByID(*req.AssignedTo)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		if child == nil || child.FamilyID != familyID || child.Role != model.RoleChild {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "assigned_to must be a child in your family"})
			return
		}
	}

	task, err := h.taskStore.Create(familyID, req.Title, req.Description, req.Points, req.Category, req.Difficulty, req.AssignedTo, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("create task", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create task"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("task", "created", task.ID, nil))

	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskStore.List(auth.FamilyID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list tasks"})
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, ok := h.taskInFamily(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	task, ok := h.taskInFamily(w, r)
	if !ok {
		return
	}

	if err := h.taskStore.Delete(task.ID); err != nil {
		if errors.Is(err, store.ErrTaskReferenced) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "task has completions and cannot be deleted"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete task"})
		return
	}

	h.broadcast(task.FamilyID, websocket.NewMessage("task", "deleted", task.ID, nil))

	w.WriteHeader(http.StatusNoContent)
}

type submitRequest struct {
	Comments string `json:"comments"`
}

// Submit records a child's claim that a task is done. The completion stays
// PENDING until a parent reviews it; no points move yet.
func (h *TaskHandler) Submit(w http.ResponseWriter, r *http.Request) {
	task, ok := h.taskInFamily(w, r)
	if !ok {
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if auth.IsParent(r.Context()) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only children submit tasks"})
		return
	}

	childID := auth.UserID(r.Context())
	if err := approval.CanSubmit(*task, childID); err != nil {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "task is assigned to another child"})
		return
	}

	completion, err := h.taskStore.Submit(task.ID, childID, req.Comments)
	if err != nil {
		h.logger.Error("submit completion", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to submit completion"})
		return
	}

	h.broadcast(task.FamilyID, websocket.NewMessage("completion", "submitted", completion.ID, map[string]any{"task_id": task.ID}))
	if h.notifier != nil {
		h.notifier.NotifyParents(r.Context(), task.FamilyID, push.Payload{
			Title: "Task submitted",
			Body:  fmt.Sprintf("%q is waiting for review", task.Title),
			Tag:   fmt.Sprintf("completion-%d", completion.ID),
		})
	}

	writeJSON(w, http.StatusCreated, completion)
}

// ListCompletions returns the family's completions, filtered by status.
// Defaults to PENDING, the review queue.
func (h *TaskHandler) ListCompletions(w http.ResponseWriter, r *http.Request) {
	status := model.CompletionStatus(r.URL.Query().Get("status"))
	switch status {
	case "":
		status = model.CompletionPending
	case model.CompletionPending, model.CompletionApproved, model.CompletionRejected:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be PENDING, APPROVED or REJECTED"})
		return
	}

	completions, err := h.taskStore.ListCompletions(auth.FamilyID(r.Context()), status)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list completions"})
		return
	}
	if completions == nil {
		completions = []model.TaskCompletion{}
	}
	writeJSON(w, http.StatusOK, completions)
}

// Approve credits a pending completion. The award is the task's base points
// run through the family's active rate rules for this child, and the EARNED
// transaction is appended atomically with the status flip.
func (h *TaskHandler) Approve(w http.ResponseWriter, r *http.Request) {
	completion, task, ok := h.completionInFamily(w, r)
	if !ok {
		return
	}

	child, err := h.userStore.GetByID(completion.ChildID)
	if err != nil || child == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load child"})
		return
	}

	rules, err := h.ruleStore.ListActive(task.FamilyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load rate rules"})
		return
	}
	counts, err := h.taskStore.CompletionCounts(child.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load completion history"})
		return
	}

	now := time.Now()
	result := rate.Evaluate(rate.Input{
		ChildAge:     rate.ChildAge(child.BirthDate, child.Age, now),
		TaskCategory: task.Category,
		BasePoints:   task.Points,
		Now:          now,
		Completions:  counts,
	}, rules)

	description := fmt.Sprintf("Task completed: %s", task.Title)
	approved, earned, err := h.taskStore.Approve(completion.ID, result.Points, description, now)
	if err != nil {
		if errors.Is(err, approval.ErrInvalidTransition) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "completion is not pending"})
			return
		}
		h.logger.Error("approve completion", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to approve completion"})
		return
	}

	h.broadcast(task.FamilyID, websocket.NewMessage("completion", "approved", completion.ID, map[string]any{"points": result.Points}))
	if h.notifier != nil {
		h.notifier.NotifyUser(r.Context(), child.ID, push.Payload{
			Title: "Task approved",
			Body:  fmt.Sprintf("You earned %d points for %q", result.Points, task.Title),
			Tag:   fmt.Sprintf("completion-%d", completion.ID),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"completion":    approved,
		"transaction":   earned,
		"applied_rules": result.Applied,
	})
}

// Reject marks a pending completion REJECTED. Nothing is written to the
// ledger and the child may resubmit.
func (h *TaskHandler) Reject(w http.ResponseWriter, r *http.Request) {
	completion, task, ok := h.completionInFamily(w, r)
	if !ok {
		return
	}

	rejected, err := h.taskStore.Reject(completion.ID)
	if err != nil {
		if errors.Is(err, approval.ErrInvalidTransition) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "completion is not pending"})
			return
		}
		h.logger.Error("reject completion", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to reject completion"})
		return
	}

	h.broadcast(task.FamilyID, websocket.NewMessage("completion", "rejected", completion.ID, nil))
	if h.notifier != nil {
		h.notifier.NotifyUser(r.Context(), completion.ChildID, push.Payload{
			Title: "Task rejected",
			Body:  fmt.Sprintf("%q was not approved; you can try again", task.Title),
			Tag:   fmt.Sprintf("completion-%d", completion.ID),
		})
	}

	writeJSON(w, http.StatusOK, rejected)
}

func (h *TaskHandler) taskInFamily(w http.ResponseWriter, r *http.Request) (*model.Task, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, false
	}
	task, err := h.taskStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return nil, false
	}
	if task == nil || task.FamilyID != auth.FamilyID(r.Context()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return nil, false
	}
	return task, true
}

func (h *TaskHandler) completionInFamily(w http.ResponseWriter, r *http.Request) (*model.TaskCompletion, *model.Task, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, nil, false
	}
	completion, err := h.taskStore.GetCompletion(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get completion"})
		return nil, nil, false
	}
	if completion == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "completion not found"})
		return nil, nil, false
	}
	task, err := h.taskStore.GetByID(completion.TaskID)
	if err != nil || task == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return nil, nil, false
	}
	if task.FamilyID != auth.FamilyID(r.Context()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "completion not found"})
		return nil, nil, false
	}
	return completion, task, true
}
