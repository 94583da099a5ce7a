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
	"github.com/mikanbako/pocketquest/internal/event"
	"github.com/mikanbako/pocketquest/internal/model"
	"github.com/mikanbako/pocketquest/internal/push"
	"github.com/mikanbako/pocketquest/internal/store"
	"github.com/mikanbako/pocketquest/internal/websocket"
)

type EventHandler struct {
	eventStore *store.EventStore
	userStore  *store.UserStore
	hub        *websocket.Hub
	notifier   *push.Notifier
	logger     *slog.Logger
}

func NewEventHandler(es *store.EventStore, us *store.UserStore, hub *websocket.Hub, notifier *push.Notifier, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		eventStore: es,
		userStore:  us,
		hub:        hub,
		notifier:   notifier,
		logger:     logger,
	}
}

func (h *EventHandler) broadcast(familyID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, msg)
	}
}

type eventRequest struct {
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Category     string             `json:"category"`
	EventType    model.EventType    `json:"event_type"`
	PointsConfig model.PointsConfig `json:"points_config"`
	AssignedTo   *int64             `json:"assigned_to"`
	DueDate      *time.Time         `json:"due_date"`
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	familyID := auth.FamilyID(r.Context())
	ev := model.Event{
		FamilyID:     familyID,
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		EventType:    req.EventType,
		PointsConfig: req.PointsConfig,
		AssignedTo:   req.AssignedTo,
		CreatedBy:    auth.UserID(r.Context()),
		DueDate:      req.DueDate,
	}
	if err := event.Validate(ev); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

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

	created, err := h.eventStore.Create(ev)
	if err != nil {
		h.logger.Error("create event", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create event"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("event", "created", created.ID, nil))

	writeJSON(w, http.StatusCreated, created)
}

type eventWithStatus struct {
	model.Event
	DueStatus event.DueStatus `json:"due_status"`
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())
	events, err := h.eventStore.List(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list events"})
		return
	}
	approved, err := h.eventStore.ApprovedEventIDs(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list events"})
		return
	}

	now := time.Now()
	out := make([]eventWithStatus, 0, len(events))
	for _, ev := range events {
		out = append(out, eventWithStatus{
			Event:     ev,
			DueStatus: event.ComputeDueStatus(ev, approved[ev.ID], now),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	ev, ok := h.eventInFamily(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ev, ok := h.eventInFamily(w, r)
	if !ok {
		return
	}

	if err := h.eventStore.Delete(ev.ID); err != nil {
		if errors.Is(err, store.ErrEventReferenced) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "event has results and cannot be deleted"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete event"})
		return
	}

	h.broadcast(ev.FamilyID, websocket.NewMessage("event", "deleted", ev.ID, nil))

	w.WriteHeader(http.StatusNoContent)
}

type resultRequest struct {
	Score      *int   `json:"score"`
	Evaluation string `json:"evaluation"`
	Completed  bool   `json:"completed"`
	Comments   string `json:"comments"`
}

// SubmitResult records a child's result. The award is resolved from the
// event's reward schedule immediately, but stays PENDING until a parent
// approves it.
func (h *EventHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	ev, ok := h.eventInFamily(w, r)
	if !ok {
		return
	}

	var req resultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	childID := auth.UserID(r.Context())
	if ev.AssignedTo != nil && *ev.AssignedTo != childID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "event is assigned to another child"})
		return
	}

	outcome, err := event.Score(*ev, event.Submission{
		Score:      req.Score,
		Evaluation: req.Evaluation,
		Completed:  req.Completed,
	})
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	result := model.EventResult{
		EventID:      ev.ID,
		ChildID:      childID,
		ResultType:   resultTypeFor(ev.EventType),
		Score:        req.Score,
		Evaluation:   req.Evaluation,
		EarnedPoints: outcome.EarnedPoints,
		BonusEarned:  outcome.BonusEarned,
		Comments:     req.Comments,
	}

	created, err := h.eventStore.SubmitResult(result)
	if err != nil {
		h.logger.Error("submit event result", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to submit result"})
		return
	}

	h.broadcast(ev.FamilyID, websocket.NewMessage("event_result", "submitted", created.ID, map[string]any{"event_id": ev.ID}))
	if h.notifier != nil {
		h.notifier.NotifyParents(r.Context(), ev.FamilyID, push.Payload{
			Title: "Event result submitted",
			Body:  fmt.Sprintf("A result for %q is waiting for review", ev.Title),
			Tag:   fmt.Sprintf("event-result-%d", created.ID),
		})
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *EventHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	ev, ok := h.eventInFamily(w, r)
	if !ok {
		return
	}

	results, err := h.eventStore.ListResults(ev.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list results"})
		return
	}
	if results == nil {
		results = []model.EventResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

// ApproveResult credits a pending event result. Event awards were resolved
// at submission; rate rules do not apply here.
func (h *EventHandler) ApproveResult(w http.ResponseWriter, r *http.Request) {
	result, ev, ok := h.resultInFamily(w, r)
	if !ok {
		return
	}

	description := fmt.Sprintf("Event completed: %s", ev.Title)
	approved, earned, err := h.eventStore.ApproveResult(result.ID, description, time.Now())
	if err != nil {
		if errors.Is(err, approval.ErrInvalidTransition) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "result is not pending"})
			return
		}
		h.logger.Error("approve event result", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to approve result"})
		return
	}

	h.broadcast(ev.FamilyID, websocket.NewMessage("event_result", "approved", result.ID, map[string]any{"points": approved.EarnedPoints}))
	if h.notifier != nil {
		h.notifier.NotifyUser(r.Context(), result.ChildID, push.Payload{
			Title: "Event approved",
			Body:  fmt.Sprintf("You earned %d points for %q", approved.EarnedPoints, ev.Title),
			Tag:   fmt.Sprintf("event-result-%d", result.ID),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"result":      approved,
		"transaction": earned,
	})
}

func (h *EventHandler) RejectResult(w http.ResponseWriter, r *http.Request) {
	result, ev, ok := h.resultInFamily(w, r)
	if !ok {
		return
	}

	rejected, err := h.eventStore.RejectResult(result.ID)
	if err != nil {
		if errors.Is(err, approval.ErrInvalidTransition) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "result is not pending"})
			return
		}
		h.logger.Error("reject event result", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to reject result"})
		return
	}

	h.broadcast(ev.FamilyID, websocket.NewMessage("event_result", "rejected", result.ID, nil))
	if h.notifier != nil {
		h.notifier.NotifyUser(r.Context(), result.ChildID, push.Payload{
			Title: "Event result rejected",
			Body:  fmt.Sprintf("Your result for %q was not approved", ev.Title),
			Tag:   fmt.Sprintf("event-result-%d", result.ID),
		})
	}

	writeJSON(w, http.StatusOK, rejected)
}

func resultTypeFor(t model.EventType) model.ResultType {
	switch t {
	case model.EventScoreBased:
		return model.ResultScore
	case model.EventEvaluationBased:
		return model.ResultEvaluation
	default:
		return model.ResultCompleted
	}
}

func (h *EventHandler) eventInFamily(w http.ResponseWriter, r *http.Request) (*model.Event, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, false
	}
	ev, err := h.eventStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get event"})
		return nil, false
	}
	if ev == nil || ev.FamilyID != auth.FamilyID(r.Context()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return nil, false
	}
	return ev, true
}

func (h *EventHandler) resultInFamily(w http.ResponseWriter, r *http.Request) (*model.EventResult, *model.Event, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, nil, false
	}
	result, err := h.eventStore.GetResult(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get result"})
		return nil, nil, false
	}
	if result == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "result not found"})
		return nil, nil, false
	}
	ev, err := h.eventStore.GetByID(result.EventID)
	if err != nil || ev == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get event"})
		return nil, nil, false
	}
	if ev.FamilyID != auth.FamilyID(r.Context()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "result not found"})
		return nil, nil, false
	}
	return result, ev, true
}
