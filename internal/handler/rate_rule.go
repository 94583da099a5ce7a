package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mikanbako/pocketquest/internal/auth"
	"github.com/mikanbako/pocketquest/internal/model"
	"github.com/mikanbako/pocketquest/internal/rate"
	"github.com/mikanbako/pocketquest/internal/store"
	"github.com/mikanbako/pocketquest/internal/websocket"
)

type RateRuleHandler struct {
	ruleStore *store.RateRuleStore
	userStore *store.UserStore
	taskStore *store.TaskStore
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewRateRuleHandler(rs *store.RateRuleStore, us *store.UserStore, ts *store.TaskStore, hub *websocket.Hub, logger *slog.Logger) *RateRuleHandler {
	return &RateRuleHandler{
		ruleStore: rs,
		userStore: us,
		taskStore: ts,
		hub:       hub,
		logger:    logger,
	}
}

func (h *RateRuleHandler) broadcast(familyID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, msg)
	}
}

type ruleRequest struct {
	Name        string               `json:"name"`
	Type        model.RuleType       `json:"type"`
	Priority    int                  `json:"priority"`
	Conditions  model.RuleConditions `json:"conditions"`
	Multiplier  float64              `json:"multiplier"`
	BonusPoints int                  `json:"bonus_points"`
	IsActive    bool                 `json:"is_active"`
	Description string               `json:"description"`
}

func (h *RateRuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	rule := model.RateRule{
		FamilyID:    auth.FamilyID(r.Context()),
		Name:        strings.TrimSpace(req.Name),
		Type:        req.Type,
		Priority:    req.Priority,
		Conditions:  req.Conditions,
		Multiplier:  req.Multiplier,
		BonusPoints: req.BonusPoints,
		IsActive:    req.IsActive,
		Description: req.Description,
	}
	if err := rate.ValidateRule(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	created, err := h.ruleStore.Create(rule)
	if err != nil {
		h.logger.Error("create rate rule", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create rule"})
		return
	}

	h.broadcast(rule.FamilyID, websocket.NewMessage("rate_rule", "created", created.ID, nil))

	writeJSON(w, http.StatusCreated, created)
}

// List returns the family's rules in evaluation order. ?active=true narrows
// to active rules only.
func (h *RateRuleHandler) List(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	var rules []model.RateRule
	var err error
	if r.URL.Query().Get("active") == "true" {
		rules, err = h.ruleStore.ListActive(familyID)
	} else {
		rules, err = h.ruleStore.List(familyID)
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list rules"})
		return
	}
	if rules == nil {
		rules = []model.RateRule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

func (h *RateRuleHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	rule, ok := h.ruleInFamily(w, r)
	if !ok {
		return
	}

	toggled, err := h.ruleStore.Toggle(rule.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to toggle rule"})
		return
	}

	h.broadcast(rule.FamilyID, websocket.NewMessage("rate_rule", "toggled", rule.ID, nil))

	writeJSON(w, http.StatusOK, toggled)
}

func (h *RateRuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rule, ok := h.ruleInFamily(w, r)
	if !ok {
		return
	}

	if err := h.ruleStore.Delete(rule.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete rule"})
		return
	}

	h.broadcast(rule.FamilyID, websocket.NewMessage("rate_rule", "deleted", rule.ID, nil))

	w.WriteHeader(http.StatusNoContent)
}

type previewRequest struct {
	ChildID    int64  `json:"child_id"`
	Category   string `json:"category"`
	BasePoints int    `json:"base_points"`
}

// Preview runs the active rules for a child without writing anything,
// so parents can see what a task would actually pay out.
func (h *RateRuleHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.BasePoints <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "base_points must be > 0"})
		return
	}

	familyID := auth.FamilyID(r.Context())
	child, err := h.userStore.GetByID(req.ChildID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if child == nil || child.FamilyID != familyID || child.Role != model.RoleChild {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
		return
	}

	rules, err := h.ruleStore.ListActive(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load rules"})
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
		TaskCategory: req.Category,
		BasePoints:   req.BasePoints,
		Now:          now,
		Completions:  counts,
	}, rules)

	writeJSON(w, http.StatusOK, result)
}

func (h *RateRuleHandler) ruleInFamily(w http.ResponseWriter, r *http.Request) (*model.RateRule, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, false
	}
	rule, err := h.ruleStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get rule"})
		return nil, false
	}
	if rule == nil || rule.FamilyID != auth.FamilyID(r.Context()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "rule not found"})
		return nil, false
	}
	return rule, true
}
