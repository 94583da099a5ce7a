package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mikanbako/pocketquest/internal/auth"
	"github.com/mikanbako/pocketquest/internal/model"
	"github.com/mikanbako/pocketquest/internal/store"
	"github.com/mikanbako/pocketquest/internal/websocket"
)

type FamilyHandler struct {
	userStore *store.UserStore
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewFamilyHandler(us *store.UserStore, hub *websocket.Hub, logger *slog.Logger) *FamilyHandler {
	return &FamilyHandler{userStore: us, hub: hub, logger: logger}
}

func (h *FamilyHandler) broadcast(familyID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, msg)
	}
}

func (h *FamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	family, err := h.userStore.GetFamily(auth.FamilyID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if family == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "family not found"})
		return
	}
	writeJSON(w, http.StatusOK, family)
}

// Members returns the family's parents and children.
func (h *FamilyHandler) Members(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	parents, err := h.userStore.ListParents(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list members"})
		return
	}
	children, err := h.userStore.ListChildren(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list members"})
		return
	}
	if parents == nil {
		parents = []model.User{}
	}
	if children == nil {
		children = []model.User{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"parents":  parents,
		"children": children,
	})
}

type addChildRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Age       *int   `json:"age"`
	BirthDate string `json:"birth_date"` // YYYY-MM-DD
}

// AddChild creates a child account in the caller's family. Either an age
// or a birth date must be given so age-based rules can apply.
func (h *FamilyHandler) AddChild(w http.ResponseWriter, r *http.Request) {
	var req addChildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Name == "" || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and email are required"})
		return
	}
	if len(req.Password) < 8 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password must be at least 8 characters"})
		return
	}

	var birthDate *time.Time
	if req.BirthDate != "" {
		parsed, err := time.Parse("2006-01-02", req.BirthDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "birth_date must be YYYY-MM-DD"})
			return
		}
		birthDate = &parsed
	}
	if req.Age == nil && birthDate == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "age or birth_date is required"})
		return
	}
	if req.Age != nil && *req.Age < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "age must be >= 0"})
		return
	}

	existing, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("add child lookup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if existing != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	familyID := auth.FamilyID(r.Context())
	child, err := h.userStore.CreateChild(familyID, req.Name, req.Email, string(hash), req.Age, birthDate)
	if err != nil {
		h.logger.Error("create child", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create child"})
		return
	}

	h.broadcast(familyID, websocket.NewMessage("child", "created", child.ID, nil))

	writeJSON(w, http.StatusCreated, child)
}
