package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mikanbako/pocketquest/internal/auth"
	"github.com/mikanbako/pocketquest/internal/middleware"
	"github.com/mikanbako/pocketquest/internal/model"
	"github.com/mikanbako/pocketquest/internal/store"
)

type AuthHandler struct {
	userStore *store.UserStore
	issuer    *auth.TokenIssuer
	logger    *slog.Logger
}

func NewAuthHandler(us *store.UserStore, issuer *auth.TokenIssuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{userStore: us, issuer: issuer, logger: logger}
}

type registerRequest struct {
	FamilyName string `json:"family_name"`
	ParentName string `json:"parent_name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

// Register creates a family and its first parent account, then signs the
// new parent in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.FamilyName = strings.TrimSpace(req.FamilyName)
	req.ParentName = strings.TrimSpace(req.ParentName)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.FamilyName == "" || req.ParentName == "" || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "family_name, parent_name and email are required"})
		return
	}
	if len(req.Password) < 8 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password must be at least 8 characters"})
		return
	}

	existing, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("register lookup", "error", err)
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

	family, parent, err := h.userStore.CreateFamily(req.FamilyName, req.ParentName, req.Email, string(hash))
	if err != nil {
		h.logger.Error("create family", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create family"})
		return
	}

	if err := h.setSessionCookie(w, r, parent); err != nil {
		h.logger.Error("issue token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"family": family,
		"user":   parent,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}

	hash, err := h.userStore.PasswordHash(req.Email)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	// Run the comparison even for unknown emails so timing does not leak
	// account existence.
	if hash == "" {
		hash = "$2a$10$invalidinvalidinvalidinvalidinvalidinvalidinvalidinval"
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid email or password"})
		return
	}

	user, err := h.userStore.GetByEmail(req.Email)
	if err != nil || user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid email or password"})
		return
	}

	if err := h.setSessionCookie(w, r, user); err != nil {
		h.logger.Error("issue token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userStore.GetByID(auth.UserID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if user == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, r *http.Request, user *model.User) error {
	token, err := h.issuer.Issue(user)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.issuer.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	return nil
}
