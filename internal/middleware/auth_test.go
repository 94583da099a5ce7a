package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mikanbako/pocketquest/internal/auth"
	"github.com/mikanbako/pocketquest/internal/model"
)

func testIssuer() *auth.TokenIssuer {
	return auth.NewTokenIssuer("middleware-test-secret", time.Hour)
}

func TestRequireAuthNoCookie(t *testing.T) {
	handler := RequireAuth(testIssuer())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	handler := RequireAuth(testIssuer())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "invalid-token"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthValidToken(t *testing.T) {
	issuer := testIssuer()
	token, err := issuer.Issue(&model.User{ID: 5, FamilyID: 2, Role: model.RoleChild})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	var gotAC auth.AuthContext
	handler := RequireAuth(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			t.Fatal("expected AuthContext in request context")
		}
		gotAC = ac
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotAC.UserID != 5 {
		t.Errorf("UserID = %d, want 5", gotAC.UserID)
	}
	if gotAC.FamilyID != 2 {
		t.Errorf("FamilyID = %d, want 2", gotAC.FamilyID)
	}
	if gotAC.Role != model.RoleChild {
		t.Errorf("Role = %q, want %q", gotAC.Role, model.RoleChild)
	}
}

func TestRequireAuthExpiredToken(t *testing.T) {
	expired := auth.NewTokenIssuer("middleware-test-secret", -time.Minute)
	token, err := expired.Issue(&model.User{ID: 5, FamilyID: 2, Role: model.RoleChild})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	handler := RequireAuth(testIssuer())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireParentAllowed(t *testing.T) {
	ctx := auth.WithAuth(context.Background(), auth.AuthContext{Role: model.RoleParent})
	req := httptest.NewRequest("GET", "/", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	handler := RequireParent(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequireParentForbidden(t *testing.T) {
	ctx := auth.WithAuth(context.Background(), auth.AuthContext{Role: model.RoleChild})
	req := httptest.NewRequest("GET", "/", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	handler := RequireParent(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}
