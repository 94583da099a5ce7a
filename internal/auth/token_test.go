package auth

import (
	"testing"
	"time"

	"github.com/mikanbako/pocketquest/internal/model"
)

func TestIssueAndParse(t *testing.T) {
	ti := NewTokenIssuer("test-secret", time.Hour)
	user := &model.User{ID: 7, FamilyID: 3, Role: model.RoleParent}

	token, err := ti.Issue(user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	ac, err := ti.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ac.UserID != 7 {
		t.Errorf("UserID = %d, want 7", ac.UserID)
	}
	if ac.FamilyID != 3 {
		t.Errorf("FamilyID = %d, want 3", ac.FamilyID)
	}
	if ac.Role != model.RoleParent {
		t.Errorf("Role = %q, want %q", ac.Role, model.RoleParent)
	}
}

func TestParseExpired(t *testing.T) {
	ti := NewTokenIssuer("test-secret", -time.Minute)
	token, err := ti.Issue(&model.User{ID: 1, FamilyID: 1, Role: model.RoleChild})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := ti.Parse(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestParseWrongSecret(t *testing.T) {
	ti := NewTokenIssuer("secret-a", time.Hour)
	token, err := ti.Issue(&model.User{ID: 1, FamilyID: 1, Role: model.RoleChild})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	other := NewTokenIssuer("secret-b", time.Hour)
	if _, err := other.Parse(token); err == nil {
		t.Error("expected error for token signed with different secret")
	}
}

func TestParseGarbage(t *testing.T) {
	ti := NewTokenIssuer("test-secret", time.Hour)
	if _, err := ti.Parse("not-a-token"); err == nil {
		t.Error("expected error for malformed token")
	}
}
