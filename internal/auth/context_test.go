package auth

import (
	"context"
	"testing"

	"github.com/mbstudio/backstage/internal/model"
)

func TestWithAuthAndFromContext(t *testing.T) {
	ac := AuthContext{
		UserID:   "u1",
		Email:    "lena@example.com",
		RoleID:   "role-manager",
		RoleName: "manager",
	}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got.UserID != "u1" {
		t.Errorf("UserID = %q, want %q", got.UserID, "u1")
	}
	if got.Email != "lena@example.com" {
		t.Errorf("Email = %q, want %q", got.Email, "lena@example.com")
	}
	if got.RoleName != "manager" {
		t.Errorf("RoleName = %q, want %q", got.RoleName, "manager")
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing AuthContext")
	}
}

func TestUserID(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{UserID: "u7"})
	if UserID(ctx) != "u7" {
		t.Errorf("UserID = %q, want %q", UserID(ctx), "u7")
	}
}

func TestUserIDMissing(t *testing.T) {
	if UserID(context.Background()) != "" {
		t.Error("expected empty string for missing context")
	}
}

func TestIsAdmin(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{RoleName: "admin"})
	if !IsAdmin(ctx) {
		t.Error("expected IsAdmin = true for admin role")
	}
}

func TestIsAdminFalse(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{RoleName: "viewer"})
	if IsAdmin(ctx) {
		t.Error("expected IsAdmin = false for viewer role")
	}
}

func TestCanAdminBypassesMatrix(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{RoleName: "admin"})
	if !Can(ctx, "jobs", ActionDelete) {
		t.Error("expected admin to pass every permission check")
	}
}

func TestCanChecksMatrix(t *testing.T) {
	perms := map[string]model.Permission{
		"jobs": {Section: "jobs", CanRead: true, CanUpdate: true},
	}
	ctx := WithAuth(context.Background(), AuthContext{RoleName: "manager", Perms: perms})

	if !Can(ctx, "jobs", ActionRead) {
		t.Error("expected read on jobs to be allowed")
	}
	if !Can(ctx, "jobs", ActionUpdate) {
		t.Error("expected update on jobs to be allowed")
	}
	if Can(ctx, "jobs", ActionDelete) {
		t.Error("expected delete on jobs to be denied")
	}
	if Can(ctx, "users", ActionRead) {
		t.Error("expected unknown section to be denied")
	}
	if Can(ctx, "jobs", "grant") {
		t.Error("expected unknown action to be denied")
	}
}

func TestCanMissingContext(t *testing.T) {
	if Can(context.Background(), "jobs", ActionRead) {
		t.Error("expected false for missing context")
	}
}
