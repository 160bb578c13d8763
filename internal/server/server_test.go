package server

import (
	"log/slog"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/mbstudio/backstage/internal/database"
	"github.com/mbstudio/backstage/internal/store"
)

func setupTestServer(t *testing.T) (*Server, *store.UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv := New(db, Config{}, slog.New(slog.DiscardHandler))
	return srv, store.NewUserStore(db)
}

func TestEnsureAdminSeedsFirstUser(t *testing.T) {
	srv, users := setupTestServer(t)

	if err := srv.EnsureAdmin("Owner@Studio.example", "opensesame"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}

	admin, err := users.GetByEmail("owner@studio.example")
	if err != nil {
		t.Fatalf("get admin: %v", err)
	}
	if admin == nil {
		t.Fatal("expected admin user to exist")
	}
	if admin.RoleID != adminRoleID {
		t.Errorf("role_id = %q, want %q", admin.RoleID, adminRoleID)
	}
	if !admin.IsActive {
		t.Error("expected admin to be active")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("opensesame")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
}

func TestEnsureAdminSkipsWhenUsersExist(t *testing.T) {
	srv, users := setupTestServer(t)

	if _, err := users.Create("first@studio.example", "First", "", "hash", adminRoleID); err != nil {
		t.Fatalf("create user: %v", err)
	}

	if err := srv.EnsureAdmin("second@studio.example", "opensesame"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}

	second, err := users.GetByEmail("second@studio.example")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if second != nil {
		t.Error("expected no bootstrap user when the table is not empty")
	}
}

func TestEnsureAdminNoCredentials(t *testing.T) {
	srv, users := setupTestServer(t)

	if err := srv.EnsureAdmin("", ""); err != nil {
		t.Fatalf("ensure admin without credentials: %v", err)
	}

	n, err := users.Count()
	if err != nil {
		t.Fatalf("count users: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no users, got %d", n)
	}
}

func TestEnsureAdminRejectsShortPassword(t *testing.T) {
	srv, _ := setupTestServer(t)

	if err := srv.EnsureAdmin("owner@studio.example", "short"); err == nil {
		t.Error("expected error for password under 8 characters")
	}
}
