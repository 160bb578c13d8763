package store

import (
	"testing"

	"github.com/mbstudio/backstage/internal/database"
)

func setupUserTestDB(t *testing.T) *UserStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUserStore(db)
}

func TestUserCRUD(t *testing.T) {
	us := setupUserTestDB(t)

	user, err := us.Create("lena@example.com", "Lena Hart", "+4915112345", "hash1", "role-manager")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Email != "lena@example.com" {
		t.Errorf("email = %q, want %q", user.Email, "lena@example.com")
	}
	if !user.IsActive {
		t.Error("new user should be active")
	}
	if user.RoleID != "role-manager" {
		t.Errorf("role_id = %q, want %q", user.RoleID, "role-manager")
	}

	got, err := us.GetByEmail("lena@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got == nil || got.ID != user.ID {
		t.Errorf("got = %+v, want id %q", got, user.ID)
	}

	updated, err := us.Update(user.ID, "lena@example.com", "Lena Hart-Meyer", "", "https://cdn.example.com/lena.png", "role-admin")
	if err != nil {
		t.Fatalf("update user: %v", err)
	}
	if updated.FullName != "Lena Hart-Meyer" {
		t.Errorf("full_name = %q, want %q", updated.FullName, "Lena Hart-Meyer")
	}
	if updated.RoleID != "role-admin" {
		t.Errorf("role_id = %q, want %q", updated.RoleID, "role-admin")
	}

	if err := us.Delete(user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	got, err = us.GetByID(user.ID)
	if err != nil {
		t.Fatalf("get deleted user: %v", err)
	}
	if got != nil {
		t.Error("expected nil for deleted user")
	}
}

func TestUserGetByEmailNotFound(t *testing.T) {
	us := setupUserTestDB(t)

	got, err := us.GetByEmail("ghost@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown email")
	}
}

func TestUserSetActive(t *testing.T) {
	us := setupUserTestDB(t)

	user, err := us.Create("m@example.com", "M", "", "hash", "role-viewer")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if err := us.SetActive(user.ID, false); err != nil {
		t.Fatalf("set active: %v", err)
	}
	got, err := us.GetByID(user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.IsActive {
		t.Error("expected user to be deactivated")
	}
}

func TestUserSetPasswordHash(t *testing.T) {
	us := setupUserTestDB(t)

	user, err := us.Create("m@example.com", "M", "", "old", "role-viewer")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if err := us.SetPasswordHash(user.ID, "new"); err != nil {
		t.Fatalf("set password hash: %v", err)
	}
	got, err := us.GetByID(user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.PasswordHash != "new" {
		t.Errorf("password_hash = %q, want %q", got.PasswordHash, "new")
	}
}

func TestUserListSortedByName(t *testing.T) {
	us := setupUserTestDB(t)

	for _, name := range []string{"Zoe", "Anna", "Milo"} {
		if _, err := us.Create(name+"@example.com", name, "", "hash", "role-viewer"); err != nil {
			t.Fatalf("create user %s: %v", name, err)
		}
	}

	users, err := us.List()
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	want := []string{"Anna", "Milo", "Zoe"}
	if len(users) != len(want) {
		t.Fatalf("expected %d users, got %d", len(want), len(users))
	}
	for i, name := range want {
		if users[i].FullName != name {
			t.Errorf("users[%d].FullName = %q, want %q", i, users[i].FullName, name)
		}
	}
}
