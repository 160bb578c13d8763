package store

import (
	"testing"
	"time"

	"github.com/mbstudio/backstage/internal/database"
	"github.com/mbstudio/backstage/internal/model"
)

func setupSessionTestDB(t *testing.T) (*SessionStore, *model.User) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	us := NewUserStore(db)
	user, err := us.Create("sess@example.com", "Sess", "", "hash", "role-admin")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return NewSessionStore(db), user
}

func TestSessionCreateAndGet(t *testing.T) {
	ss, user := setupSessionTestDB(t)

	sess, err := ss.Create(user.ID, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(sess.Token))
	}
	if sess.UserID != user.ID {
		t.Errorf("user_id = %q, want %q", sess.UserID, user.ID)
	}

	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got == nil || got.ID != sess.ID {
		t.Errorf("got = %+v, want id %q", got, sess.ID)
	}
}

func TestSessionGetByTokenUnknown(t *testing.T) {
	ss, _ := setupSessionTestDB(t)

	got, err := ss.GetByToken("doesnotexist")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown token")
	}
}

func TestSessionExpired(t *testing.T) {
	ss, user := setupSessionTestDB(t)

	sess, err := ss.Create(user.ID, -time.Minute)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got != nil {
		t.Error("expected nil for expired session")
	}
}

func TestSessionDelete(t *testing.T) {
	ss, user := setupSessionTestDB(t)

	sess, err := ss.Create(user.ID, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := ss.Delete(sess.Token); err != nil {
		t.Fatalf("delete session: %v", err)
	}

	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestSessionDeleteExpired(t *testing.T) {
	ss, user := setupSessionTestDB(t)

	if _, err := ss.Create(user.ID, -time.Minute); err != nil {
		t.Fatalf("create session: %v", err)
	}
	live, err := ss.Create(user.ID, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	n, err := ss.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}

	got, err := ss.GetByToken(live.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got == nil {
		t.Error("live session should survive cleanup")
	}
}
