package store

import (
	"testing"

	"github.com/mbstudio/backstage/internal/database"
)

func setupHomeConfigTestDB(t *testing.T) *HomeConfigStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewHomeConfigStore(db)
}

func TestHomeConfigSetAndSections(t *testing.T) {
	hs := setupHomeConfigTestDB(t)

	if err := hs.Set("hero", "headline", "Creative that converts"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := hs.Set("hero", "subline", "Campaigns for brands that care"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := hs.Set("contact", "email", "hello@example.com"); err != nil {
		t.Fatalf("set: %v", err)
	}

	sections, err := hs.Sections()
	if err != nil {
		t.Fatalf("sections: %v", err)
	}
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections["hero"]["headline"] != "Creative that converts" {
		t.Errorf("hero.headline = %q", sections["hero"]["headline"])
	}
	if sections["contact"]["email"] != "hello@example.com" {
		t.Errorf("contact.email = %q", sections["contact"]["email"])
	}
}

func TestHomeConfigUpsert(t *testing.T) {
	hs := setupHomeConfigTestDB(t)

	if err := hs.Set("hero", "headline", "Old"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := hs.Set("hero", "headline", "New"); err != nil {
		t.Fatalf("set again: %v", err)
	}

	entries, err := hs.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after upsert, got %d", len(entries))
	}
	if entries[0].Value != "New" {
		t.Errorf("value = %q, want %q", entries[0].Value, "New")
	}
}

func TestHomeConfigDelete(t *testing.T) {
	hs := setupHomeConfigTestDB(t)

	if err := hs.Set("hero", "headline", "X"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := hs.Delete("hero", "headline"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	entries, err := hs.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected 0 entries, got %d", len(entries))
	}
}
