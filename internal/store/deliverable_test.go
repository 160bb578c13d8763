package store

import (
	"testing"
	"time"

	"github.com/mbstudio/backstage/internal/database"
	"github.com/mbstudio/backstage/internal/model"
)

func setupDeliverableTestDB(t *testing.T) (*DeliverableStore, *JobStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewDeliverableStore(db), NewJobStore(db)
}

func createTestJob(t *testing.T, js *JobStore) *model.Job {
	t.Helper()
	job, err := js.Create(JobParams{
		Title:     "Spring Campaign",
		Brand:     "Glowy",
		StartDate: "2026-03-01",
		EndDate:   "2026-04-30",
	}, nil)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job
}

func TestDeliverableCRUD(t *testing.T) {
	ds, js := setupDeliverableTestDB(t)
	job := createTestJob(t, js)

	d, err := ds.Create(job.ID, DeliverableParams{
		Title:    "Instagram Reel",
		Category: model.CategoryMedia,
		DueDate:  "2026-03-15",
	})
	if err != nil {
		t.Fatalf("create deliverable: %v", err)
	}
	if d.Title != "Instagram Reel" {
		t.Errorf("title = %q, want %q", d.Title, "Instagram Reel")
	}
	if d.Status != "pending" {
		t.Errorf("status = %q, want %q", d.Status, "pending")
	}
	if d.Category != model.CategoryMedia {
		t.Errorf("category = %q, want %q", d.Category, model.CategoryMedia)
	}

	got, err := ds.GetByID(d.ID)
	if err != nil {
		t.Fatalf("get deliverable: %v", err)
	}
	if got == nil || got.Title != "Instagram Reel" {
		t.Errorf("got = %+v, want title %q", got, "Instagram Reel")
	}

	updated, err := ds.Update(d.ID, DeliverableParams{
		Title:    "Instagram Reel v2",
		Category: model.CategoryMedia,
		DueDate:  "2026-03-20",
	})
	if err != nil {
		t.Fatalf("update deliverable: %v", err)
	}
	if updated.Title != "Instagram Reel v2" {
		t.Errorf("updated title = %q, want %q", updated.Title, "Instagram Reel v2")
	}
	if updated.DueDate != "2026-03-20" {
		t.Errorf("updated due_date = %q, want %q", updated.DueDate, "2026-03-20")
	}

	if err := ds.Delete(d.ID); err != nil {
		t.Fatalf("delete deliverable: %v", err)
	}
	got, err = ds.GetByID(d.ID)
	if err != nil {
		t.Fatalf("get deleted deliverable: %v", err)
	}
	if got != nil {
		t.Error("expected nil for deleted deliverable")
	}
}

func TestDeliverableDefaultCategory(t *testing.T) {
	ds, js := setupDeliverableTestDB(t)
	job := createTestJob(t, js)

	d, err := ds.Create(job.ID, DeliverableParams{Title: "Misc"})
	if err != nil {
		t.Fatalf("create deliverable: %v", err)
	}
	if d.Category != model.CategoryOther {
		t.Errorf("category = %q, want %q", d.Category, model.CategoryOther)
	}
}

func TestDeliverableGetByIDNotFound(t *testing.T) {
	ds, _ := setupDeliverableTestDB(t)

	got, err := ds.GetByID("nope")
	if err != nil {
		t.Fatalf("get deliverable: %v", err)
	}
	if got != nil {
		t.Error("expected nil for nonexistent deliverable")
	}
}

func TestListByJobNestsItems(t *testing.T) {
	ds, js := setupDeliverableTestDB(t)
	job := createTestJob(t, js)

	d1, err := ds.Create(job.ID, DeliverableParams{Title: "Reel", Category: model.CategoryMedia})
	if err != nil {
		t.Fatalf("create deliverable: %v", err)
	}
	d2, err := ds.Create(job.ID, DeliverableParams{Title: "Shoot day", Category: model.CategoryCapture})
	if err != nil {
		t.Fatalf("create deliverable: %v", err)
	}

	for _, label := range []string{"Script", "Film", "Edit"} {
		if _, err := ds.CreateItem(d1.ID, ChecklistItemParams{Label: label}); err != nil {
			t.Fatalf("create item: %v", err)
		}
	}
	if _, err := ds.CreateItem(d2.ID, ChecklistItemParams{Label: "Book studio"}); err != nil {
		t.Fatalf("create item: %v", err)
	}

	deliverables, err := ds.ListByJob(job.ID)
	if err != nil {
		t.Fatalf("list by job: %v", err)
	}
	if len(deliverables) != 2 {
		t.Fatalf("expected 2 deliverables, got %d", len(deliverables))
	}

	var reel *model.Deliverable
	for i := range deliverables {
		if deliverables[i].ID == d1.ID {
			reel = &deliverables[i]
		}
	}
	if reel == nil {
		t.Fatal("reel deliverable missing from list")
	}
	if len(reel.ChecklistItems) != 3 {
		t.Fatalf("expected 3 items on reel, got %d", len(reel.ChecklistItems))
	}
	wantOrder := []string{"Script", "Film", "Edit"}
	for i, want := range wantOrder {
		if reel.ChecklistItems[i].Label != want {
			t.Errorf("item[%d].Label = %q, want %q", i, reel.ChecklistItems[i].Label, want)
		}
		if reel.ChecklistItems[i].SortOrder != i {
			t.Errorf("item[%d].SortOrder = %d, want %d", i, reel.ChecklistItems[i].SortOrder, i)
		}
	}
}

func TestListByJobEmpty(t *testing.T) {
	ds, js := setupDeliverableTestDB(t)
	job := createTestJob(t, js)

	deliverables, err := ds.ListByJob(job.ID)
	if err != nil {
		t.Fatalf("list by job: %v", err)
	}
	if deliverables != nil {
		t.Errorf("expected nil for job without deliverables, got %d", len(deliverables))
	}
}

func TestSetDeliverableStatus(t *testing.T) {
	ds, js := setupDeliverableTestDB(t)
	job := createTestJob(t, js)

	d, err := ds.Create(job.ID, DeliverableParams{Title: "Reel"})
	if err != nil {
		t.Fatalf("create deliverable: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	if err := ds.SetDeliverableStatus(d.ID, "delivered", &now); err != nil {
		t.Fatalf("set status: %v", err)
	}

	got, err := ds.GetByID(d.ID)
	if err != nil {
		t.Fatalf("get deliverable: %v", err)
	}
	if got.Status != "delivered" {
		t.Errorf("status = %q, want %q", got.Status, "delivered")
	}
	if got.CompletedAt == nil {
		t.Fatal("expected completed_at to be set")
	}

	// Regressing clears the timestamp.
	if err := ds.SetDeliverableStatus(d.ID, "in_production", nil); err != nil {
		t.Fatalf("set status: %v", err)
	}
	got, err = ds.GetByID(d.ID)
	if err != nil {
		t.Fatalf("get deliverable: %v", err)
	}
	if got.Status != "in_production" {
		t.Errorf("status = %q, want %q", got.Status, "in_production")
	}
	if got.CompletedAt != nil {
		t.Error("expected completed_at to be cleared")
	}
}

func TestChecklistItemCRUD(t *testing.T) {
	ds, js := setupDeliverableTestDB(t)
	job := createTestJob(t, js)

	d, err := ds.Create(job.ID, DeliverableParams{Title: "Reel"})
	if err != nil {
		t.Fatalf("create deliverable: %v", err)
	}

	budget := 250.0
	item, err := ds.CreateItem(d.ID, ChecklistItemParams{
		Label:   "Hire editor",
		Details: "Prefer someone who has cut beauty content",
		DueDate: "2026-03-10",
		Budget:  &budget,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if item.Label != "Hire editor" {
		t.Errorf("label = %q, want %q", item.Label, "Hire editor")
	}
	if item.Budget == nil || *item.Budget != 250.0 {
		t.Errorf("budget = %v, want 250", item.Budget)
	}
	if item.Completed {
		t.Error("new item should not be completed")
	}

	updated, err := ds.UpdateItem(item.ID, ChecklistItemParams{Label: "Hire video editor"})
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if updated.Label != "Hire video editor" {
		t.Errorf("updated label = %q, want %q", updated.Label, "Hire video editor")
	}
	if updated.Budget != nil {
		t.Error("expected budget cleared when params omit it")
	}

	if err := ds.DeleteItem(item.ID); err != nil {
		t.Fatalf("delete item: %v", err)
	}
	got, err := ds.GetItemByID(item.ID)
	if err != nil {
		t.Fatalf("get deleted item: %v", err)
	}
	if got != nil {
		t.Error("expected nil for deleted item")
	}
}

func TestCreateItemAppendsSortOrder(t *testing.T) {
	ds, js := setupDeliverableTestDB(t)
	job := createTestJob(t, js)

	d, err := ds.Create(job.ID, DeliverableParams{Title: "Reel"})
	if err != nil {
		t.Fatalf("create deliverable: %v", err)
	}

	for i, label := range []string{"a", "b", "c"} {
		item, err := ds.CreateItem(d.ID, ChecklistItemParams{Label: label})
		if err != nil {
			t.Fatalf("create item: %v", err)
		}
		if item.SortOrder != i {
			t.Errorf("item %q sort_order = %d, want %d", label, item.SortOrder, i)
		}
	}
}

func TestReorderItems(t *testing.T) {
	ds, js := setupDeliverableTestDB(t)
	job := createTestJob(t, js)

	d, err := ds.Create(job.ID, DeliverableParams{Title: "Reel"})
	if err != nil {
		t.Fatalf("create deliverable: %v", err)
	}

	var ids []string
	for _, label := range []string{"first", "second", "third"} {
		item, err := ds.CreateItem(d.ID, ChecklistItemParams{Label: label})
		if err != nil {
			t.Fatalf("create item: %v", err)
		}
		ids = append(ids, item.ID)
	}

	// Reverse the order.
	if err := ds.ReorderItems(d.ID, []string{ids[2], ids[1], ids[0]}); err != nil {
		t.Fatalf("reorder items: %v", err)
	}

	items, err := ds.ListItems(d.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	wantOrder := []string{"third", "second", "first"}
	for i, want := range wantOrder {
		if items[i].Label != want {
			t.Errorf("item[%d].Label = %q, want %q", i, items[i].Label, want)
		}
	}
}

func TestSetItemCompleted(t *testing.T) {
	ds, js := setupDeliverableTestDB(t)
	job := createTestJob(t, js)

	d, err := ds.Create(job.ID, DeliverableParams{Title: "Reel"})
	if err != nil {
		t.Fatalf("create deliverable: %v", err)
	}
	item, err := ds.CreateItem(d.ID, ChecklistItemParams{Label: "Film"})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	if err := ds.SetItemCompleted(item.ID, true, &now); err != nil {
		t.Fatalf("set item completed: %v", err)
	}

	got, err := ds.GetItemByID(item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if !got.Completed {
		t.Error("expected item to be completed")
	}
	if got.CompletedAt == nil {
		t.Fatal("expected completed_at to be set")
	}

	if err := ds.SetItemCompleted(item.ID, false, nil); err != nil {
		t.Fatalf("set item completed: %v", err)
	}
	got, err = ds.GetItemByID(item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got.Completed {
		t.Error("expected item to be reopened")
	}
	if got.CompletedAt != nil {
		t.Error("expected completed_at to be cleared")
	}
}

func TestDeleteDeliverableCascadesItems(t *testing.T) {
	ds, js := setupDeliverableTestDB(t)
	job := createTestJob(t, js)

	d, err := ds.Create(job.ID, DeliverableParams{Title: "Reel"})
	if err != nil {
		t.Fatalf("create deliverable: %v", err)
	}
	item, err := ds.CreateItem(d.ID, ChecklistItemParams{Label: "Film"})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	if err := ds.Delete(d.ID); err != nil {
		t.Fatalf("delete deliverable: %v", err)
	}

	got, err := ds.GetItemByID(item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got != nil {
		t.Error("expected items to cascade on deliverable delete")
	}
}

func TestDeleteJobCascadesDeliverables(t *testing.T) {
	ds, js := setupDeliverableTestDB(t)
	job := createTestJob(t, js)

	d, err := ds.Create(job.ID, DeliverableParams{Title: "Reel"})
	if err != nil {
		t.Fatalf("create deliverable: %v", err)
	}

	if err := js.Delete(job.ID); err != nil {
		t.Fatalf("delete job: %v", err)
	}

	got, err := ds.GetByID(d.ID)
	if err != nil {
		t.Fatalf("get deliverable: %v", err)
	}
	if got != nil {
		t.Error("expected deliverables to cascade on job delete")
	}
}

func TestListDueOn(t *testing.T) {
	ds, js := setupDeliverableTestDB(t)
	job := createTestJob(t, js)

	due, err := ds.Create(job.ID, DeliverableParams{Title: "Reel", DueDate: "2026-03-15"})
	if err != nil {
		t.Fatalf("create deliverable: %v", err)
	}
	if _, err := ds.Create(job.ID, DeliverableParams{Title: "Story", DueDate: "2026-03-16"}); err != nil {
		t.Fatalf("create deliverable: %v", err)
	}
	delivered, err := ds.Create(job.ID, DeliverableParams{Title: "Post", DueDate: "2026-03-15"})
	if err != nil {
		t.Fatalf("create deliverable: %v", err)
	}
	now := time.Now().UTC()
	if err := ds.SetDeliverableStatus(delivered.ID, "delivered", &now); err != nil {
		t.Fatalf("set status: %v", err)
	}

	got, err := ds.ListDueOn("2026-03-15")
	if err != nil {
		t.Fatalf("list due on: %v", err)
	}
	if len(got) != 1 || got[0].ID != due.ID {
		t.Errorf("expected only the undelivered deliverable due 2026-03-15, got %d", len(got))
	}
}

func TestListItemsDueOn(t *testing.T) {
	ds, js := setupDeliverableTestDB(t)
	job := createTestJob(t, js)

	d, err := ds.Create(job.ID, DeliverableParams{Title: "Reel"})
	if err != nil {
		t.Fatalf("create deliverable: %v", err)
	}

	open, err := ds.CreateItem(d.ID, ChecklistItemParams{Label: "Film", DueDate: "2026-03-10"})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	done, err := ds.CreateItem(d.ID, ChecklistItemParams{Label: "Script", DueDate: "2026-03-10"})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	now := time.Now().UTC()
	if err := ds.SetItemCompleted(done.ID, true, &now); err != nil {
		t.Fatalf("set item completed: %v", err)
	}

	got, err := ds.ListItemsDueOn("2026-03-10")
	if err != nil {
		t.Fatalf("list items due on: %v", err)
	}
	if len(got) != 1 || got[0].ID != open.ID {
		t.Errorf("expected only the open item due 2026-03-10, got %d", len(got))
	}
}
