package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mbstudio/backstage/internal/database"
	"github.com/mbstudio/backstage/internal/model"
	"github.com/mbstudio/backstage/internal/store"
	ws "github.com/mbstudio/backstage/internal/websocket"
)

type commitFixture struct {
	handler      *DeliverableHandler
	jobs         *store.JobStore
	deliverables *store.DeliverableStore
	mux          *http.ServeMux
}

func setupCommitFixture(t *testing.T) *commitFixture {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.DiscardHandler)
	jobs := store.NewJobStore(db)
	deliverables := store.NewDeliverableStore(db)
	audit := store.NewAuditStore(db)
	hub := ws.NewHub(logger)

	h := NewDeliverableHandler(deliverables, jobs, audit, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/jobs/{id}/checklist/commit", h.CommitChecklist)
	mux.HandleFunc("POST /api/jobs/{id}/deliverables", h.Create)
	mux.HandleFunc("POST /api/deliverables/{id}/items", h.CreateItem)

	return &commitFixture{handler: h, jobs: jobs, deliverables: deliverables, mux: mux}
}

func (f *commitFixture) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

type commitResponse struct {
	Report struct {
		Applied  int `json:"applied"`
		Failed   []struct {
			EntityType string `json:"entity_type"`
			EntityID   string `json:"entity_id"`
		} `json:"failed"`
		Statuses map[string]string `json:"statuses"`
	} `json:"report"`
	Deliverables []model.Deliverable `json:"deliverables"`
}

func TestCommitChecklistAppliesChanges(t *testing.T) {
	f := setupCommitFixture(t)

	job, err := f.jobs.Create(store.JobParams{Title: "Spring campaign"}, nil)
	if err != nil {
		t.Fatalf("failed to create job: %v", err)
	}
	d, err := f.deliverables.Create(job.ID, store.DeliverableParams{Title: "Launch video"})
	if err != nil {
		t.Fatalf("failed to create deliverable: %v", err)
	}
	item1, err := f.deliverables.CreateItem(d.ID, store.ChecklistItemParams{Label: "Script"})
	if err != nil {
		t.Fatalf("failed to create item: %v", err)
	}
	item2, err := f.deliverables.CreateItem(d.ID, store.ChecklistItemParams{Label: "Edit"})
	if err != nil {
		t.Fatalf("failed to create item: %v", err)
	}

	rec := f.post(t, "/api/jobs/"+job.ID+"/checklist/commit", map[string]any{
		"changes": map[string]bool{item1.ID: true, item2.ID: true},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp commitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	// Two item writes plus one status write.
	if resp.Report.Applied != 3 {
		t.Errorf("expected 3 applied writes, got %d", resp.Report.Applied)
	}
	if len(resp.Report.Failed) != 0 {
		t.Errorf("expected no failed writes, got %d", len(resp.Report.Failed))
	}
	if got := resp.Report.Statuses[d.ID]; got != "delivered" {
		t.Errorf("expected status delivered, got %q", got)
	}

	// Response carries the reloaded, authoritative state.
	if len(resp.Deliverables) != 1 {
		t.Fatalf("expected 1 deliverable in response, got %d", len(resp.Deliverables))
	}
	if resp.Deliverables[0].Status != "delivered" {
		t.Errorf("expected reloaded status delivered, got %q", resp.Deliverables[0].Status)
	}
	for _, item := range resp.Deliverables[0].ChecklistItems {
		if !item.Completed {
			t.Errorf("expected item %q completed after commit", item.Label)
		}
	}

	got, err := f.deliverables.GetByID(d.ID)
	if err != nil {
		t.Fatalf("failed to reload deliverable: %v", err)
	}
	if got.Status != "delivered" {
		t.Errorf("expected persisted status delivered, got %q", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
}

func TestCommitChecklistPartialCompletion(t *testing.T) {
	f := setupCommitFixture(t)

	job, _ := f.jobs.Create(store.JobParams{Title: "Collab"}, nil)
	d, _ := f.deliverables.Create(job.ID, store.DeliverableParams{Title: "Reel"})
	item1, _ := f.deliverables.CreateItem(d.ID, store.ChecklistItemParams{Label: "Shoot"})
	if _, err := f.deliverables.CreateItem(d.ID, store.ChecklistItemParams{Label: "Cut"}); err != nil {
		t.Fatalf("failed to create item: %v", err)
	}

	rec := f.post(t, "/api/jobs/"+job.ID+"/checklist/commit", map[string]any{
		"changes": map[string]bool{item1.ID: true},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp commitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got := resp.Report.Statuses[d.ID]; got != "in_production" {
		t.Errorf("expected status in_production, got %q", got)
	}
}

func TestCommitChecklistSkipsUnknownItems(t *testing.T) {
	f := setupCommitFixture(t)

	job, _ := f.jobs.Create(store.JobParams{Title: "Event"}, nil)
	d, _ := f.deliverables.Create(job.ID, store.DeliverableParams{Title: "Booth"})
	item, _ := f.deliverables.CreateItem(d.ID, store.ChecklistItemParams{Label: "Setup"})

	rec := f.post(t, "/api/jobs/"+job.ID+"/checklist/commit", map[string]any{
		"changes": map[string]bool{item.ID: true, "gone": true},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 despite unknown item, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp commitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Report.Applied != 2 {
		t.Errorf("expected 2 applied writes, got %d", resp.Report.Applied)
	}
}

func TestCommitChecklistNoChanges(t *testing.T) {
	f := setupCommitFixture(t)

	job, _ := f.jobs.Create(store.JobParams{Title: "Quiet"}, nil)
	if _, err := f.deliverables.Create(job.ID, store.DeliverableParams{Title: "Post"}); err != nil {
		t.Fatalf("failed to create deliverable: %v", err)
	}

	rec := f.post(t, "/api/jobs/"+job.ID+"/checklist/commit", map[string]any{
		"changes": map[string]bool{},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp commitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Report.Applied != 0 {
		t.Errorf("expected no applied writes, got %d", resp.Report.Applied)
	}
}

func TestCommitChecklistJobNotFound(t *testing.T) {
	f := setupCommitFixture(t)

	rec := f.post(t, "/api/jobs/missing/checklist/commit", map[string]any{
		"changes": map[string]bool{"x": true},
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestCreateDeliverableAutoCategorizes(t *testing.T) {
	f := setupCommitFixture(t)

	job, _ := f.jobs.Create(store.JobParams{Title: "Brand deal"}, nil)

	rec := f.post(t, "/api/jobs/"+job.ID+"/deliverables", map[string]any{
		"title": "Instagram story series",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var d model.Deliverable
	if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if d.Category != model.CategoryMedia {
		t.Errorf("expected auto-assigned category media, got %q", d.Category)
	}
}

func TestCreateItemRequiresLabel(t *testing.T) {
	f := setupCommitFixture(t)

	job, _ := f.jobs.Create(store.JobParams{Title: "Shoot"}, nil)
	d, _ := f.deliverables.Create(job.ID, store.DeliverableParams{Title: "Photos"})

	rec := f.post(t, "/api/deliverables/"+d.ID+"/items", map[string]any{"label": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
