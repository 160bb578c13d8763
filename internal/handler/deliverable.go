package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mbstudio/backstage/internal/checklist"
	"github.com/mbstudio/backstage/internal/deliverable"
	"github.com/mbstudio/backstage/internal/model"
	"github.com/mbstudio/backstage/internal/store"
	ws "github.com/mbstudio/backstage/internal/websocket"
)

type DeliverableHandler struct {
	deliverables *store.DeliverableStore
	jobs         *store.JobStore
	audit        *store.AuditStore
	coordinator  *checklist.Coordinator
	hub          *ws.Hub
	logger       *slog.Logger
}

func NewDeliverableHandler(ds *store.DeliverableStore, js *store.JobStore, as *store.AuditStore, hub *ws.Hub, logger *slog.Logger) *DeliverableHandler {
	return &DeliverableHandler{
		deliverables: ds,
		jobs:         js,
		audit:        as,
		coordinator:  checklist.NewCoordinator(ds, as, logger),
		hub:          hub,
		logger:       logger,
	}
}

type deliverableRequest struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
	DueTime     string `json:"due_time"`
}

func validCategory(c string) bool {
	switch model.DeliverableCategory(c) {
	case model.CategoryMedia, model.CategoryCapture, model.CategoryAdvertising, model.CategoryEvent, model.CategoryOther:
		return true
	}
	return c == ""
}

func (h *DeliverableHandler) Create(w http.ResponseWriter, r *http.Request) {
	jobID, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	job, err := h.jobs.GetByID(jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	var req deliverableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if !validCategory(req.Category) {
		writeError(w, http.StatusBadRequest, "invalid category")
		return
	}

	// Suggest a category from the title when none was given.
	category := model.DeliverableCategory(req.Category)
	if category == "" {
		category = deliverable.Categorize(req.Title)
	}

	d, err := h.deliverables.Create(jobID, store.DeliverableParams{
		Title:       req.Title,
		Category:    category,
		Description: req.Description,
		DueDate:     req.DueDate,
		DueTime:     req.DueTime,
	})
	if err != nil {
		h.logger.Error("create deliverable", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create deliverable")
		return
	}

	h.audit.Record(r.Context(), "create", "deliverable", d.ID, map[string]any{"title": d.Title, "job_title": job.Title})
	h.hub.Broadcast(ws.NewMessage("deliverable", "created", d.ID, map[string]any{"job_id": jobID}))
	writeJSON(w, http.StatusCreated, d)
}

func (h *DeliverableHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.deliverables.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get deliverable")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "deliverable not found")
		return
	}

	var req deliverableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if !validCategory(req.Category) {
		writeError(w, http.StatusBadRequest, "invalid category")
		return
	}
	if req.Category == "" {
		req.Category = string(existing.Category)
	}

	d, err := h.deliverables.Update(id, store.DeliverableParams{
		Title:       req.Title,
		Category:    model.DeliverableCategory(req.Category),
		Description: req.Description,
		DueDate:     req.DueDate,
		DueTime:     req.DueTime,
	})
	if err != nil {
		h.logger.Error("update deliverable", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update deliverable")
		return
	}

	h.audit.Record(r.Context(), "update", "deliverable", d.ID, map[string]any{"title": d.Title})
	h.hub.Broadcast(ws.NewMessage("deliverable", "updated", d.ID, map[string]any{"job_id": d.JobID}))
	writeJSON(w, http.StatusOK, d)
}

func (h *DeliverableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.deliverables.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get deliverable")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "deliverable not found")
		return
	}

	if err := h.deliverables.Delete(id); err != nil {
		h.logger.Error("delete deliverable", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete deliverable")
		return
	}

	h.audit.Record(r.Context(), "delete", "deliverable", id, map[string]any{"title": existing.Title})
	h.hub.Broadcast(ws.NewMessage("deliverable", "deleted", id, map[string]any{"job_id": existing.JobID}))
	w.WriteHeader(http.StatusNoContent)
}

type checklistItemRequest struct {
	Label   string   `json:"label"`
	Details string   `json:"details"`
	DueDate string   `json:"due_date"`
	DueTime string   `json:"due_time"`
	Budget  *float64 `json:"budget"`
}

func (h *DeliverableHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	deliverableID, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	parent, err := h.deliverables.GetByID(deliverableID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get deliverable")
		return
	}
	if parent == nil {
		writeError(w, http.StatusNotFound, "deliverable not found")
		return
	}

	var req checklistItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Label = strings.TrimSpace(req.Label)
	if req.Label == "" {
		writeError(w, http.StatusBadRequest, "label is required")
		return
	}

	item, err := h.deliverables.CreateItem(deliverableID, store.ChecklistItemParams{
		Label:   req.Label,
		Details: req.Details,
		DueDate: req.DueDate,
		DueTime: req.DueTime,
		Budget:  req.Budget,
	})
	if err != nil {
		h.logger.Error("create checklist item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	h.audit.Record(r.Context(), "create", "checklist_item", item.ID, map[string]any{"label": item.Label, "deliverable_title": parent.Title})
	h.hub.Broadcast(ws.NewMessage("checklist_item", "created", item.ID, map[string]any{"deliverable_id": deliverableID, "job_id": parent.JobID}))
	writeJSON(w, http.StatusCreated, item)
}

func (h *DeliverableHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.deliverables.GetItemByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	var req checklistItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Label = strings.TrimSpace(req.Label)
	if req.Label == "" {
		writeError(w, http.StatusBadRequest, "label is required")
		return
	}

	item, err := h.deliverables.UpdateItem(id, store.ChecklistItemParams{
		Label:   req.Label,
		Details: req.Details,
		DueDate: req.DueDate,
		DueTime: req.DueTime,
		Budget:  req.Budget,
	})
	if err != nil {
		h.logger.Error("update checklist item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	h.hub.Broadcast(ws.NewMessage("checklist_item", "updated", item.ID, map[string]any{"deliverable_id": item.DeliverableID}))
	writeJSON(w, http.StatusOK, item)
}

func (h *DeliverableHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.deliverables.GetItemByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	if err := h.deliverables.DeleteItem(id); err != nil {
		h.logger.Error("delete checklist item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	h.audit.Record(r.Context(), "delete", "checklist_item", id, map[string]any{"label": existing.Label})
	h.hub.Broadcast(ws.NewMessage("checklist_item", "deleted", id, map[string]any{"deliverable_id": existing.DeliverableID}))
	w.WriteHeader(http.StatusNoContent)
}

type reorderRequest struct {
	IDs []string `json:"ids"`
}

func (h *DeliverableHandler) ReorderItems(w http.ResponseWriter, r *http.Request) {
	deliverableID, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids are required")
		return
	}

	if err := h.deliverables.ReorderItems(deliverableID, req.IDs); err != nil {
		h.logger.Error("reorder checklist items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reorder items")
		return
	}

	items, err := h.deliverables.ListItems(deliverableID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}

	h.hub.Broadcast(ws.NewMessage("checklist_item", "reordered", deliverableID, nil))
	writeJSON(w, http.StatusOK, items)
}

type commitRequest struct {
	Changes map[string]bool `json:"changes"`
}

// CommitChecklist applies a batch of checklist toggles for one job: every
// entry is written individually, each touched deliverable's status is
// re-derived, and the fresh state is returned alongside the write report.
func (h *DeliverableHandler) CommitChecklist(w http.ResponseWriter, r *http.Request) {
	jobID, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	job, err := h.jobs.GetByID(jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	var req commitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	deliverables, err := h.deliverables.ListByJob(jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load deliverables")
		return
	}

	sess := checklist.NewSession(*job)
	sess.Load(deliverables)

	for itemID, completed := range req.Changes {
		if err := sess.SetCompleted(itemID, completed); err != nil {
			if errors.Is(err, checklist.ErrUnknownItem) {
				// Deleted since the client loaded. Skip it.
				continue
			}
			writeError(w, http.StatusConflict, "commit already in progress")
			return
		}
	}

	report, err := h.coordinator.Commit(r.Context(), sess, checklist.Hooks{})
	if err != nil {
		if errors.Is(err, checklist.ErrCommitting) {
			writeError(w, http.StatusConflict, "commit already in progress")
			return
		}
		// Writes may have landed even when the reload failed; surface both.
		h.logger.Error("checklist commit", "job_id", jobID, "error", err)
		writeJSON(w, http.StatusOK, map[string]any{
			"report":       report,
			"deliverables": sess.Deliverables(),
			"stale":        true,
		})
		return
	}

	h.hub.Broadcast(ws.NewMessage("checklist", "committed", jobID, map[string]any{"applied": report.Applied}))
	writeJSON(w, http.StatusOK, map[string]any{
		"report":       report,
		"deliverables": sess.Deliverables(),
	})
}
