package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mbstudio/backstage/internal/auth"
	"github.com/mbstudio/backstage/internal/model"
	"github.com/mbstudio/backstage/internal/store"
	ws "github.com/mbstudio/backstage/internal/websocket"
)

type JobHandler struct {
	jobs         *store.JobStore
	deliverables *store.DeliverableStore
	audit        *store.AuditStore
	hub          *ws.Hub
	logger       *slog.Logger
}

func NewJobHandler(js *store.JobStore, ds *store.DeliverableStore, as *store.AuditStore, hub *ws.Hub, logger *slog.Logger) *JobHandler {
	return &JobHandler{jobs: js, deliverables: ds, audit: as, hub: hub, logger: logger}
}

type jobRequest struct {
	Title       string   `json:"title"`
	Brand       string   `json:"brand"`
	Description string   `json:"description"`
	Scope       string   `json:"scope"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	Status      string   `json:"status"`
	Briefing    string   `json:"briefing"`
	Brainstorm  string   `json:"brainstorm"`
	Budget      *float64 `json:"budget"`
}

func (req *jobRequest) params() store.JobParams {
	return store.JobParams{
		Title:       strings.TrimSpace(req.Title),
		Brand:       strings.TrimSpace(req.Brand),
		Description: req.Description,
		Scope:       req.Scope,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      model.JobStatus(req.Status),
		Briefing:    req.Briefing,
		Brainstorm:  req.Brainstorm,
		Budget:      req.Budget,
	}
}

func validJobStatus(s string) bool {
	switch model.JobStatus(s) {
	case model.JobOpen, model.JobInProgress, model.JobFinished, model.JobCanceled:
		return true
	}
	return s == ""
}

func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if !validJobStatus(status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	jobs, err := h.jobs.ListWithProgress(model.JobStatus(status))
	if err != nil {
		h.logger.Error("list jobs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	if jobs == nil {
		jobs = []store.JobProgress{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// Get returns the job with its deliverables and checklist items nested, the
// full payload the job detail page loads.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	job, err := h.jobs.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	deliverables, err := h.deliverables.ListByJob(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load deliverables")
		return
	}
	if deliverables == nil {
		deliverables = []model.Deliverable{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"job":          job,
		"deliverables": deliverables,
	})
}

func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if !validJobStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	var createdBy *string
	if uid := auth.UserID(r.Context()); uid != "" {
		createdBy = &uid
	}

	job, err := h.jobs.Create(req.params(), createdBy)
	if err != nil {
		h.logger.Error("create job", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	h.audit.Record(r.Context(), "create", "job", job.ID, map[string]any{"title": job.Title, "brand": job.Brand})
	h.hub.Broadcast(ws.NewMessage("job", "created", job.ID, nil))
	writeJSON(w, http.StatusCreated, job)
}

func (h *JobHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.jobs.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if !validJobStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}
	if req.Status == "" {
		req.Status = string(existing.Status)
	}

	job, err := h.jobs.Update(id, req.params())
	if err != nil {
		h.logger.Error("update job", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update job")
		return
	}

	h.audit.Record(r.Context(), "update", "job", job.ID, map[string]any{"title": job.Title, "status": string(job.Status)})
	h.hub.Broadcast(ws.NewMessage("job", "updated", job.ID, nil))
	writeJSON(w, http.StatusOK, job)
}

func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.jobs.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	if err := h.jobs.Delete(id); err != nil {
		h.logger.Error("delete job", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete job")
		return
	}

	h.audit.Record(r.Context(), "delete", "job", id, map[string]any{"title": existing.Title})
	h.hub.Broadcast(ws.NewMessage("job", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
