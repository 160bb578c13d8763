package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mbstudio/backstage/internal/model"
)

type JobStore struct {
	db *sql.DB
}

func NewJobStore(db *sql.DB) *JobStore {
	return &JobStore{db: db}
}

func scanJob(scanner interface{ Scan(...any) error }) (*model.Job, error) {
	var j model.Job
	var budget sql.NullFloat64
	var createdBy sql.NullString

	err := scanner.Scan(
		&j.ID, &j.Title, &j.Brand, &j.Description, &j.Scope,
		&j.StartDate, &j.EndDate, &j.Status, &j.Briefing, &j.Brainstorm,
		&budget, &createdBy, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if budget.Valid {
		j.Budget = &budget.Float64
	}
	if createdBy.Valid {
		j.CreatedBy = &createdBy.String
	}
	return &j, nil
}

const jobCols = `id, title, brand, description, scope, start_date, end_date, status, briefing, brainstorm, budget, created_by, created_at, updated_at`

type JobParams struct {
	Title       string
	Brand       string
	Description string
	Scope       string
	StartDate   string
	EndDate     string
	Status      model.JobStatus
	Briefing    string
	Brainstorm  string
	Budget      *float64
}

func (s *JobStore) Create(p JobParams, createdBy *string) (*model.Job, error) {
	var budget sql.NullFloat64
	if p.Budget != nil {
		budget = sql.NullFloat64{Float64: *p.Budget, Valid: true}
	}
	var creator sql.NullString
	if createdBy != nil {
		creator = sql.NullString{String: *createdBy, Valid: true}
	}
	if p.Status == "" {
		p.Status = model.JobOpen
	}

	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO jobs (id, title, brand, description, scope, start_date, end_date, status, briefing, brainstorm, budget, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.Title, p.Brand, p.Description, p.Scope, p.StartDate, p.EndDate, p.Status, p.Briefing, p.Brainstorm, budget, creator,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.GetByID(id)
}

func (s *JobStore) GetByID(id string) (*model.Job, error) {
	row := s.db.QueryRow(`SELECT `+jobCols+` FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (s *JobStore) List() ([]model.Job, error) {
	rows, err := s.db.Query(`SELECT ` + jobCols + ` FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// JobProgress is a job row plus rolled-up checklist counts for list views.
type JobProgress struct {
	model.Job
	DeliverableCount int `json:"deliverable_count"`
	ItemsDone        int `json:"items_done"`
	ItemsTotal       int `json:"items_total"`
}

const jobProgressCols = jobCols + `,
	(SELECT COUNT(*) FROM deliverables d WHERE d.job_id = jobs.id) AS deliverable_count,
	(SELECT COUNT(*) FROM deliverable_checklist_items i
	   JOIN deliverables d ON i.deliverable_id = d.id
	  WHERE d.job_id = jobs.id AND i.completed = 1) AS items_done,
	(SELECT COUNT(*) FROM deliverable_checklist_items i
	   JOIN deliverables d ON i.deliverable_id = d.id
	  WHERE d.job_id = jobs.id) AS items_total`

func scanJobProgress(scanner interface{ Scan(...any) error }) (*JobProgress, error) {
	var jp JobProgress
	var budget sql.NullFloat64
	var createdBy sql.NullString

	err := scanner.Scan(
		&jp.ID, &jp.Title, &jp.Brand, &jp.Description, &jp.Scope,
		&jp.StartDate, &jp.EndDate, &jp.Status, &jp.Briefing, &jp.Brainstorm,
		&budget, &createdBy, &jp.CreatedAt, &jp.UpdatedAt,
		&jp.DeliverableCount, &jp.ItemsDone, &jp.ItemsTotal,
	)
	if err != nil {
		return nil, err
	}

	if budget.Valid {
		jp.Budget = &budget.Float64
	}
	if createdBy.Valid {
		jp.CreatedBy = &createdBy.String
	}
	return &jp, nil
}

// ListWithProgress returns jobs newest first with deliverable and checklist
// item counts, optionally filtered by status.
func (s *JobStore) ListWithProgress(status model.JobStatus) ([]JobProgress, error) {
	query := `SELECT ` + jobProgressCols + ` FROM jobs`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs with progress: %w", err)
	}
	defer rows.Close()

	var jobs []JobProgress
	for rows.Next() {
		jp, err := scanJobProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job progress: %w", err)
		}
		jobs = append(jobs, *jp)
	}
	return jobs, rows.Err()
}

func (s *JobStore) ListByStatus(status model.JobStatus) ([]model.Job, error) {
	rows, err := s.db.Query(
		`SELECT `+jobCols+` FROM jobs WHERE status = ? ORDER BY created_at DESC`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs by status: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

func (s *JobStore) Update(id string, p JobParams) (*model.Job, error) {
	var budget sql.NullFloat64
	if p.Budget != nil {
		budget = sql.NullFloat64{Float64: *p.Budget, Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE jobs SET title = ?, brand = ?, description = ?, scope = ?, start_date = ?, end_date = ?,
		 status = ?, briefing = ?, brainstorm = ?, budget = ?, updated_at = datetime('now') WHERE id = ?`,
		p.Title, p.Brand, p.Description, p.Scope, p.StartDate, p.EndDate, p.Status, p.Briefing, p.Brainstorm, budget, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	return s.GetByID(id)
}

func (s *JobStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}
