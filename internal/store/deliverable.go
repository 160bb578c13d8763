package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mbstudio/backstage/internal/model"
)

type DeliverableStore struct {
	db *sql.DB
}

func NewDeliverableStore(db *sql.DB) *DeliverableStore {
	return &DeliverableStore{db: db}
}

func scanDeliverable(scanner interface{ Scan(...any) error }) (*model.Deliverable, error) {
	var d model.Deliverable
	var completedAt sql.NullTime

	err := scanner.Scan(
		&d.ID, &d.JobID, &d.Title, &d.Category, &d.Description,
		&d.Status, &d.DueDate, &d.DueTime, &completedAt,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		d.CompletedAt = &completedAt.Time
	}
	return &d, nil
}

const deliverableCols = `id, job_id, title, category, description, status, due_date, due_time, completed_at, created_at, updated_at`

type DeliverableParams struct {
	Title       string
	Category    model.DeliverableCategory
	Description string
	DueDate     string
	DueTime     string
}

func (s *DeliverableStore) Create(jobID string, p DeliverableParams) (*model.Deliverable, error) {
	if p.Category == "" {
		p.Category = model.CategoryOther
	}
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO deliverables (id, job_id, title, category, description, due_date, due_time) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, jobID, p.Title, p.Category, p.Description, p.DueDate, p.DueTime,
	)
	if err != nil {
		return nil, fmt.Errorf("insert deliverable: %w", err)
	}
	return s.GetByID(id)
}

func (s *DeliverableStore) GetByID(id string) (*model.Deliverable, error) {
	row := s.db.QueryRow(`SELECT `+deliverableCols+` FROM deliverables WHERE id = ?`, id)
	d, err := scanDeliverable(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get deliverable: %w", err)
	}
	return d, nil
}

// ListByJob returns the job's deliverables with their checklist items nested.
// Deliverables are in creation order; items are ordered by sort_order with id
// as the deterministic tiebreak.
func (s *DeliverableStore) ListByJob(jobID string) ([]model.Deliverable, error) {
	rows, err := s.db.Query(
		`SELECT `+deliverableCols+` FROM deliverables WHERE job_id = ? ORDER BY created_at ASC, id ASC`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("list deliverables: %w", err)
	}
	defer rows.Close()

	var deliverables []model.Deliverable
	byID := make(map[string]int)
	for rows.Next() {
		d, err := scanDeliverable(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deliverable: %w", err)
		}
		byID[d.ID] = len(deliverables)
		deliverables = append(deliverables, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(deliverables) == 0 {
		return nil, nil
	}

	itemRows, err := s.db.Query(
		`SELECT `+checklistItemCols+` FROM deliverable_checklist_items
		 WHERE deliverable_id IN (SELECT id FROM deliverables WHERE job_id = ?)
		 ORDER BY sort_order ASC, id ASC`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("list checklist items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		item, err := scanChecklistItem(itemRows)
		if err != nil {
			return nil, fmt.Errorf("scan checklist item: %w", err)
		}
		if idx, ok := byID[item.DeliverableID]; ok {
			deliverables[idx].ChecklistItems = append(deliverables[idx].ChecklistItems, *item)
		}
	}
	return deliverables, itemRows.Err()
}

func (s *DeliverableStore) Update(id string, p DeliverableParams) (*model.Deliverable, error) {
	_, err := s.db.Exec(
		`UPDATE deliverables SET title = ?, category = ?, description = ?, due_date = ?, due_time = ?, updated_at = datetime('now') WHERE id = ?`,
		p.Title, p.Category, p.Description, p.DueDate, p.DueTime, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update deliverable: %w", err)
	}
	return s.GetByID(id)
}

// SetDeliverableStatus writes the derived status and completion timestamp.
// Used by the checklist commit coordinator; the status column is never
// hand-edited while checklist items exist.
func (s *DeliverableStore) SetDeliverableStatus(id string, status string, completedAt *time.Time) error {
	var ca sql.NullTime
	if completedAt != nil {
		ca = sql.NullTime{Time: completedAt.UTC(), Valid: true}
	}
	_, err := s.db.Exec(
		`UPDATE deliverables SET status = ?, completed_at = ?, updated_at = datetime('now') WHERE id = ?`,
		status, ca, id,
	)
	if err != nil {
		return fmt.Errorf("set deliverable status: %w", err)
	}
	return nil
}

func (s *DeliverableStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM deliverables WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete deliverable: %w", err)
	}
	return nil
}

// ListDueOn returns deliverables due on the given date (YYYY-MM-DD) that are
// not yet delivered. Feeds the reminder scheduler.
func (s *DeliverableStore) ListDueOn(date string) ([]model.Deliverable, error) {
	rows, err := s.db.Query(
		`SELECT `+deliverableCols+` FROM deliverables WHERE due_date = ? AND status != 'delivered' ORDER BY due_time ASC, id ASC`,
		date,
	)
	if err != nil {
		return nil, fmt.Errorf("list deliverables due: %w", err)
	}
	defer rows.Close()

	var deliverables []model.Deliverable
	for rows.Next() {
		d, err := scanDeliverable(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deliverable: %w", err)
		}
		deliverables = append(deliverables, *d)
	}
	return deliverables, rows.Err()
}

// --- Checklist item methods ---

func scanChecklistItem(scanner interface{ Scan(...any) error }) (*model.ChecklistItem, error) {
	var c model.ChecklistItem
	var completedAt sql.NullTime
	var budget sql.NullFloat64

	err := scanner.Scan(
		&c.ID, &c.DeliverableID, &c.Label, &c.Completed, &completedAt,
		&c.DueDate, &c.DueTime, &c.Details, &budget, &c.SortOrder,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		c.CompletedAt = &completedAt.Time
	}
	if budget.Valid {
		c.Budget = &budget.Float64
	}
	return &c, nil
}

const checklistItemCols = `id, deliverable_id, label, completed, completed_at, due_date, due_time, details, budget, sort_order, created_at, updated_at`

type ChecklistItemParams struct {
	Label   string
	Details string
	DueDate string
	DueTime string
	Budget  *float64
}

// CreateItem appends a checklist item at the end of the deliverable's order.
func (s *DeliverableStore) CreateItem(deliverableID string, p ChecklistItemParams) (*model.ChecklistItem, error) {
	var budget sql.NullFloat64
	if p.Budget != nil {
		budget = sql.NullFloat64{Float64: *p.Budget, Valid: true}
	}

	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO deliverable_checklist_items (id, deliverable_id, label, details, due_date, due_time, budget, sort_order)
		 VALUES (?, ?, ?, ?, ?, ?, ?,
		   (SELECT COALESCE(MAX(sort_order) + 1, 0) FROM deliverable_checklist_items WHERE deliverable_id = ?))`,
		id, deliverableID, p.Label, p.Details, p.DueDate, p.DueTime, budget, deliverableID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert checklist item: %w", err)
	}
	return s.GetItemByID(id)
}

func (s *DeliverableStore) GetItemByID(id string) (*model.ChecklistItem, error) {
	row := s.db.QueryRow(`SELECT `+checklistItemCols+` FROM deliverable_checklist_items WHERE id = ?`, id)
	c, err := scanChecklistItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checklist item: %w", err)
	}
	return c, nil
}

func (s *DeliverableStore) ListItems(deliverableID string) ([]model.ChecklistItem, error) {
	rows, err := s.db.Query(
		`SELECT `+checklistItemCols+` FROM deliverable_checklist_items WHERE deliverable_id = ? ORDER BY sort_order ASC, id ASC`,
		deliverableID,
	)
	if err != nil {
		return nil, fmt.Errorf("list checklist items: %w", err)
	}
	defer rows.Close()

	var items []model.ChecklistItem
	for rows.Next() {
		c, err := scanChecklistItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checklist item: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// SetItemCompleted writes one item's completed flag and completion timestamp.
// Used by the checklist commit coordinator.
func (s *DeliverableStore) SetItemCompleted(id string, completed bool, completedAt *time.Time) error {
	var ca sql.NullTime
	if completedAt != nil {
		ca = sql.NullTime{Time: completedAt.UTC(), Valid: true}
	}
	_, err := s.db.Exec(
		`UPDATE deliverable_checklist_items SET completed = ?, completed_at = ?, updated_at = datetime('now') WHERE id = ?`,
		completed, ca, id,
	)
	if err != nil {
		return fmt.Errorf("set item completed: %w", err)
	}
	return nil
}

func (s *DeliverableStore) UpdateItem(id string, p ChecklistItemParams) (*model.ChecklistItem, error) {
	var budget sql.NullFloat64
	if p.Budget != nil {
		budget = sql.NullFloat64{Float64: *p.Budget, Valid: true}
	}
	_, err := s.db.Exec(
		`UPDATE deliverable_checklist_items SET label = ?, details = ?, due_date = ?, due_time = ?, budget = ?, updated_at = datetime('now') WHERE id = ?`,
		p.Label, p.Details, p.DueDate, p.DueTime, budget, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update checklist item: %w", err)
	}
	return s.GetItemByID(id)
}

func (s *DeliverableStore) DeleteItem(id string) error {
	_, err := s.db.Exec(`DELETE FROM deliverable_checklist_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete checklist item: %w", err)
	}
	return nil
}

// ReorderItems rewrites sort positions to match the given id order.
func (s *DeliverableStore) ReorderItems(deliverableID string, ids []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for i, id := range ids {
		if _, err := tx.Exec(
			`UPDATE deliverable_checklist_items SET sort_order = ? WHERE id = ? AND deliverable_id = ?`,
			i, id, deliverableID,
		); err != nil {
			return fmt.Errorf("update sort order: %w", err)
		}
	}
	return tx.Commit()
}

// ListItemsDueOn returns incomplete checklist items due on the given date.
func (s *DeliverableStore) ListItemsDueOn(date string) ([]model.ChecklistItem, error) {
	rows, err := s.db.Query(
		`SELECT `+checklistItemCols+` FROM deliverable_checklist_items WHERE due_date = ? AND completed = 0 ORDER BY due_time ASC, id ASC`,
		date,
	)
	if err != nil {
		return nil, fmt.Errorf("list items due: %w", err)
	}
	defer rows.Close()

	var items []model.ChecklistItem
	for rows.Next() {
		c, err := scanChecklistItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checklist item: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}
