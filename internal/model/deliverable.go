package model

import "time"

type DeliverableCategory string

const (
	CategoryMedia       DeliverableCategory = "media"
	CategoryCapture     DeliverableCategory = "capture"
	CategoryAdvertising DeliverableCategory = "advertising"
	CategoryEvent       DeliverableCategory = "event"
	CategoryOther       DeliverableCategory = "other"
)

type Deliverable struct {
	ID          string              `json:"id"`
	JobID       string              `json:"job_id"`
	Title       string              `json:"title"`
	Category    DeliverableCategory `json:"category"`
	Description string              `json:"description,omitempty"`
	Status      string              `json:"status"`
	DueDate     string              `json:"due_date,omitempty"`
	DueTime     string              `json:"due_time,omitempty"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`

	// ChecklistItems is populated on the job detail load path, ordered by
	// sort_order then id.
	ChecklistItems []ChecklistItem `json:"checklist_items,omitempty"`
}

type ChecklistItem struct {
	ID            string     `json:"id"`
	DeliverableID string     `json:"deliverable_id"`
	Label         string     `json:"label"`
	Completed     bool       `json:"completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	DueDate       string     `json:"due_date,omitempty"`
	DueTime       string     `json:"due_time,omitempty"`
	Details       string     `json:"details,omitempty"`
	Budget        *float64   `json:"budget,omitempty"`
	SortOrder     int        `json:"sort_order"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
