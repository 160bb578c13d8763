package model

import "time"

type JobStatus string

const (
	JobOpen       JobStatus = "open"
	JobInProgress JobStatus = "in_progress"
	JobFinished   JobStatus = "finished"
	JobCanceled   JobStatus = "canceled"
)

type Job struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Brand       string    `json:"brand"`
	Description string    `json:"description,omitempty"`
	Scope       string    `json:"scope,omitempty"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	Status      JobStatus `json:"status"`
	Briefing    string    `json:"briefing,omitempty"`
	Brainstorm  string    `json:"brainstorm,omitempty"`
	Budget      *float64  `json:"budget,omitempty"`
	CreatedBy   *string   `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
