package model

import "time"

// HomeConfig is one key of the public landing page content, grouped by section.
type HomeConfig struct {
	ID        string    `json:"id"`
	Section   string    `json:"section"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
