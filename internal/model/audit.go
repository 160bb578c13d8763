package model

import "time"

type AuditLog struct {
	ID         string         `json:"id"`
	UserID     *string        `json:"user_id,omitempty"`
	UserEmail  string         `json:"user_email,omitempty"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	IPAddress  string         `json:"ip_address,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
