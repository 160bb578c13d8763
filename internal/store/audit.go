package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/mbstudio/backstage/internal/auth"
	"github.com/mbstudio/backstage/internal/model"
)

type AuditStore struct {
	db *sql.DB
}

func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

func scanAuditLog(scanner interface{ Scan(...any) error }) (*model.AuditLog, error) {
	var a model.AuditLog
	var userID sql.NullString
	var details string

	err := scanner.Scan(
		&a.ID, &userID, &a.UserEmail, &a.Action, &a.EntityType,
		&a.EntityID, &details, &a.IPAddress, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		a.UserID = &userID.String
	}
	if details != "" {
		// Corrupt details should never make the log unreadable.
		_ = json.Unmarshal([]byte(details), &a.Details)
	}
	return &a, nil
}

const auditCols = `id, user_id, user_email, action, entity_type, entity_id, details, ip_address, created_at`

// Record writes one audit entry, attributing it to the authenticated user on
// the context when present. Satisfies checklist.AuditSink.
func (s *AuditStore) Record(ctx context.Context, action, entityType, entityID string, details map[string]any) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	var userID sql.NullString
	var email, ip string
	if ac, ok := auth.FromContext(ctx); ok {
		userID = sql.NullString{String: ac.UserID, Valid: true}
		email = ac.Email
		ip = ac.IPAddress
	}

	_, err = s.db.Exec(
		`INSERT INTO audit_logs (id, user_id, user_email, action, entity_type, entity_id, details, ip_address)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), userID, email, action, entityType, entityID, string(payload), ip,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

type AuditFilter struct {
	EntityType string
	Action     string
	Limit      int
}

func (s *AuditStore) List(f AuditFilter) ([]model.AuditLog, error) {
	query := `SELECT ` + auditCols + ` FROM audit_logs WHERE 1=1`
	var args []any
	if f.EntityType != "" {
		query += ` AND entity_type = ?`
		args = append(args, f.EntityType)
	}
	if f.Action != "" {
		query += ` AND action = ?`
		args = append(args, f.Action)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if f.Limit <= 0 {
		f.Limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, f.Limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []model.AuditLog
	for rows.Next() {
		a, err := scanAuditLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, *a)
	}
	return logs, rows.Err()
}

// ListByEntity returns the trail for one entity, newest first.
func (s *AuditStore) ListByEntity(entityType, entityID string) ([]model.AuditLog, error) {
	rows, err := s.db.Query(
		`SELECT `+auditCols+` FROM audit_logs WHERE entity_type = ? AND entity_id = ? ORDER BY created_at DESC, id DESC`,
		entityType, entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit by entity: %w", err)
	}
	defer rows.Close()

	var logs []model.AuditLog
	for rows.Next() {
		a, err := scanAuditLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, *a)
	}
	return logs, rows.Err()
}
