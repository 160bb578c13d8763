package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mbstudio/backstage/internal/model"
)

type HomeConfigStore struct {
	db *sql.DB
}

func NewHomeConfigStore(db *sql.DB) *HomeConfigStore {
	return &HomeConfigStore{db: db}
}

func (s *HomeConfigStore) List() ([]model.HomeConfig, error) {
	rows, err := s.db.Query(
		`SELECT id, section, key, value, updated_at FROM home_config ORDER BY section ASC, key ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list home config: %w", err)
	}
	defer rows.Close()

	var entries []model.HomeConfig
	for rows.Next() {
		var c model.HomeConfig
		if err := rows.Scan(&c.ID, &c.Section, &c.Key, &c.Value, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan home config: %w", err)
		}
		entries = append(entries, c)
	}
	return entries, rows.Err()
}

// Sections groups the config into section -> key -> value, the shape the
// public landing page consumes.
func (s *HomeConfigStore) Sections() (map[string]map[string]string, error) {
	entries, err := s.List()
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]string)
	for _, c := range entries {
		if out[c.Section] == nil {
			out[c.Section] = make(map[string]string)
		}
		out[c.Section][c.Key] = c.Value
	}
	return out, nil
}

func (s *HomeConfigStore) Set(section, key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO home_config (id, section, key, value) VALUES (?, ?, ?, ?)
		 ON CONFLICT(section, key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')`,
		uuid.NewString(), section, key, value,
	)
	if err != nil {
		return fmt.Errorf("set home config %s/%s: %w", section, key, err)
	}
	return nil
}

func (s *HomeConfigStore) Delete(section, key string) error {
	_, err := s.db.Exec(`DELETE FROM home_config WHERE section = ? AND key = ?`, section, key)
	if err != nil {
		return fmt.Errorf("delete home config %s/%s: %w", section, key, err)
	}
	return nil
}
