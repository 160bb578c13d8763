package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mbstudio/backstage/internal/model"
)

type PermissionStore struct {
	db *sql.DB
}

func NewPermissionStore(db *sql.DB) *PermissionStore {
	return &PermissionStore{db: db}
}

func scanRole(scanner interface{ Scan(...any) error }) (*model.Role, error) {
	var r model.Role
	err := scanner.Scan(&r.ID, &r.Name, &r.Description, &r.IsSystem, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const roleCols = `id, name, description, is_system, created_at`

func (s *PermissionStore) ListRoles() ([]model.Role, error) {
	rows, err := s.db.Query(`SELECT ` + roleCols + ` FROM roles ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, *r)
	}
	return roles, rows.Err()
}

func (s *PermissionStore) GetRoleByID(id string) (*model.Role, error) {
	row := s.db.QueryRow(`SELECT `+roleCols+` FROM roles WHERE id = ?`, id)
	r, err := scanRole(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get role: %w", err)
	}
	return r, nil
}

func (s *PermissionStore) CreateRole(name, description string) (*model.Role, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO roles (id, name, description) VALUES (?, ?, ?)`,
		id, name, description,
	)
	if err != nil {
		return nil, fmt.Errorf("insert role: %w", err)
	}
	return s.GetRoleByID(id)
}

func scanPermission(scanner interface{ Scan(...any) error }) (*model.Permission, error) {
	var p model.Permission
	err := scanner.Scan(&p.ID, &p.RoleID, &p.Section, &p.CanCreate, &p.CanRead, &p.CanUpdate, &p.CanDelete)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const permissionCols = `id, role_id, section, can_create, can_read, can_update, can_delete`

func (s *PermissionStore) ListByRole(roleID string) ([]model.Permission, error) {
	rows, err := s.db.Query(
		`SELECT `+permissionCols+` FROM permissions WHERE role_id = ? ORDER BY section ASC`,
		roleID,
	)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	defer rows.Close()

	var perms []model.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		perms = append(perms, *p)
	}
	return perms, rows.Err()
}

// Upsert writes one role/section row of the permission matrix.
func (s *PermissionStore) Upsert(roleID, section string, canCreate, canRead, canUpdate, canDelete bool) error {
	_, err := s.db.Exec(
		`INSERT INTO permissions (id, role_id, section, can_create, can_read, can_update, can_delete)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (role_id, section) DO UPDATE SET
		   can_create = excluded.can_create,
		   can_read = excluded.can_read,
		   can_update = excluded.can_update,
		   can_delete = excluded.can_delete`,
		uuid.NewString(), roleID, section, canCreate, canRead, canUpdate, canDelete,
	)
	if err != nil {
		return fmt.Errorf("upsert permission: %w", err)
	}
	return nil
}

// Matrix returns a role's permissions keyed by section, for the auth context.
func (s *PermissionStore) Matrix(roleID string) (map[string]model.Permission, error) {
	perms, err := s.ListByRole(roleID)
	if err != nil {
		return nil, err
	}
	m := make(map[string]model.Permission, len(perms))
	for _, p := range perms {
		m[p.Section] = p
	}
	return m, nil
}
