package auth

import (
	"context"

	"github.com/mbstudio/backstage/internal/model"
)

type contextKey struct{}

type AuthContext struct {
	UserID    string
	Email     string
	RoleID    string
	RoleName  string
	IPAddress string
	Perms     map[string]model.Permission
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.UserID
}

func IsAdmin(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.RoleName == "admin"
}

// Action names accepted by Can.
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Can reports whether the authenticated user may perform action on section.
// Admins pass every check.
func Can(ctx context.Context, section, action string) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	if ac.RoleName == "admin" {
		return true
	}
	p, ok := ac.Perms[section]
	if !ok {
		return false
	}
	switch action {
	case ActionCreate:
		return p.CanCreate
	case ActionRead:
		return p.CanRead
	case ActionUpdate:
		return p.CanUpdate
	case ActionDelete:
		return p.CanDelete
	default:
		return false
	}
}
