package server

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const adminRoleID = "role-admin"

// EnsureAdmin seeds the initial admin account on an empty users table so a
// fresh deployment has a way to log in. It is a no-op when credentials are
// not configured or any user already exists.
func (s *Server) EnsureAdmin(email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	n, err := s.userStore.Count()
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return nil
	}

	if len(password) < 8 {
		return fmt.Errorf("admin password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	user, err := s.userStore.Create(email, "Administrator", "", string(hash), adminRoleID)
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	s.logger.Info("initial admin account created", "email", user.Email)
	return nil
}
