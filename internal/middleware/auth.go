package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/mbstudio/backstage/internal/auth"
	"github.com/mbstudio/backstage/internal/store"
)

const sessionCookieName = "backstage_session"

// SessionCookieName is exposed for the login/logout handlers.
func SessionCookieName() string { return sessionCookieName }

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
}

func forbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	json.NewEncoder(w).Encode(map[string]string{"error": "forbidden"})
}

// RequireAuth validates the session cookie, loads the user and their
// permission matrix, and populates AuthContext for downstream handlers.
func RequireAuth(sessions *store.SessionStore, users *store.UserStore, perms *store.PermissionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			sess, err := sessions.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				unauthorized(w)
				return
			}

			user, err := users.GetByID(sess.UserID)
			if err != nil || user == nil || !user.IsActive {
				unauthorized(w)
				return
			}

			role, err := perms.GetRoleByID(user.RoleID)
			if err != nil || role == nil {
				unauthorized(w)
				return
			}
			matrix, err := perms.Matrix(user.RoleID)
			if err != nil {
				unauthorized(w)
				return
			}

			ac := auth.AuthContext{
				UserID:    user.ID,
				Email:     user.Email,
				RoleID:    user.RoleID,
				RoleName:  role.Name,
				IPAddress: RealIP(r),
				Perms:     matrix,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission checks the permission matrix for one section/action pair.
func RequirePermission(section, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.Can(r.Context(), section, action) {
				forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin checks that the authenticated user has the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAdmin(r.Context()) {
			forbidden(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
