package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/mbstudio/backstage/internal/auth"
	"github.com/mbstudio/backstage/internal/backup"
	"github.com/mbstudio/backstage/internal/handler"
	"github.com/mbstudio/backstage/internal/middleware"
	"github.com/mbstudio/backstage/internal/notify"
	"github.com/mbstudio/backstage/internal/store"
	ws "github.com/mbstudio/backstage/internal/websocket"
)

type Config struct {
	Port            string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	PushSubscriber  string
	Backup          backup.Config
}

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	authH         *handler.AuthHandler
	jobH          *handler.JobHandler
	deliverableH  *handler.DeliverableHandler
	userH         *handler.UserHandler
	permissionH   *handler.PermissionHandler
	auditH        *handler.AuditHandler
	homeConfigH   *handler.HomeConfigHandler
	notificationH *handler.NotificationHandler
	backupH       *handler.BackupHandler
	sessionStore  *store.SessionStore
	userStore     *store.UserStore
	permStore     *store.PermissionStore
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	pushService   *notify.Service
	pushScheduler *notify.Scheduler
	logger        *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	permStore := store.NewPermissionStore(db)
	jobStore := store.NewJobStore(db)
	deliverableStore := store.NewDeliverableStore(db)
	auditStore := store.NewAuditStore(db)
	homeConfigStore := store.NewHomeConfigStore(db)
	notificationStore := store.NewNotificationStore(db)

	backupMgr := backup.NewManager(cfg.Backup, db, logger.With("component", "backup"), func(st backup.Status) {
		hub.Broadcast(ws.Message{
			Type:   "backup_status",
			Entity: "backup",
			Action: string(st.State),
			Extra: map[string]any{
				"in_progress": st.InProgress,
				"error":       st.Error,
			},
		})
	})

	var pushSvc *notify.Service
	var pushSched *notify.Scheduler
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		pushSvc = notify.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.PushSubscriber)
		pushSched = notify.NewScheduler(pushSvc, notificationStore, deliverableStore, userStore, logger.With("component", "scheduler"))
	}

	return &Server{
		db:            db,
		hub:           hub,
		authH:         handler.NewAuthHandler(userStore, sessionStore, permStore, auditStore, logger.With("component", "auth")),
		jobH:          handler.NewJobHandler(jobStore, deliverableStore, auditStore, hub, logger.With("component", "job")),
		deliverableH:  handler.NewDeliverableHandler(deliverableStore, jobStore, auditStore, hub, logger.With("component", "deliverable")),
		userH:         handler.NewUserHandler(userStore, permStore, auditStore, logger.With("component", "user")),
		permissionH:   handler.NewPermissionHandler(permStore, auditStore, logger.With("component", "permission")),
		auditH:        handler.NewAuditHandler(auditStore),
		homeConfigH:   handler.NewHomeConfigHandler(homeConfigStore, auditStore, logger.With("component", "home")),
		notificationH: handler.NewNotificationHandler(notificationStore, pushSvc, logger.With("component", "notification")),
		backupH:       handler.NewBackupHandler(backupMgr, auditStore, logger.With("component", "backup_handler")),
		sessionStore:  sessionStore,
		userStore:     userStore,
		permStore:     permStore,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		pushService:   pushSvc,
		pushScheduler: pushSched,
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// PushScheduler returns the notification scheduler, nil when push is not
// configured.
func (s *Server) PushScheduler() *notify.Scheduler {
	return s.pushScheduler
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /api/home", s.homeConfigH.Sections)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore, s.permStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

// can wraps a handler with a section/action permission check.
func can(section, action string, h http.HandlerFunc) http.Handler {
	return middleware.RequirePermission(section, action)(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Auth routes that require authentication
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)
	mux.HandleFunc("POST /api/auth/change-password", s.authH.ChangePassword)

	// Job API routes
	mux.Handle("GET /api/jobs", can("jobs", auth.ActionRead, s.jobH.List))
	mux.Handle("POST /api/jobs", can("jobs", auth.ActionCreate, s.jobH.Create))
	mux.Handle("GET /api/jobs/{id}", can("jobs", auth.ActionRead, s.jobH.Get))
	mux.Handle("PUT /api/jobs/{id}", can("jobs", auth.ActionUpdate, s.jobH.Update))
	mux.Handle("DELETE /api/jobs/{id}", can("jobs", auth.ActionDelete, s.jobH.Delete))

	// Deliverable API routes
	mux.Handle("POST /api/jobs/{id}/deliverables", can("jobs", auth.ActionCreate, s.deliverableH.Create))
	mux.Handle("PUT /api/deliverables/{id}", can("jobs", auth.ActionUpdate, s.deliverableH.Update))
	mux.Handle("DELETE /api/deliverables/{id}", can("jobs", auth.ActionDelete, s.deliverableH.Delete))

	// Checklist item API routes
	mux.Handle("POST /api/deliverables/{id}/items", can("jobs", auth.ActionCreate, s.deliverableH.CreateItem))
	mux.Handle("PUT /api/checklist-items/{id}", can("jobs", auth.ActionUpdate, s.deliverableH.UpdateItem))
	mux.Handle("DELETE /api/checklist-items/{id}", can("jobs", auth.ActionDelete, s.deliverableH.DeleteItem))
	mux.Handle("PUT /api/deliverables/{id}/items/reorder", can("jobs", auth.ActionUpdate, s.deliverableH.ReorderItems))

	// Checklist commit
	mux.Handle("POST /api/jobs/{id}/checklist/commit", can("jobs", auth.ActionUpdate, s.deliverableH.CommitChecklist))

	// User management API routes
	mux.Handle("GET /api/users", can("users", auth.ActionRead, s.userH.List))
	mux.Handle("POST /api/users", can("users", auth.ActionCreate, s.userH.Create))
	mux.Handle("PUT /api/users/{id}", can("users", auth.ActionUpdate, s.userH.Update))
	mux.Handle("PUT /api/users/{id}/active", can("users", auth.ActionUpdate, s.userH.SetActive))
	mux.Handle("DELETE /api/users/{id}", can("users", auth.ActionDelete, s.userH.Delete))

	// Role and permission API routes (admin only)
	mux.Handle("GET /api/roles", middleware.RequireAdmin(http.HandlerFunc(s.permissionH.ListRoles)))
	mux.Handle("POST /api/roles", middleware.RequireAdmin(http.HandlerFunc(s.permissionH.CreateRole)))
	mux.Handle("GET /api/roles/{id}/permissions", middleware.RequireAdmin(http.HandlerFunc(s.permissionH.GetMatrix)))
	mux.Handle("PUT /api/roles/{id}/permissions", middleware.RequireAdmin(http.HandlerFunc(s.permissionH.UpdateMatrix)))

	// Audit log API routes
	mux.Handle("GET /api/audit", can("audit", auth.ActionRead, s.auditH.List))
	mux.Handle("GET /api/audit/{type}/{id}", can("audit", auth.ActionRead, s.auditH.ListByEntity))

	// Home page configuration (admin writes, public reads via outer mux)
	mux.Handle("PUT /api/home", can("home", auth.ActionUpdate, s.homeConfigH.Set))
	mux.Handle("DELETE /api/home/{section}/{key}", can("home", auth.ActionDelete, s.homeConfigH.Delete))

	// Notification API routes
	mux.HandleFunc("GET /api/notifications", s.notificationH.List)
	mux.HandleFunc("POST /api/notifications/{id}/read", s.notificationH.MarkRead)
	mux.HandleFunc("POST /api/notifications/read-all", s.notificationH.MarkAllRead)
	mux.HandleFunc("GET /api/push/vapid-key", s.notificationH.VAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.notificationH.Subscribe)
	mux.HandleFunc("POST /api/push/unsubscribe", s.notificationH.Unsubscribe)

	// Backup API routes (admin only)
	mux.Handle("GET /api/backup/status", middleware.RequireAdmin(http.HandlerFunc(s.backupH.Status)))
	mux.Handle("POST /api/backup/run", middleware.RequireAdmin(http.HandlerFunc(s.backupH.RunNow)))

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))
}
