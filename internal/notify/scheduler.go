package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mbstudio/backstage/internal/model"
	"github.com/mbstudio/backstage/internal/store"
)

// Scheduler periodically checks for deliverables and checklist items coming
// due and fans out in-app plus web push notifications.
type Scheduler struct {
	mu            sync.RWMutex
	service       *Service
	notifications *store.NotificationStore
	deliverables  *store.DeliverableStore
	users         *store.UserStore
	logger        *slog.Logger
	interval      time.Duration
	cancel        context.CancelFunc
	done          chan struct{}
}

// NewScheduler creates a notification scheduler.
func NewScheduler(svc *Service, notifications *store.NotificationStore, deliverables *store.DeliverableStore, users *store.UserStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		service:       svc,
		notifications: notifications,
		deliverables:  deliverables,
		users:         users,
		logger:        logger.With("component", "scheduler"),
		interval:      60 * time.Second,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(time.Now().UTC())
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(now time.Time) {
	// Due-date reminders go out once, in the morning sweep.
	if now.Hour() != 8 || now.Minute() != 0 {
		return
	}
	s.checkDeliverablesDue(now)
	s.checkChecklistItemsDue(now)
}

func (s *Scheduler) checkDeliverablesDue(now time.Time) {
	today := now.Format("2006-01-02")
	due, err := s.deliverables.ListDueOn(today)
	if err != nil {
		s.logger.Error("list deliverables due", "error", err)
		return
	}

	for _, d := range due {
		title := "Deliverable due today"
		body := fmt.Sprintf("%q is due today", d.Title)
		if d.DueTime != "" {
			body = fmt.Sprintf("%q is due today at %s", d.Title, d.DueTime)
		}
		s.fanOut(model.NotifTypeDeliverableDue, d.ID, title, body, "deliverable", d.ID, fmt.Sprintf("/jobs/%s", d.JobID))
	}
}

func (s *Scheduler) checkChecklistItemsDue(now time.Time) {
	today := now.Format("2006-01-02")
	items, err := s.deliverables.ListItemsDueOn(today)
	if err != nil {
		s.logger.Error("list checklist items due", "error", err)
		return
	}

	for _, item := range items {
		title := "Checklist item due today"
		body := fmt.Sprintf("%q is due today", item.Label)
		if item.DueTime != "" {
			body = fmt.Sprintf("%q is due today at %s", item.Label, item.DueTime)
		}
		s.fanOut(model.NotifTypeChecklistDue, item.ID, title, body, "deliverable", item.DeliverableID, "")
	}
}

// fanOut creates an in-app notification and sends a push to every active
// user, deduplicated per user and reference.
func (s *Scheduler) fanOut(notifType, referenceID, title, body, entityType, entityID, url string) {
	users, err := s.users.List()
	if err != nil {
		s.logger.Error("list users", "error", err)
		return
	}

	payload := Payload{
		Title: title,
		Body:  body,
		URL:   url,
		Tag:   fmt.Sprintf("%s-%s", notifType, referenceID),
	}

	for _, u := range users {
		if !u.IsActive {
			continue
		}

		sent, err := s.notifications.WasSent(u.ID, notifType, referenceID)
		if err != nil {
			s.logger.Error("check push log", "error", err, "user_id", u.ID)
			continue
		}
		if sent {
			continue
		}

		if _, err := s.notifications.Create(u.ID, title, body, notifType, entityType, entityID); err != nil {
			s.logger.Error("create notification", "error", err, "user_id", u.ID)
		}

		subs, err := s.notifications.ListSubscriptions(u.ID)
		if err != nil {
			s.logger.Error("list subscriptions", "error", err, "user_id", u.ID)
			continue
		}
		for i := range subs {
			if err := s.service.Send(&subs[i], payload); err != nil {
				if errors.Is(err, ErrExpired) {
					if err := s.notifications.DeleteSubscription(subs[i].Endpoint); err != nil {
						s.logger.Error("prune expired subscription", "error", err)
					}
				} else {
					s.logger.Warn("send push", "error", err, "user_id", u.ID)
				}
			}
		}

		if err := s.notifications.MarkSent(u.ID, notifType, referenceID); err != nil {
			s.logger.Error("record push log", "error", err, "user_id", u.ID)
		}
	}
}
