package checklist

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/mbstudio/backstage/internal/model"
)

// Store is the persistence boundary the coordinator writes through.
type Store interface {
	// ListByJob returns the job's deliverables with checklist items nested,
	// items ordered by sort_order then id.
	ListByJob(jobID string) ([]model.Deliverable, error)
	SetItemCompleted(id string, completed bool, completedAt *time.Time) error
	SetDeliverableStatus(id string, status string, completedAt *time.Time) error
}

// AuditSink records audit trail entries. Failures are best-effort telemetry
// and never abort the surrounding commit.
type AuditSink interface {
	Record(ctx context.Context, action, entityType, entityID string, details map[string]any) error
}

// WriteResult is the outcome of one attempted persistence write.
type WriteResult struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Err        error  `json:"-"`
	Error      string `json:"error,omitempty"`
}

// Report summarizes a batch save: which writes applied, which failed, and the
// statuses the touched deliverables ended on.
type Report struct {
	Applied  int               `json:"applied"`
	Failed   []WriteResult     `json:"failed,omitempty"`
	Statuses map[string]Status `json:"statuses"`
}

// Hooks carry the caller's presentation-state callbacks. Snapshot runs before
// the post-commit reload, Restore after it, so the reload never visibly
// resets the user's place. Either may be nil.
type Hooks struct {
	Snapshot func()
	Restore  func()
}

const (
	reloadAttempts = 3
	reloadBackoff  = 200 * time.Millisecond
)

// Coordinator turns a session's ledger into durable writes: one update per
// changed item, one status update per touched deliverable, audit entries for
// both, then a reload of authoritative state. Writes are independent; a
// failure is recorded and the batch continues. There is no rollback.
type Coordinator struct {
	store  Store
	audit  AuditSink
	logger *slog.Logger
	now    func() time.Time
}

func NewCoordinator(store Store, audit AuditSink, logger *slog.Logger) *Coordinator {
	return &Coordinator{store: store, audit: audit, logger: logger, now: time.Now}
}

// Commit applies every pending change in the session, recomputes and persists
// the derived status of each touched deliverable, clears the ledger, and
// reloads the job's deliverables. The session rejects new toggles for the
// whole duration. An error is returned only when the commit could not start
// or the post-commit reload failed; per-write failures land in the Report.
func (c *Coordinator) Commit(ctx context.Context, sess *Session, hooks Hooks) (*Report, error) {
	if !sess.Ledger().IsDirty() {
		return &Report{Statuses: map[string]Status{}}, nil
	}
	if err := sess.beginCommit(); err != nil {
		return nil, err
	}
	defer sess.endCommit()

	changes := sess.Ledger().Changes()
	report := &Report{Statuses: make(map[string]Status)}
	touched := make(map[string]struct{})

	// Walk entries in a stable order so audit trails read deterministically.
	itemIDs := make([]string, 0, len(changes))
	for id := range changes {
		itemIDs = append(itemIDs, id)
	}
	sort.Strings(itemIDs)

	job := sess.Job()

	for _, itemID := range itemIDs {
		completed := changes[itemID]
		item, parent, ok := sess.FindItem(itemID)
		if !ok {
			// Deleted since load. Nothing to write.
			continue
		}

		var completedAt *time.Time
		if completed {
			now := c.now()
			completedAt = &now
		}

		if err := c.store.SetItemCompleted(itemID, completed, completedAt); err != nil {
			c.logger.Error("checklist item update failed", "item_id", itemID, "error", err)
			report.Failed = append(report.Failed, WriteResult{
				EntityType: "checklist_item", EntityID: itemID, Err: err, Error: err.Error(),
			})
		} else {
			report.Applied++
		}

		c.recordAudit(ctx, "update", "checklist_item", itemID, map[string]any{
			"label":             item.Label,
			"completed":         completed,
			"deliverable_title": parent.Title,
			"job_title":         job.Title,
		})

		touched[parent.ID] = struct{}{}
	}

	for _, d := range sess.Deliverables() {
		if _, ok := touched[d.ID]; !ok {
			continue
		}

		done := 0
		for _, item := range d.ChecklistItems {
			if sess.EffectiveState(item) {
				done++
			}
		}
		total := len(d.ChecklistItems)
		newStatus := Derive(Status(d.Status), done, total)
		report.Statuses[d.ID] = newStatus

		var completedAt *time.Time
		if newStatus == StatusDelivered {
			now := c.now()
			completedAt = &now
		}

		if err := c.store.SetDeliverableStatus(d.ID, string(newStatus), completedAt); err != nil {
			c.logger.Error("deliverable status update failed", "deliverable_id", d.ID, "error", err)
			report.Failed = append(report.Failed, WriteResult{
				EntityType: "deliverable", EntityID: d.ID, Err: err, Error: err.Error(),
			})
		} else {
			report.Applied++
		}

		c.recordAudit(ctx, "update", "deliverable", d.ID, map[string]any{
			"title":         d.Title,
			"job_title":     job.Title,
			"status":        string(newStatus),
			"items_done":    done,
			"items_total":   total,
			"progress":      fmt.Sprintf("%d%%", int(math.Round(float64(done)/float64(total)*100))),
			"items_changed": describeChanges(d.ChecklistItems, changes),
		})
	}

	// All writes attempted: the ledger is spent regardless of failures.
	sess.Ledger().Clear()

	if hooks.Snapshot != nil {
		hooks.Snapshot()
	}

	if err := c.reload(ctx, sess); err != nil {
		return report, fmt.Errorf("post-commit reload: %w", err)
	}

	if hooks.Restore != nil {
		hooks.Restore()
	}

	return report, nil
}

// reload fetches the authoritative post-commit state, retrying transient
// failures with capped backoff before giving up.
func (c *Coordinator) reload(ctx context.Context, sess *Session) error {
	backoff := retry.WithMaxRetries(reloadAttempts-1, retry.NewExponential(reloadBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		deliverables, err := c.store.ListByJob(sess.Job().ID)
		if err != nil {
			c.logger.Warn("reload after commit failed", "job_id", sess.Job().ID, "error", err)
			return retry.RetryableError(err)
		}
		sess.Load(deliverables)
		return nil
	})
}

func (c *Coordinator) recordAudit(ctx context.Context, action, entityType, entityID string, details map[string]any) {
	if c.audit == nil {
		return
	}
	if err := c.audit.Record(ctx, action, entityType, entityID, details); err != nil {
		c.logger.Warn("audit record failed", "entity_type", entityType, "entity_id", entityID, "error", err)
	}
}

// describeChanges renders the changed items of one deliverable, e.g.
// "Edit video → done; Send preview → reopened".
func describeChanges(items []model.ChecklistItem, changes map[string]bool) string {
	var parts []string
	for _, item := range items {
		v, ok := changes[item.ID]
		if !ok {
			continue
		}
		state := "reopened"
		if v {
			state = "done"
		}
		parts = append(parts, fmt.Sprintf("%s → %s", item.Label, state))
	}
	return strings.Join(parts, "; ")
}
