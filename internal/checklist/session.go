package checklist

import (
	"errors"
	"sync"

	"github.com/mbstudio/backstage/internal/model"
)

var (
	// ErrCommitting is returned when a toggle arrives while a batch save is
	// being applied. Edits must not interleave with an in-flight commit.
	ErrCommitting = errors.New("checklist: commit in progress")

	// ErrUnknownItem is returned for toggles against items not present in the
	// loaded state, e.g. deleted by another session.
	ErrUnknownItem = errors.New("checklist: unknown checklist item")
)

// Session holds the editing state for one job's checklist page: the loaded
// deliverables with their items, and the ledger of uncommitted toggles. The
// core owns this state; presentation state (expanded rows, scroll) stays with
// the caller, which passes snapshot/restore hooks into Commit instead.
type Session struct {
	mu           sync.Mutex
	job          model.Job
	deliverables []model.Deliverable
	ledger       *Ledger
	committing   bool
}

func NewSession(job model.Job) *Session {
	return &Session{job: job, ledger: NewLedger()}
}

// Load replaces the item store with freshly fetched deliverables and discards
// any in-flight edits. A freshly loaded checklist always starts clean.
func (s *Session) Load(deliverables []model.Deliverable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliverables = deliverables
	s.ledger.Clear()
}

func (s *Session) Job() model.Job {
	return s.job
}

func (s *Session) Deliverables() []model.Deliverable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deliverables
}

func (s *Session) Ledger() *Ledger {
	return s.ledger
}

// Toggle flips the effective completed state of the item with the given id.
func (s *Session) Toggle(itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committing {
		return ErrCommitting
	}
	item, _, ok := s.findItem(itemID)
	if !ok {
		return ErrUnknownItem
	}
	s.ledger.Toggle(item)
	return nil
}

// SetCompleted records an explicit proposed value, dropping no-ops. Used when
// applying a client-supplied batch of changes.
func (s *Session) SetCompleted(itemID string, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committing {
		return ErrCommitting
	}
	item, _, ok := s.findItem(itemID)
	if !ok {
		return ErrUnknownItem
	}
	s.ledger.Set(item, completed)
	return nil
}

// EffectiveState returns the item's completed value as the UI should show it.
func (s *Session) EffectiveState(item model.ChecklistItem) bool {
	return s.ledger.EffectiveState(item)
}

// VisualStatus derives the status a deliverable would have if the pending
// changes were committed now. Safe to call on every render.
func (s *Session) VisualStatus(d model.Deliverable) Status {
	done := 0
	for _, item := range d.ChecklistItems {
		if s.ledger.EffectiveState(item) {
			done++
		}
	}
	return Derive(Status(d.Status), done, len(d.ChecklistItems))
}

// PendingCount is the number of unsaved changes, for the save affordance.
func (s *Session) PendingCount() int {
	return s.ledger.Len()
}

func (s *Session) Committing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committing
}

func (s *Session) beginCommit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committing {
		return ErrCommitting
	}
	s.committing = true
	return nil
}

func (s *Session) endCommit() {
	s.mu.Lock()
	s.committing = false
	s.mu.Unlock()
}

// FindItem resolves an item and its parent deliverable by id.
func (s *Session) FindItem(itemID string) (model.ChecklistItem, model.Deliverable, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findItem(itemID)
}

// findItem resolves an item and its parent deliverable. Caller holds s.mu.
func (s *Session) findItem(itemID string) (model.ChecklistItem, model.Deliverable, bool) {
	for _, d := range s.deliverables {
		for _, item := range d.ChecklistItems {
			if item.ID == itemID {
				return item, d, true
			}
		}
	}
	return model.ChecklistItem{}, model.Deliverable{}, false
}
