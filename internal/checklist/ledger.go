package checklist

import "github.com/mbstudio/backstage/internal/model"

// Ledger records checklist toggles that have not been committed yet, as a
// sparse overlay on top of persisted state. An entry always differs from the
// item's persisted value: a toggle that lands back on the original state
// removes the entry instead of keeping a no-op, so Len is exactly the number
// of unsaved changes.
type Ledger struct {
	changes map[string]bool
}

func NewLedger() *Ledger {
	return &Ledger{changes: make(map[string]bool)}
}

// Toggle flips the item's effective completed state. Toggling twice restores
// the no-entry state.
func (l *Ledger) Toggle(item model.ChecklistItem) {
	l.Set(item, !l.EffectiveState(item))
}

// Set records an explicit proposed value for the item, dropping the entry if
// the value equals the persisted one.
func (l *Ledger) Set(item model.ChecklistItem, completed bool) {
	if completed == item.Completed {
		delete(l.changes, item.ID)
		return
	}
	l.changes[item.ID] = completed
}

// EffectiveState returns the pending override if present, else the item's
// persisted completed value.
func (l *Ledger) EffectiveState(item model.ChecklistItem) bool {
	if v, ok := l.changes[item.ID]; ok {
		return v
	}
	return item.Completed
}

// Has reports whether the item has an uncommitted change.
func (l *Ledger) Has(itemID string) bool {
	_, ok := l.changes[itemID]
	return ok
}

// IsDirty reports whether any uncommitted changes exist.
func (l *Ledger) IsDirty() bool {
	return len(l.changes) > 0
}

// Len returns the number of uncommitted changes.
func (l *Ledger) Len() int {
	return len(l.changes)
}

// Changes returns a copy of the pending item id → proposed value mapping.
func (l *Ledger) Changes() map[string]bool {
	out := make(map[string]bool, len(l.changes))
	for id, v := range l.changes {
		out[id] = v
	}
	return out
}

// Clear drops all pending changes. Called after a commit or a full reload.
func (l *Ledger) Clear() {
	l.changes = make(map[string]bool)
}
