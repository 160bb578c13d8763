package checklist

// Status is the derived delivery state of a deliverable.
type Status string

const (
	StatusPending      Status = "pending"
	StatusInProduction Status = "in_production"
	StatusDelivered    Status = "delivered"
)

// Derive computes a deliverable's status from its checklist completion counts.
// A deliverable with no checklist is not auto-managed: its current status is
// returned unchanged. Unchecking items on a delivered deliverable legally
// moves it back to in_production or pending.
func Derive(current Status, done, total int) Status {
	if total == 0 {
		return current
	}
	switch {
	case done == 0:
		return StatusPending
	case done == total:
		return StatusDelivered
	default:
		return StatusInProduction
	}
}
