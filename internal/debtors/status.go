package debtors

import "time"

// Display statuses. Balance and IsSettled stay authoritative; these labels
// only drive list badges in the client.
const (
	StatusActive  = "active"
	StatusDueSoon = "due-soon"
	StatusOverdue = "overdue"
	StatusSettled = "settled"
)

// dueSoonWindow is how far ahead of the due date an account is flagged.
const dueSoonWindow = 3 * 24 * time.Hour

// DeriveStatus computes the display status for a debtor at a point in time.
func DeriveStatus(d *Debtor, now time.Time) string {
	if d == nil {
		return StatusActive
	}
	if d.Balance == 0 {
		return StatusSettled
	}
	if d.DueDate.IsZero() {
		return StatusActive
	}
	if now.After(d.DueDate) {
		return StatusOverdue
	}
	if d.DueDate.Sub(now) <= dueSoonWindow {
		return StatusDueSoon
	}
	return StatusActive
}
