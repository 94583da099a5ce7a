package event

import (
	"time"

	"github.com/mikanbako/pocketquest/internal/model"
)

type DueStatus string

const (
	StatusOpen     DueStatus = "open"
	StatusDueToday DueStatus = "due_today"
	StatusOverdue  DueStatus = "overdue"
	StatusDone     DueStatus = "done"
)

// ComputeDueStatus classifies an event against its due date. An event with
// an approved result is done regardless of the date; one without a due date
// stays open until then.
func ComputeDueStatus(ev model.Event, hasApprovedResult bool, today time.Time) DueStatus {
	if hasApprovedResult {
		return StatusDone
	}
	if ev.DueDate == nil {
		return StatusOpen
	}

	today = startOfDay(today)
	due := startOfDay(*ev.DueDate)

	switch {
	case due.Before(today):
		return StatusOverdue
	case due.Equal(today):
		return StatusDueToday
	default:
		return StatusOpen
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
