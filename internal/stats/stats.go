// Package stats builds per-child progress reports from completions and the
// point ledger.
package stats

import (
	"time"

	"github.com/mikanbako/pocketquest/internal/ledger"
	"github.com/mikanbako/pocketquest/internal/model"
)

// Window limits a report to recent history.
type Window string

const (
	WindowMonth       Window = "1month"
	WindowThreeMonths Window = "3months"
	WindowSixMonths   Window = "6months"
	WindowAll         Window = "all"
)

// months returns the window length; 0 means unbounded.
func (w Window) months() int {
	switch w {
	case WindowMonth:
		return 1
	case WindowThreeMonths:
		return 3
	case WindowSixMonths:
		return 6
	default:
		return 0
	}
}

type MonthProgress struct {
	Month     string `json:"month"`
	Completed int    `json:"completed"`
	Points    int    `json:"points"`
}

type Report struct {
	ChildID        int64           `json:"child_id"`
	Window         Window          `json:"window"`
	CompletedTasks int             `json:"completed_tasks"`
	PendingTasks   int             `json:"pending_tasks"`
	RejectedTasks  int             `json:"rejected_tasks"`
	ApprovalRate   float64         `json:"approval_rate"`
	Totals         ledger.Totals   `json:"totals"`
	ByCategory     map[string]int  `json:"by_category"`
	Monthly        []MonthProgress `json:"monthly"`
}

// Build computes a child's report over the window ending at now. The
// monthly series always covers the trailing six calendar months,
// oldest first.
func Build(childID int64, now time.Time, window Window, tasks []model.Task, completions []model.TaskCompletion, txs []model.PointTransaction) Report {
	report := Report{
		ChildID:    childID,
		Window:     window,
		ByCategory: make(map[string]int),
	}

	var cutoff time.Time
	if m := window.months(); m > 0 {
		cutoff = now.AddDate(0, -m, 0)
	}

	categories := make(map[int64]string, len(tasks))
	for _, task := range tasks {
		categories[task.ID] = task.Category
	}

	for _, c := range completions {
		if c.ChildID != childID {
			continue
		}
		if !cutoff.IsZero() && c.SubmittedAt.Before(cutoff) {
			continue
		}
		switch c.Status {
		case model.CompletionApproved:
			report.CompletedTasks++
			report.ByCategory[categories[c.TaskID]]++
		case model.CompletionPending:
			report.PendingTasks++
		case model.CompletionRejected:
			report.RejectedTasks++
		}
	}

	if reviewed := report.CompletedTasks + report.RejectedTasks; reviewed > 0 {
		report.ApprovalRate = float64(report.CompletedTasks) / float64(reviewed)
	}

	windowed := txs
	if !cutoff.IsZero() {
		windowed = windowed[:0:0]
		for _, tx := range txs {
			if !tx.CreatedAt.Before(cutoff) {
				windowed = append(windowed, tx)
			}
		}
	}
	report.Totals = ledger.Sum(windowed, childID)

	report.Monthly = monthlySeries(childID, now, completions, txs)
	return report
}

func monthlySeries(childID int64, now time.Time, completions []model.TaskCompletion, txs []model.PointTransaction) []MonthProgress {
	series := make([]MonthProgress, 0, 6)
	for i := 5; i >= 0; i-- {
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -i, 0)
		end := start.AddDate(0, 1, 0)
		entry := MonthProgress{Month: start.Format("2006-01")}

		for _, c := range completions {
			if c.ChildID != childID || c.Status != model.CompletionApproved {
				continue
			}
			if c.SubmittedAt.Before(start) || !c.SubmittedAt.Before(end) {
				continue
			}
			entry.Completed++
		}
		for _, tx := range txs {
			if tx.UserID != childID || tx.Type != model.TransactionEarned {
				continue
			}
			if tx.CreatedAt.Before(start) || !tx.CreatedAt.Before(end) {
				continue
			}
			entry.Points += tx.Amount
		}

		series = append(series, entry)
	}
	return series
}
