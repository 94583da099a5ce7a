// Package approval implements the task completion state machine:
// PENDING -> APPROVED or PENDING -> REJECTED, both terminal.
package approval

import (
	"errors"
	"fmt"
	"time"

	"github.com/mikanbako/pocketquest/internal/model"
)

var (
	// ErrInvalidTransition is returned when approving or rejecting a
	// completion that is no longer pending. Re-approving an approved
	// completion is rejected outright so a completion can never be
	// credited twice.
	ErrInvalidTransition = errors.New("completion is not pending")

	// ErrNotAssigned is returned when a child submits a task assigned to
	// someone else.
	ErrNotAssigned = errors.New("task is not assigned to this child")
)

// CanSubmit reports whether the child may submit the task. Unassigned tasks
// are open to every child. A previous rejection never blocks resubmission;
// each submission is a fresh completion record.
func CanSubmit(task model.Task, childID int64) error {
	if task.AssignedTo != nil && *task.AssignedTo != childID {
		return fmt.Errorf("task %d: %w", task.ID, ErrNotAssigned)
	}
	return nil
}

// Approve transitions a pending completion to APPROVED and stamps the
// approval time. The caller appends exactly one EARNED transaction for the
// returned completion, in the same storage transaction as the status flip.
func Approve(c model.TaskCompletion, now time.Time) (model.TaskCompletion, error) {
	if c.Status != model.CompletionPending {
		return c, fmt.Errorf("completion %d is %s: %w", c.ID, c.Status, ErrInvalidTransition)
	}
	c.Status = model.CompletionApproved
	c.ApprovedAt = &now
	return c, nil
}

// Reject transitions a pending completion to REJECTED. No ledger effect,
// and ApprovedAt stays nil: it records approval time only.
func Reject(c model.TaskCompletion) (model.TaskCompletion, error) {
	if c.Status != model.CompletionPending {
		return c, fmt.Errorf("completion %d is %s: %w", c.ID, c.Status, ErrInvalidTransition)
	}
	c.Status = model.CompletionRejected
	return c, nil
}
