package approval

import (
	"errors"
	"testing"
	"time"

	"github.com/mikanbako/pocketquest/internal/model"
)

func TestApprovePending(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	c := model.TaskCompletion{ID: 1, Status: model.CompletionPending}

	got, err := Approve(c, now)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.Status != model.CompletionApproved {
		t.Errorf("status = %q, want APPROVED", got.Status)
	}
	if got.ApprovedAt == nil || !got.ApprovedAt.Equal(now) {
		t.Errorf("approved_at = %v, want %v", got.ApprovedAt, now)
	}
}

func TestApproveTwiceRejected(t *testing.T) {
	now := time.Now()
	c := model.TaskCompletion{ID: 1, Status: model.CompletionPending}

	approved, err := Approve(c, now)
	if err != nil {
		t.Fatalf("first approve: %v", err)
	}

	_, err = Approve(approved, now)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second approve error = %v, want ErrInvalidTransition", err)
	}
}

func TestApproveRejectedCompletion(t *testing.T) {
	c := model.TaskCompletion{ID: 1, Status: model.CompletionRejected}
	if _, err := Approve(c, time.Now()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("error = %v, want ErrInvalidTransition", err)
	}
}

func TestRejectPending(t *testing.T) {
	c := model.TaskCompletion{ID: 1, Status: model.CompletionPending}
	got, err := Reject(c)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != model.CompletionRejected {
		t.Errorf("status = %q, want REJECTED", got.Status)
	}
	if got.ApprovedAt != nil {
		t.Errorf("approved_at = %v on rejection, want nil", got.ApprovedAt)
	}
}

func TestRejectNonPending(t *testing.T) {
	c := model.TaskCompletion{ID: 1, Status: model.CompletionApproved}
	if _, err := Reject(c); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("error = %v, want ErrInvalidTransition", err)
	}
}

func TestCanSubmitUnassigned(t *testing.T) {
	task := model.Task{ID: 1}
	if err := CanSubmit(task, 7); err != nil {
		t.Errorf("unassigned task should be open to all: %v", err)
	}
}

func TestCanSubmitAssigned(t *testing.T) {
	child := int64(7)
	task := model.Task{ID: 1, AssignedTo: &child}

	if err := CanSubmit(task, 7); err != nil {
		t.Errorf("assigned child blocked: %v", err)
	}
	if err := CanSubmit(task, 8); !errors.Is(err, ErrNotAssigned) {
		t.Errorf("error = %v, want ErrNotAssigned", err)
	}
}
