package model

import "time"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

type CompletionStatus string

const (
	CompletionPending  CompletionStatus = "PENDING"
	CompletionApproved CompletionStatus = "APPROVED"
	CompletionRejected CompletionStatus = "REJECTED"
)

// Task is a quest a child can complete for points. Points holds the base
// value before any rate rules are applied. A nil AssignedTo means the task
// is open to every child in the family.
type Task struct {
	ID          int64      `json:"id"`
	FamilyID    int64      `json:"family_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Points      int        `json:"points"`
	Category    string     `json:"category"`
	Difficulty  Difficulty `json:"difficulty"`
	AssignedTo  *int64     `json:"assigned_to"`
	CreatedBy   int64      `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

type TaskCompletion struct {
	ID          int64            `json:"id"`
	TaskID      int64            `json:"task_id"`
	ChildID     int64            `json:"child_id"`
	Status      CompletionStatus `json:"status"`
	SubmittedAt time.Time        `json:"submitted_at"`
	ApprovedAt  *time.Time       `json:"approved_at,omitempty"`
	Comments    string           `json:"comments"`
}
