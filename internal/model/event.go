package model

import "time"

type EventType string

const (
	EventScoreBased      EventType = "SCORE_BASED"
	EventEvaluationBased EventType = "EVALUATION_BASED"
	EventCompletionBased EventType = "COMPLETION_BASED"
)

type ResultType string

const (
	ResultScore      ResultType = "SCORE"
	ResultEvaluation ResultType = "EVALUATION"
	ResultCompleted  ResultType = "COMPLETED"
)

// ScoreThreshold maps a minimum score to a point award. Thresholds are
// stored sorted by Score descending; the first entry at or below the
// submitted score wins.
type ScoreThreshold struct {
	Score  int `json:"score"`
	Points int `json:"points"`
}

// EvaluationLevel maps a named evaluation (e.g. "Excellent") to points.
type EvaluationLevel struct {
	Level  string `json:"level"`
	Points int    `json:"points"`
}

// PointsConfig is the reward schedule for an event. ScoreThresholds is used
// only by SCORE_BASED events, Evaluations only by EVALUATION_BASED ones.
type PointsConfig struct {
	BasePoints      int               `json:"base_points"`
	MaxPoints       int               `json:"max_points"`
	ScoreThresholds []ScoreThreshold  `json:"score_thresholds,omitempty"`
	Evaluations     []EvaluationLevel `json:"evaluations,omitempty"`
	BonusPoints     *int              `json:"bonus_points,omitempty"`
	TargetScore     *int              `json:"target_score,omitempty"`
}

// Event is a one-off scored activity (a test, a recital, a challenge).
type Event struct {
	ID           int64        `json:"id"`
	FamilyID     int64        `json:"family_id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Category     string       `json:"category"`
	EventType    EventType    `json:"event_type"`
	PointsConfig PointsConfig `json:"points_config"`
	AssignedTo   *int64       `json:"assigned_to"`
	CreatedBy    int64        `json:"created_by"`
	DueDate      *time.Time   `json:"due_date,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

type EventResult struct {
	ID           int64            `json:"id"`
	EventID      int64            `json:"event_id"`
	ChildID      int64            `json:"child_id"`
	ResultType   ResultType       `json:"result_type"`
	Score        *int             `json:"score,omitempty"`
	Evaluation   string           `json:"evaluation,omitempty"`
	EarnedPoints int              `json:"earned_points"`
	BonusEarned  bool             `json:"bonus_earned"`
	Status       CompletionStatus `json:"status"`
	SubmittedAt  time.Time        `json:"submitted_at"`
	ApprovedAt   *time.Time       `json:"approved_at,omitempty"`
	Comments     string           `json:"comments"`
}
