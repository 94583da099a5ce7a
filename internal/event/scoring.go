// Package event scores submitted event results against an event's reward
// schedule.
package event

import (
	"fmt"
	"sort"

	"github.com/mikanbako/pocketquest/internal/model"
)

// Submission is a child's result for an event. Exactly the fields required
// by the event's type must be set; Validate-checked events guarantee the
// config side.
type Submission struct {
	Score      *int
	Evaluation string
	Completed  bool
}

// Outcome is the resolved award for a submission.
type Outcome struct {
	EarnedPoints int  `json:"earned_points"`
	BonusEarned  bool `json:"bonus_earned"`
}

// ValidationError reports a malformed event configuration or a submission
// missing the field its event type requires.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: %s %s", e.Field, e.Reason)
}

// Score computes the points earned for a submission. Score-based events walk
// the descending threshold table and take the first entry at or below the
// submitted score, falling back to base points; the target-score bonus is
// added on top. Completion-based events always award max points.
func Score(ev model.Event, sub Submission) (Outcome, error) {
	cfg := ev.PointsConfig

	switch ev.EventType {
	case model.EventScoreBased:
		if sub.Score == nil {
			return Outcome{}, &ValidationError{Field: "score", Reason: "is required for SCORE_BASED events"}
		}
		out := Outcome{EarnedPoints: cfg.BasePoints}
		for _, th := range cfg.ScoreThresholds {
			if *sub.Score >= th.Score {
				out.EarnedPoints = th.Points
				break
			}
		}
		if cfg.TargetScore != nil && *sub.Score >= *cfg.TargetScore && cfg.BonusPoints != nil {
			out.EarnedPoints += *cfg.BonusPoints
			out.BonusEarned = true
		}
		return out, nil

	case model.EventEvaluationBased:
		if sub.Evaluation == "" {
			return Outcome{}, &ValidationError{Field: "evaluation", Reason: "is required for EVALUATION_BASED events"}
		}
		out := Outcome{EarnedPoints: cfg.BasePoints}
		for _, lvl := range cfg.Evaluations {
			if lvl.Level == sub.Evaluation {
				out.EarnedPoints = lvl.Points
				break
			}
		}
		return out, nil

	case model.EventCompletionBased:
		if !sub.Completed {
			return Outcome{}, &ValidationError{Field: "completed", Reason: "is required for COMPLETION_BASED events"}
		}
		out := Outcome{EarnedPoints: cfg.MaxPoints}
		if cfg.BonusPoints != nil {
			out.EarnedPoints += *cfg.BonusPoints
			out.BonusEarned = true
		}
		return out, nil
	}

	return Outcome{}, &ValidationError{Field: "event_type", Reason: fmt.Sprintf("unknown value %q", ev.EventType)}
}

// Validate checks an event's reward schedule at creation time so that
// scoring never has a config failure mode.
func Validate(ev model.Event) error {
	cfg := ev.PointsConfig
	if cfg.BasePoints < 0 {
		return &ValidationError{Field: "base_points", Reason: "must not be negative"}
	}
	if cfg.MaxPoints < cfg.BasePoints {
		return &ValidationError{Field: "max_points", Reason: "must not be below base_points"}
	}
	if cfg.BonusPoints != nil && *cfg.BonusPoints < 0 {
		return &ValidationError{Field: "bonus_points", Reason: "must not be negative"}
	}

	switch ev.EventType {
	case model.EventScoreBased:
		if len(cfg.ScoreThresholds) == 0 {
			return &ValidationError{Field: "score_thresholds", Reason: "are required for SCORE_BASED events"}
		}
		if !sort.SliceIsSorted(cfg.ScoreThresholds, func(i, j int) bool {
			return cfg.ScoreThresholds[i].Score > cfg.ScoreThresholds[j].Score
		}) {
			return &ValidationError{Field: "score_thresholds", Reason: "must be sorted by score descending"}
		}
		for i := 1; i < len(cfg.ScoreThresholds); i++ {
			if cfg.ScoreThresholds[i].Score == cfg.ScoreThresholds[i-1].Score {
				return &ValidationError{Field: "score_thresholds", Reason: "must not contain duplicate scores"}
			}
		}
		for _, th := range cfg.ScoreThresholds {
			if th.Points < 0 {
				return &ValidationError{Field: "score_thresholds", Reason: "must not award negative points"}
			}
		}
	case model.EventEvaluationBased:
		if len(cfg.Evaluations) == 0 {
			return &ValidationError{Field: "evaluations", Reason: "are required for EVALUATION_BASED events"}
		}
		seen := make(map[string]struct{}, len(cfg.Evaluations))
		for _, lvl := range cfg.Evaluations {
			if lvl.Level == "" {
				return &ValidationError{Field: "evaluations", Reason: "must not contain an empty level"}
			}
			if _, dup := seen[lvl.Level]; dup {
				return &ValidationError{Field: "evaluations", Reason: fmt.Sprintf("contain duplicate level %q", lvl.Level)}
			}
			seen[lvl.Level] = struct{}{}
			if lvl.Points < 0 {
				return &ValidationError{Field: "evaluations", Reason: "must not award negative points"}
			}
		}
	case model.EventCompletionBased:
		if cfg.MaxPoints <= 0 {
			return &ValidationError{Field: "max_points", Reason: "must be positive for COMPLETION_BASED events"}
		}
	default:
		return &ValidationError{Field: "event_type", Reason: fmt.Sprintf("unknown value %q", ev.EventType)}
	}
	return nil
}
