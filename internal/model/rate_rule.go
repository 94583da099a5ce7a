package model

import "time"

type RuleType string

const (
	RuleAgeBased         RuleType = "AGE_BASED"
	RulePeriodBased      RuleType = "PERIOD_BASED"
	RulePerformanceBased RuleType = "PERFORMANCE_BASED"
)

// AgeConditions applies a rule to children within an age range. MinAge is
// required; a nil MaxAge leaves the range open-ended.
type AgeConditions struct {
	MinAge int  `json:"min_age"`
	MaxAge *int `json:"max_age,omitempty"`
}

// PeriodConditions applies a rule during a date window, optionally limited
// to one task category.
type PeriodConditions struct {
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	TaskCategory string    `json:"task_category,omitempty"`
}

// PerformanceConditions applies a rule once a child has enough approved
// completions, counted per category when TaskCategory is set.
type PerformanceConditions struct {
	CompletionCount int    `json:"completion_count"`
	TaskCategory    string `json:"task_category,omitempty"`
}

// RuleConditions holds exactly one payload, matching the rule's Type.
type RuleConditions struct {
	Age         *AgeConditions         `json:"age,omitempty"`
	Period      *PeriodConditions      `json:"period,omitempty"`
	Performance *PerformanceConditions `json:"performance,omitempty"`
}

// RateRule adjusts earned points before they are credited. Applicable rules
// compose in Priority order (ascending, ties broken by ID): multiply first,
// then add the bonus, per rule.
type RateRule struct {
	ID          int64          `json:"id"`
	FamilyID    int64          `json:"family_id"`
	Name        string         `json:"name"`
	Type        RuleType       `json:"type"`
	Priority    int            `json:"priority"`
	Conditions  RuleConditions `json:"conditions"`
	Multiplier  float64        `json:"multiplier"`
	BonusPoints int            `json:"bonus_points"`
	IsActive    bool           `json:"is_active"`
	Description string         `json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
}
