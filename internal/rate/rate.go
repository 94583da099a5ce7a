// Package rate evaluates the configured rate rules against a task outcome
// and computes the adjusted point award.
package rate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/mikanbako/pocketquest/internal/model"
)

// CompletionCounts summarizes a child's approved completion history, used
// by performance-based rules.
type CompletionCounts struct {
	Total      int
	ByCategory map[string]int
}

// Input carries everything the evaluator needs; it reads no ambient state.
type Input struct {
	ChildAge     int
	TaskCategory string
	BasePoints   int
	Now          time.Time
	Completions  CompletionCounts
}

// Result is the adjusted award plus the names of the rules that applied,
// in application order.
type Result struct {
	Points  int      `json:"points"`
	Applied []string `json:"applied"`
}

// Evaluate applies every active, applicable rule in priority order
// (ascending, ties broken by ID): points are multiplied and rounded
// half-up at each step, then the rule's bonus is added. Inactive and
// inapplicable rules pass points through unchanged.
func Evaluate(in Input, rules []model.RateRule) Result {
	ordered := make([]model.RateRule, 0, len(rules))
	for _, r := range rules {
		if r.IsActive {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].ID < ordered[j].ID
	})

	res := Result{Points: in.BasePoints}
	for _, r := range ordered {
		if !applies(r, in) {
			continue
		}
		res.Points = roundHalfUp(float64(res.Points) * r.Multiplier)
		res.Points += r.BonusPoints
		res.Applied = append(res.Applied, r.Name)
	}
	return res
}

func applies(r model.RateRule, in Input) bool {
	switch r.Type {
	case model.RuleAgeBased:
		c := r.Conditions.Age
		if c == nil {
			return false
		}
		if in.ChildAge < c.MinAge {
			return false
		}
		return c.MaxAge == nil || in.ChildAge <= *c.MaxAge

	case model.RulePeriodBased:
		c := r.Conditions.Period
		if c == nil {
			return false
		}
		if in.Now.Before(c.StartDate) || in.Now.After(c.EndDate) {
			return false
		}
		return c.TaskCategory == "" || c.TaskCategory == in.TaskCategory

	case model.RulePerformanceBased:
		c := r.Conditions.Performance
		if c == nil {
			return false
		}
		if c.TaskCategory != "" {
			if c.TaskCategory != in.TaskCategory {
				return false
			}
			return in.Completions.ByCategory[c.TaskCategory] >= c.CompletionCount
		}
		return in.Completions.Total >= c.CompletionCount
	}
	return false
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// ChildAge derives a child's age at the given time. Birth date takes
// precedence over the stored age field when both are present.
func ChildAge(birthDate *time.Time, age *int, now time.Time) int {
	if birthDate != nil {
		years := now.Year() - birthDate.Year()
		anniversary := birthDate.AddDate(years, 0, 0)
		if anniversary.After(now) {
			years--
		}
		if years < 0 {
			return 0
		}
		return years
	}
	if age != nil {
		return *age
	}
	return 0
}

// ValidationError reports a malformed rule configuration. Rules are
// validated at creation time so evaluation never has a failure mode.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid rate rule: %s %s", e.Field, e.Reason)
}

// ValidateRule checks a rule's numeric and variant configuration.
func ValidateRule(r model.RateRule) error {
	if r.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if math.IsNaN(r.Multiplier) || math.IsInf(r.Multiplier, 0) {
		return &ValidationError{Field: "multiplier", Reason: "must be a finite number"}
	}
	if r.Multiplier <= 0 {
		return &ValidationError{Field: "multiplier", Reason: "must be positive"}
	}
	if r.BonusPoints < 0 {
		return &ValidationError{Field: "bonus_points", Reason: "must not be negative"}
	}

	switch r.Type {
	case model.RuleAgeBased:
		c := r.Conditions.Age
		if c == nil {
			return &ValidationError{Field: "conditions.age", Reason: "is required for AGE_BASED rules"}
		}
		if c.MinAge < 0 {
			return &ValidationError{Field: "conditions.age.min_age", Reason: "must not be negative"}
		}
		if c.MaxAge != nil && *c.MaxAge < c.MinAge {
			return &ValidationError{Field: "conditions.age.max_age", Reason: "must not be below min_age"}
		}
	case model.RulePeriodBased:
		c := r.Conditions.Period
		if c == nil {
			return &ValidationError{Field: "conditions.period", Reason: "is required for PERIOD_BASED rules"}
		}
		if c.EndDate.Before(c.StartDate) {
			return &ValidationError{Field: "conditions.period.end_date", Reason: "must not precede start_date"}
		}
	case model.RulePerformanceBased:
		c := r.Conditions.Performance
		if c == nil {
			return &ValidationError{Field: "conditions.performance", Reason: "is required for PERFORMANCE_BASED rules"}
		}
		if c.CompletionCount < 0 {
			return &ValidationError{Field: "conditions.performance.completion_count", Reason: "must not be negative"}
		}
	default:
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown rule type %q", r.Type)}
	}
	return nil
}
