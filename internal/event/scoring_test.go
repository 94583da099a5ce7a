package event

import (
	"errors"
	"testing"

	"github.com/mikanbako/pocketquest/internal/model"
)

func intp(v int) *int { return &v }

func scoreEvent() model.Event {
	return model.Event{
		Title:     "Math test",
		EventType: model.EventScoreBased,
		PointsConfig: model.PointsConfig{
			BasePoints: 10,
			MaxPoints:  50,
			ScoreThresholds: []model.ScoreThreshold{
				{Score: 90, Points: 50},
				{Score: 70, Points: 30},
				{Score: 0, Points: 10},
			},
			TargetScore: intp(90),
			BonusPoints: intp(10),
		},
	}
}

func TestScoreThresholdFallback(t *testing.T) {
	ev := scoreEvent()

	out, err := Score(ev, Submission{Score: intp(75)})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if out.EarnedPoints != 30 {
		t.Errorf("points for 75 = %d, want 30", out.EarnedPoints)
	}
	if out.BonusEarned {
		t.Error("bonus earned at 75, want none")
	}
}

func TestScoreTargetBonus(t *testing.T) {
	out, err := Score(scoreEvent(), Submission{Score: intp(95)})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if out.EarnedPoints != 60 {
		t.Errorf("points for 95 = %d, want 60 (50 + 10 bonus)", out.EarnedPoints)
	}
	if !out.BonusEarned {
		t.Error("bonus not flagged")
	}
}

func TestScoreNoThresholdMatch(t *testing.T) {
	ev := scoreEvent()
	ev.PointsConfig.ScoreThresholds = []model.ScoreThreshold{{Score: 90, Points: 50}}
	ev.PointsConfig.TargetScore = nil

	out, err := Score(ev, Submission{Score: intp(40)})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if out.EarnedPoints != 10 {
		t.Errorf("points = %d, want base 10", out.EarnedPoints)
	}
}

func TestScoreMissingScore(t *testing.T) {
	_, err := Score(scoreEvent(), Submission{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
}

func TestEvaluationLookup(t *testing.T) {
	ev := model.Event{
		Title:     "Piano recital",
		EventType: model.EventEvaluationBased,
		PointsConfig: model.PointsConfig{
			BasePoints: 5,
			MaxPoints:  40,
			Evaluations: []model.EvaluationLevel{
				{Level: "Excellent", Points: 40},
				{Level: "Good", Points: 25},
				{Level: "Keep trying", Points: 10},
			},
		},
	}

	out, err := Score(ev, Submission{Evaluation: "Good"})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if out.EarnedPoints != 25 {
		t.Errorf("points = %d, want 25", out.EarnedPoints)
	}

	// Unknown level falls back to base points.
	out, err = Score(ev, Submission{Evaluation: "Mediocre"})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if out.EarnedPoints != 5 {
		t.Errorf("fallback points = %d, want 5", out.EarnedPoints)
	}
	if out.BonusEarned {
		t.Error("evaluation events never earn a bonus")
	}
}

func TestCompletionAward(t *testing.T) {
	ev := model.Event{
		Title:     "Clean the garage",
		EventType: model.EventCompletionBased,
		PointsConfig: model.PointsConfig{
			BasePoints:  10,
			MaxPoints:   30,
			BonusPoints: intp(5),
		},
	}

	out, err := Score(ev, Submission{Completed: true})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if out.EarnedPoints != 35 {
		t.Errorf("points = %d, want 35 (max 30 + bonus 5)", out.EarnedPoints)
	}
	if !out.BonusEarned {
		t.Error("bonus not flagged")
	}

	ev.PointsConfig.BonusPoints = nil
	out, err = Score(ev, Submission{Completed: true})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if out.EarnedPoints != 30 || out.BonusEarned {
		t.Errorf("outcome = %+v, want 30 points, no bonus", out)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(scoreEvent()); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*model.Event)
	}{
		{"missing thresholds", func(ev *model.Event) { ev.PointsConfig.ScoreThresholds = nil }},
		{"ascending thresholds", func(ev *model.Event) {
			ev.PointsConfig.ScoreThresholds = []model.ScoreThreshold{{Score: 0, Points: 10}, {Score: 90, Points: 50}}
		}},
		{"duplicate thresholds", func(ev *model.Event) {
			ev.PointsConfig.ScoreThresholds = []model.ScoreThreshold{{Score: 90, Points: 50}, {Score: 90, Points: 40}}
		}},
		{"negative threshold points", func(ev *model.Event) {
			ev.PointsConfig.ScoreThresholds = []model.ScoreThreshold{{Score: 90, Points: -1}}
		}},
		{"negative base", func(ev *model.Event) { ev.PointsConfig.BasePoints = -1 }},
		{"max below base", func(ev *model.Event) { ev.PointsConfig.MaxPoints = 5 }},
		{"negative bonus", func(ev *model.Event) { ev.PointsConfig.BonusPoints = intp(-3) }},
		{"unknown type", func(ev *model.Event) { ev.EventType = "MOOD_BASED" }},
	}
	for _, tc := range cases {
		ev := scoreEvent()
		tc.mutate(&ev)
		if err := Validate(ev); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestValidateEvaluationEvent(t *testing.T) {
	ev := model.Event{
		EventType: model.EventEvaluationBased,
		PointsConfig: model.PointsConfig{
			BasePoints:  5,
			MaxPoints:   40,
			Evaluations: []model.EvaluationLevel{{Level: "Good", Points: 25}, {Level: "Good", Points: 30}},
		},
	}
	if err := Validate(ev); err == nil {
		t.Error("duplicate evaluation levels accepted")
	}

	ev.PointsConfig.Evaluations = nil
	if err := Validate(ev); err == nil {
		t.Error("missing evaluations accepted")
	}
}
