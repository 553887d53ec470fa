package scoring

import (
	"testing"

	"github.com/opscart/cost-advisor/pkg/models"
)

func rec(id string, savings float64, effort models.EffortLevel, confidence models.ConfidenceLevel, resources int) models.CostRecommendation {
	return models.CostRecommendation{
		ID:                   id,
		MonthlySavings:       savings,
		ImplementationEffort: effort,
		ConfidenceLevel:      confidence,
		ResourceCount:        resources,
	}
}

func TestScoreFormula(t *testing.T) {
	// Batch of two: average savings is 100.
	recs := []models.CostRecommendation{
		rec("a", 150, models.EffortLow, models.ConfidenceHigh, 2),
		rec("b", 50, models.EffortHigh, models.ConfidenceLow, 1),
	}

	Apply(recs)

	// a: financial 150/100*40 = 60, effort 30, confidence 20, resource 4.
	want := 60.0 + 30 + 20 + 4
	if recs[0].PriorityScore != want {
		t.Errorf("Expected score %.1f, got %.1f", want, recs[0].PriorityScore)
	}
	if recs[0].PriorityLevel != models.PriorityHigh {
		t.Errorf("Expected high priority, got %s", recs[0].PriorityLevel)
	}

	// b: financial 50/100*40 = 20, effort 10, confidence 10, resource 2 = 42.
	if recs[1].PriorityScore != 42 {
		t.Errorf("Expected score 42, got %.1f", recs[1].PriorityScore)
	}
	if recs[1].PriorityLevel != models.PriorityLow {
		t.Errorf("Expected low priority, got %s", recs[1].PriorityLevel)
	}
}

func TestFinancialComponentCapped(t *testing.T) {
	// One huge outlier against many small records. Batch average is 2080,
	// so the outlier's uncapped financial component is 10000/2080*40, about 192.
	recs := []models.CostRecommendation{
		rec("big", 10000, models.EffortHigh, models.ConfidenceLow, 0),
		rec("s1", 100, models.EffortHigh, models.ConfidenceLow, 0),
		rec("s2", 100, models.EffortHigh, models.ConfidenceLow, 0),
		rec("s3", 100, models.EffortHigh, models.ConfidenceLow, 0),
		rec("s4", 100, models.EffortHigh, models.ConfidenceLow, 0),
	}

	Apply(recs)

	// financial capped at 100, effort 10, confidence 10, resource 0.
	if recs[0].PriorityScore != 120 {
		t.Errorf("Expected capped score 120, got %.1f", recs[0].PriorityScore)
	}
}

func TestResourceComponentCapped(t *testing.T) {
	recs := []models.CostRecommendation{
		rec("many", 100, models.EffortMedium, models.ConfidenceMedium, 50),
	}

	Apply(recs)

	// Single-record batch: financial = 40. effort 20, confidence 15, resource capped at 10.
	if recs[0].PriorityScore != 85 {
		t.Errorf("Expected score 85, got %.1f", recs[0].PriorityScore)
	}
}

func TestZeroSavingsBatch(t *testing.T) {
	recs := []models.CostRecommendation{
		rec("a", 0, models.EffortLow, models.ConfidenceHigh, 1),
	}

	Apply(recs)

	// No financial component when the batch average is zero.
	if recs[0].PriorityScore != 30+20+2 {
		t.Errorf("Expected score 52, got %.1f", recs[0].PriorityScore)
	}
}

func TestUnknownEnumsDefaultToMedium(t *testing.T) {
	recs := []models.CostRecommendation{
		rec("a", 100, "", "", 0),
	}

	Apply(recs)

	// financial 40, effort 20 (medium default), confidence 15 (medium default).
	if recs[0].PriorityScore != 75 {
		t.Errorf("Expected score 75, got %.1f", recs[0].PriorityScore)
	}
}

func TestLevelThresholds(t *testing.T) {
	cases := []struct {
		score float64
		want  models.PriorityLevel
	}{
		{100, models.PriorityHigh},
		{75, models.PriorityHigh},
		{74.9, models.PriorityMedium},
		{50, models.PriorityMedium},
		{49.9, models.PriorityLow},
		{0, models.PriorityLow},
	}

	for _, tc := range cases {
		if got := Level(tc.score); got != tc.want {
			t.Errorf("Level(%.1f) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestApplyIsDeterministic(t *testing.T) {
	build := func() []models.CostRecommendation {
		return []models.CostRecommendation{
			rec("a", 300, models.EffortLow, models.ConfidenceHigh, 3),
			rec("b", 120, models.EffortMedium, models.ConfidenceMedium, 1),
			rec("c", 10, models.EffortHigh, models.ConfidenceLow, 8),
		}
	}

	first := build()
	second := build()
	Apply(first)
	Apply(second)

	for i := range first {
		if first[i].PriorityScore != second[i].PriorityScore {
			t.Errorf("Non-deterministic score for %s: %.2f vs %.2f",
				first[i].ID, first[i].PriorityScore, second[i].PriorityScore)
		}
	}
}
