package anomaly

import (
	"testing"

	"github.com/opscart/cost-advisor/pkg/models"
)

func rec(id string, savings float64) models.CostRecommendation {
	return models.CostRecommendation{ID: id, MonthlySavings: savings, PriorityLevel: models.PriorityMedium}
}

func flagsFor(flags []models.AnomalyFlag, id string, kind models.AnomalyType) int {
	count := 0
	for _, flag := range flags {
		if flag.RecommendationID == id && flag.Type == kind {
			count++
		}
	}
	return count
}

func TestSmallBatchesSkipped(t *testing.T) {
	recs := []models.CostRecommendation{rec("a", 10), rec("b", 10000)}

	if flags := Detect(recs); flags != nil {
		t.Errorf("Batches under 3 records must not be tested, got %d flags", len(flags))
	}
}

func TestExtremeSavingsOutlier(t *testing.T) {
	recs := []models.CostRecommendation{
		rec("a", 990),
		rec("b", 1010),
		rec("c", 1005),
		rec("d", 995),
		rec("outlier", 10),
	}

	flags := Detect(recs)

	if flagsFor(flags, "outlier", models.AnomalyExtremeSavings) != 1 {
		t.Error("Expected the 10-dollar record flagged as an extreme outlier")
	}
	for _, id := range []string{"a", "b", "c", "d"} {
		if flagsFor(flags, id, models.AnomalyExtremeSavings) != 0 {
			t.Errorf("Record %s wrongly flagged as extreme", id)
		}
	}
}

func TestIdenticalValuesNotExtreme(t *testing.T) {
	recs := []models.CostRecommendation{rec("a", 100), rec("b", 100), rec("c", 100)}

	flags := Detect(recs)
	for _, flag := range flags {
		if flag.Type == models.AnomalyExtremeSavings {
			t.Errorf("Identical values flagged as extreme: %+v", flag)
		}
	}
}

func TestRoundNumberEstimate(t *testing.T) {
	recs := []models.CostRecommendation{
		rec("round", 1000),
		rec("alsoRound", 2500),
		rec("small", 500),  // round but under the floor
		rec("exact", 1033), // over the floor but not round
	}

	flags := Detect(recs)

	if flagsFor(flags, "round", models.AnomalyRoundNumberEstimate) != 1 {
		t.Error("1000 should be flagged as a rounded estimate")
	}
	if flagsFor(flags, "alsoRound", models.AnomalyRoundNumberEstimate) != 1 {
		t.Error("2500 should be flagged as a rounded estimate")
	}
	if flagsFor(flags, "small", models.AnomalyRoundNumberEstimate) != 0 {
		t.Error("500 is under the floor and must not be flagged")
	}
	if flagsFor(flags, "exact", models.AnomalyRoundNumberEstimate) != 0 {
		t.Error("1033 is not a round number")
	}
}

func TestVeryLowSavings(t *testing.T) {
	recs := []models.CostRecommendation{
		rec("tiny", 0.5),
		rec("normal", 50),
		rec("other", 60),
	}

	flags := Detect(recs)

	if flagsFor(flags, "tiny", models.AnomalyVeryLowSavings) != 1 {
		t.Error("Savings under one dollar should be flagged")
	}
	if flagsFor(flags, "normal", models.AnomalyVeryLowSavings) != 0 {
		t.Error("Normal savings wrongly flagged as very low")
	}
}

func TestPrioritySavingsMismatch(t *testing.T) {
	mismatch := rec("mismatch", 10)
	mismatch.PriorityLevel = models.PriorityHigh

	consistent := rec("consistent", 200)
	consistent.PriorityLevel = models.PriorityHigh

	recs := []models.CostRecommendation{mismatch, consistent, rec("filler", 100)}

	flags := Detect(recs)

	if flagsFor(flags, "mismatch", models.AnomalyPrioritySavingsMismatch) != 1 {
		t.Error("High priority with savings under half the mean should be flagged")
	}
	if flagsFor(flags, "consistent", models.AnomalyPrioritySavingsMismatch) != 0 {
		t.Error("Consistent high-priority record wrongly flagged")
	}
	// Mismatch only applies to high priority.
	if flagsFor(flags, "filler", models.AnomalyPrioritySavingsMismatch) != 0 {
		t.Error("Medium priority record must not get a mismatch flag")
	}
}

func TestFlagsAreAdvisory(t *testing.T) {
	recs := []models.CostRecommendation{rec("a", 0.1), rec("b", 5000), rec("c", 100)}

	Detect(recs)

	if len(recs) != 3 {
		t.Error("Detection must never remove records")
	}
}
