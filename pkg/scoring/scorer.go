// Package scoring assigns each recommendation a composite priority score
// and tier. Scores are relative to the batch average, so they are only
// comparable within one aggregation run.
package scoring

import "github.com/opscart/cost-advisor/pkg/models"

// Component weights and caps.
const (
	financialWeight = 40.0
	financialCap    = 100.0
	resourceCap     = 10.0

	highThreshold   = 75.0
	mediumThreshold = 50.0
)

var effortPoints = map[models.EffortLevel]float64{
	models.EffortLow:    30,
	models.EffortMedium: 20,
	models.EffortHigh:   10,
}

var confidencePoints = map[models.ConfidenceLevel]float64{
	models.ConfidenceHigh:   20,
	models.ConfidenceMedium: 15,
	models.ConfidenceLow:    10,
}

// Apply scores every record in place:
//
//	score = financial + effort + confidence + resource
//	financial = min(100, monthly_savings/batch_average * 40)
//
// A zero batch average contributes no financial component.
func Apply(recs []models.CostRecommendation) {
	if len(recs) == 0 {
		return
	}

	var total float64
	for i := range recs {
		total += recs[i].MonthlySavings
	}
	average := total / float64(len(recs))

	for i := range recs {
		rec := &recs[i]

		var financial float64
		if average > 0 {
			financial = rec.MonthlySavings / average * financialWeight
			if financial > financialCap {
				financial = financialCap
			}
		}

		effort, ok := effortPoints[rec.ImplementationEffort]
		if !ok {
			effort = effortPoints[models.EffortMedium]
		}
		confidence, ok := confidencePoints[rec.ConfidenceLevel]
		if !ok {
			confidence = confidencePoints[models.ConfidenceMedium]
		}

		resource := float64(rec.ResourceCount) * 2
		if resource > resourceCap {
			resource = resourceCap
		}

		rec.PriorityScore = financial + effort + confidence + resource
		rec.PriorityLevel = Level(rec.PriorityScore)
	}
}

// Level maps a priority score to its tier. It is the only place the
// mapping lives; priority_level is never set independently of the score.
func Level(score float64) models.PriorityLevel {
	switch {
	case score >= highThreshold:
		return models.PriorityHigh
	case score >= mediumThreshold:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}
