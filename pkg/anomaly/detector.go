// Package anomaly flags statistically suspicious savings values for
// operator attention. Flags are advisory: they never remove a
// recommendation from the result.
package anomaly

import (
	"fmt"
	"math"

	"github.com/opscart/cost-advisor/pkg/models"
)

// minBatchSize is the smallest batch worth testing; below it every
// statistic is noise.
const minBatchSize = 3

const (
	extremeSigma       = 3.0
	roundNumberFloor   = 1000.0
	veryLowCeiling     = 1.0
	mismatchMeanFactor = 0.5
)

// Detect inspects monthly savings across the batch and returns a flag per
// suspicious value. The extreme-savings test compares each value against
// the mean and standard deviation of the other records; including the
// candidate itself would make a 3-sigma outlier unreachable in small
// batches.
func Detect(recs []models.CostRecommendation) []models.AnomalyFlag {
	if len(recs) < minBatchSize {
		return nil
	}

	n := float64(len(recs))
	var sum, sumSquares float64
	for i := range recs {
		v := recs[i].MonthlySavings
		sum += v
		sumSquares += v * v
	}
	batchMean := sum / n

	var flags []models.AnomalyFlag
	for i := range recs {
		rec := &recs[i]
		v := rec.MonthlySavings

		restMean, restStdDev := leaveOneOut(sum, sumSquares, n, v)
		deviation := math.Abs(v - restMean)
		if (restStdDev > 0 && deviation > extremeSigma*restStdDev) ||
			(restStdDev == 0 && deviation > 0) {
			flags = append(flags, models.AnomalyFlag{
				RecommendationID: rec.ID,
				Type:             models.AnomalyExtremeSavings,
				Detail: fmt.Sprintf("monthly savings %.2f deviates %.2f from the batch mean %.2f",
					v, deviation, restMean),
			})
		}

		if v >= roundNumberFloor && math.Mod(v, 100) == 0 {
			flags = append(flags, models.AnomalyFlag{
				RecommendationID: rec.ID,
				Type:             models.AnomalyRoundNumberEstimate,
				Detail:           fmt.Sprintf("monthly savings %.2f looks like a rounded estimate", v),
			})
		}

		if v < veryLowCeiling {
			flags = append(flags, models.AnomalyFlag{
				RecommendationID: rec.ID,
				Type:             models.AnomalyVeryLowSavings,
				Detail:           fmt.Sprintf("monthly savings %.2f is below one dollar", v),
			})
		}

		if rec.PriorityLevel == models.PriorityHigh && v < mismatchMeanFactor*batchMean {
			flags = append(flags, models.AnomalyFlag{
				RecommendationID: rec.ID,
				Type:             models.AnomalyPrioritySavingsMismatch,
				Detail: fmt.Sprintf("high priority but monthly savings %.2f is under half the batch mean %.2f",
					v, batchMean),
			})
		}
	}

	return flags
}

// leaveOneOut computes mean and population standard deviation of the
// batch with one value removed, from precomputed sums.
func leaveOneOut(sum, sumSquares, n, v float64) (mean, stdDev float64) {
	rest := n - 1
	mean = (sum - v) / rest

	variance := (sumSquares-v*v)/rest - mean*mean
	if variance < 0 {
		// Floating point rounding on identical values.
		variance = 0
	}
	return mean, math.Sqrt(variance)
}
