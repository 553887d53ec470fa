package aggregator

import (
	"math"
	"sort"
	"time"

	"github.com/opscart/cost-advisor/pkg/models"
)

// topCategoryLimit caps the top_categories list in the summary.
const topCategoryLimit = 5

// buildSummary rolls the final recommendation set into the executive
// summary. It assumes the batch is already scored and sorted.
func buildSummary(recs []models.CostRecommendation, freshness time.Time) models.ExecutiveSummary {
	summary := models.ExecutiveSummary{
		TopCategories:         []models.CategorySummary{},
		ImplementationRoadmap: []models.RoadmapPhase{},
		DataFreshness:         freshness,
	}

	byCategory := make(map[models.Category]*models.CategorySummary)
	for i := range recs {
		rec := &recs[i]

		summary.TotalRecommendations++
		summary.TotalMonthlySavings += rec.MonthlySavings
		summary.TotalAnnualSavings += rec.AnnualSavings

		switch rec.PriorityLevel {
		case models.PriorityHigh:
			summary.HighPriorityCount++
		case models.PriorityMedium:
			summary.MediumPriorityCount++
		default:
			summary.LowPriorityCount++
		}

		entry, ok := byCategory[rec.Category]
		if !ok {
			entry = &models.CategorySummary{Category: rec.Category}
			byCategory[rec.Category] = entry
		}
		entry.Count++
		entry.MonthlySavings += rec.MonthlySavings
	}

	summary.TotalMonthlySavings = roundCents(summary.TotalMonthlySavings)
	summary.TotalAnnualSavings = roundCents(summary.TotalAnnualSavings)

	categories := make([]models.CategorySummary, 0, len(byCategory))
	for _, entry := range byCategory {
		entry.MonthlySavings = roundCents(entry.MonthlySavings)
		categories = append(categories, *entry)
	}
	// Savings descending, category name breaking ties so the order does
	// not depend on map iteration.
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].MonthlySavings != categories[j].MonthlySavings {
			return categories[i].MonthlySavings > categories[j].MonthlySavings
		}
		return categories[i].Category < categories[j].Category
	})
	if len(categories) > topCategoryLimit {
		categories = categories[:topCategoryLimit]
	}
	summary.TopCategories = categories

	summary.ImplementationRoadmap = buildRoadmap(recs)

	return summary
}

// buildRoadmap splits the batch into three sequential phases by priority
// and effort. Every recommendation lands in exactly one phase.
func buildRoadmap(recs []models.CostRecommendation) []models.RoadmapPhase {
	phases := []models.RoadmapPhase{
		{
			Name:            "quick_wins",
			Description:     "High priority, low effort. Start here for immediate savings.",
			Recommendations: []string{},
		},
		{
			Name:            "high_impact",
			Description:     "High priority with moderate effort. Schedule after the quick wins.",
			Recommendations: []string{},
		},
		{
			Name:            "strategic",
			Description:     "Remaining opportunities. Plan alongside regular maintenance work.",
			Recommendations: []string{},
		},
	}

	for i := range recs {
		rec := &recs[i]

		idx := 2
		if rec.PriorityLevel == models.PriorityHigh {
			switch rec.ImplementationEffort {
			case models.EffortLow:
				idx = 0
			case models.EffortMedium:
				idx = 1
			}
		}

		phases[idx].Count++
		phases[idx].MonthlySavings += rec.MonthlySavings
		phases[idx].Recommendations = append(phases[idx].Recommendations, rec.ID)
	}

	for i := range phases {
		phases[i].MonthlySavings = roundCents(phases[i].MonthlySavings)
	}

	return phases
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
