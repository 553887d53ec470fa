package reporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/opscart/cost-advisor/pkg/models"
)

// WriteCSV creates a CSV report
func WriteCSV(result *models.AggregatedResult, writer io.Writer) error {
	w := csv.NewWriter(writer)
	defer w.Flush()

	header := []string{
		"ID",
		"Source",
		"Service",
		"Category",
		"Title",
		"Monthly Savings ($)",
		"Annual Savings ($)",
		"Priority Score",
		"Priority",
		"Effort",
		"Confidence",
		"Resources",
		"Recommended Action",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range result.Recommendations {
		rec := &result.Recommendations[i]
		row := []string{
			rec.ID,
			string(rec.Source),
			rec.Service,
			string(rec.Category),
			rec.Title,
			fmt.Sprintf("%.2f", rec.MonthlySavings),
			fmt.Sprintf("%.2f", rec.AnnualSavings),
			fmt.Sprintf("%.1f", rec.PriorityScore),
			string(rec.PriorityLevel),
			string(rec.ImplementationEffort),
			string(rec.ConfidenceLevel),
			strings.Join(rec.ResourceIDs(), "; "),
			rec.RecommendedAction,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	summary := result.ExecutiveSummary
	w.Write([]string{}) // Empty row
	w.Write([]string{"SUMMARY"})
	w.Write([]string{"Total Recommendations", fmt.Sprintf("%d", summary.TotalRecommendations)})
	w.Write([]string{"High Priority", fmt.Sprintf("%d", summary.HighPriorityCount)})
	w.Write([]string{"Medium Priority", fmt.Sprintf("%d", summary.MediumPriorityCount)})
	w.Write([]string{"Low Priority", fmt.Sprintf("%d", summary.LowPriorityCount)})
	w.Write([]string{"Total Monthly Savings", fmt.Sprintf("$%.2f", summary.TotalMonthlySavings)})
	w.Write([]string{"Total Annual Savings", fmt.Sprintf("$%.2f", summary.TotalAnnualSavings)})

	w.Write([]string{}) // Empty row
	w.Write([]string{"CATEGORY BREAKDOWN"})
	w.Write([]string{"Category", "Recommendations", "Monthly Savings"})
	for _, cat := range summary.TopCategories {
		w.Write([]string{
			string(cat.Category),
			fmt.Sprintf("%d", cat.Count),
			fmt.Sprintf("$%.2f", cat.MonthlySavings),
		})
	}

	return nil
}
