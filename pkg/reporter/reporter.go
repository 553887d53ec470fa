// Package reporter renders an aggregation result for display and
// transport.
package reporter

import (
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/opscart/cost-advisor/pkg/models"
)

// Format represents the output format
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ValidFormats lists the formats Write accepts.
var ValidFormats = map[Format]bool{
	FormatText: true,
	FormatJSON: true,
	FormatCSV:  true,
}

// Reporter renders aggregation results
type Reporter struct {
	format Format
}

// New creates a new reporter
func New(format Format) (*Reporter, error) {
	if !ValidFormats[format] {
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
	return &Reporter{format: format}, nil
}

// Write renders the result to the writer in the configured format.
func (r *Reporter) Write(result *models.AggregatedResult, w io.Writer) error {
	switch r.format {
	case FormatJSON:
		return writeJSON(result, w)
	case FormatCSV:
		return WriteCSV(result, w)
	default:
		return writeText(result, w)
	}
}

// Serialize returns the transportable string form of the result.
func Serialize(result *models.AggregatedResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize result: %w", err)
	}
	return string(data), nil
}

func writeJSON(result *models.AggregatedResult, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}

func writeText(result *models.AggregatedResult, w io.Writer) error {
	summary := result.ExecutiveSummary

	var b strings.Builder
	b.WriteString("Cost Optimization Report\n")
	b.WriteString("========================\n\n")
	fmt.Fprintf(&b, "Collected:       %s\n", result.DataCollectionTime.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Service level:   %s\n", result.Degradation.Status)
	fmt.Fprintf(&b, "Sources:         %s available, %s failed\n\n",
		sourceList(result.Degradation.AvailableSources),
		sourceList(result.Degradation.FailedSources))

	fmt.Fprintf(&b, "Recommendations: %d (high: %d, medium: %d, low: %d)\n",
		summary.TotalRecommendations,
		summary.HighPriorityCount, summary.MediumPriorityCount, summary.LowPriorityCount)
	fmt.Fprintf(&b, "Monthly savings: $%.2f\n", summary.TotalMonthlySavings)
	fmt.Fprintf(&b, "Annual savings:  $%.2f\n", summary.TotalAnnualSavings)

	if len(summary.TopCategories) > 0 {
		b.WriteString("\nTop categories by savings\n")
		for _, cat := range summary.TopCategories {
			fmt.Fprintf(&b, "  %-24s %3d recs  $%.2f/mo\n", cat.Category, cat.Count, cat.MonthlySavings)
		}
	}

	if len(summary.ImplementationRoadmap) > 0 {
		b.WriteString("\nImplementation roadmap\n")
		for _, phase := range summary.ImplementationRoadmap {
			fmt.Fprintf(&b, "  %-12s %3d recs  $%.2f/mo  %s\n",
				phase.Name, phase.Count, phase.MonthlySavings, phase.Description)
		}
	}

	if len(result.Recommendations) > 0 {
		b.WriteString("\nRecommendations\n")
		for i := range result.Recommendations {
			rec := &result.Recommendations[i]
			fmt.Fprintf(&b, "  [%5.1f %-6s] %s\n", rec.PriorityScore, rec.PriorityLevel, rec.Title)
			fmt.Fprintf(&b, "      %s | %s | $%.2f/mo | %d resource(s) | %s effort, %s confidence\n",
				rec.Service, rec.Category, rec.MonthlySavings, rec.ResourceCount,
				rec.ImplementationEffort, rec.ConfidenceLevel)
			if rec.RecommendedAction != "" {
				fmt.Fprintf(&b, "      Action: %s\n", rec.RecommendedAction)
			}
		}
	}

	if len(result.Anomalies) > 0 {
		b.WriteString("\nAnomaly flags\n")
		for _, flag := range result.Anomalies {
			fmt.Fprintf(&b, "  %-28s %s: %s\n", flag.RecommendationID, flag.Type, flag.Detail)
		}
	}

	if len(result.ErrorMessages) > 0 {
		b.WriteString("\nNotes\n")
		for _, msg := range result.ErrorMessages {
			fmt.Fprintf(&b, "  - %s\n", msg)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func sourceList(sources []models.Source) string {
	if len(sources) == 0 {
		return "none"
	}
	names := make([]string, len(sources))
	for i, src := range sources {
		names[i] = string(src)
	}
	return strings.Join(names, ", ")
}
