package reporter

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/opscart/cost-advisor/pkg/models"
)

func sampleResult() *models.AggregatedResult {
	return &models.AggregatedResult{
		ExecutiveSummary: models.ExecutiveSummary{
			TotalRecommendations: 2,
			TotalMonthlySavings:  150,
			TotalAnnualSavings:   1800,
			HighPriorityCount:    1,
			MediumPriorityCount:  1,
			TopCategories: []models.CategorySummary{
				{Category: models.CategoryCompute, Count: 2, MonthlySavings: 150},
			},
			ImplementationRoadmap: []models.RoadmapPhase{
				{Name: "quick_wins", Count: 1, MonthlySavings: 100, Recommendations: []string{"a"}},
			},
			DataFreshness: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
		},
		Recommendations: []models.CostRecommendation{
			{
				ID: "a", Source: models.SourceOptimizer, Service: "compute",
				Category: models.CategoryCompute, Title: "Rightsize instance",
				MonthlySavings: 100, AnnualSavings: 1200, PriorityScore: 90,
				PriorityLevel: models.PriorityHigh, ConfidenceLevel: models.ConfidenceHigh,
				ImplementationEffort: models.EffortLow,
				AffectedResources:    []models.AffectedResource{{ID: "i-1"}},
				ResourceCount:        1,
			},
			{
				ID: "b", Source: models.SourceAdvisor, Service: "storage",
				Category: models.CategoryStorage, Title: "Delete unused disk",
				MonthlySavings: 50, AnnualSavings: 600, PriorityScore: 60,
				PriorityLevel: models.PriorityMedium, ConfidenceLevel: models.ConfidenceMedium,
				ImplementationEffort: models.EffortLow,
				AffectedResources:    []models.AffectedResource{{ID: "disk-1"}},
				ResourceCount:        1,
			},
		},
		ErrorMessages:      []string{"source insight failed: timed out waiting for the provider"},
		DataCollectionTime: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
		Degradation: models.DegradationInfo{
			Status:           models.DegradationPartial,
			AvailableSources: []models.Source{models.SourceOptimizer, models.SourceAdvisor},
			FailedSources:    []models.Source{models.SourceInsight},
		},
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New("xml"); err == nil {
		t.Error("Expected error for unsupported format")
	}
	for _, format := range []Format{FormatText, FormatJSON, FormatCSV} {
		if _, err := New(format); err != nil {
			t.Errorf("Format %s rejected: %v", format, err)
		}
	}
}

func TestTextOutput(t *testing.T) {
	rep, err := New(FormatText)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}

	var buf bytes.Buffer
	if err := rep.Write(sampleResult(), &buf); err != nil {
		t.Fatalf("Write() returned error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Rightsize instance",
		"Delete unused disk",
		"$150.00",
		"partial",
		"insight",
		"timed out",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Text output missing %q", want)
		}
	}
}

func TestJSONRoundTrip(t *testing.T) {
	rep, err := New(FormatJSON)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}

	var buf bytes.Buffer
	if err := rep.Write(sampleResult(), &buf); err != nil {
		t.Fatalf("Write() returned error: %v", err)
	}

	var decoded models.AggregatedResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if decoded.ExecutiveSummary.TotalRecommendations != 2 {
		t.Errorf("Round trip lost summary: %+v", decoded.ExecutiveSummary)
	}
	if len(decoded.Recommendations) != 2 {
		t.Errorf("Round trip lost recommendations: %d", len(decoded.Recommendations))
	}
}

func TestSerialize(t *testing.T) {
	serialized, err := Serialize(sampleResult())
	if err != nil {
		t.Fatalf("Serialize() returned error: %v", err)
	}

	var decoded models.AggregatedResult
	if err := json.Unmarshal([]byte(serialized), &decoded); err != nil {
		t.Fatalf("Serialized form is not valid JSON: %v", err)
	}
	if decoded.Degradation.Status != models.DegradationPartial {
		t.Errorf("Degradation info lost: %+v", decoded.Degradation)
	}
}

func TestCSVOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(sampleResult(), &buf); err != nil {
		t.Fatalf("WriteCSV() returned error: %v", err)
	}

	reader := csv.NewReader(&buf)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Output is not valid CSV: %v", err)
	}

	if rows[0][0] != "ID" {
		t.Errorf("Missing header row: %v", rows[0])
	}
	if rows[1][0] != "a" || rows[2][0] != "b" {
		t.Errorf("Recommendation rows wrong: %v, %v", rows[1], rows[2])
	}

	found := false
	for _, row := range rows {
		if len(row) > 0 && row[0] == "SUMMARY" {
			found = true
		}
	}
	if !found {
		t.Error("Missing summary section")
	}
}
