// Package quality validates normalized recommendations before they are
// published. Structurally broken records are dropped; fixable numeric
// inconsistencies are corrected in place and noted.
package quality

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/opscart/cost-advisor/pkg/models"
)

// annualTolerance is the allowed drift between annual_savings and
// monthly_savings*12 before auto-correction kicks in.
const annualTolerance = 0.01

// Validator checks batch data quality.
type Validator struct {
	logger zerolog.Logger
}

// New creates a Validator.
func New(logger zerolog.Logger) *Validator {
	return &Validator{logger: logger}
}

// ValidateBatch returns the retained records and a quality report. The
// input order of retained records is preserved.
func (v *Validator) ValidateBatch(recs []models.CostRecommendation) ([]models.CostRecommendation, models.QualityReport) {
	report := models.QualityReport{
		TotalProcessed: len(recs),
		Errors:         []string{},
	}

	valid := make([]models.CostRecommendation, 0, len(recs))
	for i := range recs {
		rec := recs[i]

		if reason := v.structuralCheck(&rec); reason != "" {
			v.logger.Warn().Str("id", rec.ID).Str("reason", reason).Msg("dropping invalid record")
			report.RemovedCount++
			report.Errors = append(report.Errors, fmt.Sprintf("dropped %s: %s", describeRecord(&rec), reason))
			continue
		}

		v.autoCorrect(&rec, &report)
		valid = append(valid, rec)
	}

	report.ValidCount = len(valid)
	if report.TotalProcessed > 0 {
		report.QualityScore = float64(report.ValidCount) / float64(report.TotalProcessed)
	} else {
		report.QualityScore = 1.0
	}

	return valid, report
}

// structuralCheck returns a non-empty reason when the record must be
// dropped rather than fixed.
func (v *Validator) structuralCheck(rec *models.CostRecommendation) string {
	if rec.ID == "" {
		return "missing id"
	}
	if rec.Title == "" {
		return "missing title"
	}
	if rec.Service == "" {
		return "missing service"
	}
	if !models.ValidSources[rec.Source] {
		return fmt.Sprintf("invalid source %q", rec.Source)
	}
	if !models.ValidCategories[rec.Category] {
		return fmt.Sprintf("invalid category %q", rec.Category)
	}
	if !models.ValidConfidenceLevels[rec.ConfidenceLevel] {
		return fmt.Sprintf("invalid confidence level %q", rec.ConfidenceLevel)
	}
	if !models.ValidEffortLevels[rec.ImplementationEffort] {
		return fmt.Sprintf("invalid implementation effort %q", rec.ImplementationEffort)
	}
	if rec.MonthlySavings < 0 || rec.AnnualSavings < 0 {
		return "negative savings"
	}
	return ""
}

// autoCorrect fixes recoverable inconsistencies in place, recording a
// note per fix.
func (v *Validator) autoCorrect(rec *models.CostRecommendation, report *models.QualityReport) {
	expectedAnnual := math.Round(rec.MonthlySavings*12*100) / 100
	if math.Abs(rec.AnnualSavings-rec.MonthlySavings*12) > annualTolerance {
		v.logger.Info().Str("id", rec.ID).
			Float64("from", rec.AnnualSavings).
			Float64("to", expectedAnnual).
			Msg("corrected annual savings")
		report.Errors = append(report.Errors,
			fmt.Sprintf("corrected annual_savings for %s: %.2f -> %.2f", rec.ID, rec.AnnualSavings, expectedAnnual))
		rec.AnnualSavings = expectedAnnual
	} else {
		// Keep the invariant exact even within tolerance.
		rec.AnnualSavings = expectedAnnual
	}

	if rec.ResourceCount != len(rec.AffectedResources) {
		report.Errors = append(report.Errors,
			fmt.Sprintf("corrected resource_count for %s: %d -> %d", rec.ID, rec.ResourceCount, len(rec.AffectedResources)))
		rec.ResourceCount = len(rec.AffectedResources)
	}

	// List-typed fields must be list-shaped in the serialized form.
	if rec.ImplementationSteps == nil {
		rec.ImplementationSteps = []string{}
	}
	if rec.RequiredPermissions == nil {
		rec.RequiredPermissions = []string{}
	}
	if rec.PotentialRisks == nil {
		rec.PotentialRisks = []string{}
	}
	if rec.AffectedResources == nil {
		rec.AffectedResources = []models.AffectedResource{}
	}

	if rec.Status == "" {
		rec.Status = models.StatusNew
	}
}

func describeRecord(rec *models.CostRecommendation) string {
	if rec.ID != "" {
		return rec.ID
	}
	if rec.Title != "" {
		return fmt.Sprintf("untitled record %q", rec.Title)
	}
	return "record with no id"
}
