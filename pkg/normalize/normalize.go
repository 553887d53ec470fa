// Package normalize maps each provider's raw schema into the unified
// CostRecommendation model. A record that cannot be mapped is skipped with
// a reason; a bad record never aborts its batch.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/opscart/cost-advisor/pkg/models"
	"github.com/opscart/cost-advisor/pkg/source"
)

// Normalizer converts raw provider records into CostRecommendations.
type Normalizer struct {
	logger zerolog.Logger

	// now is replaceable in tests
	now func() time.Time
}

// New creates a Normalizer.
func New(logger zerolog.Logger) *Normalizer {
	return &Normalizer{
		logger: logger,
		now:    time.Now,
	}
}

// NormalizeBatch maps every record it can and collects a skip reason for
// every record it cannot.
func (n *Normalizer) NormalizeBatch(raws []source.RawRecord) ([]models.CostRecommendation, []string) {
	recs := make([]models.CostRecommendation, 0, len(raws))
	var skipped []string

	for _, raw := range raws {
		rec, err := n.Normalize(raw)
		if err != nil {
			n.logger.Warn().Str("source", string(raw.Source)).Err(err).Msg("skipping record")
			skipped = append(skipped, fmt.Sprintf("%s: %v", raw.Source, err))
			continue
		}
		recs = append(recs, *rec)
	}

	return recs, skipped
}

// Normalize maps one raw record. The returned error is the skip reason.
func (n *Normalizer) Normalize(raw source.RawRecord) (*models.CostRecommendation, error) {
	switch raw.Source {
	case models.SourceOptimizer:
		if raw.Optimizer == nil {
			return nil, fmt.Errorf("missing optimizer payload")
		}
		return n.fromOptimizer(raw.Optimizer)
	case models.SourceAdvisor:
		if raw.Advisor == nil {
			return nil, fmt.Errorf("missing advisor payload")
		}
		return n.fromAdvisor(raw.Advisor)
	case models.SourceInsight:
		if raw.Insight == nil {
			return nil, fmt.Errorf("missing insight payload")
		}
		return n.fromInsight(raw.Insight)
	default:
		return nil, fmt.Errorf("unknown source %q", raw.Source)
	}
}

// Fixed lookup tables for enum mapping. Unmapped values default to
// medium (confidence, effort) or general (category).

var optimizerCategories = map[string]models.Category{
	"Rightsize":              models.CategoryCompute,
	"Terminate":              models.CategoryCompute,
	"MigrateToNewGeneration": models.CategoryCompute,
	"PurchaseReserved":       models.CategoryCommitment,
	"PurchaseSavingsPlan":    models.CategoryCommitment,
	"DeleteVolume":           models.CategoryStorage,
	"DeleteSnapshot":         models.CategoryStorage,
}

var optimizerEfforts = map[string]models.EffortLevel{
	"Rightsize":              models.EffortMedium,
	"Terminate":              models.EffortLow,
	"MigrateToNewGeneration": models.EffortHigh,
	"PurchaseReserved":       models.EffortLow,
	"PurchaseSavingsPlan":    models.EffortLow,
	"DeleteVolume":           models.EffortLow,
	"DeleteSnapshot":         models.EffortLow,
}

var optimizerConfidences = map[string]models.ConfidenceLevel{
	"VERY_HIGH": models.ConfidenceHigh,
	"HIGH":      models.ConfidenceHigh,
	"MEDIUM":    models.ConfidenceMedium,
	"LOW":       models.ConfidenceLow,
	"VERY_LOW":  models.ConfidenceLow,
}

var advisorImpacts = map[string]models.ConfidenceLevel{
	"High":   models.ConfidenceHigh,
	"Medium": models.ConfidenceMedium,
	"Low":    models.ConfidenceLow,
}

var insightConfidences = map[string]models.ConfidenceLevel{
	"high":   models.ConfidenceHigh,
	"medium": models.ConfidenceMedium,
	"low":    models.ConfidenceLow,
}

// advisorServiceCategories maps impacted-service keywords to a category,
// checked in order.
var advisorServiceCategories = []struct {
	keyword  string
	category models.Category
}{
	{"reservation", models.CategoryCommitment},
	{"reserved", models.CategoryCommitment},
	{"storage", models.CategoryStorage},
	{"disk", models.CategoryStorage},
	{"blob", models.CategoryStorage},
	{"bucket", models.CategoryStorage},
	{"sql", models.CategoryDatabase},
	{"database", models.CategoryDatabase},
	{"cosmos", models.CategoryDatabase},
	{"network", models.CategoryNetworking},
	{"gateway", models.CategoryNetworking},
	{"load balancer", models.CategoryNetworking},
	{"ip address", models.CategoryNetworking},
	{"virtual machine", models.CategoryCompute},
	{"compute", models.CategoryCompute},
	{"kubernetes", models.CategoryCompute},
	{"vm", models.CategoryCompute},
}

var insightTypeCategories = []struct {
	keyword  string
	category models.Category
}{
	{"volume", models.CategoryStorage},
	{"disk", models.CategoryStorage},
	{"bucket", models.CategoryStorage},
	{"database", models.CategoryDatabase},
	{"db", models.CategoryDatabase},
	{"load-balancer", models.CategoryNetworking},
	{"nat", models.CategoryNetworking},
	{"instance", models.CategoryCompute},
	{"vm", models.CategoryCompute},
	{"node", models.CategoryCompute},
}

func (n *Normalizer) fromOptimizer(rec *source.OptimizerRecord) (*models.CostRecommendation, error) {
	if rec.RecommendationID == "" {
		return nil, fmt.Errorf("missing identifier")
	}

	category, ok := optimizerCategories[rec.ActionType]
	if !ok {
		category = models.CategoryGeneral
	}
	effort, ok := optimizerEfforts[rec.ActionType]
	if !ok {
		effort = models.EffortMedium
	}
	confidence, ok := optimizerConfidences[rec.Confidence]
	if !ok {
		confidence = models.ConfidenceMedium
	}

	resources := make([]models.AffectedResource, 0, len(rec.Resources))
	service := "compute"
	for _, res := range rec.Resources {
		region := res.Region
		if region == "" {
			region = rec.Region
		}
		resources = append(resources, models.AffectedResource{
			ID:     res.ARN,
			Type:   res.Type,
			Region: region,
		})
	}
	if len(rec.Resources) > 0 && rec.Resources[0].Type != "" {
		service = rec.Resources[0].Type
	}

	title := actionLabel(rec.ActionType, rec.Finding)
	description := rec.Description
	if description == "" {
		description = fmt.Sprintf("%s finding for %d resource(s) over a %d-day lookback",
			rec.Finding, len(rec.Resources), rec.LookbackPeriodDays)
	}

	now := n.now()
	out := &models.CostRecommendation{
		ID:                  rec.RecommendationID,
		Source:              models.SourceOptimizer,
		Category:            category,
		Service:             service,
		Title:               title,
		Description:         description,
		RecommendedAction:   title,
		RecommendedChange:   recommendedChange(category, rec.ActionType, rec.CurrentInstanceType, rec.RecommendedInstanceType, service, description),
		CurrentState:        currentState(resources),
		EstimatedSavingsPct: savingsPercentage(rec.EstimatedMonthlySavings, rec.EstimatedMonthlyCost),

		MonthlySavings:  rec.EstimatedMonthlySavings,
		AnnualSavings:   roundAnnual(rec.EstimatedMonthlySavings),
		ConfidenceLevel: confidence,

		ImplementationEffort: effort,
		ImplementationSteps:  implementationSteps(category, rec.ActionType),
		RequiredPermissions:  requiredPermissions(category),
		PotentialRisks:       potentialRisks(category, effort),

		AffectedResources: resources,
		ResourceCount:     len(resources),

		CreatedDate: now,
		LastUpdated: now,
		Status:      models.StatusNew,
	}
	return out, nil
}

func (n *Normalizer) fromAdvisor(rec *source.AdvisorRecord) (*models.CostRecommendation, error) {
	if rec.ID == "" {
		return nil, fmt.Errorf("missing identifier")
	}

	category := models.CategoryGeneral
	serviceLower := strings.ToLower(rec.ImpactedService)
	for _, entry := range advisorServiceCategories {
		if strings.Contains(serviceLower, entry.keyword) {
			category = entry.category
			break
		}
	}

	confidence, ok := advisorImpacts[rec.Impact]
	if !ok {
		confidence = models.ConfidenceMedium
	}

	monthlySavings := parseAmount(rec.ExtendedProperties["savingsAmount"])
	if monthlySavings == 0 {
		if annual := parseAmount(rec.ExtendedProperties["annualSavingsAmount"]); annual > 0 {
			monthlySavings = annual / 12
		}
	}
	monthlyCost := parseAmount(rec.ExtendedProperties["monthlyCost"])

	region := rec.ExtendedProperties["region"]
	resources := make([]models.AffectedResource, 0, len(rec.ResourceIDs))
	for _, id := range rec.ResourceIDs {
		resources = append(resources, models.AffectedResource{
			ID:     id,
			Type:   rec.ImpactedService,
			Region: region,
		})
	}

	solution := rec.ShortDescription.Solution
	effort := advisorEffort(solution)

	title := actionLabel(solution, rec.ShortDescription.Problem, rec.ImpactedService)
	description := rec.ShortDescription.Problem
	if solution != "" {
		description = strings.TrimSpace(description + " " + solution)
	}

	now := n.now()
	created := now
	if !rec.LastUpdated.IsZero() {
		created = rec.LastUpdated
	}

	out := &models.CostRecommendation{
		ID:                  rec.ID,
		Source:              models.SourceAdvisor,
		Category:            category,
		Service:             rec.ImpactedService,
		Title:               title,
		Description:         description,
		RecommendedAction:   title,
		RecommendedChange:   recommendedChange(category, solution, rec.ExtendedProperties["currentSku"], rec.ExtendedProperties["targetSku"], rec.ImpactedService, description),
		CurrentState:        currentState(resources),
		EstimatedSavingsPct: savingsPercentage(monthlySavings, monthlyCost),

		MonthlySavings:  monthlySavings,
		AnnualSavings:   roundAnnual(monthlySavings),
		ConfidenceLevel: confidence,

		ImplementationEffort: effort,
		ImplementationSteps:  implementationSteps(category, solution),
		RequiredPermissions:  requiredPermissions(category),
		PotentialRisks:       potentialRisks(category, effort),

		AffectedResources: resources,
		ResourceCount:     len(resources),

		CreatedDate: created,
		LastUpdated: now,
		Status:      models.StatusNew,
	}
	return out, nil
}

func (n *Normalizer) fromInsight(rec *source.InsightRecord) (*models.CostRecommendation, error) {
	if rec.FingerprintID == "" || rec.ResourceID == "" {
		return nil, fmt.Errorf("missing identifier")
	}

	category := models.CategoryGeneral
	typeLower := strings.ToLower(rec.ResourceType)
	for _, entry := range insightTypeCategories {
		if strings.Contains(typeLower, entry.keyword) {
			category = entry.category
			break
		}
	}

	confidence, ok := insightConfidences[rec.Confidence]
	if !ok {
		confidence = models.ConfidenceMedium
	}

	// Near-idle resources are cheap to stop; the rest need rightsizing.
	effort := models.EffortMedium
	action := "rightsize"
	if rec.AvgUtilization < 10 {
		effort = models.EffortLow
		action = "idle"
	}

	service := rec.Service
	if service == "" {
		service = rec.ResourceType
	}

	resources := []models.AffectedResource{{
		ID:     rec.ResourceID,
		Type:   rec.ResourceType,
		Region: rec.Region,
	}}

	title := actionLabel(action, rec.ResourceType)

	now := n.now()
	out := &models.CostRecommendation{
		ID:                  rec.FingerprintID,
		Source:              models.SourceInsight,
		Category:            category,
		Service:             service,
		Title:               title,
		Description:         rec.Observation,
		RecommendedAction:   title,
		RecommendedChange:   recommendedChange(category, action, "", "", service, rec.Observation),
		CurrentState:        currentState(resources),
		EstimatedSavingsPct: savingsPercentage(rec.EstimatedMonthlySavings, rec.MonthlyCost),

		MonthlySavings:  rec.EstimatedMonthlySavings,
		AnnualSavings:   roundAnnual(rec.EstimatedMonthlySavings),
		ConfidenceLevel: confidence,

		ImplementationEffort: effort,
		ImplementationSteps:  implementationSteps(category, action),
		RequiredPermissions:  requiredPermissions(category),
		PotentialRisks:       potentialRisks(category, effort),

		AffectedResources: resources,
		ResourceCount:     len(resources),

		CreatedDate: now,
		LastUpdated: now,
		Status:      models.StatusNew,
	}
	return out, nil
}

func advisorEffort(solution string) models.EffortLevel {
	lowered := strings.ToLower(solution)
	switch {
	case strings.Contains(lowered, "delete"), strings.Contains(lowered, "remove"),
		strings.Contains(lowered, "purchase"), strings.Contains(lowered, "reserved"):
		return models.EffortLow
	case strings.Contains(lowered, "migrate"), strings.Contains(lowered, "re-architect"):
		return models.EffortHigh
	default:
		return models.EffortMedium
	}
}

func parseAmount(raw string) float64 {
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseFloat(strings.TrimPrefix(raw, "$"), 64)
	if err != nil || value < 0 {
		return 0
	}
	return value
}

func implementationSteps(category models.Category, action string) []string {
	lowered := strings.ToLower(action)

	if category == models.CategoryCommitment || strings.Contains(lowered, "reserved") || strings.Contains(lowered, "savings") {
		return []string{
			"Review historical usage to confirm a steady baseline",
			"Select the commitment term and payment option that match the baseline",
			"Purchase the reservation through the billing console",
			"Track utilization of the commitment over the first month",
		}
	}

	if strings.Contains(lowered, "delete") || strings.Contains(lowered, "terminate") || strings.Contains(lowered, "idle") {
		return []string{
			"Confirm the resource has no remaining dependents",
			"Snapshot or back up any data that must be retained",
			"Delete or stop the resource",
			"Verify billing reflects the removal in the next cycle",
		}
	}

	return []string{
		"Review the recommendation details and affected resources",
		"Validate the change in a non-production environment",
		"Apply the change during a maintenance window",
		"Monitor cost and performance for one billing cycle",
	}
}

func requiredPermissions(category models.Category) []string {
	switch category {
	case models.CategoryCompute:
		return []string{"compute:Describe*", "compute:Modify*"}
	case models.CategoryStorage:
		return []string{"storage:List*", "storage:Delete*"}
	case models.CategoryDatabase:
		return []string{"database:Describe*", "database:Modify*"}
	case models.CategoryNetworking:
		return []string{"network:Describe*", "network:Modify*"}
	case models.CategoryCommitment:
		return []string{"billing:ViewUsage", "billing:PurchaseReservation"}
	default:
		return []string{"billing:ViewUsage"}
	}
}

func potentialRisks(category models.Category, effort models.EffortLevel) []string {
	var risks []string

	switch category {
	case models.CategoryStorage:
		risks = append(risks, "Data loss if the resource is still referenced")
	case models.CategoryCompute:
		risks = append(risks, "Performance degradation under peak load")
	case models.CategoryDatabase:
		risks = append(risks, "Connection disruption during the change window")
	case models.CategoryNetworking:
		risks = append(risks, "Traffic interruption while reconfiguring")
	case models.CategoryCommitment:
		risks = append(risks, "Commitment lock-in if usage drops")
	}

	if effort == models.EffortHigh {
		risks = append(risks, "Extended migration window with rollback complexity")
	}
	if len(risks) == 0 {
		risks = append(risks, "Review the change for workload-specific impact")
	}
	return risks
}
