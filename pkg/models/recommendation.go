package models

import "time"

// Source identifies one of the upstream recommendation providers.
type Source string

const (
	SourceOptimizer Source = "optimizer"
	SourceAdvisor   Source = "advisor"
	SourceInsight   Source = "insight"
)

// Category classifies what kind of resource a recommendation targets.
type Category string

const (
	CategoryCompute    Category = "compute"
	CategoryStorage    Category = "storage"
	CategoryDatabase   Category = "database"
	CategoryNetworking Category = "networking"
	CategoryCommitment Category = "commitment"
	CategoryGeneral    Category = "general"
)

// ConfidenceLevel indicates how reliable the provider considers its estimate.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// EffortLevel estimates the work required to implement a recommendation.
type EffortLevel string

const (
	EffortLow    EffortLevel = "low"
	EffortMedium EffortLevel = "medium"
	EffortHigh   EffortLevel = "high"
)

// PriorityLevel is derived from the priority score, never set directly.
type PriorityLevel string

const (
	PriorityHigh   PriorityLevel = "high"
	PriorityMedium PriorityLevel = "medium"
	PriorityLow    PriorityLevel = "low"
)

// Status tracks the review lifecycle of a recommendation. Only external
// consumers mutate it; the aggregation pipeline always emits StatusNew.
type Status string

const (
	StatusNew         Status = "new"
	StatusReviewed    Status = "reviewed"
	StatusImplemented Status = "implemented"
	StatusDismissed   Status = "dismissed"
)

// AffectedResource is one cloud resource a recommendation applies to.
type AffectedResource struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Region string `json:"region"`
}

// CostRecommendation is the unified model every provider record is
// normalized into. Invariants maintained by the pipeline:
//
//	AnnualSavings == round(MonthlySavings*12, 2)
//	ResourceCount == len(AffectedResources)
//	PriorityLevel is a pure function of PriorityScore
type CostRecommendation struct {
	ID          string   `json:"id"`
	Source      Source   `json:"source"`
	Category    Category `json:"category"`
	Service     string   `json:"service"`
	Title       string   `json:"title"`
	Description string   `json:"description"`

	// Presentation fields derived by the normalizer
	RecommendedAction   string `json:"recommended_action"`
	RecommendedChange   string `json:"recommended_change"`
	CurrentState        string `json:"current_state"`
	EstimatedSavingsPct int    `json:"estimated_savings_percentage"`

	MonthlySavings  float64         `json:"monthly_savings"`
	AnnualSavings   float64         `json:"annual_savings"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`

	ImplementationEffort EffortLevel `json:"implementation_effort"`
	ImplementationSteps  []string    `json:"implementation_steps"`
	RequiredPermissions  []string    `json:"required_permissions"`
	PotentialRisks       []string    `json:"potential_risks"`

	AffectedResources []AffectedResource `json:"affected_resources"`
	ResourceCount     int                `json:"resource_count"`

	PriorityScore float64       `json:"priority_score"`
	PriorityLevel PriorityLevel `json:"priority_level"`

	CreatedDate time.Time `json:"created_date"`
	LastUpdated time.Time `json:"last_updated"`
	Status      Status    `json:"status"`
}

// ResourceIDs returns the identifiers of all affected resources.
func (r *CostRecommendation) ResourceIDs() []string {
	ids := make([]string, 0, len(r.AffectedResources))
	for _, res := range r.AffectedResources {
		ids = append(ids, res.ID)
	}
	return ids
}

// ValidSources is the closed set of allowed source values.
var ValidSources = map[Source]bool{
	SourceOptimizer: true,
	SourceAdvisor:   true,
	SourceInsight:   true,
}

// ValidCategories is the closed set of allowed category values.
var ValidCategories = map[Category]bool{
	CategoryCompute:    true,
	CategoryStorage:    true,
	CategoryDatabase:   true,
	CategoryNetworking: true,
	CategoryCommitment: true,
	CategoryGeneral:    true,
}

// ValidConfidenceLevels is the closed set of allowed confidence values.
var ValidConfidenceLevels = map[ConfidenceLevel]bool{
	ConfidenceHigh:   true,
	ConfidenceMedium: true,
	ConfidenceLow:    true,
}

// ValidEffortLevels is the closed set of allowed effort values.
var ValidEffortLevels = map[EffortLevel]bool{
	EffortLow:    true,
	EffortMedium: true,
	EffortHigh:   true,
}
