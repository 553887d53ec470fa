package models

import "time"

// DegradationStatus classifies how complete an aggregation run was.
type DegradationStatus string

const (
	DegradationFull    DegradationStatus = "full_service"
	DegradationPartial DegradationStatus = "partial"
	DegradationLimited DegradationStatus = "limited"
	DegradationMinimal DegradationStatus = "minimal"
)

// CategorySummary is one entry in the executive summary's top categories.
type CategorySummary struct {
	Category       Category `json:"category"`
	Count          int      `json:"count"`
	MonthlySavings float64  `json:"monthly_savings"`
}

// RoadmapPhase groups recommendations into an implementation phase.
type RoadmapPhase struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Count           int      `json:"count"`
	MonthlySavings  float64  `json:"monthly_savings"`
	Recommendations []string `json:"recommendation_ids"`
}

// ExecutiveSummary rolls the final recommendation set into top-line
// metrics. Built once per run, replacing the prior instance wholesale.
type ExecutiveSummary struct {
	TotalRecommendations int       `json:"total_recommendations"`
	TotalMonthlySavings  float64   `json:"total_monthly_savings"`
	TotalAnnualSavings   float64   `json:"total_annual_savings"`

	HighPriorityCount   int `json:"high_priority_count"`
	MediumPriorityCount int `json:"medium_priority_count"`
	LowPriorityCount    int `json:"low_priority_count"`

	TopCategories         []CategorySummary `json:"top_categories"`
	ImplementationRoadmap []RoadmapPhase    `json:"implementation_roadmap"`
	DataFreshness         time.Time         `json:"data_freshness"`
}

// DataQualityInfo summarizes how trustworthy the aggregated data is.
type DataQualityInfo struct {
	Status           string   `json:"status"`
	Completeness     float64  `json:"completeness"`
	Reliability      float64  `json:"reliability"`
	AvailableSources []Source `json:"available_sources"`
	ErrorCount       int      `json:"error_count"`
}

// DegradationInfo names which sources contributed to a run.
type DegradationInfo struct {
	Status           DegradationStatus `json:"status"`
	AvailableSources []Source          `json:"available_sources"`
	FailedSources    []Source          `json:"failed_sources"`
}

// QualityReport is the validator's batch summary.
type QualityReport struct {
	TotalProcessed int      `json:"total_processed"`
	ValidCount     int      `json:"valid_count"`
	RemovedCount   int      `json:"removed_count"`
	Errors         []string `json:"errors"`
	QualityScore   float64  `json:"quality_score"`
}

// AnomalyType tags one class of statistically suspicious value.
type AnomalyType string

const (
	AnomalyExtremeSavings          AnomalyType = "extreme_savings"
	AnomalyRoundNumberEstimate     AnomalyType = "round_number_estimate"
	AnomalyVeryLowSavings          AnomalyType = "very_low_savings"
	AnomalyPrioritySavingsMismatch AnomalyType = "priority_savings_mismatch"
)

// AnomalyFlag marks one recommendation value for operator attention.
// Advisory only: flags never remove a recommendation from the result.
type AnomalyFlag struct {
	RecommendationID string      `json:"recommendation_id"`
	Type             AnomalyType `json:"type"`
	Detail           string      `json:"detail"`
}

// AggregatedResult is the presentation-ready output of one aggregation
// run. ExecutiveSummary and Recommendations are always present, possibly
// empty; the orchestrator never returns an error to its caller.
type AggregatedResult struct {
	ExecutiveSummary   ExecutiveSummary     `json:"executive_summary"`
	Recommendations    []CostRecommendation `json:"recommendations"`
	ErrorMessages      []string             `json:"error_messages"`
	DataCollectionTime time.Time            `json:"data_collection_time"`
	DataQuality        DataQualityInfo      `json:"data_quality"`
	Degradation        DegradationInfo      `json:"graceful_degradation_info"`
	Anomalies          []AnomalyFlag        `json:"anomalies"`
	QualityReport      QualityReport        `json:"quality_report"`
}
