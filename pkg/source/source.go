// Package source contains the clients for the three upstream
// recommendation providers. Each client classifies upstream failures into
// terminal and transient classes and runs every call through the shared
// resilience executor. Raw records keep their provider-specific schema
// until the normalizer maps them into the unified model.
package source

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/opscart/cost-advisor/pkg/models"
)

// Query scopes one fetch against a provider.
type Query struct {
	Region     string
	MaxResults int
	Filters    map[string]string
}

// CacheKey builds a deterministic per-source cache key for the query.
func (q Query) CacheKey(src models.Source) string {
	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|%s|%d", src, q.Region, q.MaxResults)
	for _, k := range keys {
		fmt.Fprintf(&sb, "|%s=%s", k, q.Filters[k])
	}
	return sb.String()
}

// Client is the contract every provider client implements. The core is
// transport-agnostic beyond this interface.
type Client interface {
	Name() string
	Source() models.Source
	Fetch(ctx context.Context, q Query) ([]RawRecord, error)
}

// RawRecord is a tagged variant: exactly one of the provider pointers is
// set, matching Source. Explicit per-provider mapping in the normalizer
// replaces any runtime attribute probing.
type RawRecord struct {
	Source    models.Source
	Optimizer *OptimizerRecord
	Advisor   *AdvisorRecord
	Insight   *InsightRecord
}

// OptimizerResource is one resource referenced by an optimizer record.
type OptimizerResource struct {
	ARN    string `json:"arn"`
	Type   string `json:"type"`
	Region string `json:"region"`
}

// OptimizerRecord is the raw schema of the compute optimizer provider.
// The normalizer depends on: RecommendationID, ActionType/Finding,
// EstimatedMonthlySavings, EstimatedMonthlyCost, Resources.
type OptimizerRecord struct {
	RecommendationID        string              `json:"recommendationId"`
	AccountID               string              `json:"accountId"`
	Region                  string              `json:"region"`
	Finding                 string              `json:"finding"`
	ActionType              string              `json:"actionType"`
	CurrentInstanceType     string              `json:"currentInstanceType"`
	RecommendedInstanceType string              `json:"recommendedInstanceType"`
	EstimatedMonthlySavings float64             `json:"estimatedMonthlySavings"`
	EstimatedMonthlyCost    float64             `json:"estimatedMonthlyCost"`
	Confidence              string              `json:"confidence"`
	LookbackPeriodDays      int                 `json:"lookbackPeriodDays"`
	Description             string              `json:"description"`
	Resources               []OptimizerResource `json:"resources"`
}

// AdvisorRecord is the raw schema of the advisor provider. The normalizer
// depends on: ID, Category, Problem/Solution, ResourceIDs, and the
// savingsAmount/currentSku/targetSku extended properties.
type AdvisorRecord struct {
	ID              string `json:"id"`
	Category        string `json:"category"`
	Impact          string `json:"impact"`
	ImpactedService string `json:"impactedService"`

	ShortDescription struct {
		Problem  string `json:"problem"`
		Solution string `json:"solution"`
	} `json:"shortDescription"`

	ResourceIDs        []string          `json:"resourceIds"`
	ExtendedProperties map[string]string `json:"extendedProperties"`
	LastUpdated        time.Time         `json:"lastUpdated"`
}

// InsightRecord is synthesized from utilization metrics by the insight
// provider. The normalizer depends on: FingerprintID, Observation,
// EstimatedMonthlySavings, MonthlyCost, ResourceID.
type InsightRecord struct {
	FingerprintID           string  `json:"fingerprintId"`
	Service                 string  `json:"service"`
	ResourceID              string  `json:"resourceId"`
	ResourceType            string  `json:"resourceType"`
	Region                  string  `json:"region"`
	AvgUtilization          float64 `json:"avgUtilization"`
	MonthlyCost             float64 `json:"monthlyCost"`
	EstimatedMonthlySavings float64 `json:"estimatedMonthlySavings"`
	Confidence              string  `json:"confidence"`
	Observation             string  `json:"observation"`
}
