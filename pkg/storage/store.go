package storage

import (
	"context"
	"time"

	"github.com/opscart/cost-advisor/pkg/models"
)

// Store defines the interface for persistent run storage
type Store interface {
	SaveRun(ctx context.Context, result *models.AggregatedResult) (string, error)
	GetRunResult(ctx context.Context, runID string) (*models.AggregatedResult, error)
	ListRuns(ctx context.Context, limit int) ([]*RunSummary, error)
	ListRecommendations(ctx context.Context, runID string) ([]*models.CostRecommendation, error)

	Ping(ctx context.Context) error
	Close() error
}

// RunSummary is one row of the run history listing.
type RunSummary struct {
	ID                   string                   `json:"id"`
	CreatedAt            time.Time                `json:"created_at"`
	DegradationStatus    models.DegradationStatus `json:"degradation_status"`
	TotalRecommendations int                      `json:"total_recommendations"`
	TotalMonthlySavings  float64                  `json:"total_monthly_savings"`
	QualityScore         float64                  `json:"quality_score"`
}

type Config struct {
	Enabled     bool
	DatabaseURL string
}
