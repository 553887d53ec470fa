package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/opscart/cost-advisor/pkg/models"
)

//go:embed migrations/*.sql
var postgresFS embed.FS

// PostgresStore implements Store interface using PostgreSQL
type PostgresStore struct {
	db  *sql.DB
	dsn string
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{
		db:  db,
		dsn: dsn,
	}

	// Run migrations
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// migrate runs database migrations
func (s *PostgresStore) migrate() error {
	schema, err := postgresFS.ReadFile("migrations/001_schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// SaveRun persists one aggregation result and its recommendations,
// returning the generated run id.
func (s *PostgresStore) SaveRun(ctx context.Context, result *models.AggregatedResult) (string, error) {
	runID := uuid.New().String()

	payload, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to serialize result: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	runQuery := `
		INSERT INTO aggregation_runs (
			id, created_at, degradation_status,
			total_recommendations, total_monthly_savings, total_annual_savings,
			quality_score, result
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.ExecContext(ctx, runQuery,
		runID, result.DataCollectionTime, result.Degradation.Status,
		result.ExecutiveSummary.TotalRecommendations,
		result.ExecutiveSummary.TotalMonthlySavings,
		result.ExecutiveSummary.TotalAnnualSavings,
		result.QualityReport.QualityScore, payload,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	recQuery := `
		INSERT INTO recommendations (
			run_id, id, source, service, category, title,
			monthly_savings, annual_savings, priority_score, priority_level,
			implementation_effort, confidence_level, resource_count, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	for i := range result.Recommendations {
		rec := &result.Recommendations[i]
		_, err = tx.ExecContext(ctx, recQuery,
			runID, rec.ID, rec.Source, rec.Service, rec.Category, rec.Title,
			rec.MonthlySavings, rec.AnnualSavings, rec.PriorityScore, rec.PriorityLevel,
			rec.ImplementationEffort, rec.ConfidenceLevel, rec.ResourceCount, rec.Status, rec.CreatedDate,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert recommendation %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}

	return runID, nil
}

// GetRunResult retrieves the full serialized result of one run.
func (s *PostgresStore) GetRunResult(ctx context.Context, runID string) (*models.AggregatedResult, error) {
	query := `SELECT result FROM aggregation_runs WHERE id = $1`

	var payload []byte
	err := s.db.QueryRowContext(ctx, query, runID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, err
	}

	var result models.AggregatedResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to decode stored result: %w", err)
	}

	return &result, nil
}

// ListRuns retrieves the most recent run summaries
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]*RunSummary, error) {
	query := `
		SELECT id, created_at, degradation_status,
			total_recommendations, total_monthly_savings, quality_score
		FROM aggregation_runs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*RunSummary
	for rows.Next() {
		var run RunSummary
		err := rows.Scan(
			&run.ID, &run.CreatedAt, &run.DegradationStatus,
			&run.TotalRecommendations, &run.TotalMonthlySavings, &run.QualityScore,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// ListRecommendations retrieves the recommendations stored for a run,
// highest priority first.
func (s *PostgresStore) ListRecommendations(ctx context.Context, runID string) ([]*models.CostRecommendation, error) {
	query := `
		SELECT id, source, service, category, title,
			monthly_savings, annual_savings, priority_score, priority_level,
			implementation_effort, confidence_level, resource_count, status, created_at
		FROM recommendations
		WHERE run_id = $1
		ORDER BY priority_score DESC
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recommendations []*models.CostRecommendation
	for rows.Next() {
		var rec models.CostRecommendation
		err := rows.Scan(
			&rec.ID, &rec.Source, &rec.Service, &rec.Category, &rec.Title,
			&rec.MonthlySavings, &rec.AnnualSavings, &rec.PriorityScore, &rec.PriorityLevel,
			&rec.ImplementationEffort, &rec.ConfidenceLevel, &rec.ResourceCount, &rec.Status, &rec.CreatedDate,
		)
		if err != nil {
			return nil, err
		}
		recommendations = append(recommendations, &rec)
	}

	return recommendations, rows.Err()
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
