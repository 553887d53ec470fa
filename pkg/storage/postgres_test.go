package storage

import (
	"strings"
	"testing"
)

// PostgresStore must satisfy the Store interface.
var _ Store = (*PostgresStore)(nil)

func TestMigrationSchemaEmbedded(t *testing.T) {
	schema, err := postgresFS.ReadFile("migrations/001_schema.sql")
	if err != nil {
		t.Fatalf("Embedded schema missing: %v", err)
	}

	sql := string(schema)
	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS aggregation_runs",
		"CREATE TABLE IF NOT EXISTS recommendations",
		"REFERENCES aggregation_runs (id) ON DELETE CASCADE",
		"result JSONB NOT NULL",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("Schema missing %q", want)
		}
	}

	// Migrations run on every startup, so every statement must be
	// re-runnable.
	for _, stmt := range []string{"CREATE TABLE", "CREATE INDEX"} {
		if strings.Count(sql, stmt) != strings.Count(sql, stmt+" IF NOT EXISTS") {
			t.Errorf("Schema has a non-idempotent %s statement", stmt)
		}
	}
}

func TestInsertColumnsMatchSchema(t *testing.T) {
	schema, err := postgresFS.ReadFile("migrations/001_schema.sql")
	if err != nil {
		t.Fatalf("Embedded schema missing: %v", err)
	}
	sql := string(schema)

	// Every column SaveRun writes must exist in the schema.
	runColumns := []string{
		"id", "created_at", "degradation_status",
		"total_recommendations", "total_monthly_savings", "total_annual_savings",
		"quality_score", "result",
	}
	recColumns := []string{
		"run_id", "id", "source", "service", "category", "title",
		"monthly_savings", "annual_savings", "priority_score", "priority_level",
		"implementation_effort", "confidence_level", "resource_count", "status", "created_at",
	}
	for _, col := range append(runColumns, recColumns...) {
		if !strings.Contains(sql, col+" ") {
			t.Errorf("Schema missing column %q", col)
		}
	}
}
