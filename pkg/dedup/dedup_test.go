package dedup

import (
	"testing"

	"github.com/opscart/cost-advisor/pkg/models"
)

func rec(id, service string, category models.Category, savings float64, resourceIDs ...string) models.CostRecommendation {
	resources := make([]models.AffectedResource, 0, len(resourceIDs))
	for _, rid := range resourceIDs {
		resources = append(resources, models.AffectedResource{ID: rid})
	}
	return models.CostRecommendation{
		ID:                id,
		Service:           service,
		Category:          category,
		MonthlySavings:    savings,
		AffectedResources: resources,
		ResourceCount:     len(resources),
	}
}

func TestKeyIgnoresResourceOrder(t *testing.T) {
	a := rec("a", "compute", models.CategoryCompute, 100, "i-1", "i-2")
	b := rec("b", "compute", models.CategoryCompute, 150, "i-2", "i-1")

	if Key(&a) != Key(&b) {
		t.Error("Key depends on resource id order")
	}
}

func TestKeyDiscriminates(t *testing.T) {
	base := rec("a", "compute", models.CategoryCompute, 100, "i-1")

	otherService := rec("b", "storage", models.CategoryCompute, 100, "i-1")
	otherCategory := rec("c", "compute", models.CategoryStorage, 100, "i-1")
	otherResource := rec("d", "compute", models.CategoryCompute, 100, "i-2")

	for name, other := range map[string]models.CostRecommendation{
		"service":  otherService,
		"category": otherCategory,
		"resource": otherResource,
	} {
		if Key(&base) == Key(&other) {
			t.Errorf("Key collision on differing %s", name)
		}
	}
}

func TestMergeKeepsHigherSavings(t *testing.T) {
	recs := []models.CostRecommendation{
		rec("low", "compute", models.CategoryCompute, 100, "i-1"),
		rec("high", "compute", models.CategoryCompute, 150, "i-1"),
	}

	merged := Merge(recs)
	if len(merged) != 1 {
		t.Fatalf("Expected 1 record after merge, got %d", len(merged))
	}
	if merged[0].ID != "high" {
		t.Errorf("Expected the higher-savings record to survive, got %s", merged[0].ID)
	}
	if merged[0].MonthlySavings != 150 {
		t.Errorf("Expected savings 150, got %.2f", merged[0].MonthlySavings)
	}
}

func TestMergeTieKeepsFirst(t *testing.T) {
	recs := []models.CostRecommendation{
		rec("first", "compute", models.CategoryCompute, 100, "i-1"),
		rec("second", "compute", models.CategoryCompute, 100, "i-1"),
	}

	merged := Merge(recs)
	if len(merged) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(merged))
	}
	if merged[0].ID != "first" {
		t.Errorf("Tie should keep the first-seen record, got %s", merged[0].ID)
	}
}

func TestMergePreservesDiscoveryOrder(t *testing.T) {
	recs := []models.CostRecommendation{
		rec("a", "compute", models.CategoryCompute, 10, "i-1"),
		rec("b", "storage", models.CategoryStorage, 20, "v-1"),
		rec("a2", "compute", models.CategoryCompute, 30, "i-1"), // dup of a, higher savings
		rec("c", "database", models.CategoryDatabase, 5, "db-1"),
	}

	merged := Merge(recs)
	if len(merged) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(merged))
	}

	// The replacement stays at the first occurrence's position.
	wantOrder := []string{"a2", "b", "c"}
	for i, want := range wantOrder {
		if merged[i].ID != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, merged[i].ID)
		}
	}
}

func TestMergeEmptyInput(t *testing.T) {
	merged := Merge(nil)
	if len(merged) != 0 {
		t.Errorf("Expected empty output, got %d records", len(merged))
	}
}
