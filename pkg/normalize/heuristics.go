package normalize

import (
	"fmt"
	"math"
	"strings"

	"github.com/opscart/cost-advisor/pkg/models"
)

// actionLabels maps keywords found in provider action/category fields to a
// short human-readable action label. Matching is ordered: the first
// keyword found wins.
var actionLabels = []struct {
	keyword string
	label   string
}{
	{"terminate", "Terminate idle resource"},
	{"delete", "Delete unused resource"},
	{"unattached", "Remove unattached resource"},
	{"snapshot", "Clean up stale snapshots"},
	{"rightsize", "Rightsize over-provisioned resource"},
	{"right_size", "Rightsize over-provisioned resource"},
	{"resize", "Rightsize over-provisioned resource"},
	{"downsize", "Rightsize over-provisioned resource"},
	{"over_provisioned", "Rightsize over-provisioned resource"},
	{"overprovisioned", "Rightsize over-provisioned resource"},
	{"reserved", "Purchase reserved capacity"},
	{"savings plan", "Purchase reserved capacity"},
	{"savings_plan", "Purchase reserved capacity"},
	{"commitment", "Purchase reserved capacity"},
	{"migrate", "Migrate to a cheaper configuration"},
	{"upgrade", "Upgrade to a newer generation"},
	{"idle", "Stop idle resource"},
	{"shutdown", "Schedule off-hours shutdown"},
}

const genericActionLabel = "Review cost optimization opportunity"

// actionLabel derives a short action label from the provider's action and
// category fields, in order, falling back to a generic label.
func actionLabel(fields ...string) string {
	haystack := strings.ToLower(strings.Join(fields, " "))
	for _, entry := range actionLabels {
		if strings.Contains(haystack, entry.keyword) {
			return entry.label
		}
	}
	return genericActionLabel
}

const genericChange = "Apply the recommended configuration change"

// recommendedChange builds a short "what to change" string from pattern
// heuristics, falling back to the first sentence of the description,
// falling back to a generic string.
func recommendedChange(category models.Category, action, currentSKU, targetSKU, service, description string) string {
	lowered := strings.ToLower(action)

	switch {
	case category == models.CategoryStorage &&
		(strings.Contains(lowered, "delete") || strings.Contains(lowered, "remove") ||
			strings.Contains(lowered, "unattached") || strings.Contains(lowered, "snapshot")):
		return "Delete the unused storage resources to stop recurring charges"

	case currentSKU != "" && targetSKU != "":
		return fmt.Sprintf("Change instance type from %s to %s", currentSKU, targetSKU)

	case strings.Contains(lowered, "migrate"):
		return "Migrate the workload to the recommended configuration"

	case category == models.CategoryCommitment ||
		strings.Contains(lowered, "reserved") || strings.Contains(lowered, "savings"):
		svc := service
		if svc == "" {
			svc = "the service"
		}
		return fmt.Sprintf("Purchase reserved capacity for %s to reduce the on-demand rate", svc)
	}

	if sentence := firstSentence(description); sentence != "" {
		return sentence
	}
	return genericChange
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if idx := strings.Index(text, ". "); idx > 0 {
		return text[:idx+1]
	}
	return text
}

const noResourceDetails = "No resource details available"

// currentState summarizes up to the first three affected resources,
// stripping ARN/URI prefixes from identifiers.
func currentState(resources []models.AffectedResource) string {
	if len(resources) == 0 {
		return noResourceDetails
	}

	limit := len(resources)
	if limit > 3 {
		limit = 3
	}

	names := make([]string, 0, limit)
	for _, res := range resources[:limit] {
		names = append(names, shortResourceID(res.ID))
	}

	state := strings.Join(names, ", ")
	if remaining := len(resources) - limit; remaining > 0 {
		state = fmt.Sprintf("%s, and %d more", state, remaining)
	}
	return state
}

// shortResourceID strips ARN/URI scaffolding, keeping the final path or
// colon segment.
func shortResourceID(id string) string {
	if idx := strings.LastIndex(id, "/"); idx >= 0 && idx < len(id)-1 {
		return id[idx+1:]
	}
	if strings.HasPrefix(id, "arn:") {
		if idx := strings.LastIndex(id, ":"); idx >= 0 && idx < len(id)-1 {
			return id[idx+1:]
		}
	}
	return id
}

// savingsPercentage estimates savings as a share of current cost, clamped
// to [0, 100]. Positive savings against a zero or unknown cost read as
// 100; zero savings read as 0.
func savingsPercentage(monthlySavings, monthlyCost float64) int {
	if monthlyCost <= 0 {
		if monthlySavings > 0 {
			return 100
		}
		return 0
	}

	pct := monthlySavings / monthlyCost * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return int(math.Round(pct))
}

// roundAnnual computes the annual savings invariant value.
func roundAnnual(monthly float64) float64 {
	return math.Round(monthly*12*100) / 100
}
