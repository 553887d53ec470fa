// Package crossref correlates cost recommendations with externally
// supplied security findings. It is an optional enrichment: callers that
// have no findings get an empty result, never an error.
package crossref

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opscart/cost-advisor/pkg/models"
)

// Severity levels accepted on findings. Unknown severities score as low.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// Merged priority weights: the finding severity dominates because a
// security problem on a resource outranks the savings opportunity on it.
const (
	costWeight     = 0.4
	severityWeight = 0.6
)

var severityScores = map[string]float64{
	SeverityCritical: 100,
	SeverityHigh:     80,
	SeverityMedium:   50,
	SeverityLow:      25,
}

// Finding is one externally supplied security or compliance finding.
type Finding struct {
	ID          string   `json:"id"`
	ResourceIDs []string `json:"resource_ids"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    string   `json:"severity"`
}

// FindingSet maps a service name to its findings, the shape produced by
// the external scanner.
type FindingSet map[string][]Finding

// Conflict marks a recommendation whose action would weaken the control
// a finding is about.
type Conflict struct {
	FindingID string `json:"finding_id"`
	Topic     string `json:"topic"`
	Detail    string `json:"detail"`
}

// Complement marks a recommendation whose action also remediates, or
// eases remediating, a finding.
type Complement struct {
	FindingID string `json:"finding_id"`
	Pattern   string `json:"pattern"`
	Detail    string `json:"detail"`
}

// ActionPlan is the unified sequence for one resource touched by both a
// recommendation and at least one finding.
type ActionPlan struct {
	ResourceID   string   `json:"resource_id"`
	Sequence     []string `json:"sequence"`
	PreChecks    []string `json:"pre_checks"`
	DuringChecks []string `json:"during_checks"`
	PostChecks   []string `json:"post_checks"`
}

// IntegratedRecommendation pairs a recommendation with the findings that
// share resources with it.
type IntegratedRecommendation struct {
	Recommendation models.CostRecommendation `json:"recommendation"`
	Findings       []Finding                 `json:"findings"`
	MergedPriority float64                   `json:"merged_priority"`
	Conflicts      []Conflict                `json:"conflicts"`
	Complements    []Complement              `json:"complements"`
	ActionPlans    []ActionPlan              `json:"action_plans"`
}

// conflictTopics pairs verbs that reduce a control with the control topic
// a finding may be about. A recommendation matching the verbs alongside a
// finding matching the topic is a conflict.
var conflictTopics = []struct {
	topic    string
	verbs    []string
	keywords []string
}{
	{
		topic:    "encryption",
		verbs:    []string{"delete", "terminate", "remove", "disable", "downgrade"},
		keywords: []string{"encrypt", "kms", "tls"},
	},
	{
		topic:    "monitoring",
		verbs:    []string{"delete", "terminate", "remove", "disable"},
		keywords: []string{"monitor", "logging", "audit", "cloudtrail"},
	},
	{
		topic:    "backup",
		verbs:    []string{"delete", "terminate", "remove"},
		keywords: []string{"backup", "snapshot", "retention"},
	},
}

// complementaryPatterns name actions where doing the cost work also
// advances the security work.
var complementaryPatterns = []struct {
	name            string
	recKeywords     []string
	findingKeywords []string
}{
	{
		name:            "rightsizing",
		recKeywords:     []string{"rightsize", "instance type", "over-provisioned", "downsize"},
		findingKeywords: []string{"unused", "idle", "over-provisioned", "excessive"},
	},
	{
		name:            "automation",
		recKeywords:     []string{"schedule", "automat", "lifecycle"},
		findingKeywords: []string{"manual", "automat", "rotation"},
	},
	{
		name:            "consolidation",
		recKeywords:     []string{"consolidat", "migrate", "merge"},
		findingKeywords: []string{"sprawl", "duplicate", "unmanaged"},
	},
}

// Correlate computes resource-id overlap between recommendations and
// findings, one IntegratedRecommendation per overlapping pair set.
// Output order follows the recommendation input order.
func Correlate(recs []models.CostRecommendation, findings FindingSet) []IntegratedRecommendation {
	out := []IntegratedRecommendation{}
	if len(findings) == 0 {
		return out
	}

	for i := range recs {
		rec := recs[i]

		candidates := findings[rec.Service]
		if len(candidates) == 0 {
			continue
		}

		recIDs := make(map[string]bool, rec.ResourceCount)
		for _, id := range rec.ResourceIDs() {
			recIDs[id] = true
		}

		var matched []Finding
		overlap := map[string]bool{}
		for _, finding := range candidates {
			hit := false
			for _, id := range finding.ResourceIDs {
				if recIDs[id] {
					overlap[id] = true
					hit = true
				}
			}
			if hit {
				matched = append(matched, finding)
			}
		}
		if len(matched) == 0 {
			continue
		}

		integrated := IntegratedRecommendation{
			Recommendation: rec,
			Findings:       matched,
			MergedPriority: mergedPriority(rec.PriorityScore, matched),
			Conflicts:      detectConflicts(&rec, matched),
			Complements:    detectComplements(&rec, matched),
		}

		resources := make([]string, 0, len(overlap))
		for id := range overlap {
			resources = append(resources, id)
		}
		sort.Strings(resources)
		for _, id := range resources {
			integrated.ActionPlans = append(integrated.ActionPlans, buildActionPlan(id, &rec, matched))
		}

		out = append(out, integrated)
	}

	return out
}

// mergedPriority blends the cost score with the worst finding severity.
func mergedPriority(costScore float64, findings []Finding) float64 {
	var worst float64
	for _, finding := range findings {
		score, ok := severityScores[strings.ToLower(finding.Severity)]
		if !ok {
			score = severityScores[SeverityLow]
		}
		if score > worst {
			worst = score
		}
	}
	return costWeight*costScore + severityWeight*worst
}

func detectConflicts(rec *models.CostRecommendation, findings []Finding) []Conflict {
	recText := recommendationText(rec)

	var conflicts []Conflict
	for _, pattern := range conflictTopics {
		if !containsAny(recText, pattern.verbs) {
			continue
		}
		for _, finding := range findings {
			if containsAny(findingText(&finding), pattern.keywords) {
				conflicts = append(conflicts, Conflict{
					FindingID: finding.ID,
					Topic:     pattern.topic,
					Detail: fmt.Sprintf("recommendation %q may weaken %s flagged by finding %q",
						rec.Title, pattern.topic, finding.Title),
				})
			}
		}
	}
	return conflicts
}

func detectComplements(rec *models.CostRecommendation, findings []Finding) []Complement {
	recText := recommendationText(rec)

	var complements []Complement
	for _, pattern := range complementaryPatterns {
		if !containsAny(recText, pattern.recKeywords) {
			continue
		}
		for _, finding := range findings {
			if containsAny(findingText(&finding), pattern.findingKeywords) {
				complements = append(complements, Complement{
					FindingID: finding.ID,
					Pattern:   pattern.name,
					Detail: fmt.Sprintf("recommendation %q and finding %q can be addressed in one %s change",
						rec.Title, finding.Title, pattern.name),
				})
			}
		}
	}
	return complements
}

// buildActionPlan orders remediation and cost work for one resource.
// Critical and high findings are remediated before the cost change; the
// rest can follow it.
func buildActionPlan(resourceID string, rec *models.CostRecommendation, findings []Finding) ActionPlan {
	var urgent, routine []string
	for _, finding := range findings {
		if !containsID(finding.ResourceIDs, resourceID) {
			continue
		}
		step := fmt.Sprintf("Remediate finding %q (%s)", finding.Title, strings.ToLower(finding.Severity))
		switch strings.ToLower(finding.Severity) {
		case SeverityCritical, SeverityHigh:
			urgent = append(urgent, step)
		default:
			routine = append(routine, step)
		}
	}

	sequence := append([]string{}, urgent...)
	sequence = append(sequence, fmt.Sprintf("Apply cost recommendation %q to %s", rec.Title, resourceID))
	sequence = append(sequence, routine...)
	sequence = append(sequence, "Confirm realized savings against the estimate")

	return ActionPlan{
		ResourceID: resourceID,
		Sequence:   sequence,
		PreChecks: []string{
			"Snapshot or back up the resource state",
			"Confirm resource ownership and change approval",
			"Verify the finding is still open",
		},
		DuringChecks: []string{
			"Apply changes inside the agreed maintenance window",
			"Watch service health metrics while the change rolls out",
		},
		PostChecks: []string{
			"Re-scan the resource to confirm the finding is closed",
			"Verify billing reflects the expected reduction",
			"Update the asset inventory",
		},
	}
}

func recommendationText(rec *models.CostRecommendation) string {
	return strings.ToLower(rec.Title + " " + rec.Description + " " + rec.RecommendedAction + " " + rec.RecommendedChange)
}

func findingText(finding *Finding) string {
	return strings.ToLower(finding.Title + " " + finding.Description)
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
