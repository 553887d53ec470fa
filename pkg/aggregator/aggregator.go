// Package aggregator coordinates the whole pipeline: parallel source
// fetches under resilience protection, normalization, deduplication,
// scoring, validation, anomaly detection, and the executive summary.
// Run never returns an error; every failure mode degrades to a partial
// or empty but well-formed result.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/opscart/cost-advisor/pkg/anomaly"
	"github.com/opscart/cost-advisor/pkg/dedup"
	"github.com/opscart/cost-advisor/pkg/metrics"
	"github.com/opscart/cost-advisor/pkg/models"
	"github.com/opscart/cost-advisor/pkg/normalize"
	"github.com/opscart/cost-advisor/pkg/quality"
	"github.com/opscart/cost-advisor/pkg/resilience"
	"github.com/opscart/cost-advisor/pkg/scoring"
	"github.com/opscart/cost-advisor/pkg/source"
)

// Degradation ratio thresholds. Exact fractions so 2 of 3 sources lands
// on partial rather than just below it.
const (
	partialRatio = 2.0 / 3.0
	limitedRatio = 1.0 / 3.0
)

// defaultSourceTimeout bounds one source pipeline end to end.
const defaultSourceTimeout = 120 * time.Second

// Options configures an Aggregator.
type Options struct {
	Sources       []source.Client
	SourceTimeout time.Duration
	Logger        zerolog.Logger
}

// Aggregator owns the per-run pipeline and the process-lifetime pieces:
// the source clients (with their breakers and caches) and the last
// successful result used as the idempotency guard.
type Aggregator struct {
	sources       []source.Client
	normalizer    *normalize.Normalizer
	validator     *quality.Validator
	sourceTimeout time.Duration
	logger        zerolog.Logger

	mu   sync.Mutex
	last *models.AggregatedResult

	// now is replaceable in tests
	now func() time.Time
}

// New creates an Aggregator over the given source clients.
func New(opts Options) *Aggregator {
	timeout := opts.SourceTimeout
	if timeout <= 0 {
		timeout = defaultSourceTimeout
	}

	return &Aggregator{
		sources:       opts.Sources,
		normalizer:    normalize.New(opts.Logger),
		validator:     quality.New(opts.Logger),
		sourceTimeout: timeout,
		logger:        opts.Logger,
		now:           time.Now,
	}
}

// Run executes one aggregation. If a prior result is held and refresh is
// false, it is returned without re-fetching.
func (a *Aggregator) Run(ctx context.Context, q source.Query, refresh bool) *models.AggregatedResult {
	a.mu.Lock()
	if a.last != nil && !refresh {
		cached := a.last
		a.mu.Unlock()
		return cached
	}
	a.mu.Unlock()

	result := a.aggregate(ctx, q)

	a.mu.Lock()
	a.last = result
	a.mu.Unlock()

	return result
}

// Result returns the last aggregation result for display, or nil when no
// run has completed yet.
func (a *Aggregator) Result() *models.AggregatedResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

type fetchOutcome struct {
	recs    []models.CostRecommendation
	skipped []string
	err     error
}

// aggregate does the real work. Any panic in post-processing is replaced
// by a minimal valid result; the caller never sees an error.
func (a *Aggregator) aggregate(ctx context.Context, q source.Query) (result *models.AggregatedResult) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Interface("panic", r).Msg("aggregation pipeline failed")
			result = a.emptyResult(fmt.Sprintf("aggregation failed unexpectedly: %v", r))
		}
	}()

	collectionTime := a.now()

	// One worker per source; each pipeline gets its own deadline. A
	// source that cannot observe cancellation is abandoned at the
	// deadline and its late result discarded with the context.
	outcomes := make([]fetchOutcome, len(a.sources))
	var wg sync.WaitGroup
	for i, client := range a.sources {
		wg.Add(1)
		go func(i int, client source.Client) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					outcomes[i] = fetchOutcome{err: fmt.Errorf("source panicked: %v", r)}
				}
			}()

			sctx, cancel := context.WithTimeout(ctx, a.sourceTimeout)
			defer cancel()

			raws, err := client.Fetch(sctx, q)
			if err != nil {
				outcomes[i] = fetchOutcome{err: err}
				return
			}

			recs, skipped := a.normalizer.NormalizeBatch(raws)
			outcomes[i] = fetchOutcome{recs: recs, skipped: skipped}
		}(i, client)
	}
	wg.Wait()

	// Collect in fixed source order so the discovery order, and with it
	// every downstream tie-break, is independent of completion order.
	var all []models.CostRecommendation
	errorMessages := []string{}
	available := []models.Source{}
	failed := []models.Source{}

	for i, outcome := range outcomes {
		src := a.sources[i].Source()
		if outcome.err != nil {
			failed = append(failed, src)
			errorMessages = append(errorMessages, fmt.Sprintf("source %s failed: %s", src, diagnose(outcome.err)))
			a.logger.Warn().Str("source", string(src)).Err(outcome.err).Msg("source pipeline failed")
			continue
		}
		available = append(available, src)
		all = append(all, outcome.recs...)
		errorMessages = append(errorMessages, outcome.skipped...)
	}

	successRatio := 0.0
	if len(a.sources) > 0 {
		successRatio = float64(len(available)) / float64(len(a.sources))
	}
	status, statusMessage := classifyDegradation(successRatio, len(available), len(a.sources))
	if statusMessage != "" {
		errorMessages = append(errorMessages, statusMessage)
	}
	metrics.AggregationRunsTotal.WithLabelValues(string(status)).Inc()

	deduped := dedup.Merge(all)
	scoring.Apply(deduped)
	valid, report := a.validator.ValidateBatch(deduped)
	flags := anomaly.Detect(valid)

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].PriorityScore > valid[j].PriorityScore
	})

	errorMessages = append(errorMessages, report.Errors...)

	summary := buildSummary(valid, collectionTime)
	metrics.RecommendationsProduced.WithLabelValues(string(models.PriorityHigh)).Set(float64(summary.HighPriorityCount))
	metrics.RecommendationsProduced.WithLabelValues(string(models.PriorityMedium)).Set(float64(summary.MediumPriorityCount))
	metrics.RecommendationsProduced.WithLabelValues(string(models.PriorityLow)).Set(float64(summary.LowPriorityCount))

	if flags == nil {
		flags = []models.AnomalyFlag{}
	}

	return &models.AggregatedResult{
		ExecutiveSummary:   summary,
		Recommendations:    valid,
		ErrorMessages:      errorMessages,
		DataCollectionTime: collectionTime,
		DataQuality: models.DataQualityInfo{
			Status:           qualityStatus(successRatio, report.QualityScore),
			Completeness:     successRatio,
			Reliability:      report.QualityScore,
			AvailableSources: available,
			ErrorCount:       len(errorMessages),
		},
		Degradation: models.DegradationInfo{
			Status:           status,
			AvailableSources: available,
			FailedSources:    failed,
		},
		Anomalies:     flags,
		QualityReport: report,
	}
}

// emptyResult builds the minimal well-formed fallback.
func (a *Aggregator) emptyResult(message string) *models.AggregatedResult {
	failed := make([]models.Source, 0, len(a.sources))
	for _, client := range a.sources {
		failed = append(failed, client.Source())
	}

	now := a.now()
	return &models.AggregatedResult{
		ExecutiveSummary:   buildSummary(nil, now),
		Recommendations:    []models.CostRecommendation{},
		ErrorMessages:      []string{message},
		DataCollectionTime: now,
		DataQuality: models.DataQualityInfo{
			Status:           "poor",
			AvailableSources: []models.Source{},
			ErrorCount:       1,
		},
		Degradation: models.DegradationInfo{
			Status:           models.DegradationMinimal,
			AvailableSources: []models.Source{},
			FailedSources:    failed,
		},
		Anomalies:     []models.AnomalyFlag{},
		QualityReport: models.QualityReport{QualityScore: 1.0, Errors: []string{}},
	}
}

func classifyDegradation(ratio float64, availableCount, total int) (models.DegradationStatus, string) {
	switch {
	case ratio >= 1.0:
		return models.DegradationFull, ""
	case ratio >= partialRatio:
		return models.DegradationPartial,
			fmt.Sprintf("partial service: %d of %d sources available, results may be incomplete", availableCount, total)
	case ratio >= limitedRatio:
		return models.DegradationLimited,
			fmt.Sprintf("limited service: only %d of %d sources available, results are incomplete", availableCount, total)
	default:
		return models.DegradationMinimal,
			fmt.Sprintf("minimal service: %d of %d sources available", availableCount, total)
	}
}

func qualityStatus(completeness, reliability float64) string {
	switch {
	case completeness >= 1.0 && reliability >= 0.9:
		return "good"
	case completeness >= limitedRatio:
		return "degraded"
	default:
		return "poor"
	}
}

// diagnose turns a source failure into a human-readable cause.
func diagnose(err error) string {
	switch {
	case err == nil:
		return ""
	case resilience.IsCircuitOpen(err):
		return fmt.Sprintf("circuit breaker open, skipping calls until recovery: %v", err)
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out waiting for the provider"
	case resilience.IsTerminal(err):
		return fmt.Sprintf("permanent error, not retried: %v", err)
	default:
		return fmt.Sprintf("transient failure after retries: %v", err)
	}
}
