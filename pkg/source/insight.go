package source

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog"

	"github.com/opscart/cost-advisor/pkg/cache"
	"github.com/opscart/cost-advisor/pkg/metrics"
	"github.com/opscart/cost-advisor/pkg/models"
	"github.com/opscart/cost-advisor/pkg/resilience"
)

// Recording rules the insight provider reads. Utilization is a percentage,
// cost a monthly USD figure, both labeled by resource_id, resource_type,
// service, and region.
const (
	queryAvgUtilization = `avg_over_time(resource:cpu_utilization:percent[7d])`
	queryMonthlyCost    = `resource:monthly_cost:usd`
)

// underutilizedThreshold is the utilization percentage below which a
// resource yields an insight record.
const underutilizedThreshold = 40.0

// promQuerier is the slice of the Prometheus v1 API the client needs.
type promQuerier interface {
	Query(ctx context.Context, query string, ts time.Time, opts ...promv1.Option) (model.Value, promv1.Warnings, error)
}

// InsightOptions configures the insight client.
type InsightOptions struct {
	PrometheusURL string
	Resilience    resilience.Config
	CacheTTL      time.Duration
	Logger        zerolog.Logger
}

// InsightClient synthesizes cost recommendations from utilization metrics
// served by a Prometheus-compatible endpoint.
type InsightClient struct {
	api    promQuerier
	exec   *resilience.Executor[[]RawRecord]
	cache  *cache.Cache[[]RawRecord]
	logger zerolog.Logger
}

// NewInsightClient creates an insight client.
func NewInsightClient(opts InsightOptions) (*InsightClient, error) {
	client, err := api.NewClient(api.Config{
		Address: opts.PrometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Minute
	}

	return &InsightClient{
		api:    promv1.NewAPI(client),
		exec:   resilience.NewExecutor[[]RawRecord]("insight", opts.Resilience, opts.Logger),
		cache:  cache.New[[]RawRecord](cacheTTL),
		logger: opts.Logger,
	}, nil
}

func (c *InsightClient) Name() string {
	return "insight"
}

func (c *InsightClient) Source() models.Source {
	return models.SourceInsight
}

// Fetch queries utilization and cost series and emits one record per
// underutilized resource.
func (c *InsightClient) Fetch(ctx context.Context, q Query) ([]RawRecord, error) {
	key := q.CacheKey(models.SourceInsight)
	if cached, ok := c.cache.Get(key); ok {
		metrics.CacheHits.WithLabelValues("insight").Inc()
		return cached, nil
	}
	metrics.CacheMisses.WithLabelValues("insight").Inc()

	start := time.Now()
	defer func() {
		metrics.SourceFetchDuration.WithLabelValues("insight").Observe(time.Since(start).Seconds())
	}()

	records, err := c.exec.Execute(ctx, func(ctx context.Context) ([]RawRecord, error) {
		return c.collect(ctx, q)
	})
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, records)
	return records, nil
}

func (c *InsightClient) collect(ctx context.Context, q Query) ([]RawRecord, error) {
	utilization, err := c.queryVector(ctx, queryAvgUtilization)
	if err != nil {
		return nil, err
	}

	costs, err := c.queryVector(ctx, queryMonthlyCost)
	if err != nil {
		return nil, err
	}

	costByResource := make(map[string]float64, len(costs))
	for _, sample := range costs {
		costByResource[string(sample.Metric["resource_id"])] = float64(sample.Value)
	}

	// Vector ordering from the API is unspecified; sort for determinism.
	sort.Slice(utilization, func(i, j int) bool {
		return utilization[i].Metric["resource_id"] < utilization[j].Metric["resource_id"]
	})

	var records []RawRecord
	for _, sample := range utilization {
		util := float64(sample.Value)
		if util >= underutilizedThreshold {
			continue
		}

		region := string(sample.Metric["region"])
		if q.Region != "" && region != q.Region {
			continue
		}

		resourceID := string(sample.Metric["resource_id"])
		monthlyCost := costByResource[resourceID]

		var savings float64
		var confidence string
		switch {
		case util < 10:
			savings = monthlyCost * 0.8
			confidence = "high"
		case util < 25:
			savings = monthlyCost * 0.5
			confidence = "medium"
		default:
			savings = monthlyCost * 0.3
			confidence = "low"
		}

		rec := InsightRecord{
			FingerprintID:           fmt.Sprintf("insight-%s", resourceID),
			Service:                 string(sample.Metric["service"]),
			ResourceID:              resourceID,
			ResourceType:            string(sample.Metric["resource_type"]),
			Region:                  region,
			AvgUtilization:          util,
			MonthlyCost:             monthlyCost,
			EstimatedMonthlySavings: savings,
			Confidence:              confidence,
			Observation:             fmt.Sprintf("average utilization %.1f%% over the last 7 days", util),
		}
		records = append(records, RawRecord{Source: models.SourceInsight, Insight: &rec})

		if q.MaxResults > 0 && len(records) >= q.MaxResults {
			break
		}
	}

	return records, nil
}

func (c *InsightClient) queryVector(ctx context.Context, query string) (model.Vector, error) {
	result, warnings, err := c.api.Query(ctx, query, time.Now())
	if err != nil {
		return nil, resilience.Transient(fmt.Errorf("insight query failed: %w", err))
	}
	if len(warnings) > 0 {
		c.logger.Warn().Strs("warnings", warnings).Str("query", query).Msg("Prometheus query warnings")
	}

	vector, ok := result.(model.Vector)
	if !ok {
		return nil, resilience.Terminal(fmt.Errorf("unexpected result type %T for query %s", result, query))
	}
	return vector, nil
}
