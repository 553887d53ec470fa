package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/opscart/cost-advisor/pkg/cache"
	"github.com/opscart/cost-advisor/pkg/metrics"
	"github.com/opscart/cost-advisor/pkg/models"
	"github.com/opscart/cost-advisor/pkg/resilience"
)

// maxRegionWorkers caps per-region fan-out concurrency.
const maxRegionWorkers = 5

// OptimizerOptions configures the optimizer client.
type OptimizerOptions struct {
	BaseURL       string
	APIKey        string
	Regions       []string
	Resilience    resilience.Config
	CacheTTL      time.Duration
	RegionWorkers int
	RegionTimeout time.Duration
	Logger        zerolog.Logger
}

// OptimizerClient fetches rightsizing recommendations from the compute
// optimizer provider. The provider is queried per region; fan-out uses a
// bounded worker pool and one region's failure does not abort the others.
type OptimizerClient struct {
	baseURL       string
	apiKey        string
	regions       []string
	httpClient    *http.Client
	exec          *resilience.Executor[[]RawRecord]
	cache         *cache.Cache[[]RawRecord]
	regionWorkers int
	regionTimeout time.Duration
	logger        zerolog.Logger
}

// NewOptimizerClient creates an optimizer client.
func NewOptimizerClient(opts OptimizerOptions) *OptimizerClient {
	workers := opts.RegionWorkers
	if workers < 1 || workers > maxRegionWorkers {
		workers = maxRegionWorkers
	}
	regionTimeout := opts.RegionTimeout
	if regionTimeout <= 0 {
		regionTimeout = 30 * time.Second
	}
	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Minute
	}

	return &OptimizerClient{
		baseURL: opts.BaseURL,
		apiKey:  opts.APIKey,
		regions: opts.Regions,
		httpClient: &http.Client{
			Timeout: regionTimeout,
		},
		exec:          resilience.NewExecutor[[]RawRecord]("optimizer", opts.Resilience, opts.Logger),
		cache:         cache.New[[]RawRecord](cacheTTL),
		regionWorkers: workers,
		regionTimeout: regionTimeout,
		logger:        opts.Logger,
	}
}

func (c *OptimizerClient) Name() string {
	return "optimizer"
}

func (c *OptimizerClient) Source() models.Source {
	return models.SourceOptimizer
}

// Fetch queries every configured region (or just q.Region when set) and
// returns the merged records. Partial regional results are acceptable;
// only an all-region failure is reported as an error.
func (c *OptimizerClient) Fetch(ctx context.Context, q Query) ([]RawRecord, error) {
	key := q.CacheKey(models.SourceOptimizer)
	if cached, ok := c.cache.Get(key); ok {
		metrics.CacheHits.WithLabelValues("optimizer").Inc()
		return cached, nil
	}
	metrics.CacheMisses.WithLabelValues("optimizer").Inc()

	start := time.Now()
	defer func() {
		metrics.SourceFetchDuration.WithLabelValues("optimizer").Observe(time.Since(start).Seconds())
	}()

	regions := c.regions
	if q.Region != "" {
		regions = []string{q.Region}
	}
	if len(regions) == 0 {
		return nil, resilience.Terminal(fmt.Errorf("optimizer: no regions configured"))
	}

	type regionResult struct {
		records []RawRecord
		err     error
	}

	results := make([]regionResult, len(regions))
	sem := make(chan struct{}, c.regionWorkers)
	var wg sync.WaitGroup

	for i, region := range regions {
		wg.Add(1)
		go func(i int, region string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			rctx, cancel := context.WithTimeout(ctx, c.regionTimeout)
			defer cancel()

			records, err := c.exec.Execute(rctx, func(ctx context.Context) ([]RawRecord, error) {
				return c.fetchRegion(ctx, region, q)
			})
			results[i] = regionResult{records: records, err: err}
		}(i, region)
	}
	wg.Wait()

	var records []RawRecord
	var errs []error
	for i, r := range results {
		if r.err != nil {
			c.logger.Warn().Str("region", regions[i]).Err(r.err).Msg("optimizer region fetch failed")
			errs = append(errs, r.err)
			continue
		}
		records = append(records, r.records...)
	}

	if len(records) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if q.MaxResults > 0 && len(records) > q.MaxResults {
		records = records[:q.MaxResults]
	}

	c.cache.Set(key, records)
	return records, nil
}

func (c *OptimizerClient) fetchRegion(ctx context.Context, region string, q Query) ([]RawRecord, error) {
	endpoint := fmt.Sprintf("%s/v1/recommendations", c.baseURL)

	params := url.Values{}
	params.Set("region", region)
	if q.MaxResults > 0 {
		params.Set("maxResults", fmt.Sprintf("%d", q.MaxResults))
	}
	for k, v := range q.Filters {
		params.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, resilience.Terminal(fmt.Errorf("optimizer request: %w", err))
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport("optimizer", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus("optimizer", resp.StatusCode)
	}

	var payload struct {
		Recommendations []OptimizerRecord `json:"recommendations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, resilience.Transient(fmt.Errorf("optimizer response decode: %w", err))
	}

	records := make([]RawRecord, 0, len(payload.Recommendations))
	for i := range payload.Recommendations {
		rec := payload.Recommendations[i]
		if rec.Region == "" {
			rec.Region = region
		}
		records = append(records, RawRecord{Source: models.SourceOptimizer, Optimizer: &rec})
	}
	return records, nil
}
