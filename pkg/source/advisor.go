package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/opscart/cost-advisor/pkg/cache"
	"github.com/opscart/cost-advisor/pkg/metrics"
	"github.com/opscart/cost-advisor/pkg/models"
	"github.com/opscart/cost-advisor/pkg/resilience"
)

// AdvisorOptions configures the advisor client.
type AdvisorOptions struct {
	BaseURL    string
	APIKey     string
	Resilience resilience.Config
	CacheTTL   time.Duration
	Timeout    time.Duration
	Logger     zerolog.Logger
}

// AdvisorClient fetches cost recommendations from the advisor provider's
// retail-style REST API. The API uses an OData-ish $filter parameter and
// returns all recommendations in a single call.
type AdvisorClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	exec       *resilience.Executor[[]RawRecord]
	cache      *cache.Cache[[]RawRecord]
	logger     zerolog.Logger
}

// NewAdvisorClient creates an advisor client.
func NewAdvisorClient(opts AdvisorOptions) *AdvisorClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Minute
	}

	return &AdvisorClient{
		baseURL: opts.BaseURL,
		apiKey:  opts.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		exec:   resilience.NewExecutor[[]RawRecord]("advisor", opts.Resilience, opts.Logger),
		cache:  cache.New[[]RawRecord](cacheTTL),
		logger: opts.Logger,
	}
}

func (a *AdvisorClient) Name() string {
	return "advisor"
}

func (a *AdvisorClient) Source() models.Source {
	return models.SourceAdvisor
}

// Fetch retrieves cost-category recommendations, optionally scoped to a
// region through the filter expression.
func (a *AdvisorClient) Fetch(ctx context.Context, q Query) ([]RawRecord, error) {
	key := q.CacheKey(models.SourceAdvisor)
	if cached, ok := a.cache.Get(key); ok {
		metrics.CacheHits.WithLabelValues("advisor").Inc()
		return cached, nil
	}
	metrics.CacheMisses.WithLabelValues("advisor").Inc()

	start := time.Now()
	defer func() {
		metrics.SourceFetchDuration.WithLabelValues("advisor").Observe(time.Since(start).Seconds())
	}()

	records, err := a.exec.Execute(ctx, func(ctx context.Context) ([]RawRecord, error) {
		return a.fetch(ctx, q)
	})
	if err != nil {
		return nil, err
	}

	a.cache.Set(key, records)
	return records, nil
}

func (a *AdvisorClient) fetch(ctx context.Context, q Query) ([]RawRecord, error) {
	filter := "category eq 'Cost'"
	if q.Region != "" {
		filter = fmt.Sprintf("%s and region eq '%s'", filter, q.Region)
	}
	for k, v := range q.Filters {
		filter = fmt.Sprintf("%s and %s eq '%s'", filter, k, v)
	}

	params := url.Values{}
	params.Set("$filter", filter)
	if q.MaxResults > 0 {
		params.Set("$top", fmt.Sprintf("%d", q.MaxResults))
	}

	endpoint := fmt.Sprintf("%s/api/recommendations?%s", a.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, resilience.Terminal(fmt.Errorf("advisor request: %w", err))
	}
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport("advisor", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus("advisor", resp.StatusCode)
	}

	var payload struct {
		Value []AdvisorRecord `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, resilience.Transient(fmt.Errorf("advisor response decode: %w", err))
	}

	records := make([]RawRecord, 0, len(payload.Value))
	for i := range payload.Value {
		rec := payload.Value[i]
		records = append(records, RawRecord{Source: models.SourceAdvisor, Advisor: &rec})
	}
	return records, nil
}
