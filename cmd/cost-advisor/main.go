package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/opscart/cost-advisor/pkg/aggregator"
	"github.com/opscart/cost-advisor/pkg/config"
	"github.com/opscart/cost-advisor/pkg/crossref"
	"github.com/opscart/cost-advisor/pkg/logging"
	"github.com/opscart/cost-advisor/pkg/models"
	"github.com/opscart/cost-advisor/pkg/reporter"
	"github.com/opscart/cost-advisor/pkg/resilience"
	"github.com/opscart/cost-advisor/pkg/source"
	"github.com/opscart/cost-advisor/pkg/storage"
)

var (
	// Run flags
	configPath   string
	region       string
	maxResults   int
	refresh      bool
	outputFormat string
	saveResults  bool
	findingsPath string
	metricsAddr  string

	// History command vars
	historyLimit int
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "cost-advisor",
		Short: "Cloud cost recommendation aggregator",
		Long:  `Collect cost-optimization recommendations from multiple upstream providers, reconcile them into one prioritized list, and report the result.`,
		RunE:  runAggregation,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.Flags().StringVar(&region, "region", "", "Restrict sources to one region")
	rootCmd.Flags().IntVar(&maxResults, "max-results", 0, "Per-source record limit (0 = configured default)")
	rootCmd.Flags().BoolVar(&refresh, "refresh", false, "Force a fresh fetch even if a cached run exists")
	rootCmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json, csv")
	rootCmd.Flags().BoolVar(&saveResults, "save", false, "Save the run to the database")
	rootCmd.Flags().StringVar(&findingsPath, "findings", "", "Path to a security findings JSON file for cross-referencing")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address to serve Prometheus metrics on (e.g. :9190)")

	var historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List stored aggregation runs",
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of runs to list")
	rootCmd.AddCommand(historyCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runAggregation(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logger := logging.Logger()

	if metricsAddr != "" {
		go serveMetrics(metricsAddr)
	}

	sources, err := buildSources(cfg)
	if err != nil {
		return err
	}

	agg := aggregator.New(aggregator.Options{
		Sources:       sources,
		SourceTimeout: cfg.Aggregation.SourceTimeout,
		Logger:        logging.With("aggregator"),
	})

	limit := maxResults
	if limit <= 0 {
		limit = cfg.Aggregation.MaxResults
	}
	query := source.Query{
		Region:     region,
		MaxResults: limit,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result := agg.Run(ctx, query, refresh)

	rep, err := reporter.New(reporter.Format(outputFormat))
	if err != nil {
		return err
	}
	if err := rep.Write(result, os.Stdout); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if findingsPath != "" {
		if err := crossReference(result, findingsPath); err != nil {
			return err
		}
	}

	if saveResults {
		if !cfg.Storage.Enabled {
			return fmt.Errorf("--save requires storage.enabled in the configuration")
		}
		store, err := storage.NewPostgresStore(cfg.Storage.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer store.Close()

		runID, err := store.SaveRun(ctx, result)
		if err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		logger.Info().Str("run_id", runID).Msg("saved aggregation run")
		fmt.Fprintf(os.Stderr, "Saved run %s\n", runID)
	}

	return nil
}

// buildSources constructs the three provider clients from configuration.
func buildSources(cfg *config.Config) ([]source.Client, error) {
	res := resilience.Config{
		MaxRetries:       cfg.Resilience.MaxRetries,
		BaseDelay:        cfg.Resilience.BaseDelay,
		MaxDelay:         cfg.Resilience.MaxDelay,
		FailureThreshold: cfg.Resilience.FailureThreshold,
		RecoveryTimeout:  cfg.Resilience.RecoveryTimeout,
	}

	optimizer := source.NewOptimizerClient(source.OptimizerOptions{
		BaseURL:       cfg.Sources.Optimizer.URL,
		APIKey:        cfg.Sources.Optimizer.APIKey,
		Regions:       cfg.Sources.Optimizer.Regions,
		Resilience:    res,
		CacheTTL:      cfg.Aggregation.CacheTTL,
		RegionWorkers: cfg.Aggregation.RegionWorkers,
		RegionTimeout: cfg.Aggregation.RegionTimeout,
		Logger:        logging.With("optimizer"),
	})

	advisor := source.NewAdvisorClient(source.AdvisorOptions{
		BaseURL:    cfg.Sources.Advisor.URL,
		APIKey:     cfg.Sources.Advisor.APIKey,
		Resilience: res,
		CacheTTL:   cfg.Aggregation.CacheTTL,
		Timeout:    cfg.Aggregation.RegionTimeout,
		Logger:     logging.With("advisor"),
	})

	insight, err := source.NewInsightClient(source.InsightOptions{
		PrometheusURL: cfg.Sources.Insight.PrometheusURL,
		Resilience:    res,
		CacheTTL:      cfg.Aggregation.CacheTTL,
		Logger:        logging.With("insight"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create insight client: %w", err)
	}

	return []source.Client{optimizer, advisor, insight}, nil
}

// crossReference loads a findings file and prints the integrated
// recommendations as JSON.
func crossReference(result *models.AggregatedResult, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read findings file: %w", err)
	}

	var findings crossref.FindingSet
	if err := json.Unmarshal(data, &findings); err != nil {
		return fmt.Errorf("failed to parse findings file: %w", err)
	}

	integrated := crossref.Correlate(result.Recommendations, findings)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(integrated); err != nil {
		return fmt.Errorf("failed to encode cross-reference output: %w", err)
	}

	return nil
}

func serveMetrics(addr string) {
	logger := logging.With("metrics")
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("metrics listener stopped")
	}
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	if !cfg.Storage.Enabled {
		return fmt.Errorf("history requires storage.enabled in the configuration")
	}

	store, err := storage.NewPostgresStore(cfg.Storage.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	runs, err := store.ListRuns(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No stored runs.")
		return nil
	}

	fmt.Printf("%-36s  %-20s  %-12s  %5s  %12s  %7s\n",
		"RUN ID", "CREATED", "SERVICE", "RECS", "SAVINGS/MO", "QUALITY")
	for _, run := range runs {
		fmt.Printf("%-36s  %-20s  %-12s  %5d  %12.2f  %7.2f\n",
			run.ID,
			run.CreatedAt.Format("2006-01-02 15:04:05"),
			run.DegradationStatus,
			run.TotalRecommendations,
			run.TotalMonthlySavings,
			run.QualityScore,
		)
	}

	return nil
}
