package crawl

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dtnitsch/wiki-harvester/internal/common"
	"github.com/dtnitsch/wiki-harvester/models"
	"github.com/dtnitsch/wiki-harvester/pkg/ai"
	"github.com/dtnitsch/wiki-harvester/pkg/caching"
	"github.com/dtnitsch/wiki-harvester/pkg/crawler"
	"github.com/dtnitsch/wiki-harvester/pkg/db"
	"github.com/dtnitsch/wiki-harvester/pkg/detector"
	"github.com/dtnitsch/wiki-harvester/pkg/enrich"
	"github.com/dtnitsch/wiki-harvester/pkg/fetcher"
	"github.com/dtnitsch/wiki-harvester/pkg/normalizer"
	"github.com/dtnitsch/wiki-harvester/pkg/storage"
	"github.com/dtnitsch/wiki-harvester/pkg/wikiapi"
	"github.com/urfave/cli/v2"
)

// NewClient builds the rate-limited, optionally cached wiki API client
// described by cfg.
func NewClient(cfg models.HarvestConfig, logger *slog.Logger) (*wikiapi.Client, *caching.Cache, error) {
	var cache *caching.Cache
	opts := fetcher.Options{
		UserAgent:         cfg.UserAgent,
		Timeout:           cfg.RequestTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		MaxRetries:        cfg.MaxRetries,
	}
	if cfg.CacheDir != "" {
		var err error
		cache, err = caching.NewCache(cfg.CacheDir, cfg.CacheTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize cache: %w", err)
		}
		opts.Cache = cache
		logger.Info("Response cache enabled", "dir", cfg.CacheDir, "ttl", cfg.CacheTTL.String())
	}
	return wikiapi.NewClient(cfg.APIURL, fetcher.NewFetcher(opts), cfg.ListLimit), cache, nil
}

func CrawlAction(c *cli.Context) error {
	cfg, err := common.ResolveConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), 2)
	}
	logger, err := common.NewLogger(cfg.LogLevel, c.Bool("quiet"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	writer, err := storage.NewWriter(cfg.OutputDir, cfg.UnnamedTemplate)
	if err != nil {
		logger.Error("failed to initialize output directory", "error", err)
		return cli.Exit(err.Error(), 2)
	}

	database, err := db.Open(cfg.LedgerPath)
	if err != nil {
		logger.Error("failed to open ledger", "error", err)
		return cli.Exit(err.Error(), 2)
	}
	defer database.Close()

	client, cache, err := NewClient(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize client", "error", err)
		return cli.Exit(err.Error(), 2)
	}

	var lister crawler.Lister
	var source string
	namespace := cfg.Namespace
	switch {
	case c.IsSet("retry-failed"):
		retryID := c.Int64("retry-failed")
		stubs, err := database.FailedPages(retryID)
		if err != nil {
			logger.Error("failed to get failed pages", "error", err, "run_id", retryID)
			return cli.Exit(err.Error(), 2)
		}
		if len(stubs) == 0 {
			fmt.Fprintf(c.App.Writer, "Run %d has no failed pages to retry\n", retryID)
			return nil
		}
		fmt.Fprintf(c.App.ErrWriter, "Retrying %d failed pages from run %d\n", len(stubs), retryID)
		lister = wikiapi.StaticLister{Stubs: stubs}
		source = fmt.Sprintf("retry:%d", retryID)
		namespace = 0
	case cfg.Category != "":
		lister = wikiapi.CategoryLister{Client: client, Category: cfg.Category}
		source = "category:" + cfg.Category
	default:
		lister = wikiapi.PropertyLister{Client: client, Property: cfg.Property}
		source = "property:" + cfg.Property
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	geminiCfg := common.GeminiConfig(c)
	var summarizer ai.Summarizer
	if cfg.Summarize {
		gemini, err := ai.NewGemini(ctx, geminiCfg)
		if err != nil {
			logger.Error("failed to initialize summarizer", "error", err)
			return cli.Exit(err.Error(), 2)
		}
		summarizer = ai.Chunked{Summarizer: gemini, MaxChars: c.Int("max-chunk-chars")}
	}

	enricher := enrich.New(client, enrich.Options{
		IgnoreSections: cfg.IgnoreSections,
		SectionWorkers: cfg.SectionWorkers,
		Normalizer:     normalizer.New(cfg.DropSelectors),
		Summarizer:     summarizer,
		Logger:         logger,
	})

	runner := &Runner{
		Lister:   lister,
		Enricher: enricher,
		Writer:   writer,
		Ledger:   database,
		APIURL:   cfg.APIURL,
		Source:   source,
		Crawler: crawler.Options{
			Workers:    cfg.WorkerCount,
			BatchDelay: cfg.BatchDelay,
			Namespace:  namespace,
		},
		Logger:  logger,
		Secrets: []string{geminiCfg.APIKey},
	}
	if c.Bool("detect-language") {
		runner.Detector = detector.New()
	}

	summary, runErr := runner.Run(ctx)
	if cache != nil {
		hits, misses := cache.Stats()
		logger.Info("Response cache", "hits", hits, "misses", misses)
	}
	if errors.Is(runErr, ErrFirstListing) || summary == nil {
		logger.Error("crawl failed", "error", runErr)
		return cli.Exit(common.RedactSecrets(runErr.Error(), runner.Secrets...), 2)
	}

	return printSummary(c, summary, runErr)
}

// printSummary prints the summary and maps the outcome to an exit code:
// 0 when every page succeeded, 1 when some pages failed or the crawl was
// interrupted, 2 when every discovered page failed.
func printSummary(c *cli.Context, summary *Summary, runErr error) error {
	data, err := common.Marshal(summary, c.String("format"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to marshal summary: %v", err), 2)
	}
	fmt.Fprintln(c.App.Writer, string(data))

	switch {
	case summary.Discovered > 0 && summary.Failed == summary.Discovered:
		return cli.Exit("", 2)
	case runErr != nil || summary.Failed > 0:
		return cli.Exit("", 1)
	}
	return nil
}
