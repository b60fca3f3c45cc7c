package common

import (
	"github.com/dtnitsch/wiki-harvester/models"
	"github.com/dtnitsch/wiki-harvester/pkg/ai"
	"github.com/urfave/cli/v2"
)

// ResolveConfig loads the optional --config file, fills defaults, applies
// every flag the user set and validates the result.
func ResolveConfig(c *cli.Context) (models.HarvestConfig, error) {
	var cfg models.HarvestConfig
	if path := c.String("config"); path != "" {
		loaded, err := models.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
		cfg = *loaded
	}
	propertySet, categorySet := c.IsSet("property"), c.IsSet("category")
	if propertySet || categorySet {
		cfg.Property, cfg.Category = "", ""
	}
	cfg = cfg.WithDefaults()

	if c.IsSet("api-url") {
		cfg.APIURL = c.String("api-url")
	}
	if c.IsSet("user-agent") {
		cfg.UserAgent = c.String("user-agent")
	}
	if propertySet {
		cfg.Property = c.String("property")
	}
	if categorySet {
		cfg.Category = c.String("category")
		if !propertySet {
			cfg.Property = ""
		}
	}
	if c.IsSet("namespace") {
		cfg.Namespace = c.Int("namespace")
	}
	if c.IsSet("list-limit") {
		cfg.ListLimit = c.String("list-limit")
	}
	if c.IsSet("output-dir") {
		cfg.OutputDir = c.String("output-dir")
	}
	if c.IsSet("unnamed-template") {
		cfg.UnnamedTemplate = c.String("unnamed-template")
	}
	if c.IsSet("workers") {
		cfg.WorkerCount = c.Int("workers")
	}
	if c.IsSet("section-workers") {
		cfg.SectionWorkers = c.Int("section-workers")
	}
	if c.IsSet("batch-delay") {
		cfg.BatchDelay = c.Duration("batch-delay")
	}
	if c.IsSet("requests-per-second") {
		cfg.RequestsPerSecond = c.Float64("requests-per-second")
	}
	if c.IsSet("request-timeout") {
		cfg.RequestTimeout = c.Duration("request-timeout")
	}
	if c.IsSet("max-retries") {
		cfg.MaxRetries = c.Int("max-retries")
	}
	if c.IsSet("ignore-sections") {
		cfg.IgnoreSections = c.StringSlice("ignore-sections")
	}
	if c.IsSet("drop-selectors") {
		cfg.DropSelectors = c.StringSlice("drop-selectors")
	}
	if c.IsSet("cache-dir") {
		cfg.CacheDir = c.String("cache-dir")
		if cfg.CacheTTL == 0 {
			cfg.CacheTTL = models.HarvestConfig{CacheDir: cfg.CacheDir}.WithDefaults().CacheTTL
		}
	}
	if c.IsSet("cache-ttl") {
		cfg.CacheTTL = c.Duration("cache-ttl")
	}
	if c.IsSet("ledger") {
		cfg.LedgerPath = c.String("ledger")
	}
	if c.IsSet("summarize") {
		cfg.Summarize = c.Bool("summarize")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// GeminiConfig reads the Gemini flags.
func GeminiConfig(c *cli.Context) ai.GeminiConfig {
	return ai.GeminiConfig{
		APIKey:  c.String("gemini-api-key"),
		Model:   c.String("gemini-model"),
		BaseURL: c.String("gemini-base-url"),
	}
}

// LogLevel returns --log-level, or "info" for commands that do not load a
// harvest config.
func LogLevel(c *cli.Context) string {
	if c.IsSet("log-level") {
		return c.String("log-level")
	}
	return "info"
}

// LedgerPath returns --ledger, the config file's ledger_path or the default,
// without requiring the rest of the config to be valid.
func LedgerPath(c *cli.Context) (string, error) {
	if c.IsSet("ledger") {
		return c.String("ledger"), nil
	}
	var cfg models.HarvestConfig
	if path := c.String("config"); path != "" {
		loaded, err := models.LoadConfig(path)
		if err != nil {
			return "", err
		}
		cfg = *loaded
	}
	return cfg.WithDefaults().LedgerPath, nil
}
