package models

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL          = "https://starwars.fandom.com/api.php"
	DefaultProperty        = "infoboxes"
	DefaultOutputDir       = "output/raw"
	DefaultUnnamedTemplate = "_unnamed"
	DefaultLedgerPath      = "wikiharvest.db"
	DefaultUserAgent       = "wikiharvest/1.0 (+https://github.com/dtnitsch/wiki-harvester)"
	DefaultMaxRetries      = 2
)

// DefaultIgnoreSections are boilerplate section headings that carry no prose.
var DefaultIgnoreSections = []string{
	"Appearances",
	"Sources",
	"Notes and references",
	"External links",
	"Behind the scenes",
	"Non-canon appearances",
	"Real-world similarities",
	"Non-canon sources",
}

// DefaultDropSelectors are always removed from section HTML before text
// extraction; drop_selectors adds to them.
var DefaultDropSelectors = []string{"sup", ".stub"}

// Configuration validation errors.
var (
	ErrMissingAPIURL      = errors.New("api_url is required")
	ErrMissingSource      = errors.New("property or category is required")
	ErrConflictingSource  = errors.New("property and category are mutually exclusive")
	ErrMissingOutputDir   = errors.New("output_dir is required")
	ErrInvalidWorkers     = errors.New("workers must be at least 1")
	ErrInvalidBatchDelay  = errors.New("batch_delay must be non-negative")
	ErrInvalidRPS         = errors.New("requests_per_second must be non-negative")
	ErrInvalidLogLevel    = errors.New("log_level must be one of: debug, info, warn, error")
	ErrInvalidCacheTTL    = errors.New("cache_ttl must be positive when cache_dir is set")
	ErrInvalidSectionPool = errors.New("section_workers must be at least 1")
	ErrInvalidRetries     = errors.New("max_retries must be non-negative")
)

// HarvestConfig holds runtime configuration for a crawl.
// Values come from an optional YAML file and are overridden by CLI flags.
type HarvestConfig struct {
	APIURL    string `yaml:"api_url"`
	UserAgent string `yaml:"user_agent"`

	// Listing source: exactly one of Property or Category.
	Property  string `yaml:"property"`
	Category  string `yaml:"category"`
	Namespace int    `yaml:"namespace"`
	ListLimit string `yaml:"list_limit"`

	OutputDir       string `yaml:"output_dir"`
	UnnamedTemplate string `yaml:"unnamed_template"`

	WorkerCount       int           `yaml:"workers"`
	SectionWorkers    int           `yaml:"section_workers"`
	BatchDelay        time.Duration `yaml:"batch_delay"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	MaxRetries        int           `yaml:"max_retries"`

	IgnoreSections []string `yaml:"ignore_sections"`
	DropSelectors  []string `yaml:"drop_selectors"`

	CacheDir string        `yaml:"cache_dir"`
	CacheTTL time.Duration `yaml:"cache_ttl"`

	LedgerPath string `yaml:"ledger_path"`
	Summarize  bool   `yaml:"summarize"`
	LogLevel   string `yaml:"log_level"`
}

// LoadConfig reads a YAML config file. Missing keys keep their zero value;
// call WithDefaults before Validate.
func LoadConfig(path string) (*HarvestConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg HarvestConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &cfg, nil
}

// WithDefaults fills unset values.
func (c HarvestConfig) WithDefaults() HarvestConfig {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Property == "" && c.Category == "" {
		c.Property = DefaultProperty
	}
	if c.ListLimit == "" {
		c.ListLimit = "max"
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.UnnamedTemplate == "" {
		c.UnnamedTemplate = DefaultUnnamedTemplate
	}
	if c.WorkerCount == 0 {
		c.WorkerCount = 4
	}
	if c.SectionWorkers == 0 {
		c.SectionWorkers = 4
	}
	if c.BatchDelay == 0 {
		c.BatchDelay = time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	// 0 means unset here; the --max-retries flag is applied afterwards and can disable retries.
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.IgnoreSections == nil {
		c.IgnoreSections = append([]string(nil), DefaultIgnoreSections...)
	}
	if c.CacheDir != "" && c.CacheTTL == 0 {
		c.CacheTTL = 24 * time.Hour
	}
	if c.LedgerPath == "" {
		c.LedgerPath = DefaultLedgerPath
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return c
}

// Validate checks the configuration.
func (c *HarvestConfig) Validate() error {
	if c.APIURL == "" {
		return ErrMissingAPIURL
	}
	if c.Property == "" && c.Category == "" {
		return ErrMissingSource
	}
	if c.Property != "" && c.Category != "" {
		return ErrConflictingSource
	}
	if c.OutputDir == "" {
		return ErrMissingOutputDir
	}
	if c.WorkerCount < 1 {
		return ErrInvalidWorkers
	}
	if c.SectionWorkers < 1 {
		return ErrInvalidSectionPool
	}
	if c.BatchDelay < 0 {
		return ErrInvalidBatchDelay
	}
	if c.RequestsPerSecond < 0 {
		return ErrInvalidRPS
	}
	if c.MaxRetries < 0 {
		return ErrInvalidRetries
	}
	if c.CacheDir != "" && c.CacheTTL <= 0 {
		return ErrInvalidCacheTTL
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	return nil
}
