package common

import (
	"github.com/urfave/cli/v2"
)

// GlobalFlags apply to every command.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML config file",
			EnvVars: []string{"WIKIHARVEST_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error",
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Only log errors",
		},
		&cli.StringFlag{
			Name:  "ledger",
			Usage: "Path of the sqlite run ledger",
		},
		&cli.StringFlag{
			Name:  "format",
			Value: "yaml",
			Usage: "Output format: yaml or json",
		},
	}
}

// APIFlags configure access to the wiki API.
func APIFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "api-url", Usage: "MediaWiki api.php endpoint"},
		&cli.StringFlag{Name: "user-agent", Usage: "User-Agent sent with every request"},
		&cli.StringFlag{Name: "list-limit", Usage: "Listing page size (a number or \"max\")"},
		&cli.Float64Flag{Name: "requests-per-second", Usage: "Request rate limit (0 = unlimited)"},
		&cli.DurationFlag{Name: "request-timeout", Usage: "Timeout of a single request"},
		&cli.IntFlag{Name: "max-retries", Usage: "Retries of a request after a transient failure"},
		&cli.StringFlag{Name: "cache-dir", Usage: "Cache API responses in this directory"},
		&cli.DurationFlag{Name: "cache-ttl", Usage: "Lifetime of cached responses"},
	}
}

// CrawlFlags configure the crawl command.
func CrawlFlags() []cli.Flag {
	flags := APIFlags()
	return append(flags,
		&cli.StringFlag{Name: "property", Usage: "List pages carrying this page property"},
		&cli.StringFlag{Name: "category", Usage: "List the members of this category instead"},
		&cli.IntFlag{Name: "namespace", Usage: "Only enrich listed pages in this namespace"},
		&cli.StringFlag{Name: "output-dir", Aliases: []string{"o"}, Usage: "Root directory of written records"},
		&cli.StringFlag{Name: "unnamed-template", Usage: "Directory for infoboxes without a template"},
		&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Concurrent page workers"},
		&cli.IntFlag{Name: "section-workers", Usage: "Concurrent section fetches per page"},
		&cli.DurationFlag{Name: "batch-delay", Usage: "Pause after each batch before the next listing request"},
		&cli.StringSliceFlag{Name: "ignore-sections", Usage: "Section headings never fetched"},
		&cli.StringSliceFlag{Name: "drop-selectors", Usage: "Extra CSS selectors removed from section HTML (sup and .stub always are)"},
		&cli.BoolFlag{Name: "summarize", Usage: "Summarize sections with Gemini while crawling"},
		&cli.Int64Flag{Name: "retry-failed", Usage: "Re-enrich the failed pages of this run ID"},
		&cli.BoolFlag{Name: "detect-language", Value: true, Usage: "Record the language of each page"},
	)
}

// GeminiFlags configure the Gemini client.
func GeminiFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "gemini-api-key", EnvVars: []string{"GEMINI_API_KEY"}, Usage: "Gemini API key"},
		&cli.StringFlag{Name: "gemini-model", EnvVars: []string{"GEMINI_MODEL"}, Value: "gemini-2.5-flash", Usage: "Gemini model"},
		&cli.StringFlag{Name: "gemini-base-url", EnvVars: []string{"GEMINI_BASE_URL"}, Usage: "Override the Gemini API base URL"},
		&cli.IntFlag{Name: "max-chunk-chars", Value: 4000, Usage: "Longest text sent in one summarization request"},
	}
}
