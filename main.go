package main

import (
	"fmt"
	"os"

	"github.com/dtnitsch/wiki-harvester/internal/common"
	"github.com/dtnitsch/wiki-harvester/internal/crawl"
	"github.com/dtnitsch/wiki-harvester/internal/db"
	"github.com/dtnitsch/wiki-harvester/internal/schema"
	"github.com/dtnitsch/wiki-harvester/internal/summarize"
	"github.com/dtnitsch/wiki-harvester/internal/templates"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "wikiharvest",
		Usage: "Harvest portable infoboxes from a MediaWiki wiki",
		Flags: common.GlobalFlags(),
		Commands: []*cli.Command{
			{
				Name:   "crawl",
				Usage:  "List pages, enrich them and write one record per single-infobox page",
				Flags:  append(common.CrawlFlags(), common.GeminiFlags()...),
				Action: crawl.CrawlAction,
			},
			{
				Name:  "summarize",
				Usage: "Replace every section of written records with a Gemini summary",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "input-dir", Value: "output/raw", Usage: "Directory of records to summarize"},
					&cli.StringFlag{Name: "output-dir", Aliases: []string{"o"}, Value: "output/summarised", Usage: "Directory of summarized records"},
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Value: 4, Usage: "Concurrent model requests"},
				}, common.GeminiFlags()...),
				Action: summarize.SummarizeAction,
			},
			{
				Name:  "schema",
				Usage: "Fill a JSON schema for the infobox of every written record",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "schema", Usage: "JSON schema file (default: built-in planet schema)"},
					&cli.StringFlag{Name: "input-dir", Value: "output/raw", Usage: "Directory of records"},
					&cli.StringFlag{Name: "output-dir", Aliases: []string{"o"}, Value: "output/schemas", Usage: "Directory of filled schemas"},
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Value: 4, Usage: "Concurrent model requests"},
				}, common.GeminiFlags()...),
				Action: schema.SchemaAction,
			},
			{
				Name:   "templates",
				Usage:  "List the infobox templates of the wiki",
				Flags:  common.APIFlags(),
				Action: templates.TemplatesAction,
			},
			{
				Name:  "runs",
				Usage: "List recent crawl runs from the ledger",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "Number of runs to show"},
				},
				Action: db.RunsAction,
			},
			{
				Name:      "run",
				Usage:     "Show one run and its page outcomes (latest if no ID given)",
				ArgsUsage: "[run-id]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "failed-only", Usage: "Only show failed pages"},
				},
				Action: db.RunAction,
			},
		},
	}
}
