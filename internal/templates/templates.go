package templates

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dtnitsch/wiki-harvester/internal/common"
	"github.com/dtnitsch/wiki-harvester/internal/crawl"
	"github.com/dtnitsch/wiki-harvester/pkg/wikiapi"
	"github.com/urfave/cli/v2"
)

// TemplateLister is the subset of the wiki client used here.
type TemplateLister interface {
	ListInfoboxTemplates(ctx context.Context, cursor string) (*wikiapi.Listing, error)
}

// List follows the continuation cursor until every infobox template has
// been listed and returns their titles in listing order.
func List(ctx context.Context, l TemplateLister) ([]string, error) {
	var titles []string
	cursor := ""
	for {
		listing, err := l.ListInfoboxTemplates(ctx, cursor)
		if err != nil {
			return titles, err
		}
		for _, p := range listing.Pages {
			titles = append(titles, p.Title)
		}
		if listing.Done() {
			return titles, nil
		}
		cursor = listing.NextCursor
	}
}

func TemplatesAction(c *cli.Context) error {
	cfg, err := common.ResolveConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), 2)
	}
	logger, err := common.NewLogger(cfg.LogLevel, c.Bool("quiet"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	client, _, err := crawl.NewClient(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize client", "error", err)
		return cli.Exit(err.Error(), 2)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	titles, err := List(ctx, client)
	if err != nil {
		logger.Error("failed to list infobox templates", "api_url", cfg.APIURL, "error", err)
		return cli.Exit(err.Error(), 2)
	}
	logger.Info("Listed infobox templates", "count", len(titles))

	data, err := common.Marshal(titles, c.String("format"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to marshal templates: %v", err), 2)
	}
	fmt.Fprintln(c.App.Writer, string(data))
	return nil
}
