package summarize

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dtnitsch/wiki-harvester/internal/common"
	"github.com/dtnitsch/wiki-harvester/pkg/ai"
	"github.com/urfave/cli/v2"
)

func SummarizeAction(c *cli.Context) error {
	logger, err := common.NewLogger(common.LogLevel(c), c.Bool("quiet"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	geminiCfg := common.GeminiConfig(c)
	gemini, err := ai.NewGemini(ctx, geminiCfg)
	if err != nil {
		logger.Error("failed to initialize summarizer", "error", err)
		return cli.Exit(err.Error(), 2)
	}
	summarizer := ai.Chunked{Summarizer: gemini, MaxChars: c.Int("max-chunk-chars")}

	stats, err := Records(ctx, summarizer, Options{
		InputDir:  c.String("input-dir"),
		OutputDir: c.String("output-dir"),
		Workers:   c.Int("workers"),
		Logger:    logger,
	})
	if err != nil {
		msg := common.RedactSecrets(err.Error(), geminiCfg.APIKey)
		logger.Error("summarize failed", "error", msg)
		return cli.Exit(msg, 2)
	}

	data, err := common.Marshal(stats, c.String("format"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to marshal stats: %v", err), 2)
	}
	fmt.Fprintln(c.App.Writer, string(data))
	if stats.Failed > 0 {
		return cli.Exit("", 1)
	}
	return nil
}
