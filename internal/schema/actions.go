package schema

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dtnitsch/wiki-harvester/internal/common"
	"github.com/dtnitsch/wiki-harvester/pkg/ai"
	"github.com/urfave/cli/v2"
)

func SchemaAction(c *cli.Context) error {
	logger, err := common.NewLogger(common.LogLevel(c), c.Bool("quiet"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	schema, err := ai.LoadSchema(c.String("schema"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if _, err := ai.ToGenaiSchema(schema); err != nil {
		return cli.Exit(fmt.Sprintf("unsupported schema: %v", err), 2)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	geminiCfg := common.GeminiConfig(c)
	gemini, err := ai.NewGemini(ctx, geminiCfg)
	if err != nil {
		logger.Error("failed to initialize schema filler", "error", err)
		return cli.Exit(err.Error(), 2)
	}
	logger.Info("Filling schema", "schema", ai.SchemaTitle(schema), "input_dir", c.String("input-dir"))

	stats, err := Fill(ctx, gemini, schema, Options{
		InputDir:  c.String("input-dir"),
		OutputDir: c.String("output-dir"),
		Workers:   c.Int("workers"),
		Logger:    logger,
	})
	if err != nil {
		msg := common.RedactSecrets(err.Error(), geminiCfg.APIKey)
		logger.Error("schema fill failed", "error", msg)
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
