package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/dtnitsch/wiki-harvester/models"
	"github.com/dtnitsch/wiki-harvester/pkg/ai"
	"github.com/dtnitsch/wiki-harvester/pkg/storage"
	"golang.org/x/sync/errgroup"
)

// Stats counts the records handled by Fill.
type Stats struct {
	Filled  int `yaml:"filled" json:"filled"`
	Skipped int `yaml:"skipped" json:"skipped"`
	Failed  int `yaml:"failed" json:"failed"`
}

// Options configures Fill.
type Options struct {
	InputDir  string
	OutputDir string
	Workers   int
	Logger    *slog.Logger
}

// Fill sends the infobox title of every record under opts.InputDir to f
// together with schema, and writes the returned JSON object to the same
// relative path under opts.OutputDir. Records without an infobox are
// skipped.
func Fill(ctx context.Context, f ai.SchemaFiller, schema json.RawMessage, opts Options) (Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	var filled, skipped, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	walkErr := storage.Walk(opts.InputDir, func(_, rel string, record *models.PageRecord) error {
		if err := gctx.Err(); err != nil {
			return err
		}
		subject := Subject(record)
		if subject == "" {
			skipped.Add(1)
			logger.Debug("Record has no infobox", "title", record.Title, "path", rel)
			return nil
		}
		g.Go(func() error {
			out, err := f.FillSchema(gctx, subject, schema)
			if err == nil {
				var data []byte
				data, err = storage.Marshal(out)
				if err == nil {
					err = storage.WriteFileAtomic(filepath.Join(opts.OutputDir, rel), data)
				}
			}
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				logger.Error("Error filling schema", "title", record.Title, "path", rel, "error", err)
				return nil
			}
			filled.Add(1)
			logger.Debug("Schema filled", "title", record.Title, "subject", subject)
			return nil
		})
		return nil
	})
	groupErr := g.Wait()

	stats := Stats{Filled: int(filled.Load()), Skipped: int(skipped.Load()), Failed: int(failed.Load())}
	if walkErr != nil {
		return stats, fmt.Errorf("failed to walk %s: %w", opts.InputDir, walkErr)
	}
	return stats, groupErr
}

// Subject is the text sent to the model for record: its infobox title, or
// the page title when the infobox has none. It is "" without an infobox.
func Subject(record *models.PageRecord) string {
	if record.Infobox == nil {
		return ""
	}
	if record.Infobox.Title != "" {
		return record.Infobox.Title
	}
	return record.Title
}
