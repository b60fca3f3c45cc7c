package summarize

import (
	"context"
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

// Stats counts the records handled by Records.
type Stats struct {
	Processed int `yaml:"processed" json:"processed"`
	Failed    int `yaml:"failed" json:"failed"`
	Sections  int `yaml:"sections" json:"sections"`
}

// Options configures Records.
type Options struct {
	InputDir  string
	OutputDir string
	Workers   int
	Logger    *slog.Logger
}

// Records replaces every section of every record under opts.InputDir with
// its summary and writes the result to the same relative path under
// opts.OutputDir. A record whose summarization fails is logged, counted and
// not written.
func Records(ctx context.Context, s ai.Summarizer, opts Options) (Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	var processed, failed, sections atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	walkErr := storage.Walk(opts.InputDir, func(_, rel string, record *models.PageRecord) error {
		if err := gctx.Err(); err != nil {
			return err
		}
		g.Go(func() error {
			n, err := summarizeRecord(gctx, s, record)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				logger.Error("Error summarizing record", "title", record.Title, "path", rel, "error", err)
				return nil
			}
			data, err := storage.Marshal(record)
			if err == nil {
				err = storage.WriteFileAtomic(filepath.Join(opts.OutputDir, rel), data)
			}
			if err != nil {
				failed.Add(1)
				logger.Error("Error writing summarized record", "title", record.Title, "path", rel, "error", err)
				return nil
			}
			processed.Add(1)
			sections.Add(int64(n))
			logger.Debug("Record summarized", "title", record.Title, "sections", n)
			return nil
		})
		return nil
	})
	groupErr := g.Wait()

	stats := Stats{Processed: int(processed.Load()), Failed: int(failed.Load()), Sections: int(sections.Load())}
	if walkErr != nil {
		return stats, fmt.Errorf("failed to walk %s: %w", opts.InputDir, walkErr)
	}
	return stats, groupErr
}

// summarizeRecord replaces each non-empty section of record with its summary
// and returns the number of sections summarized.
func summarizeRecord(ctx context.Context, s ai.Summarizer, record *models.PageRecord) (int, error) {
	out := models.NewOrderedMap[string]()
	n := 0
	for heading, text := range record.Sections.All() {
		if text == "" {
			out.Set(heading, text)
			continue
		}
		summary, err := s.Summarize(ctx, text)
		if err != nil {
			return n, fmt.Errorf("section %q: %w", heading, err)
		}
		out.Set(heading, summary)
		n++
	}
	record.Sections = out
	return n, nil
}
