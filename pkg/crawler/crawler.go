// Package crawler drives continuation-based listing and per-batch enrichment.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dtnitsch/wiki-harvester/models"
	"github.com/dtnitsch/wiki-harvester/pkg/enrich"
	"github.com/dtnitsch/wiki-harvester/pkg/wikiapi"
)

// ErrAlreadyCrawled is yielded when Crawl's sequence is ranged a second time.
var ErrAlreadyCrawled = errors.New("crawler: sequence already consumed")

// Lister returns one page of a paginated listing.
type Lister interface {
	List(ctx context.Context, cursor string) (*wikiapi.Listing, error)
}

// Enricher builds the record of one listed page.
type Enricher interface {
	Enrich(ctx context.Context, stub models.PageStub) (*models.PageRecord, error)
}

// Options configures a Crawler. Zero values select defaults.
type Options struct {
	Workers int
	// BatchDelay is the pause between the end of one batch and the next
	// listing request. A slow batch does not shorten it.
	BatchDelay time.Duration
	// Namespace is the only namespace whose entries are enriched.
	Namespace     int
	InitialCursor string
	Logger        *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.InitialCursor == "" {
		o.InitialCursor = wikiapi.InitialCursor
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// Result is the outcome of one page.
type Result struct {
	Stub      models.PageStub
	Record    *models.PageRecord
	Err       error
	ErrorType string
	Batch     int
	Duration  time.Duration
}

// Crawler lists pages batch by batch and enriches each batch with a bounded
// pool of workers. The next listing request is only issued once the previous
// batch has fully drained.
type Crawler struct {
	lister   Lister
	enricher Enricher
	opts     Options
	used     atomic.Bool
}

func New(lister Lister, enricher Enricher, opts Options) *Crawler {
	return &Crawler{lister: lister, enricher: enricher, opts: opts.withDefaults()}
}

// Crawl returns a single-use sequence of page results. Per-page failures are
// reported in Result.Err. A listing failure or cancellation ends the sequence
// with a non-nil error. Breaking out of the loop cancels in-flight pages.
func (c *Crawler) Crawl(ctx context.Context) iter.Seq2[Result, error] {
	return func(yield func(Result, error) bool) {
		if !c.used.CompareAndSwap(false, true) {
			yield(Result{}, ErrAlreadyCrawled)
			return
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		logger := c.opts.Logger

		cursor := c.opts.InitialCursor
		for batch := 1; ; batch++ {
			if batch > 1 {
				if err := pause(ctx, c.opts.BatchDelay); err != nil {
					yield(Result{Batch: batch}, err)
					return
				}
			}

			listing, err := c.lister.List(ctx, cursor)
			if err != nil {
				yield(Result{Batch: batch}, fmt.Errorf("listing batch %d (cursor %q): %w", batch, cursor, err))
				return
			}

			stubs := make([]models.PageStub, 0, len(listing.Pages))
			for _, p := range listing.Pages {
				if p.Namespace == c.opts.Namespace {
					stubs = append(stubs, p.Stub())
				}
			}
			logger.Info("Listing batch received", "batch", batch, "cursor", cursor, "listed", len(listing.Pages), "in_namespace", len(stubs))

			if !c.runBatch(ctx, cancel, batch, stubs, yield) {
				return
			}
			if err := ctx.Err(); err != nil {
				yield(Result{Batch: batch}, err)
				return
			}
			if listing.Done() {
				logger.Info("Listing complete", "batches", batch)
				return
			}
			cursor = listing.NextCursor
		}
	}
}

// runBatch enriches stubs with the worker pool and yields each result as it
// completes. It returns false when the consumer stopped iterating. It never
// returns before every worker of the batch has exited.
func (c *Crawler) runBatch(ctx context.Context, cancel context.CancelFunc, batch int, stubs []models.PageStub, yield func(Result, error) bool) bool {
	if len(stubs) == 0 {
		return true
	}

	jobs := make(chan models.PageStub)
	results := make(chan Result, len(stubs))

	workers := min(c.opts.Workers, len(stubs))
	var wg sync.WaitGroup
	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go c.worker(ctx, w, batch, &wg, jobs, results)
	}

	go func() {
		defer close(jobs)
		for _, s := range stubs {
			select {
			case jobs <- s:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		if !yield(r, nil) {
			cancel()
			for range results {
			}
			return false
		}
	}
	return true
}

func (c *Crawler) worker(ctx context.Context, id, batch int, wg *sync.WaitGroup, jobs <-chan models.PageStub, results chan<- Result) {
	defer wg.Done()
	logger := c.opts.Logger
	for stub := range jobs {
		if ctx.Err() != nil {
			continue
		}
		start := time.Now()
		logger.Debug("Worker started page", "worker_id", id, "batch", batch, "title", stub.Title, "page_id", stub.PageID)

		record, err := c.enricher.Enrich(ctx, stub)
		result := Result{Stub: stub, Record: record, Err: err, Batch: batch, Duration: time.Since(start)}
		if err != nil {
			result.Record = nil
			result.ErrorType = enrich.ErrorType(err)
			logger.Error("Error enriching page", "worker_id", id, "batch", batch, "title", stub.Title, "page_id", stub.PageID, "error_type", result.ErrorType, "error", err)
		} else {
			logger.Debug("Worker finished page", "worker_id", id, "batch", batch, "title", stub.Title, "infobox_count", record.InfoboxCount)
		}
		results <- result
	}
}

// pause waits d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
