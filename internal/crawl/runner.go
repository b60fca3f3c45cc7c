package crawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dtnitsch/wiki-harvester/internal/common"
	"github.com/dtnitsch/wiki-harvester/pkg/analytics"
	"github.com/dtnitsch/wiki-harvester/pkg/crawler"
	"github.com/dtnitsch/wiki-harvester/pkg/db"
	"github.com/dtnitsch/wiki-harvester/pkg/detector"
	"github.com/dtnitsch/wiki-harvester/pkg/manifest"
	"github.com/dtnitsch/wiki-harvester/pkg/mapreduce"
	"github.com/dtnitsch/wiki-harvester/pkg/storage"
)

// ErrTypeWrite marks pages whose record could not be written.
const ErrTypeWrite = "write_error"

// TopCategoryCount is the number of categories reported in the summary.
const TopCategoryCount = 25

// TopTermCount is the number of section terms reported in the summary.
const TopTermCount = 20

// ErrFirstListing wraps a failure of the very first listing request.
var ErrFirstListing = errors.New("first listing request failed")

// Summary is printed at the end of a crawl.
type Summary struct {
	RunID            int64             `yaml:"run_id" json:"run_id"`
	Status           string            `yaml:"status" json:"status"`
	Discovered       int               `yaml:"discovered" json:"discovered"`
	Written          int               `yaml:"written" json:"written"`
	Skipped          int               `yaml:"skipped" json:"skipped"`
	Failed           int               `yaml:"failed" json:"failed"`
	TopCategories    []mapreduce.Tally `yaml:"top_categories" json:"top_categories"`
	TopTerms         []string          `yaml:"top_terms,omitempty" json:"top_terms,omitempty"`
	Manifest         string            `yaml:"manifest,omitempty" json:"manifest,omitempty"`
	Error            string            `yaml:"error,omitempty" json:"error,omitempty"`
	TotalTimeSeconds float64           `yaml:"total_time_seconds" json:"total_time_seconds"`
}

// Runner executes one crawl and records it in the ledger.
type Runner struct {
	Lister   crawler.Lister
	Enricher crawler.Enricher
	Writer   *storage.Writer
	Ledger   *db.DB
	// Detector is optional; without it no language is recorded.
	Detector *detector.Detector

	APIURL  string
	Source  string
	Crawler crawler.Options
	Logger  *slog.Logger
	// Secrets are redacted from stored error messages.
	Secrets []string
}

// Run crawls until the listing is exhausted, the context is canceled or a
// listing request fails. The returned summary is valid even when err is not
// nil, except for ErrFirstListing and ledger setup failures.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	startTime := time.Now()

	runID, err := r.Ledger.CreateRun(r.APIURL, r.Source, r.Writer.Root())
	if err != nil {
		return nil, err
	}
	logger.Info("Run started", "run_id", runID, "source", r.Source, "output_dir", r.Writer.Root())

	opts := r.Crawler
	opts.Logger = logger
	c := crawler.New(r.Lister, r.Enricher, opts)

	var counts db.RunCounts
	var intermediate, terms []map[string]int
	a := &analytics.Analytics{}
	var crawlErr error
	lastBatch := 0
	for res, err := range c.Crawl(ctx) {
		if err != nil {
			crawlErr = err
			lastBatch = res.Batch
			break
		}
		counts.Discovered++
		pr := r.pageResult(runID, res, logger)
		switch pr.Status {
		case db.StatusWritten:
			counts.Written++
		case db.StatusSkipped:
			counts.Skipped++
		default:
			counts.Failed++
		}
		if res.Record != nil {
			intermediate = append(intermediate, mapreduce.Map(res.Record))
		}
		if pr.Status == db.StatusWritten {
			terms = append(terms, mapreduce.MapTerms(res.Record, a))
		}
		if err := r.Ledger.RecordPageResult(pr); err != nil {
			logger.Warn("Failed to record page result", "run_id", runID, "title", pr.Title, "error", err)
		}
	}

	status := db.RunCompleted
	errMsg := ""
	if crawlErr != nil {
		status = db.RunAborted
		errMsg = common.RedactSecrets(crawlErr.Error(), r.Secrets...)
		logger.Error("Crawl stopped", "run_id", runID, "batch", lastBatch, "error", errMsg)
	} else if counts.Failed > 0 {
		status = db.RunPartialFailure
	}

	if err := r.Ledger.FinishRun(runID, status, counts, errMsg); err != nil {
		logger.Warn("Failed to finish run in ledger", "run_id", runID, "error", err)
	}

	if crawlErr != nil && lastBatch == 1 && counts.Discovered == 0 && ctx.Err() == nil {
		return nil, fmt.Errorf("%w: %w", ErrFirstListing, crawlErr)
	}

	top := mapreduce.TopN(mapreduce.Reduce(intermediate), TopCategoryCount)
	topTerms := mapreduce.TopKeywords(mapreduce.Reduce(terms), TopTermCount)
	summary := &Summary{
		RunID:            runID,
		Status:           status,
		Discovered:       counts.Discovered,
		Written:          counts.Written,
		Skipped:          counts.Skipped,
		Failed:           counts.Failed,
		TopCategories:    top,
		TopTerms:         topTerms,
		Error:            errMsg,
		TotalTimeSeconds: time.Since(startTime).Seconds(),
	}

	if path, err := r.writeManifest(runID, top, topTerms); err != nil {
		logger.Warn("Failed to write run manifest", "run_id", runID, "error", err)
	} else {
		summary.Manifest = path
	}

	logger.Info("Run finished", "run_id", runID, "status", status, "discovered", counts.Discovered,
		"written", counts.Written, "skipped", counts.Skipped, "failed", counts.Failed)
	return summary, crawlErr
}

// pageResult writes a successful record and describes the page outcome.
func (r *Runner) pageResult(runID int64, res crawler.Result, logger *slog.Logger) db.PageResult {
	pr := db.PageResult{
		RunID:    runID,
		PageID:   res.Stub.PageID,
		Title:    res.Stub.Title,
		Batch:    res.Batch,
		Duration: res.Duration,
	}

	if res.Err != nil {
		pr.Status = db.StatusFailed
		pr.ErrorType = res.ErrorType
		pr.ErrorMessage = common.RedactSecrets(res.Err.Error(), r.Secrets...)
		return pr
	}

	record := res.Record
	pr.InfoboxCount = record.InfoboxCount
	pr.SectionCount = record.Sections.Len()
	pr.CategoryCount = len(record.Categories)
	if r.Detector != nil {
		pr.Language = r.Detector.RecordLanguage(record)
	}

	if !record.Writable() {
		pr.Status = db.StatusSkipped
		pr.Reason = fmt.Sprintf("infobox_count=%d", record.InfoboxCount)
		logger.Info("Page skipped", "title", record.Title, "page_id", record.PageID, "reason", pr.Reason)
		return pr
	}

	pr.Template = record.Infobox.TemplateName()
	path, err := r.Writer.Write(record)
	if err != nil {
		pr.Status = db.StatusFailed
		pr.ErrorType = ErrTypeWrite
		pr.ErrorMessage = err.Error()
		logger.Error("Error writing record", "title", record.Title, "page_id", record.PageID, "error", err)
		return pr
	}

	pr.Status = db.StatusWritten
	pr.FilePath = path
	if data, err := os.ReadFile(path); err == nil {
		pr.FileSizeBytes = int64(len(data))
		pr.ContentHash = common.ContentHash(data)
	}
	logger.Debug("Record written", "title", record.Title, "page_id", record.PageID, "path", path)
	return pr
}

func (r *Runner) writeManifest(runID int64, top []mapreduce.Tally, topTerms []string) (string, error) {
	run, err := r.Ledger.GetRun(runID)
	if err != nil {
		return "", err
	}
	results, err := r.Ledger.GetRunResults(runID)
	if err != nil {
		return "", err
	}
	m := manifest.Generate(run, results, top)
	m.TopTerms = topTerms
	return m.Write(r.Writer.Root())
}
