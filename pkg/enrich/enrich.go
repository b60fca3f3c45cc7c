// Package enrich turns a listed page into a complete PageRecord.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dtnitsch/wiki-harvester/models"
	"github.com/dtnitsch/wiki-harvester/pkg/ai"
	"github.com/dtnitsch/wiki-harvester/pkg/fetcher"
	"github.com/dtnitsch/wiki-harvester/pkg/infobox"
	"github.com/dtnitsch/wiki-harvester/pkg/normalizer"
	"github.com/dtnitsch/wiki-harvester/pkg/wikiapi"
	"golang.org/x/sync/errgroup"
)

// WikiAPI is the subset of wikiapi.Client the enricher needs.
type WikiAPI interface {
	GetPageSectionsAndProperties(ctx context.Context, title string) (*wikiapi.PageProperties, error)
	GetSectionHTML(ctx context.Context, title, index string) (string, error)
	GetPageCategories(ctx context.Context, title string) ([]string, error)
}

// Failure stages.
const (
	StageProperties = "properties"
	StageCategories = "categories"
	StageSection    = "section"
	StageNormalize  = "normalize"
	StageInfobox    = "infobox"
)

// Error types reported for failed pages.
const (
	ErrTypeHTTP        = "http_error"
	ErrTypeAPI         = "api_error"
	ErrTypeInvalidJSON = "invalid_json"
	ErrTypeDecode      = "decode_error"
	ErrTypeCanceled    = "canceled"
	ErrTypeFetch       = "fetch_error"
)

// StageError is a page failure at a specific enrichment step.
type StageError struct {
	Stage string
	Title string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Stage, e.Title, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ErrorType classifies an enrichment error for reporting.
func ErrorType(err error) string {
	var httpErr *fetcher.HTTPError
	var apiErr *wikiapi.APIError
	var stageErr *StageError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrTypeCanceled
	case errors.As(err, &httpErr):
		return ErrTypeHTTP
	case errors.As(err, &apiErr):
		return ErrTypeAPI
	case errors.Is(err, fetcher.ErrNotJSON), errors.Is(err, wikiapi.ErrMalformedResponse):
		return ErrTypeInvalidJSON
	case errors.Is(err, infobox.ErrNotPortableInfobox):
		return ErrTypeDecode
	case errors.As(err, &stageErr) && (stageErr.Stage == StageInfobox || stageErr.Stage == StageNormalize):
		return ErrTypeDecode
	}
	return ErrTypeFetch
}

// Options configures an Enricher.
type Options struct {
	// IgnoreSections are headings never fetched. nil selects the defaults.
	IgnoreSections []string
	// SectionWorkers bounds concurrent section fetches per page.
	SectionWorkers int

	Normalizer *normalizer.Normalizer
	Summarizer ai.Summarizer
	Logger     *slog.Logger
}

// Enricher fetches and assembles page records.
type Enricher struct {
	api        WikiAPI
	ignore     map[string]struct{}
	workers    int
	normalizer *normalizer.Normalizer
	summarizer ai.Summarizer
	decoder    *infobox.Decoder
	logger     *slog.Logger
}

func New(api WikiAPI, opts Options) *Enricher {
	if opts.IgnoreSections == nil {
		opts.IgnoreSections = models.DefaultIgnoreSections
	}
	if opts.SectionWorkers <= 0 {
		opts.SectionWorkers = 4
	}
	if opts.Normalizer == nil {
		opts.Normalizer = normalizer.Default()
	}
	if opts.Summarizer == nil {
		opts.Summarizer = ai.Passthrough{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ignore := make(map[string]struct{}, len(opts.IgnoreSections))
	for _, h := range opts.IgnoreSections {
		ignore[h] = struct{}{}
	}
	return &Enricher{
		api:        api,
		ignore:     ignore,
		workers:    opts.SectionWorkers,
		normalizer: opts.Normalizer,
		summarizer: opts.Summarizer,
		decoder:    infobox.NewDecoder(opts.Logger),
		logger:     opts.Logger,
	}
}

// KeepSection reports whether a section's content is fetched.
func (e *Enricher) KeepSection(s models.SectionDescriptor) bool {
	if s.Index == "" {
		return false
	}
	_, ignored := e.ignore[s.Heading]
	return !ignored
}

// Enrich builds the record for one page. Any upstream failure fails the
// whole page; no partial record is returned.
func (e *Enricher) Enrich(ctx context.Context, stub models.PageStub) (*models.PageRecord, error) {
	var props *wikiapi.PageProperties
	var categories []string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := e.api.GetPageSectionsAndProperties(gctx, stub.Title)
		if err != nil {
			return &StageError{Stage: StageProperties, Title: stub.Title, Err: err}
		}
		props = p
		return nil
	})
	g.Go(func() error {
		c, err := e.api.GetPageCategories(gctx, stub.Title)
		if err != nil {
			return &StageError{Stage: StageCategories, Title: stub.Title, Err: err}
		}
		categories = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	record := models.NewPageRecord(stub)
	record.Categories.Add(categories...)

	if err := e.fillSections(ctx, stub.Title, props.Sections, record); err != nil {
		return nil, err
	}

	record.InfoboxCount = len(props.InfoboxPayloads)
	decoded := make([]*models.DecodedInfobox, 0, len(props.InfoboxPayloads))
	for _, payload := range props.InfoboxPayloads {
		ib, err := e.decoder.Decode([]byte(payload))
		if err != nil {
			return nil, &StageError{Stage: StageInfobox, Title: stub.Title, Err: err}
		}
		decoded = append(decoded, ib)
	}
	if len(decoded) == 1 {
		record.Infobox = decoded[0]
	}
	return record, nil
}

func (e *Enricher) fillSections(ctx context.Context, title string, all []models.SectionDescriptor, record *models.PageRecord) error {
	var kept []models.SectionDescriptor
	for _, s := range all {
		if e.KeepSection(s) {
			kept = append(kept, s)
		}
	}
	texts := make([]string, len(kept))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, s := range kept {
		g.Go(func() error {
			html, err := e.api.GetSectionHTML(gctx, title, s.Index)
			if err != nil {
				return &StageError{Stage: StageSection, Title: title, Err: fmt.Errorf("section %s (%s): %w", s.Index, s.Heading, err)}
			}
			text, err := e.normalizer.CleanSection(html)
			if err != nil {
				return &StageError{Stage: StageNormalize, Title: title, Err: err}
			}
			texts[i] = e.summarize(gctx, title, s.Heading, text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Discovery order; a repeated heading keeps its first position and the later text.
	for i, s := range kept {
		record.Sections.Set(s.Heading, texts[i])
	}
	return nil
}

func (e *Enricher) summarize(ctx context.Context, title, heading, text string) string {
	if text == "" {
		return text
	}
	summary, err := e.summarizer.Summarize(ctx, text)
	if err != nil {
		e.logger.Warn("Summarizer failed, keeping normalized text", "title", title, "section", heading, "error", err)
		return text
	}
	return summary
}
