// Package ai holds the language-model steps applied to harvested records:
// section summarization and schema filling.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Summarizer condenses a block of prose.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// SchemaFiller asks a model to fill a JSON schema from free text and returns
// the resulting JSON object.
type SchemaFiller interface {
	FillSchema(ctx context.Context, text string, schema json.RawMessage) (json.RawMessage, error)
}

// Passthrough returns its input unchanged.
type Passthrough struct{}

func (Passthrough) Summarize(_ context.Context, text string) (string, error) {
	return text, nil
}

// TransientError marks a failure that may succeed on retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// DefaultMaxChunkChars bounds a single summarization request.
const DefaultMaxChunkChars = 4000

// Chunked splits long input on word boundaries, summarizes each chunk and
// joins the summaries with a single space.
type Chunked struct {
	Summarizer Summarizer
	MaxChars   int
}

func (c Chunked) Summarize(ctx context.Context, text string) (string, error) {
	return SummarizeChunked(ctx, c.Summarizer, text, c.MaxChars)
}

// SummarizeChunked summarizes text in chunks of at most maxChars bytes.
// A single word longer than maxChars becomes its own chunk.
func SummarizeChunked(ctx context.Context, s Summarizer, text string, maxChars int) (string, error) {
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}
	chunks := ChunkWords(text, maxChars)
	summaries := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		out, err := s.Summarize(ctx, chunk)
		if err != nil {
			return "", fmt.Errorf("chunk %d of %d: %w", i+1, len(chunks), err)
		}
		summaries = append(summaries, strings.TrimSpace(out))
	}
	return strings.Join(summaries, " "), nil
}

// ChunkWords groups whitespace-separated words into chunks of at most
// maxChars bytes, joined by single spaces.
func ChunkWords(text string, maxChars int) []string {
	var chunks []string
	var sb strings.Builder
	for _, w := range strings.Fields(text) {
		if sb.Len() > 0 && sb.Len()+1+len(w) > maxChars {
			chunks = append(chunks, sb.String())
			sb.Reset()
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(w)
	}
	if sb.Len() > 0 {
		chunks = append(chunks, sb.String())
	}
	return chunks
}
