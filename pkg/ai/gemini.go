package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini-backed summarizer and schema filler.
type GeminiConfig struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL.
	BaseURL string
}

// Gemini implements Summarizer and SchemaFiller with the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("GEMINI_MODEL is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Gemini{client: client, model: strings.TrimSpace(cfg.Model)}, nil
}

func (g *Gemini) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(summaryPrompt(text)), &genai.GenerateContentConfig{
		CandidateCount: 1,
	})
	if err != nil {
		return "", classifyErr(err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func (g *Gemini) FillSchema(ctx context.Context, text string, schema json.RawMessage) (json.RawMessage, error) {
	rs, err := ToGenaiSchema(schema)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(schemaPrompt(SchemaTitle(schema), text)), &genai.GenerateContentConfig{
		CandidateCount:   1,
		ResponseMIMEType: "application/json",
		ResponseSchema:   rs,
	})
	if err != nil {
		return nil, classifyErr(err)
	}

	out := json.RawMessage(strings.TrimSpace(resp.Text()))
	if !json.Valid(out) {
		return nil, fmt.Errorf("gemini: response is not valid JSON")
	}
	return out, nil
}

func summaryPrompt(text string) string {
	return strings.TrimSpace(`
Summarize the following encyclopedia section in at most five sentences.
Keep proper nouns exactly as written. Return plain text only.

Text:
` + text)
}

func schemaPrompt(title, text string) string {
	return strings.TrimSpace(`
You fill in the ` + title + ` schema from what you know about the subject named below.
Leave a field out when you do not know it. Do not invent extra keys.

Subject: ` + text)
}

func classifyErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			return &TransientError{Err: err}
		}
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &TransientError{Err: err}
	}
	return err
}
