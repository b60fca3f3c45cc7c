// Package wikiapi is a small client for the MediaWiki action API.
package wikiapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/dtnitsch/wiki-harvester/models"
)

// InitialCursor is the continuation value the wiki accepts for the first
// page of a pageswithprop listing.
const InitialCursor = "1"

// InfoboxProperty is the page property that carries portable infobox payloads.
const InfoboxProperty = "infoboxes"

// TemplateNamespace is the namespace of Template: pages.
const TemplateNamespace = 10

// ErrMalformedResponse is returned when a response decodes as JSON but not
// into the shape the action promises.
var ErrMalformedResponse = errors.New("malformed api response")

// Getter fetches and decodes a JSON document.
type Getter interface {
	GetJSON(ctx context.Context, url string, v any) error
}

// APIError is an error envelope returned by the API with HTTP 200.
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wiki api error %s: %s", e.Code, e.Info)
}

// FlexString accepts a JSON string or number.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = FlexString(n.String())
	return nil
}

// PageEntry is one row of a listing.
type PageEntry struct {
	PageID    int64  `json:"pageid"`
	Namespace int    `json:"ns"`
	Title     string `json:"title"`
}

func (e PageEntry) Stub() models.PageStub {
	return models.PageStub{Title: e.Title, PageID: e.PageID}
}

// Listing is one page of a paginated listing.
type Listing struct {
	Pages      []PageEntry
	NextCursor string
}

// Done reports whether this was the last page.
func (l *Listing) Done() bool {
	return l.NextCursor == ""
}

// PageProperties are the sections and infobox payloads of a parsed page.
type PageProperties struct {
	Sections        []models.SectionDescriptor
	InfoboxPayloads []string
}

// Client calls a single wiki's api.php endpoint.
type Client struct {
	baseURL string
	limit   string
	getter  Getter
}

// NewClient returns a client for apiURL. limit is the listing page size
// ("max" or a number).
func NewClient(apiURL string, getter Getter, limit string) *Client {
	if limit == "" {
		limit = "max"
	}
	return &Client{baseURL: apiURL, limit: limit, getter: getter}
}

type envelope struct {
	Error    *APIError                  `json:"error"`
	Continue map[string]json.RawMessage `json:"continue"`
	Query    struct {
		PagesWithProp   []PageEntry `json:"pageswithprop"`
		CategoryMembers []PageEntry `json:"categorymembers"`
		AllPages        []PageEntry `json:"allpages"`
	} `json:"query"`
	Parse *struct {
		Sections []struct {
			Index FlexString `json:"index"`
			Line  string     `json:"line"`
		} `json:"sections"`
		Properties []struct {
			Name  string          `json:"name"`
			Value json.RawMessage `json:"*"`
		} `json:"properties"`
		Text struct {
			Value string `json:"*"`
		} `json:"text"`
		Categories []struct {
			Value string `json:"*"`
		} `json:"categories"`
	} `json:"parse"`
}

// Validate reports an error envelope, so the fetcher never caches one.
func (env *envelope) Validate() error {
	if env.Error != nil {
		return env.Error
	}
	return nil
}

func (c *Client) call(ctx context.Context, params url.Values) (*envelope, error) {
	params.Set("format", "json")
	u := c.baseURL + "?" + params.Encode()
	var env envelope
	if err := c.getter.GetJSON(ctx, u, &env); err != nil {
		return nil, err
	}
	if env.Error != nil {
		return nil, env.Error
	}
	return &env, nil
}

func (c *Client) callParse(ctx context.Context, params url.Values) (*envelope, error) {
	env, err := c.call(ctx, params)
	if err != nil {
		return nil, err
	}
	if env.Parse == nil {
		return nil, fmt.Errorf("%w: response has no parse object", ErrMalformedResponse)
	}
	return env, nil
}

// nextCursor reads continue[key], which may be a string or a number.
func (env *envelope) nextCursor(key string) string {
	raw, ok := env.Continue[key]
	if !ok {
		return ""
	}
	var s FlexString
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return string(s)
}

// ListPagesWithProperty lists pages carrying the page property.
func (c *Client) ListPagesWithProperty(ctx context.Context, property, cursor string) (*Listing, error) {
	if cursor == "" {
		cursor = InitialCursor
	}
	params := url.Values{
		"action":      {"query"},
		"list":        {"pageswithprop"},
		"pwppropname": {property},
		"pwplimit":    {c.limit},
		"pwpcontinue": {cursor},
	}
	env, err := c.call(ctx, params)
	if err != nil {
		return nil, err
	}
	return &Listing{Pages: env.Query.PagesWithProp, NextCursor: env.nextCursor("pwpcontinue")}, nil
}

// ListCategoryMembers lists the members of Category:<category>.
func (c *Client) ListCategoryMembers(ctx context.Context, category, cursor string) (*Listing, error) {
	params := url.Values{
		"action":  {"query"},
		"list":    {"categorymembers"},
		"cmtitle": {"Category:" + category},
		"cmlimit": {c.limit},
	}
	if cursor != "" && cursor != InitialCursor {
		params.Set("cmcontinue", cursor)
	}
	env, err := c.call(ctx, params)
	if err != nil {
		return nil, err
	}
	return &Listing{Pages: env.Query.CategoryMembers, NextCursor: env.nextCursor("cmcontinue")}, nil
}

// ListInfoboxTemplates lists Template: pages whose name starts with "Infobox".
func (c *Client) ListInfoboxTemplates(ctx context.Context, cursor string) (*Listing, error) {
	params := url.Values{
		"action":      {"query"},
		"list":        {"allpages"},
		"apprefix":    {"Infobox"},
		"apnamespace": {strconv.Itoa(TemplateNamespace)},
		"aplimit":     {c.limit},
	}
	if cursor != "" && cursor != InitialCursor {
		params.Set("apcontinue", cursor)
	}
	env, err := c.call(ctx, params)
	if err != nil {
		return nil, err
	}
	return &Listing{Pages: env.Query.AllPages, NextCursor: env.nextCursor("apcontinue")}, nil
}

// GetPageSectionsAndProperties returns every section of the page and the raw
// infobox payloads. Payloads with a null value are omitted.
func (c *Client) GetPageSectionsAndProperties(ctx context.Context, title string) (*PageProperties, error) {
	params := url.Values{
		"action": {"parse"},
		"page":   {title},
		"prop":   {"sections|properties"},
	}
	env, err := c.callParse(ctx, params)
	if err != nil {
		return nil, err
	}

	props := &PageProperties{}
	for _, s := range env.Parse.Sections {
		props.Sections = append(props.Sections, models.SectionDescriptor{Index: string(s.Index), Heading: s.Line})
	}
	for _, p := range env.Parse.Properties {
		if p.Name != InfoboxProperty {
			continue
		}
		var payload *string
		if err := json.Unmarshal(p.Value, &payload); err != nil {
			return nil, fmt.Errorf("%w: infobox property is not a string", ErrMalformedResponse)
		}
		if payload != nil {
			props.InfoboxPayloads = append(props.InfoboxPayloads, *payload)
		}
	}
	return props, nil
}

// GetSectionHTML returns the rendered HTML of one section.
func (c *Client) GetSectionHTML(ctx context.Context, title, index string) (string, error) {
	params := url.Values{
		"action":  {"parse"},
		"page":    {title},
		"prop":    {"text"},
		"section": {index},
	}
	env, err := c.callParse(ctx, params)
	if err != nil {
		return "", err
	}
	return env.Parse.Text.Value, nil
}

// GetPageCategories returns the page's category names, without the
// "Category:" prefix, in API order.
func (c *Client) GetPageCategories(ctx context.Context, title string) ([]string, error) {
	params := url.Values{
		"action": {"parse"},
		"page":   {title},
		"prop":   {"categories"},
	}
	env, err := c.callParse(ctx, params)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(env.Parse.Categories))
	for _, cat := range env.Parse.Categories {
		out = append(out, cat.Value)
	}
	return out, nil
}
