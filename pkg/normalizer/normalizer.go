// Package normalizer turns rendered wiki HTML fragments into plain text.
package normalizer

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/wiki-harvester/models"
	"golang.org/x/net/html"
)

// TrimChars is stripped from both ends of decoded labels, values and link texts.
const TrimChars = "\"',.:-"

var whitespaceRun = regexp.MustCompile(`\s+`)

// Normalizer cleans section HTML. The zero value drops nothing;
// use New or Default.
type Normalizer struct {
	dropSelector string
}

// New returns a Normalizer that removes footnote and stub markers
// (models.DefaultDropSelectors) plus any elements matching extra before
// extracting text.
func New(extra []string) *Normalizer {
	selectors := append([]string(nil), models.DefaultDropSelectors...)
	for _, sel := range extra {
		sel = strings.TrimSpace(sel)
		if sel != "" && !slices.Contains(selectors, sel) {
			selectors = append(selectors, sel)
		}
	}
	return &Normalizer{dropSelector: strings.Join(selectors, ", ")}
}

// Default returns a Normalizer with models.DefaultDropSelectors.
func Default() *Normalizer {
	return New(nil)
}

// CleanSection strips footnotes and stub markers from a section's HTML and
// returns its visible text as single-spaced prose.
func (n *Normalizer) CleanSection(fragment string) (string, error) {
	body, err := parseFragment(fragment)
	if err != nil {
		return "", err
	}
	if n.dropSelector != "" {
		body.Find(n.dropSelector).Remove()
	}

	var parts []string
	walkText(body, func(text string, _ bool) {
		if text != "" {
			parts = append(parts, text)
		}
	}, false)

	text := strings.Join(parts, " ")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " ")), nil
}

// Field is the normalized form of one infobox label or value fragment.
type Field struct {
	Text  string
	Links []models.InfoboxLink
}

// NormalizeField drops footnotes, keeps <li>/<br> boundaries as line breaks,
// collects anchors in document order and flattens the rest to text.
func NormalizeField(fragment string) (Field, error) {
	body, err := parseFragment(fragment)
	if err != nil {
		return Field{}, err
	}
	body.Find("sup").Remove()

	field := Field{Links: []models.InfoboxLink{}}
	body.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		var sb strings.Builder
		walkText(a, func(text string, _ bool) {
			sb.WriteString(text)
		}, false)
		field.Links = append(field.Links, models.InfoboxLink{
			Href: href,
			Text: strings.Trim(sb.String(), TrimChars),
		})
	})

	var lines []string
	var line []string
	flush := func() {
		if len(line) > 0 {
			lines = append(lines, strings.Join(line, ", "))
			line = nil
		}
	}
	walkText(body, func(text string, lineBreak bool) {
		if lineBreak {
			flush()
			return
		}
		if text != "" {
			line = append(line, text)
		}
	}, true)
	flush()

	field.Text = finishText(strings.Join(lines, "\n"))
	return field, nil
}

// GroupName extracts an infobox group heading: visible text joined with ", "
// and trimmed of TrimChars.
func GroupName(fragment string) (string, error) {
	body, err := parseFragment(fragment)
	if err != nil {
		return "", err
	}
	var parts []string
	walkText(body, func(text string, _ bool) {
		if text != "" {
			parts = append(parts, text)
		}
	}, false)
	return strings.Trim(strings.Join(parts, ", "), TrimChars), nil
}

// FirstAnchorHref returns the href of the first anchor carrying one.
func FirstAnchorHref(fragment string) (string, bool, error) {
	body, err := parseFragment(fragment)
	if err != nil {
		return "", false, err
	}
	href, ok := body.Find("a[href]").First().Attr("href")
	return href, ok, nil
}

func finishText(s string) string {
	s = strings.ReplaceAll(s, "  ", " ")
	s = strings.ReplaceAll(s, `\`, "")
	return strings.Trim(s, TrimChars)
}

func parseFragment(fragment string) (*goquery.Selection, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML fragment: %w", err)
	}
	return doc.Find("body"), nil
}

// walkText visits text nodes under sel in document order, each trimmed of
// surrounding whitespace. With breaks set, fn is also called with
// lineBreak=true immediately before every <li> and <br> element.
func walkText(sel *goquery.Selection, fn func(text string, lineBreak bool), breaks bool) {
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			fn(strings.TrimSpace(n.Data), false)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style":
				return
			case "li", "br":
				if breaks {
					fn("", true)
				}
			}
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	for _, n := range sel.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
}
