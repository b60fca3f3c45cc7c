// Package models defines the page, infobox and configuration types shared by the harvester.
package models

import (
	"encoding/json"
	"sort"
)

// PageStub is one entry of a page listing.
type PageStub struct {
	Title  string `json:"title" yaml:"title"`
	PageID int64  `json:"pageid" yaml:"page_id"`
}

// SectionDescriptor identifies one prose section of a page.
type SectionDescriptor struct {
	Index   string
	Heading string
}

// CategorySet is an unordered set of category names.
// It serializes as a sorted array so repeated writes produce identical bytes.
type CategorySet map[string]struct{}

func (s CategorySet) Add(names ...string) {
	for _, n := range names {
		s[n] = struct{}{}
	}
}

func (s CategorySet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the members in lexical order.
func (s CategorySet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (s CategorySet) MarshalJSON() ([]byte, error) {
	return marshalNoEscape(s.Sorted())
}

func (s *CategorySet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*s = make(CategorySet, len(names))
	s.Add(names...)
	return nil
}

// PageRecord is the canonical harvested form of one wiki page.
type PageRecord struct {
	Title      string             `json:"title"`
	PageID     int64              `json:"id"`
	Sections   OrderedMap[string] `json:"sections"`
	Categories CategorySet        `json:"categories"`
	Infobox    *DecodedInfobox    `json:"infobox"`

	// InfoboxCount is the number of infobox payloads the page reported.
	// Infobox is only set when it is exactly one.
	InfoboxCount int `json:"-"`
}

// NewPageRecord starts an empty record for a listed page.
func NewPageRecord(stub PageStub) *PageRecord {
	return &PageRecord{
		Title:      stub.Title,
		PageID:     stub.PageID,
		Sections:   NewOrderedMap[string](),
		Categories: make(CategorySet),
	}
}

// Stub returns the listing identity of the record.
func (r *PageRecord) Stub() PageStub {
	return PageStub{Title: r.Title, PageID: r.PageID}
}

// Writable reports whether the record satisfies the single-infobox policy.
func (r *PageRecord) Writable() bool {
	return r != nil && r.Infobox != nil
}

// ToPlainText concatenates the section texts in order.
func (r *PageRecord) ToPlainText() string {
	var out []byte
	for _, text := range r.Sections.All() {
		if text == "" {
			continue
		}
		if len(out) > 0 {
			out = append(out, '\n')
		}
		out = append(out, text...)
	}
	return string(out)
}
