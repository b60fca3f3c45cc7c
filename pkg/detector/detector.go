// Package detector identifies the language of harvested page text.
package detector

import (
	"strings"
	"unicode/utf8"

	"github.com/dtnitsch/wiki-harvester/models"
	"github.com/pemistahl/lingua-go"
)

// DefaultLanguages are the candidates when none are given.
var DefaultLanguages = []lingua.Language{
	lingua.English,
	lingua.German,
	lingua.French,
	lingua.Spanish,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Dutch,
	lingua.Polish,
	lingua.Russian,
	lingua.Japanese,
	lingua.Chinese,
}

// MinTextChars is the shortest text a language is reported for.
const MinTextChars = 20

// maxSampleChars caps the text handed to the detector.
const maxSampleChars = 2000

// Detector wraps a lingua detector. It is safe for concurrent use.
type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector over languages, or DefaultLanguages when fewer than
// two are given.
func New(languages ...lingua.Language) *Detector {
	if len(languages) < 2 {
		languages = DefaultLanguages
	}
	d := lingua.NewLanguageDetectorBuilder().
		FromLanguages(languages...).
		WithMinimumRelativeDistance(0.1).
		Build()
	return &Detector{detector: d}
}

// DetectLanguage returns the lowercase ISO 639-1 code of text, or "" when
// the text is too short or no language is reliable.
func (d *Detector) DetectLanguage(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < MinTextChars {
		return ""
	}
	text = truncateRunes(text, maxSampleChars)
	language, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(language.IsoCode639_1().String())
}

// RecordLanguage detects the language of a record's section text.
func (d *Detector) RecordLanguage(record *models.PageRecord) string {
	return d.DetectLanguage(record.ToPlainText())
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
