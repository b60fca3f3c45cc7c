// Package analytics counts significant terms in record text.
package analytics

import (
	"strings"
	"unicode"
)

// MinTermLength is the shortest term that is counted.
const MinTermLength = 3

// stopwords are English function words plus wiki boilerplate that would
// otherwise dominate every page.
var stopwords = toSet(`
a about above after again against all almost also although always am among an and another any
are around as at back be became because become been before being below between both but by
can cannot could did do does doing done down during each either else even ever every few for
former from further had has have having he her here hers herself him himself his how however
if in into is it its itself just later latter least less like made make many may me might more
most much must my myself neither never no nor not now of off often on once one only onto or
other others our ours out over own per perhaps rather same several she should since so some
still such than that the their theirs them themselves then there these they this those through
thus to together too toward towards under until up upon us very via was we well were what when
where whether which while who whom whose why will with within without would yet you your yours
s t
appearances behind canon cite edit external file image legends links main non notes page pages
references scenes see sources thumb wiki
`)

func toSet(words string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(words) {
		set[w] = struct{}{}
	}
	return set
}

// IsStopword reports whether word is ignored by WordFrequency.
func IsStopword(word string) bool {
	_, ok := stopwords[strings.ToLower(word)]
	return ok
}

// Analytics computes term statistics. The zero value is ready to use.
type Analytics struct{}

// WordFrequency counts the lowercased terms of text. Terms are maximal runs
// of letters and digits; numbers, stopwords and terms shorter than
// MinTermLength are skipped.
func (a *Analytics) WordFrequency(text string) map[string]int {
	frequencies := make(map[string]int)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, word := range words {
		if len([]rune(word)) < MinTermLength || isNumber(word) {
			continue
		}
		if _, skip := stopwords[word]; skip {
			continue
		}
		frequencies[word]++
	}
	return frequencies
}

func isNumber(word string) bool {
	for _, r := range word {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
