package mapreduce

import (
	"github.com/dtnitsch/wiki-harvester/models"
	"github.com/dtnitsch/wiki-harvester/pkg/analytics"
)

// Map generates a category count map for a single record.
func Map(record *models.PageRecord) map[string]int {
	counts := make(map[string]int, len(record.Categories))
	for name := range record.Categories {
		counts[name]++
	}
	return counts
}

// MapTerms generates a term count map for the section text of a single record.
func MapTerms(record *models.PageRecord, a *analytics.Analytics) map[string]int {
	return a.WordFrequency(record.ToPlainText())
}

// Reduce aggregates a slice of count maps into a single map.
func Reduce(intermediate []map[string]int) map[string]int {
	finalResults := make(map[string]int)

	for _, counts := range intermediate {
		for name, count := range counts {
			finalResults[name] += count
		}
	}

	return finalResults
}
