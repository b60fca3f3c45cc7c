package mapreduce

import (
	"fmt"
	"sort"
	"strings"
)

// Tally is one name and its aggregated count.
type Tally struct {
	Name  string `yaml:"name" json:"name"`
	Count int    `yaml:"count" json:"count"`
}

func (t Tally) String() string {
	return fmt.Sprintf("%s:%d", t.Name, t.Count)
}

// isValidName drops blank names and wiki maintenance categories.
func isValidName(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "pages with") || strings.HasPrefix(lower, "articles with") {
		return false
	}
	if strings.HasSuffix(lower, "stubs") {
		return false
	}
	return true
}

// TopN returns the n highest counts, highest first. Equal counts are
// ordered by name. n <= 0 returns every valid entry.
func TopN(counts map[string]int, n int) []Tally {
	ss := make([]Tally, 0, len(counts))
	for k, v := range counts {
		if isValidName(k) {
			ss = append(ss, Tally{k, v})
		}
	}

	sort.Slice(ss, func(i, j int) bool {
		if ss[i].Count != ss[j].Count {
			return ss[i].Count > ss[j].Count
		}
		return ss[i].Name < ss[j].Name
	})

	if n > 0 && len(ss) > n {
		ss = ss[:n]
	}
	return ss
}

// TopKeywords returns the top n entries formatted as "name:count"
// (e.g., "Planets:1153").
func TopKeywords(counts map[string]int, n int) []string {
	top := TopN(counts, n)
	out := make([]string, len(top))
	for i, t := range top {
		out[i] = t.String()
	}
	return out
}
