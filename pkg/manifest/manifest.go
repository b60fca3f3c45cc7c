package manifest

import (
	"github.com/dtnitsch/wiki-harvester/pkg/db"
	"github.com/dtnitsch/wiki-harvester/pkg/mapreduce"
)

// RunManifest is the on-disk overview of one crawl. It lists every page
// outcome so a run can be reviewed without opening the ledger.
type RunManifest struct {
	RunID         int64             `yaml:"run_id" json:"run_id"`
	GeneratedAt   string            `yaml:"generated_at" json:"generated_at"`
	APIURL        string            `yaml:"api_url" json:"api_url"`
	Source        string            `yaml:"source" json:"source"`
	OutputDir     string            `yaml:"output_dir" json:"output_dir"`
	Status        string            `yaml:"status" json:"status"`
	Summary       db.RunCounts      `yaml:"summary" json:"summary"`
	TopCategories []mapreduce.Tally `yaml:"top_categories" json:"top_categories"`
	TopTerms      []string          `yaml:"top_terms,omitempty" json:"top_terms,omitempty"`
	Pages         []PageSummary     `yaml:"pages" json:"pages"`
}

// PageSummary is the outcome of one page within the manifest.
type PageSummary struct {
	Title        string `yaml:"title" json:"title"`
	PageID       int64  `yaml:"page_id" json:"page_id"`
	Status       string `yaml:"status" json:"status"` // written, skipped or failed
	Reason       string `yaml:"reason,omitempty" json:"reason,omitempty"`
	ErrorType    string `yaml:"error_type,omitempty" json:"error_type,omitempty"`
	ErrorMessage string `yaml:"error_message,omitempty" json:"error_message,omitempty"`
	Template     string `yaml:"template,omitempty" json:"template,omitempty"`
	FilePath     string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	SizeBytes    int64  `yaml:"size_bytes,omitempty" json:"size_bytes,omitempty"`
	Language     string `yaml:"language,omitempty" json:"language,omitempty"`
}
