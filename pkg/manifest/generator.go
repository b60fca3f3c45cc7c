package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dtnitsch/wiki-harvester/pkg/db"
	"github.com/dtnitsch/wiki-harvester/pkg/mapreduce"
	"github.com/dtnitsch/wiki-harvester/pkg/storage"
	"gopkg.in/yaml.v3"
)

// Generate builds the manifest of run from its recorded page results.
func Generate(run *db.Run, results []db.PageResult, topCategories []mapreduce.Tally) *RunManifest {
	generatedAt := time.Now()
	if run.FinishedAt != nil {
		generatedAt = *run.FinishedAt
	}

	m := &RunManifest{
		RunID:         run.RunID,
		GeneratedAt:   generatedAt.UTC().Format(time.RFC3339),
		APIURL:        run.APIURL,
		Source:        run.Source,
		OutputDir:     run.OutputDir,
		Status:        run.Status,
		Summary:       run.Counts,
		TopCategories: topCategories,
		Pages:         make([]PageSummary, 0, len(results)),
	}

	for _, r := range results {
		m.Pages = append(m.Pages, PageSummary{
			Title:        r.Title,
			PageID:       r.PageID,
			Status:       r.Status,
			Reason:       r.Reason,
			ErrorType:    r.ErrorType,
			ErrorMessage: r.ErrorMessage,
			Template:     r.Template,
			FilePath:     r.FilePath,
			SizeBytes:    r.FileSizeBytes,
			Language:     r.Language,
		})
	}
	return m
}

// Path returns where the manifest of runID is stored under outputDir.
func Path(outputDir string, runID int64) string {
	return filepath.Join(outputDir, storage.RunsDir, fmt.Sprintf("run-%d.yaml", runID))
}

// Write saves m as YAML under outputDir and returns the file path.
func (m *RunManifest) Write(outputDir string) (string, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("error marshalling manifest: %w", err)
	}

	path := Path(outputDir, m.RunID)
	if err := storage.WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("error saving manifest: %w", err)
	}
	return path, nil
}

// Read loads a manifest written by Write.
func Read(path string) (*RunManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading manifest: %w", err)
	}
	var m RunManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &m, nil
}
