package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dtnitsch/wiki-harvester/pkg/db"
	"github.com/dtnitsch/wiki-harvester/pkg/mapreduce"
)

func testRun() (*db.Run, []db.PageResult) {
	finished := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run := &db.Run{
		RunID:      7,
		FinishedAt: &finished,
		APIURL:     "https://starwars.fandom.com/api.php",
		Source:     "property:infoboxes",
		OutputDir:  "output/raw",
		Status:     db.RunPartialFailure,
		Counts:     db.RunCounts{Discovered: 3, Written: 1, Skipped: 1, Failed: 1},
	}
	results := []db.PageResult{
		{PageID: 42, Title: "Tatooine", Status: db.StatusWritten, Template: "Planet", FilePath: "output/raw/Planet/42_Planet_Tatooine.json", FileSizeBytes: 900, Language: "en"},
		{PageID: 7, Title: "Hoth", Status: db.StatusSkipped, Reason: "infobox_count=2"},
		{PageID: 9, Title: "Naboo", Status: db.StatusFailed, ErrorType: "http_error", ErrorMessage: "status 503"},
	}
	return run, results
}

func TestGenerate(t *testing.T) {
	run, results := testRun()
	m := Generate(run, results, []mapreduce.Tally{{Name: "Planets", Count: 3}})

	if m.GeneratedAt != "2026-03-01T12:00:00Z" {
		t.Errorf("GeneratedAt = %s", m.GeneratedAt)
	}
	if m.Summary != run.Counts {
		t.Errorf("Summary = %+v, want %+v", m.Summary, run.Counts)
	}
	if len(m.Pages) != 3 {
		t.Fatalf("Pages = %d, want 3", len(m.Pages))
	}
	if p := m.Pages[1]; p.Status != db.StatusSkipped || p.Reason != "infobox_count=2" {
		t.Errorf("Pages[1] = %+v", p)
	}
	if p := m.Pages[2]; p.ErrorType != "http_error" || p.FilePath != "" {
		t.Errorf("Pages[2] = %+v", p)
	}
}

func TestWriteRead(t *testing.T) {
	dir := t.TempDir()
	run, results := testRun()
	m := Generate(run, results, []mapreduce.Tally{{Name: "Planets", Count: 3}, {Name: "Outer Rim", Count: 1}})

	path, err := m.Write(dir)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if want := filepath.Join(dir, "_runs", "run-7.yaml"); path != want {
		t.Errorf("Write() path = %s, want %s", path, want)
	}

	data, _ := os.ReadFile(path)
	for _, want := range []string{"run_id: 7", "status: partial_failure", "written: 1", "name: Planets", "reason: infobox_count=2"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("manifest missing %q:\n%s", want, data)
		}
	}

	back, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if back.RunID != 7 || len(back.Pages) != 3 || len(back.TopCategories) != 2 || back.Summary != run.Counts {
		t.Errorf("Read() = %+v", back)
	}
}
