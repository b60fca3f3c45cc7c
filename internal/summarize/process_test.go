package summarize

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dtnitsch/wiki-harvester/models"
	"github.com/dtnitsch/wiki-harvester/pkg/storage"
)

type shortSummarizer struct {
	calls atomic.Int32
	fail  string
}

func (s *shortSummarizer) Summarize(_ context.Context, text string) (string, error) {
	s.calls.Add(1)
	if s.fail != "" && strings.Contains(text, s.fail) {
		return "", errors.New("quota exceeded")
	}
	return "short: " + strings.Fields(text)[0], nil
}

func writeRecord(t *testing.T, w *storage.Writer, id int64, title string, sections ...string) {
	t.Helper()
	rec := models.NewPageRecord(models.PageStub{Title: title, PageID: id})
	for i := 0; i+1 < len(sections); i += 2 {
		rec.Sections.Set(sections[i], sections[i+1])
	}
	rec.Categories.Add("Planets")
	template := "Planet"
	rec.Infobox = &models.DecodedInfobox{Template: &template, Title: title, Groups: models.NewOrderedMap[models.InfoboxGroup]()}
	if _, err := w.Write(rec); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
}

func TestRecords(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	w, _ := storage.NewWriter(in, "")
	writeRecord(t, w, 1, "Tatooine", "Description", "Desert world with two suns.", "History", "Settled long ago.", "Empty", "")
	writeRecord(t, w, 2, "Hoth", "Description", "Ice world.")

	s := &shortSummarizer{}
	stats, err := Records(context.Background(), s, Options{InputDir: in, OutputDir: out, Workers: 2})
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	if stats.Processed != 2 || stats.Failed != 0 || stats.Sections != 3 {
		t.Errorf("stats = %+v", stats)
	}
	if n := s.calls.Load(); n != 3 {
		t.Errorf("Summarize called %d times, want 3", n)
	}

	rec, err := storage.Read(filepath.Join(out, "Planet", "1_Planet_Tatooine.json"))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got := rec.Sections.Keys(); !reflect.DeepEqual(got, []string{"Description", "History", "Empty"}) {
		t.Errorf("section order = %v", got)
	}
	if got, _ := rec.Sections.Get("History"); got != "short: Settled" {
		t.Errorf("History = %q", got)
	}
	if !rec.Categories.Has("Planets") || rec.Infobox.TemplateName() != "Planet" {
		t.Errorf("record fields not preserved: %+v", rec)
	}
}

func TestRecordsFailureNotWritten(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	w, _ := storage.NewWriter(in, "")
	writeRecord(t, w, 1, "Tatooine", "Description", "Desert world.")
	writeRecord(t, w, 2, "Hoth", "Description", "Ice world.")

	stats, err := Records(context.Background(), &shortSummarizer{fail: "Ice"}, Options{InputDir: in, OutputDir: out})
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	if stats.Processed != 1 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if _, err := storage.Read(filepath.Join(out, "Planet", "2_Planet_Hoth.json")); err == nil {
		t.Error("failed record was written")
	}
}
