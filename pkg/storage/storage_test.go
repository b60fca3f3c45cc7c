package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/dtnitsch/wiki-harvester/models"
)

func testRecord(template *string) *models.PageRecord {
	rec := models.NewPageRecord(models.PageStub{Title: "Tatooine", PageID: 42})
	rec.Sections.Set("Description", "A desert planet.")
	rec.Sections.Set("History", "Settled <long> ago & forgotten.")
	rec.Sections.Set("Biology", "Banthas.")
	rec.Categories.Add("Planets", "Desert planets", "Outer Rim")

	ib := &models.DecodedInfobox{Template: template, Title: "Tatooine", Groups: models.NewOrderedMap[models.InfoboxGroup]()}
	g := models.NewOrderedMap[models.InfoboxField]()
	g.Set("Climate", models.InfoboxField{Label: "Climate", Value: "Arid", Links: []models.InfoboxLink{}})
	g.Set("Suns", models.InfoboxField{Label: "Suns", Value: "Tatoo I\nTatoo II", Links: []models.InfoboxLink{{Href: "/wiki/Tatoo_I", Text: "Tatoo I"}}})
	ib.SetGroup("General information", g)
	rec.Infobox = ib
	rec.InfoboxCount = 1
	return rec
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Tatooine", "Tatooine"},
		{"Darth Vader", "Darth_Vader"},
		{"Mon Cala/Dac", "Mon_Cala_Dac"},
		{"R2-D2", "R2-D2"},
		{"Padmé Amidala", "Padmé_Amidala"},
		{"Padmé", "Padmé"},
		{"Obi-Wan \"Ben\" Kenobi", "Obi-Wan__Ben__Kenobi"},
		{"../escape", "___escape"},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriterPath(t *testing.T) {
	w, err := NewWriter(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	planet := "Planet"
	path, err := w.Path(testRecord(&planet))
	if err != nil {
		t.Fatalf("Path() error = %v", err)
	}
	if want := filepath.Join(w.Root(), "Planet", "42_Planet_Tatooine.json"); path != want {
		t.Errorf("Path() = %s, want %s", path, want)
	}

	path, err = w.Path(testRecord(nil))
	if err != nil {
		t.Fatalf("Path() error = %v", err)
	}
	if want := filepath.Join(w.Root(), "_unnamed", "42__unnamed_Tatooine.json"); path != want {
		t.Errorf("Path() unnamed = %s, want %s", path, want)
	}
}

func TestWriteRejectsWithoutInfobox(t *testing.T) {
	w, err := NewWriter(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	rec := testRecord(nil)
	rec.Infobox = nil
	rec.InfoboxCount = 2
	if _, err := w.Write(rec); !errors.Is(err, ErrNoInfobox) {
		t.Errorf("Write() error = %v, want ErrNoInfobox", err)
	}
	entries, _ := os.ReadDir(w.Root())
	if len(entries) != 0 {
		t.Errorf("Write() left %d entries in root", len(entries))
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	w, err := NewWriter(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	planet := "Planet"
	rec := testRecord(&planet)
	path, err := w.Write(rec)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	back, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if back.Title != rec.Title || back.PageID != rec.PageID {
		t.Errorf("identity = %q/%d", back.Title, back.PageID)
	}
	if !reflect.DeepEqual(back.Sections.Keys(), rec.Sections.Keys()) {
		t.Errorf("section order = %v, want %v", back.Sections.Keys(), rec.Sections.Keys())
	}
	if !reflect.DeepEqual(back.Categories, rec.Categories) {
		t.Errorf("categories = %v, want %v", back.Categories.Sorted(), rec.Categories.Sorted())
	}
	if back.Infobox.TemplateName() != "Planet" {
		t.Errorf("template = %q", back.Infobox.TemplateName())
	}
	want, _ := rec.Infobox.Groups.Get("General information")
	got, _ := back.Infobox.Groups.Get("General information")
	if !reflect.DeepEqual(got.Keys(), want.Keys()) {
		t.Errorf("fields = %v, want %v", got.Keys(), want.Keys())
	}
	for label, f := range want.All() {
		g, _ := got.Get(label)
		if !reflect.DeepEqual(g, f) {
			t.Errorf("field %s = %+v, want %+v", label, g, f)
		}
	}

	// Re-writing the re-read record produces identical bytes.
	first, _ := os.ReadFile(path)
	if _, err := w.Write(back); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	second, _ := os.ReadFile(path)
	if !bytes.Equal(first, second) {
		t.Errorf("rewrite changed bytes:\n%s\n%s", first, second)
	}
}

func TestWriteFormat(t *testing.T) {
	w, err := NewWriter(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	planet := "Planet"
	path, err := w.Write(testRecord(&planet))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	data, _ := os.ReadFile(path)
	s := string(data)
	if !strings.HasPrefix(s, "{\n    \"title\": \"Tatooine\",\n    \"id\": 42,") {
		t.Errorf("unexpected layout:\n%s", s)
	}
	if !strings.Contains(s, `"categories": [
        "Desert planets",
        "Outer Rim",
        "Planets"
    ]`) {
		t.Errorf("categories not sorted:\n%s", s)
	}
	if !strings.Contains(s, "Settled <long> ago & forgotten.") {
		t.Errorf("HTML characters were escaped:\n%s", s)
	}
	if !strings.Contains(s, `"links": []`) {
		t.Errorf("empty links not serialized as []:\n%s", s)
	}
}

func TestWalk(t *testing.T) {
	root := t.TempDir()
	w, err := NewWriter(root, "")
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	planet := "Planet"
	if _, err := w.Write(testRecord(&planet)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, err := w.Write(testRecord(nil)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	os.MkdirAll(filepath.Join(root, RunsDir), 0755)
	os.WriteFile(filepath.Join(root, RunsDir, "run-1.json"), []byte("{}"), 0644)
	os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644)

	var rels []string
	err = Walk(root, func(_, rel string, rec *models.PageRecord) error {
		rels = append(rels, rel)
		if rec.Title != "Tatooine" {
			t.Errorf("record title = %q", rec.Title)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	want := []string{
		filepath.Join("Planet", "42_Planet_Tatooine.json"),
		filepath.Join("_unnamed", "42__unnamed_Tatooine.json"),
	}
	if !reflect.DeepEqual(rels, want) {
		t.Errorf("Walk() = %v, want %v", rels, want)
	}
}

func TestNewWriterUnwritable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	os.WriteFile(file, []byte("x"), 0644)
	if _, err := NewWriter(filepath.Join(file, "sub"), ""); err == nil {
		t.Error("NewWriter() under a regular file succeeded")
	}
}
