// Package storage persists page records as one JSON file per page.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/dtnitsch/wiki-harvester/models"
	"golang.org/x/text/unicode/norm"
)

// ErrNoInfobox is returned for records that do not carry exactly one infobox.
var ErrNoInfobox = errors.New("record has no single infobox")

var unsafeRunes = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)

// Sanitize makes s safe as a path component: NFC-normalized, every rune
// other than letters, digits, '_', '-' and whitespace replaced by '_', then
// spaces replaced by '_'.
func Sanitize(s string) string {
	s = norm.NFC.String(s)
	s = unsafeRunes.ReplaceAllString(s, "_")
	return strings.ReplaceAll(s, " ", "_")
}

// Writer stores records under {root}/{template}/{pageId}_{template}_{title}.json.
type Writer struct {
	root    string
	unnamed string
}

// NewWriter creates root if needed and checks that it is writable.
// unnamed is the template directory for infoboxes without a template;
// "" selects models.DefaultUnnamedTemplate.
func NewWriter(root, unnamed string) (*Writer, error) {
	if unnamed == "" {
		unnamed = models.DefaultUnnamedTemplate
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	check, err := os.CreateTemp(root, ".writable-*")
	if err != nil {
		return nil, fmt.Errorf("output directory is not writable: %w", err)
	}
	check.Close()
	os.Remove(check.Name())
	return &Writer{root: root, unnamed: unnamed}, nil
}

func (w *Writer) Root() string { return w.root }

// Path returns where record is written.
func (w *Writer) Path(record *models.PageRecord) (string, error) {
	if !record.Writable() {
		return "", ErrNoInfobox
	}
	template := record.Infobox.TemplateName()
	if template == "" {
		template = w.unnamed
	}
	t := Sanitize(template)
	name := strconv.FormatInt(record.PageID, 10) + "_" + t + "_" + Sanitize(record.Title) + ".json"
	return filepath.Join(w.root, t, name), nil
}

// Write persists record and returns its path. The file at that path is
// always either the previous complete record or the new one.
func (w *Writer) Write(record *models.PageRecord) (string, error) {
	path, err := w.Path(record)
	if err != nil {
		return "", err
	}
	data, err := Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to marshal record %q: %w", record.Title, err)
	}
	if err := WriteFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// Marshal encodes v as JSON indented with four spaces, without HTML escaping.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFileAtomic writes data to a temp file in path's directory and renames
// it into place.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("error saving file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("error saving file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("error saving file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("error saving file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("error saving file: %w", err)
	}
	return nil
}

// Read loads a persisted record.
func Read(path string) (*models.PageRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	var record models.PageRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse record %s: %w", path, err)
	}
	return &record, nil
}

// Walk calls fn for every record file under root, in lexical path order.
// rel is the path relative to root. Temp files and non-JSON files are skipped.
func Walk(root string, fn func(path, rel string, record *models.PageRecord) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || name == RunsDir) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			return nil
		}
		record, err := Read(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		return fn(path, rel, record)
	})
}

// RunsDir is the directory under the output root that holds run manifests.
const RunsDir = "_runs"
