package common

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		quiet     bool
		wantDebug bool
		wantInfo  bool
	}{
		{"debug", "debug", false, true, true},
		{"info", "info", false, false, true},
		{"upper case", "WARN", false, false, false},
		{"quiet wins", "debug", true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := NewLoggerTo(&buf, tt.level, tt.quiet)
			if err != nil {
				t.Fatalf("NewLoggerTo() error = %v", err)
			}
			logger.Debug("debug line")
			logger.Info("info line")
			out := buf.String()
			if got := strings.Contains(out, "debug line"); got != tt.wantDebug {
				t.Errorf("debug logged = %v, want %v", got, tt.wantDebug)
			}
			if got := strings.Contains(out, "info line"); got != tt.wantInfo {
				t.Errorf("info logged = %v, want %v", got, tt.wantInfo)
			}
		})
	}

	if _, err := NewLoggerTo(&bytes.Buffer{}, "verbose", false); err == nil {
		t.Error("NewLoggerTo() accepted an invalid level")
	}
}

func TestRedactSecrets(t *testing.T) {
	tests := []struct {
		in      string
		secrets []string
		want    string
	}{
		{"GET https://x/api?key=abc123&q=1: 403", nil, "GET https://x/api?key=REDACTED&q=1: 403"},
		{"token=xyz failed", nil, "token=REDACTED failed"},
		{"bad key s3cr3t", []string{"s3cr3t"}, "bad key REDACTED"},
		{"nothing here", []string{""}, "nothing here"},
	}
	for _, tt := range tests {
		if got := RedactSecrets(tt.in, tt.secrets...); got != tt.want {
			t.Errorf("RedactSecrets(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestContentHash(t *testing.T) {
	got := ContentHash([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("ContentHash() = %s, want %s", got, want)
	}
}

func TestMarshal(t *testing.T) {
	v := map[string]int{"written": 3}
	y, err := Marshal(v, "yaml")
	if err != nil || string(y) != "written: 3\n" {
		t.Errorf("Marshal(yaml) = %q, %v", y, err)
	}
	j, err := Marshal(v, "JSON")
	if err != nil || string(j) != "{\n  \"written\": 3\n}" {
		t.Errorf("Marshal(json) = %q, %v", j, err)
	}
}

func TestParseRunID(t *testing.T) {
	if id, err := ParseRunID(" 12 "); err != nil || id != 12 {
		t.Errorf("ParseRunID() = %d, %v", id, err)
	}
	for _, bad := range []string{"", "0", "-3", "abc"} {
		if _, err := ParseRunID(bad); err == nil {
			t.Errorf("ParseRunID(%q) succeeded", bad)
		}
	}
}
