package common

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseLevel maps a log level name to its slog level.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}

// NewLogger returns a JSON logger on stderr. quiet forces the error level.
func NewLogger(level string, quiet bool) (*slog.Logger, error) {
	return NewLoggerTo(os.Stderr, level, quiet)
}

// NewLoggerTo is NewLogger writing to w.
func NewLoggerTo(w io.Writer, level string, quiet bool) (*slog.Logger, error) {
	l, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if quiet {
		l = slog.LevelError
	}
	var lv slog.LevelVar
	lv.Set(l)
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: &lv})), nil
}

// secretParams matches credentials passed as query parameters.
var secretParams = regexp.MustCompile(`(?i)((?:key|api_key|apikey|token|access_token|password)=)[^&\s"']+`)

// RedactSecrets hides credential values in error strings before they are
// logged or stored.
func RedactSecrets(s string, secrets ...string) string {
	s = secretParams.ReplaceAllString(s, "${1}REDACTED")
	for _, secret := range secrets {
		if secret = strings.TrimSpace(secret); secret != "" {
			s = strings.ReplaceAll(s, secret, "REDACTED")
		}
	}
	return s
}

// ContentHash computes SHA256 hash of content and returns hex string.
func ContentHash(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

// Marshal encodes v as YAML or JSON for printing. Any format other than
// "json" selects YAML.
func Marshal(v any, format string) ([]byte, error) {
	if strings.ToLower(format) == "json" {
		return json.MarshalIndent(v, "", "  ")
	}
	return yaml.Marshal(v)
}

// ParseRunID parses a positive run ID argument.
func ParseRunID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid run ID: %s", arg)
	}
	return id, nil
}
