// Package export writes segmentation results and reports as JSON, YAML or aligned text tables.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/custseg/internal/domain/model"
)

// Format selects an encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatText Format = "text"
)

const filenameTimeLayout = "20060102T150405Z"

// ParseFormat maps a format name, case-insensitively, to a Format. "yml" and "table" are aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "text", "table", "":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Ext returns the file extension for f.
func (f Format) Ext() string {
	if f == FormatText {
		return "txt"
	}
	return string(f)
}

// WriteJSON encodes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteYAML encodes v as YAML.
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// Encode writes v in format f. The text format supports results, reports and run statuses.
func Encode(w io.Writer, f Format, v any) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, v)
	case FormatYAML:
		return WriteYAML(w, v)
	case FormatText:
		switch val := v.(type) {
		case *model.Result:
			return RenderResult(w, val)
		case *model.Report:
			return RenderReport(w, val)
		case *model.RunStatus:
			return RenderStatus(w, val)
		}
		return fmt.Errorf("%w: %T", ErrNotTabular, v)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// TimestampedFilename returns name_<UTC timestamp>.ext.
func TimestampedFilename(name, ext string, t time.Time) string {
	return fmt.Sprintf("%s_%s.%s", name, t.UTC().Format(filenameTimeLayout), ext)
}

// WriteFile encodes v into a new timestamped file under dir and returns its path.
func WriteFile(dir, name string, f Format, v any, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, TimestampedFilename(name, f.Ext(), now))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := Encode(file, f, v); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}
