package frontend

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/forge/internal/compiler"
)

// Format identifies a program document format.
type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatCUE  Format = "cue"
)

// FormatFor picks a format from a file extension. Anything unrecognized is
// treated as text.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	case ".cue":
		return FormatCUE
	default:
		return FormatText
	}
}

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatText, FormatYAML, FormatJSON, FormatCUE:
		return f, nil
	default:
		return "", fmt.Errorf("unknown program format %q (want text, yaml, json or cue)", name)
	}
}

// Parse decodes data in the given format. name is used in error messages.
func Parse(data []byte, format Format, name string) (compiler.Source, error) {
	switch format {
	case FormatText:
		return ParseText(bytes.NewReader(data), name)
	case FormatYAML:
		return ParseYAML(data)
	case FormatJSON:
		return ParseJSON(data)
	case FormatCUE:
		return ParseCUE(data, name)
	default:
		return compiler.Source{}, fmt.Errorf("unknown program format %q", format)
	}
}

// LoadFile reads and parses the program at path, choosing the format by
// extension.
func LoadFile(path string) (compiler.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return compiler.Source{}, fmt.Errorf("read program: %w", err)
	}
	src, err := Parse(data, FormatFor(path), path)
	if err != nil {
		return compiler.Source{}, fmt.Errorf("%s: %w", path, err)
	}
	return src, nil
}
