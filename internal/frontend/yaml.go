package frontend

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/roach88/forge/internal/compiler"
)

// ParseYAML decodes a YAML program document.
// Unknown fields are rejected (catches typos like "recipe:" vs "recipes:").
func ParseYAML(data []byte) (compiler.Source, error) {
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return compiler.Source{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return doc.Source()
}
