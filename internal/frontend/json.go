package frontend

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/roach88/forge/internal/compiler"
)

//go:embed schema/program.schema.json
var programSchemaJSON string

const programSchemaURL = "https://github.com/roach88/forge/schema/program.schema.json"

var (
	programSchemaOnce sync.Once
	programSchema     *jsonschema.Schema
	programSchemaErr  error
)

// ProgramSchema returns the compiled JSON Schema for program documents.
func ProgramSchema() (*jsonschema.Schema, error) {
	programSchemaOnce.Do(func() {
		programSchema, programSchemaErr = jsonschema.CompileString(programSchemaURL, programSchemaJSON)
	})
	return programSchema, programSchemaErr
}

// ParseJSON validates data against the program schema and decodes it.
func ParseJSON(data []byte) (compiler.Source, error) {
	schema, err := ProgramSchema()
	if err != nil {
		return compiler.Source{}, fmt.Errorf("compile program schema: %w", err)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return compiler.Source{}, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return compiler.Source{}, fmt.Errorf("invalid program: %w", err)
	}

	var doc Document
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&doc); err != nil {
		return compiler.Source{}, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return doc.Source()
}
