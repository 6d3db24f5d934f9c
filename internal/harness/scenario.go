package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/forge/internal/frontend"
)

// Scenario defines a program run together with the assertions it must meet.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is a path to a program document. Relative paths are resolved
	// against the scenario file's directory by LoadScenario.
	Program string `yaml:"program,omitempty"`

	// Source is an inline program, used when Program is empty.
	Source string `yaml:"source,omitempty"`

	// Format names the front-end for Source. Default: text.
	Format string `yaml:"format,omitempty"`

	// MaxSteps bounds the run. 0 means unbounded.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// RunID is the fixed run id stamped on every firing.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// Assertions validate the trace and final storage.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one property of a run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// State is the expected end state (used by state).
	State string `yaml:"state,omitempty"`

	// Expect maps items to exact quantities (used by final_storage).
	Expect map[string]int64 `yaml:"expect,omitempty"`

	// Count is the expected number of firings (used by firing_count and
	// recipe_count).
	Count int `yaml:"count,omitempty"`

	// Recipe is a recipe index (used by recipe_count).
	Recipe int `yaml:"recipe,omitempty"`

	// Recipes is the expected first-firing order (used by firing_order).
	Recipes []int `yaml:"recipes,omitempty"`
}

// Assertion type constants.
const (
	AssertState        = "state"
	AssertFinalStorage = "final_storage"
	AssertFiringCount  = "firing_count"
	AssertRecipeCount  = "recipe_count"
	AssertFiringOrder  = "firing_order"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains unknown
// fields (typos), or is missing required fields. A relative program path is
// resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file, resolving
// the program path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Program != "" && !filepath.IsAbs(scenario.Program) && basePath != "" {
		scenario.Program = filepath.Join(basePath, scenario.Program)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes a scenario document without touching the
// filesystem. Callers must validate the program path themselves.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml scenario in dir, sorted by
// file name.
func LoadScenarios(dir string) ([]*Scenario, []string, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, nil, fmt.Errorf("glob scenarios: %w", err)
		}
		files = append(files, matches...)
	}
	slices.Sort(files)

	scenarios := make([]*Scenario, 0, len(files))
	for _, f := range files {
		s, err := LoadScenario(f)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", f, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, files, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Program == "" && s.Source == "":
		return fmt.Errorf("one of program or source is required")
	case s.Program != "" && s.Source != "":
		return fmt.Errorf("program and source are mutually exclusive")
	}

	if s.Program != "" {
		if _, err := os.Stat(s.Program); os.IsNotExist(err) {
			return fmt.Errorf("program file not found: %s", s.Program)
		}
		if s.Format != "" {
			return fmt.Errorf("format applies only to inline source")
		}
	}

	if s.Format != "" {
		if _, err := frontend.ParseFormat(s.Format); err != nil {
			return err
		}
	}

	if s.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertState:
		if a.State != "quiescent" && a.State != "limited" {
			return fmt.Errorf("assertions[%d]: state must be quiescent or limited, got %q", index, a.State)
		}
	case AssertFinalStorage:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_storage", index)
		}
	case AssertFiringCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for firing_count", index)
		}
	case AssertRecipeCount:
		if a.Recipe < 0 {
			return fmt.Errorf("assertions[%d]: recipe must be non-negative for recipe_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for recipe_count", index)
		}
	case AssertFiringOrder:
		if len(a.Recipes) == 0 {
			return fmt.Errorf("assertions[%d]: recipes list is required for firing_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
