package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines one end-to-end conformance case.
type Scenario struct {
	// Name uniquely identifies this scenario; it names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Events is the fixed sequence appended to a fresh log, in order.
	Events []EventStep `yaml:"events"`

	// Checks validate derived state, analytics, and integrity after all
	// events are in.
	Checks []Check `yaml:"checks"`
}

// EventStep is one event to append. IDs are explicit so scenarios are
// fully deterministic.
type EventStep struct {
	ID        string         `yaml:"id"`
	Timestamp string         `yaml:"timestamp"` // RFC 3339
	Entity    string         `yaml:"entity,omitempty"`
	Kind      string         `yaml:"kind"`
	Payload   map[string]any `yaml:"payload,omitempty"`

	// ExpectError marks an append that must be rejected; the value is a
	// substring the error message must contain. The log must be left
	// untouched by the failed append.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Check validates one aspect of the system after replay.
type Check struct {
	// Type selects the check:
	//   - "task_state":    derived task state, subset match
	//   - "day_state":     derived day state, subset match
	//   - "task_analysis": analytics for one task, subset match
	//   - "time_analysis": committed-time analytics, subset match
	//   - "abandonment":   abandonment pattern over all days, subset match
	//   - "validate_task": integrity validation of one task against the
	//     inline Snapshot
	//   - "validate_day": integrity validation of one day against the
	//     inline Snapshot
	Type string `yaml:"type"`

	// Subject is the entity id or day key the check targets. Unused by
	// "abandonment".
	Subject string `yaml:"subject,omitempty"`

	// Expect holds expected field values, matched as a subset against
	// the JSON form of the actual result.
	Expect map[string]any `yaml:"expect"`

	// Snapshot is the cached state a "validate_task" check compares
	// against, in the snapshot export JSON field layout.
	Snapshot map[string]any `yaml:"snapshot,omitempty"`
}

// Check type constants.
const (
	CheckTaskState    = "task_state"
	CheckDayState     = "day_state"
	CheckTaskAnalysis = "task_analysis"
	CheckTimeAnalysis = "time_analysis"
	CheckAbandonment  = "abandonment"
	CheckValidateTask = "validate_task"
	CheckValidateDay  = "validate_day"
)

var checkTypes = map[string]bool{
	CheckTaskState:    true,
	CheckDayState:     true,
	CheckTaskAnalysis: true,
	CheckTimeAnalysis: true,
	CheckAbandonment:  true,
	CheckValidateTask: true,
	CheckValidateDay:  true,
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently skipping a check.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Events) == 0 {
		return fmt.Errorf("events list is required and must be non-empty")
	}
	if len(s.Checks) == 0 {
		return fmt.Errorf("checks list is required and must be non-empty")
	}

	for i, step := range s.Events {
		if step.ID == "" {
			return fmt.Errorf("events[%d]: id is required", i)
		}
		if step.Kind == "" {
			return fmt.Errorf("events[%d]: kind is required", i)
		}
		if _, err := time.Parse(time.RFC3339, step.Timestamp); err != nil {
			return fmt.Errorf("events[%d]: bad timestamp %q: %w", i, step.Timestamp, err)
		}
	}

	for i, check := range s.Checks {
		if !checkTypes[check.Type] {
			return fmt.Errorf("checks[%d]: unknown check type %q", i, check.Type)
		}
		if len(check.Expect) == 0 {
			return fmt.Errorf("checks[%d]: expect is required", i)
		}
		if check.Type != CheckAbandonment && check.Subject == "" {
			return fmt.Errorf("checks[%d]: subject is required for %s", i, check.Type)
		}
		if (check.Type == CheckValidateTask || check.Type == CheckValidateDay) && len(check.Snapshot) == 0 {
			return fmt.Errorf("checks[%d]: snapshot is required for %s", i, check.Type)
		}
	}
	return nil
}
