package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeScenarioFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write scenario file: %v", err)
	}
	return path
}

const validScenarioYAML = `name: in-memory
description: a minimal valid scenario
events:
  - id: e1
    timestamp: "2026-08-30T09:00:00Z"
    entity: t1
    kind: task_started
    payload:
      name: Write report
      estimatedMinutes: 30
checks:
  - type: task_state
    subject: t1
    expect:
      lifecycleState: active
`

func TestLoadScenario(t *testing.T) {
	scenario, err := LoadScenario(writeScenarioFile(t, validScenarioYAML))
	if err != nil {
		t.Fatalf("LoadScenario() failed: %v", err)
	}
	if scenario.Name != "in-memory" {
		t.Errorf("Name = %q, want in-memory", scenario.Name)
	}
	if len(scenario.Events) != 1 || scenario.Events[0].Kind != "task_started" {
		t.Errorf("events not parsed: %+v", scenario.Events)
	}
	if got := scenario.Events[0].Payload["estimatedMinutes"]; got != 30 {
		t.Errorf("payload estimatedMinutes = %v (%T), want 30", got, got)
	}
	if len(scenario.Checks) != 1 || scenario.Checks[0].Type != CheckTaskState {
		t.Errorf("checks not parsed: %+v", scenario.Checks)
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	if _, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("LoadScenario() succeeded on a missing file")
	}
}

func TestLoadScenario_RejectsUnknownFields(t *testing.T) {
	body := strings.Replace(validScenarioYAML, "description:", "descriptoin:", 1)
	if _, err := LoadScenario(writeScenarioFile(t, body)); err == nil {
		t.Fatal("LoadScenario() accepted a misspelled field")
	}
}

func TestLoadScenario_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "missing name",
			mutate:  func(s string) string { return strings.Replace(s, "name: in-memory\n", "", 1) },
			wantErr: "name is required",
		},
		{
			name:    "bad timestamp",
			mutate:  func(s string) string { return strings.Replace(s, "2026-08-30T09:00:00Z", "yesterday", 1) },
			wantErr: "bad timestamp",
		},
		{
			name:    "missing event id",
			mutate:  func(s string) string { return strings.Replace(s, "id: e1", `id: ""`, 1) },
			wantErr: "id is required",
		},
		{
			name:    "unknown check type",
			mutate:  func(s string) string { return strings.Replace(s, "type: task_state", "type: task_stats", 1) },
			wantErr: "unknown check type",
		},
		{
			name:    "missing check subject",
			mutate:  func(s string) string { return strings.Replace(s, "subject: t1\n", "", 1) },
			wantErr: "subject is required",
		},
		{
			name: "validate check without snapshot",
			mutate: func(s string) string {
				return strings.Replace(s, "type: task_state", "type: validate_task", 1)
			},
			wantErr: "snapshot is required",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenarioFile(t, tc.mutate(validScenarioYAML)))
			if err == nil {
				t.Fatalf("LoadScenario() succeeded, want error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not contain %q", err, tc.wantErr)
			}
		})
	}
}
