package harness

import (
	"context"
	"path/filepath"
	"testing"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	if err != nil {
		t.Fatalf("LoadScenario(%s) failed: %v", name, err)
	}
	return scenario
}

// Every scenario file runs end to end and matches its golden snapshot.
func TestScenarios(t *testing.T) {
	names := []string{
		"scenario-a-completion",
		"scenario-b-interruption",
		"scenario-c-sealed-day",
		"scenario-d-cache-drift",
		"scenario-e-abandonment",
		"scenario-f-write-once",
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			RunWithGolden(t, loadTestScenario(t, name))
		})
	}
}

func TestRun_DerivesEverySubject(t *testing.T) {
	scenario := loadTestScenario(t, "scenario-e-abandonment")

	result, err := Run(context.Background(), scenario)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if len(result.Tasks) != 10 {
		t.Errorf("derived %d tasks, want 10", len(result.Tasks))
	}
	if len(result.Days) != 1 {
		t.Errorf("derived %d days, want 1", len(result.Days))
	}
}

func TestRun_FailsOnUnexpectedRejection(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad-sequence",
		Description: "completion without a start must fail the append step",
		Events: []EventStep{
			{
				ID:        "e1",
				Timestamp: "2026-08-30T09:00:00Z",
				Entity:    "t1",
				Kind:      "task_completed",
				Payload:   map[string]any{"actualMinutes": -5},
			},
		},
		Checks: []Check{
			{Type: CheckTaskState, Subject: "t1", Expect: map[string]any{"id": "t1"}},
		},
	}

	if _, err := Run(context.Background(), scenario); err == nil {
		t.Fatal("Run() succeeded, want append rejection to surface")
	}
}

func TestRun_FailsOnWrongExpectation(t *testing.T) {
	scenario := loadTestScenario(t, "scenario-a-completion")
	scenario.Checks = []Check{
		{Type: CheckTaskState, Subject: "t1", Expect: map[string]any{"actualMinutes": 999}},
	}

	if _, err := Run(context.Background(), scenario); err == nil {
		t.Fatal("Run() succeeded, want subset mismatch error")
	}
}

func TestMatchSubset(t *testing.T) {
	actual := struct {
		Name  string   `json:"name"`
		Count int      `json:"count"`
		Tags  []string `json:"tags"`
	}{Name: "x", Count: 3, Tags: []string{"a", "b"}}

	if err := matchSubset(map[string]any{"count": 3, "tags": []any{"a", "b"}}, actual); err != nil {
		t.Errorf("matchSubset() failed on matching subset: %v", err)
	}
	if err := matchSubset(map[string]any{"count": 4}, actual); err == nil {
		t.Error("matchSubset() passed on mismatched value")
	}
	if err := matchSubset(map[string]any{"missing": 1}, actual); err == nil {
		t.Error("matchSubset() passed on missing field")
	}
}
