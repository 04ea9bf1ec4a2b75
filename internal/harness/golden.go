package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/halfday/reckon/internal/event"
)

// snapshot is the golden-file layout: the scenario name plus every derived
// state. Canonical serialization keeps the bytes stable across runs.
type snapshot struct {
	Scenario string         `json:"scenario"`
	Tasks    map[string]any `json:"tasks"`
	Days     map[string]any `json:"days"`
}

// RunWithGolden executes a scenario and compares the derived-state snapshot
// against testdata/golden/{scenario.Name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		t.Fatalf("scenario %s failed: %v", scenario.Name, err)
	}

	snap := snapshot{
		Scenario: result.Scenario,
		Tasks:    make(map[string]any, len(result.Tasks)),
		Days:     make(map[string]any, len(result.Days)),
	}
	for id, state := range result.Tasks {
		snap.Tasks[id] = state
	}
	for day, state := range result.Days {
		snap.Days[day] = state
	}

	data, err := event.MarshalCanonicalValue(snap)
	if err != nil {
		t.Fatalf("canonicalize snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
}
