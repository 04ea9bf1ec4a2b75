package derive

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/halfday/reckon/internal/event"
	"github.com/halfday/reckon/internal/testutil"
)

func TestFoldTask_StartThenComplete(t *testing.T) {
	events := []event.Event{
		testutil.TaskStarted("e1", "t1", testutil.BaseTime, "write report", 60),
		testutil.TaskCompleted("e2", "t1", testutil.At(45*time.Minute), 45),
	}

	state, err := FoldTask("t1", events)
	if err != nil {
		t.Fatalf("FoldTask() failed: %v", err)
	}

	if state.Lifecycle != LifecycleCompleted {
		t.Errorf("Lifecycle = %q, want completed", state.Lifecycle)
	}
	if state.ActualMinutes != 45 {
		t.Errorf("ActualMinutes = %d, want 45", state.ActualMinutes)
	}
	if state.SessionCount != 1 {
		t.Errorf("SessionCount = %d, want 1", state.SessionCount)
	}
	if state.Name != "write report" || state.EstimatedMinutes != 60 {
		t.Errorf("Name/EstimatedMinutes = %q/%d, want from task_started payload", state.Name, state.EstimatedMinutes)
	}
	if state.StartedAt == nil || !state.StartedAt.Equal(testutil.BaseTime) {
		t.Errorf("StartedAt = %v, want %v", state.StartedAt, testutil.BaseTime)
	}
	if state.CompletedAt == nil || !state.CompletedAt.Equal(testutil.At(45*time.Minute)) {
		t.Errorf("CompletedAt = %v, want completion timestamp", state.CompletedAt)
	}
}

func TestFoldTask_InterruptionAndResume(t *testing.T) {
	events := []event.Event{
		testutil.TaskStarted("e1", "t1", testutil.BaseTime, "deep work", 90),
		testutil.SessionInterrupted("e2", "t1", testutil.At(20*time.Minute), "phone call"),
		testutil.SessionResumed("e3", "t1", testutil.At(30*time.Minute), 20),
		testutil.TaskCompleted("e4", "t1", testutil.At(80*time.Minute), 70),
	}

	state, err := FoldTask("t1", events)
	if err != nil {
		t.Fatalf("FoldTask() failed: %v", err)
	}

	if state.SessionCount != 2 {
		t.Errorf("SessionCount = %d, want 2 (start + resume)", state.SessionCount)
	}
	if state.InterruptionCount != 1 {
		t.Errorf("InterruptionCount = %d, want 1", state.InterruptionCount)
	}
	if state.Lifecycle != LifecycleCompleted {
		t.Errorf("Lifecycle = %q, want completed", state.Lifecycle)
	}
}

func TestFoldTask_Abandonment(t *testing.T) {
	events := []event.Event{
		testutil.TaskStarted("e1", "t1", testutil.BaseTime, "doomed", 30),
		testutil.TaskAbandoned("e2", "t1", testutil.At(10*time.Minute), "scope_creep"),
	}

	state, err := FoldTask("t1", events)
	if err != nil {
		t.Fatalf("FoldTask() failed: %v", err)
	}
	if state.Lifecycle != LifecycleAbandoned {
		t.Errorf("Lifecycle = %q, want abandoned", state.Lifecycle)
	}
	if state.Impediment != "scope_creep" {
		t.Errorf("Impediment = %q, want the abandon reason", state.Impediment)
	}
}

func TestFoldTask_RetrospectiveNotes(t *testing.T) {
	done := testutil.TaskCompleted("e2", "t1", testutil.At(time.Hour), 50)
	done.Payload = event.TaskCompletedPayload{
		ActualMinutes: 50,
		WhatWorked:    "morning slot",
		Impediment:    "slow build",
	}
	events := []event.Event{
		testutil.TaskStarted("e1", "t1", testutil.BaseTime, "ship fix", 40),
		done,
	}

	state, err := FoldTask("t1", events)
	if err != nil {
		t.Fatalf("FoldTask() failed: %v", err)
	}
	if state.WhatWorked != "morning slot" || state.Impediment != "slow build" {
		t.Errorf("notes = %q/%q, want payload values", state.WhatWorked, state.Impediment)
	}
}

func TestFoldTask_NoEvents(t *testing.T) {
	_, err := FoldTask("t1", nil)
	if !IsNoEvents(err) {
		t.Errorf("FoldTask(empty) error = %v, want NoEventsError", err)
	}
}

func TestFoldTask_CompletedBeforeStartedFails(t *testing.T) {
	events := []event.Event{
		testutil.TaskCompleted("e1", "t1", testutil.BaseTime, 45),
	}

	_, err := FoldTask("t1", events)
	var de *DerivationError
	if !errors.As(err, &de) {
		t.Fatalf("error = %v, want DerivationError", err)
	}
	if de.EventID != "e1" || de.Position != 0 {
		t.Errorf("DerivationError names %q at %d, want e1 at 0", de.EventID, de.Position)
	}
}

func TestFoldTask_EventsAfterTerminalFail(t *testing.T) {
	tests := []struct {
		name string
		tail event.Event
	}{
		{"start after completion", testutil.TaskStarted("e3", "t1", testutil.At(2*time.Hour), "again", 10)},
		{"second completion", testutil.TaskCompleted("e3", "t1", testutil.At(2*time.Hour), 5)},
		{"abandon after completion", testutil.TaskAbandoned("e3", "t1", testutil.At(2*time.Hour), "late")},
		{"interrupt after completion", testutil.SessionInterrupted("e3", "t1", testutil.At(2*time.Hour), "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := []event.Event{
				testutil.TaskStarted("e1", "t1", testutil.BaseTime, "done", 30),
				testutil.TaskCompleted("e2", "t1", testutil.At(time.Hour), 30),
				tt.tail,
			}
			_, err := FoldTask("t1", events)
			if !IsDerivationError(err) {
				t.Errorf("error = %v, want DerivationError", err)
			}
		})
	}
}

func TestFoldTask_UnknownKindFails(t *testing.T) {
	unknown := testutil.TaskStarted("e2", "t1", testutil.At(time.Minute), "x", 10)
	unknown.Kind = event.Kind("task_archived")
	unknown.Payload = event.RawPayload(`{}`)

	events := []event.Event{
		testutil.TaskStarted("e1", "t1", testutil.BaseTime, "x", 10),
		unknown,
	}

	_, err := FoldTask("t1", events)
	var de *DerivationError
	if !errors.As(err, &de) {
		t.Fatalf("error = %v, want DerivationError", err)
	}
	if de.Position != 1 {
		t.Errorf("Position = %d, want 1", de.Position)
	}
}

func TestFoldTask_DayLevelKindInTaskStreamFails(t *testing.T) {
	stray := testutil.DayOpened("e2", testutil.At(time.Minute))
	events := []event.Event{
		testutil.TaskStarted("e1", "t1", testutil.BaseTime, "x", 10),
		stray,
	}

	_, err := FoldTask("t1", events)
	if !IsDerivationError(err) {
		t.Errorf("error = %v, want DerivationError", err)
	}
}

func TestFoldTask_AnnotationKindsAreLifecycleNeutral(t *testing.T) {
	events := []event.Event{
		testutil.TaskStarted("e1", "t1", testutil.BaseTime, "x", 10),
		testutil.Evidence("e2", testutil.At(time.Minute), map[string]int64{"unlocks": 4}),
		testutil.Reflection("e3", testutil.At(2*time.Minute), "going fine"),
		testutil.TaskCompleted("e4", "t1", testutil.At(time.Hour), 55),
	}
	// Annotation events in a task stream carry the entity ref in practice;
	// the builders here leave it nil, which FoldTask tolerates the same way.
	for i := 1; i <= 2; i++ {
		events[i].EntityID = event.EntityRef("t1")
	}

	state, err := FoldTask("t1", events)
	if err != nil {
		t.Fatalf("FoldTask() failed: %v", err)
	}
	if state.Lifecycle != LifecycleCompleted || state.SessionCount != 1 {
		t.Errorf("annotations affected lifecycle: %+v", state)
	}
}

func TestFoldTask_Deterministic(t *testing.T) {
	events := []event.Event{
		testutil.TaskStarted("e1", "t1", testutil.BaseTime, "repeat", 25),
		testutil.SessionInterrupted("e2", "t1", testutil.At(5*time.Minute), "door"),
		testutil.SessionResumed("e3", "t1", testutil.At(6*time.Minute), 5),
		testutil.TaskCompleted("e4", "t1", testutil.At(30*time.Minute), 24),
	}

	first, err := FoldTask("t1", events)
	if err != nil {
		t.Fatalf("first FoldTask() failed: %v", err)
	}
	second, err := FoldTask("t1", events)
	if err != nil {
		t.Fatalf("second FoldTask() failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("replay not deterministic:\nfirst  %+v\nsecond %+v", first, second)
	}
}
