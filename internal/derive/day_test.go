package derive

import (
	"testing"
	"time"

	"github.com/halfday/reckon/internal/event"
	"github.com/halfday/reckon/internal/testutil"
)

func TestFoldDay_OpenCollectSeal(t *testing.T) {
	events := []event.Event{
		testutil.DayOpened("d1", testutil.BaseTime),
		testutil.TaskStarted("e1", "t1", testutil.At(time.Minute), "one", 30),
		testutil.TaskStarted("e2", "t2", testutil.At(2*time.Minute), "two", 20),
		testutil.TaskCompleted("e3", "t1", testutil.At(40*time.Minute), 35),
		testutil.DaySealed("d2", testutil.At(8*time.Hour)),
	}

	state, err := FoldDay(testutil.Day, events)
	if err != nil {
		t.Fatalf("FoldDay() failed: %v", err)
	}

	if state.Lifecycle != DayLocked {
		t.Errorf("Lifecycle = %q, want locked", state.Lifecycle)
	}
	if len(state.TaskIDs) != 2 || state.TaskIDs[0] != "t1" || state.TaskIDs[1] != "t2" {
		t.Errorf("TaskIDs = %v, want [t1 t2] in first-seen order", state.TaskIDs)
	}
	if state.OpenedAt == nil || !state.OpenedAt.Equal(testutil.BaseTime) {
		t.Errorf("OpenedAt = %v, want %v", state.OpenedAt, testutil.BaseTime)
	}
	if state.SealedAt == nil || !state.SealedAt.Equal(testutil.At(8*time.Hour)) {
		t.Errorf("SealedAt = %v, want seal timestamp", state.SealedAt)
	}
}

func TestFoldDay_UnsealedStaysOpen(t *testing.T) {
	events := []event.Event{
		testutil.DayOpened("d1", testutil.BaseTime),
		testutil.TaskStarted("e1", "t1", testutil.At(time.Minute), "one", 30),
	}

	state, err := FoldDay(testutil.Day, events)
	if err != nil {
		t.Fatalf("FoldDay() failed: %v", err)
	}
	if state.Lifecycle != DayOpen {
		t.Errorf("Lifecycle = %q, want open", state.Lifecycle)
	}
	if state.SealedAt != nil {
		t.Errorf("SealedAt = %v, want nil", state.SealedAt)
	}
}

func TestFoldDay_NoEvents(t *testing.T) {
	_, err := FoldDay(testutil.Day, nil)
	if !IsNoEvents(err) {
		t.Errorf("FoldDay(empty) error = %v, want NoEventsError", err)
	}
}

func TestFoldDay_DoubleOpenFails(t *testing.T) {
	events := []event.Event{
		testutil.DayOpened("d1", testutil.BaseTime),
		testutil.DayOpened("d2", testutil.At(time.Minute)),
	}
	if _, err := FoldDay(testutil.Day, events); !IsDerivationError(err) {
		t.Errorf("double day_opened error = %v, want DerivationError", err)
	}
}

func TestFoldDay_DoubleSealFails(t *testing.T) {
	events := []event.Event{
		testutil.DayOpened("d1", testutil.BaseTime),
		testutil.DaySealed("d2", testutil.At(time.Hour)),
		testutil.DaySealed("d3", testutil.At(2*time.Hour)),
	}
	if _, err := FoldDay(testutil.Day, events); !IsDerivationError(err) {
		t.Errorf("double day_sealed error = %v, want DerivationError", err)
	}
}

func TestFoldDay_OpenAfterSealFails(t *testing.T) {
	events := []event.Event{
		testutil.DaySealed("d1", testutil.BaseTime),
		testutil.DayOpened("d2", testutil.At(time.Minute)),
	}
	if _, err := FoldDay(testutil.Day, events); !IsDerivationError(err) {
		t.Errorf("day_opened after seal error = %v, want DerivationError", err)
	}
}

func TestFoldDay_UnknownKindFails(t *testing.T) {
	unknown := testutil.DayOpened("d2", testutil.At(time.Minute))
	unknown.Kind = event.Kind("day_reviewed")
	unknown.Payload = event.RawPayload(`{}`)

	events := []event.Event{
		testutil.DayOpened("d1", testutil.BaseTime),
		unknown,
	}
	if _, err := FoldDay(testutil.Day, events); !IsDerivationError(err) {
		t.Errorf("unknown kind error = %v, want DerivationError", err)
	}
}
