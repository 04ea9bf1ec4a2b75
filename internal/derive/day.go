package derive

import (
	"fmt"
	"time"

	"github.com/halfday/reckon/internal/event"
)

// DayLifecycle is a day's derived lifecycle state.
type DayLifecycle string

const (
	// DayOpen accepts further events.
	DayOpen DayLifecycle = "open"

	// DayLocked is terminal, set by day_sealed. Sealing is one-way.
	DayLocked DayLifecycle = "locked"
)

// DayState is the derived state of one calendar day.
type DayState struct {
	DayKey    string       `json:"dayKey"`
	Lifecycle DayLifecycle `json:"lifecycleState"`

	// TaskIDs lists every entity referenced by the day's events, in
	// first-seen (timestamp, seq) order.
	TaskIDs []string `json:"taskIds"`

	OpenedAt *time.Time `json:"openedAt"`
	SealedAt *time.Time `json:"sealedAt"`
}

// FoldDay replays a day's ordered event sequence into a DayState. The fold
// consumes day_opened/day_sealed for lifecycle and collects task references
// from every other event; task-level sequencing is FoldTask's concern.
func FoldDay(dayKey string, events []event.Event) (DayState, error) {
	if len(events) == 0 {
		return DayState{}, &NoEventsError{Subject: dayKey}
	}

	state := DayState{
		DayKey:    dayKey,
		Lifecycle: DayOpen,
	}
	seen := make(map[string]bool)

	for i, ev := range events {
		if err := applyDayEvent(&state, seen, ev, i); err != nil {
			return DayState{}, err
		}
	}
	return state, nil
}

func applyDayEvent(s *DayState, seen map[string]bool, ev event.Event, pos int) error {
	fail := func(format string, args ...any) error {
		return &DerivationError{
			Subject:  s.DayKey,
			EventID:  ev.ID,
			Position: pos,
			Reason:   fmt.Sprintf(format, args...),
		}
	}

	if !ev.Kind.Valid() {
		return fail("unrecognized event kind %q", ev.Kind)
	}

	switch ev.Kind {
	case event.KindDayOpened:
		if s.OpenedAt != nil {
			return fail("day_opened twice")
		}
		if s.Lifecycle == DayLocked {
			return fail("day_opened after day_sealed")
		}
		ts := ev.Timestamp
		s.OpenedAt = &ts

	case event.KindDaySealed:
		if s.Lifecycle == DayLocked {
			return fail("day_sealed twice")
		}
		ts := ev.Timestamp
		s.SealedAt = &ts
		s.Lifecycle = DayLocked

	default:
		// Task-level and annotation kinds contribute their entity
		// reference in first-seen order.
		if id := ev.Entity(); id != "" && !seen[id] {
			seen[id] = true
			s.TaskIDs = append(s.TaskIDs, id)
		}
	}

	return nil
}
