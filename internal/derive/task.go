package derive

import (
	"fmt"
	"time"

	"github.com/halfday/reckon/internal/event"
)

// Lifecycle is a task's derived lifecycle state.
type Lifecycle string

const (
	// LifecyclePlanned is the implicit initial state before any session.
	LifecyclePlanned Lifecycle = "planned"

	// LifecycleActive means a session has started and no terminal event
	// has been replayed yet.
	LifecycleActive Lifecycle = "active"

	// LifecycleCompleted is terminal, set by task_completed.
	LifecycleCompleted Lifecycle = "completed"

	// LifecycleAbandoned is terminal, set by task_abandoned.
	LifecycleAbandoned Lifecycle = "abandoned"
)

// TaskState is the derived state of one task. It is recomputed on demand
// and never persisted as a source of truth; any stored copy is a cache the
// integrity validator checks against this output.
type TaskState struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	EstimatedMinutes  int64      `json:"estimatedMinutes"`
	ActualMinutes     int64      `json:"actualMinutes"`
	Lifecycle         Lifecycle  `json:"lifecycleState"`
	StartedAt         *time.Time `json:"startedAt"`
	CompletedAt       *time.Time `json:"completedAt"`
	SessionCount      int        `json:"sessionCount"`
	InterruptionCount int        `json:"interruptionCount"`
	WhatWorked        string     `json:"whatWorked"`
	Impediment        string     `json:"impediment"`
}

// FoldTask replays an ordered event sequence into a TaskState. The caller
// supplies events already in (timestamp, seq) order; the fold applies them
// left to right.
func FoldTask(entityID string, events []event.Event) (TaskState, error) {
	if len(events) == 0 {
		return TaskState{}, &NoEventsError{Subject: entityID}
	}

	state := TaskState{
		ID:        entityID,
		Lifecycle: LifecyclePlanned,
	}

	for i, ev := range events {
		if err := applyTaskEvent(&state, ev, i); err != nil {
			return TaskState{}, err
		}
	}
	return state, nil
}

// applyTaskEvent is the transition table: one arm per member of the closed
// kind enumeration, a failing default for everything else.
func applyTaskEvent(s *TaskState, ev event.Event, pos int) error {
	fail := func(format string, args ...any) error {
		return &DerivationError{
			Subject:  s.ID,
			EventID:  ev.ID,
			Position: pos,
			Reason:   fmt.Sprintf(format, args...),
		}
	}

	switch ev.Kind {
	case event.KindTaskStarted:
		if terminal(s.Lifecycle) {
			return fail("task_started after terminal state %s", s.Lifecycle)
		}
		p, ok := ev.Payload.(event.TaskStartedPayload)
		if !ok {
			return fail("payload type %T does not match task_started", ev.Payload)
		}
		if s.Name == "" {
			s.Name = p.Name
		}
		if s.EstimatedMinutes == 0 {
			s.EstimatedMinutes = p.EstimatedMinutes
		}
		if s.StartedAt == nil {
			ts := ev.Timestamp
			s.StartedAt = &ts
		}
		s.SessionCount++
		s.Lifecycle = LifecycleActive

	case event.KindTaskCompleted:
		if s.Lifecycle != LifecycleActive {
			return fail("task_completed while %s: completion requires an active session", s.Lifecycle)
		}
		p, ok := ev.Payload.(event.TaskCompletedPayload)
		if !ok {
			return fail("payload type %T does not match task_completed", ev.Payload)
		}
		ts := ev.Timestamp
		s.ActualMinutes = p.ActualMinutes
		s.CompletedAt = &ts
		s.WhatWorked = p.WhatWorked
		s.Impediment = p.Impediment
		s.Lifecycle = LifecycleCompleted

	case event.KindTaskAbandoned:
		if terminal(s.Lifecycle) {
			return fail("task_abandoned after terminal state %s", s.Lifecycle)
		}
		p, ok := ev.Payload.(event.TaskAbandonedPayload)
		if !ok {
			return fail("payload type %T does not match task_abandoned", ev.Payload)
		}
		s.Impediment = p.Reason
		s.Lifecycle = LifecycleAbandoned

	case event.KindSessionInterrupted:
		if s.Lifecycle != LifecycleActive {
			return fail("session_interrupted while %s: no active session", s.Lifecycle)
		}
		s.InterruptionCount++

	case event.KindSessionResumed:
		if s.Lifecycle != LifecycleActive {
			return fail("session_resumed while %s: no active session", s.Lifecycle)
		}
		s.SessionCount++

	case event.KindReflectionSubmitted, event.KindIntegrityViolation, event.KindEvidence:
		// Annotation kinds: present in the stream, no lifecycle effect.

	case event.KindDayOpened, event.KindDaySealed:
		return fail("day-level kind %s in a task stream", ev.Kind)

	default:
		// Unknown kinds must not vanish from computed state.
		return fail("unrecognized event kind %q", ev.Kind)
	}

	return nil
}

// terminal reports whether a lifecycle state accepts no further transitions.
func terminal(l Lifecycle) bool {
	return l == LifecycleCompleted || l == LifecycleAbandoned
}
