// Package testutil provides deterministic fixtures shared by tests:
// canned event builders and a fixed base time. Nothing here is imported by
// production code.
package testutil

import (
	"time"

	"github.com/halfday/reckon/internal/event"
)

// BaseTime is the fixed instant test scenarios build timelines from.
var BaseTime = time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

// Day is the day key of BaseTime.
const Day = "2026-08-30"

// TaskStarted builds a task_started event.
func TaskStarted(id, entityID string, ts time.Time, name string, estimated int64) event.Event {
	return event.Event{
		ID:        id,
		Timestamp: ts,
		DayKey:    event.FormatDayKey(ts),
		EntityID:  event.EntityRef(entityID),
		Kind:      event.KindTaskStarted,
		Payload: event.TaskStartedPayload{
			Name:             name,
			EstimatedMinutes: estimated,
		},
	}
}

// TaskCompleted builds a task_completed event.
func TaskCompleted(id, entityID string, ts time.Time, actual int64) event.Event {
	return event.Event{
		ID:        id,
		Timestamp: ts,
		DayKey:    event.FormatDayKey(ts),
		EntityID:  event.EntityRef(entityID),
		Kind:      event.KindTaskCompleted,
		Payload:   event.TaskCompletedPayload{ActualMinutes: actual},
	}
}

// TaskAbandoned builds a task_abandoned event.
func TaskAbandoned(id, entityID string, ts time.Time, reason string) event.Event {
	return event.Event{
		ID:        id,
		Timestamp: ts,
		DayKey:    event.FormatDayKey(ts),
		EntityID:  event.EntityRef(entityID),
		Kind:      event.KindTaskAbandoned,
		Payload:   event.TaskAbandonedPayload{Reason: reason},
	}
}

// SessionInterrupted builds a session_interrupted event.
func SessionInterrupted(id, entityID string, ts time.Time, reason string) event.Event {
	return event.Event{
		ID:        id,
		Timestamp: ts,
		DayKey:    event.FormatDayKey(ts),
		EntityID:  event.EntityRef(entityID),
		Kind:      event.KindSessionInterrupted,
		Payload:   event.SessionInterruptedPayload{Reason: reason},
	}
}

// SessionResumed builds a session_resumed event.
func SessionResumed(id, entityID string, ts time.Time, committed int64) event.Event {
	return event.Event{
		ID:        id,
		Timestamp: ts,
		DayKey:    event.FormatDayKey(ts),
		EntityID:  event.EntityRef(entityID),
		Kind:      event.KindSessionResumed,
		Payload:   event.SessionResumedPayload{CommittedMinutes: committed},
	}
}

// DayOpened builds a day_opened event.
func DayOpened(id string, ts time.Time) event.Event {
	return event.Event{
		ID:        id,
		Timestamp: ts,
		DayKey:    event.FormatDayKey(ts),
		Kind:      event.KindDayOpened,
		Payload:   event.DayOpenedPayload{},
	}
}

// DaySealed builds a day_sealed event.
func DaySealed(id string, ts time.Time) event.Event {
	return event.Event{
		ID:        id,
		Timestamp: ts,
		DayKey:    event.FormatDayKey(ts),
		Kind:      event.KindDaySealed,
		Payload:   event.DaySealedPayload{},
	}
}

// Reflection builds a reflection_submitted event without an entity ref.
func Reflection(id string, ts time.Time, text string) event.Event {
	return event.Event{
		ID:        id,
		Timestamp: ts,
		DayKey:    event.FormatDayKey(ts),
		Kind:      event.KindReflectionSubmitted,
		Payload:   event.ReflectionSubmittedPayload{Text: text},
	}
}

// Evidence builds an evidence event carrying opaque counters.
func Evidence(id string, ts time.Time, counters map[string]int64) event.Event {
	return event.Event{
		ID:        id,
		Timestamp: ts,
		DayKey:    event.FormatDayKey(ts),
		Kind:      event.KindEvidence,
		Payload:   event.EvidencePayload{Counters: counters},
	}
}

// At returns BaseTime shifted by d.
func At(d time.Duration) time.Time {
	return BaseTime.Add(d)
}
