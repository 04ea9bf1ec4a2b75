package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// dayKeyLayout is the calendar-day format used for DayKey.
const dayKeyLayout = "2006-01-02"

// Event is the unit of record. Once appended it is sealed and never mutated
// or removed through this subsystem; history is corrected by appending a
// compensating event.
type Event struct {
	// ID is globally unique. Callers may supply one; the log assigns a
	// UUIDv7 when it is empty.
	ID string

	// Timestamp is the logical occurrence time in UTC, not the write time.
	Timestamp time.Time

	// DayKey is the calendar day (YYYY-MM-DD) the event belongs to.
	DayKey string

	// EntityID references the task the event concerns. Nil for day-level
	// events.
	EntityID *string

	// Kind selects the payload variant.
	Kind Kind

	// Payload holds the kind-specific fields.
	Payload Payload

	// Sealed is true once the event has been appended.
	Sealed bool
}

// wireEvent is the fixed record layout. Field names are a compatibility
// contract shared with every other reader of the store.
type wireEvent struct {
	ID        string          `json:"id"`
	Timestamp string          `json:"timestamp"`
	DayKey    string          `json:"dayKey"`
	EntityID  *string         `json:"entityId"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Sealed    bool            `json:"sealed"`
}

// MarshalJSON renders the wire form. Timestamps serialize as RFC 3339 UTC.
func (e Event) MarshalJSON() ([]byte, error) {
	payload := e.Payload
	if payload == nil {
		return nil, fmt.Errorf("marshal event %s: nil payload", e.ID)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event %s payload: %w", e.ID, err)
	}

	return json.Marshal(wireEvent{
		ID:        e.ID,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		DayKey:    e.DayKey,
		EntityID:  e.EntityID,
		Kind:      string(e.Kind),
		Payload:   raw,
		Sealed:    e.Sealed,
	})
}

// UnmarshalJSON parses the wire form, decoding the payload by kind. Unknown
// kinds keep their raw payload bytes (read-side forward compatibility).
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, w.Timestamp)
	if err != nil {
		return fmt.Errorf("unmarshal event %s: bad timestamp %q: %w", w.ID, w.Timestamp, err)
	}

	payload, err := decodePayload(Kind(w.Kind), w.Payload)
	if err != nil {
		return fmt.Errorf("unmarshal event %s: %w", w.ID, err)
	}

	e.ID = w.ID
	e.Timestamp = ts.UTC()
	e.DayKey = w.DayKey
	e.EntityID = w.EntityID
	e.Kind = Kind(w.Kind)
	e.Payload = payload
	e.Sealed = w.Sealed
	return nil
}

// Validate checks the envelope and payload against the closed enumeration.
// It is the gate Append applies; reads do not re-validate so records written
// by newer versions still load.
func (e Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("event has empty id")
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("event %s: zero timestamp", e.ID)
	}
	if !ValidDayKey(e.DayKey) {
		return fmt.Errorf("event %s: bad dayKey %q", e.ID, e.DayKey)
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("event %s: unknown kind %q", e.ID, e.Kind)
	}
	if e.Payload == nil {
		return fmt.Errorf("event %s: nil payload", e.ID)
	}
	if !payloadMatchesKind(e.Kind, e.Payload) {
		return fmt.Errorf("event %s: payload type %T does not match kind %q", e.ID, e.Payload, e.Kind)
	}

	switch entityRules[e.Kind] {
	case entityRequired:
		if e.EntityID == nil || *e.EntityID == "" {
			return fmt.Errorf("event %s: kind %q requires an entityId", e.ID, e.Kind)
		}
	case entityForbidden:
		if e.EntityID != nil {
			return fmt.Errorf("event %s: kind %q is day-level and must not carry an entityId", e.ID, e.Kind)
		}
	}

	return e.validatePayload()
}

// validatePayload applies per-kind field constraints.
func (e Event) validatePayload() error {
	switch p := e.Payload.(type) {
	case TaskStartedPayload:
		if p.Name == "" {
			return fmt.Errorf("event %s: task_started requires a name", e.ID)
		}
		if p.EstimatedMinutes < 0 {
			return fmt.Errorf("event %s: negative estimatedMinutes %d", e.ID, p.EstimatedMinutes)
		}
	case TaskCompletedPayload:
		if p.ActualMinutes < 0 {
			return fmt.Errorf("event %s: negative actualMinutes %d", e.ID, p.ActualMinutes)
		}
	case TaskAbandonedPayload:
		if p.Reason == "" {
			return fmt.Errorf("event %s: task_abandoned requires a reason", e.ID)
		}
	case SessionResumedPayload:
		if p.CommittedMinutes < 0 {
			return fmt.Errorf("event %s: negative committedMinutes %d", e.ID, p.CommittedMinutes)
		}
	case ReflectionSubmittedPayload:
		if p.Text == "" {
			return fmt.Errorf("event %s: reflection_submitted requires text", e.ID)
		}
	case IntegrityViolationPayload:
		if p.Description == "" {
			return fmt.Errorf("event %s: integrity_violation requires a description", e.ID)
		}
		if p.Severity == "" {
			return fmt.Errorf("event %s: integrity_violation requires a severity", e.ID)
		}
	case EvidencePayload:
		for k, v := range p.Counters {
			if v < 0 {
				return fmt.Errorf("event %s: negative evidence counter %q = %d", e.ID, k, v)
			}
		}
	}
	return nil
}

// Entity returns the entity reference, or "" when the event is day-level.
func (e Event) Entity() string {
	if e.EntityID == nil {
		return ""
	}
	return *e.EntityID
}

// EntityRef builds a nullable entity reference for envelope construction.
func EntityRef(id string) *string {
	return &id
}

// FormatDayKey renders t's UTC calendar day as a DayKey.
func FormatDayKey(t time.Time) string {
	return t.UTC().Format(dayKeyLayout)
}

// ParseDayKey parses a DayKey into the UTC midnight of that day.
func ParseDayKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(dayKeyLayout, key, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse dayKey %q: %w", key, err)
	}
	return t, nil
}

// ValidDayKey reports whether key is a well-formed YYYY-MM-DD calendar day.
func ValidDayKey(key string) bool {
	if len(key) != len(dayKeyLayout) {
		return false
	}
	_, err := ParseDayKey(key)
	return err == nil
}
