package event

import (
	"encoding/json"
	"fmt"
)

// Payload is the sealed interface over per-kind payload variants. Only the
// types in this file implement it. Payload contents are plain values; minutes
// and counters are int64 so canonical serialization never meets a float.
type Payload interface {
	isPayload()
}

// TaskStartedPayload names the task and records the user's estimate.
type TaskStartedPayload struct {
	Name             string `json:"name"`
	EstimatedMinutes int64  `json:"estimatedMinutes"`
}

func (TaskStartedPayload) isPayload() {}

// TaskCompletedPayload records the reconciled actual effort. WhatWorked and
// Impediment are retrospective notes and may be empty.
type TaskCompletedPayload struct {
	ActualMinutes int64  `json:"actualMinutes"`
	WhatWorked    string `json:"whatWorked,omitempty"`
	Impediment    string `json:"impediment,omitempty"`
}

func (TaskCompletedPayload) isPayload() {}

// TaskAbandonedPayload records why the task was given up.
type TaskAbandonedPayload struct {
	Reason string `json:"reason"`
}

func (TaskAbandonedPayload) isPayload() {}

// DayOpenedPayload has no fields; the envelope carries everything.
type DayOpenedPayload struct{}

func (DayOpenedPayload) isPayload() {}

// DaySealedPayload has no fields; the envelope carries everything.
type DaySealedPayload struct{}

func (DaySealedPayload) isPayload() {}

// SessionInterruptedPayload optionally records why the session stopped.
type SessionInterruptedPayload struct {
	Reason string `json:"reason,omitempty"`
}

func (SessionInterruptedPayload) isPayload() {}

// SessionResumedPayload records minutes committed so far when work resumes.
type SessionResumedPayload struct {
	CommittedMinutes int64 `json:"committedMinutes"`
}

func (SessionResumedPayload) isPayload() {}

// ReflectionSubmittedPayload carries free-text reflection.
type ReflectionSubmittedPayload struct {
	Text string `json:"text"`
}

func (ReflectionSubmittedPayload) isPayload() {}

// IntegrityViolationPayload records a mismatch detected by the validator.
type IntegrityViolationPayload struct {
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

func (IntegrityViolationPayload) isPayload() {}

// EvidencePayload is a bag of device-usage counters produced by the external
// forensic collector. This subsystem stores and returns it without
// interpreting the keys.
type EvidencePayload struct {
	Counters map[string]int64 `json:"counters"`
}

func (EvidencePayload) isPayload() {}

// RawPayload carries the payload of a kind this build does not know. It can
// only enter through reads of records written by a newer version; Append
// rejects unknown kinds, and the derivation engine fails on them.
type RawPayload json.RawMessage

func (RawPayload) isPayload() {}

// MarshalJSON preserves the raw bytes untouched.
func (p RawPayload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("{}"), nil
	}
	return json.RawMessage(p).MarshalJSON()
}

// decodePayload parses raw payload bytes into the typed variant for kind.
// Unknown kinds keep their raw bytes so reads stay forward-compatible.
func decodePayload(kind Kind, raw json.RawMessage) (Payload, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	switch kind {
	case KindTaskStarted:
		var p TaskStartedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	case KindTaskCompleted:
		var p TaskCompletedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	case KindTaskAbandoned:
		var p TaskAbandonedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	case KindDayOpened:
		var p DayOpenedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	case KindDaySealed:
		var p DaySealedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	case KindSessionInterrupted:
		var p SessionInterruptedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	case KindSessionResumed:
		var p SessionResumedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	case KindReflectionSubmitted:
		var p ReflectionSubmittedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	case KindIntegrityViolation:
		var p IntegrityViolationPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	case KindEvidence:
		var p EvidencePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	default:
		cp := make(RawPayload, len(raw))
		copy(cp, raw)
		return cp, nil
	}
}

// payloadMatchesKind reports whether the payload's dynamic type is the one
// the kind requires.
func payloadMatchesKind(kind Kind, p Payload) bool {
	switch kind {
	case KindTaskStarted:
		_, ok := p.(TaskStartedPayload)
		return ok
	case KindTaskCompleted:
		_, ok := p.(TaskCompletedPayload)
		return ok
	case KindTaskAbandoned:
		_, ok := p.(TaskAbandonedPayload)
		return ok
	case KindDayOpened:
		_, ok := p.(DayOpenedPayload)
		return ok
	case KindDaySealed:
		_, ok := p.(DaySealedPayload)
		return ok
	case KindSessionInterrupted:
		_, ok := p.(SessionInterruptedPayload)
		return ok
	case KindSessionResumed:
		_, ok := p.(SessionResumedPayload)
		return ok
	case KindReflectionSubmitted:
		_, ok := p.(ReflectionSubmittedPayload)
		return ok
	case KindIntegrityViolation:
		_, ok := p.(IntegrityViolationPayload)
		return ok
	case KindEvidence:
		_, ok := p.(EvidencePayload)
		return ok
	default:
		_, ok := p.(RawPayload)
		return ok
	}
}
