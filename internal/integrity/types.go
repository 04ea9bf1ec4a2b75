package integrity

import (
	"context"
	"time"

	"github.com/halfday/reckon/internal/derive"
)

// CachedTaskSnapshot is the external repository's stored copy of a task's
// derived state. It exists purely for read performance outside this core;
// this package only ever compares against it.
type CachedTaskSnapshot struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	EstimatedMinutes  int64            `json:"estimatedMinutes"`
	ActualMinutes     int64            `json:"actualMinutes"`
	Lifecycle         derive.Lifecycle `json:"lifecycleState"`
	StartedAt         *time.Time       `json:"startedAt"`
	CompletedAt       *time.Time       `json:"completedAt"`
	SessionCount      int              `json:"sessionCount"`
	InterruptionCount int              `json:"interruptionCount"`
	WhatWorked        string           `json:"whatWorked"`
	Impediment        string           `json:"impediment"`
}

// CachedDaySnapshot is the cached copy of a day's derived state.
type CachedDaySnapshot struct {
	DayKey    string              `json:"dayKey"`
	Lifecycle derive.DayLifecycle `json:"lifecycleState"`
	TaskIDs   []string            `json:"taskIds"`
	OpenedAt  *time.Time          `json:"openedAt"`
	SealedAt  *time.Time          `json:"sealedAt"`
}

// SnapshotRepository supplies cached snapshots for comparison. A nil
// snapshot with a nil error means the cache has no entry, which the scan
// reports as its own violation.
type SnapshotRepository interface {
	TaskSnapshot(ctx context.Context, entityID string) (*CachedTaskSnapshot, error)
	DaySnapshot(ctx context.Context, dayKey string) (*CachedDaySnapshot, error)
}

// Violation is one detected mismatch between derived and cached state.
// Ephemeral: produced by a validation run, not stored as truth. Callers may
// append it back into the log as an integrity_violation event for audit.
type Violation struct {
	SubjectID string `json:"subjectId"`
	Field     string `json:"field"`
	Expected  string `json:"expected"`
	Actual    string `json:"actual"`
	Issue     string `json:"issue"`
}

// ValidationResult is the outcome of validating one subject.
type ValidationResult struct {
	SubjectID  string      `json:"subjectId"`
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`
}

// SystemIntegrityReport aggregates a full-system scan.
type SystemIntegrityReport struct {
	Healthy      bool        `json:"healthy"`
	Partial      bool        `json:"partial"`
	TotalChecked int         `json:"totalChecked"`
	Passed       int         `json:"passed"`
	Failed       int         `json:"failed"`
	Violations   []Violation `json:"violations,omitempty"`
}
