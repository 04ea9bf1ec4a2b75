package integrity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/halfday/reckon/internal/derive"
	"github.com/halfday/reckon/internal/eventlog"
	"github.com/halfday/reckon/pkg/metrics"
)

// Validator compares the derivation engine's output against cached
// snapshots.
type Validator struct {
	log         *eventlog.Log
	engine      *derive.Engine
	snapshots   SnapshotRepository
	parallelism int
}

// Option configures a Validator.
type Option func(*Validator)

// WithParallelism bounds how many subjects a system scan validates
// concurrently. Values below 1 are ignored.
func WithParallelism(n int) Option {
	return func(v *Validator) {
		if n >= 1 {
			v.parallelism = n
		}
	}
}

// New creates a validator. The snapshot repository is the comparison
// target for system scans; single-subject validation takes the snapshot as
// an argument and works without one.
func New(log *eventlog.Log, engine *derive.Engine, snapshots SnapshotRepository, opts ...Option) *Validator {
	v := &Validator{log: log, engine: engine, snapshots: snapshots, parallelism: 1}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateEntity derives a task's state and compares each tracked field
// against the cached snapshot. A derivation failure propagates as an error;
// mismatches are data, not errors.
func (v *Validator) ValidateEntity(ctx context.Context, entityID string, cached *CachedTaskSnapshot) (ValidationResult, error) {
	derived, err := v.engine.DeriveEntity(ctx, entityID)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("validate entity %s: %w", entityID, err)
	}

	result := ValidationResult{SubjectID: entityID}
	if cached == nil {
		result.Violations = append(result.Violations, Violation{
			SubjectID: entityID,
			Field:     "snapshot",
			Expected:  "cached snapshot present",
			Actual:    "none",
			Issue:     "log knows this entity but the cache has no snapshot",
		})
		result.Valid = false
		return result, nil
	}

	result.Violations = append(result.Violations, compareTask(entityID, derived, *cached)...)
	result.Valid = len(result.Violations) == 0
	return result, nil
}

// ValidateDay derives a day's state and compares it against the cached
// snapshot.
func (v *Validator) ValidateDay(ctx context.Context, dayKey string, cached *CachedDaySnapshot) (ValidationResult, error) {
	derived, err := v.engine.DeriveDay(ctx, dayKey)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("validate day %s: %w", dayKey, err)
	}

	result := ValidationResult{SubjectID: dayKey}
	if cached == nil {
		result.Violations = append(result.Violations, Violation{
			SubjectID: dayKey,
			Field:     "snapshot",
			Expected:  "cached snapshot present",
			Actual:    "none",
			Issue:     "log knows this day but the cache has no snapshot",
		})
		result.Valid = false
		return result, nil
	}

	result.Violations = append(result.Violations, compareDay(dayKey, derived, *cached)...)
	result.Valid = len(result.Violations) == 0
	return result, nil
}

// scanJob is one subject queued for a system scan.
type scanJob struct {
	id  string
	run func(context.Context) (ValidationResult, error)
}

// scanOutcome is the raw result of one scan job.
type scanOutcome struct {
	result  ValidationResult
	err     error
	skipped bool
}

// ValidateSystem enumerates every entity and day the log knows and
// validates each against the snapshot repository, up to the configured
// parallelism at a time.
//
// Failure isolation: one subject's derivation failure becomes a violation
// for that subject and the scan continues. Cancellation: when ctx is done
// remaining subjects are skipped and the report carries Partial; a partial
// report never claims health. Outcomes fold into the report in enumeration
// order, so the violation list is deterministic regardless of parallelism.
func (v *Validator) ValidateSystem(ctx context.Context) (SystemIntegrityReport, error) {
	metrics.RecordValidationRun()

	report := SystemIntegrityReport{}

	entityIDs, err := v.log.EntityIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("validate system: %w", err)
	}
	dayKeys, err := v.log.DayKeys(ctx)
	if err != nil {
		return report, fmt.Errorf("validate system: %w", err)
	}

	jobs := make([]scanJob, 0, len(entityIDs)+len(dayKeys))
	for _, id := range entityIDs {
		jobs = append(jobs, scanJob{id: id, run: func(scanCtx context.Context) (ValidationResult, error) {
			cached, err := v.snapshots.TaskSnapshot(scanCtx, id)
			if err != nil {
				return ValidationResult{}, err
			}
			return v.ValidateEntity(scanCtx, id, cached)
		}})
	}
	for _, key := range dayKeys {
		jobs = append(jobs, scanJob{id: key, run: func(scanCtx context.Context) (ValidationResult, error) {
			cached, err := v.snapshots.DaySnapshot(scanCtx, key)
			if err != nil {
				return ValidationResult{}, err
			}
			return v.ValidateDay(scanCtx, key, cached)
		}})
	}

	outcomes := v.runScan(ctx, jobs)
	for i, job := range jobs {
		foldOutcome(&report, job.id, outcomes[i])
	}

	return v.finish(report, ctx.Err() != nil), nil
}

// runScan executes jobs with at most v.parallelism in flight.
func (v *Validator) runScan(ctx context.Context, jobs []scanJob) []scanOutcome {
	outcomes := make([]scanOutcome, len(jobs))
	sem := make(chan struct{}, v.parallelism)

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job scanJob) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				outcomes[i].skipped = true
				return
			}
			result, err := job.run(ctx)
			if err != nil && ctx.Err() != nil {
				// Cancelled mid-subject: not actually checked.
				outcomes[i].skipped = true
				return
			}
			outcomes[i] = scanOutcome{result: result, err: err}
		}(i, job)
	}
	wg.Wait()
	return outcomes
}

// foldOutcome merges one subject's outcome into the report. Errors
// (derivation or snapshot I/O) become violations so the scan keeps going.
func foldOutcome(report *SystemIntegrityReport, subjectID string, o scanOutcome) {
	if o.skipped {
		return
	}
	report.TotalChecked++

	if o.err != nil {
		report.Failed++
		report.Violations = append(report.Violations, Violation{
			SubjectID: subjectID,
			Field:     "derivation",
			Expected:  "replayable event sequence",
			Actual:    o.err.Error(),
			Issue:     "subject could not be validated",
		})
		return
	}

	if o.result.Valid {
		report.Passed++
		return
	}
	report.Failed++
	report.Violations = append(report.Violations, o.result.Violations...)
}

func (v *Validator) finish(report SystemIntegrityReport, partial bool) SystemIntegrityReport {
	report.Partial = partial
	report.Healthy = !partial && report.Failed == 0
	metrics.RecordViolations(len(report.Violations))
	metrics.SetLastScanEntities(report.TotalChecked)
	return report
}

// compareTask applies field-specific equality between derived and cached
// task state.
func compareTask(id string, derived derive.TaskState, cached CachedTaskSnapshot) []Violation {
	var violations []Violation
	add := func(field, expected, actual string) {
		violations = append(violations, Violation{
			SubjectID: id,
			Field:     field,
			Expected:  expected,
			Actual:    actual,
			Issue:     fmt.Sprintf("cached %s diverges from derived state", field),
		})
	}

	if derived.Name != cached.Name {
		add("name", derived.Name, cached.Name)
	}
	if derived.EstimatedMinutes != cached.EstimatedMinutes {
		add("estimatedMinutes", formatInt(derived.EstimatedMinutes), formatInt(cached.EstimatedMinutes))
	}
	if derived.ActualMinutes != cached.ActualMinutes {
		add("actualMinutes", formatInt(derived.ActualMinutes), formatInt(cached.ActualMinutes))
	}
	if derived.Lifecycle != cached.Lifecycle {
		add("lifecycleState", string(derived.Lifecycle), string(cached.Lifecycle))
	}
	if !timesEqual(derived.StartedAt, cached.StartedAt) {
		add("startedAt", formatTime(derived.StartedAt), formatTime(cached.StartedAt))
	}
	if !timesEqual(derived.CompletedAt, cached.CompletedAt) {
		add("completedAt", formatTime(derived.CompletedAt), formatTime(cached.CompletedAt))
	}
	if derived.SessionCount != cached.SessionCount {
		add("sessionCount", formatInt(int64(derived.SessionCount)), formatInt(int64(cached.SessionCount)))
	}
	if derived.InterruptionCount != cached.InterruptionCount {
		add("interruptionCount", formatInt(int64(derived.InterruptionCount)), formatInt(int64(cached.InterruptionCount)))
	}
	if derived.WhatWorked != cached.WhatWorked {
		add("whatWorked", derived.WhatWorked, cached.WhatWorked)
	}
	if derived.Impediment != cached.Impediment {
		add("impediment", derived.Impediment, cached.Impediment)
	}

	return violations
}

// compareDay applies field-specific equality between derived and cached day
// state.
func compareDay(key string, derived derive.DayState, cached CachedDaySnapshot) []Violation {
	var violations []Violation
	add := func(field, expected, actual string) {
		violations = append(violations, Violation{
			SubjectID: key,
			Field:     field,
			Expected:  expected,
			Actual:    actual,
			Issue:     fmt.Sprintf("cached %s diverges from derived state", field),
		})
	}

	if derived.Lifecycle != cached.Lifecycle {
		add("lifecycleState", string(derived.Lifecycle), string(cached.Lifecycle))
	}
	if !stringSlicesEqual(derived.TaskIDs, cached.TaskIDs) {
		add("taskIds", fmt.Sprintf("%v", derived.TaskIDs), fmt.Sprintf("%v", cached.TaskIDs))
	}
	if !timesEqual(derived.OpenedAt, cached.OpenedAt) {
		add("openedAt", formatTime(derived.OpenedAt), formatTime(cached.OpenedAt))
	}
	if !timesEqual(derived.SealedAt, cached.SealedAt) {
		add("sealedAt", formatTime(derived.SealedAt), formatTime(cached.SealedAt))
	}

	return violations
}

// timesEqual compares nullable timestamps at second precision. Cached
// snapshots round-trip through stores that drop sub-second precision, so
// finer comparison would report false divergence.
func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.UTC().Truncate(time.Second).Equal(b.UTC().Truncate(time.Second))
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func formatInt(n int64) string {
	return fmt.Sprintf("%d", n)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "null"
	}
	return t.UTC().Format(time.RFC3339)
}
