package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/halfday/reckon/internal/analytics"
	"github.com/halfday/reckon/internal/derive"
	"github.com/halfday/reckon/internal/event"
	"github.com/halfday/reckon/internal/eventlog"
	"github.com/halfday/reckon/internal/integrity"
	"github.com/halfday/reckon/internal/storage"
)

// Result captures everything a scenario derived. Tasks and Days hold the
// replayed state of every subject the log knows after all appends.
type Result struct {
	Scenario string
	Tasks    map[string]derive.TaskState
	Days     map[string]derive.DayState
}

// Run executes a scenario against a fresh in-memory log: appends every
// event (checking expected rejections), derives all state, and runs every
// check. The first failing check aborts the run.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	log, err := eventlog.New(ctx, storage.NewMemoryStore())
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	for i, step := range scenario.Events {
		if err := applyStep(ctx, log, step); err != nil {
			return nil, fmt.Errorf("scenario %s events[%d]: %w", scenario.Name, i, err)
		}
	}

	result, err := deriveAll(ctx, log, scenario.Name)
	if err != nil {
		return nil, err
	}

	for i, check := range scenario.Checks {
		if err := runCheck(ctx, log, result, check); err != nil {
			return nil, fmt.Errorf("scenario %s checks[%d] (%s %s): %w",
				scenario.Name, i, check.Type, check.Subject, err)
		}
	}
	return result, nil
}

// applyStep appends one event, honoring an expected rejection.
func applyStep(ctx context.Context, log *eventlog.Log, step EventStep) error {
	ev, err := buildEvent(step)
	if err != nil {
		return err
	}

	_, err = log.Append(ctx, ev)
	if step.ExpectError == "" {
		if err != nil {
			return fmt.Errorf("append %s: %w", step.ID, err)
		}
		return nil
	}
	if err == nil {
		return fmt.Errorf("append %s succeeded, want error containing %q", step.ID, step.ExpectError)
	}
	if !strings.Contains(err.Error(), step.ExpectError) {
		return fmt.Errorf("append %s error %q does not contain %q", step.ID, err, step.ExpectError)
	}
	return nil
}

// buildEvent converts a YAML step into an event via the wire format, so
// scenarios express payloads exactly as external callers would.
func buildEvent(step EventStep) (event.Event, error) {
	payload := step.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	wire := map[string]any{
		"id":        step.ID,
		"timestamp": step.Timestamp,
		"dayKey":    "",
		"entityId":  nil,
		"kind":      step.Kind,
		"payload":   payload,
		"sealed":    false,
	}
	if step.Entity != "" {
		wire["entityId"] = step.Entity
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return event.Event{}, fmt.Errorf("build event %s: %w", step.ID, err)
	}

	var ev event.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return event.Event{}, fmt.Errorf("build event %s: %w", step.ID, err)
	}
	return ev, nil
}

// deriveAll replays every entity and day currently in the log.
func deriveAll(ctx context.Context, log *eventlog.Log, name string) (*Result, error) {
	engine := derive.New(log)
	result := &Result{
		Scenario: name,
		Tasks:    make(map[string]derive.TaskState),
		Days:     make(map[string]derive.DayState),
	}

	ids, err := log.EntityIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", name, err)
	}
	for _, id := range ids {
		state, err := engine.DeriveEntity(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: derive entity %s: %w", name, id, err)
		}
		result.Tasks[id] = state
	}

	days, err := log.DayKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", name, err)
	}
	for _, day := range days {
		state, err := engine.DeriveDay(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: derive day %s: %w", name, day, err)
		}
		result.Days[day] = state
	}
	return result, nil
}

func runCheck(ctx context.Context, log *eventlog.Log, result *Result, check Check) error {
	engine := analytics.New(log)

	switch check.Type {
	case CheckTaskState:
		state, ok := result.Tasks[check.Subject]
		if !ok {
			return fmt.Errorf("no derived state for task %s", check.Subject)
		}
		return matchSubset(check.Expect, state)

	case CheckDayState:
		state, ok := result.Days[check.Subject]
		if !ok {
			return fmt.Errorf("no derived state for day %s", check.Subject)
		}
		return matchSubset(check.Expect, state)

	case CheckTaskAnalysis:
		analysis, err := engine.AnalyzeEntity(ctx, check.Subject)
		if err != nil {
			return err
		}
		return matchSubset(check.Expect, analysis)

	case CheckTimeAnalysis:
		analysis, err := engine.AnalyzeTime(ctx, check.Subject)
		if err != nil {
			return err
		}
		return matchSubset(check.Expect, analysis)

	case CheckAbandonment:
		days, err := log.DayKeys(ctx)
		if err != nil {
			return err
		}
		pattern, err := engine.DetectAbandonment(ctx, days)
		if err != nil {
			return err
		}
		return matchSubset(check.Expect, pattern)

	case CheckValidateTask, CheckValidateDay:
		return runValidateCheck(ctx, log, check)

	default:
		return fmt.Errorf("unknown check type %q", check.Type)
	}
}

// runValidateCheck validates one subject against the check's inline cached
// snapshot. Expect supports "valid" plus optional "field", "expected" and
// "actual", which must all match a single reported violation.
func runValidateCheck(ctx context.Context, log *eventlog.Log, check Check) error {
	data, err := json.Marshal(check.Snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	snapshots := integrity.NewStaticSnapshots()
	validator := integrity.New(log, derive.New(log), snapshots)

	var result integrity.ValidationResult
	if check.Type == CheckValidateDay {
		var cached integrity.CachedDaySnapshot
		if err := json.Unmarshal(data, &cached); err != nil {
			return fmt.Errorf("decode snapshot: %w", err)
		}
		snapshots.Days[check.Subject] = &cached
		result, err = validator.ValidateDay(ctx, check.Subject, &cached)
	} else {
		var cached integrity.CachedTaskSnapshot
		if err := json.Unmarshal(data, &cached); err != nil {
			return fmt.Errorf("decode snapshot: %w", err)
		}
		snapshots.Tasks[check.Subject] = &cached
		result, err = validator.ValidateEntity(ctx, check.Subject, &cached)
	}
	if err != nil {
		return err
	}

	if want, ok := check.Expect["valid"].(bool); ok && result.Valid != want {
		return fmt.Errorf("valid = %v, want %v (violations: %+v)", result.Valid, want, result.Violations)
	}

	field, _ := check.Expect["field"].(string)
	if field == "" {
		return nil
	}
	for _, v := range result.Violations {
		if v.Field != field {
			continue
		}
		if want, ok := check.Expect["expected"].(string); ok && v.Expected != want {
			continue
		}
		if want, ok := check.Expect["actual"].(string); ok && v.Actual != want {
			continue
		}
		return nil
	}
	return fmt.Errorf("no violation on field %q matches %v (got %+v)", field, check.Expect, result.Violations)
}

// matchSubset checks every expected key against the JSON rendering of the
// actual value. Values compare by their JSON encodings, which lines YAML
// integers up with Go int64 and float64 alike.
func matchSubset(expect map[string]any, actual any) error {
	data, err := json.Marshal(actual)
	if err != nil {
		return fmt.Errorf("encode actual: %w", err)
	}
	var actualMap map[string]any
	if err := json.Unmarshal(data, &actualMap); err != nil {
		return fmt.Errorf("decode actual: %w", err)
	}

	for key, want := range expect {
		got, ok := actualMap[key]
		if !ok {
			return fmt.Errorf("field %q missing from actual %s", key, data)
		}
		wantJSON, err := json.Marshal(want)
		if err != nil {
			return fmt.Errorf("encode expected %q: %w", key, err)
		}
		gotJSON, err := json.Marshal(got)
		if err != nil {
			return fmt.Errorf("encode actual %q: %w", key, err)
		}
		if string(wantJSON) != string(gotJSON) {
			return fmt.Errorf("field %q = %s, want %s", key, gotJSON, wantJSON)
		}
	}
	return nil
}
