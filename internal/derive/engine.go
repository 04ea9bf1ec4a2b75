package derive

import (
	"context"
	"fmt"

	"github.com/halfday/reckon/internal/eventlog"
	"github.com/halfday/reckon/pkg/metrics"
)

// Engine fetches ordered event sequences from the log and folds them into
// derived state. Construct one per session and share it freely; the engine
// holds no mutable state.
type Engine struct {
	log *eventlog.Log
}

// New creates a derivation engine over a log.
func New(log *eventlog.Log) *Engine {
	return &Engine{log: log}
}

// DeriveEntity computes a task's current state by replaying its events.
// Fails with NoEventsError when the entity has none, DerivationError when
// the sequence is malformed.
func (e *Engine) DeriveEntity(ctx context.Context, entityID string) (TaskState, error) {
	events, err := e.log.ForEntity(ctx, entityID)
	if err != nil {
		return TaskState{}, fmt.Errorf("derive entity %s: %w", entityID, err)
	}

	state, err := FoldTask(entityID, events)
	if err != nil {
		metrics.RecordDerivation(outcome(err))
		return TaskState{}, err
	}

	metrics.RecordDerivation("ok")
	return state, nil
}

// DeriveDay computes a day's current state by replaying its events.
func (e *Engine) DeriveDay(ctx context.Context, dayKey string) (DayState, error) {
	events, err := e.log.ForDay(ctx, dayKey)
	if err != nil {
		return DayState{}, fmt.Errorf("derive day %s: %w", dayKey, err)
	}

	state, err := FoldDay(dayKey, events)
	if err != nil {
		metrics.RecordDerivation(outcome(err))
		return DayState{}, err
	}

	metrics.RecordDerivation("ok")
	return state, nil
}

func outcome(err error) string {
	if IsNoEvents(err) {
		return "no_events"
	}
	return "error"
}
